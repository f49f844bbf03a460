package digest

import (
	"sort"
	"sync"
)

// Set holds the digests a campaign still has to recover, keyed by value.
// Phases mutate it one after another; the lock only lets status readers
// observe it while a phase is running.
type Set struct {
	m      sync.RWMutex
	items  map[string]Digest
	order  []string
	frozen bool
}

func NewSet(digests ...Digest) *Set {
	s := &Set{items: make(map[string]Digest, len(digests))}
	for _, d := range digests {
		s.add(d)
	}
	return s
}

// add keeps the first occurrence of a value.
func (s *Set) add(d Digest) bool {
	if _, exists := s.items[d.Value]; exists {
		return false
	}
	s.items[d.Value] = d
	s.order = append(s.order, d.Value)
	return true
}

func (s *Set) Len() int {
	s.m.RLock()
	defer s.m.RUnlock()
	return len(s.items)
}

func (s *Set) IsEmpty() bool {
	return s.Len() == 0
}

func (s *Set) Contains(value string) bool {
	s.m.RLock()
	defer s.m.RUnlock()
	_, ok := s.items[value]
	return ok
}

func (s *Set) Get(value string) (Digest, bool) {
	s.m.RLock()
	defer s.m.RUnlock()
	d, ok := s.items[value]
	return d, ok
}

// Remove drops every given value still present and reports how many were
// actually removed. Values already gone are not an error.
func (s *Set) Remove(values ...string) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.frozen {
		return 0, ErrFrozen
	}
	removed := 0
	for _, v := range values {
		if _, ok := s.items[v]; ok {
			delete(s.items, v)
			removed++
		}
	}
	if removed > 0 {
		s.compact()
	}
	return removed, nil
}

func (s *Set) compact() {
	order := s.order[:0]
	for _, v := range s.order {
		if _, ok := s.items[v]; ok {
			order = append(order, v)
		}
	}
	s.order = order
}

func (s *Set) Freeze() {
	s.m.Lock()
	defer s.m.Unlock()
	s.frozen = true
}

func (s *Set) Frozen() bool {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.frozen
}

// Digests returns the members in ingestion order.
func (s *Set) Digests() []Digest {
	s.m.RLock()
	defer s.m.RUnlock()
	out := make([]Digest, 0, len(s.order))
	for _, v := range s.order {
		out = append(out, s.items[v])
	}
	return out
}

// Values returns the member values sorted.
func (s *Set) Values() []string {
	s.m.RLock()
	defer s.m.RUnlock()
	out := make([]string, 0, len(s.items))
	for v := range s.items {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Lines re-serializes the remaining digests in the input file format.
func (s *Set) Lines() []string {
	digests := s.Digests()
	out := make([]string, 0, len(digests))
	for _, d := range digests {
		out = append(out, d.String())
	}
	return out
}

// SubsetFor returns the digests whose ingested scheme is exactly scheme.
// Ambiguous digests only match SchemeUnknown.
func (s *Set) SubsetFor(scheme Scheme) View {
	s.m.RLock()
	defer s.m.RUnlock()
	var digests []Digest
	for _, v := range s.order {
		if d := s.items[v]; d.Scheme == scheme {
			digests = append(digests, d)
		}
	}
	return View{scheme: scheme, digests: digests}
}

// Targets returns the non-empty views an engine has to be invoked with for a
// phase. An explicit scheme yields at most one view; an empty scheme yields
// one view per concrete scheme, ambiguous digests joining each candidate.
func (s *Set) Targets(scheme Scheme) []View {
	if scheme != "" {
		view := s.SubsetFor(scheme)
		if view.Len() == 0 {
			return nil
		}
		return []View{view}
	}
	s.m.RLock()
	defer s.m.RUnlock()
	var views []View
	for _, selector := range concreteSchemes {
		var digests []Digest
		for _, v := range s.order {
			d := s.items[v]
			for _, c := range d.Scheme.Candidates() {
				if c == selector {
					digests = append(digests, d)
					break
				}
			}
		}
		if len(digests) > 0 {
			views = append(views, View{scheme: selector, digests: digests})
		}
	}
	return views
}

// View is an immutable snapshot of part of a Set together with the scheme
// the engine is invoked with.
type View struct {
	scheme  Scheme
	digests []Digest
}

func NewView(scheme Scheme, digests ...Digest) View {
	cp := make([]Digest, len(digests))
	copy(cp, digests)
	return View{scheme: scheme, digests: cp}
}

func (v View) Scheme() Scheme {
	return v.scheme
}

func (v View) Len() int {
	return len(v.digests)
}

func (v View) Digests() []Digest {
	out := make([]Digest, len(v.digests))
	copy(out, v.digests)
	return out
}

func (v View) Values() []string {
	out := make([]string, len(v.digests))
	for i, d := range v.digests {
		out[i] = d.Value
	}
	return out
}

func (v View) Lookup(value string) (Digest, bool) {
	for _, d := range v.digests {
		if d.Value == value {
			return d, true
		}
	}
	return Digest{}, false
}

// Without returns a view lacking the given values.
func (v View) Without(values map[string]struct{}) View {
	if len(values) == 0 {
		return v
	}
	digests := make([]Digest, 0, len(v.digests))
	for _, d := range v.digests {
		if _, drop := values[d.Value]; !drop {
			digests = append(digests, d)
		}
	}
	return View{scheme: v.scheme, digests: digests}
}
