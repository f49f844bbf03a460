// Package knowncreds stores credentials recovered by earlier phases and
// campaigns. Stores are injected into ingestion and the phase runner; nothing
// here is global.
package knowncreds

import (
	"context"
	"sync"

	"github.com/ykhdr/crack-campaign/manager/internal/digest"
)

type Store interface {
	Lookup(ctx context.Context, value string) (plaintext string, ok bool, err error)
	Record(ctx context.Context, recovered []digest.Recovered) error
}

// Memory is a process-local store.
type Memory struct {
	m    sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (s *Memory) Lookup(_ context.Context, value string) (string, bool, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	p, ok := s.data[digest.NormalizeValue(value)]
	return p, ok, nil
}

func (s *Memory) Record(_ context.Context, recovered []digest.Recovered) error {
	s.m.Lock()
	defer s.m.Unlock()
	for _, r := range recovered {
		s.data[r.Digest.Value] = r.Plaintext
	}
	return nil
}

// Put adds a single credential, first write wins.
func (s *Memory) Put(value, plaintext string) bool {
	s.m.Lock()
	defer s.m.Unlock()
	value = digest.NormalizeValue(value)
	if _, ok := s.data[value]; ok {
		return false
	}
	s.data[value] = plaintext
	return true
}

func (s *Memory) Len() int {
	s.m.RLock()
	defer s.m.RUnlock()
	return len(s.data)
}

// Chain consults stores in order and records into all of them.
type Chain []Store

func (c Chain) Lookup(ctx context.Context, value string) (string, bool, error) {
	for _, s := range c {
		p, ok, err := s.Lookup(ctx, value)
		if err != nil {
			return "", false, err
		}
		if ok {
			return p, true, nil
		}
	}
	return "", false, nil
}

func (c Chain) Record(ctx context.Context, recovered []digest.Recovered) error {
	for _, s := range c {
		if err := s.Record(ctx, recovered); err != nil {
			return err
		}
	}
	return nil
}
