package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/manager/internal/phase"
)

type AlreadyFinalizedError struct {
	CampaignID  string
	FinalizedAt time.Time
}

func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("report for campaign %s already finalized at %s", e.CampaignID, e.FinalizedAt.Format(time.RFC3339))
}

// Totals are derived once, at Finalize. Recovered counts phase results only;
// Rate includes the pre-recovered credentials.
type Totals struct {
	Initial      int
	Recovered    int
	PreRecovered int
	Remaining    int
	Elapsed      time.Duration
	Rate         float64
	Statuses     map[phase.Status]int
}

// Report accumulates phase outcomes for one campaign and is finalized once.
type Report struct {
	mu           sync.RWMutex
	campaignID   string
	name         string
	createdAt    time.Time
	initial      int
	malformed    int
	preRecovered []digest.Recovered
	outcomes     []*phase.Outcome
	haltReason   string
	environment  *Environment
	totals       *Totals
	finalizedAt  time.Time
}

type Meta struct {
	CampaignID   string
	Name         string
	CreatedAt    time.Time
	Initial      int
	Malformed    int
	PreRecovered []digest.Recovered
	Environment  *Environment
}

func New(meta Meta) *Report {
	created := meta.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return &Report{
		campaignID:   meta.CampaignID,
		name:         meta.Name,
		createdAt:    created,
		initial:      meta.Initial,
		malformed:    meta.Malformed,
		preRecovered: meta.PreRecovered,
		environment:  meta.Environment.copy(),
	}
}

func (r *Report) CampaignID() string {
	return r.campaignID
}

// Append records an outcome. Outcomes appended after Finalize are rejected.
func (r *Report) Append(outcome *phase.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.totals != nil {
		return &AlreadyFinalizedError{CampaignID: r.campaignID, FinalizedAt: r.finalizedAt}
	}
	r.outcomes = append(r.outcomes, outcome)
	return nil
}

func (r *Report) SetHaltReason(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.totals == nil {
		r.haltReason = reason
	}
}

func (r *Report) Outcomes() []*phase.Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*phase.Outcome(nil), r.outcomes...)
}

// Recovered lists every credential in phase order, pre-recovered first.
func (r *Report) Recovered() []digest.Recovered {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]digest.Recovered(nil), r.preRecovered...)
	for _, o := range r.outcomes {
		out = append(out, o.Recovered...)
	}
	return out
}

// Finalize computes the totals and freezes set.
func (r *Report) Finalize(set *digest.Set) (Totals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.totals != nil {
		return Totals{}, &AlreadyFinalizedError{CampaignID: r.campaignID, FinalizedAt: r.finalizedAt}
	}
	t := Totals{
		Initial:      r.initial,
		PreRecovered: len(r.preRecovered),
		Statuses:     make(map[phase.Status]int),
	}
	for _, o := range r.outcomes {
		t.Recovered += len(o.Recovered)
		t.Elapsed += o.Elapsed
		t.Statuses[o.Status]++
	}
	if set != nil {
		set.Freeze()
		t.Remaining = set.Len()
	}
	if t.Initial > 0 {
		t.Rate = float64(t.Recovered+t.PreRecovered) / float64(t.Initial)
	}
	r.totals = &t
	r.finalizedAt = time.Now()
	return t, nil
}

func (r *Report) Finalized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totals != nil
}

// Totals returns the finalized totals, if any.
func (r *Report) Totals() (Totals, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.totals == nil {
		return Totals{}, false
	}
	return *r.totals, true
}
