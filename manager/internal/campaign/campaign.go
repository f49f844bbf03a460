package campaign

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
)

// Campaign is one digest set and the ordered phases to run against it.
type Campaign struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	Set        *digest.Set
	Strategies []strategy.Descriptor
	Ingest     *digest.IngestResult

	stopOnce sync.Once
	stop     chan struct{}
}

func New(name string, set *digest.Set, strategies []strategy.Descriptor, ingest *digest.IngestResult) *Campaign {
	if ingest == nil {
		ingest = &digest.IngestResult{Initial: set.Len()}
	}
	return &Campaign{
		ID:         uuid.NewString(),
		Name:       name,
		CreatedAt:  time.Now(),
		Set:        set,
		Strategies: strategies,
		Ingest:     ingest,
		stop:       make(chan struct{}),
	}
}

// Stop requests a graceful halt: the running phase completes, later phases
// are recorded as aborted.
func (c *Campaign) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Campaign) Stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

type Params struct {
	Name string
	// DigestFile or Digests supplies the targets.
	DigestFile string
	Digests    []string
	// PlanFile or Strategies supplies the phases.
	PlanFile    string
	Strategies  []strategy.Descriptor
	ForceScheme digest.Scheme
	Strict      bool
	Known       digest.KnownCredentials
}

var ErrNoDigests = errors.New("no digest source given")

// Prepare ingests the digests and loads the plan. Strategies are validated
// later by the orchestrator.
func Prepare(ctx context.Context, p Params) (*Campaign, error) {
	strategies := p.Strategies
	name := p.Name
	if p.PlanFile != "" {
		plan, err := strategy.LoadPlan(p.PlanFile)
		if err != nil {
			return nil, err
		}
		strategies = plan.Phases
		if name == "" {
			name = plan.Name
		}
	}
	if len(strategies) == 0 {
		return nil, strategy.ErrEmptyPlan
	}

	opts := digest.IngestOptions{
		ForceScheme: p.ForceScheme,
		Known:       p.Known,
		Strict:      p.Strict,
	}
	var (
		set    *digest.Set
		ingest *digest.IngestResult
		err    error
	)
	switch {
	case p.DigestFile != "":
		set, ingest, err = digest.IngestFile(ctx, p.DigestFile, opts)
	case len(p.Digests) > 0:
		set, ingest, err = digest.IngestLines(ctx, p.Digests, opts)
	default:
		return nil, ErrNoDigests
	}
	if err != nil {
		return nil, err
	}
	return New(name, set, strategies, ingest), nil
}
