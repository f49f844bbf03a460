package engine

import (
	"context"
	"time"

	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
)

// Adapter turns one scheme-filtered view and a validated strategy into an
// external engine run.
type Adapter interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

type Invocation struct {
	CampaignID string
	PhaseIndex int
	View       digest.View
	Strategy   strategy.Descriptor
	// Timeout bounds this invocation. Zero means no limit.
	Timeout time.Duration
}

type Result struct {
	// Recovered is in the order the engine reported it, one entry per digest.
	Recovered []digest.Recovered
	TimedOut  bool
	// Ignored counts reported digests that were not part of the view.
	Ignored  int
	ExitCode int
	Elapsed  time.Duration
}
