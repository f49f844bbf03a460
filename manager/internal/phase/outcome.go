package phase

import (
	"time"

	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusTimedOut  Status = "timed_out"
	StatusFailed    Status = "failed"
	// Skipped and Aborted are only assigned by the orchestrator.
	StatusSkipped Status = "skipped"
	StatusAborted Status = "aborted"
)

// Succeeded reports whether the phase's recovered credentials count.
func (s Status) Succeeded() bool {
	return s == StatusCompleted || s == StatusTimedOut
}

func (s Status) Terminal() bool {
	return s != StatusPending && s != StatusRunning
}

// Outcome is the frozen record of one phase.
type Outcome struct {
	Index       int
	Strategy    strategy.Descriptor
	Status      Status
	StartedAt   time.Time
	Elapsed     time.Duration
	InputCount  int
	Recovered   []digest.Recovered
	Partial     bool
	Note        string
	Err         error
	Invocations int
	Ignored     int
}

func (o *Outcome) RecoveredCount() int {
	return len(o.Recovered)
}

// Rate is recovered/input, zero for phases that saw no input.
func (o *Outcome) Rate() float64 {
	if o.InputCount == 0 {
		return 0
	}
	return float64(len(o.Recovered)) / float64(o.InputCount)
}

// NotRun builds the outcome of a phase that never reached the engine.
func NotRun(index int, d strategy.Descriptor, status Status, note string) *Outcome {
	return &Outcome{
		Index:    index,
		Strategy: d,
		Status:   status,
		Note:     note,
	}
}
