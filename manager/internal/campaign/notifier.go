package campaign

import (
	"context"
	"time"

	"github.com/ykhdr/crack-campaign/manager/internal/report"
)

type EventType string

const (
	EventStarted       EventType = "campaign_started"
	EventPhaseFinished EventType = "phase_finished"
	EventFinished      EventType = "campaign_finished"
)

type Event struct {
	Type       EventType
	CampaignID string
	At         time.Time
	Remaining  int
	// Phase is set for EventPhaseFinished.
	Phase *report.PhaseDocument
	// Report is set for EventFinished.
	Report *report.Document
}

// Notifier observes campaign progress. Notify must not block the campaign for
// long; failures are the notifier's own business.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

type NotifierFunc func(ctx context.Context, e Event)

func (f NotifierFunc) Notify(ctx context.Context, e Event) {
	f(ctx, e)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}

// Notifiers fans an event out to several notifiers in order.
type Notifiers []Notifier

func (n Notifiers) Notify(ctx context.Context, e Event) {
	for _, notifier := range n {
		notifier.Notify(ctx, e)
	}
}
