package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crack-campaign/common/amqp/publisher"
	"github.com/ykhdr/crack-campaign/manager/internal/campaign"
	"github.com/ykhdr/crack-campaign/manager/internal/report"
	"github.com/ykhdr/crack-campaign/manager/pkg/messages"
)

const defaultPublishTimeout = 5 * time.Second

// RequestIDResolver maps a campaign to the id of the request that started it.
type RequestIDResolver func(campaignID string) string

// Publisher forwards campaign events to AMQP. Publish failures are logged and
// never reach the campaign.
type Publisher struct {
	l       zerolog.Logger
	pub     publisher.Publisher[messages.CampaignEvent]
	resolve RequestIDResolver
	timeout time.Duration
}

func NewPublisher(pub publisher.Publisher[messages.CampaignEvent], resolve RequestIDResolver) *Publisher {
	return &Publisher{
		pub:     pub,
		resolve: resolve,
		timeout: defaultPublishTimeout,
		l: log.With().
			Str("domain", "events").
			Str("type", "amqp").
			Logger(),
	}
}

func (p *Publisher) Notify(ctx context.Context, e campaign.Event) {
	msg := ToMessage(e)
	if p.resolve != nil {
		msg.RequestId = p.resolve(e.CampaignID)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.pub.SendMessage(ctx, msg, publisher.Persistent, false, false); err != nil {
		p.l.Warn().Err(err).
			Str("campaign-id", e.CampaignID).
			Str("event", string(e.Type)).
			Msg("Failed to publish campaign event")
	}
}

// Logger writes campaign events to the log.
type Logger struct {
	l zerolog.Logger
}

func NewLogger() *Logger {
	return &Logger{
		l: log.With().Str("domain", "events").Logger(),
	}
}

func (n *Logger) Notify(_ context.Context, e campaign.Event) {
	ev := n.l.Info().
		Str("campaign-id", e.CampaignID).
		Str("event", string(e.Type)).
		Int("remaining", e.Remaining)
	if e.Phase != nil {
		ev = ev.Int("phase", e.Phase.Index).
			Str("strategy", e.Phase.Name).
			Str("status", string(e.Phase.Status)).
			Int("recovered", e.Phase.RecoveredCount)
	}
	if e.Report != nil && e.Report.Totals != nil {
		ev = ev.Int("recovered", e.Report.Totals.CumulativeRecovered).
			Float64("rate", e.Report.Totals.OverallRecoveryRate)
	}
	ev.Msg("Campaign event")
}

func ToMessage(e campaign.Event) *messages.CampaignEvent {
	msg := &messages.CampaignEvent{
		Type:       string(e.Type),
		CampaignId: e.CampaignID,
		At:         e.At.UTC(),
		Remaining:  e.Remaining,
	}
	if e.Phase != nil {
		msg.Phase = phaseSummary(e.Phase)
	}
	if e.Report != nil && e.Report.Totals != nil {
		msg.Totals = &messages.TotalsSummary{
			Recovered:    e.Report.Totals.CumulativeRecovered,
			PreRecovered: e.Report.Totals.PreRecovered,
			Remaining:    e.Report.Totals.Remaining,
			RecoveryRate: e.Report.Totals.OverallRecoveryRate,
			HaltReason:   e.Report.HaltReason,
		}
	}
	return msg
}

func phaseSummary(p *report.PhaseDocument) *messages.PhaseSummary {
	return &messages.PhaseSummary{
		Index:          p.Index,
		Name:           p.Name,
		Kind:           string(p.StrategyKind),
		Status:         string(p.Status),
		InputCount:     p.InputCount,
		RecoveredCount: p.RecoveredCount,
		ElapsedSeconds: p.ElapsedSeconds,
		Partial:        p.Partial,
		Note:           p.Note,
	}
}
