package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crack-campaign/manager/internal/engine"
	"github.com/ykhdr/crack-campaign/manager/internal/phase"
	"github.com/ykhdr/crack-campaign/manager/internal/report"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
)

const (
	noteExhausted   = "no digests remaining"
	noteStopped     = "campaign stopped by operator"
	noteCancelled   = "campaign cancelled"
	noteUnavailable = "engine unavailable"
)

type Orchestrator struct {
	runner      *phase.Runner
	notifier    Notifier
	environment *report.Environment
}

type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// WithEnvironment stamps every report with the host and engine it ran on.
func WithEnvironment(env *report.Environment) Option {
	return func(o *Orchestrator) {
		o.environment = env
	}
}

func NewOrchestrator(runner *phase.Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:   runner,
		notifier: nopNotifier{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run validates every strategy, then runs the phases strictly in order. A
// validation failure returns before any phase starts and without a report.
// Otherwise the report is finalized and returned, whatever happened to the
// phases.
func (o *Orchestrator) Run(ctx context.Context, c *Campaign) (*report.Report, error) {
	l := log.With().
		Str("domain", "campaign").
		Str("campaign-id", c.ID).
		Logger()

	if err := strategy.ValidateAll(c.Strategies); err != nil {
		l.Error().Err(err).Msg("campaign rejected")
		return nil, err
	}

	rep := report.New(report.Meta{
		CampaignID:   c.ID,
		Name:         c.Name,
		CreatedAt:    c.CreatedAt,
		Initial:      c.Ingest.Initial,
		Malformed:    c.Ingest.MalformedCount(),
		PreRecovered: c.Ingest.PreRecovered,
		Environment:  o.environment,
	})
	// events outlive an abrupt cancellation so observers still see the end
	notifyCtx := context.WithoutCancel(ctx)
	o.notifier.Notify(notifyCtx, Event{Type: EventStarted, CampaignID: c.ID, At: time.Now(), Remaining: c.Set.Len()})
	l.Info().Int("digests", c.Set.Len()).Int("phases", len(c.Strategies)).Msg("campaign started")

	var (
		haltStatus phase.Status
		haltNote   string
	)
	halt := func(status phase.Status, note string) {
		haltStatus, haltNote = status, note
		if status == phase.StatusAborted {
			rep.SetHaltReason(note)
		}
	}

	for i, d := range c.Strategies {
		if haltStatus == "" {
			switch {
			case ctx.Err() != nil:
				halt(phase.StatusAborted, noteCancelled)
			case c.Stopped():
				halt(phase.StatusAborted, noteStopped)
			case c.Set.IsEmpty():
				halt(phase.StatusSkipped, noteExhausted)
			}
		}
		if haltStatus != "" {
			o.append(notifyCtx, c, rep, phase.NotRun(i, d, haltStatus, haltNote))
			continue
		}

		if len(c.Set.Targets(d.TargetScheme)) == 0 {
			note := fmt.Sprintf("no digests for scheme %s", d.TargetScheme)
			o.append(notifyCtx, c, rep, phase.NotRun(i, d, phase.StatusSkipped, note))
			continue
		}

		out, err := o.runner.Run(ctx, c.ID, i, d, c.Set)
		if out == nil {
			return nil, errors.Wrapf(err, "phase %d", i)
		}
		o.append(notifyCtx, c, rep, out)

		var unavailable *engine.EngineUnavailableError
		switch {
		case err == nil:
		case errors.Is(err, engine.ErrAborted):
			halt(phase.StatusAborted, noteCancelled)
		case errors.As(err, &unavailable):
			halt(phase.StatusAborted, noteUnavailable)
			rep.SetHaltReason(err.Error())
		default:
			halt(phase.StatusAborted, err.Error())
		}
	}

	totals, err := rep.Finalize(c.Set)
	if err != nil {
		return nil, err
	}
	l.Info().
		Int("recovered", totals.Recovered+totals.PreRecovered).
		Int("remaining", totals.Remaining).
		Dur("elapsed", totals.Elapsed).
		Msg("campaign finished")
	o.notifier.Notify(notifyCtx, Event{
		Type:       EventFinished,
		CampaignID: c.ID,
		At:         time.Now(),
		Remaining:  totals.Remaining,
		Report:     rep.Document(),
	})
	return rep, nil
}

func (o *Orchestrator) append(ctx context.Context, c *Campaign, rep *report.Report, out *phase.Outcome) {
	// the report is private to this run and not finalized yet
	_ = rep.Append(out)
	doc := report.NewPhaseDocument(out)
	o.notifier.Notify(ctx, Event{
		Type:       EventPhaseFinished,
		CampaignID: c.ID,
		At:         time.Now(),
		Remaining:  c.Set.Len(),
		Phase:      &doc,
	})
}
