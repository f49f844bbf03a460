package phase

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/manager/internal/engine"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
)

// Recorder persists credentials recovered by the engine so later campaigns
// can resolve them through a digest.KnownCredentials lookup.
type Recorder interface {
	Record(ctx context.Context, recovered []digest.Recovered) error
}

type Runner struct {
	adapter  engine.Adapter
	known    digest.KnownCredentials
	recorder Recorder
	timeouts strategy.Timeouts
}

type Option func(*Runner)

func WithKnown(known digest.KnownCredentials) Option {
	return func(r *Runner) {
		r.known = known
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(r *Runner) {
		r.recorder = recorder
	}
}

func WithTimeouts(timeouts strategy.Timeouts) Option {
	return func(r *Runner) {
		r.timeouts = timeouts
	}
}

func NewRunner(adapter engine.Adapter, opts ...Option) *Runner {
	r := &Runner{adapter: adapter}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one phase against set. The returned error is non-nil only when
// the campaign has to halt: engine.ErrAborted on cancellation or an
// *engine.EngineUnavailableError. The outcome is always returned.
func (r *Runner) Run(ctx context.Context, campaignID string, index int, d strategy.Descriptor, set *digest.Set) (*Outcome, error) {
	l := log.With().
		Str("domain", "phase").
		Str("campaign-id", campaignID).
		Int("phase", index).
		Str("strategy", d.DisplayName()).
		Logger()

	views := set.Targets(d.TargetScheme)
	input := distinct(views)
	if len(input) == 0 {
		return NotRun(index, d, StatusSkipped, "no digests for target scheme"), nil
	}

	out := &Outcome{
		Index:      index,
		Strategy:   d,
		Status:     StatusRunning,
		StartedAt:  time.Now(),
		InputCount: len(input),
	}
	budget := d.EffectiveTimeout(r.timeouts)
	deadline := out.StartedAt.Add(budget)
	l.Info().Int("input", out.InputCount).Dur("budget", budget).Msg("phase started")

	found := make(map[string]struct{})
	known, err := r.lookupKnown(ctx, index, input)
	if err != nil {
		if ctx.Err() != nil {
			return r.abort(out, l), engine.ErrAborted
		}
		l.Warn().Err(err).Msg("known credentials lookup failed")
	}
	for _, rec := range known {
		found[rec.Digest.Value] = struct{}{}
		out.Recovered = append(out.Recovered, rec)
	}

	for _, view := range views {
		view = view.Without(found)
		if view.Len() == 0 {
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			out.Status = StatusTimedOut
			break
		}
		out.Invocations++
		res, err := r.adapter.Run(ctx, engine.Invocation{
			CampaignID: campaignID,
			PhaseIndex: index,
			View:       view,
			Strategy:   d,
			Timeout:    remaining,
		})
		if err != nil {
			return r.fail(ctx, out, err, l)
		}
		out.Ignored += res.Ignored
		for _, rec := range res.Recovered {
			if _, dup := found[rec.Digest.Value]; dup {
				continue
			}
			found[rec.Digest.Value] = struct{}{}
			out.Recovered = append(out.Recovered, rec)
		}
		if res.TimedOut {
			out.Status = StatusTimedOut
			break
		}
	}

	if out.Status == StatusTimedOut {
		out.Partial = true
		out.Note = "phase budget exhausted, partial results kept"
	} else {
		out.Status = StatusCompleted
	}
	out.Elapsed = time.Since(out.StartedAt)

	removed, err := set.Remove(recoveredValues(out.Recovered)...)
	if err != nil {
		return nil, errors.Wrap(err, "narrow digest set")
	}
	r.record(ctx, out.Recovered, l)

	l.Info().
		Str("status", string(out.Status)).
		Int("recovered", len(out.Recovered)).
		Int("removed", removed).
		Dur("elapsed", out.Elapsed).
		Msg("phase finished")
	return out, nil
}

func (r *Runner) lookupKnown(ctx context.Context, index int, input []digest.Digest) ([]digest.Recovered, error) {
	if r.known == nil {
		return nil, nil
	}
	var hits []digest.Recovered
	for _, d := range input {
		plaintext, ok, err := r.known.Lookup(ctx, d.Value)
		if err != nil {
			return hits, err
		}
		if !ok {
			continue
		}
		hits = append(hits, digest.Recovered{
			Digest:     d,
			Scheme:     d.Scheme,
			Plaintext:  plaintext,
			PhaseIndex: index,
			Source:     digest.SourceKnown,
		})
	}
	return hits, nil
}

// fail turns an engine error into a terminal outcome with nothing recovered.
func (r *Runner) fail(ctx context.Context, out *Outcome, err error, l zerolog.Logger) (*Outcome, error) {
	if errors.Is(err, engine.ErrAborted) || ctx.Err() != nil {
		return r.abort(out, l), engine.ErrAborted
	}
	out.Status = StatusFailed
	out.Recovered = nil
	out.Partial = false
	out.Err = err
	out.Note = err.Error()
	out.Elapsed = time.Since(out.StartedAt)
	l.Error().Err(err).Msg("phase failed")

	var unavailable *engine.EngineUnavailableError
	if errors.As(err, &unavailable) {
		return out, err
	}
	return out, nil
}

func (r *Runner) abort(out *Outcome, l zerolog.Logger) *Outcome {
	out.Status = StatusAborted
	out.Recovered = nil
	out.Partial = false
	out.Err = engine.ErrAborted
	out.Note = "cancelled while running, results discarded"
	out.Elapsed = time.Since(out.StartedAt)
	l.Warn().Msg("phase aborted")
	return out
}

func (r *Runner) record(ctx context.Context, recovered []digest.Recovered, l zerolog.Logger) {
	if r.recorder == nil {
		return
	}
	var fresh []digest.Recovered
	for _, rec := range recovered {
		if rec.Source == digest.SourceEngine {
			fresh = append(fresh, rec)
		}
	}
	if len(fresh) == 0 {
		return
	}
	if err := r.recorder.Record(ctx, fresh); err != nil {
		l.Warn().Err(err).Int("count", len(fresh)).Msg("failed to record recovered credentials")
	}
}

// distinct returns the union of the views in first-seen order.
func distinct(views []digest.View) []digest.Digest {
	seen := make(map[string]struct{})
	var out []digest.Digest
	for _, v := range views {
		for _, d := range v.Digests() {
			if _, ok := seen[d.Value]; ok {
				continue
			}
			seen[d.Value] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

func recoveredValues(recovered []digest.Recovered) []string {
	values := make([]string, len(recovered))
	for i, rec := range recovered {
		values[i] = rec.Digest.Value
	}
	return values
}
