package report

import (
	"time"

	"github.com/ykhdr/crack-campaign/manager/internal/phase"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
)

// Document is the serialized report: one top-level object per campaign.
// Plaintexts are never part of it.
type Document struct {
	CampaignID        string          `json:"campaign_id" bson:"_id"`
	Name              string          `json:"name" bson:"name"`
	CreatedAt         time.Time       `json:"created_at" bson:"created_at"`
	FinalizedAt       *time.Time      `json:"finalized_at,omitempty" bson:"finalized_at,omitempty"`
	InitialCount      int             `json:"initial_count" bson:"initial_count"`
	MalformedCount    int             `json:"malformed_count" bson:"malformed_count"`
	PreRecoveredCount int             `json:"pre_recovered_count" bson:"pre_recovered_count"`
	Phases            []PhaseDocument `json:"phases" bson:"phases"`
	Totals            *TotalsDocument `json:"totals,omitempty" bson:"totals,omitempty"`
	HaltReason        string          `json:"halt_reason,omitempty" bson:"halt_reason,omitempty"`
	Environment       *Environment    `json:"environment,omitempty" bson:"environment,omitempty"`
}

type PhaseDocument struct {
	Index          int           `json:"index" bson:"index"`
	Name           string        `json:"name" bson:"name"`
	StrategyKind   strategy.Kind `json:"strategy_kind" bson:"strategy_kind"`
	TargetScheme   string        `json:"target_scheme,omitempty" bson:"target_scheme,omitempty"`
	CostTier       string        `json:"cost_tier" bson:"cost_tier"`
	StartedAt      *time.Time    `json:"started_at,omitempty" bson:"started_at,omitempty"`
	InputCount     int           `json:"input_count" bson:"input_count"`
	RecoveredCount int           `json:"recovered_count" bson:"recovered_count"`
	ElapsedSeconds float64       `json:"elapsed_seconds" bson:"elapsed_seconds"`
	Status         phase.Status  `json:"status" bson:"status"`
	Partial        bool          `json:"partial" bson:"partial"`
	Note           string        `json:"note,omitempty" bson:"note,omitempty"`
	RecoveryRate   float64       `json:"recovery_rate" bson:"recovery_rate"`
	Invocations    int           `json:"invocations" bson:"invocations"`
}

type TotalsDocument struct {
	CumulativeRecovered      int                  `json:"cumulative_recovered" bson:"cumulative_recovered"`
	PreRecovered             int                  `json:"pre_recovered" bson:"pre_recovered"`
	Remaining                int                  `json:"remaining_count" bson:"remaining_count"`
	CumulativeElapsedSeconds float64              `json:"cumulative_elapsed_seconds" bson:"cumulative_elapsed_seconds"`
	OverallRecoveryRate      float64              `json:"overall_recovery_rate" bson:"overall_recovery_rate"`
	Statuses                 map[phase.Status]int `json:"statuses" bson:"statuses"`
}

func (r *Report) Document() *Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc := &Document{
		CampaignID:        r.campaignID,
		Name:              r.name,
		CreatedAt:         r.createdAt.UTC(),
		InitialCount:      r.initial,
		MalformedCount:    r.malformed,
		PreRecoveredCount: len(r.preRecovered),
		Phases:            make([]PhaseDocument, 0, len(r.outcomes)),
		HaltReason:        r.haltReason,
		Environment:       r.environment.copy(),
	}
	for _, o := range r.outcomes {
		doc.Phases = append(doc.Phases, NewPhaseDocument(o))
	}
	if r.totals != nil {
		finalized := r.finalizedAt.UTC()
		doc.FinalizedAt = &finalized
		doc.Totals = &TotalsDocument{
			CumulativeRecovered:      r.totals.Recovered,
			PreRecovered:             r.totals.PreRecovered,
			Remaining:                r.totals.Remaining,
			CumulativeElapsedSeconds: r.totals.Elapsed.Seconds(),
			OverallRecoveryRate:      r.totals.Rate,
			Statuses:                 r.totals.Statuses,
		}
	}
	return doc
}

// NewPhaseDocument is the serialized form of one outcome.
func NewPhaseDocument(o *phase.Outcome) PhaseDocument {
	doc := PhaseDocument{
		Index:          o.Index,
		Name:           o.Strategy.DisplayName(),
		StrategyKind:   o.Strategy.Kind,
		TargetScheme:   string(o.Strategy.TargetScheme),
		CostTier:       string(o.Strategy.CostTier),
		InputCount:     o.InputCount,
		RecoveredCount: len(o.Recovered),
		ElapsedSeconds: o.Elapsed.Seconds(),
		Status:         o.Status,
		Partial:        o.Partial,
		Note:           o.Note,
		RecoveryRate:   o.Rate(),
		Invocations:    o.Invocations,
	}
	if !o.StartedAt.IsZero() {
		started := o.StartedAt.UTC()
		doc.StartedAt = &started
	}
	return doc
}
