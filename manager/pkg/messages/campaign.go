package messages

import (
	"time"

	"github.com/ykhdr/crack-campaign/manager/pkg/api"
)

// CampaignRequest arrives on the request queue. RequestId lets the sender
// correlate the campaign events published for it.
type CampaignRequest struct {
	RequestId string              `json:"request_id"`
	Campaign  api.CampaignRequest `json:"campaign"`
}

type PhaseSummary struct {
	Index          int     `json:"index"`
	Name           string  `json:"name"`
	Kind           string  `json:"kind"`
	Status         string  `json:"status"`
	InputCount     int     `json:"input_count"`
	RecoveredCount int     `json:"recovered_count"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Partial        bool    `json:"partial"`
	Note           string  `json:"note,omitempty"`
}

type TotalsSummary struct {
	Recovered    int     `json:"recovered"`
	PreRecovered int     `json:"pre_recovered"`
	Remaining    int     `json:"remaining"`
	RecoveryRate float64 `json:"recovery_rate"`
	HaltReason   string  `json:"halt_reason,omitempty"`
}

// CampaignEvent is published for campaign start, every finished phase and
// campaign end. It never carries plaintexts.
type CampaignEvent struct {
	Type       string         `json:"type"`
	CampaignId string         `json:"campaign_id"`
	RequestId  string         `json:"request_id,omitempty"`
	At         time.Time      `json:"at"`
	Remaining  int            `json:"remaining"`
	Phase      *PhaseSummary  `json:"phase,omitempty"`
	Totals     *TotalsSummary `json:"totals,omitempty"`
}
