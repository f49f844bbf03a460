package api

type ResourceRequest struct {
	Type string `json:"type"`
	Ref  string `json:"ref"`
}

type PhaseRequest struct {
	Name         string            `json:"name,omitempty"`
	Kind         string            `json:"kind"`
	Resources    []ResourceRequest `json:"resources"`
	CostTier     string            `json:"cost_tier"`
	TargetScheme string            `json:"target_scheme,omitempty"`
	// Timeout overrides the tier budget, e.g. "90s".
	Timeout string `json:"timeout,omitempty"`
}

// CampaignRequest submits a campaign. Phases and Plan are alternatives: Plan
// names a plan file readable by the manager.
type CampaignRequest struct {
	Name        string         `json:"name,omitempty"`
	Digests     []string       `json:"digests"`
	ForceScheme string         `json:"force_scheme,omitempty"`
	Strict      bool           `json:"strict,omitempty"`
	Plan        string         `json:"plan,omitempty"`
	Phases      []PhaseRequest `json:"phases,omitempty"`
}

type CampaignResponse struct {
	CampaignId string `json:"campaignId"`
}

type StatusResponse struct {
	CampaignId   string  `json:"campaignId"`
	Status       string  `json:"status"`
	Initial      int     `json:"initial"`
	Recovered    int     `json:"recovered"`
	Remaining    int     `json:"remaining"`
	PhasesDone   int     `json:"phasesDone"`
	PhasesTotal  int     `json:"phasesTotal"`
	RecoveryRate float64 `json:"recoveryRate"`
	ErrorReason  string  `json:"errorReason,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
