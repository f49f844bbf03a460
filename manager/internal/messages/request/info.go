package request

import (
	"time"
)

type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReady      Status = "READY"
	StatusStopped    Status = "STOPPED"
	StatusError      Status = "ERROR"
)

func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusStopped || s == StatusError
}

type Id string

// Info is the live view of a submitted campaign.
type Info struct {
	ID          Id
	Name        string
	Status      Status
	CreatedAt   time.Time
	Initial     int
	Recovered   int
	Remaining   int
	PhasesDone  int
	PhasesTotal int
	ErrorReason string
	ReportPath  string
}

func (r *Info) Copy() *Info {
	c := *r
	return &c
}

func (r *Info) RecoveryRate() float64 {
	if r.Initial == 0 {
		return 0
	}
	return float64(r.Recovered) / float64(r.Initial)
}
