package report

import (
	"os"
	"runtime"
	"time"
)

// Environment records where a campaign ran, so a report can be reproduced.
type Environment struct {
	EngineBinary  string    `json:"engine_binary" bson:"engine_binary"`
	EngineFlavor  string    `json:"engine_flavor" bson:"engine_flavor"`
	EngineVersion string    `json:"engine_version,omitempty" bson:"engine_version,omitempty"`
	ProbeError    string    `json:"probe_error,omitempty" bson:"probe_error,omitempty"`
	OS            string    `json:"os" bson:"os"`
	Arch          string    `json:"arch" bson:"arch"`
	CPUs          int       `json:"cpus" bson:"cpus"`
	Hostname      string    `json:"hostname,omitempty" bson:"hostname,omitempty"`
	GoVersion     string    `json:"go_version" bson:"go_version"`
	CapturedAt    time.Time `json:"captured_at" bson:"captured_at"`
}

// EngineInfo is what the engine version probe found.
type EngineInfo struct {
	Binary   string
	Flavor   string
	Version  string
	ProbeErr error
}

// CaptureEnvironment describes the current host and the given engine.
func CaptureEnvironment(engine EngineInfo) *Environment {
	env := &Environment{
		EngineBinary:  engine.Binary,
		EngineFlavor:  engine.Flavor,
		EngineVersion: engine.Version,
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		CPUs:          runtime.NumCPU(),
		GoVersion:     runtime.Version(),
		CapturedAt:    time.Now().UTC(),
	}
	if engine.ProbeErr != nil {
		env.ProbeError = engine.ProbeErr.Error()
	}
	if host, err := os.Hostname(); err == nil {
		env.Hostname = host
	}
	return env
}

func (e *Environment) copy() *Environment {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
