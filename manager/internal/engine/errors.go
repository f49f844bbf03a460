package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrAborted is returned when the caller cancels a running invocation. No
// results are returned with it.
var ErrAborted = errors.New("engine invocation aborted")

// EngineUnavailableError means the engine binary could not be started at all.
type EngineUnavailableError struct {
	Binary string
	Err    error
}

func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("engine %q unavailable: %v", e.Binary, e.Err)
}

func (e *EngineUnavailableError) Unwrap() error {
	return e.Err
}

type EngineOutputParseError struct {
	Line int
	Text string
}

func (e *EngineOutputParseError) Error() string {
	return fmt.Sprintf("unparseable engine output on line %d: %q", e.Line, e.Text)
}

// EngineExitError reports an exit code outside the configured success codes.
type EngineExitError struct {
	Code   int
	Stderr string
}

func (e *EngineExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("engine exited with code %d", e.Code)
	}
	return fmt.Sprintf("engine exited with code %d: %s", e.Code, e.Stderr)
}
