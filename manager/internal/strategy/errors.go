package strategy

import (
	"fmt"
)

// InvalidStrategyError names the phase and, when relevant, the resource that
// failed validation.
type InvalidStrategyError struct {
	Index    int
	Name     string
	Resource string
	Reason   string
}

func (e *InvalidStrategyError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("invalid strategy %d (%s): resource %q: %s", e.Index, e.Name, e.Resource, e.Reason)
	}
	return fmt.Sprintf("invalid strategy %d (%s): %s", e.Index, e.Name, e.Reason)
}
