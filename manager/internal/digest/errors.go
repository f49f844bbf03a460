package digest

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrFrozen = errors.New("digest set is frozen")

type MalformedDigestError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedDigestError) Error() string {
	return fmt.Sprintf("malformed digest on line %d (%q): %s", e.Line, e.Text, e.Reason)
}
