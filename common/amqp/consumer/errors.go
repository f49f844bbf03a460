package consumer

import "github.com/pkg/errors"

var errPanic = errors.New("handler panicked")
