package hashcrack

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type bruteForceStrategy struct {
	l    zerolog.Logger
	mask *Mask
}

func newBruteForceStrategy(logger zerolog.Logger, mask *Mask) *bruteForceStrategy {
	return &bruteForceStrategy{
		mask: mask,
		l: logger.
			With().
			Str("domain", "hashcrack").
			Str("type", "strategy").
			Str("strategy", maskStrategyName).
			Logger(),
	}
}

func (s *bruteForceStrategy) Candidates(ctx context.Context, emit Emit) error {
	total, ok := s.mask.Keyspace()
	if !ok {
		return errors.Wrapf(ErrInvalidMask, "%q: keyspace overflows", s.mask.String())
	}
	s.l.Debug().
		Str("mask", s.mask.String()).
		Uint64("keyspace", total).
		Msg("enumerating mask")
	var t ticker
	for i := uint64(0); i < total; i++ {
		if t.tick() && ctx.Err() != nil {
			return ctx.Err()
		}
		if !emit(s.mask.At(i)) {
			return nil
		}
	}
	return nil
}
