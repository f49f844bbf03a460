package hashcrack

import (
	"context"

	"github.com/rs/zerolog"
)

type dictionaryStrategy struct {
	l        zerolog.Logger
	wordlist string
	rules    []Rule
}

func newDictionaryStrategy(logger zerolog.Logger, wordlist string, rules []Rule) *dictionaryStrategy {
	name := dictionaryStrategyName
	if rules != nil {
		name = ruleDictionaryStrategyName
	}
	return &dictionaryStrategy{
		wordlist: wordlist,
		rules:    rules,
		l: logger.
			With().
			Str("domain", "hashcrack").
			Str("type", "strategy").
			Str("strategy", name).
			Logger(),
	}
}

func (s *dictionaryStrategy) Candidates(ctx context.Context, emit Emit) error {
	s.l.Debug().
		Str("wordlist", s.wordlist).
		Int("rules", len(s.rules)).
		Msg("reading wordlist")
	return eachWord(ctx, s.wordlist, func(word string) bool {
		if s.rules == nil {
			return emit(word)
		}
		for _, rule := range s.rules {
			if !emit(rule.Apply(word)) {
				return false
			}
		}
		return true
	})
}

type combinatorStrategy struct {
	l           zerolog.Logger
	left, right string
}

func newCombinatorStrategy(logger zerolog.Logger, left, right string) *combinatorStrategy {
	return &combinatorStrategy{
		left:  left,
		right: right,
		l: logger.
			With().
			Str("domain", "hashcrack").
			Str("type", "strategy").
			Str("strategy", combinatorStrategyName).
			Logger(),
	}
}

func (s *combinatorStrategy) Candidates(ctx context.Context, emit Emit) error {
	right, err := loadWords(ctx, s.right)
	if err != nil {
		return err
	}
	s.l.Debug().
		Str("left", s.left).
		Str("right", s.right).
		Int("right-words", len(right)).
		Msg("combining wordlists")
	return eachWord(ctx, s.left, func(word string) bool {
		for _, r := range right {
			if !emit(word + r) {
				return false
			}
		}
		return true
	})
}

type hybridStrategy struct {
	l        zerolog.Logger
	wordlist string
	mask     *Mask
	prefix   bool
}

func newHybridStrategy(logger zerolog.Logger, wordlist string, mask *Mask, prefix bool) *hybridStrategy {
	name := hybridSuffixStrategyName
	if prefix {
		name = hybridPrefixStrategyName
	}
	return &hybridStrategy{
		wordlist: wordlist,
		mask:     mask,
		prefix:   prefix,
		l: logger.
			With().
			Str("domain", "hashcrack").
			Str("type", "strategy").
			Str("strategy", name).
			Logger(),
	}
}

func (s *hybridStrategy) Candidates(ctx context.Context, emit Emit) error {
	total, ok := s.mask.Keyspace()
	if !ok {
		return ErrInvalidMask
	}
	s.l.Debug().
		Str("wordlist", s.wordlist).
		Str("mask", s.mask.String()).
		Msg("hybrid enumeration")
	return eachWord(ctx, s.wordlist, func(word string) bool {
		for i := uint64(0); i < total; i++ {
			candidate := word + s.mask.At(i)
			if s.prefix {
				candidate = s.mask.At(i) + word
			}
			if !emit(candidate) {
				return false
			}
		}
		return true
	})
}
