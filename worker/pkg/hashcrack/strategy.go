package hashcrack

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Emit receives a candidate; returning false stops generation.
type Emit func(candidate string) bool

type Strategy interface {
	Candidates(ctx context.Context, emit Emit) error
}

// Sources are the resources a strategy draws candidates from.
type Sources struct {
	Wordlists []string
	Mask      string
	Rules     string
}

const ctxCheckInterval = 4096

// ticker reports whether the caller should check its context.
type ticker uint64

func (t *ticker) tick() bool {
	*t++
	return uint64(*t)%ctxCheckInterval == 0
}

// eachWord streams the non-empty lines of a wordlist.
func eachWord(ctx context.Context, path string, fn func(word string) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open wordlist")
	}
	defer func() { _ = f.Close() }()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var t ticker
	for scanner.Scan() {
		if t.tick() && ctx.Err() != nil {
			return ctx.Err()
		}
		word := strings.TrimRight(scanner.Text(), "\r")
		if word == "" {
			continue
		}
		if !fn(word) {
			return nil
		}
	}
	return errors.Wrap(scanner.Err(), "read wordlist")
}

func loadWords(ctx context.Context, path string) ([]string, error) {
	var words []string
	err := eachWord(ctx, path, func(word string) bool {
		words = append(words, word)
		return true
	})
	return words, err
}
