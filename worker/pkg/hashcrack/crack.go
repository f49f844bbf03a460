package hashcrack

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Job struct {
	Algorithm Algorithm
	Strategy  Strategy
	Targets   []string
}

type CrackResult struct {
	Found     int
	Tested    uint64
	Remaining int
}

// Crack runs the strategy's candidates against the targets and writes one
// "digest:plaintext" line to out per recovered target. It stops early once
// every target is found or ctx is done.
func Crack(ctx context.Context, job Job, out io.Writer) (*CrackResult, error) {
	hasher, err := job.Algorithm.Hasher()
	if err != nil {
		return nil, err
	}
	l := log.With().
		Str("domain", "hashcrack").
		Str("algorithm", string(job.Algorithm)).
		Logger()
	remaining := make(map[string]struct{}, len(job.Targets))
	for _, t := range job.Targets {
		remaining[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	w := bufio.NewWriter(out)
	res := &CrackResult{}
	var writeErr error
	var t ticker
	err = job.Strategy.Candidates(ctx, func(candidate string) bool {
		if t.tick() && ctx.Err() != nil {
			return false
		}
		res.Tested++
		sum := hasher(candidate)
		if _, ok := remaining[sum]; !ok {
			return true
		}
		delete(remaining, sum)
		res.Found++
		l.Debug().Str("digest", sum).Msg("found word")
		if _, writeErr = fmt.Fprintf(w, "%s:%s\n", sum, candidate); writeErr != nil {
			return false
		}
		// flush per hit so a stopped process still leaves its results behind
		if writeErr = w.Flush(); writeErr != nil {
			return false
		}
		return len(remaining) > 0
	})
	res.Remaining = len(remaining)
	if writeErr != nil {
		return res, errors.Wrap(writeErr, "write result")
	}
	if err != nil {
		return res, err
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}

func LoadTargets(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open targets")
	}
	defer func() { _ = f.Close() }()
	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		targets = append(targets, strings.ToLower(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read targets")
	}
	return targets, nil
}
