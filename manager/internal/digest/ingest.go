package digest

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxLineSize = 1 << 20

type IngestOptions struct {
	// ForceScheme resolves digests whose length matches the scheme, typically
	// md5 or ntlm for the ambiguous 32-hex class.
	ForceScheme Scheme
	Known       KnownCredentials
	// Strict stops at the first malformed line instead of skipping it.
	Strict bool
}

type IngestResult struct {
	Lines        int
	Ignored      int
	Duplicates   int
	Malformed    []*MalformedDigestError
	PreRecovered []Recovered
	// Initial counts distinct well-formed digests, pre-recovered included.
	Initial int
}

func (r *IngestResult) MalformedCount() int {
	return len(r.Malformed)
}

func IngestFile(ctx context.Context, path string, opts IngestOptions) (*Set, *IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open digest file")
	}
	defer func() { _ = f.Close() }()
	return Ingest(ctx, f, opts)
}

func IngestLines(ctx context.Context, lines []string, opts IngestOptions) (*Set, *IngestResult, error) {
	return Ingest(ctx, strings.NewReader(strings.Join(lines, "\n")), opts)
}

func Ingest(ctx context.Context, r io.Reader, opts IngestOptions) (*Set, *IngestResult, error) {
	if opts.ForceScheme != "" && !opts.ForceScheme.IsConcrete() {
		return nil, nil, errors.Wrapf(ErrUnknownScheme, "cannot force scheme %q", opts.ForceScheme)
	}
	l := log.With().Str("domain", "digest").Logger()
	set := NewSet()
	res := &IngestResult{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		res.Lines++
		raw := scanner.Text()
		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, "#") {
			res.Ignored++
			continue
		}
		d, err := parseLine(lineNo, text, opts.ForceScheme)
		if err != nil {
			if opts.Strict {
				return nil, nil, err
			}
			res.Malformed = append(res.Malformed, err)
			continue
		}
		if !set.add(d) {
			res.Duplicates++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "read digest input")
	}
	res.Initial = set.Len()
	if opts.Known != nil {
		pre, err := applyKnown(ctx, set, opts.Known)
		if err != nil {
			return nil, nil, err
		}
		res.PreRecovered = pre
	}
	if len(res.Malformed) > 0 {
		l.Warn().Int("malformed", len(res.Malformed)).Msg("skipped malformed digest lines")
	}
	l.Debug().
		Int("lines", res.Lines).
		Int("digests", res.Initial).
		Int("duplicates", res.Duplicates).
		Int("pre-recovered", len(res.PreRecovered)).
		Msg("digests ingested")
	return set, res, nil
}

func parseLine(lineNo int, text string, force Scheme) (Digest, *MalformedDigestError) {
	identifier := ""
	value := text
	if i := strings.LastIndexByte(text, ':'); i >= 0 {
		identifier = strings.TrimSpace(text[:i])
		value = text[i+1:]
	}
	value = NormalizeValue(value)
	if !isHex(value) {
		return Digest{}, &MalformedDigestError{Line: lineNo, Text: text, Reason: "not a hex digest"}
	}
	scheme, ok := classify(value)
	if !ok {
		return Digest{}, &MalformedDigestError{Line: lineNo, Text: text, Reason: "no scheme has this digest length"}
	}
	if force != "" && force.HexLength() == len(value) {
		scheme = force
	}
	return Digest{
		Scheme:     scheme,
		Value:      value,
		Identifier: identifier,
		SourceLine: text,
	}, nil
}

func applyKnown(ctx context.Context, set *Set, known KnownCredentials) ([]Recovered, error) {
	var pre []Recovered
	for _, d := range set.Digests() {
		plaintext, ok, err := known.Lookup(ctx, d.Value)
		if err != nil {
			return nil, errors.Wrap(err, "known credentials lookup")
		}
		if !ok {
			continue
		}
		pre = append(pre, Recovered{
			Digest:     d,
			Scheme:     d.Scheme,
			Plaintext:  plaintext,
			PhaseIndex: PreRecoveredPhase,
			Source:     SourceKnown,
		})
	}
	values := make([]string, len(pre))
	for i, r := range pre {
		values[i] = r.Digest.Value
	}
	if _, err := set.Remove(values...); err != nil {
		return nil, err
	}
	return pre, nil
}
