package engine

import (
	"bytes"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
)

const maxLineSize = 1 << 20

var errBadPair = errors.New("not a digest:plaintext pair")

// ParseLine splits one engine output line. The digest is everything before
// the first ':' and must be hex of a known length, case-insensitive. Hashcat's
// $HEX[...] plaintext encoding is decoded.
func ParseLine(line string) (value, plaintext string, err error) {
	line = strings.TrimRight(line, " \t\r")
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", errBadPair
	}
	value = strings.ToLower(line[:idx])
	if !digest.WellFormed(value) {
		return "", "", errors.Wrapf(errBadPair, "bad digest %q", line[:idx])
	}
	plaintext, err = digest.DecodePlaintext(line[idx+1:])
	if err != nil {
		return "", "", errors.Wrap(errBadPair, err.Error())
	}
	return value, plaintext, nil
}

// collector parses stdout as it streams. The first bad line is recorded and
// onBad is called once so the caller can stop the engine.
type collector struct {
	mu        sync.Mutex
	view      digest.View
	phase     int
	buf       []byte
	lineNo    int
	seen      map[string]struct{}
	recovered []digest.Recovered
	ignored   int
	parseErr  *EngineOutputParseError
	onBad     func()
}

func newCollector(view digest.View, phase int, onBad func()) *collector {
	return &collector{
		view:  view,
		phase: phase,
		seen:  make(map[string]struct{}),
		onBad: onBad,
	}
}

func (c *collector) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.parseErr != nil {
		return len(p), nil
	}
	c.buf = append(c.buf, p...)
	for c.parseErr == nil {
		i := bytes.IndexByte(c.buf, '\n')
		if i < 0 {
			break
		}
		line := string(c.buf[:i])
		c.buf = c.buf[i+1:]
		c.consume(line)
	}
	if c.parseErr == nil && len(c.buf) > maxLineSize {
		c.fail(string(c.buf[:64]) + "...")
	}
	return len(p), nil
}

// finish parses a trailing line without a newline. Truncated output from a
// stopped engine is dropped instead.
func (c *collector) finish(complete bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if complete && c.parseErr == nil && len(bytes.TrimSpace(c.buf)) > 0 {
		c.consume(string(c.buf))
	}
	c.buf = nil
}

func (c *collector) consume(line string) {
	c.lineNo++
	if strings.TrimSpace(line) == "" {
		return
	}
	value, plaintext, err := ParseLine(line)
	if err != nil {
		c.fail(line)
		return
	}
	d, ok := c.view.Lookup(value)
	if !ok {
		c.ignored++
		return
	}
	if _, dup := c.seen[value]; dup {
		return
	}
	c.seen[value] = struct{}{}
	c.recovered = append(c.recovered, digest.Recovered{
		Digest:     d,
		Scheme:     c.view.Scheme(),
		Plaintext:  plaintext,
		PhaseIndex: c.phase,
		Source:     digest.SourceEngine,
	})
}

func (c *collector) fail(text string) {
	c.parseErr = &EngineOutputParseError{Line: c.lineNo, Text: strings.TrimRight(text, " \t\r")}
	c.buf = nil
	if c.onBad != nil {
		c.onBad()
	}
}

func (c *collector) results() ([]digest.Recovered, int, *EngineOutputParseError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recovered, c.ignored, c.parseErr
}

// tail keeps the last bytes written, for error messages.
type tail struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
