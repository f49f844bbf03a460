package knowncreds

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
)

// Potfile is a hashcat-compatible "digest:plaintext" file. It is read once at
// open and appended to on Record.
type Potfile struct {
	path string
	mem  *Memory
	m    sync.Mutex
	l    zerolog.Logger
}

func OpenPotfile(path string) (*Potfile, error) {
	p := &Potfile{
		path: path,
		mem:  NewMemory(),
		l: log.With().
			Str("domain", "knowncreds").
			Str("potfile", path).
			Logger(),
	}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Potfile) load() error {
	f, err := os.Open(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "open potfile")
	}
	defer func() { _ = f.Close() }()
	skipped := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		value, plaintext, ok := strings.Cut(line, ":")
		value = digest.NormalizeValue(value)
		if !ok || !digest.WellFormed(value) {
			skipped++
			continue
		}
		if plaintext, err = digest.DecodePlaintext(plaintext); err != nil {
			skipped++
			continue
		}
		p.mem.Put(value, plaintext)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read potfile")
	}
	p.l.Debug().Int("loaded", p.mem.Len()).Int("skipped", skipped).Msg("potfile loaded")
	return nil
}

func (p *Potfile) Lookup(ctx context.Context, value string) (string, bool, error) {
	return p.mem.Lookup(ctx, value)
}

func (p *Potfile) Record(_ context.Context, recovered []digest.Recovered) error {
	p.m.Lock()
	defer p.m.Unlock()
	var lines []string
	for _, r := range recovered {
		if p.mem.Put(r.Digest.Value, r.Plaintext) {
			lines = append(lines, r.PotLine())
		}
	}
	if len(lines) == 0 {
		return nil
	}
	f, err := os.OpenFile(p.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return errors.Wrap(err, "open potfile")
	}
	if _, err := f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "append potfile")
	}
	return errors.Wrap(f.Close(), "close potfile")
}

func (p *Potfile) Len() int {
	return p.mem.Len()
}
