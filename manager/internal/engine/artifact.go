package engine

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const artifactQueueDepth = 1024

// artifact copies engine output to a file from its own goroutine. Write never
// blocks and never drops: chunks the disk has not caught up with stay buffered
// in memory, in order, until drain writes them.
type artifact struct {
	path  string
	f     *os.File
	depth int
	wake  chan struct{}
	done  chan struct{}
	err   error

	m       sync.Mutex
	pending [][]byte
	peak    int
	closed  bool
}

func openArtifact(path string, depth int) (*artifact, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create artifact dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create artifact")
	}
	if depth <= 0 {
		depth = artifactQueueDepth
	}
	a := &artifact{
		path:  path,
		f:     f,
		depth: depth,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go a.drain()
	return a, nil
}

func (a *artifact) drain() {
	defer close(a.done)
	for range a.wake {
		for {
			a.m.Lock()
			batch := a.pending
			a.pending = nil
			closed := a.closed
			a.m.Unlock()
			for _, chunk := range batch {
				if a.err != nil {
					break
				}
				if _, err := a.f.Write(chunk); err != nil {
					a.err = err
				}
			}
			if len(batch) == 0 {
				if closed {
					return
				}
				break
			}
		}
	}
}

func (a *artifact) Write(p []byte) (int, error) {
	chunk := make([]byte, len(p))
	copy(chunk, p)
	a.m.Lock()
	a.pending = append(a.pending, chunk)
	if n := len(a.pending); n > a.peak {
		a.peak = n
	}
	a.m.Unlock()
	a.signal()
	return len(p), nil
}

func (a *artifact) signal() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Close flushes buffered chunks and closes the file. It must not race with
// Write.
func (a *artifact) Close(l zerolog.Logger) error {
	a.m.Lock()
	a.closed = true
	peak := a.peak
	a.m.Unlock()
	a.signal()
	<-a.done
	if peak > a.depth {
		l.Warn().Str("artifact", a.path).Int("peak-backlog", peak).Msg("artifact writer fell behind")
	}
	closeErr := a.f.Close()
	if a.err != nil {
		return errors.Wrapf(a.err, "write artifact %s", a.path)
	}
	return closeErr
}

// artifactPair bundles stdout and stderr sinks. Without an artifact dir both
// sinks discard.
type artifactPair struct {
	stdout, stderr *artifact
}

func openArtifacts(base string, depth int) (*artifactPair, error) {
	if base == "" {
		return &artifactPair{}, nil
	}
	stdout, err := openArtifact(base+".stdout.log", depth)
	if err != nil {
		return nil, err
	}
	stderr, err := openArtifact(base+".stderr.log", depth)
	if err != nil {
		_ = stdout.Close(zerolog.Nop())
		return nil, err
	}
	return &artifactPair{stdout: stdout, stderr: stderr}, nil
}

func (p *artifactPair) Stdout() io.Writer {
	if p.stdout == nil {
		return io.Discard
	}
	return p.stdout
}

func (p *artifactPair) Stderr() io.Writer {
	if p.stderr == nil {
		return io.Discard
	}
	return p.stderr
}

func (p *artifactPair) Close(l zerolog.Logger) {
	for _, a := range []*artifact{p.stdout, p.stderr} {
		if a == nil {
			continue
		}
		if err := a.Close(l); err != nil {
			l.Warn().Err(err).Msg("failed to close artifact")
		}
	}
}
