package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultWaitDelay    = 5 * time.Second
	defaultProbeTimeout = 10 * time.Second
	stderrTailSize      = 512
)

// DefaultSuccessExitCodes are hashcat's "cracked" and "exhausted" codes.
var DefaultSuccessExitCodes = []int{0, 1}

type Config struct {
	Binary string
	Flavor Flavor
	// ExtraArgs are appended after the generated arguments.
	ExtraArgs []string
	// WorkDir receives the per-invocation target files.
	WorkDir string
	// ArtifactDir receives raw stdout/stderr. Empty disables artifacts.
	ArtifactDir      string
	SuccessExitCodes []int
	// WaitDelay bounds how long output pipes are drained after the engine is
	// stopped.
	WaitDelay time.Duration
	// ArtifactQueue is the backlog, in chunks, past which a slow artifact
	// writer is reported. Output is kept in full either way.
	ArtifactQueue int
	// Env is appended to the inherited environment.
	Env []string
}

// Process runs the engine as a subprocess per invocation.
type Process struct {
	cfg     Config
	args    ArgBuilder
	success map[int]struct{}
	l       zerolog.Logger
}

func NewProcess(cfg Config) (*Process, error) {
	if cfg.Binary == "" {
		return nil, errors.New("engine binary is not configured")
	}
	builder, err := NewArgBuilder(cfg.Flavor)
	if err != nil {
		return nil, err
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "crack-campaign")
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = defaultWaitDelay
	}
	codes := cfg.SuccessExitCodes
	if len(codes) == 0 {
		codes = DefaultSuccessExitCodes
	}
	success := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		success[c] = struct{}{}
	}
	return &Process{
		cfg:     cfg,
		args:    builder,
		success: success,
		l: log.With().
			Str("domain", "engine").
			Str("binary", cfg.Binary).
			Logger(),
	}, nil
}

func phaseFileBase(dir string, inv Invocation) string {
	return filepath.Join(dir, inv.CampaignID, fmt.Sprintf("phase-%03d-%s", inv.PhaseIndex, inv.View.Scheme()))
}

func (p *Process) Run(ctx context.Context, inv Invocation) (*Result, error) {
	l := p.l.With().
		Str("campaign-id", inv.CampaignID).
		Int("phase", inv.PhaseIndex).
		Str("scheme", inv.View.Scheme().String()).
		Logger()

	if inv.View.Len() == 0 {
		return &Result{}, nil
	}
	if ctx.Err() != nil {
		return nil, ErrAborted
	}

	targets, err := p.writeTargets(inv)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(targets) }()

	args, err := p.args.Build(inv.View.Scheme(), inv.Strategy, targets)
	if err != nil {
		return nil, errors.Wrap(err, "build engine arguments")
	}
	args = append(args, p.cfg.ExtraArgs...)

	var artifactBase string
	if p.cfg.ArtifactDir != "" {
		artifactBase = phaseFileBase(p.cfg.ArtifactDir, inv)
	}
	artifacts, err := openArtifacts(artifactBase, p.cfg.ArtifactQueue)
	if err != nil {
		return nil, err
	}

	procCtx, stop := context.WithCancel(context.Background())
	defer stop()

	cmd := exec.CommandContext(procCtx, p.cfg.Binary, args...)
	cmd.Env = append(os.Environ(), p.cfg.Env...)
	cmd.WaitDelay = p.cfg.WaitDelay
	out := newCollector(inv.View, inv.PhaseIndex, stop)
	stderrTail := &tail{max: stderrTailSize}
	cmd.Stdout = io.MultiWriter(out, artifacts.Stdout())
	cmd.Stderr = io.MultiWriter(stderrTail, artifacts.Stderr())

	l.Debug().Strs("args", args).Int("targets", inv.View.Len()).Msg("starting engine")
	started := time.Now()
	if err := cmd.Start(); err != nil {
		artifacts.Close(l)
		return nil, &EngineUnavailableError{Binary: p.cfg.Binary, Err: err}
	}

	timedOut, aborted, waitErr := p.wait(ctx, cmd, inv.Timeout, stop)
	out.finish(!timedOut && !aborted)
	artifacts.Close(l)
	elapsed := time.Since(started)

	if aborted {
		l.Warn().Dur("elapsed", elapsed).Msg("engine aborted")
		return nil, ErrAborted
	}

	recovered, ignored, parseErr := out.results()
	if parseErr != nil {
		l.Warn().Int("line", parseErr.Line).Msg("engine output rejected")
		return nil, parseErr
	}
	if ignored > 0 {
		l.Warn().Int("ignored", ignored).Msg("engine reported digests outside the view")
	}

	res := &Result{
		Recovered: recovered,
		TimedOut:  timedOut,
		Ignored:   ignored,
		ExitCode:  exitCode(cmd, waitErr),
		Elapsed:   elapsed,
	}
	if timedOut {
		l.Info().Int("recovered", len(recovered)).Dur("elapsed", elapsed).Msg("engine timed out, keeping partial results")
		return res, nil
	}
	if waitErr != nil && !errors.Is(waitErr, exec.ErrWaitDelay) {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, errors.Wrap(waitErr, "wait for engine")
		}
	}
	if _, ok := p.success[res.ExitCode]; !ok {
		return nil, &EngineExitError{Code: res.ExitCode, Stderr: stderrTail.String()}
	}
	l.Info().
		Int("recovered", len(recovered)).
		Int("exit-code", res.ExitCode).
		Dur("elapsed", elapsed).
		Msg("engine finished")
	return res, nil
}

// wait blocks until the engine exits, the invocation times out or the caller
// cancels. The latter two stop the process and still wait for it to exit.
func (p *Process) wait(ctx context.Context, cmd *exec.Cmd, timeout time.Duration, stop context.CancelFunc) (timedOut, aborted bool, err error) {
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case err = <-done:
		return false, false, err
	case <-expired:
		stop()
		return true, false, <-done
	case <-ctx.Done():
		stop()
		return false, true, <-done
	}
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func (p *Process) writeTargets(inv Invocation) (string, error) {
	path := phaseFileBase(p.cfg.WorkDir, inv) + ".targets"
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", errors.Wrap(err, "create work dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return "", errors.Wrap(err, "create targets file")
	}
	w := bufio.NewWriter(f)
	for _, v := range inv.View.Values() {
		_, _ = w.WriteString(v)
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return "", errors.Wrap(err, "write targets file")
	}
	return path, errors.Wrap(f.Close(), "close targets file")
}

// Probe runs the engine's version command and returns its first output line.
func (p *Process) Probe(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, p.cfg.Binary, p.args.VersionArgs()...)
	cmd.Env = append(os.Environ(), p.cfg.Env...)
	cmd.Stdout = &stdout
	cmd.WaitDelay = p.cfg.WaitDelay
	if err := cmd.Start(); err != nil {
		return "", &EngineUnavailableError{Binary: p.cfg.Binary, Err: err}
	}
	if err := cmd.Wait(); err != nil {
		return "", errors.Wrap(err, "engine version probe")
	}
	version, _, _ := strings.Cut(strings.TrimSpace(stdout.String()), "\n")
	p.l.Debug().Str("version", version).Msg("engine probed")
	return version, nil
}

var _ Adapter = (*Process)(nil)
