package worker

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/ykhdr/crack-campaign/common/logging"
	"github.com/ykhdr/crack-campaign/worker/pkg/hashcrack"
)

const (
	Name    = "crack-worker"
	Version = "0.3.0"
)

// Exit codes follow hashcat: 0 when something was recovered, 1 when the
// keyspace was exhausted without a hit.
const (
	ExitCracked   = 0
	ExitExhausted = 1
	ExitError     = 2
)

var ErrExhausted = errors.New("exhausted")

type crackFlags struct {
	algorithm string
	attack    string
	targets   string
	wordlists []string
	mask      string
	rules     string
	logLevel  string
}

// Main runs the worker command line and returns the process exit code.
func Main(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewCommand(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitCracked
	case errors.Is(err, ErrExhausted):
		return ExitExhausted
	default:
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", Name, err)
		return ExitError
	}
}

func NewCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "worker",
		Short:         "Reference cracking engine emitting digest:plaintext pairs",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newVersionCommand(), newCrackCommand(stdout, stderr))
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the engine version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", Name, Version)
			return err
		},
	}
}

func newCrackCommand(stdout, stderr io.Writer) *cobra.Command {
	f := &crackFlags{}
	cmd := &cobra.Command{
		Use:   "crack",
		Short: "Recover plaintexts for a target digest file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.SetupWriter(logging.ParseLevel(f.logLevel), stderr)
			return runCrack(cmd.Context(), f, stdout)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.algorithm, "algorithm", string(hashcrack.MD5), "digest algorithm")
	flags.StringVar(&f.attack, "attack", "dictionary", "attack strategy")
	flags.StringVar(&f.targets, "targets", "", "file with one target digest per line")
	flags.StringArrayVar(&f.wordlists, "wordlist", nil, "wordlist path, repeat for combinator")
	flags.StringVar(&f.mask, "mask", "", "hashcat-style mask")
	flags.StringVar(&f.rules, "rules", "", "rules file")
	flags.StringVar(&f.logLevel, "log-level", "warn", "log level")
	_ = cmd.MarkFlagRequired("targets")
	return cmd
}

func runCrack(ctx context.Context, f *crackFlags, stdout io.Writer) error {
	algorithm, err := hashcrack.ParseAlgorithm(f.algorithm)
	if err != nil {
		return err
	}
	strategyType := hashcrack.ParseStrategyName(f.attack)
	strategy, err := hashcrack.NewStrategy(strategyType, hashcrack.Sources{
		Wordlists: f.wordlists,
		Mask:      f.mask,
		Rules:     f.rules,
	})
	if err != nil {
		return errors.Wrapf(err, "attack %q", f.attack)
	}
	targets, err := hashcrack.LoadTargets(f.targets)
	if err != nil {
		return err
	}
	res, err := hashcrack.Crack(ctx, hashcrack.Job{
		Algorithm: algorithm,
		Strategy:  strategy,
		Targets:   targets,
	}, stdout)
	if err != nil {
		return err
	}
	if res.Found == 0 {
		return ErrExhausted
	}
	return nil
}
