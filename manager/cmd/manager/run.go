package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/ykhdr/crack-campaign/manager/internal/campaign"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/manager/internal/events"
	"github.com/ykhdr/crack-campaign/manager/internal/report"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
)

type runFlags struct {
	digests     string
	plan        string
	wordlists   []string
	masks       []string
	report      string
	csv         bool
	forceScheme string
	strict      bool
	potfile     string
	plain       bool
}

func newRunCommand() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one campaign in the foreground and write its report",
		Long: "Run one campaign in the foreground. The first interrupt stops the campaign " +
			"after the running phase, a second one cancels the running phase.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCampaign(cmd, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.digests, "digests", "", "file with one digest per line")
	flags.StringVar(&f.plan, "plan", "", "YAML strategy plan")
	flags.StringArrayVar(&f.wordlists, "wordlist", nil, "add a dictionary phase, repeatable")
	flags.StringArrayVar(&f.masks, "mask", nil, "add a mask phase, repeatable")
	flags.StringVar(&f.report, "report", "", "report path (default <report-dir>/campaign_<id>_<time>.json)")
	flags.BoolVar(&f.csv, "csv", false, "also write a CSV phase summary")
	flags.StringVar(&f.forceScheme, "force-scheme", "", "treat every digest as this scheme")
	flags.BoolVar(&f.strict, "strict", false, "reject the digest file on the first malformed line")
	flags.StringVar(&f.potfile, "potfile", "", "known credentials file")
	flags.BoolVar(&f.plain, "plain", false, "print the summary as plain markdown")
	_ = cmd.MarkFlagRequired("digests")
	return cmd
}

func (f *runFlags) strategies() []strategy.Descriptor {
	var phases []strategy.Descriptor
	for _, w := range f.wordlists {
		phases = append(phases, strategy.Dictionary(filepath.Base(w), w, strategy.TierFast))
	}
	for _, m := range f.masks {
		phases = append(phases, strategy.MaskAttack(m, m, strategy.TierMedium))
	}
	return phases
}

func (f *runFlags) params(cfg *campaignDefaults) (campaign.Params, error) {
	p := campaign.Params{
		DigestFile:  f.digests,
		PlanFile:    f.plan,
		Strategies:  f.strategies(),
		ForceScheme: cfg.scheme,
		Strict:      cfg.strict || f.strict,
	}
	if f.plan != "" && len(p.Strategies) > 0 {
		return p, errors.New("--plan cannot be combined with --wordlist or --mask")
	}
	if f.forceScheme != "" {
		scheme, err := digest.ParseScheme(f.forceScheme)
		if err != nil {
			return p, err
		}
		p.ForceScheme = scheme
	}
	return p, nil
}

type campaignDefaults struct {
	scheme digest.Scheme
	strict bool
}

func runCampaign(cmd *cobra.Command, f *runFlags) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	scheme, err := cfg.CampaignConfig.Scheme()
	if err != nil {
		return err
	}
	params, err := f.params(&campaignDefaults{scheme: scheme, strict: cfg.CampaignConfig.Strict})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	d, err := newDeps(ctx, cfg, f.potfile)
	if err != nil {
		return err
	}
	defer d.Close()
	if len(d.known) > 0 {
		params.Known = d.known
	}

	c, err := campaign.Prepare(ctx, params)
	if err != nil {
		return err
	}
	go handleSignals(ctx, c, cancel)

	orchestrator := campaign.NewOrchestrator(d.runner,
		campaign.WithNotifier(events.NewLogger()),
		campaign.WithEnvironment(d.environment(ctx)),
	)
	rep, err := orchestrator.Run(ctx, c)
	if err != nil {
		return err
	}

	doc := rep.Document()
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer saveCancel()
	if err := d.reports.Save(saveCtx, doc); err != nil {
		log.Warn().Err(err).Msg("Failed to save report")
	}
	path := f.report
	if path == "" {
		path = filepath.Join(cfg.CampaignConfig.ReportDir, report.DefaultFileName(c.ID, time.Now()))
	}
	if err := rep.WriteJSON(path); err != nil {
		return err
	}
	if f.csv || cfg.CampaignConfig.WriteCSV {
		if err := rep.WriteCSV(strings.TrimSuffix(path, filepath.Ext(path)) + ".csv"); err != nil {
			return err
		}
	}
	log.Info().Str("path", path).Msg("Report written")
	return printSummary(cmd, rep, f.plain)
}

// handleSignals turns the first interrupt into a graceful stop and the second
// into a cancellation of the running phase.
func handleSignals(ctx context.Context, c *campaign.Campaign, cancel context.CancelFunc) {
	sigC := make(chan os.Signal, 2)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigC)
	stopping := false
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigC:
			if !stopping {
				stopping = true
				log.Warn().Str("signal", sig.String()).Msg("Stopping after the running phase, interrupt again to cancel it")
				c.Stop()
				continue
			}
			log.Warn().Str("signal", sig.String()).Msg("Cancelling the running phase")
			cancel()
			return
		}
	}
}

func printSummary(cmd *cobra.Command, rep *report.Report, plain bool) error {
	summary := rep.Markdown()
	if !plain {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			if out, err := renderer.Render(summary); err == nil {
				summary = out
			}
		}
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), summary)
	return err
}
