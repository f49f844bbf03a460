package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/ykhdr/crack-campaign/common/store/mongo"
	"github.com/ykhdr/crack-campaign/manager/config"
	"github.com/ykhdr/crack-campaign/manager/internal/engine"
	"github.com/ykhdr/crack-campaign/manager/internal/knowncreds"
	"github.com/ykhdr/crack-campaign/manager/internal/phase"
	"github.com/ykhdr/crack-campaign/manager/internal/report"
	"github.com/ykhdr/crack-campaign/manager/internal/store/reportstore"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
)

func loadConfig(cmd *cobra.Command) (*config.ManagerConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.InitializeConfig(path)
}

// deps holds the collaborators shared by run and serve.
type deps struct {
	cfg     *config.ManagerConfig
	db      *mongodriver.Database
	known   knowncreds.Chain
	engine  *engine.Process
	runner  *phase.Runner
	reports reportstore.ReportStore
}

func newDeps(ctx context.Context, cfg *config.ManagerConfig, potfile string) (*deps, error) {
	d := &deps{cfg: cfg}
	if potfile == "" {
		potfile = cfg.CampaignConfig.Potfile
	}
	if potfile != "" {
		pot, err := knowncreds.OpenPotfile(potfile)
		if err != nil {
			return nil, err
		}
		d.known = append(d.known, pot)
	}
	if cfg.MongoDBConfig.Enabled() {
		db, err := mongo.Open(ctx, cfg.MongoDBConfig)
		if err != nil {
			return nil, err
		}
		d.db = db
		d.known = append(d.known, knowncreds.NewMongoStore(db))
		d.reports = reportstore.NewReportStore(db)
	} else {
		d.reports = reportstore.NewMemoryStore()
	}

	process, err := engine.NewProcess(cfg.EngineConfig.ToEngineConfig())
	if err != nil {
		return nil, errors.Wrap(err, "configure engine")
	}
	d.engine = process
	opts := []phase.Option{phase.WithTimeouts(cfg.CampaignConfig.ToTimeouts())}
	if len(d.known) > 0 {
		opts = append(opts, phase.WithKnown(d.known), phase.WithRecorder(d.known))
	}
	d.runner = phase.NewRunner(process, opts...)
	return d, nil
}

// environment probes the engine once and describes the host for reports. A
// failed probe is recorded, not fatal: the first phase reports the engine as
// unavailable.
func (d *deps) environment(ctx context.Context) *report.Environment {
	engineCfg := d.cfg.EngineConfig
	version, err := d.engine.Probe(ctx)
	if err != nil {
		log.Warn().Err(err).Str("binary", engineCfg.Binary).Msg("Engine version probe failed")
	}
	return report.CaptureEnvironment(report.EngineInfo{
		Binary:   engineCfg.Binary,
		Flavor:   engineCfg.Flavor,
		Version:  version,
		ProbeErr: err,
	})
}

func (d *deps) Close() {
	if d.db == nil {
		return
	}
	if err := d.db.Client().Disconnect(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to disconnect from MongoDB")
	}
}
