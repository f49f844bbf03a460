package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/ykhdr/crack-campaign/common/amqp"
	"github.com/ykhdr/crack-campaign/common/amqp/connection"
	"github.com/ykhdr/crack-campaign/common/amqp/consumer"
	"github.com/ykhdr/crack-campaign/common/amqp/publisher"
	"github.com/ykhdr/crack-campaign/common/consul"
	"github.com/ykhdr/crack-campaign/manager/config"
	"github.com/ykhdr/crack-campaign/manager/internal/campaign"
	"github.com/ykhdr/crack-campaign/manager/internal/dispatcher"
	"github.com/ykhdr/crack-campaign/manager/internal/events"
	"github.com/ykhdr/crack-campaign/manager/internal/server/api"
	"github.com/ykhdr/crack-campaign/manager/pkg/messages"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Accept campaigns over HTTP and AMQP and run them in the background",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd)
		},
	}
}

func serve(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	scheme, err := cfg.CampaignConfig.Scheme()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDeps(ctx, cfg, "")
	if err != nil {
		return err
	}
	defer d.Close()

	notifiers := campaign.Notifiers{events.NewLogger()}
	var (
		amqpConn *connection.Connection
		amqpCh   *connection.Channel
	)
	if cfg.AmqpConfig.Enabled() {
		amqpConn, err = amqp.Dial(ctx, cfg.AmqpConfig)
		if err != nil {
			return errors.Wrap(err, "initialize amqp connection")
		}
		defer func() { _ = amqpConn.Close() }()
		amqpCh, err = amqpConn.Channel(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = amqpCh.Close() }()
	}

	var disp *dispatcher.Dispatcher
	if amqpCh != nil {
		pubCfg := cfg.AmqpConfig.PublisherConfig
		if err := amqp.DeclareExchange(amqpCh, pubCfg.Exchange); err != nil {
			return err
		}
		eventCfg := pubCfg.ToPublisherConfig(nil, "")
		eventCfg.Type = "campaign.event"
		pub := publisher.New[messages.CampaignEvent](amqpCh, eventCfg)
		notifiers = append(notifiers, events.NewPublisher(pub, func(id string) string {
			return disp.RequestID(id)
		}))
	}

	defaults := campaign.Params{ForceScheme: scheme, Strict: cfg.CampaignConfig.Strict}
	if len(d.known) > 0 {
		defaults.Known = d.known
	}
	dispCfg := dispatcherConfig(cfg, defaults)
	dispCfg.Environment = d.environment(ctx)
	disp = dispatcher.NewDispatcher(dispCfg, d.runner, d.reports, notifiers)

	var consulClient consul.Client
	if cfg.ConsulConfig.Enabled() {
		consulClient, err = consul.NewClient(cfg.ConsulConfig)
		if err != nil {
			return errors.Wrap(err, "initialize consul client")
		}
	}
	apiSrv := api.NewServer(cfg.ApiServerAddr, disp, consulClient)

	group, gCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return disp.Start(gCtx)
	})
	group.Go(func() error {
		return apiSrv.Start(gCtx)
	})
	if amqpCh != nil {
		conCfg := cfg.AmqpConfig.ConsumerConfig
		if err := amqp.DeclareQueue(amqpCh, conCfg.Queue, conCfg.Exchange, conCfg.RoutingKey); err != nil {
			return err
		}
		cons := consumer.New[messages.CampaignRequest](
			amqpCh,
			disp.HandleMessage,
			conCfg.ToConsumerConfig(nil, config.ServiceName, false),
		)
		group.Go(func() error {
			cons.Subscribe(gCtx)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Manager stopped")
	return nil
}

func dispatcherConfig(cfg *config.ManagerConfig, defaults campaign.Params) dispatcher.Config {
	return dispatcher.Config{
		QueueSize:       cfg.DispatcherConfig.QueueSize,
		DispatchTimeout: cfg.DispatcherConfig.DispatchTimeout,
		MaxConcurrent:   cfg.DispatcherConfig.MaxConcurrent,
		ReportDir:       cfg.CampaignConfig.ReportDir,
		WriteCSV:        cfg.CampaignConfig.WriteCSV,
		Defaults:        defaults,
	}
}

