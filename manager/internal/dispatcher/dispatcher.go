package dispatcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crack-campaign/manager/internal/campaign"
	"github.com/ykhdr/crack-campaign/manager/internal/messages/request"
	"github.com/ykhdr/crack-campaign/manager/internal/phase"
	"github.com/ykhdr/crack-campaign/manager/internal/report"
	"github.com/ykhdr/crack-campaign/manager/internal/store/reportstore"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
	"github.com/ykhdr/crack-campaign/manager/pkg/api"
	"github.com/ykhdr/crack-campaign/manager/pkg/messages"
	"golang.org/x/sync/errgroup"
)

const defaultDispatchTimeout = 5 * time.Second

var (
	ErrorQueueFull        = errors.New("campaign queue is full")
	ErrorNotFound         = errors.New("campaign not found")
	ErrorAlreadyFinished  = errors.New("campaign already finished")
	ErrorNotFinished      = errors.New("campaign has not finished yet")
	ErrorDispatcherClosed = errors.New("dispatcher is not running")
)

type Config struct {
	QueueSize       int
	DispatchTimeout time.Duration
	MaxConcurrent   int
	// ReportDir receives the JSON report, and the CSV summary when WriteCSV
	// is set. Empty keeps reports in the store only.
	ReportDir string
	WriteCSV  bool
	// Defaults apply to every submitted campaign.
	Defaults campaign.Params
	// Environment is stamped on every report.
	Environment *report.Environment
}

type entry struct {
	info      *request.Info
	campaign  *campaign.Campaign
	requestID string
}

// Dispatcher queues submitted campaigns and runs them in the background.
type Dispatcher struct {
	l            zerolog.Logger
	cfg          Config
	queue        chan *campaign.Campaign
	orchestrator *campaign.Orchestrator
	reports      reportstore.ReportStore

	m       sync.RWMutex
	entries map[request.Id]*entry
}

func NewDispatcher(
	cfg Config,
	runner *phase.Runner,
	reports reportstore.ReportStore,
	notifier campaign.Notifier,
) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = defaultDispatchTimeout
	}
	d := &Dispatcher{
		cfg:     cfg,
		queue:   make(chan *campaign.Campaign, cfg.QueueSize),
		reports: reports,
		entries: make(map[request.Id]*entry),
		l: log.With().
			Str("domain", "dispatcher").
			Logger(),
	}
	notifiers := campaign.Notifiers{campaign.NotifierFunc(d.progress)}
	if notifier != nil {
		notifiers = append(notifiers, notifier)
	}
	d.orchestrator = campaign.NewOrchestrator(runner,
		campaign.WithNotifier(notifiers),
		campaign.WithEnvironment(cfg.Environment),
	)
	return d
}

// Start runs queued campaigns until ctx is done, at most MaxConcurrent at a
// time. Running campaigns are cancelled with ctx and finish with an aborted
// report.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.l.Info().Int("max-concurrent", d.cfg.MaxConcurrent).Msg("Dispatcher is running")
	group, gCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.cfg.MaxConcurrent)
	for {
		select {
		case c := <-d.queue:
			group.Go(func() error {
				d.run(gCtx, c)
				return nil
			})
		case <-ctx.Done():
			_ = group.Wait()
			d.l.Info().Msg("Dispatcher stopped")
			return nil
		}
	}
}

// Submit prepares and validates a campaign, then queues it. Invalid requests
// are rejected here so the caller sees the error.
func (d *Dispatcher) Submit(ctx context.Context, req *api.CampaignRequest, requestID string) (request.Id, error) {
	params, err := toParams(req, d.cfg.Defaults)
	if err != nil {
		return "", err
	}
	c, err := campaign.Prepare(ctx, params)
	if err != nil {
		return "", err
	}
	if err := strategy.ValidateAll(c.Strategies); err != nil {
		return "", err
	}
	id := request.Id(c.ID)
	e := &entry{
		campaign:  c,
		requestID: requestID,
		info: &request.Info{
			ID:          id,
			Name:        c.Name,
			Status:      request.StatusNew,
			CreatedAt:   c.CreatedAt,
			Initial:     c.Ingest.Initial,
			Recovered:   len(c.Ingest.PreRecovered),
			Remaining:   c.Set.Len(),
			PhasesTotal: len(c.Strategies),
		},
	}
	d.m.Lock()
	d.entries[id] = e
	d.m.Unlock()

	timer := time.NewTimer(d.cfg.DispatchTimeout)
	defer timer.Stop()
	select {
	case d.queue <- c:
		d.l.Info().Str("campaign-id", c.ID).Str("request-id", requestID).Msg("Campaign queued")
		return id, nil
	case <-timer.C:
		d.forget(id)
		return "", ErrorQueueFull
	case <-ctx.Done():
		d.forget(id)
		return "", ctx.Err()
	}
}

// HandleMessage is the AMQP intake for campaign requests.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *messages.CampaignRequest, delivery amqp.Delivery) error {
	requestID := msg.RequestId
	if requestID == "" {
		requestID = delivery.MessageId
	}
	id, err := d.Submit(ctx, &msg.Campaign, requestID)
	if err != nil {
		d.l.Warn().Err(err).Str("request-id", requestID).Msg("Rejected campaign request")
		return err
	}
	d.l.Debug().Str("request-id", requestID).Any("campaign-id", id).Msg("Accepted campaign request")
	return nil
}

// Stop asks a queued or running campaign to halt after its current phase.
func (d *Dispatcher) Stop(id request.Id) error {
	d.m.Lock()
	defer d.m.Unlock()
	e, ok := d.entries[id]
	if !ok {
		return ErrorNotFound
	}
	if e.info.Status.Terminal() {
		return ErrorAlreadyFinished
	}
	e.campaign.Stop()
	d.l.Info().Any("campaign-id", id).Msg("Campaign stop requested")
	return nil
}

func (d *Dispatcher) Status(id request.Id) (*request.Info, error) {
	d.m.RLock()
	defer d.m.RUnlock()
	e, ok := d.entries[id]
	if !ok {
		return nil, ErrorNotFound
	}
	return e.info.Copy(), nil
}

// Report returns the stored report document. A campaign that is still queued
// or running has none yet and yields ErrorNotFinished.
func (d *Dispatcher) Report(ctx context.Context, id request.Id) (*report.Document, error) {
	doc, err := d.reports.Get(ctx, string(id))
	if !errors.Is(err, reportstore.NotFoundErr) {
		return doc, err
	}
	d.m.RLock()
	e, ok := d.entries[id]
	pending := ok && !e.info.Status.Terminal()
	d.m.RUnlock()
	if pending {
		return nil, ErrorNotFinished
	}
	return nil, ErrorNotFound
}

// RequestID returns the intake request id of a campaign, if any.
func (d *Dispatcher) RequestID(campaignID string) string {
	d.m.RLock()
	defer d.m.RUnlock()
	if e, ok := d.entries[request.Id(campaignID)]; ok {
		return e.requestID
	}
	return ""
}

func (d *Dispatcher) forget(id request.Id) {
	d.m.Lock()
	defer d.m.Unlock()
	delete(d.entries, id)
}

func (d *Dispatcher) update(id request.Id, fn func(info *request.Info)) {
	d.m.Lock()
	defer d.m.Unlock()
	if e, ok := d.entries[id]; ok {
		fn(e.info)
	}
}

func (d *Dispatcher) progress(_ context.Context, e campaign.Event) {
	id := request.Id(e.CampaignID)
	d.update(id, func(info *request.Info) {
		info.Remaining = e.Remaining
		switch e.Type {
		case campaign.EventStarted:
			info.Status = request.StatusInProgress
		case campaign.EventPhaseFinished:
			info.PhasesDone++
			if e.Phase != nil {
				info.Recovered += e.Phase.RecoveredCount
			}
		}
	})
}

func (d *Dispatcher) run(ctx context.Context, c *campaign.Campaign) {
	id := request.Id(c.ID)
	l := d.l.With().Str("campaign-id", c.ID).Logger()
	d.update(id, func(info *request.Info) {
		info.Status = request.StatusInProgress
	})

	rep, err := d.orchestrator.Run(ctx, c)
	if err != nil {
		l.Error().Err(err).Msg("Campaign failed")
		d.update(id, func(info *request.Info) {
			info.Status = request.StatusError
			info.ErrorReason = err.Error()
		})
		return
	}

	doc := rep.Document()
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := d.reports.Save(saveCtx, doc); err != nil {
		l.Warn().Err(err).Msg("Failed to save report")
	}
	reportPath := d.writeFiles(rep, l)

	d.update(id, func(info *request.Info) {
		info.ReportPath = reportPath
		info.PhasesDone = len(doc.Phases)
		if doc.Totals != nil {
			info.Recovered = doc.Totals.CumulativeRecovered + doc.Totals.PreRecovered
			info.Remaining = doc.Totals.Remaining
		}
		info.Status = request.StatusReady
		if doc.HaltReason != "" {
			info.Status = request.StatusStopped
			info.ErrorReason = doc.HaltReason
		}
	})
}

func (d *Dispatcher) writeFiles(rep *report.Report, l zerolog.Logger) string {
	if d.cfg.ReportDir == "" {
		return ""
	}
	path := filepath.Join(d.cfg.ReportDir, report.DefaultFileName(rep.CampaignID(), time.Now()))
	if err := rep.WriteJSON(path); err != nil {
		l.Warn().Err(err).Str("path", path).Msg("Failed to write report")
		return ""
	}
	if d.cfg.WriteCSV {
		csvPath := path[:len(path)-len(filepath.Ext(path))] + ".csv"
		if err := rep.WriteCSV(csvPath); err != nil {
			l.Warn().Err(err).Str("path", csvPath).Msg("Failed to write csv summary")
		}
	}
	l.Info().Str("path", path).Msg("Report written")
	return path
}
