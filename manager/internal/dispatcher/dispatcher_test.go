package dispatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ykhdr/crack-campaign/manager/internal/campaign"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/manager/internal/engine"
	"github.com/ykhdr/crack-campaign/manager/internal/messages/request"
	"github.com/ykhdr/crack-campaign/manager/internal/phase"
	"github.com/ykhdr/crack-campaign/manager/internal/store/reportstore"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
	"github.com/ykhdr/crack-campaign/manager/pkg/api"
	"github.com/ykhdr/crack-campaign/manager/pkg/messages"
)

const (
	md5Password = "5f4dcc3b5aa765d61d8327deb882cf99"
	md5Missing  = "ffffffffffffffffffffffffffffffff"
)

type fakeAdapter struct {
	mu    sync.Mutex
	plain map[string]string
	calls int
}

func (a *fakeAdapter) Run(_ context.Context, inv engine.Invocation) (*engine.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	res := &engine.Result{}
	for _, d := range inv.View.Digests() {
		if p, ok := a.plain[d.Value]; ok {
			res.Recovered = append(res.Recovered, digest.Recovered{
				Digest:     d,
				Scheme:     inv.View.Scheme(),
				Plaintext:  p,
				PhaseIndex: inv.PhaseIndex,
				Source:     digest.SourceEngine,
			})
		}
	}
	return res, nil
}

func wordlist(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("password\n"), 0o644))
	return path
}

func campaignRequest(t *testing.T, phases int) *api.CampaignRequest {
	words := wordlist(t)
	req := &api.CampaignRequest{
		Name:        "lab",
		Digests:     []string{md5Password, md5Missing, "garbage"},
		ForceScheme: "md5",
	}
	for i := 0; i < phases; i++ {
		req.Phases = append(req.Phases, api.PhaseRequest{
			Kind:      string(strategy.KindDictionary),
			CostTier:  string(strategy.TierFast),
			Resources: []api.ResourceRequest{{Type: "wordlist", Ref: words}},
		})
	}
	return req
}

func newDispatcher(t *testing.T, cfg Config, notifier campaign.Notifier) (*Dispatcher, *fakeAdapter, reportstore.ReportStore) {
	t.Helper()
	adapter := &fakeAdapter{plain: map[string]string{md5Password: "password"}}
	store := reportstore.NewMemoryStore()
	return NewDispatcher(cfg, phase.NewRunner(adapter), store, notifier), adapter, store
}

func start(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
}

func waitStatus(t *testing.T, d *Dispatcher, id request.Id) *request.Info {
	t.Helper()
	var info *request.Info
	require.Eventually(t, func() bool {
		var err error
		info, err = d.Status(id)
		return err == nil && info.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return info
}

func TestDispatcher_RunsCampaign(t *testing.T) {
	reportDir := t.TempDir()
	var mu sync.Mutex
	var seen []campaign.EventType
	notifier := campaign.NotifierFunc(func(_ context.Context, e campaign.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type)
	})
	d, adapter, _ := newDispatcher(t, Config{QueueSize: 4, ReportDir: reportDir, WriteCSV: true}, notifier)
	start(t, d)

	id, err := d.Submit(context.Background(), campaignRequest(t, 2), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "req-1", d.RequestID(string(id)))

	info := waitStatus(t, d, id)
	assert.Equal(t, request.StatusReady, info.Status)
	assert.Equal(t, 2, info.Initial)
	assert.Equal(t, 1, info.Recovered)
	assert.Equal(t, 1, info.Remaining)
	assert.Equal(t, 2, info.PhasesDone)
	assert.InDelta(t, 0.5, info.RecoveryRate(), 1e-9)
	require.NotEmpty(t, info.ReportPath)
	assert.FileExists(t, info.ReportPath)
	csvFiles, err := filepath.Glob(filepath.Join(reportDir, "*.csv"))
	require.NoError(t, err)
	assert.Len(t, csvFiles, 1)
	assert.Equal(t, 2, adapter.calls)

	doc, err := d.Report(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(id), doc.CampaignID)
	assert.Len(t, doc.Phases, 2)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, campaign.EventStarted, seen[0])
	assert.Equal(t, campaign.EventFinished, seen[len(seen)-1])
}

func TestDispatcher_SubmitRejectsInvalid(t *testing.T) {
	d, _, _ := newDispatcher(t, Config{}, nil)

	req := campaignRequest(t, 1)
	req.Phases[0].Resources[0].Ref = filepath.Join(t.TempDir(), "missing.txt")
	_, err := d.Submit(context.Background(), req, "")
	var invalid *strategy.InvalidStrategyError
	assert.ErrorAs(t, err, &invalid)

	req = campaignRequest(t, 0)
	_, err = d.Submit(context.Background(), req, "")
	assert.ErrorIs(t, err, ErrNoPhases)

	req = campaignRequest(t, 1)
	req.Phases[0].Timeout = "soon"
	_, err = d.Submit(context.Background(), req, "")
	assert.Error(t, err)

	req = campaignRequest(t, 1)
	req.ForceScheme = "rot13"
	_, err = d.Submit(context.Background(), req, "")
	assert.ErrorIs(t, err, digest.ErrUnknownScheme)
}

func TestDispatcher_QueueFull(t *testing.T) {
	d, _, _ := newDispatcher(t, Config{QueueSize: 1, DispatchTimeout: 20 * time.Millisecond}, nil)

	first, err := d.Submit(context.Background(), campaignRequest(t, 1), "")
	require.NoError(t, err)
	_, err = d.Submit(context.Background(), campaignRequest(t, 1), "")
	assert.ErrorIs(t, err, ErrorQueueFull)

	info, err := d.Status(first)
	require.NoError(t, err)
	assert.Equal(t, request.StatusNew, info.Status)

	_, err = d.Report(context.Background(), first)
	assert.ErrorIs(t, err, ErrorNotFinished)
}

func TestDispatcher_StopQueuedCampaign(t *testing.T) {
	d, adapter, _ := newDispatcher(t, Config{QueueSize: 2}, nil)
	id, err := d.Submit(context.Background(), campaignRequest(t, 2), "")
	require.NoError(t, err)
	require.NoError(t, d.Stop(id))
	assert.ErrorIs(t, d.Stop("unknown"), ErrorNotFound)

	start(t, d)
	info := waitStatus(t, d, id)
	assert.Equal(t, request.StatusStopped, info.Status)
	assert.NotEmpty(t, info.ErrorReason)
	assert.Zero(t, adapter.calls)
	assert.ErrorIs(t, d.Stop(id), ErrorAlreadyFinished)
}

func TestDispatcher_HandleMessage(t *testing.T) {
	d, _, _ := newDispatcher(t, Config{QueueSize: 2}, nil)
	msg := &messages.CampaignRequest{Campaign: *campaignRequest(t, 1)}

	require.NoError(t, d.HandleMessage(context.Background(), msg, amqp.Delivery{MessageId: "m-1"}))

	msg.Campaign.Digests = nil
	assert.Error(t, d.HandleMessage(context.Background(), msg, amqp.Delivery{MessageId: "m-2"}))
}

func TestDispatcher_UnknownCampaign(t *testing.T) {
	d, _, _ := newDispatcher(t, Config{}, nil)
	_, err := d.Status("nope")
	assert.ErrorIs(t, err, ErrorNotFound)
	_, err = d.Report(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrorNotFound)
}
