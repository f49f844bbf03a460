package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ykhdr/crack-campaign/common/consul"
	"github.com/ykhdr/crack-campaign/manager/internal/dispatcher"
	"github.com/ykhdr/crack-campaign/manager/internal/messages/request"
	"github.com/ykhdr/crack-campaign/manager/internal/report"
	"github.com/ykhdr/crack-campaign/manager/pkg/api"
)

type fakeCampaigns struct {
	submitErr error
	submitted *api.CampaignRequest
	requestID string
	infos     map[request.Id]*request.Info
	stopped   []request.Id
}

func (f *fakeCampaigns) Submit(_ context.Context, req *api.CampaignRequest, requestID string) (request.Id, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = req
	f.requestID = requestID
	return "c-1", nil
}

func (f *fakeCampaigns) Status(id request.Id) (*request.Info, error) {
	info, ok := f.infos[id]
	if !ok {
		return nil, dispatcher.ErrorNotFound
	}
	return info, nil
}

func (f *fakeCampaigns) Stop(id request.Id) error {
	info, ok := f.infos[id]
	if !ok {
		return dispatcher.ErrorNotFound
	}
	if info.Status.Terminal() {
		return dispatcher.ErrorAlreadyFinished
	}
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeCampaigns) Report(_ context.Context, id request.Id) (*report.Document, error) {
	info, ok := f.infos[id]
	if !ok {
		return nil, dispatcher.ErrorNotFound
	}
	if !info.Status.Terminal() {
		return nil, dispatcher.ErrorNotFinished
	}
	return &report.Document{CampaignID: string(id), Name: "lab"}, nil
}

func serve(t *testing.T, f *fakeCampaigns, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("X-Request-Id", "r-42")
	rec := httptest.NewRecorder()
	NewServer("127.0.0.1:0", f, nil).Handler().ServeHTTP(rec, req)
	return rec
}

func TestSubmit(t *testing.T) {
	f := &fakeCampaigns{}
	rec := serve(t, f, http.MethodPost, "/api/campaign",
		`{"digests":["5f4dcc3b5aa765d61d8327deb882cf99"],"phases":[{"kind":"mask","cost_tier":"fast","resources":[{"type":"mask","ref":"?d"}]}]}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp api.CampaignResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "c-1", resp.CampaignId)
	assert.Equal(t, "r-42", f.requestID)
	require.Len(t, f.submitted.Phases, 1)
	assert.Equal(t, "?d", f.submitted.Phases[0].Resources[0].Ref)
}

func TestSubmit_Errors(t *testing.T) {
	rec := serve(t, &fakeCampaigns{}, http.MethodPost, "/api/campaign", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, &fakeCampaigns{submitErr: errors.New("phase 0: unknown kind")}, http.MethodPost, "/api/campaign", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown kind")

	rec = serve(t, &fakeCampaigns{submitErr: dispatcher.ErrorQueueFull}, http.MethodPost, "/api/campaign", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatus(t *testing.T) {
	f := &fakeCampaigns{infos: map[request.Id]*request.Info{
		"c-1": {ID: "c-1", Status: request.StatusInProgress, Initial: 4, Recovered: 1, Remaining: 3, PhasesDone: 1, PhasesTotal: 3},
	}}

	rec := serve(t, f, http.MethodGet, "/api/campaign/status?campaignId=c-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "IN_PROGRESS", resp.Status)
	assert.Equal(t, 3, resp.Remaining)
	assert.InDelta(t, 0.25, resp.RecoveryRate, 1e-9)

	assert.Equal(t, http.StatusBadRequest, serve(t, f, http.MethodGet, "/api/campaign/status", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, f, http.MethodGet, "/api/campaign/status?campaignId=x", "").Code)
}

func TestStopAndReport(t *testing.T) {
	f := &fakeCampaigns{infos: map[request.Id]*request.Info{
		"run":  {ID: "run", Status: request.StatusInProgress},
		"done": {ID: "done", Status: request.StatusReady},
	}}

	assert.Equal(t, http.StatusAccepted, serve(t, f, http.MethodPost, "/api/campaign/run/stop", "").Code)
	assert.Equal(t, []request.Id{"run"}, f.stopped)
	assert.Equal(t, http.StatusConflict, serve(t, f, http.MethodPost, "/api/campaign/done/stop", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, f, http.MethodPost, "/api/campaign/nope/stop", "").Code)

	assert.Equal(t, http.StatusConflict, serve(t, f, http.MethodGet, "/api/campaign/run/report", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, f, http.MethodGet, "/api/campaign/nope/report", "").Code)

	rec := serve(t, f, http.MethodGet, "/api/campaign/done/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc report.Document
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	assert.Equal(t, "done", doc.CampaignID)
}

func TestHealth(t *testing.T) {
	rec := serve(t, &fakeCampaigns{}, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestStart_ShutsDownWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer("127.0.0.1:0", &fakeCampaigns{}, nil).Start(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}

type fakeConsul struct {
	mu           sync.Mutex
	registered   []string
	deregistered int
}

func (c *fakeConsul) HealthServices(string) ([]*consul.Service, error) {
	return nil, nil
}

func (c *fakeConsul) RegisterService(name, address string, _ int) (*consul.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registered = append(c.registered, name+"@"+address)
	return &consul.Service{}, nil
}

func (c *fakeConsul) DeregisterService(*consul.Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deregistered++
	return nil
}

func (c *fakeConsul) snapshot() ([]string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.registered...), c.deregistered
}

func TestStart_RegistersWithConsul(t *testing.T) {
	c := &fakeConsul{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer("127.0.0.1:0", &fakeCampaigns{}, c).Start(ctx) }()

	require.Eventually(t, func() bool {
		registered, _ := c.snapshot()
		return len(registered) == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	registered, deregistered := c.snapshot()
	assert.Equal(t, []string{"crack-campaign-manager@127.0.0.1"}, registered)
	assert.Equal(t, 1, deregistered)
}
