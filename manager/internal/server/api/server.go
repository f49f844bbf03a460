package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crack-campaign/common/consul"
	"github.com/ykhdr/crack-campaign/common/http/middleware"
	"github.com/ykhdr/crack-campaign/manager/config"
	"github.com/ykhdr/crack-campaign/manager/internal/dispatcher"
	"github.com/ykhdr/crack-campaign/manager/internal/messages/request"
	"github.com/ykhdr/crack-campaign/manager/internal/report"
	"github.com/ykhdr/crack-campaign/manager/pkg/api"
)

const shutdownTimeout = 10 * time.Second

// Campaigns is what the API needs from the dispatcher.
type Campaigns interface {
	Submit(ctx context.Context, req *api.CampaignRequest, requestID string) (request.Id, error)
	Status(id request.Id) (*request.Info, error)
	Stop(id request.Id) error
	Report(ctx context.Context, id request.Id) (*report.Document, error)
}

type Server struct {
	l         zerolog.Logger
	addr      string
	campaigns Campaigns
	consul    consul.Client
}

// NewServer builds the HTTP API. consulClient may be nil to skip service
// registration.
func NewServer(addr string, campaigns Campaigns, consulClient consul.Client) *Server {
	return &Server{
		addr:      addr,
		campaigns: campaigns,
		consul:    consulClient,
		l: log.With().
			Str("domain", "api-server").
			Str("type", "http").
			Str("content-type", "application/json").
			Logger(),
	}
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(s.l))
	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api/campaign").Subrouter()
	apiRouter.Use(middleware.ApplicationJsonContentTypeMiddleware())
	apiRouter.HandleFunc("", s.handleSubmit).Methods(http.MethodPost)
	apiRouter.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	apiRouter.HandleFunc("/{id}/stop", s.handleStop).Methods(http.MethodPost)
	apiRouter.HandleFunc("/{id}/report", s.handleReport).Methods(http.MethodGet)
	return router
}

// Start serves until ctx is done, then shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.addr)
	}
	server := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	if srv := s.register(listener.Addr()); srv != nil {
		defer func() {
			if err := s.consul.DeregisterService(srv); err != nil {
				s.l.Warn().Err(err).Msg("Failed to deregister api server")
			}
		}()
	}

	errC := make(chan error, 1)
	go func() {
		errC <- server.Serve(listener)
	}()
	s.l.Info().Str("address", listener.Addr().String()).Msg("Api server is running")

	select {
	case err := <-errC:
		s.l.Error().Err(err).Msg("Api server failed")
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown api server")
	}
	s.l.Info().Msg("Api server stopped")
	return nil
}

func (s *Server) register(addr net.Addr) *consul.Service {
	if s.consul == nil {
		return nil
	}
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		s.l.Warn().Err(err).Msg("Failed to parse listen address")
		return nil
	}
	port, _ := strconv.Atoi(portStr)
	host, err = consul.AdvertiseAddr(host)
	if err != nil {
		s.l.Warn().Err(err).Msg("Failed to resolve advertise address")
		return nil
	}
	srv, err := s.consul.RegisterService(config.ServiceName, host, port)
	if err != nil {
		s.l.Warn().Err(err).Msg("Failed to register api server")
		return nil
	}
	return srv
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.l.Warn().Err(err).Msg("Invalid request")
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	id, err := s.campaigns.Submit(r.Context(), &req, r.Header.Get("X-Request-Id"))
	switch {
	case err == nil:
	case errors.Is(err, dispatcher.ErrorQueueFull):
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	case errors.Is(err, context.Canceled):
		return
	default:
		s.l.Warn().Err(err).Msg("Rejected campaign")
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	s.writeJSON(w, api.CampaignResponse{CampaignId: string(id)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	campaignId := r.URL.Query().Get("campaignId")
	if campaignId == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("missing campaignId"))
		return
	}
	info, err := s.campaigns.Status(request.Id(campaignId))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	s.writeJSON(w, api.StatusResponse{
		CampaignId:   string(info.ID),
		Status:       string(info.Status),
		Initial:      info.Initial,
		Recovered:    info.Recovered,
		Remaining:    info.Remaining,
		PhasesDone:   info.PhasesDone,
		PhasesTotal:  info.PhasesTotal,
		RecoveryRate: info.RecoveryRate(),
		ErrorReason:  info.ErrorReason,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := request.Id(mux.Vars(r)["id"])
	if err := s.campaigns.Stop(id); err != nil {
		s.writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	s.writeJSON(w, api.CampaignResponse{CampaignId: string(id)})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.campaigns.Report(r.Context(), request.Id(mux.Vars(r)["id"]))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	s.writeJSON(w, doc)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		s.l.Warn().Err(err).Msg("Failed to write health response")
	}
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatcher.ErrorNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, dispatcher.ErrorAlreadyFinished), errors.Is(err, dispatcher.ErrorNotFinished):
		s.writeError(w, http.StatusConflict, err)
	default:
		s.l.Error().Err(err).Msg("Campaign lookup failed")
		s.writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	s.writeJSON(w, api.ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Warn().Err(err).Msg("Failed to encode response")
	}
}
