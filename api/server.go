package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SoloAWS/incident-command-service/config"
	"github.com/SoloAWS/incident-command-service/core/auth"
	"github.com/SoloAWS/incident-command-service/core/incidents"
	"github.com/SoloAWS/incident-command-service/core/utils"
)

type Server struct {
	cfg          *config.AppConfig
	logger       *utils.Logger
	verifier     *auth.Verifier
	incidentsSvc *incidents.Service
	router       chi.Router
	httpServer   *http.Server
}

func NewServer(cfg *config.AppConfig, logger *utils.Logger, verifier *auth.Verifier, incidentsSvc *incidents.Service) *Server {
	s := &Server{
		cfg:          cfg,
		logger:       logger,
		verifier:     verifier,
		incidentsSvc: incidentsSvc,
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadTimeout:       durationOr(cfg.HTTP.ReadTimeout, 15*time.Second),
		WriteTimeout:      durationOr(cfg.HTTP.WriteTimeout, 30*time.Second),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Printf("listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func durationOr(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
