package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"status-service/api/stream"
	"status-service/config"
	"status-service/core/incidents"
	"status-service/core/utils"

	"github.com/go-chi/chi/v5"
)

type ServerDeps struct {
	IncidentsSvc *incidents.Service
	Generator    *incidents.Generator
	Stream       *stream.Hub
}

type Server struct {
	cfg          *config.AppConfig
	logger       *utils.Logger
	incidentsSvc *incidents.Service
	generator    *incidents.Generator
	stream       *stream.Hub
	bootTime     time.Time
	router       chi.Router
	httpServer   *http.Server
}

func NewServer(cfg *config.AppConfig, deps ServerDeps, logger *utils.Logger) *Server {
	s := &Server{
		cfg:          cfg,
		logger:       logger,
		incidentsSvc: deps.IncidentsSvc,
		generator:    deps.Generator,
		stream:       deps.Stream,
		bootTime:     time.Now().UTC(),
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	return s
}

func (s *Server) buildRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(s.recoverMiddleware)
	router.Use(s.requestIDMiddleware)
	router.Use(s.loggingMiddleware)
	router.Use(s.corsMiddleware())
	router.Use(s.securityHeadersMiddleware)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "Method Not Allowed"})
	})
	s.registerIncidentRoutes(router, s.newRouteHandlers())
	return router
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) BootTime() time.Time {
	return s.bootTime
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	if s.logger != nil {
		s.logger.Printf("listening on %s", s.httpServer.Addr)
	}
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
