package appbootstrap

import (
	"context"
	"time"

	"status-service/api"
	"status-service/api/stream"
	"status-service/config"
	"status-service/core/incidents"
	"status-service/core/store"
	"status-service/core/utils"
)

// BackgroundWorker is anything started alongside the HTTP server and stopped
// during shutdown.
type BackgroundWorker interface {
	StartWithContext(ctx context.Context)
	StopWithContext(ctx context.Context) error
}

type runtimeComposition struct {
	serverDeps api.ServerDeps
	generator  *incidents.Generator
	workers    []BackgroundWorker
}

func composeRuntime(cfg *config.AppConfig, db *store.DB, logger *utils.Logger) *runtimeComposition {
	incidentsStore := store.NewIncidentsStore(db)
	incidentsSvc := incidents.NewService(cfg, incidentsStore, utils.SystemClock(), logger)
	generator := incidents.NewGenerator(incidentsSvc, uint64(time.Now().UnixNano()))
	scheduler := incidents.NewScheduler(cfg.Generator, generator, logger)

	workers := []BackgroundWorker{scheduler}
	var hub *stream.Hub
	if !cfg.Stream.Disabled {
		hub = stream.NewHub(cfg.Stream.PingInterval, cfg.CORS.AllowedOrigins, logger)
		incidentsSvc.SetPublisher(hub)
		workers = append(workers, hub)
	}

	// generator.disabled also removes GET /incidents/generate; the CLI keeps it.
	var httpGenerator *incidents.Generator
	if !cfg.Generator.Disabled {
		httpGenerator = generator
	}

	return &runtimeComposition{
		serverDeps: api.ServerDeps{
			IncidentsSvc: incidentsSvc,
			Generator:    httpGenerator,
			Stream:       hub,
		},
		generator: generator,
		workers:   workers,
	}
}
