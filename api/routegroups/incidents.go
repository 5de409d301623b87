package routegroups

import (
	"net/http"

	"status-service/api/handlers"

	"github.com/go-chi/chi/v5"
)

func RegisterHealth(router chi.Router, health *handlers.HealthHandler) {
	router.MethodFunc("GET", "/health", health.Health)
}

// RegisterIncidents mounts the incident routes. stream may be nil when the
// live feed is disabled.
func RegisterIncidents(router chi.Router, incidents *handlers.IncidentsHandler, stream http.Handler) {
	router.Route("/incidents", func(incidentsRouter chi.Router) {
		incidentsRouter.MethodFunc("POST", "/", incidents.Create)
		incidentsRouter.MethodFunc("GET", "/recent", incidents.Recent)
		incidentsRouter.MethodFunc("GET", "/generate", incidents.Generate)
		if stream != nil {
			incidentsRouter.Method("GET", "/stream", stream)
		}
		incidentsRouter.MethodFunc("GET", "/{id}", incidents.Get)
		incidentsRouter.MethodFunc("GET", "/{id}/history", incidents.History)
	})
	router.Route("/services", func(servicesRouter chi.Router) {
		servicesRouter.MethodFunc("GET", "/", incidents.Services)
		servicesRouter.MethodFunc("GET", "/status", incidents.ServiceStatus)
	})
}
