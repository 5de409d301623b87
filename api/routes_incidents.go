package api

import (
	"net/http"

	"status-service/api/routegroups"

	"github.com/go-chi/chi/v5"
)

func (s *Server) registerIncidentRoutes(router chi.Router, h routeHandlers) {
	var stream http.Handler
	if s.stream != nil {
		stream = s.stream
	}
	routegroups.RegisterHealth(router, h.health)
	routegroups.RegisterIncidents(router, h.incidents, stream)
}
