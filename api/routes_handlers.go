package api

import "status-service/api/handlers"

type routeHandlers struct {
	health    *handlers.HealthHandler
	incidents *handlers.IncidentsHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		health:    handlers.NewHealthHandler(s.cfg.Version, s.bootTime),
		incidents: handlers.NewIncidentsHandler(s.cfg, s.incidentsSvc, s.generator, s.logger),
	}
}
