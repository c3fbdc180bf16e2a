package api

import "github.com/SoloAWS/incident-command-service/api/handlers"

type routeHandlers struct {
	incidents *handlers.IncidentsHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		incidents: handlers.NewIncidentsHandler(s.cfg, s.incidentsSvc, s.logger),
	}
}
