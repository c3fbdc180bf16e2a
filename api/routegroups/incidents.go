package routegroups

import (
	"github.com/go-chi/chi/v5"

	"github.com/SoloAWS/incident-command-service/api/handlers"
)

func RegisterIncidents(r chi.Router, g Guards, incidents *handlers.IncidentsHandler) {
	r.Route("/incident", func(incidentRouter chi.Router) {
		incidentRouter.MethodFunc("POST", "/", g.Authenticated(incidents.Create))
		incidentRouter.MethodFunc("POST", "/user-incident", g.Authenticated(incidents.CreateWithAttachment))
		incidentRouter.MethodFunc("POST", "/user-company", g.Authenticated(incidents.ListUserCompany))
		incidentRouter.MethodFunc("POST", "/email", g.Public(incidents.CreateFromEmail))
		incidentRouter.MethodFunc("GET", "/{id}", g.Authenticated(incidents.Get))
		incidentRouter.MethodFunc("GET", "/{id}/history", g.Authenticated(incidents.History))
		incidentRouter.MethodFunc("GET", "/{id}/file", g.Authenticated(incidents.DownloadFile))
	})
}

func RegisterHealth(r chi.Router, g Guards, serviceType string) {
	r.MethodFunc("GET", "/incident-command-"+serviceType+"/health", g.Public(handlers.Health))
}
