package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/SoloAWS/incident-command-service/api/handlers"
	"github.com/SoloAWS/incident-command-service/api/routegroups"
)

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.securityHeadersMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.HTTP.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "token"},
		MaxAge:         300,
	}))
	if s.cfg.HTTP.RateLimitPerMinute > 0 {
		r.Use(httprate.Limit(s.cfg.HTTP.RateLimitPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				handlers.WriteErrorBody(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
			}),
		))
	}
	r.Use(s.identityMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteErrorBody(w, http.StatusNotFound, "not_found", "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteErrorBody(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method Not Allowed")
	})

	h := s.newRouteHandlers()
	g := routegroups.Guards{
		RequireIdentity: s.requireIdentity,
		AllowAnonymous:  s.allowAnonymous,
	}
	routegroups.RegisterHealth(r, g, s.cfg.ServiceType)
	routegroups.RegisterIncidents(r, g, h.incidents)
	return r
}
