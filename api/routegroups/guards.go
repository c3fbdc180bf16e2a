package routegroups

import "net/http"

// Guards wraps every route registered by this package. Each route picks exactly one.
type Guards struct {
	RequireIdentity func(http.HandlerFunc) http.HandlerFunc
	AllowAnonymous  func(http.HandlerFunc) http.HandlerFunc
}

func (g Guards) Authenticated(h http.HandlerFunc) http.HandlerFunc {
	if g.RequireIdentity == nil {
		return h
	}
	return g.RequireIdentity(h)
}

func (g Guards) Public(h http.HandlerFunc) http.HandlerFunc {
	if g.AllowAnonymous == nil {
		return h
	}
	return g.AllowAnonymous(h)
}
