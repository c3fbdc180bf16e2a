package api

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/SoloAWS/incident-command-service/api/handlers"
	"github.com/SoloAWS/incident-command-service/core/apperr"
	"github.com/SoloAWS/incident-command-service/core/auth"
)

const legacyTokenHeader = "token"

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Errorf("PANIC %s %s: %v\n%s", r.Method, r.URL.Path, rec, string(debug.Stack()))
				handlers.WriteErrorBody(w, http.StatusInternalServerError, apperr.KindInternal.Code(), "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// identityMiddleware attaches the verified caller when a valid token is present. It never
// rejects: routes decide whether an anonymous caller is acceptable.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id := s.verifier.Verify(raw)
		if id == nil {
			s.logger.Debugf("AUTH invalid token %s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		if rec, ok := w.(*statusRecorder); ok {
			rec.user = id.Subject.String()
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func bearerToken(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("Authorization")); v != "" {
		return v
	}
	return strings.TrimSpace(r.Header.Get(legacyTokenHeader))
}

func (s *Server) requireIdentity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.IdentityFromContext(r.Context()) == nil {
			s.logger.Printf("AUTH fail (no identity) %s %s", r.Method, r.URL.Path)
			handlers.WriteError(w, s.logger, apperr.Unauthorized("Authentication required"))
			return
		}
		next(w, r)
	}
}

func (s *Server) allowAnonymous(next http.HandlerFunc) http.HandlerFunc {
	return next
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK, user: "-"}
		next.ServeHTTP(rec, r)
		s.logger.Printf("RESP %s %s user=%s status=%d dur=%s bytes=%d", r.Method, r.URL.Path, rec.user, rec.status, time.Since(start), rec.size)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
	user   string
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}
