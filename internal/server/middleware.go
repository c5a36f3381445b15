// internal/server/middleware.go
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medclaim-portal/internal/access"
	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/common/metrics"
	"medclaim-portal/internal/models"
)

type contextKey string

const userContextKey contextKey = "adminUser"

// AdminUserFrom returns the authenticated admin attached by requireAuth.
func AdminUserFrom(ctx context.Context) (models.AdminUser, bool) {
	u, ok := ctx.Value(userContextKey).(models.AdminUser)
	return u, ok
}

// requireAuth resolves the bearer token to a session, checks the capability
// table, and attaches the admin to the request context. Missing or unknown
// sessions are 401; a known admin without the capability is 403.
func (s *Server) requireAuth(action access.Action, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.errs.WriteError(w, r, apperrors.NewAuthenticationError("missing bearer token"))
			return
		}

		session, err := s.sessions.Get(r.Context(), token)
		if err != nil {
			s.errs.WriteError(w, r, err)
			return
		}

		role, known := access.ParseRole(session.User.Role)
		if !known || !access.Can(role, action) {
			s.errs.WriteError(w, r, apperrors.NewAuthorizationError(string(action)))
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, session.User)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withMetrics records request count and latency per logical route.
func (s *Server) withMetrics(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		elapsed := time.Since(start)
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		if s.obs != nil {
			s.obs.RecordRequest(r.Context(), route, status)
			s.obs.RecordRequestDuration(r.Context(), elapsed, route)
		}
	}
}
