// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medclaim-portal/internal/access"
	"medclaim-portal/internal/claims"
	"medclaim-portal/internal/common/config"
	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/common/logger"
	"medclaim-portal/internal/common/observability"
	"medclaim-portal/internal/models"
	"medclaim-portal/internal/queries"
)

// Pinger is a dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueryService is the slice of the query state machine the handlers use.
type QueryService interface {
	Create(ctx context.Context, in queries.CreateInput, creator models.AdminUser) (*models.Query, error)
	Reply(ctx context.Context, queryID string, in queries.ReplyInput) (*models.Message, error)
	Resolve(ctx context.Context, queryID string, by models.AdminUser) (*models.Query, error)
	Close(ctx context.Context, queryID string, by models.AdminUser) (*models.Query, error)
	Reopen(ctx context.Context, queryID string) (*models.Query, error)
	GetThread(ctx context.Context, queryID string) (*queries.Thread, error)
	GetThreadByToken(ctx context.Context, token string) (*queries.Thread, error)
	ReplyByToken(ctx context.Context, token, body, userName string) (*models.Message, error)
	UploadByToken(ctx context.Context, token string, in queries.UploadInput) (*models.Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
	List(ctx context.Context, filter models.QueryFilter) ([]*models.Query, error)
	Stats(ctx context.Context) (*models.QueryStats, error)
}

// ClaimService is the slice of the approval pipeline the handlers use.
type ClaimService interface {
	Transition(ctx context.Context, applicationID string, in claims.TransitionInput, by models.AdminUser) (*models.Application, error)
	History(ctx context.Context, applicationID string) ([]*models.ClaimStatusChange, error)
}

// Server wires the query and claim services onto the HTTP surface.
type Server struct {
	cfg      config.ServerConfig
	uploads  config.UploadConfig
	queries  QueryService
	claims   ClaimService
	sessions *SessionStore
	errs     *apperrors.ErrorHandler
	logger   logger.Logger
	obs      *observability.Observability

	health map[string]Pinger
}

func New(
	cfg config.ServerConfig,
	uploads config.UploadConfig,
	querySvc QueryService,
	claimSvc ClaimService,
	sessions *SessionStore,
	log logger.Logger,
	obs *observability.Observability,
	health map[string]Pinger,
) *Server {
	return &Server{
		cfg:      cfg,
		uploads:  uploads,
		queries:  querySvc,
		claims:   claimSvc,
		sessions: sessions,
		errs:     apperrors.NewErrorHandler(log),
		logger:   log.WithFields(map[string]interface{}{"component": "http-server"}),
		obs:      obs,
		health:   health,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Admin query surface.
	mux.HandleFunc("POST /api/v1/queries/create",
		s.withMetrics("queries_create", s.requireAuth(access.ActionCreateQuery, s.handleCreateQuery)))
	mux.HandleFunc("GET /api/v1/queries/application/{applicationId}",
		s.withMetrics("queries_by_application", s.requireAuth(access.ActionViewQueries, s.handleListByApplication)))
	mux.HandleFunc("GET /api/v1/queries/all",
		s.withMetrics("queries_list", s.requireAuth(access.ActionViewQueries, s.handleListAll)))
	mux.HandleFunc("GET /api/v1/queries/stats/unread",
		s.withMetrics("queries_stats", s.requireAuth(access.ActionViewStats, s.handleStats)))
	mux.HandleFunc("GET /api/v1/queries/{id}",
		s.withMetrics("queries_get", s.requireAuth(access.ActionViewQueries, s.handleGetThread)))
	mux.HandleFunc("POST /api/v1/queries/{id}/reply",
		s.withMetrics("queries_reply", s.requireAuth(access.ActionReplyQuery, s.handleReply)))
	mux.HandleFunc("PATCH /api/v1/queries/{id}/resolve",
		s.withMetrics("queries_resolve", s.requireAuth(access.ActionResolveQuery, s.handleResolve)))
	mux.HandleFunc("PATCH /api/v1/queries/{id}/reopen",
		s.withMetrics("queries_reopen", s.requireAuth(access.ActionReopenQuery, s.handleReopen)))
	mux.HandleFunc("PATCH /api/v1/queries/{id}/close",
		s.withMetrics("queries_close", s.requireAuth(access.ActionCloseQuery, s.handleClose)))
	mux.HandleFunc("DELETE /api/v1/attachments/{id}",
		s.withMetrics("attachments_delete", s.requireAuth(access.ActionDeleteAttachment, s.handleDeleteAttachment)))

	// Public token surface; no sessions, no roles.
	mux.HandleFunc("GET /api/v1/queries/public/{token}",
		s.withMetrics("public_get", s.handlePublicThread))
	mux.HandleFunc("POST /api/v1/queries/public/{token}/reply",
		s.withMetrics("public_reply", s.handlePublicReply))
	mux.HandleFunc("POST /api/v1/queries/public/{token}/upload",
		s.withMetrics("public_upload", s.handlePublicUpload))

	// Claim approval pipeline.
	mux.HandleFunc("PATCH /api/v1/applications/{id}/status",
		s.withMetrics("claims_status", s.requireAuth(access.ActionViewClaims, s.handleClaimStatus)))
	mux.HandleFunc("GET /api/v1/applications/{id}/status-history",
		s.withMetrics("claims_history", s.requireAuth(access.ActionViewClaims, s.handleClaimHistory)))

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// handleHealthz pings every registered dependency with a short deadline.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.health))
	healthy := true
	for name, dep := range s.health {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = "down"
			healthy = false
			s.logger.Warn("health check failed", map[string]interface{}{
				"dependency": name,
				"error":      err.Error(),
			})
			continue
		}
		checks[name] = "up"
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	}, "")
}
