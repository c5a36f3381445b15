// internal/claims/service.go
package claims

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/common/logger"
	"medclaim-portal/internal/common/metrics"
	"medclaim-portal/internal/models"
)

// Store is the persistence surface the approval pipeline drives.
type Store interface {
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	ApplyTransition(ctx context.Context, change *models.ClaimStatusChange, at time.Time) error
	ListHistory(ctx context.Context, applicationID string) ([]*models.ClaimStatusChange, error)
}

// transitions is the closed edge set of the approval pipeline. Rejection
// is reachable from every non-terminal state; rejected and reimbursed
// accept nothing further.
var transitions = map[models.ClaimStatus][]models.ClaimStatus{
	models.ClaimStatusPending:     {models.ClaimStatusUnderReview, models.ClaimStatusRejected},
	models.ClaimStatusUnderReview: {models.ClaimStatusBackToOBC, models.ClaimStatusApproved, models.ClaimStatusRejected},
	models.ClaimStatusBackToOBC:   {models.ClaimStatusUnderReview, models.ClaimStatusRejected},
	models.ClaimStatusApproved:    {models.ClaimStatusCompleted, models.ClaimStatusReimbursed, models.ClaimStatusRejected},
	models.ClaimStatusCompleted:   {models.ClaimStatusReimbursed, models.ClaimStatusRejected},
	models.ClaimStatusRejected:    {},
	models.ClaimStatusReimbursed:  {},
}

// CanTransition reports whether from → to is a legal pipeline edge.
func CanTransition(from, to models.ClaimStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Service owns the claim approval pipeline.
type Service struct {
	store  Store
	logger logger.Logger
	now    func() time.Time
}

func NewService(store Store, log logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "claim-service"}),
		now:    time.Now,
	}
}

// TransitionInput is one explicit admin action against a claim.
type TransitionInput struct {
	To           models.ClaimStatus
	Comments     string
	AmountPassed *float64
}

// Transition moves a claim along the pipeline, appending one audit row per
// change. Illegal jumps fail before any write.
func (s *Service) Transition(ctx context.Context, applicationID string, in TransitionInput, by models.AdminUser) (*models.Application, error) {
	if !in.To.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status: %s", in.To))
	}
	if in.AmountPassed != nil && *in.AmountPassed < 0 {
		return nil, apperrors.NewValidationError("amount passed cannot be negative")
	}
	if in.To == models.ClaimStatusRejected && strings.TrimSpace(in.Comments) == "" {
		return nil, apperrors.NewValidationError("rejection requires a comment")
	}

	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(app.Status, in.To) {
		return nil, apperrors.NewInvalidStateError(string(in.To), string(app.Status))
	}

	now := s.now().UTC()
	change := &models.ClaimStatusChange{
		ID:            uuid.New().String(),
		ApplicationID: app.ID,
		FromStatus:    app.Status,
		ToStatus:      in.To,
		Comments:      in.Comments,
		AmountPassed:  in.AmountPassed,
		ChangedByID:   by.ID,
		ChangedByName: by.Name,
		CreatedAt:     now,
	}

	if err := s.store.ApplyTransition(ctx, change, now); err != nil {
		return nil, err
	}

	metrics.ClaimTransitionsTotal.WithLabelValues(string(in.To)).Inc()
	s.logger.Info("claim status changed", map[string]interface{}{
		"application_id": app.ID,
		"from":           string(app.Status),
		"to":             string(in.To),
		"changed_by":     by.ID,
	})

	app.Status = in.To
	if in.AmountPassed != nil {
		app.AmountApproved = *in.AmountPassed
	}
	app.UpdatedAt = now
	return app, nil
}

// Get returns one claim.
func (s *Service) Get(ctx context.Context, applicationID string) (*models.Application, error) {
	return s.store.GetApplication(ctx, applicationID)
}

// History returns the audit trail for a claim, oldest first.
func (s *Service) History(ctx context.Context, applicationID string) ([]*models.ClaimStatusChange, error) {
	if _, err := s.store.GetApplication(ctx, applicationID); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, applicationID)
}
