package claims

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/common/logger"
	"medclaim-portal/internal/models"
)

type fakeStore struct {
	applications map[string]*models.Application
	history      map[string][]*models.ClaimStatusChange
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		applications: make(map[string]*models.Application),
		history:      make(map[string][]*models.ClaimStatusChange),
	}
}

func (f *fakeStore) GetApplication(_ context.Context, id string) (*models.Application, error) {
	app, ok := f.applications[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Application", id)
	}
	cp := *app
	return &cp, nil
}

func (f *fakeStore) ApplyTransition(_ context.Context, change *models.ClaimStatusChange, at time.Time) error {
	app := f.applications[change.ApplicationID]
	if app.Status != change.FromStatus {
		return apperrors.NewInvalidStateError("transition", string(change.FromStatus))
	}
	app.Status = change.ToStatus
	if change.AmountPassed != nil {
		app.AmountApproved = *change.AmountPassed
	}
	app.UpdatedAt = at
	f.history[change.ApplicationID] = append(f.history[change.ApplicationID], change)
	return nil
}

func (f *fakeStore) ListHistory(_ context.Context, applicationID string) ([]*models.ClaimStatusChange, error) {
	return f.history[applicationID], nil
}

var (
	obcUser = models.AdminUser{ID: "admin-1", Name: "R. Verma", Role: "obc_cell"}
	hcUser  = models.AdminUser{ID: "admin-2", Name: "Dr. Nair", Role: "health_centre"}
)

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.applications["app-1"] = &models.Application{
		ID:                "app-1",
		ApplicationNumber: "MED-2025-0042",
		EmployeeName:      "A. Sharma",
		EmployeeEmail:     "a.sharma@example.gov.in",
		Status:            models.ClaimStatusPending,
		AmountClaimed:     48200,
	}
	return NewService(store, logger.NewTestLogger(t)), store
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.ClaimStatus
		want     bool
	}{
		{models.ClaimStatusPending, models.ClaimStatusUnderReview, true},
		{models.ClaimStatusPending, models.ClaimStatusApproved, false},
		{models.ClaimStatusUnderReview, models.ClaimStatusBackToOBC, true},
		{models.ClaimStatusUnderReview, models.ClaimStatusApproved, true},
		{models.ClaimStatusBackToOBC, models.ClaimStatusUnderReview, true},
		{models.ClaimStatusBackToOBC, models.ClaimStatusApproved, false},
		{models.ClaimStatusApproved, models.ClaimStatusCompleted, true},
		{models.ClaimStatusApproved, models.ClaimStatusReimbursed, true},
		{models.ClaimStatusCompleted, models.ClaimStatusReimbursed, true},
		{models.ClaimStatusPending, models.ClaimStatusRejected, true},
		{models.ClaimStatusUnderReview, models.ClaimStatusRejected, true},
		{models.ClaimStatusRejected, models.ClaimStatusUnderReview, false},
		{models.ClaimStatusReimbursed, models.ClaimStatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransitionFullPipeline(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	app, err := svc.Transition(ctx, "app-1", TransitionInput{
		To:       models.ClaimStatusUnderReview,
		Comments: "Forwarded to health centre for verification.",
	}, obcUser)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusUnderReview, app.Status)

	amount := 45000.0
	app, err = svc.Transition(ctx, "app-1", TransitionInput{
		To:           models.ClaimStatusApproved,
		Comments:     "Bills verified against CGHS rates.",
		AmountPassed: &amount,
	}, hcUser)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusApproved, app.Status)
	assert.Equal(t, 45000.0, app.AmountApproved)

	app, err = svc.Transition(ctx, "app-1", TransitionInput{
		To: models.ClaimStatusCompleted,
	}, hcUser)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusCompleted, app.Status)

	// One audit row per transition, in order.
	history, err := svc.History(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.ClaimStatusPending, history[0].FromStatus)
	assert.Equal(t, models.ClaimStatusUnderReview, history[0].ToStatus)
	assert.Equal(t, obcUser.ID, history[0].ChangedByID)
	require.NotNil(t, history[1].AmountPassed)
	assert.Equal(t, 45000.0, *history[1].AmountPassed)
	assert.Equal(t, models.ClaimStatusCompleted, history[2].ToStatus)

	assert.Equal(t, models.ClaimStatusCompleted, store.applications["app-1"].Status)
}

func TestTransitionReturnToOBC(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Transition(ctx, "app-1", TransitionInput{To: models.ClaimStatusUnderReview}, obcUser)
	require.NoError(t, err)

	app, err := svc.Transition(ctx, "app-1", TransitionInput{
		To:       models.ClaimStatusBackToOBC,
		Comments: "Prescription copy missing for item 4.",
	}, hcUser)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusBackToOBC, app.Status)

	// And forward again once fixed.
	app, err = svc.Transition(ctx, "app-1", TransitionInput{To: models.ClaimStatusUnderReview}, obcUser)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusUnderReview, app.Status)
}

func TestTransitionIllegalJump(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.Transition(ctx, "app-1", TransitionInput{To: models.ClaimStatusApproved}, hcUser)
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeInvalidState, stdErr.Code)

	// The failed jump leaves no audit row behind.
	assert.Empty(t, store.history["app-1"])
}

func TestTransitionTerminalStatesAcceptNothing(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	store.applications["app-1"].Status = models.ClaimStatusRejected

	_, err := svc.Transition(ctx, "app-1", TransitionInput{To: models.ClaimStatusUnderReview}, obcUser)
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeInvalidState, stdErr.Code)
}

func TestTransitionValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	negative := -1.0

	tests := []struct {
		name string
		in   TransitionInput
	}{
		{"unknown status", TransitionInput{To: "escalated"}},
		{"negative amount", TransitionInput{To: models.ClaimStatusUnderReview, AmountPassed: &negative}},
		{"rejection without comment", TransitionInput{To: models.ClaimStatusRejected}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Transition(ctx, "app-1", tt.in, obcUser)
			require.Error(t, err)
			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, apperrors.ErrCodeValidationFailed, stdErr.Code)
		})
	}
}

func TestTransitionUnknownApplication(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Transition(ctx, "app-missing", TransitionInput{To: models.ClaimStatusUnderReview}, obcUser)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestHistoryUnknownApplication(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.History(ctx, "app-missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
