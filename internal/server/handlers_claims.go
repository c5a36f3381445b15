// internal/server/handlers_claims.go
package server

import (
	"net/http"

	"medclaim-portal/internal/access"
	"medclaim-portal/internal/claims"
	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/common/validation"
	"medclaim-portal/internal/models"
)

// claimActionFor maps the requested target status onto the capability it
// requires. The route middleware only proves the caller may see claims;
// the per-transition capability depends on the payload.
func claimActionFor(to models.ClaimStatus) access.Action {
	switch to {
	case models.ClaimStatusUnderReview:
		return access.ActionForwardClaim
	case models.ClaimStatusBackToOBC:
		return access.ActionReturnClaim
	case models.ClaimStatusApproved:
		return access.ActionApproveClaim
	case models.ClaimStatusRejected:
		return access.ActionRejectClaim
	case models.ClaimStatusCompleted, models.ClaimStatusReimbursed:
		return access.ActionCompleteClaim
	}
	return access.ActionViewClaims
}

func (s *Server) handleClaimStatus(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(r)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	if err := validation.ValidatePayload(payload, validation.ClaimStatusSchema); err != nil {
		s.errs.WriteError(w, r, err)
		return
	}

	to := models.ClaimStatus(strField(payload, "status"))
	admin, _ := AdminUserFrom(r.Context())
	role, _ := access.ParseRole(admin.Role)
	action := claimActionFor(to)
	if !access.Can(role, action) {
		s.errs.WriteError(w, r, apperrors.NewAuthorizationError(string(action)))
		return
	}

	app, err := s.claims.Transition(r.Context(), r.PathValue("id"), claims.TransitionInput{
		To:           to,
		Comments:     strField(payload, "comments"),
		AmountPassed: floatField(payload, "amountPassed"),
	}, admin)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app, "Status updated")
}

func (s *Server) handleClaimHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.claims.History(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history, "")
}
