// internal/server/handlers_queries.go
package server

import (
	"net/http"

	"medclaim-portal/internal/common/validation"
	"medclaim-portal/internal/models"
	"medclaim-portal/internal/queries"
)

func (s *Server) handleCreateQuery(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(r)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	if err := validation.ValidatePayload(payload, validation.CreateQuerySchema); err != nil {
		s.errs.WriteError(w, r, err)
		return
	}

	admin, _ := AdminUserFrom(r.Context())
	q, err := s.queries.Create(r.Context(), queries.CreateInput{
		ApplicationID: strField(payload, "applicationId"),
		Subject:       strField(payload, "subject"),
		Message:       strField(payload, "message"),
		Priority:      models.Priority(strField(payload, "priority")),
	}, admin)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q, "Query created")
}

func (s *Server) handleListByApplication(w http.ResponseWriter, r *http.Request) {
	list, err := s.queries.List(r.Context(), models.QueryFilter{
		ApplicationID: r.PathValue("applicationId"),
	})
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list, "")
}

func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	list, err := s.queries.List(r.Context(), models.QueryFilter{
		Status:   models.QueryStatus(params.Get("status")),
		Priority: models.Priority(params.Get("priority")),
		Search:   params.Get("search"),
	})
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list, "")
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.queries.GetThread(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thread, "")
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(r)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	if err := validation.ValidatePayload(payload, validation.ReplySchema); err != nil {
		s.errs.WriteError(w, r, err)
		return
	}

	admin, _ := AdminUserFrom(r.Context())
	m, err := s.queries.Reply(r.Context(), r.PathValue("id"), queries.ReplyInput{
		Body:           strField(payload, "message"),
		Sender:         models.SenderAdmin,
		IsInternalNote: boolField(payload, "isInternalNote"),
		SenderID:       admin.ID,
		SenderName:     admin.Name,
		SenderRole:     admin.Role,
	})
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m, "Reply added")
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	admin, _ := AdminUserFrom(r.Context())
	q, err := s.queries.Resolve(r.Context(), r.PathValue("id"), admin)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q, "Query resolved")
}

func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	q, err := s.queries.Reopen(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q, "Query reopened")
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	admin, _ := AdminUserFrom(r.Context())
	q, err := s.queries.Close(r.Context(), r.PathValue("id"), admin)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q, "Query closed")
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queries.Stats(r.Context())
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats, "")
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	if err := s.queries.DeleteAttachment(r.Context(), r.PathValue("id")); err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "Attachment deleted")
}
