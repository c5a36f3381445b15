// internal/server/handlers_public.go
package server

import (
	"net/http"

	"medclaim-portal/internal/common/validation"
	"medclaim-portal/internal/queries"
)

// The public handlers write errors through WritePublicError so an unknown
// token and an expired one are indistinguishable to the caller.

func (s *Server) handlePublicThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.queries.GetThreadByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		s.errs.WritePublicError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thread, "")
}

func (s *Server) handlePublicReply(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(r)
	if err != nil {
		s.errs.WritePublicError(w, r, err)
		return
	}
	if err := validation.ValidatePayload(payload, validation.PublicReplySchema); err != nil {
		s.errs.WritePublicError(w, r, err)
		return
	}

	m, err := s.queries.ReplyByToken(r.Context(), r.PathValue("token"),
		strField(payload, "message"), strField(payload, "userName"))
	if err != nil {
		s.errs.WritePublicError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m, "Reply added")
}

func (s *Server) handlePublicUpload(w http.ResponseWriter, r *http.Request) {
	// One extra MB of headroom for the multipart framing; the policy check
	// in the service enforces the real limit against the file size.
	r.Body = http.MaxBytesReader(w, r.Body, s.uploads.MaxSizeBytes+1<<20)

	if err := r.ParseMultipartForm(4 << 20); err != nil {
		s.errs.WritePublicError(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.errs.WritePublicError(w, r, err)
		return
	}
	defer file.Close()

	a, err := s.queries.UploadByToken(r.Context(), r.PathValue("token"), queries.UploadInput{
		FileName:    header.Filename,
		SizeBytes:   header.Size,
		ContentType: header.Header.Get("Content-Type"),
		UserName:    r.FormValue("userName"),
		MessageID:   r.FormValue("messageId"),
	})
	if err != nil {
		s.errs.WritePublicError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a, "File uploaded")
}
