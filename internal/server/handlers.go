package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ocrmate/ocrmate/internal/annotate"
	"github.com/ocrmate/ocrmate/internal/verify"
)

type setFieldRequest struct {
	Document string `json:"document"`
	Field    string `json:"field"`
	Value    any    `json:"value"`
}

type confirmFieldRequest struct {
	Document string `json:"document"`
	Field    string `json:"field"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := annotate.Filter{
		CompleteOnly: q.Get("complete") == "true",
	}
	if v := q.Get("schema_version"); v != "" {
		sv, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid schema_version")
			return
		}
		filter.SchemaVersion = sv
	}
	filter.Limit, filter.Offset = pagination(q.Get("limit"), q.Get("offset"))

	docs, err := s.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []annotate.DocumentAnnotation{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetAnnotation(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path query parameter required")
		return
	}

	doc, err := s.store.Get(r.Context(), path)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleCompletionStatus(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path query parameter required")
		return
	}

	doc, err := s.store.Get(r.Context(), path)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc.Status(s.schema))
}

// handleSetField records a reviewer-provided value. Correcting an
// existing annotation is a user edit; filling a field with no prior
// annotation is a manual entry. Either way the field becomes verified.
func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	var req setFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Document == "" || req.Field == "" {
		writeError(w, http.StatusBadRequest, "document and field are required")
		return
	}
	if s.schema.ByName(req.Field) == nil {
		writeError(w, http.StatusBadRequest, "unknown field: "+req.Field)
		return
	}

	doc, err := s.store.Get(r.Context(), req.Document)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	source := annotate.SourceUserManual
	if doc.Value(req.Field) != nil {
		source = annotate.SourceUserEdited
	}
	doc.SetFieldValue(req.Field, req.Value, source, nil)
	doc.IsComplete = doc.Status(s.schema).IsComplete

	if err := s.store.Save(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleConfirmField marks an OCR pre-filled value as reviewed and
// correct without changing it.
func (s *Server) handleConfirmField(w http.ResponseWriter, r *http.Request) {
	var req confirmFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Document == "" || req.Field == "" {
		writeError(w, http.StatusBadRequest, "document and field are required")
		return
	}

	doc, err := s.store.Get(r.Context(), req.Document)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	if doc.Value(req.Field) == nil {
		writeError(w, http.StatusBadRequest, "field has no annotation to confirm: "+req.Field)
		return
	}

	doc.MarkFieldVerified(req.Field)
	doc.IsComplete = doc.Status(s.schema).IsComplete

	if err := s.store.Save(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListVerifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := annotate.VerificationFilter{
		NeedsReviewOnly: q.Get("needs_review") == "true",
	}
	filter.Limit, filter.Offset = pagination(q.Get("limit"), q.Get("offset"))

	out, err := s.store.ListVerifications(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if out == nil {
		out = []verify.DocumentVerification{}
	}
	writeJSON(w, http.StatusOK, out)
}

func pagination(limitStr, offsetStr string) (limit, offset int) {
	if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(offsetStr); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
