package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// fail maps service errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.log.WithError(err).Errorf("%s %s failed", r.Method, r.URL.Path)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRun answers 200 with the result whether the test passed or not.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.svc.Run(r.Context(), r.URL.Query().Get("testId"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRunDraft(w http.ResponseWriter, r *http.Request) {
	var draft domain.DraftTest
	if !decodeBody(w, r, &draft) {
		return
	}
	res, err := s.svc.RunDraft(r.Context(), draft)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRunBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchRunRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.svc.RunBatch(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSaveVersion(w http.ResponseWriter, r *http.Request) {
	var def domain.TestDefinition
	if !decodeBody(w, r, &def) {
		return
	}
	v, err := s.svc.SaveVersion(r.Context(), chi.URLParam(r, "testId"), def)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListLatest(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "testId")
	v, err := s.svc.Latest(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if v == nil {
		respondError(w, http.StatusNotFound, "test not found: "+id)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.svc.Publish(r.Context(), chi.URLParam(r, "testId"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, out)
}

func (s *Server) handleSpecFiles(w http.ResponseWriter, r *http.Request) {
	specs, err := s.svc.SpecFiles(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, specs)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	list, err := s.svc.Reports(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.svc.Report(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "report not found: "+id)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := s.svc.DeleteReport(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "report not found: "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
