package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/iso-assessment/internal/models"
	"github.com/terra-clan/iso-assessment/internal/storage"
	"github.com/terra-clan/iso-assessment/internal/workspace"
)

// callerIdentity returns the identity set by the auth middleware
func callerIdentity(w http.ResponseWriter, r *http.Request) (*models.Identity, bool) {
	id := IdentityFromContext(r.Context())
	if id == nil {
		respondError(w, http.StatusUnauthorized, "not_authenticated", "authentication required")
		return nil, false
	}
	return id, true
}

func (s *Server) handleGetAnswers(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"answers":  s.workspaces.Answers(r.Context(), id.UserID),
		"progress": s.workspaces.Progress(r.Context(), id.UserID),
	})
}

func (s *Server) handleSetAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	questionID := chi.URLParam(r, "questionId")
	if questionID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "question id is required")
		return
	}

	var req models.SetAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	progress, err := s.workspaces.SetAnswer(r.Context(), id.UserID, questionID, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, workspace.ErrUnknownQuestion):
			respondError(w, http.StatusBadRequest, "unknown_question", "question is not part of the catalog")
		case errors.Is(err, workspace.ErrInvalidValue):
			respondError(w, http.StatusBadRequest, "invalid_value", "value must be one of the option values")
		default:
			slog.Error("failed to set answer", "error", err, "question_id", questionID)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to set answer")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"questionId": questionID,
		"value":      req.Value,
		"progress":   progress,
	})
}

func (s *Server) handleResetAnswers(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	s.workspaces.Reset(r.Context(), id.UserID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "answers cleared",
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, s.workspaces.Progress(r.Context(), id.UserID))
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, s.workspaces.Calculate(r.Context(), id.UserID))
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	result, err := s.workspaces.Result(r.Context(), id.UserID)
	if err != nil {
		switch {
		case errors.Is(err, workspace.ErrNoResult):
			respondError(w, http.StatusNotFound, "no_result", "no result calculated yet")
		case errors.Is(err, workspace.ErrResultStale):
			respondError(w, http.StatusConflict, "result_stale", "answers changed since the last calculation")
		default:
			slog.Error("failed to get result", "error", err)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to get result")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleSave calculates and reveals the result, then persists the answers.
// The result is returned even when persistence is unavailable or fails.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	resp := models.SaveResponse{
		Result: s.workspaces.Calculate(r.Context(), id.UserID),
		Mode:   id.Mode,
	}

	if !id.CanPersist() || !s.workspaces.PersistenceEnabled() {
		resp.Message = "result calculated; saving is unavailable in local mode"
		respondJSON(w, http.StatusOK, resp)
		return
	}

	revision, err := s.workspaces.Save(r.Context(), id)
	switch {
	case err == nil:
		resp.Persisted = true
		resp.Revision = revision
		resp.Message = "assessment saved"
	case errors.Is(err, storage.ErrStaleRevision):
		slog.Warn("save lost to a newer revision", "user_id", id.MaskedUserID())
		resp.Message = "result calculated; a newer save already exists"
	default:
		slog.Error("failed to persist assessment", "error", err, "user_id", id.MaskedUserID())
		resp.Message = "result calculated; saving failed"
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleLoad replaces the answers with the stored document. It never
// reveals a result.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	doc, err := s.workspaces.Load(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, workspace.ErrPersistenceDisabled):
			respondError(w, http.StatusConflict, "persistence_disabled", "loading is unavailable in local mode")
		case errors.Is(err, workspace.ErrNoSavedAssessment):
			respondJSON(w, http.StatusOK, models.LoadResponse{
				Answers: s.workspaces.Answers(r.Context(), id.UserID),
				Found:   false,
				Message: "no saved assessment found",
			})
		case errors.Is(err, workspace.ErrLoadSuperseded):
			respondError(w, http.StatusConflict, "load_superseded", "answers changed while loading; local answers kept")
		default:
			slog.Error("failed to load assessment", "error", err, "user_id", id.MaskedUserID())
			respondError(w, http.StatusInternalServerError, "storage_error", "failed to load assessment")
		}
		return
	}

	_, resultErr := s.workspaces.Result(r.Context(), id.UserID)
	savedAt := doc.SavedAt

	respondJSON(w, http.StatusOK, models.LoadResponse{
		Answers:       doc.Answers,
		Found:         true,
		SavedAt:       &savedAt,
		Revision:      doc.Revision,
		ResultIsStale: errors.Is(resultErr, workspace.ErrResultStale),
		Message:       "assessment loaded",
	})
}
