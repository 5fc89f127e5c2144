package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/iso-assessment/internal/models"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.workspaces.Ping(r.Context()); err != nil {
		slog.Error("readiness check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ready",
		"persistence": s.workspaces.PersistenceEnabled(),
		"identity":    s.identities.Enabled(),
	})
}

// Sign-in

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	id, err := s.identities.SignIn(r.Context(), req.Token)
	if err != nil {
		slog.Warn("sign-in rejected", "error", err, "remote_addr", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "sign_in_failed", "sign-in token rejected")
		return
	}

	resp := models.SignInResponse{
		UserID: id.UserID,
		Mode:   id.Mode,
	}

	if s.identities.Enabled() {
		token, err := s.identities.Issue(id)
		if err != nil {
			slog.Error("failed to issue access token", "error", err)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to issue access token")
			return
		}
		resp.AccessToken = token
		resp.ExpiresAt = id.ExpiresAt
	}

	slog.Info("user signed in", "user_id", id.MaskedUserID(), "mode", id.Mode)
	respondJSON(w, http.StatusOK, resp)
}

// Catalog handlers

type domainView struct {
	models.Domain
	ShortTitle string `json:"shortTitle"`
}

type catalogView struct {
	Domains        []domainView    `json:"domains"`
	Options        []models.Option `json:"options"`
	TotalQuestions int             `json:"totalQuestions"`
}

func newDomainView(d *models.Domain) domainView {
	return domainView{Domain: *d, ShortTitle: d.ShortTitle()}
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := s.workspaces.Catalog()

	view := catalogView{
		Domains:        make([]domainView, 0, len(catalog.Domains)),
		Options:        catalog.Options,
		TotalQuestions: catalog.TotalQuestions(),
	}
	for i := range catalog.Domains {
		view.Domains = append(view.Domains, newDomainView(&catalog.Domains[i]))
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "domain id is required")
		return
	}

	domain := s.workspaces.Catalog().GetDomain(id)
	if domain == nil {
		respondError(w, http.StatusNotFound, "not_found", "domain not found")
		return
	}

	respondJSON(w, http.StatusOK, newDomainView(domain))
}

func (s *Server) handleListOptions(w http.ResponseWriter, r *http.Request) {
	options := s.workspaces.Catalog().Options
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"options": options,
		"total":   len(options),
	})
}
