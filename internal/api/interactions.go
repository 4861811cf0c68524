package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/pfbot/internal/storage"
)

// AppDeps holds dependencies for the management API.
type AppDeps struct {
	Store *storage.Store
	Token string
}

// NewAppHandler returns the token-protected routes over the interaction log.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	appRoutes(r, deps)
	return r
}

func appRoutes(r chi.Router, deps AppDeps) {
	r.Use(BearerAuth(deps.Token))

	r.Get("/interactions", handleListInteractions(deps))
	r.Get("/interactions/{id}", handleGetInteraction(deps))
	r.Post("/interactions/{id}/feedback", handleFeedback(deps))
	r.Delete("/interactions/{id}", handleDeleteInteraction(deps))
}

// InteractionPage is the response of GET /interactions.
type InteractionPage struct {
	Total        int                   `json:"total"`
	Interactions []storage.Interaction `json:"interactions"`
}

func handleListInteractions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		var (
			interactions []storage.Interaction
			err          error
		)
		if sid := r.URL.Query().Get("session_id"); sid != "" {
			interactions, err = deps.Store.ListSessionInteractions(sid, limit)
		} else {
			interactions, err = deps.Store.ListInteractions(limit, offset)
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}
		if interactions == nil {
			interactions = []storage.Interaction{}
		}

		total, err := deps.Store.CountInteractions()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count interactions: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, InteractionPage{Total: total, Interactions: interactions})
	}
}

func handleGetInteraction(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		interaction, err := deps.Store.GetInteraction(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get interaction: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, interaction)
	}
}

// FeedbackRequest is the body of POST /interactions/{id}/feedback.
// Score is -1 (unhelpful), 0 (neutral) or 1 (helpful).
type FeedbackRequest struct {
	Score int    `json:"score"`
	Notes string `json:"notes"`
}

func handleFeedback(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req FeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Score < -1 || req.Score > 1 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "score must be -1, 0 or 1")
			return
		}

		err := deps.Store.UpdateFeedback(chi.URLParam(r, "id"), req.Score, req.Notes)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save feedback: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func handleDeleteInteraction(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteInteraction(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete interaction: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
