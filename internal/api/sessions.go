package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/pfbot/internal/pipeline"
	"github.com/kalambet/pfbot/internal/profile"
	"github.com/kalambet/pfbot/internal/reference"
	"github.com/kalambet/pfbot/internal/session"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ChatDeps holds what the public chat routes need.
type ChatDeps struct {
	Sessions *session.Registry
	Advisor  *pipeline.Advisor
}

// NewChatHandler returns the public chat API. Sessions are addressed by the
// id returned from POST /sessions; there is no authentication.
func NewChatHandler(deps ChatDeps) http.Handler {
	r := chi.NewRouter()
	chatRoutes(r, deps)
	return r
}

// NewHandler serves the chat API and the token-protected management API from
// one router.
func NewHandler(chat ChatDeps, app AppDeps) http.Handler {
	r := chi.NewRouter()
	chatRoutes(r, chat)
	r.Group(func(r chi.Router) {
		appRoutes(r, app)
	})
	return r
}

func chatRoutes(r chi.Router, deps ChatDeps) {
	r.Get("/health", handleHealth)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", handleCreateSession(deps))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handleGetSession(deps))
			r.Delete("/", handleDeleteSession(deps))
			r.Post("/messages", handleMessage(deps))
			r.Post("/advice", handleAdvice(deps))
			r.Post("/reset", handleReset(deps))
			r.Post("/reference", handleShowReference(deps))
		})
	})

	r.Get("/reference", handleListReference)
	r.Get("/reference/{title}", handleGetReference)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	ID           string `json:"id"`
	Greeting     string `json:"greeting"`
	NextQuestion string `json:"next_question"`
}

func handleCreateSession(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := deps.Sessions.Create()
		writeJSON(w, http.StatusCreated, CreateSessionResponse{
			ID:           snap.ID,
			Greeting:     session.Greeting,
			NextQuestion: snap.NextQuestion,
		})
	}
}

func handleGetSession(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := deps.Sessions.Snapshot(chi.URLParam(r, "id"))
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleDeleteSession(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
			sessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// MessageRequest is the body of POST /sessions/{id}/messages.
type MessageRequest struct {
	Content string `json:"content"`
}

func handleMessage(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req MessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required")
			return
		}

		var reply pipeline.Reply
		err := deps.Sessions.With(chi.URLParam(r, "id"), func(s *session.Session) error {
			reply = deps.Advisor.Respond(r.Context(), s, req.Content)
			return nil
		})
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

func handleAdvice(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var answers profile.Answers
		if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if answers.IsEmpty() {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one answer is required")
			return
		}

		var reply pipeline.Reply
		err := deps.Sessions.With(chi.URLParam(r, "id"), func(s *session.Session) error {
			reply = deps.Advisor.Advise(r.Context(), s, answers)
			return nil
		})
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

func handleReset(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Sessions.With(chi.URLParam(r, "id"), func(s *session.Session) error {
			s.Reset()
			return nil
		})
		if err != nil {
			sessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReferenceRequest is the body of POST /sessions/{id}/reference.
type ReferenceRequest struct {
	Title string `json:"title"`
}

func handleShowReference(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ReferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		card, ok := reference.Lookup(req.Title)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "no reference card titled %q", req.Title)
			return
		}

		err := deps.Sessions.With(chi.URLParam(r, "id"), func(s *session.Session) error {
			s.ShowReference(card)
			return nil
		})
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, card)
	}
}

func handleListReference(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reference.All())
}

func handleGetReference(w http.ResponseWriter, r *http.Request) {
	title, err := url.PathUnescape(chi.URLParam(r, "title"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid title: %v", err)
		return
	}
	card, ok := reference.Lookup(title)
	if !ok {
		httpError(w, http.StatusNotFound, "not_found", "no reference card titled %q", title)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	slog.Error("session operation failed", "error", err)
	httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
}
