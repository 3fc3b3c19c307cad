package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"lumina/internal/httputil"
	"lumina/internal/logger"
	"lumina/internal/model"
	"lumina/internal/transport/http/middleware"
)

// LessonHandler serves the feed, the creation studio and the profile.
type LessonHandler struct {
	log *logger.Logger
}

func NewLessonHandler(log *logger.Logger) *LessonHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LessonHandler{log: log}
}

// GetFeed handles GET /feed
// An empty feed with interests set is filled before responding.
func (h *LessonHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}

	if session.NeedsInitialFetch() {
		session.FetchInitialLessons(r.Context())
	}
	httputil.WriteJSON(w, http.StatusOK, session.Feed())
}

// Refresh handles POST /feed/refresh
// Replaces the feed with a new batch.
func (h *LessonHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}

	lessons := session.FetchInitialLessons(r.Context())
	h.log.Debug("[Lesson] Refresh OK", "session_id", session.ID(), "lessons", len(lessons))
	httputil.WriteJSON(w, http.StatusOK, session.Feed())
}

// Like handles POST /lessons/{id}/like
// Unknown lessons are ignored and answered with 204.
func (h *LessonHandler) Like(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}

	lesson, found := session.ToggleLike(chi.URLParam(r, "id"))
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lesson)
}

// Share handles POST /lessons/{id}/share
func (h *LessonHandler) Share(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.ShareLesson(chi.URLParam(r, "id")))
}

// Remix handles POST /lessons/{id}/remix
func (h *LessonHandler) Remix(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}

	if _, err := session.StartRemix(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, model.ErrLessonNotFound) {
			httputil.WriteNotFound(w, "Lesson not found")
			return
		}
		h.log.Error("[Lesson] Remix FAILED", "session_id", session.ID(), "error", err)
		httputil.WriteInternalError(w, "Failed to start remix")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.State())
}

// StartCreate handles POST /studio
func (h *LessonHandler) StartCreate(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}
	session.StartCreate()
	httputil.WriteJSON(w, http.StatusOK, session.State())
}

// CancelCreate handles DELETE /studio
func (h *LessonHandler) CancelCreate(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}
	session.CancelCreate()
	httputil.WriteJSON(w, http.StatusOK, session.State())
}

// Publish handles POST /studio/publish
// Title and content are required; the session trusts this check.
func (h *LessonHandler) Publish(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}

	var req model.PublishRequest
	if err := httputil.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		httputil.WriteBadRequest(w, model.ErrTitleRequired.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		httputil.WriteBadRequest(w, model.ErrContentRequired.Error())
		return
	}

	res := session.Publish(req.Title, req.Content, req.Source, req.Tag)
	httputil.WriteJSON(w, http.StatusCreated, res)
}

// Profile handles GET /profile
func (h *LessonHandler) Profile(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.Profile())
}
