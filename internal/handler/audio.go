package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lumina/internal/httputil"
	"lumina/internal/logger"
	"lumina/internal/model"
	"lumina/internal/transport/http/middleware"
)

// AudioHandler drives the per-card audio players of a session.
type AudioHandler struct {
	log *logger.Logger
}

func NewAudioHandler(log *logger.Logger) *AudioHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AudioHandler{log: log}
}

// Payload handles GET /lessons/{id}/audio
// Returns the lesson's PCM payload, generating it on first request.
func (h *AudioHandler) Payload(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}

	res, err := session.AudioPayload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// Play handles POST /lessons/{id}/audio/play
// Toggles playback. A lesson without audio answers with state "loading".
func (h *AudioHandler) Play(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}

	status, err := session.PlayAudio(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// Status handles GET /lessons/{id}/audio/status
func (h *AudioHandler) Status(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.AudioStatus(chi.URLParam(r, "id")))
}

// Activate handles POST /lessons/{id}/audio/activate
func (h *AudioHandler) Activate(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}

	status, err := session.ActivateCard(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// Deactivate handles POST /lessons/{id}/audio/deactivate
func (h *AudioHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.DeactivateCard(chi.URLParam(r, "id")))
}

// Destroy handles DELETE /lessons/{id}/audio
func (h *AudioHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}
	session.DestroyCard(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AudioHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrLessonNotFound):
		httputil.WriteNotFound(w, "Lesson not found")
	case errors.Is(err, model.ErrAudioUnavailable):
		httputil.WriteServiceUnavailable(w, model.CodeAudioUnavailable, "Audio could not be generated")
	default:
		h.log.Error("[Audio] Request FAILED", "lesson_id", chi.URLParam(r, "id"), "error", err)
		httputil.WriteInternalError(w, "Audio request failed")
	}
}
