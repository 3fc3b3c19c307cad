package handler

import (
	"errors"
	"net/http"

	"lumina/internal/httputil"
	"lumina/internal/logger"
	"lumina/internal/model"
	"lumina/internal/service"
	"lumina/internal/transport/http/middleware"
)

const maxJSONBody = 1 << 20

// SessionHandler groups the session lifecycle and navigation endpoints.
type SessionHandler struct {
	sessions *service.SessionManager
	tokens   *service.TokenService
	log      *logger.Logger
}

func NewSessionHandler(sessions *service.SessionManager, tokens *service.TokenService, log *logger.Logger) *SessionHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionHandler{sessions: sessions, tokens: tokens, log: log}
}

// Interests handles GET /interests
func (h *SessionHandler) Interests(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string][]string{"interests": model.InterestCatalog})
}

// Create handles POST /sessions
// A device keeps its identity by presenting any token previously issued to
// it, expired or not. Without one the server issues a new device id.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var deviceID string
	if previous := middleware.TokenFromRequest(r); previous != "" {
		id, err := h.tokens.DeviceID(previous)
		if err != nil {
			h.log.Warn("[Session] Create: ignoring unverifiable token", "error", err)
		}
		deviceID = id
	}

	session, err := h.sessions.Create(r.Context(), deviceID)
	if err != nil {
		h.log.Error("[Session] Create FAILED", "device_id", deviceID, "error", err)
		httputil.WriteInternalError(w, "Failed to start session")
		return
	}

	token, err := h.tokens.Issue(session.ID(), session.DeviceID())
	if err != nil {
		_ = h.sessions.End(session.ID())
		h.log.Error("[Session] Issue token FAILED", "session_id", session.ID(), "error", err)
		httputil.WriteInternalError(w, "Failed to start session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   h.tokens.MaxAge(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	httputil.WriteJSON(w, http.StatusCreated, model.CreateSessionResponse{
		Token:     token,
		DeviceID:  session.DeviceID(),
		ExpiresIn: h.tokens.MaxAge(),
		State:     session.State(),
	})
}

// Get handles GET /session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.State())
}

// End handles DELETE /session
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}

	// Already-ended sessions are fine; the cookie is cleared either way.
	_ = h.sessions.End(session.ID())

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// CompleteOnboarding handles POST /session/onboarding
func (h *SessionHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}

	var req model.OnboardingRequest
	if err := httputil.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := session.CompleteOnboarding(r.Context(), req.Interests); err != nil {
		if errors.Is(err, model.ErrInterestsRequired) {
			httputil.WriteBadRequest(w, "Select at least one interest")
			return
		}
		h.log.Error("[Session] CompleteOnboarding FAILED", "session_id", session.ID(), "error", err)
		httputil.WriteInternalError(w, "Failed to save interests")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, session.State())
}

// Navigate handles POST /session/view
func (h *SessionHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}

	var req model.NavigateRequest
	if err := httputil.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := session.Navigate(req.View); err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidView):
			httputil.WriteBadRequest(w, "View must be onboarding, feed or profile")
		case errors.Is(err, model.ErrOnboardingRequired):
			httputil.WriteConflictWithCode(w, model.CodeOnboardingRequired, "Complete onboarding first")
		default:
			httputil.WriteInternalError(w, "Failed to change view")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, session.State())
}
