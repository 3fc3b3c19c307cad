package model

import (
	"errors"
	"time"
)

// View is the screen currently shown to the user.
type View string

const (
	ViewOnboarding View = "onboarding"
	ViewFeed       View = "feed"
	ViewProfile    View = "profile"
)

// Valid reports whether v is one of the three known views.
func (v View) Valid() bool {
	switch v {
	case ViewOnboarding, ViewFeed, ViewProfile:
		return true
	}
	return false
}

// SessionState is a read-only snapshot of a session for the view layer.
type SessionState struct {
	SessionID          string   `json:"session_id"`
	View               View     `json:"view"`
	User               User     `json:"user"`
	Lessons            []Lesson `json:"lessons"`
	LikedLessons       []Lesson `json:"liked_lessons"`
	UserCreatedLessons []Lesson `json:"user_created_lessons"`
	IsLoadingFeed      bool     `json:"is_loading_feed"`
	IsCreating         bool     `json:"is_creating"`
	RemixSource        *Lesson  `json:"remix_source,omitempty"`
	LoadingAudio       []string `json:"loading_audio"`
}

// ProfileResponse is the profile screen payload.
type ProfileResponse struct {
	User               User     `json:"user"`
	LikedLessons       []Lesson `json:"liked_lessons"`
	UserCreatedLessons []Lesson `json:"user_created_lessons"`
}

// FeedResponse is the feed screen payload.
type FeedResponse struct {
	Lessons       []Lesson `json:"lessons"`
	IsLoadingFeed bool     `json:"is_loading_feed"`
}

// CreateSessionResponse carries the session token and initial state.
type CreateSessionResponse struct {
	Token     string       `json:"token"`
	DeviceID  string       `json:"device_id"`
	ExpiresIn int          `json:"expires_in"`
	State     SessionState `json:"state"`
}

// NavigateRequest is the request body for switching views.
type NavigateRequest struct {
	View View `json:"view"`
}

// SessionClaims identifies the session behind a request.
type SessionClaims struct {
	SessionID string
	DeviceID  string
	ExpiresAt time.Time
}

// Error codes for HTTP responses
const (
	CodeSessionExpired     = "SESSION_EXPIRED"
	CodeSessionInvalid     = "SESSION_INVALID"
	CodeOnboardingRequired = "ONBOARDING_REQUIRED"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidView        = errors.New("invalid view")
	ErrOnboardingRequired = errors.New("onboarding not completed")

	ErrSessionTokenExpired = errors.New("session token expired")
	ErrSessionTokenInvalid = errors.New("session token invalid")
)
