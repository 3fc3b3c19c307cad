package model

import "errors"

// User is the profile of the person viewing the feed.
type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Interests []string `json:"interests"`
	AvatarURL string   `json:"avatar_url"`
}

// DefaultUser returns the profile every new session starts with.
func DefaultUser(avatarURL string) User {
	if avatarURL == "" {
		avatarURL = DefaultAvatarURL
	}
	return User{
		ID:        "user_1",
		Name:      "Alex Silva",
		Interests: []string{},
		AvatarURL: avatarURL,
	}
}

// DefaultAvatarURL is used when no avatar has been configured or uploaded.
const DefaultAvatarURL = "https://picsum.photos/seed/user1/200"

// InterestsKey is the persisted preference entry holding the onboarding interests.
const InterestsKey = "lumina_interests"

// InterestCatalog is the fixed list of tags offered during onboarding.
var InterestCatalog = []string{
	"Filosofia", "Tecnologia", "História", "Psicologia",
	"Ciência", "Negócios", "Arte", "Saúde", "Literatura",
}

// DefaultInterests is sampled when the user has no interests.
var DefaultInterests = []string{"Tecnologia", "Ciência", "História"}

// OnboardingRequest is the request body for completing onboarding.
type OnboardingRequest struct {
	Interests []string `json:"interests"`
}

var (
	// ErrInterestsRequired is returned when onboarding is completed with no interests
	ErrInterestsRequired = errors.New("at least one interest is required")

	// ErrPreferenceNotFound is returned when a persisted preference entry does not exist
	ErrPreferenceNotFound = errors.New("preference not found")
)
