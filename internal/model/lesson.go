package model

import "errors"

// Lesson is a single micro-learning card in the feed.
type Lesson struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Summary     string  `json:"summary"`
	FullContent string  `json:"full_content"`
	Category    string  `json:"category"`
	Source      *string `json:"source,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`

	Likes    int       `json:"likes"`
	IsLiked  bool      `json:"is_liked"`
	Comments []Comment `json:"comments"`

	// Set once at creation time.
	IsUserCreated bool `json:"is_user_created"`

	// Snapshot of the remix source captured at publish time.
	ReferencedLesson *ReferencedLesson `json:"referenced_lesson,omitempty"`

	// Base64 PCM payload; empty until the first playback request.
	AudioBase64 string `json:"audio_base64,omitempty"`
}

// ReferencedLesson is an immutable snapshot of the lesson a remix was based on.
type ReferencedLesson struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Comment is carried on lessons for display; there are no comment operations.
type Comment struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// LessonDraft is the structured text returned by the remote generator.
// Any field may be empty; the orchestrator substitutes fallbacks.
type LessonDraft struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	FullContent string `json:"fullContent"`
	Category    string `json:"category"`
}

// WithAudio returns a copy of the lesson carrying the given audio payload.
// A lesson that already has audio is returned unchanged.
func (l Lesson) WithAudio(audioBase64 string) Lesson {
	if l.AudioBase64 != "" || audioBase64 == "" {
		return l
	}
	l.AudioBase64 = audioBase64
	return l
}

// HasAudio reports whether the audio payload has been cached on the lesson.
func (l Lesson) HasAudio() bool {
	return l.AudioBase64 != ""
}

// Fallback strings used when a generated lesson is missing a field.
const (
	FallbackTitle   = "Lição Sem Título"
	FallbackSummary = "Sem resumo disponível."
	FallbackContent = "Conteúdo indisponível."
)

// RemixAuthor is the fixed author placed on referenced-lesson snapshots.
const RemixAuthor = "Instrutor IA"

// SummaryLength is the number of characters of content kept in a derived summary.
const SummaryLength = 50

// MaxRandomLikes bounds the like count seeded on generated lessons (exclusive).
const MaxRandomLikes = 100

// DemoLesson is returned when no remote lesson could be generated.
func DemoLesson() Lesson {
	source := "Wikipedia"
	return Lesson{
		ID:          "demo-1",
		Title:       "A Técnica Pomodoro",
		Summary:     "Um método de gestão de tempo que usa intervalos.",
		FullContent: "A Técnica Pomodoro é um método de gerenciamento de tempo desenvolvido por Francesco Cirillo. A técnica usa um cronômetro para dividir o trabalho em intervalos, tradicionalmente de 25 minutos.",
		Category:    "Produtividade",
		Source:      &source,
		Likes:       42,
		Comments:    []Comment{},
	}
}

// PublishRequest is the request body for publishing a user-authored lesson.
type PublishRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
	Tag     string `json:"tag"`
}

// PublishResult carries the new lesson and the scroll-to-top signal for the view layer.
type PublishResult struct {
	Lesson      Lesson `json:"lesson"`
	ScrollToTop bool   `json:"scroll_to_top"`
}

// ShareResult is returned by the share stub.
type ShareResult struct {
	LessonID string `json:"lesson_id"`
	Shared   bool   `json:"shared"`
	Message  string `json:"message"`
}

// Lesson errors
var (
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrTitleRequired   = errors.New("title is required")
	ErrContentRequired = errors.New("content is required")
)

// Generation errors, returned by the lesson and speech generator
var (
	ErrMissingAPIKey = errors.New("gemini: missing API key")
	ErrEmptyResponse = errors.New("gemini: empty response")
)
