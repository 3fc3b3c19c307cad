package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"lumina/internal/audio"
	"lumina/internal/logger"
	"lumina/internal/model"
	"lumina/internal/repository"
)

// LessonFetcher generates a batch of lessons for the given interests.
// Implemented by ContentService.
type LessonFetcher interface {
	FetchLessonsFor(ctx context.Context, interests []string, count int) []model.Lesson
}

// ShareMessage is returned by the share stub.
const ShareMessage = "Link copiado! (Simulado)"

// Session is the in-memory state of one client: its view, feed, likes and
// creation workflow. Every method is safe for concurrent use and applies its
// mutation atomically.
type Session struct {
	id        string
	deviceID  string
	content   LessonFetcher
	audio     audio.Source
	prefs     repository.PreferenceRepository
	rnd       Randomizer
	batchSize int
	log       *logger.Logger
	deck      *audio.Deck

	mu          sync.Mutex
	view        model.View
	user        model.User
	lessons     []model.Lesson
	liked       []model.Lesson
	loadingFeed int
	isCreating  bool
	remixSource *model.Lesson
	lastSeen    time.Time
}

func (s *Session) ID() string       { return s.id }
func (s *Session) DeviceID() string { return s.deviceID }

// Touch records activity on the session.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of the last recorded activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// CompleteOnboarding persists interests for the device and opens the feed.
func (s *Session) CompleteOnboarding(ctx context.Context, interests []string) error {
	if len(interests) == 0 {
		return model.ErrInterestsRequired
	}

	encoded, err := json.Marshal(interests)
	if err != nil {
		return fmt.Errorf("failed to encode interests: %w", err)
	}
	if err := s.prefs.Set(ctx, s.deviceID, model.InterestsKey, string(encoded)); err != nil {
		return fmt.Errorf("failed to persist interests: %w", err)
	}

	s.mu.Lock()
	s.user.Interests = append([]string(nil), interests...)
	s.view = model.ViewFeed
	s.mu.Unlock()

	s.log.Info("[Session] CompleteOnboarding OK", "session_id", s.id, "interests", interests)
	return nil
}

// Navigate switches the active view. Feed and profile require onboarding.
func (s *Session) Navigate(view model.View) error {
	if !view.Valid() {
		return model.ErrInvalidView
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if view != model.ViewOnboarding && len(s.user.Interests) == 0 {
		return model.ErrOnboardingRequired
	}
	s.view = view
	return nil
}

// ToggleLike flips the like on a lesson and keeps the liked list in step.
// Unknown ids are ignored; found reports whether the lesson existed.
func (s *Session) ToggleLike(lessonID string) (lesson model.Lesson, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(lessonID)
	if i < 0 {
		return model.Lesson{}, false
	}

	l := &s.lessons[i]
	l.IsLiked = !l.IsLiked
	if l.IsLiked {
		l.Likes++
		s.removeLikedLocked(lessonID)
		s.liked = append(s.liked, *l)
	} else {
		l.Likes--
		s.removeLikedLocked(lessonID)
	}
	return *l, true
}

func (s *Session) removeLikedLocked(lessonID string) {
	kept := s.liked[:0]
	for _, l := range s.liked {
		if l.ID != lessonID {
			kept = append(kept, l)
		}
	}
	s.liked = kept
}

// ShareLesson simulates sharing a lesson. Nothing is sent anywhere.
func (s *Session) ShareLesson(lessonID string) model.ShareResult {
	return model.ShareResult{LessonID: lessonID, Shared: true, Message: ShareMessage}
}

// StartRemix opens the creation workflow based on an existing lesson.
func (s *Session) StartRemix(lessonID string) (model.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(lessonID)
	if i < 0 {
		return model.Lesson{}, model.ErrLessonNotFound
	}
	src := s.lessons[i]
	s.remixSource = &src
	s.isCreating = true
	return src, nil
}

// StartCreate opens the creation workflow from scratch.
func (s *Session) StartCreate() {
	s.mu.Lock()
	s.remixSource = nil
	s.isCreating = true
	s.mu.Unlock()
}

// CancelCreate closes the creation workflow. The remix source is left as is.
func (s *Session) CancelCreate() {
	s.mu.Lock()
	s.isCreating = false
	s.mu.Unlock()
}

// Publish prepends a user-authored lesson to the feed and closes the creation
// workflow. Title and content are expected to be validated by the caller.
func (s *Session) Publish(title, content, source, tag string) model.PublishResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	lesson := model.Lesson{
		ID:            s.rnd.NewID(),
		Title:         title,
		Summary:       DeriveSummary(content),
		FullContent:   content,
		Category:      tag,
		Likes:         0,
		Comments:      []model.Comment{},
		IsUserCreated: true,
	}
	if source != "" {
		lesson.Source = &source
	}
	if s.remixSource != nil {
		lesson.ReferencedLesson = &model.ReferencedLesson{
			ID:     s.remixSource.ID,
			Title:  s.remixSource.Title,
			Author: model.RemixAuthor,
		}
	}

	s.lessons = append([]model.Lesson{lesson}, s.lessons...)
	s.isCreating = false
	s.remixSource = nil

	s.log.Info("[Session] Publish OK", "session_id", s.id, "lesson_id", lesson.ID,
		"remix", lesson.ReferencedLesson != nil)
	return model.PublishResult{Lesson: lesson, ScrollToTop: true}
}

// DeriveSummary returns the first SummaryLength characters of content
// followed by an ellipsis.
func DeriveSummary(content string) string {
	runes := []rune(content)
	if len(runes) > model.SummaryLength {
		runes = runes[:model.SummaryLength]
	}
	return string(runes) + "..."
}

// FetchInitialLessons replaces the feed with a freshly generated batch.
// Overlapping calls are allowed; the last one to finish wins. The fetch is
// not cancelled when ctx is: a dropped request still lands its lessons.
func (s *Session) FetchInitialLessons(ctx context.Context) []model.Lesson {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	s.loadingFeed++
	interests := append([]string(nil), s.user.Interests...)
	s.mu.Unlock()

	lessons := s.content.FetchLessonsFor(ctx, interests, s.batchSize)

	s.mu.Lock()
	previous := s.lessons
	s.lessons = lessons
	s.loadingFeed--
	out := cloneLessons(s.lessons)
	s.mu.Unlock()

	s.destroyDroppedCards(previous, lessons)
	return out
}

func (s *Session) destroyDroppedCards(previous, current []model.Lesson) {
	keep := make(map[string]bool, len(current))
	for _, l := range current {
		keep[l.ID] = true
	}
	for _, l := range previous {
		if !keep[l.ID] {
			s.deck.Destroy(l.ID)
		}
	}
}

// NeedsInitialFetch reports whether the feed is open, empty, not loading,
// and there are interests to fetch for.
func (s *Session) NeedsInitialFetch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view == model.ViewFeed && len(s.lessons) == 0 &&
		len(s.user.Interests) > 0 && s.loadingFeed == 0
}

// Lesson returns a copy of a lesson in the feed.
func (s *Session) Lesson(lessonID string) (model.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(lessonID)
	if i < 0 {
		return model.Lesson{}, model.ErrLessonNotFound
	}
	return s.lessons[i], nil
}

// AttachAudio sets a lesson's audio payload if it has none and returns the
// payload the lesson ends up with.
func (s *Session) AttachAudio(lessonID, payload string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(lessonID)
	if i < 0 {
		return payload
	}
	s.lessons[i] = s.lessons[i].WithAudio(payload)
	for j := range s.liked {
		if s.liked[j].ID == lessonID {
			s.liked[j] = s.liked[j].WithAudio(payload)
		}
	}
	return s.lessons[i].AudioBase64
}

// LessonAudio resolves a lesson's audio and caches it on the lesson.
// It is the audio.Source behind the session's card deck.
func (s *Session) LessonAudio(ctx context.Context, lesson model.Lesson) (string, bool) {
	if lesson.HasAudio() {
		return lesson.AudioBase64, true
	}
	payload, ok := s.audio.LessonAudio(ctx, lesson)
	if !ok {
		return "", false
	}
	return s.AttachAudio(lesson.ID, payload), true
}

// AudioPayload returns a lesson's audio for remote playback.
func (s *Session) AudioPayload(ctx context.Context, lessonID string) (*model.AudioPayloadResponse, error) {
	lesson, err := s.Lesson(lessonID)
	if err != nil {
		return nil, err
	}
	payload, ok := s.LessonAudio(ctx, lesson)
	if !ok {
		return nil, model.ErrAudioUnavailable
	}
	return &model.AudioPayloadResponse{
		LessonID:    lessonID,
		AudioBase64: payload,
		SampleRate:  model.AudioSampleRate,
		Channels:    model.AudioChannels,
		Encoding:    "pcm_s16le",
	}, nil
}

// PlayAudio presses the play control on a lesson's card.
func (s *Session) PlayAudio(ctx context.Context, lessonID string) (model.AudioStatus, error) {
	lesson, err := s.Lesson(lessonID)
	if err != nil {
		return model.AudioStatus{}, err
	}
	return s.deck.Play(ctx, lesson), nil
}

// ActivateCard marks a card as the visible one, stopping the others.
func (s *Session) ActivateCard(lessonID string) (model.AudioStatus, error) {
	if _, err := s.Lesson(lessonID); err != nil {
		return model.AudioStatus{}, err
	}
	return s.deck.Activate(lessonID), nil
}

// DeactivateCard marks a card as scrolled out of view.
func (s *Session) DeactivateCard(lessonID string) model.AudioStatus {
	return s.deck.Deactivate(lessonID)
}

// DestroyCard tears down a card's player.
func (s *Session) DestroyCard(lessonID string) {
	s.deck.Destroy(lessonID)
}

// AudioStatus reports the playback state of a card.
func (s *Session) AudioStatus(lessonID string) model.AudioStatus {
	return s.deck.Status(lessonID)
}

// SetAvatar replaces the user's avatar URL.
func (s *Session) SetAvatar(url string) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user.AvatarURL = url
	return cloneUser(s.user)
}

// State returns a snapshot of the whole session.
func (s *Session) State() model.SessionState {
	loadingAudio := s.deck.Loading()

	s.mu.Lock()
	defer s.mu.Unlock()

	state := model.SessionState{
		SessionID:          s.id,
		View:               s.view,
		User:               cloneUser(s.user),
		Lessons:            cloneLessons(s.lessons),
		LikedLessons:       cloneLessons(s.liked),
		UserCreatedLessons: s.userCreatedLocked(),
		IsLoadingFeed:      s.loadingFeed > 0,
		IsCreating:         s.isCreating,
		LoadingAudio:       loadingAudio,
	}
	if s.remixSource != nil {
		src := *s.remixSource
		state.RemixSource = &src
	}
	return state
}

// Feed returns the feed screen payload.
func (s *Session) Feed() model.FeedResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.FeedResponse{Lessons: cloneLessons(s.lessons), IsLoadingFeed: s.loadingFeed > 0}
}

// Profile returns the profile screen payload.
func (s *Session) Profile() model.ProfileResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.ProfileResponse{
		User:               cloneUser(s.user),
		LikedLessons:       cloneLessons(s.liked),
		UserCreatedLessons: s.userCreatedLocked(),
	}
}

// Close releases every audio card of the session.
func (s *Session) Close() {
	s.deck.Close()
}

// userCreatedLocked derives the created subset from the feed on every read.
func (s *Session) userCreatedLocked() []model.Lesson {
	out := make([]model.Lesson, 0)
	for _, l := range s.lessons {
		if l.IsUserCreated {
			out = append(out, l)
		}
	}
	return out
}

func (s *Session) indexLocked(lessonID string) int {
	for i := range s.lessons {
		if s.lessons[i].ID == lessonID {
			return i
		}
	}
	return -1
}

func cloneLessons(in []model.Lesson) []model.Lesson {
	out := make([]model.Lesson, len(in))
	copy(out, in)
	return out
}

func cloneUser(u model.User) model.User {
	u.Interests = append([]string{}, u.Interests...)
	return u
}
