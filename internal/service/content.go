package service

import (
	"context"
	"time"

	"lumina/internal/gemini"
	"lumina/internal/logger"
	"lumina/internal/model"
)

const (
	// DefaultBatchSize is the number of interests sampled per feed fetch.
	DefaultBatchSize = 3

	// MaxInterestsPerFetch caps the remote calls a single fetch makes.
	MaxInterestsPerFetch = 3
)

// ContentService turns interests into lessons and lesson text into audio.
// None of its operations return errors: remote failures degrade to fallbacks.
type ContentService struct {
	generator gemini.Client
	rnd       Randomizer
	log       *logger.Logger
}

func NewContentService(generator gemini.Client, rnd Randomizer, log *logger.Logger) *ContentService {
	if rnd == nil {
		rnd = NewRandomizer()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ContentService{
		generator: generator,
		rnd:       rnd,
		log:       log,
	}
}

// FetchLessonsFor generates one lesson per sampled interest.
//
// Flow:
// 1. Sample up to count interests, never more than MaxInterestsPerFetch
//    (the default triple when none are set)
// 2. Request a lesson for each, one call at a time, in sample order
// 3. Fill missing fields with fallbacks; failed topics are skipped
// 4. If nothing succeeded, return the demo lesson alone
func (s *ContentService) FetchLessonsFor(ctx context.Context, interests []string, count int) []model.Lesson {
	startTime := time.Now()

	if len(interests) == 0 {
		interests = model.DefaultInterests
	}
	if count <= 0 {
		count = DefaultBatchSize
	}
	count = min(count, MaxInterestsPerFetch)
	topics := SampleInterests(s.rnd, interests, count)

	lessons := make([]model.Lesson, 0, len(topics))
	for _, topic := range topics {
		draft, err := s.generator.GenerateLesson(ctx, topic)
		if err != nil {
			s.log.Warn("[Content] GenerateLesson FAILED", "topic", topic, "error", err)
			continue
		}
		lessons = append(lessons, s.buildLesson(topic, draft))
	}

	if len(lessons) == 0 {
		s.log.Warn("[Content] FetchLessonsFor: no lessons generated, using demo lesson",
			"topics", topics, "duration", time.Since(startTime))
		return []model.Lesson{model.DemoLesson()}
	}

	s.log.Info("[Content] FetchLessonsFor OK",
		"requested", len(topics), "generated", len(lessons), "duration", time.Since(startTime))
	return lessons
}

func (s *ContentService) buildLesson(topic string, draft *model.LessonDraft) model.Lesson {
	return model.Lesson{
		ID:          s.rnd.NewID(),
		Title:       orDefault(draft.Title, model.FallbackTitle),
		Summary:     orDefault(draft.Summary, model.FallbackSummary),
		FullContent: orDefault(draft.FullContent, model.FallbackContent),
		Category:    orDefault(draft.Category, topic),
		Likes:       s.rnd.Intn(model.MaxRandomLikes),
		Comments:    []model.Comment{},
	}
}

// FetchLessonAudio synthesizes speech for text. ok is false when no audio
// came back for any reason.
func (s *ContentService) FetchLessonAudio(ctx context.Context, text string) (string, bool) {
	payload, err := s.generator.GenerateSpeech(ctx, text)
	if err != nil {
		s.log.Warn("[Content] GenerateSpeech FAILED", "chars", len(text), "error", err)
		return "", false
	}
	if payload == "" {
		return "", false
	}
	return payload, true
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
