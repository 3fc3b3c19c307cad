package service

import (
	"context"

	"lumina/internal/cache"
	"lumina/internal/logger"
	"lumina/internal/model"
)

// SpeechFetcher produces audio for lesson text. Implemented by ContentService.
type SpeechFetcher interface {
	FetchLessonAudio(ctx context.Context, text string) (string, bool)
}

// AudioService resolves a lesson's audio payload. Payloads are generated at
// most once per lesson and then served from the cache.
type AudioService struct {
	cache  cache.AudioCache
	speech SpeechFetcher
	log    *logger.Logger
}

func NewAudioService(audioCache cache.AudioCache, speech SpeechFetcher, log *logger.Logger) *AudioService {
	if audioCache == nil {
		audioCache = cache.NewMemoryAudioCache()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AudioService{
		cache:  audioCache,
		speech: speech,
		log:    log,
	}
}

// LessonAudio returns the payload for lesson, generating it from the lesson's
// full content on the first request. ok is false if none could be produced.
func (s *AudioService) LessonAudio(ctx context.Context, lesson model.Lesson) (string, bool) {
	if lesson.HasAudio() {
		return lesson.AudioBase64, true
	}

	payload, found, err := s.cache.Get(ctx, lesson.ID)
	if err != nil {
		s.log.Warn("[Audio] Cache get FAILED", "lesson_id", lesson.ID, "error", err)
	}
	if found {
		return payload, true
	}

	payload, ok := s.speech.FetchLessonAudio(ctx, lesson.FullContent)
	if !ok {
		return "", false
	}

	stored, err := s.cache.SetIfAbsent(ctx, lesson.ID, payload)
	if err != nil {
		s.log.Warn("[Audio] Cache set FAILED", "lesson_id", lesson.ID, "error", err)
		return payload, true
	}
	s.log.Info("[Audio] Generated", "lesson_id", lesson.ID, "audio_base64", stored)
	return stored, true
}
