package service

import (
	"context"
	"fmt"
	"sync"

	"lumina/internal/model"
)

// =============================================================================
// MOCKS
// =============================================================================

type mockGenerator struct {
	generateLessonFn func(ctx context.Context, topic string) (*model.LessonDraft, error)
	generateSpeechFn func(ctx context.Context, text string) (string, error)

	mu     sync.Mutex
	topics []string
	texts  []string
}

func (m *mockGenerator) GenerateLesson(ctx context.Context, topic string) (*model.LessonDraft, error) {
	m.mu.Lock()
	m.topics = append(m.topics, topic)
	m.mu.Unlock()
	if m.generateLessonFn != nil {
		return m.generateLessonFn(ctx, topic)
	}
	return nil, fmt.Errorf("no lesson for %s", topic)
}

func (m *mockGenerator) GenerateSpeech(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.generateSpeechFn != nil {
		return m.generateSpeechFn(ctx, text)
	}
	return "", fmt.Errorf("no speech")
}

// seqRandomizer always returns the lowest index and sequential ids.
type seqRandomizer struct {
	mu     sync.Mutex
	next   int
	intnFn func(n int) int
}

func (r *seqRandomizer) Intn(n int) int {
	if r.intnFn != nil {
		return r.intnFn(n)
	}
	return 0
}

func (r *seqRandomizer) NewID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	return fmt.Sprintf("id-%d", r.next)
}

type mockPreferenceRepository struct {
	getFn func(ctx context.Context, deviceID, key string) (string, error)
	setFn func(ctx context.Context, deviceID, key, value string) error

	mu     sync.Mutex
	values map[string]string
}

func (m *mockPreferenceRepository) Get(ctx context.Context, deviceID, key string) (string, error) {
	if m.getFn != nil {
		return m.getFn(ctx, deviceID, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[deviceID+"/"+key]
	if !ok {
		return "", model.ErrPreferenceNotFound
	}
	return v, nil
}

func (m *mockPreferenceRepository) Set(ctx context.Context, deviceID, key, value string) error {
	if m.setFn != nil {
		return m.setFn(ctx, deviceID, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[deviceID+"/"+key] = value
	return nil
}

type mockLessonFetcher struct {
	fetchFn func(ctx context.Context, interests []string, count int) []model.Lesson

	mu    sync.Mutex
	calls [][]string
}

func (m *mockLessonFetcher) FetchLessonsFor(ctx context.Context, interests []string, count int) []model.Lesson {
	m.mu.Lock()
	m.calls = append(m.calls, interests)
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, interests, count)
	}
	return []model.Lesson{model.DemoLesson()}
}

type mockAudioSource struct {
	lessonAudioFn func(ctx context.Context, lesson model.Lesson) (string, bool)
}

func (m *mockAudioSource) LessonAudio(ctx context.Context, lesson model.Lesson) (string, bool) {
	if m.lessonAudioFn != nil {
		return m.lessonAudioFn(ctx, lesson)
	}
	return "", false
}
