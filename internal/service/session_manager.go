package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"lumina/internal/audio"
	"lumina/internal/logger"
	"lumina/internal/model"
	"lumina/internal/repository"
)

// SessionManager creates, looks up and ends sessions.
type SessionManager struct {
	content   LessonFetcher
	audio     audio.Source
	prefs     repository.PreferenceRepository
	rnd       Randomizer
	outputs   audio.OutputFactory
	batchSize int
	avatarURL string
	log       *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager(
	content LessonFetcher,
	audioSource audio.Source,
	prefs repository.PreferenceRepository,
	rnd Randomizer,
	outputs audio.OutputFactory,
	batchSize int,
	avatarURL string,
	log *logger.Logger,
) *SessionManager {
	if rnd == nil {
		rnd = NewRandomizer()
	}
	if log == nil {
		log = logger.Nop()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SessionManager{
		content:   content,
		audio:     audioSource,
		prefs:     prefs,
		rnd:       rnd,
		outputs:   outputs,
		batchSize: batchSize,
		avatarURL: avatarURL,
		log:       log,
		sessions:  make(map[string]*Session),
	}
}

// Create starts a session for a device. A new device id is issued when
// deviceID is empty. Persisted interests skip onboarding.
func (m *SessionManager) Create(ctx context.Context, deviceID string) (*Session, error) {
	if deviceID == "" {
		deviceID = m.rnd.NewID()
	}

	interests, err := m.loadInterests(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	user := model.DefaultUser(m.avatarURL)
	view := model.ViewOnboarding
	if len(interests) > 0 {
		user.Interests = interests
		view = model.ViewFeed
	}

	s := &Session{
		id:        m.rnd.NewID(),
		deviceID:  deviceID,
		content:   m.content,
		audio:     m.audio,
		prefs:     m.prefs,
		rnd:       m.rnd,
		batchSize: m.batchSize,
		log:       m.log,
		view:      view,
		user:      user,
		lessons:   []model.Lesson{},
		liked:     []model.Lesson{},
		lastSeen:  time.Now(),
	}
	s.deck = audio.NewDeck(s, m.outputs, m.log)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.log.Info("[Session] Create OK", "session_id", s.id, "device_id", deviceID, "view", view)
	return s, nil
}

// loadInterests reads the device's persisted interests. A missing or
// unreadable entry means onboarding has not been completed.
func (m *SessionManager) loadInterests(ctx context.Context, deviceID string) ([]string, error) {
	raw, err := m.prefs.Get(ctx, deviceID, model.InterestsKey)
	if errors.Is(err, model.ErrPreferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var interests []string
	if err := json.Unmarshal([]byte(raw), &interests); err != nil {
		m.log.Warn("[Session] Stored interests unreadable, onboarding again", "device_id", deviceID, "error", err)
		return nil, nil
	}
	return interests, nil
}

// Get returns a live session.
func (m *SessionManager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	s.Touch()
	return s, nil
}

// End removes a session and releases its audio cards.
func (m *SessionManager) End(sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return model.ErrSessionNotFound
	}
	s.Close()
	m.log.Info("[Session] End OK", "session_id", sessionID)
	return nil
}

// ReapIdle ends sessions with no activity for longer than maxIdle and
// returns how many were ended.
func (m *SessionManager) ReapIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		m.log.Info("[Session] ReapIdle OK", "ended", len(expired))
	}
	return len(expired)
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll ends every session. Used on shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// RunReaper ends idle sessions every interval until ctx is done.
func (m *SessionManager) RunReaper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ReapIdle(maxIdle)
		}
	}
}
