package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"lumina/internal/audio"
	"lumina/internal/httputil"
	"lumina/internal/model"
	"lumina/internal/service"
	"lumina/internal/transport/http/middleware"
)

// =============================================================================
// FAKES
// =============================================================================

type memoryPrefs struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memoryPrefs) Get(ctx context.Context, deviceID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[deviceID+"/"+key]
	if !ok {
		return "", model.ErrPreferenceNotFound
	}
	return v, nil
}

func (m *memoryPrefs) Set(ctx context.Context, deviceID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[deviceID+"/"+key] = value
	return nil
}

type stubFetcher struct {
	calls int
}

func (f *stubFetcher) FetchLessonsFor(ctx context.Context, interests []string, count int) []model.Lesson {
	f.calls++
	return []model.Lesson{
		{ID: "a", Title: "A", FullContent: "conteúdo", Likes: 3, Comments: []model.Comment{}},
		{ID: "b", Title: "B", FullContent: "conteúdo", Comments: []model.Comment{}},
	}
}

type stubAudio struct {
	payload string
}

func (s *stubAudio) LessonAudio(ctx context.Context, lesson model.Lesson) (string, bool) {
	if s.payload == "" {
		return "", false
	}
	return s.payload, true
}

type fixture struct {
	router  chi.Router
	session *service.Session
	fetcher *stubFetcher
}

func newFixture(t *testing.T, onboarded bool, audioPayload string) *fixture {
	t.Helper()
	fetcher := &stubFetcher{}
	manager := service.NewSessionManager(fetcher, &stubAudio{payload: audioPayload}, &memoryPrefs{},
		nil, audio.HeadlessFactory, 3, "", nil)
	session, err := manager.Create(context.Background(), "device-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(session.Close)
	if onboarded {
		if err := session.CompleteOnboarding(context.Background(), []string{"Arte"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	lessons := NewLessonHandler(nil)
	audioHandler := NewAudioHandler(nil)
	sessions := NewSessionHandler(manager, service.NewTokenService("secret", 60), nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithSession(req.Context(), session)))
		})
	})
	r.Get("/interests", sessions.Interests)
	r.Post("/session/onboarding", sessions.CompleteOnboarding)
	r.Post("/session/view", sessions.Navigate)
	r.Get("/feed", lessons.GetFeed)
	r.Post("/feed/refresh", lessons.Refresh)
	r.Post("/lessons/{id}/like", lessons.Like)
	r.Post("/lessons/{id}/share", lessons.Share)
	r.Post("/lessons/{id}/remix", lessons.Remix)
	r.Post("/studio", lessons.StartCreate)
	r.Delete("/studio", lessons.CancelCreate)
	r.Post("/studio/publish", lessons.Publish)
	r.Get("/profile", lessons.Profile)
	r.Get("/lessons/{id}/audio", audioHandler.Payload)
	r.Get("/lessons/{id}/audio/status", audioHandler.Status)
	r.Post("/lessons/{id}/audio/play", audioHandler.Play)
	r.Post("/lessons/{id}/audio/activate", audioHandler.Activate)
	r.Delete("/lessons/{id}/audio", audioHandler.Destroy)

	return &fixture{router: r, session: session, fetcher: fetcher}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var res httputil.ErrorResponse
	decode(t, rec, &res)
	return res.Error.Code
}

// =============================================================================
// TESTS
// =============================================================================

func TestInterests(t *testing.T) {
	f := newFixture(t, false, "")

	var body map[string][]string
	decode(t, f.do(t, http.MethodGet, "/interests", ""), &body)
	if len(body["interests"]) != len(model.InterestCatalog) {
		t.Errorf("expected %d interests, got %v", len(model.InterestCatalog), body)
	}
}

func TestGetFeed_AutoFetchesOnce(t *testing.T) {
	f := newFixture(t, true, "")

	rec := f.do(t, http.MethodGet, "/feed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var feed model.FeedResponse
	decode(t, rec, &feed)
	if len(feed.Lessons) != 2 {
		t.Errorf("expected 2 lessons, got %d", len(feed.Lessons))
	}

	f.do(t, http.MethodGet, "/feed", "")
	if f.fetcher.calls != 1 {
		t.Errorf("expected a single automatic fetch, got %d", f.fetcher.calls)
	}
}

func TestGetFeed_NoAutoFetchBeforeOnboarding(t *testing.T) {
	f := newFixture(t, false, "")

	rec := f.do(t, http.MethodGet, "/feed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.fetcher.calls != 0 {
		t.Errorf("expected no fetch, got %d", f.fetcher.calls)
	}
}

func TestRefresh_FetchesAgain(t *testing.T) {
	f := newFixture(t, true, "")
	f.do(t, http.MethodGet, "/feed", "")

	rec := f.do(t, http.MethodPost, "/feed/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.fetcher.calls != 2 {
		t.Errorf("expected 2 fetches, got %d", f.fetcher.calls)
	}
}

func TestOnboarding(t *testing.T) {
	f := newFixture(t, false, "")

	rec := f.do(t, http.MethodPost, "/session/onboarding", `{"interests":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty interests, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/session/onboarding", `{"interests":["Arte","Saúde"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var state model.SessionState
	decode(t, rec, &state)
	if state.View != model.ViewFeed || len(state.User.Interests) != 2 {
		t.Errorf("unexpected state %+v", state)
	}
}

func TestNavigate(t *testing.T) {
	f := newFixture(t, false, "")

	rec := f.do(t, http.MethodPost, "/session/view", `{"view":"profile"}`)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != model.CodeOnboardingRequired {
		t.Errorf("expected 409 ONBOARDING_REQUIRED, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/session/view", `{"view":"nowhere"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/session/view", `{"view":"onboarding"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestLike(t *testing.T) {
	f := newFixture(t, true, "")
	f.do(t, http.MethodGet, "/feed", "")

	rec := f.do(t, http.MethodPost, "/lessons/a/like", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var lesson model.Lesson
	decode(t, rec, &lesson)
	if !lesson.IsLiked || lesson.Likes != 4 {
		t.Errorf("unexpected lesson %+v", lesson)
	}

	rec = f.do(t, http.MethodPost, "/lessons/missing/like", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for unknown lesson, got %d", rec.Code)
	}
}

func TestShare(t *testing.T) {
	f := newFixture(t, true, "")

	rec := f.do(t, http.MethodPost, "/lessons/a/share", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res model.ShareResult
	decode(t, rec, &res)
	if !res.Shared {
		t.Error("expected share to report success")
	}
}

func TestPublish_Validation(t *testing.T) {
	f := newFixture(t, true, "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"empty title", `{"title":"  ","content":"c"}`, http.StatusBadRequest},
		{"empty content", `{"title":"t","content":""}`, http.StatusBadRequest},
		{"valid", `{"title":"Minha lição","content":"conteúdo","source":"eu","tag":"Arte"}`, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/studio/publish", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRemixThenPublish(t *testing.T) {
	f := newFixture(t, true, "")
	f.do(t, http.MethodGet, "/feed", "")

	rec := f.do(t, http.MethodPost, "/lessons/missing/remix", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/lessons/a/remix", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/studio/publish", `{"title":"Remix","content":"novo"}`)
	var res model.PublishResult
	decode(t, rec, &res)
	if res.Lesson.ReferencedLesson == nil || res.Lesson.ReferencedLesson.ID != "a" {
		t.Errorf("expected reference to lesson a, got %+v", res.Lesson.ReferencedLesson)
	}
	if !res.ScrollToTop {
		t.Error("expected scroll to top")
	}

	rec = f.do(t, http.MethodGet, "/profile", "")
	var profile model.ProfileResponse
	decode(t, rec, &profile)
	if len(profile.UserCreatedLessons) != 1 {
		t.Errorf("expected 1 created lesson, got %d", len(profile.UserCreatedLessons))
	}
}

func TestStudioOpenAndClose(t *testing.T) {
	f := newFixture(t, true, "")

	rec := f.do(t, http.MethodPost, "/studio", "")
	var state model.SessionState
	decode(t, rec, &state)
	if !state.IsCreating {
		t.Error("expected creation workflow open")
	}

	rec = f.do(t, http.MethodDelete, "/studio", "")
	state = model.SessionState{}
	decode(t, rec, &state)
	if state.IsCreating {
		t.Error("expected creation workflow closed")
	}
}

func TestAudioPayload(t *testing.T) {
	f := newFixture(t, true, "AAAA")
	f.do(t, http.MethodGet, "/feed", "")

	rec := f.do(t, http.MethodGet, "/lessons/a/audio", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res model.AudioPayloadResponse
	decode(t, rec, &res)
	if res.AudioBase64 != "AAAA" || res.SampleRate != 24000 {
		t.Errorf("unexpected payload %+v", res)
	}

	rec = f.do(t, http.MethodGet, "/lessons/missing/audio", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAudioPayload_Unavailable(t *testing.T) {
	f := newFixture(t, true, "")
	f.do(t, http.MethodGet, "/feed", "")

	rec := f.do(t, http.MethodGet, "/lessons/a/audio", "")
	if rec.Code != http.StatusServiceUnavailable || errorCode(t, rec) != model.CodeAudioUnavailable {
		t.Errorf("expected 503 AUDIO_UNAVAILABLE, got %d", rec.Code)
	}
}

func TestAudioPlayToggle(t *testing.T) {
	f := newFixture(t, true, "")
	f.do(t, http.MethodGet, "/feed", "")
	f.session.AttachAudio("a", strings.Repeat("AAAA", 48000))

	rec := f.do(t, http.MethodPost, "/lessons/a/audio/play", "")
	if !strings.Contains(rec.Body.String(), `"state":"playing"`) {
		t.Fatalf("expected playing, got %s", rec.Body.String())
	}

	var status model.AudioStatus
	decode(t, f.do(t, http.MethodGet, "/lessons/a/audio/status", ""), &status)
	if status.LessonID != "a" || !status.Active {
		t.Errorf("unexpected status: %+v", status)
	}

	rec = f.do(t, http.MethodPost, "/lessons/a/audio/play", "")
	if !strings.Contains(rec.Body.String(), `"state":"idle"`) {
		t.Errorf("expected idle, got %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/lessons/missing/audio/activate", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/lessons/a/audio", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandlers_RequireSession(t *testing.T) {
	h := NewLessonHandler(nil)
	rec := httptest.NewRecorder()
	h.GetFeed(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
