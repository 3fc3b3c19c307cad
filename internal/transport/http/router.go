package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lumina/internal/handler"
	"lumina/internal/httputil"
	sessionmw "lumina/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	SessionHandler *handler.SessionHandler
	LessonHandler  *handler.LessonHandler
	AudioHandler   *handler.AudioHandler
	MediaHandler   *handler.MediaHandler
	Tokens         sessionmw.TokenParser
	Sessions       sessionmw.SessionLookup
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public routes
	r.Get("/interests", cfg.SessionHandler.Interests)
	r.Post("/sessions", cfg.SessionHandler.Create)

	// Session routes
	r.Group(func(r chi.Router) {
		r.Use(sessionmw.SessionMiddleware(cfg.Tokens, cfg.Sessions))

		r.Route("/session", func(r chi.Router) {
			r.Get("/", cfg.SessionHandler.Get)
			r.Delete("/", cfg.SessionHandler.End)
			r.Post("/onboarding", cfg.SessionHandler.CompleteOnboarding)
			r.Post("/view", cfg.SessionHandler.Navigate)
		})

		r.Get("/feed", cfg.LessonHandler.GetFeed)
		r.Post("/feed/refresh", cfg.LessonHandler.Refresh)

		r.Route("/lessons/{id}", func(r chi.Router) {
			r.Post("/like", cfg.LessonHandler.Like)
			r.Post("/share", cfg.LessonHandler.Share)
			r.Post("/remix", cfg.LessonHandler.Remix)

			r.Get("/audio", cfg.AudioHandler.Payload)
			r.Delete("/audio", cfg.AudioHandler.Destroy)
			r.Get("/audio/status", cfg.AudioHandler.Status)
			r.Post("/audio/play", cfg.AudioHandler.Play)
			r.Post("/audio/activate", cfg.AudioHandler.Activate)
			r.Post("/audio/deactivate", cfg.AudioHandler.Deactivate)
		})

		r.Post("/studio", cfg.LessonHandler.StartCreate)
		r.Delete("/studio", cfg.LessonHandler.CancelCreate)
		r.Post("/studio/publish", cfg.LessonHandler.Publish)

		r.Get("/profile", cfg.LessonHandler.Profile)
		r.Post("/profile/avatar", cfg.MediaHandler.UploadAvatar)
	})

	return r
}
