package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"lumina/internal/audio"
	"lumina/internal/cache"
	"lumina/internal/config"
	"lumina/internal/database"
	"lumina/internal/gemini"
	"lumina/internal/handler"
	"lumina/internal/logger"
	"lumina/internal/redis"
	"lumina/internal/repository"
	"lumina/internal/service"
)

const (
	shutdownTimeout = 10 * time.Second
	reapInterval    = time.Minute
)

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Preference store
	db, err := database.Connect(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	prefs := repository.NewPreferenceRepository(db)

	// 3. Audio cache: Redis when configured, otherwise in-process
	var audioCache cache.AudioCache = cache.NewMemoryAudioCache()
	if cfg.RedisURL != "" {
		rdb, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rdb.Close()
		if err := rdb.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		audioCache = cache.NewRedisAudioCache(rdb.Client, cfg.AudioCacheTTL, log)
		log.Info("[Server] Audio cache: redis")
	}

	// 4. Remote generation
	generator := gemini.NewClient(gemini.Options{
		APIKey:      cfg.GeminiAPIKey,
		BaseURL:     cfg.GeminiBaseURL,
		TextModel:   cfg.GeminiTextModel,
		SpeechModel: cfg.GeminiSpeechModel,
		Voice:       cfg.GeminiVoice,
		Timeout:     cfg.GeminiTimeout,
	}, log)

	// 5. Audio output
	outputs := audio.OutputFactory(audio.HeadlessFactory)
	if cfg.AudioOutput == config.AudioOutputSpeaker {
		outputs = audio.SpeakerFactory
		defer audio.ShutdownSpeaker()
	}

	// 6. Services
	rnd := service.NewRandomizer()
	contentService := service.NewContentService(generator, rnd, log)
	audioService := service.NewAudioService(audioCache, contentService, log)
	sessions := service.NewSessionManager(contentService, audioService, prefs, rnd, outputs,
		cfg.FeedBatchSize, cfg.DefaultAvatarURL, log)
	defer sessions.CloseAll()
	secret := cfg.JWTSecret
	if secret == "" {
		// Sessions live in memory, so a per-process secret loses nothing on restart.
		secret = rnd.NewID()
		log.Warn("[Server] JWT_SECRET not set; using a per-process secret")
	}
	tokens := service.NewTokenService(secret, cfg.SessionTokenMaxAge)

	var store service.ObjectStore
	if cfg.MediaConfigured() {
		r2, err := service.NewR2Store(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to init media storage: %w", err)
		}
		store = r2
	} else {
		log.Info("[Server] R2 not configured; avatar uploads disabled")
	}
	mediaService := service.NewMediaService(store, cfg.R2PublicURL, rnd, log)

	go sessions.RunReaper(ctx, reapInterval, time.Duration(tokens.MaxAge())*time.Second)

	// 7. Router
	router := NewRouter(RouterConfig{
		SessionHandler: handler.NewSessionHandler(sessions, tokens, log),
		LessonHandler:  handler.NewLessonHandler(log),
		AudioHandler:   handler.NewAudioHandler(log),
		MediaHandler:   handler.NewMediaHandler(mediaService, log),
		Tokens:         tokens,
		Sessions:       sessions,
	})

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("[Server] Listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
