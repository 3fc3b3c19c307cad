package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	LogMode    string

	JWTSecret          string
	SessionTokenMaxAge int

	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiTextModel   string
	GeminiSpeechModel string
	GeminiVoice       string
	GeminiTimeout     time.Duration

	FeedBatchSize int

	PrefsDriver string
	PrefsDSN    string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisURL      string
	AudioCacheTTL time.Duration
	AudioOutput   string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	DefaultAvatarURL string
}

// Preference store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MaxFeedBatchSize bounds FEED_BATCH_SIZE.
const MaxFeedBatchSize = 3

// Audio output backends
const (
	AudioOutputNone    = "none"
	AudioOutputSpeaker = "speaker"
)

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	prefsDriver := strings.ToLower(strings.TrimSpace(os.Getenv("PREFS_DRIVER")))
	if prefsDriver != DriverPostgres {
		prefsDriver = DriverSQLite
	}
	prefsDSN := os.Getenv("PREFS_DSN")
	if prefsDSN == "" && prefsDriver == DriverSQLite {
		prefsDSN = "lumina.db"
	}

	audioOutput := strings.ToLower(strings.TrimSpace(os.Getenv("AUDIO_OUTPUT")))
	if audioOutput != AudioOutputSpeaker {
		audioOutput = AudioOutputNone
	}

	// A feed fetch never samples more than three interests.
	feedBatchSize := getEnvInt("FEED_BATCH_SIZE", MaxFeedBatchSize)
	if feedBatchSize <= 0 || feedBatchSize > MaxFeedBatchSize {
		feedBatchSize = MaxFeedBatchSize
	}

	return &Config{
		ServerPort: serverPort,
		LogMode:    getEnv("LOG_MODE", "dev"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		SessionTokenMaxAge: getEnvInt("SESSION_TOKEN_MAX_AGE", 86400),

		GeminiAPIKey:      strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:     strings.TrimRight(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"), "/"),
		GeminiTextModel:   getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiSpeechModel: getEnv("GEMINI_SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),
		GeminiVoice:       getEnv("GEMINI_VOICE", "Puck"),
		GeminiTimeout:     time.Duration(getEnvInt("GEMINI_TIMEOUT_SECONDS", 0)) * time.Second,

		FeedBatchSize: feedBatchSize,

		PrefsDriver: prefsDriver,
		PrefsDSN:    prefsDSN,

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		RedisURL:      os.Getenv("REDIS_URL"),
		AudioCacheTTL: time.Duration(getEnvInt("AUDIO_CACHE_TTL", 3600)) * time.Second,
		AudioOutput:   audioOutput,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		DefaultAvatarURL: os.Getenv("DEFAULT_AVATAR_URL"),
	}, nil
}

// MediaConfigured reports whether every R2 setting needed for avatar uploads is present.
func (c *Config) MediaConfigured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicURL != ""
}

func getEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// getEnvInt returns def when the variable is unset, malformed or negative.
func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v < 0 {
		return def
	}
	return v
}
