package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"lumina/internal/logger"
)

const (
	// AudioCachePrefix is the key prefix for cached lesson audio
	AudioCachePrefix = "audio:lesson:"

	// DefaultAudioCacheTTL bounds how long a payload outlives its session in Redis
	DefaultAudioCacheTTL = time.Hour
)

// AudioCache maps lesson ids to their base64 audio payload.
// Entries are write-once: the first payload stored for a lesson wins.
type AudioCache interface {
	// Get returns the payload for a lesson. found=false if none is cached.
	Get(ctx context.Context, lessonID string) (payload string, found bool, err error)

	// SetIfAbsent stores payload unless the lesson already has one and returns
	// whichever payload is cached afterwards.
	SetIfAbsent(ctx context.Context, lessonID, payload string) (stored string, err error)
}

// MemoryAudioCache is the in-process AudioCache used when Redis is not configured.
type MemoryAudioCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryAudioCache() *MemoryAudioCache {
	return &MemoryAudioCache{entries: make(map[string]string)}
}

func (c *MemoryAudioCache) Get(_ context.Context, lessonID string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	payload, ok := c.entries[lessonID]
	return payload, ok, nil
}

func (c *MemoryAudioCache) SetIfAbsent(_ context.Context, lessonID, payload string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[lessonID]; ok {
		return existing, nil
	}
	c.entries[lessonID] = payload
	return payload, nil
}

// RedisAudioCache implements AudioCache with SETNX so concurrent writers
// across processes agree on a single payload.
type RedisAudioCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisAudioCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisAudioCache {
	if ttl <= 0 {
		ttl = DefaultAudioCacheTTL
	}
	return &RedisAudioCache{client: client, ttl: ttl, log: log}
}

func audioKey(lessonID string) string {
	return AudioCachePrefix + lessonID
}

func (c *RedisAudioCache) Get(ctx context.Context, lessonID string) (string, bool, error) {
	payload, err := c.client.Get(ctx, audioKey(lessonID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		c.log.Warn("[AudioCache] Get FAILED", "lesson_id", lessonID, "error", err)
		return "", false, fmt.Errorf("get audio: %w", err)
	}
	return payload, true, nil
}

func (c *RedisAudioCache) SetIfAbsent(ctx context.Context, lessonID, payload string) (string, error) {
	key := audioKey(lessonID)
	startTime := time.Now()

	ok, err := c.client.SetNX(ctx, key, payload, c.ttl).Result()
	if err != nil {
		c.log.Warn("[AudioCache] SetIfAbsent FAILED", "lesson_id", lessonID, "error", err)
		return "", fmt.Errorf("set audio: %w", err)
	}
	if ok {
		c.log.Debug("[AudioCache] SetIfAbsent OK", "lesson_id", lessonID, "bytes", len(payload), "duration", time.Since(startTime))
		return payload, nil
	}

	// Lost the race: return the payload that is already cached.
	existing, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("get existing audio: %w", err)
	}
	return existing, nil
}
