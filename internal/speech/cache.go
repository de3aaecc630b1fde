package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"assistant-console/internal/metrics"
)

const redisKeyPrefix = "tts:preview:"

// Cache holds rendered previews keyed by (voice, text). The in-process tier is a
// bounded LRU safe for concurrent use; Redis, when set, is shared between instances.
type Cache struct {
	local   *lru.Cache[string, []byte]
	redis   *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *slog.Logger
}

type CacheOptions struct {
	Size     int
	Redis    *redis.Client
	RedisTTL time.Duration
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func NewCache(opts CacheOptions) (*Cache, error) {
	size := opts.Size
	if size <= 0 {
		size = 256
	}
	local, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	ttl := opts.RedisTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Cache{local: local, redis: opts.Redis, ttl: ttl, metrics: opts.Metrics, log: log}, nil
}

// CacheKey hashes the (voiceId, text) pair so arbitrary prompt text never lands in a
// Redis key. The voice id is length-prefixed so no two pairs share an encoding.
func CacheKey(voiceID, text string) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(len(voiceID))))
	h.Write([]byte{':'})
	h.Write([]byte(voiceID))
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if audio, ok := c.local.Get(key); ok {
		c.observe("memory", "hit")
		return audio, true
	}
	c.observe("memory", "miss")

	if c.redis == nil {
		return nil, false
	}
	audio, err := c.redis.Get(ctx, redisKeyPrefix+key).Bytes()
	switch {
	case err == nil:
		c.observe("redis", "hit")
		c.local.Add(key, audio)
		return audio, true
	case errors.Is(err, redis.Nil):
		c.observe("redis", "miss")
	default:
		c.observe("redis", "error")
		c.log.Warn("preview cache read failed", "err", err)
	}
	return nil, false
}

func (c *Cache) Set(ctx context.Context, key string, audio []byte) {
	c.local.Add(key, audio)
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, redisKeyPrefix+key, audio, c.ttl).Err(); err != nil {
		c.log.Warn("preview cache write failed", "err", err)
	}
}

// Len reports the in-process entry count.
func (c *Cache) Len() int { return c.local.Len() }

func (c *Cache) observe(tier, result string) {
	if c.metrics != nil {
		c.metrics.PreviewCache.WithLabelValues(tier, result).Inc()
	}
}
