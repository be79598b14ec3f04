package redisclient

import (
	"time"

	"subreddit-insights/internal/config"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client for the run log. Redis is optional here, so
// timeouts are short and an unreachable server fails fast instead of
// holding up a collection run.
func New(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxRetries:   1,
	})
}
