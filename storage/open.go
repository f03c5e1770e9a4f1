package storage

import (
	"context"
	"fmt"
	"time"

	"rent-estimator/utils"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options selects and configures a listings backend.
type Options struct {
	Backend string

	PostgresDSN string
	MaxRetries  int

	RedisAddr   string
	RedisDB     int
	RedisPrefix string

	Logger *utils.Logger
}

// Open connects to the listings backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (ListingStore, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendPostgres:
		ps, err := NewPostgresStore(ctx, opts.PostgresDSN, &utils.RetryConfig{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   time.Second,
			Logger:      opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		return ps, nil
	case BackendRedis:
		rs, err := NewRedisStore(ctx, opts.RedisAddr, opts.RedisDB, opts.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("storage: unknown listings backend %q", opts.Backend)
	}
}
