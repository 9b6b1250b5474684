package core

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrCacheMiss = errors.New("cache miss")

const CacheKeyAdmissionStats = "admission:stats"

// Cache stores JSON-encoded values. GetJSON returns ErrCacheMiss when key is absent.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
