package cache

import (
	"context"
	"time"
)

// Cache is the contract for the read-through cache layer.
type Cache interface {
	// Get loads key into dest. found is false on a miss and dest is untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Delete(ctx context.Context, keys ...string) error

	DeletePattern(ctx context.Context, pattern string) error

	Ping(ctx context.Context) error
}
