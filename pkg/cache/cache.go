package cache

import (
	"context"
	"time"
)

// Cache defines the interface for caching services.
// Get reports found=false, with a nil error, when the key does not exist.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// NopCache never stores anything. It is used when no cache backend is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (string, bool, error)        { return "", false, nil }
func (NopCache) Set(context.Context, string, string, time.Duration) error { return nil }
func (NopCache) Delete(context.Context, string) error                     { return nil }
func (NopCache) Close() error                                             { return nil }
