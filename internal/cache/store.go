// Package cache is the small key/value store behind job status and the
// credential cache. Redis backs it in production; MemoryStore serves single
// process deployments and tests.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// GetJSON decodes the value under key into dst.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cache value %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}
