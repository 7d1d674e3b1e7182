// Package credential resolves source tokens to upstream bearer tokens.
package credential

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"orderbackup/internal/cache"
)

// Provider returns a valid access token for tokenID, or "" when there is none.
type Provider interface {
	GetValidAccessToken(ctx context.Context, userID, tokenID string) (string, error)
}

// Static serves tokens from configuration.
type Static struct {
	Tokens map[string]string
}

func NewStatic(tokens map[string]string) *Static {
	out := make(map[string]string, len(tokens))
	for id, tok := range tokens {
		id, tok = strings.TrimSpace(id), strings.TrimSpace(tok)
		if id == "" || tok == "" {
			continue
		}
		out[id] = tok
	}
	return &Static{Tokens: out}
}

func (s *Static) GetValidAccessToken(_ context.Context, _ string, tokenID string) (string, error) {
	if s == nil {
		return "", nil
	}
	return s.Tokens[strings.TrimSpace(tokenID)], nil
}

// TokenIDs lists the configured source tokens.
func (s *Static) TokenIDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Tokens))
	for id := range s.Tokens {
		out = append(out, id)
	}
	return out
}

// Cached memoizes another provider in a cache.Store. Empty answers are not
// cached so a token fixed upstream is picked up on the next run.
type Cached struct {
	Next   Provider
	Store  cache.Store
	TTL    time.Duration
	Logger *zap.Logger
}

func (c *Cached) GetValidAccessToken(ctx context.Context, userID, tokenID string) (string, error) {
	key := cacheKey(tokenID)
	if raw, found, err := c.Store.Get(ctx, key); err != nil {
		c.logger().Warn("credential cache read failed", zap.String("token_id", tokenID), zap.Error(err))
	} else if found && len(raw) > 0 {
		return string(raw), nil
	}

	tok, err := c.Next.GetValidAccessToken(ctx, userID, tokenID)
	if err != nil || tok == "" {
		return tok, err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if err := c.Store.Set(ctx, key, []byte(tok), ttl); err != nil {
		c.logger().Warn("credential cache write failed", zap.String("token_id", tokenID), zap.Error(err))
	}
	return tok, nil
}

// Invalidate drops the cached token, e.g. after upstream rejected it.
func (c *Cached) Invalidate(ctx context.Context, tokenID string) error {
	return c.Store.Delete(ctx, cacheKey(tokenID))
}

func (c *Cached) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func cacheKey(tokenID string) string {
	return "credential:" + strings.TrimSpace(tokenID)
}
