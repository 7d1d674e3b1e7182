package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))

	v, found, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("1"), v)

	now = now.Add(2 * time.Minute)
	_, found, _ = s.Get(ctx, "a")
	assert.False(t, found)
	_, found, _ = s.Get(ctx, "b")
	assert.True(t, found, "zero ttl never expires")

	require.NoError(t, s.Delete(ctx, "b"))
	_, found, _ = s.Get(ctx, "b")
	assert.False(t, found)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	type status struct {
		State string `json:"state"`
		Count int    `json:"count"`
	}
	require.NoError(t, SetJSON(ctx, s, "job:1", status{State: "running", Count: 3}, time.Hour))

	var got status
	found, err := GetJSON(ctx, s, "job:1", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, status{State: "running", Count: 3}, got)

	found, err = GetJSON(ctx, s, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "bad", []byte("{"), 0))
	_, err = GetJSON(ctx, s, "bad", &got)
	assert.Error(t, err)
}
