package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryFixedWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(2, time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := m.Allow(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, want, ok, "hit %d", i)
	}
	ok, _ := m.Allow(ctx, "u2")
	require.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, _ = m.Allow(ctx, "u1")
	require.True(t, ok, "window resets")
}

func TestNewDrivers(t *testing.T) {
	l, err := New(Config{Driver: "off"})
	require.NoError(t, err)
	ok, _ := l.Allow(context.Background(), "k")
	require.True(t, ok)

	_, err = New(Config{Driver: "redis", RedisURL: "::bad"})
	require.Error(t, err)

	l, err = New(Config{Driver: "redis", RedisURL: "redis://localhost:6379/0", Limit: 1, Window: time.Second})
	require.NoError(t, err)
	require.IsType(t, &Redis{}, l)
}
