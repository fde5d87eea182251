// Package ratelimit provides fixed-window keyed counters. The redis
// implementation is shared by every instance; the memory one is for
// single-process development and tests.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type Limiter interface {
	// Allow counts one hit for key and reports whether it is within limit.
	Allow(ctx context.Context, key string) (bool, error)
}

type Config struct {
	Driver   string        `json:",default=memory,options=memory|redis|off"`
	RedisURL string        `json:",optional"`
	Prefix   string        `json:",default=chat:rl:"`
	Limit    int64         `json:",default=30"`
	Window   time.Duration `json:",default=10s"`
}

func New(c Config) (Limiter, error) {
	switch strings.ToLower(c.Driver) {
	case "redis":
		opt, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("ratelimit redis url: %w", err)
		}
		return NewRedis(redis.NewClient(opt), c.Prefix, c.Limit, c.Window), nil
	case "off":
		return Unlimited{}, nil
	default:
		return NewMemory(c.Limit, c.Window), nil
	}
}

type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

// The window starts at the first hit; PEXPIRE only on the first increment
// keeps the window fixed.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

type Redis struct {
	cli    redis.Scripter
	prefix string
	limit  int64
	window time.Duration
}

func NewRedis(cli redis.Scripter, prefix string, limit int64, window time.Duration) *Redis {
	return &Redis{cli: cli, prefix: prefix, limit: limit, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	n, err := incrScript.Run(ctx, r.cli, []string{r.prefix + key}, r.window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= r.limit, nil
}

type window struct {
	count int64
	reset time.Time
}

type Memory struct {
	mu     sync.Mutex
	limit  int64
	window time.Duration
	now    func() time.Time
	hits   map[string]*window
}

func NewMemory(limit int64, w time.Duration) *Memory {
	return &Memory{limit: limit, window: w, now: time.Now, hits: map[string]*window{}}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	w, ok := m.hits[key]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(m.window)}
		m.hits[key] = w
		m.gc(now)
	}
	w.count++
	return w.count <= m.limit, nil
}

// gc drops expired windows; called only when a new window opens.
func (m *Memory) gc(now time.Time) {
	for k, w := range m.hits {
		if !now.Before(w.reset) {
			delete(m.hits, k)
		}
	}
}
