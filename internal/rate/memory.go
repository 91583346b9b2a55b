package rate

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter: misma ventana fija que RedisLimiter pero in-process.
// Sirve para dev y single-instance; no coordina entre réplicas.
type MemoryLimiter struct {
	c      *gocache.Cache
	Max    int64
	Window time.Duration
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, window),
		Max:    int64(max),
		Window: window,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)
	k := fmt.Sprintf("%s:%d", key, winStart.Unix())
	winEnd := winStart.Add(l.Window)

	// Add es no-op si la key ya existe en esta ventana
	_ = l.c.Add(k, int64(0), winEnd.Sub(now))
	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		// la key expiró entre Add e Increment; arrancamos ventana nueva
		l.c.Set(k, int64(1), winEnd.Sub(now))
		hits = 1
	}

	allowed := hits <= l.Max
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   winEnd.Sub(now),
	}
	if !allowed {
		res.RetryAfter = winEnd.Sub(now)
	}
	return res, nil
}
