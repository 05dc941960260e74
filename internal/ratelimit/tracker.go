// Package ratelimit tracks upstream cooldown windows and advisory locks in
// the shared cache. Both are best-effort: they are built on cache TTLs, not
// distributed consensus, which is acceptable because a duplicate upstream
// call is cheap and bounded by the upstream's own rate limiting.
package ratelimit

import (
	"context"
	"time"

	"coinlens/internal/cache"
)

const (
	blockPrefix = "ratelimit:"
	lockPrefix  = "lock:"
)

type Tracker struct {
	store cache.Store
	now   func() time.Time
}

func NewTracker(store cache.Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// Block records that op must not call upstream again for wait. The record
// carries its own TTL, so expiry doubles as the clear.
func (t *Tracker) Block(ctx context.Context, op string, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	until := t.now().Add(wait)
	return t.store.Set(ctx, blockPrefix+op, []byte(until.UTC().Format(time.RFC3339)), wait)
}

// IsBlocked reports whether op is inside a cooldown window and when the
// window ends.
func (t *Tracker) IsBlocked(ctx context.Context, op string) (time.Time, bool, error) {
	data, err := t.store.Get(ctx, blockPrefix+op)
	if err == cache.ErrMiss {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	until, err := time.Parse(time.RFC3339, string(data))
	if err != nil || !until.After(t.now()) {
		// Stale or unreadable record, drop it.
		_ = t.store.Del(ctx, blockPrefix+op)
		return time.Time{}, false, nil
	}
	return until, true, nil
}

func (t *Tracker) Clear(ctx context.Context, op string) error {
	return t.store.Del(ctx, blockPrefix+op)
}

// TryLock attempts to take the advisory per-operation lock. The TTL is a
// deadlock guard for crashed holders; callers must still Unlock on every
// exit path.
func (t *Tracker) TryLock(ctx context.Context, op string, ttl time.Duration) (bool, error) {
	return t.store.SetNX(ctx, lockPrefix+op, []byte("1"), ttl)
}

func (t *Tracker) Unlock(ctx context.Context, op string) error {
	return t.store.Del(ctx, lockPrefix+op)
}

// Keys returns every cache key the tracker may hold for op, for bulk clears.
func Keys(op string) []string {
	return []string{blockPrefix + op, lockPrefix + op}
}
