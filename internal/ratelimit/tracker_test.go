package ratelimit

import (
	"context"
	"testing"
	"time"

	"coinlens/internal/cache"
)

func TestBlockAndIsBlocked(t *testing.T) {
	t.Parallel()

	tr := NewTracker(cache.NewMemoryStore())
	ctx := context.Background()

	if _, blocked, err := tr.IsBlocked(ctx, "market"); err != nil || blocked {
		t.Fatalf("fresh op should not be blocked: %v %v", blocked, err)
	}

	if err := tr.Block(ctx, "market", time.Minute); err != nil {
		t.Fatalf("block: %v", err)
	}
	until, blocked, err := tr.IsBlocked(ctx, "market")
	if err != nil || !blocked {
		t.Fatalf("expected blocked: %v %v", blocked, err)
	}
	if remaining := time.Until(until); remaining <= 0 || remaining > time.Minute {
		t.Fatalf("unexpected blocked-until: %v", until)
	}

	// Other operations are unaffected.
	if _, blocked, _ := tr.IsBlocked(ctx, "news"); blocked {
		t.Fatal("news should not be blocked")
	}
}

func TestClearRemovesBlock(t *testing.T) {
	t.Parallel()

	tr := NewTracker(cache.NewMemoryStore())
	ctx := context.Background()

	_ = tr.Block(ctx, "market", time.Minute)
	if err := tr.Clear(ctx, "market"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, blocked, _ := tr.IsBlocked(ctx, "market"); blocked {
		t.Fatal("block survived clear")
	}

	// Clearing an absent record is a no-op.
	if err := tr.Clear(ctx, "market"); err != nil {
		t.Fatalf("idempotent clear: %v", err)
	}
}

func TestExpiredBlockIsDropped(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	tr := NewTracker(store)
	ctx := context.Background()

	_ = tr.Block(ctx, "market", time.Minute)
	tr.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	if _, blocked, _ := tr.IsBlocked(ctx, "market"); blocked {
		t.Fatal("expired block still reported")
	}
}

func TestGarbageBlockRecordIsDropped(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	tr := NewTracker(store)
	ctx := context.Background()

	_ = store.Set(ctx, "ratelimit:market", []byte("not a timestamp"), 0)
	if _, blocked, _ := tr.IsBlocked(ctx, "market"); blocked {
		t.Fatal("garbage record treated as block")
	}
	if _, err := store.Get(ctx, "ratelimit:market"); err != cache.ErrMiss {
		t.Fatal("garbage record not deleted")
	}
}

func TestTryLockMutualExclusion(t *testing.T) {
	t.Parallel()

	tr := NewTracker(cache.NewMemoryStore())
	ctx := context.Background()

	won, err := tr.TryLock(ctx, "market", time.Minute)
	if err != nil || !won {
		t.Fatalf("first lock should win: %v %v", won, err)
	}
	if won, _ := tr.TryLock(ctx, "market", time.Minute); won {
		t.Fatal("second lock should lose")
	}

	if err := tr.Unlock(ctx, "market"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if won, _ := tr.TryLock(ctx, "market", time.Minute); !won {
		t.Fatal("lock should be free after unlock")
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	keys := Keys("market")
	if len(keys) != 2 || keys[0] != "ratelimit:market" || keys[1] != "lock:market" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}
