package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/maintenance-service/internal/cache"
)

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := cache.NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	if val, ok, _ := store.Get(ctx, "k"); !ok || val != "v" {
		t.Fatalf("Get = %q, %v", val, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	_ = store.Set(ctx, "k", "v", 0)
	_ = store.Delete(ctx, "k")
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("entry should be gone")
	}
}
