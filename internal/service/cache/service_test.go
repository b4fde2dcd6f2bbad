package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/domain"
)

func newTestCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheServiceFromClient(client, zap.NewNop()), mr
}

func TestCacheGetSet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var missing map[string]int
	found, err := c.Get(ctx, "missing", &missing)
	if err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	if err := c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got map[string]int
	found, err = c.Get(ctx, "k", &got)
	if err != nil || !found || got["a"] != 1 {
		t.Fatalf("expected hit with a=1, got %v found=%v err=%v", got, found, err)
	}
}

func TestCacheLock(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "lock:post", "owner-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, got %v %v", ok, err)
	}

	ok, err = c.AcquireLock(ctx, "lock:post", "owner-2", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second acquire to fail, got %v %v", ok, err)
	}

	// a foreign token must not release the lock
	if err := c.ReleaseLock(ctx, "lock:post", "owner-2"); err != nil {
		t.Fatalf("ReleaseLock() error = %v", err)
	}
	if !mr.Exists(keyPrefix + "lock:post") {
		t.Fatalf("lock released by wrong owner")
	}

	if err := c.ReleaseLock(ctx, "lock:post", "owner-1"); err != nil {
		t.Fatalf("ReleaseLock() error = %v", err)
	}
	if mr.Exists(keyPrefix + "lock:post") {
		t.Fatalf("lock not released by owner")
	}
}

func TestCacheLockExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if ok, _ := c.AcquireLock(ctx, "lock:post", "owner-1", time.Minute); !ok {
		t.Fatalf("expected acquire to succeed")
	}
	mr.FastForward(2 * time.Minute)

	if ok, _ := c.AcquireLock(ctx, "lock:post", "owner-2", time.Minute); !ok {
		t.Fatalf("expected acquire after ttl to succeed")
	}
}

type countingLoader struct {
	calls    int
	profiles []domain.StoredProfile
}

func (l *countingLoader) ListProfilesByPost(context.Context, int64) ([]domain.StoredProfile, error) {
	l.calls++
	return l.profiles, nil
}

func TestProfileCacheReadThrough(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	loader := &countingLoader{profiles: []domain.StoredProfile{
		{ID: 1, PostID: 4, ProfileRecord: domain.ProfileRecord{ProfileURL: "https://linkedin.com/in/a"}},
	}}
	pc := NewProfileCache(loader, c, time.Minute, zap.NewNop())

	for i := 0; i < 2; i++ {
		got, err := pc.ListProfilesByPost(ctx, 4)
		if err != nil {
			t.Fatalf("ListProfilesByPost() error = %v", err)
		}
		if len(got) != 1 || got[0].ProfileURL != "https://linkedin.com/in/a" {
			t.Fatalf("unexpected profiles: %+v", got)
		}
	}
	if loader.calls != 1 {
		t.Fatalf("expected one loader call, got %d", loader.calls)
	}

	pc.Invalidate(ctx, 4)
	if _, err := pc.ListProfilesByPost(ctx, 4); err != nil {
		t.Fatalf("ListProfilesByPost() error = %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidation, got %d calls", loader.calls)
	}
}

func TestProfileCacheWithoutRedis(t *testing.T) {
	loader := &countingLoader{}
	pc := NewProfileCache(loader, nil, time.Minute, zap.NewNop())

	if _, err := pc.ListProfilesByPost(context.Background(), 1); err != nil {
		t.Fatalf("ListProfilesByPost() error = %v", err)
	}
	pc.Invalidate(context.Background(), 1)
	if loader.calls != 1 {
		t.Fatalf("expected direct loader call, got %d", loader.calls)
	}
}

func TestProfileCacheFallsThroughOnRedisFailure(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	loader := &countingLoader{}
	pc := NewProfileCache(loader, c, time.Minute, zap.NewNop())

	if _, err := pc.ListProfilesByPost(context.Background(), 1); err != nil {
		t.Fatalf("expected loader result despite redis failure, got %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader call, got %d", loader.calls)
	}
}
