package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client, ttl)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr, store := newRedisStore(t, time.Hour)
	ctx := context.Background()

	in := &Session{ID: "sess-1", AccessToken: "access", RefreshToken: "refresh", UserID: "user-1"}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL(redisKeyPrefix + "sess-1"); ttl != time.Hour {
		t.Fatalf("expected ttl of one hour, got %v", ttl)
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "sess-1" || got.AccessToken != "access" || got.RefreshToken != "refresh" || got.UserID != "user-1" {
		t.Fatalf("unexpected session %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("expected updatedAt to be set")
	}
}

func TestRedisStoreMissingSession(t *testing.T) {
	_, store := newRedisStore(t, time.Hour)

	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStoreExpiredSessionIsNotFound(t *testing.T) {
	mr, store := newRedisStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, &Session{ID: "sess-1", AccessToken: "a"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be not found, got %v", err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	_, store := newRedisStore(t, time.Hour)
	ctx := context.Background()

	if err := store.Save(ctx, &Session{ID: "sess-1", AccessToken: "a"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisStoreRejectsAnonymousSession(t *testing.T) {
	_, store := newRedisStore(t, time.Hour)
	if err := store.Save(context.Background(), &Session{AccessToken: "a"}); err == nil {
		t.Fatal("expected error saving anonymous session")
	}
}

func TestRedisStoreUnreachable(t *testing.T) {
	mr, store := newRedisStore(t, time.Hour)
	mr.Close()

	_, err := store.Get(context.Background(), "sess-1")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a connection error, got %v", err)
	}
}
