package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, "alice", time.Minute)

	if _, ok, err := store.Get(ctx); err != nil || ok {
		t.Fatalf("expected empty slot, got ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "sess-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("quiz:session:alice") {
		t.Fatalf("expected redis key to be set")
	}
	if id, ok, _ := store.Get(ctx); !ok || id != "sess-1" {
		t.Fatalf("expected sess-1, got %q", id)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("quiz:session:alice") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestSessionStoreExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "bob", time.Minute)
	_ = store.Set(ctx, "sess-9")

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := store.Get(ctx); ok {
		t.Fatalf("expected slot to expire")
	}
}

func TestSessionStoresAreScopedByOwner(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	a := NewSessionStore(client, "alice", 0)
	b := NewSessionStore(client, "bob", 0)

	_ = a.Set(ctx, "sess-a")
	if _, ok, _ := b.Get(ctx); ok {
		t.Fatalf("bob must not see alice's session")
	}
}
