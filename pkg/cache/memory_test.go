package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(10))
	defer mc.Close()

	ctx := context.Background()
	type payload struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}

	if err := mc.Set(ctx, "dataset:abc", payload{ID: "abc", Count: 3}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got payload
	if err := mc.Get(ctx, "dataset:abc", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "abc" || got.Count != 3 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var s string
	if err := mc.Get(context.Background(), "nope", &s); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheExpiration(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	ctx := context.Background()
	if err := mc.Set(ctx, "k", "v", time.Nanosecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var s string
	if err := mc.Get(ctx, "k", &s); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss after expiry, got %v", err)
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	ctx := context.Background()
	_ = mc.Set(ctx, "dataset:a", "1", time.Minute)
	_ = mc.Set(ctx, "dataset:b", "2", time.Minute)
	_ = mc.Set(ctx, "other:c", "3", time.Minute)

	if err := mc.DeleteByPattern(ctx, BuildPattern("dataset:")); err != nil {
		t.Fatalf("delete by pattern: %v", err)
	}

	if ok, _ := mc.Exists(ctx, "dataset:a", "dataset:b"); ok {
		t.Fatalf("dataset keys should be gone")
	}
	if ok, _ := mc.Exists(ctx, "other:c"); !ok {
		t.Fatalf("unrelated key should survive")
	}
}

func TestContentKeyDeterministic(t *testing.T) {
	a := ContentKey("dataset", []byte("same bytes"))
	b := ContentKey("dataset", []byte("same bytes"))
	c := ContentKey("dataset", []byte("other bytes"))

	if a != b {
		t.Fatalf("same payload must map to same key: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("different payloads must not collide")
	}
}
