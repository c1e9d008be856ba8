package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	mc.Set(context.Background(), "k", []byte("v"), time.Minute)

	data, ok := mc.Get(context.Background(), "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(data) != "v" {
		t.Fatalf("expected v, got %s", data)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	mc.Set(context.Background(), "k", []byte("v"), 20*time.Millisecond)

	if _, ok := mc.Get(context.Background(), "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok := mc.Get(context.Background(), "k"); ok {
		t.Fatal("expected miss after expiry")
	}
	if mc.Len() != 0 {
		t.Fatalf("expired read must evict, got %d entries", mc.Len())
	}
}

func TestMemoryCacheNonPositiveTTL(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	mc.Set(context.Background(), "k", []byte("v"), 0)
	if _, ok := mc.Get(context.Background(), "k"); ok {
		t.Fatal("zero TTL must not cache")
	}
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(3))
	defer mc.Close()

	for i := 0; i < 3; i++ {
		mc.Set(context.Background(), fmt.Sprintf("k%d", i), []byte("v"), time.Minute)
		time.Sleep(time.Millisecond)
	}

	// Touch k0 so k1 becomes least recently used.
	mc.Get(context.Background(), "k0")
	time.Sleep(time.Millisecond)

	mc.Set(context.Background(), "k3", []byte("v"), time.Minute)

	if _, ok := mc.Get(context.Background(), "k1"); ok {
		t.Fatal("k1 should have been evicted")
	}
	if _, ok := mc.Get(context.Background(), "k0"); !ok {
		t.Fatal("recently used k0 should survive")
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	mc.Set(context.Background(), "a", []byte("1"), time.Minute)
	mc.Set(context.Background(), "b", []byte("2"), time.Minute)
	mc.Delete(context.Background(), "a", "b")

	if mc.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", mc.Len())
	}
}
