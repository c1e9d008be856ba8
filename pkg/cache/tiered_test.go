package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is an in-memory Backend standing in for Redis.
type fakeBackend struct {
	mu      sync.Mutex
	data    map[string][]byte
	expires map[string]time.Time
	failing bool
	gets    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		data:    make(map[string][]byte),
		expires: make(map[string]time.Time),
	}
}

func (f *fakeBackend) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("backend down")
	}
	f.data[key] = data
	f.expires[key] = time.Now().Add(ttl)
	return nil
}

func (f *fakeBackend) GetWithTTL(_ context.Context, key string) ([]byte, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failing {
		return nil, 0, errors.New("backend down")
	}
	data, ok := f.data[key]
	if !ok {
		return nil, 0, ErrCacheMiss
	}
	remaining := time.Until(f.expires[key])
	if remaining <= 0 {
		delete(f.data, key)
		delete(f.expires, key)
		return nil, 0, ErrCacheMiss
	}
	return data, remaining, nil
}

func (f *fakeBackend) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
		delete(f.expires, k)
	}
	return nil
}

func (f *fakeBackend) Exists(_ context.Context, keys ...string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBackend) Close() error { return nil }

type payload struct {
	Rate string `json:"rate"`
}

func TestTieredWriteThrough(t *testing.T) {
	backend := newFakeBackend()
	tc := NewTiered(backend, nil, nil)
	defer tc.Close()

	if err := tc.Set(context.Background(), KindRate, "AAPL", payload{Rate: "0.0025"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got payload
	hit, err := tc.Get(context.Background(), KindRate, "AAPL", &got)
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if got.Rate != "0.0025" {
		t.Fatalf("expected 0.0025, got %s", got.Rate)
	}

	// L1 served the read; the backend saw the write but no get.
	if backend.gets != 0 {
		t.Fatalf("expected L1 hit without backend read, got %d gets", backend.gets)
	}
	if _, ok := backend.data[EntryKey(KindRate, "AAPL")]; !ok {
		t.Fatal("write must reach L2")
	}
}

func TestTieredL2PromotionCarriesRemainingTTL(t *testing.T) {
	backend := newFakeBackend()

	// Seed only L2 with a nearly-expired entry.
	key := EntryKey(KindRate, "TSLA")
	if err := backend.Set(context.Background(), key, []byte(`{"rate":"1.70"}`), 30*time.Millisecond); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tc := NewTiered(backend, nil, nil)
	defer tc.Close()

	var got payload
	hit, err := tc.Get(context.Background(), KindRate, "TSLA", &got)
	if err != nil || !hit {
		t.Fatalf("expected L2 hit, got hit=%v err=%v", hit, err)
	}

	// The promoted L1 entry must expire with the original, not get a
	// fresh full TTL.
	time.Sleep(50 * time.Millisecond)
	hit, _ = tc.Get(context.Background(), KindRate, "TSLA", &got)
	if hit {
		t.Fatal("promoted entry must honor the remaining TTL")
	}
}

func TestTieredL2FailureDegradesToMiss(t *testing.T) {
	backend := newFakeBackend()
	backend.failing = true

	tc := NewTiered(backend, nil, nil)
	defer tc.Close()

	// Write succeeds on L1 alone.
	if err := tc.Set(context.Background(), KindRate, "NVDA", payload{Rate: "0.05"}); err != nil {
		t.Fatalf("set with failing L2 must still succeed: %v", err)
	}

	var got payload
	hit, err := tc.Get(context.Background(), KindRate, "NVDA", &got)
	if err != nil || !hit {
		t.Fatalf("L1 must still serve the value, hit=%v err=%v", hit, err)
	}

	// A key absent from L1 degrades to a miss, not an error.
	hit, err = tc.Get(context.Background(), KindRate, "MISSING", &got)
	if err != nil {
		t.Fatalf("L2 failure must not surface: %v", err)
	}
	if hit {
		t.Fatal("expected miss")
	}
}

func TestTieredInvalidate(t *testing.T) {
	backend := newFakeBackend()
	tc := NewTiered(backend, nil, nil)
	defer tc.Close()

	if err := tc.Set(context.Background(), KindBrokerConfig, "BRK-1", payload{Rate: "x"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := tc.Invalidate(context.Background(), KindBrokerConfig, "BRK-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	var got payload
	hit, _ := tc.Get(context.Background(), KindBrokerConfig, "BRK-1", &got)
	if hit {
		t.Fatal("invalidated entry must miss")
	}
}

func TestTieredPerKindTTL(t *testing.T) {
	ttls := TTLPolicy{
		KindRate:        25 * time.Millisecond,
		KindCalculation: time.Minute,
	}
	tc := NewTiered(newFakeBackend(), ttls, nil)
	defer tc.Close()

	if err := tc.Set(context.Background(), KindRate, "AAPL", payload{Rate: "0.0025"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := tc.Set(context.Background(), KindCalculation, "AAPL|1", payload{Rate: "46.58"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	var got payload
	if hit, _ := tc.Get(context.Background(), KindRate, "AAPL", &got); hit {
		t.Fatal("rate entry must expire with its kind TTL")
	}
	if hit, _ := tc.Get(context.Background(), KindCalculation, "AAPL|1", &got); !hit {
		t.Fatal("calculation entry must still be live")
	}
}
