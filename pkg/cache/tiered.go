package cache

import (
	"context"
	"encoding/json"
	"time"

	applogger "BorrowDesk/pkg/logger"
)

// Tiered implements the two-level cache (L1: memory, L2: shared backend)
// keyed by (kind, key) with per-kind TTLs. Values are JSON-encoded so
// decimals travel as strings, never binary floats.
type Tiered struct {
	memCache *MemoryCache
	backend  Backend
	ttls     TTLPolicy
	log      *applogger.Logger
}

// NewTiered creates a tiered cache over the given L2 backend.
func NewTiered(backend Backend, ttls TTLPolicy, log *applogger.Logger, opts ...TieredOption) *Tiered {
	cfg := &TieredConfig{
		MemoryMaxSize: 1000,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if ttls == nil {
		ttls = DefaultTTLPolicy()
	}

	return &Tiered{
		memCache: NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		backend:  backend,
		ttls:     ttls,
		log:      log,
	}
}

// Set writes through to both levels. An L2 failure still counts as success:
// availability is favored over cross-instance consistency for this workload.
func (tc *Tiered) Set(ctx context.Context, kind Kind, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ttl := tc.ttls.TTL(kind)
	entryKey := EntryKey(kind, key)

	tc.memCache.Set(ctx, entryKey, data, ttl)

	if tc.backend != nil {
		if err := tc.backend.Set(ctx, entryKey, data, ttl); err != nil && tc.log != nil {
			tc.log.Warn("cache l2 set failed",
				applogger.String("kind", string(kind)),
				applogger.String("key", key),
				applogger.Error(err),
			)
		}
	}
	return nil
}

// Get checks L1 first, then L2. An L2 hit is promoted into L1 with its
// remaining TTL so a hit is never older than its kind's TTL. L2 errors
// degrade silently to a miss.
func (tc *Tiered) Get(ctx context.Context, kind Kind, key string, dest any) (bool, error) {
	entryKey := EntryKey(kind, key)

	if data, ok := tc.memCache.Get(ctx, entryKey); ok {
		return true, json.Unmarshal(data, dest)
	}

	if tc.backend == nil {
		return false, nil
	}

	data, remaining, err := tc.backend.GetWithTTL(ctx, entryKey)
	if err != nil {
		if err != ErrCacheMiss && tc.log != nil {
			tc.log.Warn("cache l2 get failed",
				applogger.String("kind", string(kind)),
				applogger.String("key", key),
				applogger.Error(err),
			)
		}
		return false, nil
	}

	if remaining > 0 {
		tc.memCache.Set(ctx, entryKey, data, remaining)
	}
	return true, json.Unmarshal(data, dest)
}

// Invalidate removes the entry from both levels.
func (tc *Tiered) Invalidate(ctx context.Context, kind Kind, key string) error {
	entryKey := EntryKey(kind, key)
	tc.memCache.Delete(ctx, entryKey)
	if tc.backend == nil {
		return nil
	}
	return tc.backend.Delete(ctx, entryKey)
}

// TTL exposes the policy for a kind, used by calculation-result caching.
func (tc *Tiered) TTL(kind Kind) time.Duration {
	return tc.ttls.TTL(kind)
}

// Close closes both cache levels.
func (tc *Tiered) Close() error {
	_ = tc.memCache.Close()
	if tc.backend == nil {
		return nil
	}
	return tc.backend.Close()
}
