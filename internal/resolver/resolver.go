package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"BorrowDesk/internal/domain/models"
	"BorrowDesk/internal/domain/repository"
	"BorrowDesk/pkg/cache"
	applogger "BorrowDesk/pkg/logger"
)

// Config tunes retry and breaker behavior for one upstream dependency.
type Config struct {
	RetryMax         int
	BackoffBase      time.Duration
	FetchTimeout     time.Duration
	FailureThreshold uint32
	Cooldown         time.Duration
}

func (c *Config) applyDefaults() {
	if c.RetryMax <= 0 {
		c.RetryMax = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 100 * time.Millisecond
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 2 * time.Second
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
}

// Resolver implements the cache → live → fallback hierarchy for one
// upstream input. One resolver (and one breaker) exists per upstream
// dependency, shared across requests.
type Resolver struct {
	name    string
	kind    cache.Kind
	cache   *cache.Tiered
	breaker *gobreaker.CircuitBreaker
	cfg     Config
	metrics repository.Metrics
	log     *applogger.Logger
}

// New creates a resolver for one input kind. name labels the breaker
// and metrics (e.g. "rate_provider").
func New(name string, kind cache.Kind, c *cache.Tiered, metrics repository.Metrics, log *applogger.Logger, cfg Config) *Resolver {
	cfg.applyDefaults()

	r := &Resolver{
		name:    name,
		kind:    kind,
		cache:   c,
		cfg:     cfg,
		metrics: metrics,
		log:     log,
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			if metrics != nil {
				metrics.RecordBreakerState(name, int(to))
			}
			if log != nil {
				log.Warn("breaker state change",
					applogger.String("breaker", name),
					applogger.String("state", to.String()),
				)
			}
		},
	})
	return r
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable: the retry loop stops immediately
// and falls back without burning the remaining attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Resolve runs the full hierarchy for one value: cache hit, then a
// breaker-guarded live fetch with retry, then the deterministic
// fallback. It never returns an error; the provenance tells the caller
// what happened. Top-level because methods cannot carry type parameters.
func Resolve[T any](ctx context.Context, r *Resolver, key string, fetch func(ctx context.Context) (T, error), fallback T) (T, models.Source) {
	var cached T
	if hit, err := r.cache.Get(ctx, r.kind, key, &cached); err == nil && hit {
		if r.metrics != nil {
			r.metrics.RecordCacheHit(string(r.kind), "tiered")
		}
		return cached, models.SourceCache
	}
	if r.metrics != nil {
		r.metrics.RecordCacheMiss(string(r.kind))
	}

	out, err := r.breaker.Execute(func() (interface{}, error) {
		return fetchWithRetry(ctx, r.cfg, fetch)
	})
	if err == nil {
		val := out.(T)
		if r.metrics != nil {
			r.metrics.RecordUpstreamCall(r.name, "ok")
		}
		if err := r.cache.Set(ctx, r.kind, key, val); err != nil && r.log != nil {
			r.log.Warn("cache populate failed",
				applogger.String("kind", string(r.kind)),
				applogger.String("key", key),
				applogger.Error(err),
			)
		}
		return val, models.SourceLive
	}

	if r.metrics != nil {
		r.metrics.RecordUpstreamCall(r.name, "error")
		r.metrics.RecordFallback(string(r.kind))
	}
	if r.log != nil {
		r.log.Warn("upstream resolve failed, using fallback",
			applogger.String("provider", r.name),
			applogger.String("key", key),
			applogger.Error(err),
		)
	}
	return fallback, models.SourceFallback
}

// fetchWithRetry runs the live fetch under a per-call timeout with
// exponential backoff between attempts.
func fetchWithRetry[T any](ctx context.Context, cfg Config, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= cfg.RetryMax; attempt++ {
		if attempt > 0 {
			backoff := cfg.BackoffBase * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
		val, err := fetch(callCtx)
		cancel()
		if err == nil {
			return val, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
