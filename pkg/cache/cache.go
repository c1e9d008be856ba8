package cache

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Kind identifies a class of cached data with its own TTL policy.
type Kind string

const (
	KindRate         Kind = "rate"
	KindVolatility   Kind = "volatility"
	KindEventRisk    Kind = "event_risk"
	KindStockRef     Kind = "stock_ref"
	KindBrokerConfig Kind = "broker_config"
	KindCalculation  Kind = "calculation"
)

// TTLPolicy maps each kind to its time-to-live.
type TTLPolicy map[Kind]time.Duration

// DefaultTTLPolicy returns the stock TTLs used when config leaves them unset.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		KindRate:         5 * time.Minute,
		KindVolatility:   5 * time.Minute,
		KindEventRisk:    5 * time.Minute,
		KindStockRef:     15 * time.Minute,
		KindBrokerConfig: 15 * time.Minute,
		KindCalculation:  time.Minute,
	}
}

// TTL returns the configured TTL for kind, or a conservative minute default.
func (p TTLPolicy) TTL(kind Kind) time.Duration {
	if d, ok := p[kind]; ok && d > 0 {
		return d
	}
	return time.Minute
}

// EntryKey builds the canonical "{kind}:{key}" cache key.
func EntryKey(kind Kind, key string) string {
	return fmt.Sprintf("%s:%s", kind, key)
}
