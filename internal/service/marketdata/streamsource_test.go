package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
)

type fakeStore struct {
	sample models.VolatilitySample
	found  bool
}

func (f *fakeStore) Append(context.Context, models.VolatilitySample) error {
	return nil
}

func (f *fakeStore) Latest(context.Context, string) (models.VolatilitySample, bool, error) {
	return f.sample, f.found, nil
}

func TestStreamSourceFreshSample(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		sample: models.VolatilitySample{
			Ticker:    "AAPL",
			Timestamp: now.Add(-time.Minute),
			VolIndex:  decimal.RequireFromString("1.7"),
			EventRisk: 3,
		},
		found: true,
	}

	src := NewStreamSource(nil, store, 5*time.Minute)
	src.now = func() time.Time { return now }

	vol, err := src.FetchVolatility(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !vol.Equal(decimal.RequireFromString("1.7")) {
		t.Fatalf("expected 1.7, got %s", vol)
	}

	risk, err := src.FetchEventRisk(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if risk != 3 {
		t.Fatalf("expected event risk 3, got %d", risk)
	}
}

func TestStreamSourceStaleSample(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		sample: models.VolatilitySample{
			Ticker:    "AAPL",
			Timestamp: now.Add(-10 * time.Minute),
			VolIndex:  decimal.RequireFromString("1.7"),
		},
		found: true,
	}

	src := NewStreamSource(nil, store, 5*time.Minute)
	src.now = func() time.Time { return now }

	if _, err := src.FetchVolatility(context.Background(), "AAPL"); err == nil {
		t.Fatal("stale sample must error so the resolver falls back")
	}
}

func TestStreamSourceMissingSample(t *testing.T) {
	src := NewStreamSource(nil, &fakeStore{}, 5*time.Minute)

	if _, err := src.FetchVolatility(context.Background(), "ZZZZ"); err == nil {
		t.Fatal("missing sample must error so the resolver falls back")
	}
}
