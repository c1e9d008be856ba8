package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
	"BorrowDesk/internal/domain/repository"
)

// StreamSource serves volatility and event risk from the latest streamed
// sample instead of the polling HTTP provider; rate fetches still go to
// the HTTP client. Selected by the volatility_source=stream config.
type StreamSource struct {
	http         *Client
	store        repository.VolatilityStore
	maxSampleAge time.Duration
	now          func() time.Time
}

// NewStreamSource wraps the HTTP client with stream-backed volatility.
func NewStreamSource(http *Client, store repository.VolatilityStore, maxSampleAge time.Duration) *StreamSource {
	if maxSampleAge <= 0 {
		maxSampleAge = 5 * time.Minute
	}
	return &StreamSource{
		http:         http,
		store:        store,
		maxSampleAge: maxSampleAge,
		now:          time.Now,
	}
}

// FetchRate delegates to the HTTP provider.
func (s *StreamSource) FetchRate(ctx context.Context, ticker string) (decimal.Decimal, error) {
	return s.http.FetchRate(ctx, ticker)
}

// FetchVolatility returns the latest streamed vol index. A missing or
// stale sample is an error so the resolver falls back.
func (s *StreamSource) FetchVolatility(ctx context.Context, ticker string) (decimal.Decimal, error) {
	sample, found, err := s.latest(ctx, ticker)
	if err != nil {
		return decimal.Zero, err
	}
	if !found {
		return decimal.Zero, fmt.Errorf("no volatility sample for %s", ticker)
	}
	return sample.VolIndex, nil
}

// FetchEventRisk returns the event risk from the latest streamed sample.
func (s *StreamSource) FetchEventRisk(ctx context.Context, ticker string) (int, error) {
	sample, found, err := s.latest(ctx, ticker)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("no event risk sample for %s", ticker)
	}
	return sample.EventRisk, nil
}

func (s *StreamSource) latest(ctx context.Context, ticker string) (sample models.VolatilitySample, found bool, err error) {
	sample, found, err = s.store.Latest(ctx, ticker)
	if err != nil || !found {
		return sample, found, err
	}
	if age := s.now().Sub(sample.Timestamp); age > s.maxSampleAge {
		return sample, false, fmt.Errorf("sample for %s is stale (%s old)", ticker, age.Truncate(time.Second))
	}
	return sample, true, nil
}
