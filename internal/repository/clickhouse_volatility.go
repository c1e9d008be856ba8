package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
	"BorrowDesk/pkg/clickhouse"
)

const volSchemaSQL = `
	CREATE TABLE IF NOT EXISTS volatility_samples (
		ticker     String,
		ts         DateTime64(3, 'UTC'),
		vol_index  String,
		event_risk Int32
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(ts)
	ORDER BY (ticker, ts)
	TTL toDateTime(ts) + INTERVAL 30 DAY`

const volInsertSQL = `
	INSERT INTO volatility_samples (ticker, ts, vol_index, event_risk)
	VALUES (?, ?, ?, ?)`

const volLatestSQL = `
	SELECT ticker, ts, vol_index, event_risk
	FROM volatility_samples
	WHERE ticker = ?
	ORDER BY ts DESC
	LIMIT 1`

// ClickHouseVolatility stores streamed volatility samples and serves
// latest-sample reads for the stream-backed volatility source.
type ClickHouseVolatility struct {
	client *clickhouse.Client
}

// NewClickHouseVolatility creates the store and ensures the table exists.
func NewClickHouseVolatility(ctx context.Context, client *clickhouse.Client) (*ClickHouseVolatility, error) {
	if err := client.InitSchema(ctx, []string{volSchemaSQL}); err != nil {
		return nil, err
	}
	return &ClickHouseVolatility{client: client}, nil
}

// Append writes one sample.
func (r *ClickHouseVolatility) Append(ctx context.Context, s models.VolatilitySample) error {
	_, err := r.client.DB().ExecContext(ctx, volInsertSQL,
		s.Ticker, s.Timestamp, s.VolIndex.String(), int32(s.EventRisk))
	if err != nil {
		return fmt.Errorf("insert volatility sample: %w", err)
	}
	return nil
}

// Latest returns the most recent sample for ticker, if any.
func (r *ClickHouseVolatility) Latest(ctx context.Context, ticker string) (models.VolatilitySample, bool, error) {
	var (
		s         models.VolatilitySample
		ts        time.Time
		volIndex  string
		eventRisk int32
	)
	row := r.client.DB().QueryRowContext(ctx, volLatestSQL, ticker)
	if err := row.Scan(&s.Ticker, &ts, &volIndex, &eventRisk); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VolatilitySample{}, false, nil
		}
		return models.VolatilitySample{}, false, fmt.Errorf("select latest sample for %s: %w", ticker, err)
	}

	s.Timestamp = ts
	s.EventRisk = int(eventRisk)
	var err error
	if s.VolIndex, err = decimal.NewFromString(volIndex); err != nil {
		return models.VolatilitySample{}, false, fmt.Errorf("parse vol_index for %s: %w", ticker, err)
	}
	return s, true, nil
}
