package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
)

// NUMERIC columns are selected as text and parsed into decimals so no
// binary float conversion ever touches a rate or fee amount.
const (
	selectStockSQL = `
		SELECT ticker, name, tier, min_borrow_rate::text, COALESCE(lender_id, '')
		FROM stock_refs
		WHERE ticker = $1`

	selectBrokerSQL = `
		SELECT broker_id, name, markup_percent::text, fee_type, fee_amount::text, active
		FROM broker_configs
		WHERE broker_id = $1`
)

// PostgresReference reads stock and broker reference data from Postgres.
type PostgresReference struct {
	pool *pgxpool.Pool
}

// NewPostgresReference creates the reference-data repository.
func NewPostgresReference(pool *pgxpool.Pool) *PostgresReference {
	return &PostgresReference{pool: pool}
}

// GetStock fetches one stock reference row. A missing row is (zero, false, nil).
func (r *PostgresReference) GetStock(ctx context.Context, ticker string) (models.StockRef, bool, error) {
	var (
		s       models.StockRef
		tier    string
		minRate string
	)
	err := r.pool.QueryRow(ctx, selectStockSQL, ticker).
		Scan(&s.Ticker, &s.Name, &tier, &minRate, &s.LenderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StockRef{}, false, nil
	}
	if err != nil {
		return models.StockRef{}, false, fmt.Errorf("select stock %s: %w", ticker, err)
	}

	s.Tier = models.BorrowTier(tier)
	if s.MinBorrowRate, err = decimal.NewFromString(minRate); err != nil {
		return models.StockRef{}, false, fmt.Errorf("parse min_borrow_rate for %s: %w", ticker, err)
	}
	return s, true, nil
}

// GetBroker fetches one broker config row. A missing row is (zero, false, nil).
func (r *PostgresReference) GetBroker(ctx context.Context, clientID string) (models.BrokerConfig, bool, error) {
	var (
		b         models.BrokerConfig
		markup    string
		feeType   string
		feeAmount string
	)
	err := r.pool.QueryRow(ctx, selectBrokerSQL, clientID).
		Scan(&b.BrokerID, &b.Name, &markup, &feeType, &feeAmount, &b.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.BrokerConfig{}, false, nil
	}
	if err != nil {
		return models.BrokerConfig{}, false, fmt.Errorf("select broker %s: %w", clientID, err)
	}

	b.FeeType = models.FeeType(feeType)
	if b.MarkupPercent, err = decimal.NewFromString(markup); err != nil {
		return models.BrokerConfig{}, false, fmt.Errorf("parse markup_percent for %s: %w", clientID, err)
	}
	if b.FeeAmount, err = decimal.NewFromString(feeAmount); err != nil {
		return models.BrokerConfig{}, false, fmt.Errorf("parse fee_amount for %s: %w", clientID, err)
	}
	return b, true, nil
}
