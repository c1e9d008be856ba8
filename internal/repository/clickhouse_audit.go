package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
	"BorrowDesk/internal/domain/repository"
	"BorrowDesk/pkg/clickhouse"
)

// Monetary values are stored as strings: the audit trail must reproduce
// what the client was told bit-for-bit, and Decimal column rescaling
// would break that.
const auditSchemaSQL = `
	CREATE TABLE IF NOT EXISTS audit_records (
		id              UUID,
		ts              DateTime64(3, 'UTC'),
		client_id       String,
		ticker          String,
		position_value  String,
		loan_days       Int32,
		rate_used       String,
		total_fee       String,
		rate_source     String,
		vol_source      String,
		event_source    String,
		borrow_cost     String,
		markup          String,
		transaction_fee String
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(ts)
	ORDER BY (ts, ticker, client_id)`

const auditInsertSQL = `
	INSERT INTO audit_records (
		id, ts, client_id, ticker, position_value, loan_days,
		rate_used, total_fee, rate_source, vol_source, event_source,
		borrow_cost, markup, transaction_fee
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ClickHouseAudit is the durable, append-only audit sink.
type ClickHouseAudit struct {
	client *clickhouse.Client
}

// NewClickHouseAudit creates the sink and ensures the table exists.
func NewClickHouseAudit(ctx context.Context, client *clickhouse.Client) (*ClickHouseAudit, error) {
	if err := client.InitSchema(ctx, []string{auditSchemaSQL}); err != nil {
		return nil, err
	}
	return &ClickHouseAudit{client: client}, nil
}

// Append writes one immutable audit row. The returned id equals rec.ID.
func (r *ClickHouseAudit) Append(ctx context.Context, rec models.AuditRecord) (uuid.UUID, error) {
	_, err := r.client.DB().ExecContext(ctx, auditInsertSQL,
		rec.ID.String(),
		rec.Timestamp,
		rec.ClientID,
		rec.Ticker,
		rec.PositionValue.String(),
		int32(rec.LoanDays),
		rec.RateUsed.String(),
		rec.TotalFee.String(),
		string(rec.Provenance.Rate),
		string(rec.Provenance.Volatility),
		string(rec.Provenance.EventRisk),
		rec.Breakdown.BorrowCost.String(),
		rec.Breakdown.Markup.String(),
		rec.Breakdown.TransactionFee.String(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert audit record: %w", err)
	}
	return rec.ID, nil
}

// ListAudits reads back audit rows, newest first.
func (r *ClickHouseAudit) ListAudits(ctx context.Context, f repository.AuditQueryFilter) ([]models.AuditRecord, error) {
	query := `
		SELECT id, ts, client_id, ticker, position_value, loan_days,
		       rate_used, total_fee, rate_source, vol_source, event_source,
		       borrow_cost, markup, transaction_fee
		FROM audit_records
		WHERE 1 = 1`
	args := make([]any, 0, 5)

	if f.Ticker != "" {
		query += " AND ticker = ?"
		args = append(args, f.Ticker)
	}
	if f.ClientID != "" {
		query += " AND client_id = ?"
		args = append(args, f.ClientID)
	}
	if !f.From.IsZero() {
		query += " AND ts >= ?"
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		query += " AND ts <= ?"
		args = append(args, f.To)
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += " ORDER BY ts DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []models.AuditRecord
	for rows.Next() {
		var (
			rec                                      models.AuditRecord
			id                                       string
			ts                                       time.Time
			position, rate, total, cost, markup, txn string
			rateSrc, volSrc, eventSrc                string
			loanDays                                 int32
		)
		if err := rows.Scan(&id, &ts, &rec.ClientID, &rec.Ticker, &position, &loanDays,
			&rate, &total, &rateSrc, &volSrc, &eventSrc, &cost, &markup, &txn); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}

		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse audit id: %w", err)
		}
		rec.Timestamp = ts
		rec.LoanDays = int(loanDays)
		rec.Provenance = models.DataProvenance{
			Rate:       models.Source(rateSrc),
			Volatility: models.Source(volSrc),
			EventRisk:  models.Source(eventSrc),
		}
		if rec.PositionValue, err = decimal.NewFromString(position); err != nil {
			return nil, fmt.Errorf("parse position_value: %w", err)
		}
		if rec.RateUsed, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("parse rate_used: %w", err)
		}
		if rec.TotalFee, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse total_fee: %w", err)
		}
		if rec.Breakdown.BorrowCost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("parse borrow_cost: %w", err)
		}
		if rec.Breakdown.Markup, err = decimal.NewFromString(markup); err != nil {
			return nil, fmt.Errorf("parse markup: %w", err)
		}
		if rec.Breakdown.TransactionFee, err = decimal.NewFromString(txn); err != nil {
			return nil, fmt.Errorf("parse transaction_fee: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
