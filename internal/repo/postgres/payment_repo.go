package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRecord struct {
	ID              int64
	UserID          int64
	StripeSessionID string
	ProductName     string
	AmountMinor     int64
	Currency        string
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// CreatePending records a checkout session before the customer pays so the
// webhook has a row to complete later.
func (r *PaymentRepo) CreatePending(ctx context.Context, userID int64, sessionID, productName string, amountMinor int64, currency string) (PaymentRecord, error) {
	if r.pool == nil {
		return PaymentRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || strings.TrimSpace(sessionID) == "" {
		return PaymentRecord{}, fmt.Errorf("invalid payment input")
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO payments (
	user_id,
	stripe_session_id,
	product_name,
	amount,
	currency,
	status
) VALUES ($1, $2, $3, $4, $5, 'pending')
RETURNING id, user_id, stripe_session_id, product_name, amount, currency, status, created_at, updated_at
`, userID, sessionID, productName, amountMinor, strings.ToLower(currency))

	return scanPayment(row)
}

// FindBySessionID looks a payment up by its checkout session id.
func (r *PaymentRepo) FindBySessionID(ctx context.Context, sessionID string) (PaymentRecord, error) {
	if r.pool == nil {
		return PaymentRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, stripe_session_id, product_name, amount, currency, status, created_at, updated_at
FROM payments
WHERE stripe_session_id = $1
`, sessionID)

	rec, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, ErrPaymentNotFound
		}
		return PaymentRecord{}, err
	}
	return rec, nil
}

// ExpirePendingOlderThan abandons pending payments whose session is past the
// backstop cutoff. Returns the number of rows expired.
func (r *PaymentRepo) ExpirePendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE payments
SET
	status = 'expired',
	updated_at = NOW()
WHERE status = 'pending'
  AND created_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire pending payments: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanPayment(row pgx.Row) (PaymentRecord, error) {
	var rec PaymentRecord
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.StripeSessionID,
		&rec.ProductName,
		&rec.AmountMinor,
		&rec.Currency,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, err
		}
		return PaymentRecord{}, fmt.Errorf("scan payment: %w", err)
	}
	return rec, nil
}
