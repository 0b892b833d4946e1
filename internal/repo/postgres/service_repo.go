package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/enums"
)

var ErrServiceNotFound = errors.New("service not found")

type ServiceRecord struct {
	ID              int64
	UserID          int64
	StripeSessionID string
	ServiceName     string
	ServiceType     string
	AmountMinor     int64
	Status          enums.ServiceStatus
	PurchasedAt     time.Time
	ExpiresAt       time.Time
	CompletedAt     *time.Time
}

type ServiceRepo struct {
	pool *pgxpool.Pool
}

func NewServiceRepo(pool *pgxpool.Pool) *ServiceRepo {
	return &ServiceRepo{pool: pool}
}

const serviceColumns = `id, user_id, stripe_session_id, service_name, service_type, amount_paid, status, purchased_at, expires_at, completed_at`

// ListByUser returns the user's purchased services, newest first.
func (r *ServiceRepo) ListByUser(ctx context.Context, userID int64) ([]ServiceRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+serviceColumns+`
FROM services
WHERE user_id = $1
ORDER BY purchased_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []ServiceRecord
	for rows.Next() {
		rec, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return out, nil
}

// MarkCompleted closes a scheduled service for the owning user.
func (r *ServiceRepo) MarkCompleted(ctx context.Context, userID, serviceID int64, at time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE services
SET
	status = 'completed',
	completed_at = $3
WHERE id = $1
  AND user_id = $2
  AND status = 'scheduled'
`, serviceID, userID, at.UTC())
	if err != nil {
		return fmt.Errorf("complete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// ExpireScheduledBefore expires scheduled services whose booking window has
// lapsed. Returns the number of rows expired.
func (r *ServiceRepo) ExpireScheduledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE services
SET status = 'expired'
WHERE status = 'scheduled'
  AND expires_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire services: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanService(row pgx.Row) (ServiceRecord, error) {
	var rec ServiceRecord
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.StripeSessionID,
		&rec.ServiceName,
		&rec.ServiceType,
		&rec.AmountMinor,
		&rec.Status,
		&rec.PurchasedAt,
		&rec.ExpiresAt,
		&rec.CompletedAt,
	)
	if err != nil {
		return ServiceRecord{}, fmt.Errorf("scan service: %w", err)
	}
	return rec, nil
}
