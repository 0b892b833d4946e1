package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

type SubscriptionRecord struct {
	ID          int64
	UserID      int64
	PlanType    string
	AmountMinor int64
	Currency    string
	Status      string
	StartedAt   time.Time
	ExpiresAt   time.Time
}

type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

// FindActiveByUser returns the user's most recent active subscription.
func (r *SubscriptionRepo) FindActiveByUser(ctx context.Context, userID int64) (SubscriptionRecord, error) {
	if r.pool == nil {
		return SubscriptionRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, plan_type, amount, currency, status, started_at, expires_at
FROM subscriptions
WHERE user_id = $1
  AND status = 'active'
ORDER BY started_at DESC
LIMIT 1
`, userID)

	var rec SubscriptionRecord
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.PlanType,
		&rec.AmountMinor,
		&rec.Currency,
		&rec.Status,
		&rec.StartedAt,
		&rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubscriptionRecord{}, ErrSubscriptionNotFound
		}
		return SubscriptionRecord{}, fmt.Errorf("find subscription: %w", err)
	}
	return rec, nil
}

// ExpireActiveBefore marks active subscriptions past their expiry as expired.
// Returns the affected user ids so profiles can be downgraded alongside.
func (r *SubscriptionRepo) ExpireActiveBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
UPDATE subscriptions
SET status = 'expired'
WHERE status = 'active'
  AND expires_at < $1
RETURNING user_id
`, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("expire subscriptions: %w", err)
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired subscription: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired subscriptions: %w", err)
	}
	return userIDs, nil
}
