package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BillingRepo applies webhook reconciliation as single transactions keyed by
// the provider event id. A redelivered event inserts nothing: the
// webhook_events insert gates every mutation behind ON CONFLICT DO NOTHING.
type BillingRepo struct {
	pool *pgxpool.Pool
}

type MembershipGrant struct {
	EventID          string
	UserID           int64
	Plan             string
	Months           int
	InterviewCredits int
	AmountMinor      int64
	Currency         string
	SessionID        string
	CustomerID       string
	StartedAt        time.Time
	ExpiresAt        time.Time
}

type ServiceGrant struct {
	EventID     string
	UserID      int64
	SessionID   string
	ServiceID   string
	ServiceName string
	ServiceType string
	AmountMinor int64
	Currency    string
	PurchasedAt time.Time
	ExpiresAt   time.Time
	Metadata    map[string]any
}

type CreditGrant struct {
	EventID   string
	UserID    int64
	Credits   int
	SessionID string
}

func NewBillingRepo(pool *pgxpool.Pool) *BillingRepo {
	return &BillingRepo{pool: pool}
}

// ApplyMembership inserts the subscription row and upserts the profile in one
// transaction. Returns false when the event id was already processed.
func (r *BillingRepo) ApplyMembership(ctx context.Context, grant MembershipGrant) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	if err := validateEvent(grant.EventID, grant.UserID); err != nil {
		return false, err
	}
	if grant.Months <= 0 || strings.TrimSpace(grant.Plan) == "" {
		return false, fmt.Errorf("invalid membership grant payload")
	}

	applied := false
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		seen, err := markEventProcessedTx(txCtx, tx, grant.EventID, "checkout.session.completed")
		if err != nil {
			return err
		}
		if seen {
			return nil
		}

		if _, err := tx.Exec(txCtx, `
INSERT INTO subscriptions (
	user_id,
	plan_type,
	amount,
	currency,
	status,
	started_at,
	expires_at
) VALUES ($1, $2, $3, $4, 'active', $5, $6)
`, grant.UserID, grant.Plan, grant.AmountMinor, strings.ToLower(grant.Currency), grant.StartedAt.UTC(), grant.ExpiresAt.UTC()); err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}

		if _, err := tx.Exec(txCtx, `
UPDATE profiles
SET
	subscription_status = 'active',
	subscription_plan = $2,
	subscription_months = $3,
	interview_credits = $4,
	stripe_session_id = $5,
	stripe_customer_id = $6,
	payment_completed_at = $7,
	updated_at = NOW()
WHERE user_id = $1
`, grant.UserID, grant.Plan, grant.Months, grant.InterviewCredits, grant.SessionID, grant.CustomerID, grant.StartedAt.UTC()); err != nil {
			return fmt.Errorf("update profile subscription: %w", err)
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

// ApplyService marks the originating payment completed and inserts the
// service row with its scheduling window, in one transaction.
func (r *BillingRepo) ApplyService(ctx context.Context, grant ServiceGrant) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	if err := validateEvent(grant.EventID, grant.UserID); err != nil {
		return false, err
	}
	if strings.TrimSpace(grant.ServiceName) == "" {
		return false, fmt.Errorf("invalid service grant payload")
	}

	metadataJSON, err := marshalMetadata(grant.Metadata)
	if err != nil {
		return false, err
	}

	applied := false
	err = WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		seen, err := markEventProcessedTx(txCtx, tx, grant.EventID, "checkout.session.completed")
		if err != nil {
			return err
		}
		if seen {
			return nil
		}

		if _, err := tx.Exec(txCtx, `
UPDATE payments
SET
	status = 'completed',
	updated_at = NOW()
WHERE stripe_session_id = $1
  AND status <> 'completed'
`, grant.SessionID); err != nil {
			return fmt.Errorf("mark payment completed: %w", err)
		}

		if _, err := tx.Exec(txCtx, `
INSERT INTO services (
	user_id,
	stripe_session_id,
	service_name,
	service_type,
	amount_paid,
	status,
	purchased_at,
	expires_at,
	metadata
) VALUES ($1, $2, $3, $4, $5, 'scheduled', $6, $7, $8::jsonb)
`, grant.UserID, grant.SessionID, grant.ServiceName, grant.ServiceType, grant.AmountMinor, grant.PurchasedAt.UTC(), grant.ExpiresAt.UTC(), metadataJSON); err != nil {
			return fmt.Errorf("insert service purchase: %w", err)
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

// ApplyCreditBlock adds a purchased block of interview credits.
func (r *BillingRepo) ApplyCreditBlock(ctx context.Context, grant CreditGrant) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	if err := validateEvent(grant.EventID, grant.UserID); err != nil {
		return false, err
	}
	if grant.Credits <= 0 {
		return false, fmt.Errorf("invalid credit grant payload")
	}

	applied := false
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		seen, err := markEventProcessedTx(txCtx, tx, grant.EventID, "checkout.session.completed")
		if err != nil {
			return err
		}
		if seen {
			return nil
		}

		if _, err := tx.Exec(txCtx, `
UPDATE profiles
SET
	interview_credits = interview_credits + $2,
	updated_at = NOW()
WHERE user_id = $1
`, grant.UserID, grant.Credits); err != nil {
			return fmt.Errorf("grant interview credits: %w", err)
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

// markEventProcessedTx records the event id; returns true when the id was
// already present (redelivery).
func markEventProcessedTx(ctx context.Context, tx pgx.Tx, eventID, eventType string) (bool, error) {
	tag, err := tx.Exec(ctx, `
INSERT INTO webhook_events (event_id, event_type, processed_at)
VALUES ($1, $2, NOW())
ON CONFLICT (event_id) DO NOTHING
`, eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	return tag.RowsAffected() == 0, nil
}

func validateEvent(eventID string, userID int64) error {
	if strings.TrimSpace(eventID) == "" {
		return fmt.Errorf("event id is required")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	return nil
}

func marshalMetadata(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal service metadata: %w", err)
	}
	return string(raw), nil
}
