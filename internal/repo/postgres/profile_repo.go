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

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepo struct {
	pool *pgxpool.Pool
}

type ProfileRecord struct {
	UserID             int64
	Email              string
	FullName           string
	Headline           string
	TargetRole         string
	Language           string
	SubscriptionStatus string
	SubscriptionPlan   string
	SubscriptionMonths int
	InterviewCredits   int
	TrialInterviewUsed bool
	TrialInterviewDate *time.Time
	StripeSessionID    *string
	StripeCustomerID   *string
	PaymentCompletedAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const profileColumns = `
	user_id,
	email,
	full_name,
	headline,
	target_role,
	language,
	subscription_status,
	subscription_plan,
	subscription_months,
	interview_credits,
	trial_interview_used,
	trial_interview_date,
	stripe_session_id,
	stripe_customer_id,
	payment_completed_at,
	created_at,
	updated_at`

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// Ensure creates the profile row on first touch; subsequent calls are no-ops.
func (r *ProfileRepo) Ensure(ctx context.Context, userID int64, email, fullName string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || strings.TrimSpace(email) == "" {
		return fmt.Errorf("invalid profile ensure payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO profiles (user_id, email, full_name, subscription_status, created_at, updated_at)
VALUES ($1, $2, $3, 'none', NOW(), NOW())
ON CONFLICT (user_id) DO NOTHING
`, userID, strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(fullName)); err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}

	return nil
}

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID int64) (ProfileRecord, error) {
	if r.pool == nil {
		return ProfileRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return ProfileRecord{}, fmt.Errorf("invalid user id")
	}

	rec, err := scanProfile(r.pool.QueryRow(ctx, `
SELECT `+profileColumns+`
FROM profiles
WHERE user_id = $1
LIMIT 1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileRecord{}, ErrProfileNotFound
		}
		return ProfileRecord{}, fmt.Errorf("get profile: %w", err)
	}

	return rec, nil
}

func (r *ProfileRepo) UpdateCareerFields(ctx context.Context, userID int64, headline, targetRole, language string) (ProfileRecord, error) {
	if r.pool == nil {
		return ProfileRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return ProfileRecord{}, fmt.Errorf("invalid user id")
	}

	rec, err := scanProfile(r.pool.QueryRow(ctx, `
UPDATE profiles
SET
	headline = $2,
	target_role = $3,
	language = $4,
	updated_at = NOW()
WHERE user_id = $1
RETURNING `+profileColumns+`
`, userID, strings.TrimSpace(headline), strings.TrimSpace(targetRole), strings.TrimSpace(language)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileRecord{}, ErrProfileNotFound
		}
		return ProfileRecord{}, fmt.Errorf("update profile career fields: %w", err)
	}

	return rec, nil
}

// MarkTrialUsed flips the one-shot trial flag. The conditional WHERE makes
// the false->true transition happen at most once per profile.
func (r *ProfileRepo) MarkTrialUsed(ctx context.Context, userID int64, now time.Time) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return false, fmt.Errorf("invalid user id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE profiles
SET
	trial_interview_used = TRUE,
	trial_interview_date = $2,
	updated_at = NOW()
WHERE user_id = $1
  AND trial_interview_used = FALSE
`, userID, now.UTC())
	if err != nil {
		return false, fmt.Errorf("mark trial interview used: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ReleaseTrial returns the free interview slot after a submission failed
// downstream of the claim.
func (r *ProfileRepo) ReleaseTrial(ctx context.Context, userID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE profiles
SET
	trial_interview_used = FALSE,
	trial_interview_date = NULL,
	updated_at = NOW()
WHERE user_id = $1
  AND trial_interview_used = TRUE
`, userID); err != nil {
		return fmt.Errorf("release trial interview: %w", err)
	}

	return nil
}

// ActivatePremium grants the premium plan without a payment, used by
// free-discount coupons.
func (r *ProfileRepo) ActivatePremium(ctx context.Context, userID int64, plan string, credits int) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || strings.TrimSpace(plan) == "" {
		return fmt.Errorf("invalid premium activation payload")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE profiles
SET
	subscription_status = 'active',
	subscription_plan = $2,
	interview_credits = GREATEST(interview_credits, $3),
	updated_at = NOW()
WHERE user_id = $1
`, userID, plan, credits); err != nil {
		return fmt.Errorf("activate premium profile: %w", err)
	}

	return nil
}

// DowngradeExpired flips the given profiles to expired unless another active
// subscription still covers them. Called with the user ids whose
// subscriptions just lapsed.
func (r *ProfileRepo) DowngradeExpired(ctx context.Context, userIDs []int64) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if len(userIDs) == 0 {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE profiles p
SET
	subscription_status = 'expired',
	updated_at = NOW()
WHERE p.user_id = ANY($1)
  AND p.subscription_status = 'active'
  AND NOT EXISTS (
	SELECT 1 FROM subscriptions s
	WHERE s.user_id = p.user_id
	  AND s.status = 'active'
  )
`, userIDs)
	if err != nil {
		return 0, fmt.Errorf("downgrade expired profiles: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanProfile(row pgx.Row) (ProfileRecord, error) {
	var rec ProfileRecord
	if err := row.Scan(
		&rec.UserID,
		&rec.Email,
		&rec.FullName,
		&rec.Headline,
		&rec.TargetRole,
		&rec.Language,
		&rec.SubscriptionStatus,
		&rec.SubscriptionPlan,
		&rec.SubscriptionMonths,
		&rec.InterviewCredits,
		&rec.TrialInterviewUsed,
		&rec.TrialInterviewDate,
		&rec.StripeSessionID,
		&rec.StripeCustomerID,
		&rec.PaymentCompletedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return ProfileRecord{}, err
	}
	return rec, nil
}
