package expiry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type subscriptionExpirer interface {
	ExpireActiveBefore(ctx context.Context, cutoff time.Time) ([]int64, error)
}

type profileDowngrader interface {
	DowngradeExpired(ctx context.Context, userIDs []int64) (int64, error)
}

type serviceExpirer interface {
	ExpireScheduledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type paymentExpirer interface {
	ExpirePendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job sweeps lapsed billing state: subscriptions past their expiry date,
// services whose purchase window ran out, and checkout payments that never
// received a webhook.
type Job struct {
	subscriptions   subscriptionExpirer
	profiles        profileDowngrader
	services        serviceExpirer
	payments        paymentExpirer
	paymentBackstop time.Duration
	now             func() time.Time
	logger          *zap.Logger
}

func New(
	subscriptions subscriptionExpirer,
	profiles profileDowngrader,
	services serviceExpirer,
	payments paymentExpirer,
	paymentBackstop time.Duration,
	logger *zap.Logger,
) *Job {
	if paymentBackstop <= 0 {
		paymentBackstop = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		subscriptions:   subscriptions,
		profiles:        profiles,
		services:        services,
		payments:        payments,
		paymentBackstop: paymentBackstop,
		now:             time.Now,
		logger:          logger,
	}
}

// Run performs a single sweep. Subscriptions flip first so the profile
// downgrade only touches users who just lost their last active plan.
func (j *Job) Run(ctx context.Context) error {
	now := j.now().UTC()

	if j.subscriptions != nil && j.profiles != nil {
		userIDs, err := j.subscriptions.ExpireActiveBefore(ctx, now)
		if err != nil {
			return fmt.Errorf("expire subscriptions: %w", err)
		}
		if len(userIDs) > 0 {
			downgraded, err := j.profiles.DowngradeExpired(ctx, userIDs)
			if err != nil {
				return fmt.Errorf("downgrade expired profiles: %w", err)
			}
			j.logger.Info("expired subscriptions swept",
				zap.Int("subscriptions", len(userIDs)),
				zap.Int64("profiles_downgraded", downgraded))
		}
	}

	if j.services != nil {
		rows, err := j.services.ExpireScheduledBefore(ctx, now)
		if err != nil {
			return fmt.Errorf("expire scheduled services: %w", err)
		}
		if rows > 0 {
			j.logger.Info("stale services expired", zap.Int64("services", rows))
		}
	}

	if j.payments != nil {
		cutoff := now.Add(-j.paymentBackstop)
		rows, err := j.payments.ExpirePendingOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("expire pending payments: %w", err)
		}
		if rows > 0 {
			j.logger.Info("abandoned payments expired", zap.Int64("payments", rows))
		}
	}

	return nil
}
