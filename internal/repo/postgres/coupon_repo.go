package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/enums"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/model"
)

var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponExhausted   = errors.New("coupon has no uses left")
	ErrCouponAlreadyUsed = errors.New("coupon already used by this user")
)

type CouponRepo struct {
	pool *pgxpool.Pool
}

func NewCouponRepo(pool *pgxpool.Pool) *CouponRepo {
	return &CouponRepo{pool: pool}
}

const couponColumns = `id, code, discount_type, discount_value, max_uses, current_uses, active, expires_at, created_at`

// Create inserts a new coupon. Codes are stored uppercase.
func (r *CouponRepo) Create(ctx context.Context, c model.Coupon) (model.Coupon, error) {
	if r.pool == nil {
		return model.Coupon{}, fmt.Errorf("postgres pool is nil")
	}
	code := strings.ToUpper(strings.TrimSpace(c.Code))
	if code == "" {
		return model.Coupon{}, fmt.Errorf("coupon code is required")
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO coupons (code, discount_type, discount_value, max_uses, active, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+couponColumns+`
`, code, c.DiscountType, c.DiscountValue, c.MaxUses, c.Active, c.ExpiresAt)

	return scanCoupon(row)
}

// FindByCode treats codes as case-insensitive.
func (r *CouponRepo) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	if r.pool == nil {
		return model.Coupon{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+couponColumns+`
FROM coupons
WHERE code = $1
`, strings.ToUpper(strings.TrimSpace(code)))

	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Coupon{}, ErrCouponNotFound
		}
		return model.Coupon{}, err
	}
	return c, nil
}

// HasUsed reports whether the user already redeemed the coupon.
func (r *CouponRepo) HasUsed(ctx context.Context, couponID, userID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var used bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM coupon_uses
	WHERE coupon_id = $1 AND user_id = $2
)
`, couponID, userID).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("check coupon use: %w", err)
	}
	return used, nil
}

// Redeem records one use for the user and bumps the counter. The whole thing
// runs in a transaction so a use row never exists without its increment. The
// unique (coupon_id, user_id) index blocks a second redemption by the same
// user, and the guarded increment blocks use number max_uses+1 under races.
func (r *CouponRepo) Redeem(ctx context.Context, couponID, userID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	return WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(txCtx, `
INSERT INTO coupon_uses (coupon_id, user_id, used_at)
VALUES ($1, $2, NOW())
`, couponID, userID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrCouponAlreadyUsed
			}
			return fmt.Errorf("insert coupon use: %w", err)
		}

		tag, err := tx.Exec(txCtx, `
UPDATE coupons
SET current_uses = current_uses + 1
WHERE id = $1
  AND active = TRUE
  AND current_uses < max_uses
`, couponID)
		if err != nil {
			return fmt.Errorf("increment coupon uses: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrCouponExhausted
		}
		return nil
	})
}

// Deactivate turns a coupon off without deleting its usage history.
func (r *CouponRepo) Deactivate(ctx context.Context, couponID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE coupons
SET active = FALSE
WHERE id = $1
`, couponID)
	if err != nil {
		return fmt.Errorf("deactivate coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}

func scanCoupon(row pgx.Row) (model.Coupon, error) {
	var c model.Coupon
	var discountType string
	err := row.Scan(
		&c.ID,
		&c.Code,
		&discountType,
		&c.DiscountValue,
		&c.MaxUses,
		&c.CurrentUses,
		&c.Active,
		&c.ExpiresAt,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Coupon{}, err
		}
		return model.Coupon{}, fmt.Errorf("scan coupon: %w", err)
	}
	c.DiscountType = enums.DiscountType(discountType)
	return c, nil
}
