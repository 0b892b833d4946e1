package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/enums"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/model"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/pkg/validate"
	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("coupon not found")
	ErrInactive    = errors.New("coupon is inactive")
	ErrExpired     = errors.New("coupon has expired")
	ErrExhausted   = errors.New("coupon has no uses left")
	ErrAlreadyUsed = errors.New("coupon already used by this user")
)

type Store interface {
	Create(ctx context.Context, c model.Coupon) (model.Coupon, error)
	FindByCode(ctx context.Context, code string) (model.Coupon, error)
	HasUsed(ctx context.Context, couponID, userID int64) (bool, error)
	Redeem(ctx context.Context, couponID, userID int64) error
	Deactivate(ctx context.Context, couponID int64) error
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// Validate checks every redemption precondition without consuming a use.
func (s *Service) Validate(ctx context.Context, code string, userID int64) (model.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" || userID <= 0 {
		return model.Coupon{}, ErrValidation
	}

	coupon, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCouponNotFound) {
			return model.Coupon{}, ErrNotFound
		}
		return model.Coupon{}, fmt.Errorf("find coupon: %w", err)
	}

	if !coupon.Active {
		return model.Coupon{}, ErrInactive
	}
	if coupon.ExpiresAt != nil && s.now().After(*coupon.ExpiresAt) {
		return model.Coupon{}, ErrExpired
	}
	if coupon.CurrentUses >= coupon.MaxUses {
		return model.Coupon{}, ErrExhausted
	}

	used, err := s.store.HasUsed(ctx, coupon.ID, userID)
	if err != nil {
		return model.Coupon{}, fmt.Errorf("check coupon use: %w", err)
	}
	if used {
		return model.Coupon{}, ErrAlreadyUsed
	}

	return coupon, nil
}

// Redeem consumes one use for the user. The store enforces the per-user
// uniqueness and the max-uses cap atomically, so a Validate that raced
// another redemption still cannot overspend here.
func (s *Service) Redeem(ctx context.Context, couponID, userID int64) error {
	if couponID <= 0 || userID <= 0 {
		return ErrValidation
	}

	if err := s.store.Redeem(ctx, couponID, userID); err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrCouponAlreadyUsed):
			return ErrAlreadyUsed
		case errors.Is(err, pgrepo.ErrCouponExhausted):
			return ErrExhausted
		default:
			return fmt.Errorf("redeem coupon: %w", err)
		}
	}
	return nil
}

type CreateInput struct {
	Code          string
	DiscountType  string
	DiscountValue int64
	MaxUses       int
	ExpiresAt     *time.Time
}

// Create registers a new coupon. Admin only, enforced at the transport.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	discountType := enums.DiscountType(strings.ToLower(strings.TrimSpace(in.DiscountType)))

	if !validate.Required(code) || !discountType.Valid() || in.MaxUses <= 0 {
		return model.Coupon{}, ErrValidation
	}
	if discountType == enums.DiscountTypePercentage && (in.DiscountValue <= 0 || in.DiscountValue > 100) {
		return model.Coupon{}, ErrValidation
	}
	if discountType == enums.DiscountTypeFixed && in.DiscountValue <= 0 {
		return model.Coupon{}, ErrValidation
	}

	coupon, err := s.store.Create(ctx, model.Coupon{
		Code:          code,
		DiscountType:  discountType,
		DiscountValue: in.DiscountValue,
		MaxUses:       in.MaxUses,
		Active:        true,
		ExpiresAt:     in.ExpiresAt,
	})
	if err != nil {
		return model.Coupon{}, fmt.Errorf("create coupon: %w", err)
	}
	return coupon, nil
}

func (s *Service) Deactivate(ctx context.Context, couponID int64) error {
	if couponID <= 0 {
		return ErrValidation
	}
	if err := s.store.Deactivate(ctx, couponID); err != nil {
		if errors.Is(err, pgrepo.ErrCouponNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deactivate coupon: %w", err)
	}
	return nil
}
