package model

import (
	"time"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/enums"
)

type Coupon struct {
	ID            int64              `json:"id"`
	Code          string             `json:"code"`
	DiscountType  enums.DiscountType `json:"discount_type"`
	DiscountValue int64              `json:"discount_value"`
	MaxUses       int                `json:"max_uses"`
	CurrentUses   int                `json:"current_uses"`
	Active        bool               `json:"active"`
	ExpiresAt     *time.Time         `json:"expires_at"`
	CreatedAt     time.Time          `json:"created_at"`
}

type CouponUse struct {
	CouponID int64     `json:"coupon_id"`
	UserID   int64     `json:"user_id"`
	UsedAt   time.Time `json:"used_at"`
}
