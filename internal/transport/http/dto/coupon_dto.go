package dto

import "time"

type CouponValidateRequest struct {
	Code string `json:"code"`
}

type CouponResponse struct {
	Code          string     `json:"code"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue int64      `json:"discount_value"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

type CouponCreateRequest struct {
	Code          string     `json:"code"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue int64      `json:"discount_value"`
	MaxUses       int        `json:"max_uses"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}
