package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/auth"
	couponsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/coupons"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/transport/http/dto"
	httperrors "github.com/pmorral/lapieza-career-navigator-sub000/internal/transport/http/errors"
)

type CouponHandler struct {
	service *couponsvc.Service
}

func NewCouponHandler(service *couponsvc.Service) *CouponHandler {
	return &CouponHandler{service: service}
}

func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "COUPON_SERVICE_UNAVAILABLE", "coupon service is unavailable")
		return
	}

	var req dto.CouponValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	coupon, err := h.service.Validate(r.Context(), req.Code, identity.UserID)
	if err != nil {
		handleCouponError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CouponResponse{
		Code:          coupon.Code,
		DiscountType:  string(coupon.DiscountType),
		DiscountValue: coupon.DiscountValue,
		ExpiresAt:     coupon.ExpiresAt,
	})
}

func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COUPON_SERVICE_UNAVAILABLE", "coupon service is unavailable")
		return
	}

	var req dto.CouponCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	coupon, err := h.service.Create(r.Context(), couponsvc.CreateInput{
		Code:          req.Code,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MaxUses:       req.MaxUses,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, couponsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid coupon payload")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to create coupon")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CouponResponse{
		Code:          coupon.Code,
		DiscountType:  string(coupon.DiscountType),
		DiscountValue: coupon.DiscountValue,
		ExpiresAt:     coupon.ExpiresAt,
	})
}

func handleCouponError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, couponsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid coupon code")
	case errors.Is(err, couponsvc.ErrNotFound):
		writeNotFound(w, "COUPON_NOT_FOUND", "coupon not found")
	case errors.Is(err, couponsvc.ErrInactive):
		writeBadRequest(w, "COUPON_INACTIVE", "coupon is no longer active")
	case errors.Is(err, couponsvc.ErrExpired):
		writeBadRequest(w, "COUPON_EXPIRED", "coupon has expired")
	case errors.Is(err, couponsvc.ErrExhausted):
		writeBadRequest(w, "COUPON_EXHAUSTED", "coupon has reached its usage cap")
	case errors.Is(err, couponsvc.ErrAlreadyUsed):
		writeBadRequest(w, "COUPON_ALREADY_USED", "coupon was already redeemed by this account")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process coupon")
	}
}
