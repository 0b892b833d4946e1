package handlers

import (
	"errors"
	"io"
	"net/http"

	authsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/auth"
	billingsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/billing"
	couponsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/coupons"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/transport/http/dto"
	httperrors "github.com/pmorral/lapieza-career-navigator-sub000/internal/transport/http/errors"
)

const maxWebhookBodySize = 1 << 20 // 1 MiB, Stripe events are small

type BillingHandler struct {
	service *billingsvc.Service
}

func NewBillingHandler(service *billingsvc.Service) *BillingHandler {
	return &BillingHandler{service: service}
}

func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "BILLING_SERVICE_UNAVAILABLE", "billing service is unavailable")
		return
	}

	var req dto.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.CreateCheckout(r.Context(), billingsvc.CheckoutInput{
		UserID:     identity.UserID,
		ProductID:  req.ProductID,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		handleCheckoutError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CheckoutResponse{
		SessionID:          result.SessionID,
		URL:                result.URL,
		Free:               result.Free,
		AmountMinor:        result.AmountMinor,
		SubscriptionStatus: result.SubscriptionStatus,
	})
}

// Webhook receives provider events. The raw body is kept byte-for-byte for
// signature verification, so this endpoint never goes through decodeJSON.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "BILLING_SERVICE_UNAVAILABLE", "billing service is unavailable")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "failed to read webhook body")
		return
	}

	ack, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, billingsvc.ErrBadSignature):
			writeBadRequest(w, "BAD_SIGNATURE", "webhook signature verification failed")
		case errors.Is(err, billingsvc.ErrNotConfigured):
			writeInternal(w, "BILLING_NOT_CONFIGURED", "payment provider is not configured")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to process webhook")
		}
		return
	}

	resp := dto.WebhookAckResponse{
		Received:  true,
		EventID:   ack.EventID,
		EventType: ack.EventType,
		Processed: ack.Processed,
	}
	if !ack.ProcessedAt.IsZero() {
		processedAt := ack.ProcessedAt
		resp.ProcessedAt = &processedAt
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *BillingHandler) Products(w http.ResponseWriter, _ *http.Request) {
	products := billingsvc.Products()

	resp := dto.ProductListResponse{Products: make([]dto.ProductResponse, 0, len(products))}
	for _, p := range products {
		resp.Products = append(resp.Products, dto.ProductResponse{
			ID:          p.ID,
			Name:        p.Name,
			Kind:        string(p.Kind),
			AmountMinor: p.AmountMinor,
			Currency:    p.Currency,
		})
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func handleCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billingsvc.ErrValidation), errors.Is(err, billingsvc.ErrUnknownProduct):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid checkout payload")
	case errors.Is(err, billingsvc.ErrCouponNotEligible):
		writeBadRequest(w, "COUPON_NOT_ELIGIBLE", "coupon does not apply to this product")
	case errors.Is(err, couponsvc.ErrNotFound),
		errors.Is(err, couponsvc.ErrInactive),
		errors.Is(err, couponsvc.ErrExpired),
		errors.Is(err, couponsvc.ErrExhausted),
		errors.Is(err, couponsvc.ErrAlreadyUsed):
		handleCouponError(w, err)
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to create checkout session")
	}
}
