package dto

import "time"

type CheckoutRequest struct {
	ProductID  string `json:"product_id"`
	CouponCode string `json:"coupon_code,omitempty"`
}

type CheckoutResponse struct {
	SessionID          string `json:"session_id,omitempty"`
	URL                string `json:"url,omitempty"`
	Free               bool   `json:"free"`
	AmountMinor        int64  `json:"amount_minor"`
	SubscriptionStatus string `json:"subscription_status,omitempty"`
}

type WebhookAckResponse struct {
	Received    bool       `json:"received"`
	EventID     string     `json:"event_id"`
	EventType   string     `json:"event_type"`
	Processed   bool       `json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

type ProductResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
}
