package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var (
	ErrNotConfigured = errors.New("stripe is not configured")
	ErrBadSignature  = errors.New("webhook signature verification failed")
)

type Config struct {
	SecretKey     string
	WebhookSecret string
}

// Event is the neutral shape the billing service consumes; the stripe-go
// types stay confined to this package.
type Event struct {
	ID          string
	Type        string
	SessionID   string
	CustomerID  string
	AmountTotal int64
	Currency    string
	Metadata    map[string]string
}

type SessionDetails struct {
	ID          string
	ProductIDs  []string
	Metadata    map[string]string
	AmountTotal int64
	Currency    string
	CustomerID  string
}

type SessionCreate struct {
	Email       string
	ProductName string
	AmountMinor int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

type SessionResult struct {
	ID  string
	URL string
}

type Client struct {
	api           *client.API
	webhookSecret string
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, ErrNotConfigured
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &Client{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
	}, nil
}

// ParseEvent verifies the payload signature against the shared webhook
// secret and extracts the checkout-session fields. Any verification failure
// maps to ErrBadSignature (fail closed).
func (c *Client) ParseEvent(payload []byte, sigHeader string) (Event, error) {
	if c.webhookSecret == "" {
		return Event{}, ErrNotConfigured
	}

	ev, err := webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	out := Event{
		ID:   ev.ID,
		Type: string(ev.Type),
	}

	if len(ev.Data.Raw) > 0 {
		var sess stripego.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err == nil {
			out.SessionID = sess.ID
			out.AmountTotal = sess.AmountTotal
			out.Currency = string(sess.Currency)
			out.Metadata = sess.Metadata
			if sess.Customer != nil {
				out.CustomerID = sess.Customer.ID
			}
		}
	}

	return out, nil
}

// FetchSession re-fetches a checkout session with line items expanded so the
// purchased product ids can be classified.
func (c *Client) FetchSession(ctx context.Context, sessionID string) (SessionDetails, error) {
	if c.api == nil {
		return SessionDetails{}, ErrNotConfigured
	}
	if strings.TrimSpace(sessionID) == "" {
		return SessionDetails{}, fmt.Errorf("session id is required")
	}

	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")

	sess, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return SessionDetails{}, fmt.Errorf("fetch checkout session: %w", err)
	}

	details := SessionDetails{
		ID:          sess.ID,
		Metadata:    sess.Metadata,
		AmountTotal: sess.AmountTotal,
		Currency:    string(sess.Currency),
	}
	if sess.Customer != nil {
		details.CustomerID = sess.Customer.ID
	}
	if sess.LineItems != nil {
		for _, item := range sess.LineItems.Data {
			if item == nil || item.Price == nil || item.Price.Product == nil {
				continue
			}
			details.ProductIDs = append(details.ProductIDs, item.Price.Product.ID)
		}
	}

	return details, nil
}

func (c *Client) CreateSession(ctx context.Context, in SessionCreate) (SessionResult, error) {
	if c.api == nil {
		return SessionResult{}, ErrNotConfigured
	}

	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "usd"
	}

	params := &stripego.CheckoutSessionParams{
		Mode:          stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL:    stripego.String(in.SuccessURL),
		CancelURL:     stripego.String(in.CancelURL),
		CustomerEmail: stripego.String(in.Email),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{
				PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripego.String(currency),
					UnitAmount: stripego.Int64(in.AmountMinor),
					ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripego.String(in.ProductName),
					},
				},
				Quantity: stripego.Int64(1),
			},
		},
	}
	params.Context = ctx
	for key, value := range in.Metadata {
		params.AddMetadata(key, value)
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return SessionResult{}, fmt.Errorf("create checkout session: %w", err)
	}

	return SessionResult{ID: sess.ID, URL: sess.URL}, nil
}
