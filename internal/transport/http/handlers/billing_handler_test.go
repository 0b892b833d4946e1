package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	stripeinfra "github.com/pmorral/lapieza-career-navigator-sub000/internal/infra/stripe"
	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
	billingsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/billing"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/transport/http/dto"
)

type gatewayStub struct {
	event    stripeinfra.Event
	parseErr error
	session  stripeinfra.SessionDetails
}

func (g gatewayStub) ParseEvent([]byte, string) (stripeinfra.Event, error) {
	return g.event, g.parseErr
}

func (g gatewayStub) FetchSession(context.Context, string) (stripeinfra.SessionDetails, error) {
	return g.session, nil
}

func (g gatewayStub) CreateSession(context.Context, stripeinfra.SessionCreate) (stripeinfra.SessionResult, error) {
	return stripeinfra.SessionResult{}, nil
}

type reconcileStub struct {
	memberships int
}

func (r *reconcileStub) ApplyMembership(_ context.Context, _ pgrepo.MembershipGrant) (bool, error) {
	r.memberships++
	return true, nil
}

func (r *reconcileStub) ApplyService(context.Context, pgrepo.ServiceGrant) (bool, error) {
	return true, nil
}

func (r *reconcileStub) ApplyCreditBlock(context.Context, pgrepo.CreditGrant) (bool, error) {
	return true, nil
}

func newWebhookHandler(gateway billingsvc.Gateway, store billingsvc.ReconcileStore) *BillingHandler {
	return NewBillingHandler(billingsvc.NewService(billingsvc.Dependencies{
		Gateway:   gateway,
		Reconcile: store,
	}))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	handler := newWebhookHandler(gatewayStub{parseErr: stripeinfra.ErrBadSignature}, &reconcileStub{})

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rr := httptest.NewRecorder()

	handler.Webhook(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestWebhookAcksIgnoredEventTypes(t *testing.T) {
	store := &reconcileStub{}
	handler := newWebhookHandler(gatewayStub{
		event: stripeinfra.Event{ID: "evt_1", Type: "invoice.paid"},
	}, store)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()

	handler.Webhook(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var ack dto.WebhookAckResponse
	if err := json.NewDecoder(rr.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack.Received || ack.Processed {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if ack.EventID != "evt_1" || ack.EventType != "invoice.paid" {
		t.Fatalf("unexpected ack identity: %+v", ack)
	}
	if store.memberships != 0 {
		t.Fatal("ignored event must not touch the store")
	}
}

func TestWebhookProcessesMembershipPurchase(t *testing.T) {
	store := &reconcileStub{}
	handler := newWebhookHandler(gatewayStub{
		event: stripeinfra.Event{
			ID:        "evt_2",
			Type:      "checkout.session.completed",
			SessionID: "cs_123",
		},
		session: stripeinfra.SessionDetails{
			ID:          "cs_123",
			ProductIDs:  []string{"prod_membership_6m"},
			Metadata:    map[string]string{"user_id": "42"},
			AmountTotal: 9900,
			Currency:    "usd",
		},
	}, store)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()

	handler.Webhook(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var ack dto.WebhookAckResponse
	if err := json.NewDecoder(rr.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack.Processed {
		t.Fatalf("expected processed ack, got %+v", ack)
	}
	if ack.ProcessedAt == nil || time.Since(*ack.ProcessedAt) > time.Minute {
		t.Fatalf("implausible processed_at: %v", ack.ProcessedAt)
	}
	if store.memberships != 1 {
		t.Fatalf("expected one membership grant, got %d", store.memberships)
	}
}
