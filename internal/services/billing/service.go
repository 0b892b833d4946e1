package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/enums"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/model"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/rules"
	stripeinfra "github.com/pmorral/lapieza-career-navigator-sub000/internal/infra/stripe"
	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrBadSignature      = errors.New("webhook signature verification failed")
	ErrNotConfigured     = errors.New("payment provider is not configured")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrMissingUser       = errors.New("session carries no user reference")
	ErrCouponNotEligible = errors.New("coupon does not apply to this product")
)

const eventCheckoutCompleted = "checkout.session.completed"

// Gateway is the payment-provider surface the service needs. The concrete
// implementation lives in infra and keeps the SDK types out of here.
type Gateway interface {
	ParseEvent(payload []byte, signatureHeader string) (stripeinfra.Event, error)
	FetchSession(ctx context.Context, sessionID string) (stripeinfra.SessionDetails, error)
	CreateSession(ctx context.Context, in stripeinfra.SessionCreate) (stripeinfra.SessionResult, error)
}

type ReconcileStore interface {
	ApplyMembership(ctx context.Context, grant pgrepo.MembershipGrant) (bool, error)
	ApplyService(ctx context.Context, grant pgrepo.ServiceGrant) (bool, error)
	ApplyCreditBlock(ctx context.Context, grant pgrepo.CreditGrant) (bool, error)
}

type PaymentStore interface {
	CreatePending(ctx context.Context, userID int64, sessionID, productName string, amountMinor int64, currency string) (pgrepo.PaymentRecord, error)
}

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error)
	ActivatePremium(ctx context.Context, userID int64, plan string, credits int) error
}

// CouponRedeemer validates and burns coupon codes during checkout.
type CouponRedeemer interface {
	Validate(ctx context.Context, code string, userID int64) (model.Coupon, error)
	Redeem(ctx context.Context, couponID, userID int64) error
}

// Notifier enqueues transactional mail. Failures are logged, never fatal.
type Notifier interface {
	MembershipActivated(ctx context.Context, userID int64, planName string) error
	ServicePurchased(ctx context.Context, userID int64, serviceName string, expiresAt time.Time) error
}

type Service struct {
	gateway  Gateway
	store    ReconcileStore
	payments PaymentStore
	profiles ProfileStore
	coupons  CouponRedeemer
	notifier Notifier
	baseURL  string
	logger   *zap.Logger
	now      func() time.Time
}

type Dependencies struct {
	Gateway       Gateway
	Reconcile     ReconcileStore
	Payments      PaymentStore
	Profiles      ProfileStore
	Coupons       CouponRedeemer
	Notifier      Notifier
	PublicBaseURL string
	Logger        *zap.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		gateway:  deps.Gateway,
		store:    deps.Reconcile,
		payments: deps.Payments,
		profiles: deps.Profiles,
		coupons:  deps.Coupons,
		notifier: deps.Notifier,
		baseURL:  strings.TrimRight(deps.PublicBaseURL, "/"),
		logger:   logger,
		now:      time.Now,
	}
}

// WebhookAck is what the handler returns to the provider. Processed is false
// for ignored event types, redeliveries and unclassifiable products, all of
// which still get a 200.
type WebhookAck struct {
	EventID     string
	EventType   string
	Processed   bool
	ProcessedAt time.Time
}

// HandleWebhook verifies, classifies and reconciles one provider event.
// Every database mutation for the event happens inside a single transaction
// keyed by the event id, so redeliveries and concurrent deliveries of the
// same event apply exactly once.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (WebhookAck, error) {
	if s.gateway == nil {
		return WebhookAck{}, ErrNotConfigured
	}

	event, err := s.gateway.ParseEvent(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, stripeinfra.ErrBadSignature) {
			return WebhookAck{}, ErrBadSignature
		}
		if errors.Is(err, stripeinfra.ErrNotConfigured) {
			return WebhookAck{}, ErrNotConfigured
		}
		return WebhookAck{}, fmt.Errorf("parse webhook event: %w", err)
	}

	ack := WebhookAck{
		EventID:     event.ID,
		EventType:   event.Type,
		ProcessedAt: s.now().UTC(),
	}

	if event.Type != eventCheckoutCompleted {
		s.logger.Debug("ignoring webhook event", zap.String("event_type", event.Type))
		return ack, nil
	}

	session, err := s.gateway.FetchSession(ctx, event.SessionID)
	if err != nil {
		return WebhookAck{}, fmt.Errorf("fetch checkout session %s: %w", event.SessionID, err)
	}

	metadata := mergeMetadata(event.Metadata, session.Metadata)
	userID, err := userIDFromMetadata(metadata)
	if err != nil {
		s.logger.Warn("webhook session has no resolvable user",
			zap.String("event_id", event.ID),
			zap.String("session_id", event.SessionID))
		return ack, nil
	}

	product, ok := classifySession(session.ProductIDs, metadata)
	if !ok {
		// Unknown products are acknowledged without touching any rows so
		// the provider stops retrying. Ops follows up from the log.
		s.logger.Warn("webhook session paid for an unclassifiable product",
			zap.String("event_id", event.ID),
			zap.String("session_id", event.SessionID),
			zap.Strings("product_ids", session.ProductIDs))
		return ack, nil
	}

	amount := session.AmountTotal
	currency := session.Currency
	if amount == 0 && event.AmountTotal > 0 {
		amount = event.AmountTotal
		currency = event.Currency
	}

	applied, err := s.reconcile(ctx, event, session, product, userID, amount, currency)
	if err != nil {
		return WebhookAck{}, err
	}
	ack.Processed = applied

	if !applied {
		s.logger.Info("webhook event already processed",
			zap.String("event_id", event.ID))
		return ack, nil
	}

	s.notifyPurchase(ctx, userID, product)

	s.logger.Info("webhook event reconciled",
		zap.String("event_id", event.ID),
		zap.String("product_id", product.ID),
		zap.Int64("user_id", userID))
	return ack, nil
}

func (s *Service) reconcile(ctx context.Context, event stripeinfra.Event, session stripeinfra.SessionDetails, product Product, userID, amount int64, currency string) (bool, error) {
	now := s.now().UTC()

	switch product.Kind {
	case KindMembership:
		grant := pgrepo.MembershipGrant{
			EventID:          event.ID,
			UserID:           userID,
			Plan:             string(planForMonths(product.Months)),
			Months:           product.Months,
			InterviewCredits: rules.InterviewCreditsForMonths(product.Months),
			AmountMinor:      amount,
			Currency:         currency,
			SessionID:        session.ID,
			CustomerID:       event.CustomerID,
			StartedAt:        now,
			ExpiresAt:        rules.SubscriptionExpiry(now, product.Months),
		}
		applied, err := s.store.ApplyMembership(ctx, grant)
		if err != nil {
			return false, fmt.Errorf("apply membership: %w", err)
		}
		return applied, nil

	case KindService:
		grant := pgrepo.ServiceGrant{
			EventID:     event.ID,
			UserID:      userID,
			SessionID:   session.ID,
			ServiceName: product.Name,
			ServiceType: product.ServiceType,
			AmountMinor: amount,
			Currency:    currency,
			PurchasedAt: now,
			ExpiresAt:   rules.ServiceExpiry(now),
		}
		applied, err := s.store.ApplyService(ctx, grant)
		if err != nil {
			return false, fmt.Errorf("apply service purchase: %w", err)
		}
		return applied, nil

	case KindCredits:
		grant := pgrepo.CreditGrant{
			EventID:   event.ID,
			UserID:    userID,
			Credits:   product.CreditBlock,
			SessionID: session.ID,
		}
		applied, err := s.store.ApplyCreditBlock(ctx, grant)
		if err != nil {
			return false, fmt.Errorf("apply credit block: %w", err)
		}
		return applied, nil

	default:
		return false, fmt.Errorf("unhandled product kind %q", product.Kind)
	}
}

func (s *Service) notifyPurchase(ctx context.Context, userID int64, product Product) {
	if s.notifier == nil {
		return
	}

	var err error
	switch product.Kind {
	case KindMembership:
		err = s.notifier.MembershipActivated(ctx, userID, product.Name)
	case KindService:
		err = s.notifier.ServicePurchased(ctx, userID, product.Name, rules.ServiceExpiry(s.now().UTC()))
	}
	if err != nil {
		s.logger.Warn("enqueue purchase notification",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}

type CheckoutInput struct {
	UserID     int64
	ProductID  string
	CouponCode string
}

// CheckoutResult carries either a provider redirect URL or, for fully
// discounted memberships, an immediate activation with no redirect.
type CheckoutResult struct {
	SessionID          string
	URL                string
	Free               bool
	AmountMinor        int64
	SubscriptionStatus string
}

// CreateCheckout prices the product, applies an optional coupon and opens a
// provider checkout session. A coupon that drives a membership to zero skips
// the provider entirely and activates premium on the spot.
func (s *Service) CreateCheckout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	if in.UserID <= 0 {
		return CheckoutResult{}, ErrValidation
	}
	product, ok := ProductByID(in.ProductID)
	if !ok {
		return CheckoutResult{}, ErrUnknownProduct
	}

	profile, err := s.profiles.GetByUserID(ctx, in.UserID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("load profile: %w", err)
	}

	amount := product.AmountMinor
	var coupon model.Coupon
	couponCode := strings.TrimSpace(in.CouponCode)
	if couponCode != "" {
		if s.coupons == nil {
			return CheckoutResult{}, ErrValidation
		}
		coupon, err = s.coupons.Validate(ctx, couponCode, in.UserID)
		if err != nil {
			return CheckoutResult{}, err
		}
		amount = discountedAmount(product.AmountMinor, coupon)
	}

	if amount == 0 {
		if product.Kind != KindMembership {
			return CheckoutResult{}, ErrCouponNotEligible
		}
		return s.activateFree(ctx, in.UserID, product, coupon)
	}

	if s.gateway == nil {
		return CheckoutResult{}, ErrNotConfigured
	}

	metadata := map[string]string{
		"user_id":    fmt.Sprintf("%d", in.UserID),
		"product_id": product.ID,
	}
	if couponCode != "" {
		metadata["coupon_code"] = strings.ToUpper(couponCode)
	}

	session, err := s.gateway.CreateSession(ctx, stripeinfra.SessionCreate{
		Email:       profile.Email,
		ProductName: product.Name,
		AmountMinor: amount,
		Currency:    product.Currency,
		SuccessURL:  s.baseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   s.baseURL + "/checkout/cancel",
		Metadata:    metadata,
	})
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("create checkout session: %w", err)
	}

	if _, err := s.payments.CreatePending(ctx, in.UserID, session.ID, product.Name, amount, product.Currency); err != nil {
		return CheckoutResult{}, fmt.Errorf("record pending payment: %w", err)
	}

	if coupon.ID > 0 {
		if err := s.coupons.Redeem(ctx, coupon.ID, in.UserID); err != nil {
			return CheckoutResult{}, fmt.Errorf("redeem coupon: %w", err)
		}
	}

	return CheckoutResult{
		SessionID:   session.ID,
		URL:         session.URL,
		AmountMinor: amount,
	}, nil
}

// activateFree grants premium directly for a 100% discount. No checkout
// session exists, so the coupon redemption and the grant happen here.
func (s *Service) activateFree(ctx context.Context, userID int64, product Product, coupon model.Coupon) (CheckoutResult, error) {
	if coupon.ID <= 0 {
		return CheckoutResult{}, ErrValidation
	}

	if err := s.coupons.Redeem(ctx, coupon.ID, userID); err != nil {
		return CheckoutResult{}, err
	}

	credits := rules.InterviewCreditsForMonths(product.Months)
	if err := s.profiles.ActivatePremium(ctx, userID, string(enums.PlanPremium), credits); err != nil {
		return CheckoutResult{}, fmt.Errorf("activate premium: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.MembershipActivated(ctx, userID, product.Name); err != nil {
			s.logger.Warn("enqueue free activation notification",
				zap.Int64("user_id", userID),
				zap.Error(err))
		}
	}

	s.logger.Info("free coupon activated premium",
		zap.Int64("user_id", userID),
		zap.String("coupon", coupon.Code))

	return CheckoutResult{
		Free:               true,
		SubscriptionStatus: "active",
	}, nil
}

func discountedAmount(amountMinor int64, coupon model.Coupon) int64 {
	switch coupon.DiscountType {
	case enums.DiscountTypeFree:
		return 0
	case enums.DiscountTypePercentage:
		discounted := amountMinor - amountMinor*coupon.DiscountValue/100
		if discounted < 0 {
			return 0
		}
		return discounted
	case enums.DiscountTypeFixed:
		discounted := amountMinor - coupon.DiscountValue
		if discounted < 0 {
			return 0
		}
		return discounted
	default:
		return amountMinor
	}
}

func planForMonths(months int) enums.PlanType {
	if months >= 12 {
		return enums.PlanPremium12M
	}
	return enums.PlanPremium6M
}

func mergeMetadata(event, session map[string]string) map[string]string {
	merged := make(map[string]string, len(event)+len(session))
	for k, v := range event {
		merged[k] = v
	}
	for k, v := range session {
		merged[k] = v
	}
	return merged
}

func userIDFromMetadata(metadata map[string]string) (int64, error) {
	raw := strings.TrimSpace(metadata["user_id"])
	if raw == "" {
		return 0, ErrMissingUser
	}
	var userID int64
	if _, err := fmt.Sscanf(raw, "%d", &userID); err != nil || userID <= 0 {
		return 0, ErrMissingUser
	}
	return userID, nil
}
