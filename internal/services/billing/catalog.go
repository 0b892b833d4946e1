package billing

import "strings"

// ProductKind tags what a checkout line item grants.
type ProductKind string

const (
	KindMembership ProductKind = "membership"
	KindService    ProductKind = "service"
	KindCredits    ProductKind = "credits"
)

// Product describes one purchasable item. Kind-specific fields are only set
// for the matching kind.
type Product struct {
	ID          string
	Name        string
	Kind        ProductKind
	Months      int    // membership
	ServiceType string // service
	CreditBlock int    // credits
	AmountMinor int64
	Currency    string
}

var catalog = []Product{
	{
		ID:          "prod_membership_6m",
		Name:        "Premium Membership (6 months)",
		Kind:        KindMembership,
		Months:      6,
		AmountMinor: 9900,
		Currency:    "usd",
	},
	{
		ID:          "prod_membership_12m",
		Name:        "Premium Membership (12 months)",
		Kind:        KindMembership,
		Months:      12,
		AmountMinor: 14900,
		Currency:    "usd",
	},
	{
		ID:          "prod_cv_rewrite",
		Name:        "Professional CV Rewrite",
		Kind:        KindService,
		ServiceType: "cv_rewrite",
		AmountMinor: 4900,
		Currency:    "usd",
	},
	{
		ID:          "prod_coaching_session",
		Name:        "1:1 Career Coaching Session",
		Kind:        KindService,
		ServiceType: "coaching_session",
		AmountMinor: 7900,
		Currency:    "usd",
	},
	{
		ID:          "prod_linkedin_makeover",
		Name:        "LinkedIn Profile Makeover",
		Kind:        KindService,
		ServiceType: "linkedin_makeover",
		AmountMinor: 3900,
		Currency:    "usd",
	},
	{
		ID:          "prod_interview_credits_5",
		Name:        "Interview Credit Pack (5)",
		Kind:        KindCredits,
		CreditBlock: 5,
		AmountMinor: 1900,
		Currency:    "usd",
	},
}

var productsByID = func() map[string]Product {
	m := make(map[string]Product, len(catalog))
	for _, p := range catalog {
		m[p.ID] = p
	}
	return m
}()

// ProductByID looks a product up in the static catalog.
func ProductByID(id string) (Product, bool) {
	p, ok := productsByID[strings.TrimSpace(id)]
	return p, ok
}

// Products returns the purchasable catalog in display order.
func Products() []Product {
	out := make([]Product, len(catalog))
	copy(out, catalog)
	return out
}

// classifySession resolves the product a completed checkout session paid
// for. Line-item product ids win; a membership_type metadata hint is the
// fallback for sessions created before line items carried catalog ids.
func classifySession(productIDs []string, metadata map[string]string) (Product, bool) {
	for _, id := range productIDs {
		if p, ok := productsByID[id]; ok {
			return p, true
		}
	}

	switch strings.ToLower(strings.TrimSpace(metadata["membership_type"])) {
	case "6months", "6_months", "premium_6m":
		return productsByID["prod_membership_6m"], true
	case "12months", "12_months", "premium_12m", "annual":
		return productsByID["prod_membership_12m"], true
	}

	if p, ok := productsByID[strings.TrimSpace(metadata["product_id"])]; ok {
		return p, true
	}

	return Product{}, false
}
