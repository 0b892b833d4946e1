package enums

type PlanType string

const (
	PlanPremium6M  PlanType = "premium_6m"
	PlanPremium12M PlanType = "premium_12m"
	// PlanPremium is granted directly by a free coupon, without a checkout.
	PlanPremium PlanType = "premium"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)
