package dto

import "time"

type ProfileResponse struct {
	UserID             int64      `json:"user_id"`
	Email              string     `json:"email"`
	FullName           string     `json:"full_name"`
	Headline           string     `json:"headline,omitempty"`
	TargetRole         string     `json:"target_role,omitempty"`
	Language           string     `json:"language,omitempty"`
	SubscriptionStatus string     `json:"subscription_status"`
	SubscriptionPlan   string     `json:"subscription_plan,omitempty"`
	InterviewCredits   int        `json:"interview_credits"`
	TrialInterviewUsed bool       `json:"trial_interview_used"`
	PaymentCompletedAt *time.Time `json:"payment_completed_at,omitempty"`
}

type SubscriptionResponse struct {
	PlanType  string    `json:"plan_type"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ServiceResponse struct {
	ID          int64      `json:"id"`
	ServiceName string     `json:"service_name"`
	ServiceType string     `json:"service_type"`
	Status      string     `json:"status"`
	PurchasedAt time.Time  `json:"purchased_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type DashboardResponse struct {
	Profile      ProfileResponse       `json:"profile"`
	Subscription *SubscriptionResponse `json:"subscription,omitempty"`
	Services     []ServiceResponse     `json:"services"`
}

type ProfileUpdateRequest struct {
	Headline   string `json:"headline"`
	TargetRole string `json:"target_role"`
	Language   string `json:"language"`
}
