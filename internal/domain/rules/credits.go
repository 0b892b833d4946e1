package rules

import "time"

const (
	// DefaultInterviewAllowance is the number of interview requests included
	// with a membership before credit blocks are required.
	DefaultInterviewAllowance = 5

	// CreditBlockSize is how many interviews one purchased block adds.
	CreditBlockSize = 5

	// ServiceSchedulingWindow bounds how long a purchased one-off service
	// stays schedulable.
	ServiceSchedulingWindow = 15 * 24 * time.Hour
)

// InterviewCreditsForMonths applies the duration-based tiering: annual plans
// get 10 credits, everything shorter gets 5. Tie-break is on duration, not on
// the amount paid.
func InterviewCreditsForMonths(months int) int {
	if months >= 12 {
		return 10
	}
	return 5
}

// SubscriptionExpiry computes month-level expiry addition.
func SubscriptionExpiry(startedAt time.Time, months int) time.Time {
	return startedAt.AddDate(0, months, 0)
}

// ServiceExpiry computes the scheduling-window deadline for a purchase.
func ServiceExpiry(purchasedAt time.Time) time.Time {
	return purchasedAt.Add(ServiceSchedulingWindow)
}
