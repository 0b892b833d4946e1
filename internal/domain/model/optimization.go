package model

import "time"

// Optimization is one stored result of a CV or LinkedIn optimization run.
type Optimization struct {
	ID             int64          `json:"id"`
	UserID         int64          `json:"user_id"`
	Kind           string         `json:"kind"`
	TargetRole     string         `json:"target_role"`
	TargetLanguage string         `json:"target_language"`
	Result         map[string]any `json:"result"`
	Fallback       bool           `json:"fallback"`
	CreatedAt      time.Time      `json:"created_at"`
}
