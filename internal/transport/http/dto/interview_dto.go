package dto

import "time"

type InterviewResponse struct {
	RequestID      string     `json:"request_id"`
	InterviewID    string     `json:"interview_id,omitempty"`
	JobTitle       string     `json:"job_title"`
	JobDescription string     `json:"job_description,omitempty"`
	Language       string     `json:"language"`
	Status         string     `json:"status"`
	Message        string     `json:"message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	NotifiedAt     *time.Time `json:"notified_at,omitempty"`
}

type InterviewListResponse struct {
	Interviews []InterviewResponse `json:"interviews"`
	Total      int                 `json:"total"`
}

type CVLinkResponse struct {
	URL string `json:"url"`
}
