package model

import (
	"time"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/enums"
)

type Interview struct {
	ID             int64                 `json:"id"`
	UserID         int64                 `json:"user_id"`
	RequestID      string                `json:"interview_request_id"`
	TaskID         string                `json:"task_id"`
	CandidateID    string                `json:"candidate_id"`
	InterviewID    string                `json:"interview_id"`
	JobTitle       string                `json:"job_title"`
	JobDescription string                `json:"job_description"`
	CVObjectKey    string                `json:"cv_object_key"`
	Language       string                `json:"language"`
	Status         enums.InterviewStatus `json:"status"`
	APIMessage     string                `json:"api_message"`
	NotifiedAt     *time.Time            `json:"notified_at"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}
