package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/enums"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/model"
)

var ErrInterviewNotFound = errors.New("interview not found")

type InterviewRepo struct {
	pool *pgxpool.Pool
}

func NewInterviewRepo(pool *pgxpool.Pool) *InterviewRepo {
	return &InterviewRepo{pool: pool}
}

const interviewColumns = `id, user_id, request_id, task_id, candidate_id, interview_id, job_title, job_description, cv_object_key, language, status, api_message, notified_at, created_at, updated_at`

// Create persists a freshly submitted interview request.
func (r *InterviewRepo) Create(ctx context.Context, iv model.Interview) (model.Interview, error) {
	if r.pool == nil {
		return model.Interview{}, fmt.Errorf("postgres pool is nil")
	}
	if iv.UserID <= 0 || iv.RequestID == "" {
		return model.Interview{}, fmt.Errorf("invalid interview input")
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO interviews (
	user_id,
	request_id,
	task_id,
	candidate_id,
	interview_id,
	job_title,
	job_description,
	cv_object_key,
	language,
	status,
	api_message
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+interviewColumns+`
`, iv.UserID, iv.RequestID, iv.TaskID, iv.CandidateID, iv.InterviewID,
		iv.JobTitle, iv.JobDescription, iv.CVObjectKey, iv.Language, iv.Status, iv.APIMessage)

	return scanInterview(row)
}

// FindByRequestID scopes the lookup to the owning user.
func (r *InterviewRepo) FindByRequestID(ctx context.Context, userID int64, requestID string) (model.Interview, error) {
	if r.pool == nil {
		return model.Interview{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+interviewColumns+`
FROM interviews
WHERE request_id = $1
  AND user_id = $2
`, requestID, userID)

	iv, err := scanInterview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Interview{}, ErrInterviewNotFound
		}
		return model.Interview{}, err
	}
	return iv, nil
}

// ListByUser returns the user's interviews, newest first.
func (r *InterviewRepo) ListByUser(ctx context.Context, userID int64) ([]model.Interview, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+interviewColumns+`
FROM interviews
WHERE user_id = $1
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	var out []model.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interviews: %w", err)
	}
	return out, nil
}

// CountByUser counts every interview the user has ever submitted. The quota
// check runs against this total rather than a per-period window.
func (r *InterviewRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM interviews
WHERE user_id = $1
`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count interviews: %w", err)
	}
	return count, nil
}

// ListUnfinished returns interviews still worth polling the provider about.
func (r *InterviewRepo) ListUnfinished(ctx context.Context, limit int) ([]model.Interview, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+interviewColumns+`
FROM interviews
WHERE status <> 'completed'
ORDER BY created_at ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unfinished interviews: %w", err)
	}
	defer rows.Close()

	var out []model.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unfinished interviews: %w", err)
	}
	return out, nil
}

// UpdateStatus overwrites the stored status with the latest provider answer.
// The most recent poll always wins, even if it moves backwards.
func (r *InterviewRepo) UpdateStatus(ctx context.Context, requestID string, status enums.InterviewStatus, apiMessage, interviewID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE interviews
SET
	status = $2,
	api_message = $3,
	interview_id = COALESCE(NULLIF($4, ''), interview_id),
	updated_at = NOW()
WHERE request_id = $1
`, requestID, status, apiMessage, interviewID)
	if err != nil {
		return fmt.Errorf("update interview status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInterviewNotFound
	}
	return nil
}

// MarkNotified claims the one completion notification for an interview.
// Returns false when another poll cycle already claimed it.
func (r *InterviewRepo) MarkNotified(ctx context.Context, requestID string, at time.Time) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE interviews
SET notified_at = $2
WHERE request_id = $1
  AND notified_at IS NULL
`, requestID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("mark interview notified: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanInterview(row pgx.Row) (model.Interview, error) {
	var iv model.Interview
	err := row.Scan(
		&iv.ID,
		&iv.UserID,
		&iv.RequestID,
		&iv.TaskID,
		&iv.CandidateID,
		&iv.InterviewID,
		&iv.JobTitle,
		&iv.JobDescription,
		&iv.CVObjectKey,
		&iv.Language,
		&iv.Status,
		&iv.APIMessage,
		&iv.NotifiedAt,
		&iv.CreatedAt,
		&iv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Interview{}, err
		}
		return model.Interview{}, fmt.Errorf("scan interview: %w", err)
	}
	return iv, nil
}
