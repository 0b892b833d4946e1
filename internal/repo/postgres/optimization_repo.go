package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/model"
)

type OptimizationRepo struct {
	pool *pgxpool.Pool
}

func NewOptimizationRepo(pool *pgxpool.Pool) *OptimizationRepo {
	return &OptimizationRepo{pool: pool}
}

// Insert stores one optimization run with its structured result.
func (r *OptimizationRepo) Insert(ctx context.Context, opt model.Optimization) (model.Optimization, error) {
	if r.pool == nil {
		return model.Optimization{}, fmt.Errorf("postgres pool is nil")
	}
	if opt.UserID <= 0 || opt.Kind == "" {
		return model.Optimization{}, fmt.Errorf("invalid optimization input")
	}

	resultJSON, err := json.Marshal(opt.Result)
	if err != nil {
		return model.Optimization{}, fmt.Errorf("marshal optimization result: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO optimizations (user_id, kind, target_role, target_language, result, fallback)
VALUES ($1, $2, $3, $4, $5::jsonb, $6)
RETURNING id, user_id, kind, target_role, target_language, result, fallback, created_at
`, opt.UserID, opt.Kind, opt.TargetRole, opt.TargetLanguage, string(resultJSON), opt.Fallback)

	return scanOptimization(row)
}

// ListByUser returns the user's optimization history, newest first.
func (r *OptimizationRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Optimization, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, kind, target_role, target_language, result, fallback, created_at
FROM optimizations
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list optimizations: %w", err)
	}
	defer rows.Close()

	var out []model.Optimization
	for rows.Next() {
		opt, err := scanOptimization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate optimizations: %w", err)
	}
	return out, nil
}

func scanOptimization(row pgx.Row) (model.Optimization, error) {
	var opt model.Optimization
	var resultRaw []byte
	err := row.Scan(
		&opt.ID,
		&opt.UserID,
		&opt.Kind,
		&opt.TargetRole,
		&opt.TargetLanguage,
		&resultRaw,
		&opt.Fallback,
		&opt.CreatedAt,
	)
	if err != nil {
		return model.Optimization{}, fmt.Errorf("scan optimization: %w", err)
	}
	if len(resultRaw) > 0 {
		if err := json.Unmarshal(resultRaw, &opt.Result); err != nil {
			return model.Optimization{}, fmt.Errorf("decode optimization result: %w", err)
		}
	}
	return opt, nil
}
