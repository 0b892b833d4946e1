package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const emailQueueKey = "emails"

// EmailJob is one message waiting to be delivered by the worker.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailQueueRepo is a redis-list mail queue. The API pushes, the worker
// blocks on pops.
type EmailQueueRepo struct {
	client *goredis.Client
}

func NewEmailQueueRepo(client *goredis.Client) *EmailQueueRepo {
	return &EmailQueueRepo{client: client}
}

func (r *EmailQueueRepo) Enqueue(ctx context.Context, job EmailJob) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if job.To == "" || job.Subject == "" {
		return fmt.Errorf("invalid email job")
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	if err := r.client.LPush(ctx, emailQueueKey, raw).Err(); err != nil {
		return fmt.Errorf("enqueue email job: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job. A zero job and nil error
// mean the wait timed out.
func (r *EmailQueueRepo) Dequeue(ctx context.Context, timeout time.Duration) (EmailJob, bool, error) {
	if r.client == nil {
		return EmailJob{}, false, fmt.Errorf("redis client is nil")
	}

	values, err := r.client.BRPop(ctx, timeout, emailQueueKey).Result()
	if err == goredis.Nil {
		return EmailJob{}, false, nil
	}
	if err != nil {
		return EmailJob{}, false, fmt.Errorf("dequeue email job: %w", err)
	}
	if len(values) < 2 {
		return EmailJob{}, false, nil
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(values[1]), &job); err != nil {
		return EmailJob{}, false, fmt.Errorf("decode email job: %w", err)
	}
	return job, true, nil
}
