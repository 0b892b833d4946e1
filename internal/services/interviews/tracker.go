package interviews

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/enums"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/model"
)

// StatusUpdate is pushed to subscribers whenever a poll cycle observes a
// change for their interview.
type StatusUpdate struct {
	RequestID   string                `json:"request_id"`
	Status      enums.InterviewStatus `json:"status"`
	Message     string                `json:"message"`
	InterviewID string                `json:"interview_id"`
	Completed   bool                  `json:"completed"`
}

type TrackerStore interface {
	ListUnfinished(ctx context.Context, limit int) ([]model.Interview, error)
	UpdateStatus(ctx context.Context, requestID string, status enums.InterviewStatus, apiMessage, interviewID string) error
	MarkNotified(ctx context.Context, requestID string, at time.Time) (bool, error)
}

type StatusClient interface {
	GetStatus(ctx context.Context, requestID string) (StatusResponse, error)
}

// CompletionNotifier sends the one completion mail per interview.
type CompletionNotifier interface {
	InterviewReady(ctx context.Context, userID int64, jobTitle string) error
}

// Tracker polls the provider for every unfinished interview and pushes
// changes to subscribers. Clients hold an open stream instead of polling the
// API themselves.
type Tracker struct {
	store    TrackerStore
	client   StatusClient
	notifier CompletionNotifier
	interval time.Duration
	batch    int
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	subs map[string]map[chan StatusUpdate]struct{}
}

type TrackerDependencies struct {
	Store    TrackerStore
	Client   StatusClient
	Notifier CompletionNotifier
	Interval time.Duration
	Logger   *zap.Logger
}

func NewTracker(deps TrackerDependencies) *Tracker {
	interval := deps.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Tracker{
		store:    deps.Store,
		client:   deps.Client,
		notifier: deps.Notifier,
		interval: interval,
		batch:    100,
		logger:   logger,
		now:      time.Now,
		subs:     make(map[string]map[chan StatusUpdate]struct{}),
	}
}

// Subscribe registers for pushes about one interview. The returned cancel
// func must be called when the client goes away; it closes the channel.
func (t *Tracker) Subscribe(requestID string) (<-chan StatusUpdate, func()) {
	ch := make(chan StatusUpdate, 8)

	t.mu.Lock()
	set, ok := t.subs[requestID]
	if !ok {
		set = make(map[chan StatusUpdate]struct{})
		t.subs[requestID] = set
	}
	set[ch] = struct{}{}
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		if set, ok := t.subs[requestID]; ok {
			if _, present := set[ch]; present {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(t.subs, requestID)
			}
		}
		t.mu.Unlock()
	}
	return ch, cancel
}

func (t *Tracker) publish(update StatusUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for ch := range t.subs[update.RequestID] {
		select {
		case ch <- update:
		default:
			// A stalled subscriber drops updates rather than blocking the
			// poll cycle.
		}
	}
}

// Run polls until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.Poll(ctx); err != nil {
		t.logger.Warn("interview poll cycle failed", zap.Error(err))
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := t.Poll(ctx); err != nil {
				t.logger.Warn("interview poll cycle failed", zap.Error(err))
			}
		}
	}
}

// Poll runs one cycle over every unfinished interview. Provider errors for a
// single interview are logged and skipped so one flaky request cannot stall
// the rest of the batch.
func (t *Tracker) Poll(ctx context.Context) error {
	pending, err := t.store.ListUnfinished(ctx, t.batch)
	if err != nil {
		return fmt.Errorf("list unfinished interviews: %w", err)
	}

	for _, interview := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := t.pollOne(ctx, interview); err != nil {
			t.logger.Warn("poll interview",
				zap.String("request_id", interview.RequestID),
				zap.Error(err))
		}
	}
	return nil
}

func (t *Tracker) pollOne(ctx context.Context, interview model.Interview) error {
	resp, err := t.client.GetStatus(ctx, interview.RequestID)
	if err != nil {
		return err
	}

	status := enums.InterviewStatus(resp.Status)
	if !status.Valid() {
		t.logger.Warn("provider reported unknown status",
			zap.String("request_id", interview.RequestID),
			zap.String("status", resp.Status))
		return nil
	}

	// The latest provider answer always wins, even when it disagrees with
	// what we saw last cycle.
	if err := t.store.UpdateStatus(ctx, interview.RequestID, status, resp.Message, resp.InterviewID); err != nil {
		return err
	}

	changed := status != interview.Status || resp.InterviewID != interview.InterviewID
	if changed {
		t.publish(StatusUpdate{
			RequestID:   interview.RequestID,
			Status:      status,
			Message:     resp.Message,
			InterviewID: resp.InterviewID,
			Completed:   status.Terminal(),
		})
	}

	if status.Terminal() {
		return t.notifyCompletion(ctx, interview)
	}
	return nil
}

// notifyCompletion sends the completion mail exactly once per interview. The
// database claim is the gate: whichever poll cycle wins the conditional
// update sends, everyone else skips.
func (t *Tracker) notifyCompletion(ctx context.Context, interview model.Interview) error {
	claimed, err := t.store.MarkNotified(ctx, interview.RequestID, t.now().UTC())
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	if t.notifier != nil {
		if err := t.notifier.InterviewReady(ctx, interview.UserID, interview.JobTitle); err != nil {
			t.logger.Warn("enqueue completion notification",
				zap.String("request_id", interview.RequestID),
				zap.Error(err))
		}
	}

	t.logger.Info("interview completed",
		zap.String("request_id", interview.RequestID),
		zap.Int64("user_id", interview.UserID))
	return nil
}
