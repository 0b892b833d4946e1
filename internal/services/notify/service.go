package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
	redrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/redis"
)

var ErrValidation = errors.New("validation error")

// Queue decouples the API from SMTP. The API enqueues, the worker drains.
type Queue interface {
	Enqueue(ctx context.Context, job redrepo.EmailJob) error
	Dequeue(ctx context.Context, timeout time.Duration) (redrepo.EmailJob, bool, error)
}

// Sender delivers one message. Implemented by the SMTP infra client.
type Sender interface {
	Send(to, subject, body string) error
}

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error)
}

type Service struct {
	queue    Queue
	profiles ProfileStore
	opsEmail string
	logger   *zap.Logger
}

func NewService(queue Queue, profiles ProfileStore, opsEmail string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		queue:    queue,
		profiles: profiles,
		opsEmail: opsEmail,
		logger:   logger,
	}
}

func (s *Service) MembershipActivated(ctx context.Context, userID int64, planName string) error {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile for notification: %w", err)
	}

	subject, body := membershipActivatedEmail(profile.FullName, planName)
	if err := s.enqueue(ctx, profile.Email, subject, body); err != nil {
		return err
	}
	s.alertOps(ctx, profile.Email, planName)
	return nil
}

func (s *Service) ServicePurchased(ctx context.Context, userID int64, serviceName string, expiresAt time.Time) error {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile for notification: %w", err)
	}

	subject, body := servicePurchasedEmail(profile.FullName, serviceName, expiresAt)
	if err := s.enqueue(ctx, profile.Email, subject, body); err != nil {
		return err
	}
	s.alertOps(ctx, profile.Email, serviceName)
	return nil
}

func (s *Service) InterviewReady(ctx context.Context, userID int64, jobTitle string) error {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile for notification: %w", err)
	}

	subject, body := interviewReadyEmail(profile.FullName, jobTitle)
	return s.enqueue(ctx, profile.Email, subject, body)
}

// alertOps copies every purchase to the internal operations inbox. Best
// effort, a failed enqueue never blocks the purchaser mail.
func (s *Service) alertOps(ctx context.Context, buyerEmail, productName string) {
	if s.opsEmail == "" {
		return
	}
	subject, body := purchaseAlertEmail(buyerEmail, productName)
	if err := s.enqueue(ctx, s.opsEmail, subject, body); err != nil {
		s.logger.Warn("enqueue ops purchase alert",
			zap.String("product", productName),
			zap.Error(err))
	}
}

func (s *Service) enqueue(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return ErrValidation
	}
	if err := s.queue.Enqueue(ctx, redrepo.EmailJob{To: to, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

// Worker drains the queue and hands jobs to the SMTP sender. A failed send
// is logged and dropped; transactional mail is not worth a retry storm.
type Worker struct {
	queue  Queue
	sender Sender
	logger *zap.Logger
}

func NewWorker(queue Queue, sender Sender, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Worker{
		queue:  queue,
		sender: sender,
		logger: logger,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		job, ok, err := w.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("dequeue email job", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if !ok {
			continue
		}

		if err := w.sender.Send(job.To, job.Subject, job.Body); err != nil {
			w.logger.Warn("send email",
				zap.String("to", job.To),
				zap.String("subject", job.Subject),
				zap.Error(err))
			continue
		}

		w.logger.Debug("email sent", zap.String("to", job.To))
	}
}
