package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/pkg/validate"
	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("profile not found")
)

type Store interface {
	GetByUserID(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error)
	UpdateCareerFields(ctx context.Context, userID int64, headline, targetRole, language string) (pgrepo.ProfileRecord, error)
}

type ServiceStore interface {
	ListByUser(ctx context.Context, userID int64) ([]pgrepo.ServiceRecord, error)
	MarkCompleted(ctx context.Context, userID, serviceID int64, at time.Time) error
}

type SubscriptionStore interface {
	FindActiveByUser(ctx context.Context, userID int64) (pgrepo.SubscriptionRecord, error)
}

type Service struct {
	store         Store
	services      ServiceStore
	subscriptions SubscriptionStore
	now           func() time.Time
}

func NewService(store Store, services ServiceStore, subscriptions SubscriptionStore) *Service {
	return &Service{
		store:         store,
		services:      services,
		subscriptions: subscriptions,
		now:           time.Now,
	}
}

// Snapshot is the dashboard view: profile plus subscription state plus the
// user's purchased services.
type Snapshot struct {
	Profile      pgrepo.ProfileRecord
	Subscription *pgrepo.SubscriptionRecord
	Services     []pgrepo.ServiceRecord
}

func (s *Service) Snapshot(ctx context.Context, userID int64) (Snapshot, error) {
	if userID <= 0 {
		return Snapshot{}, ErrValidation
	}

	profile, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("load profile: %w", err)
	}

	snapshot := Snapshot{Profile: profile}

	sub, err := s.subscriptions.FindActiveByUser(ctx, userID)
	if err == nil {
		snapshot.Subscription = &sub
	} else if !errors.Is(err, pgrepo.ErrSubscriptionNotFound) {
		return Snapshot{}, fmt.Errorf("load subscription: %w", err)
	}

	services, err := s.services.ListByUser(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load services: %w", err)
	}
	snapshot.Services = services

	return snapshot, nil
}

type UpdateInput struct {
	Headline   string
	TargetRole string
	Language   string
}

func (s *Service) Update(ctx context.Context, userID int64, in UpdateInput) (pgrepo.ProfileRecord, error) {
	if userID <= 0 {
		return pgrepo.ProfileRecord{}, ErrValidation
	}
	if !validate.MaxLen(in.Headline, 200) || !validate.MaxLen(in.TargetRole, 120) {
		return pgrepo.ProfileRecord{}, ErrValidation
	}

	language := strings.TrimSpace(in.Language)
	if !validate.MaxLen(language, 16) {
		return pgrepo.ProfileRecord{}, ErrValidation
	}

	profile, err := s.store.UpdateCareerFields(ctx, userID, in.Headline, in.TargetRole, language)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return pgrepo.ProfileRecord{}, ErrNotFound
		}
		return pgrepo.ProfileRecord{}, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

// CompleteService closes one of the user's scheduled services.
func (s *Service) CompleteService(ctx context.Context, userID, serviceID int64) error {
	if userID <= 0 || serviceID <= 0 {
		return ErrValidation
	}

	if err := s.services.MarkCompleted(ctx, userID, serviceID, s.now().UTC()); err != nil {
		if errors.Is(err, pgrepo.ErrServiceNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("complete service: %w", err)
	}
	return nil
}
