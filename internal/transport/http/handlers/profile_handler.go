package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
	authsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/auth"
	profilesvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/profiles"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/transport/http/dto"
	httperrors "github.com/pmorral/lapieza-career-navigator-sub000/internal/transport/http/errors"
)

type ProfileHandler struct {
	service *profilesvc.Service
}

func NewProfileHandler(service *profilesvc.Service) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	snapshot, err := h.service.Snapshot(r.Context(), identity.UserID)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	resp := dto.DashboardResponse{
		Profile:  profileResponse(snapshot.Profile),
		Services: make([]dto.ServiceResponse, 0, len(snapshot.Services)),
	}
	if snapshot.Subscription != nil {
		resp.Subscription = &dto.SubscriptionResponse{
			PlanType:  snapshot.Subscription.PlanType,
			Status:    snapshot.Subscription.Status,
			StartedAt: snapshot.Subscription.StartedAt,
			ExpiresAt: snapshot.Subscription.ExpiresAt,
		}
	}
	for _, svc := range snapshot.Services {
		resp.Services = append(resp.Services, dto.ServiceResponse{
			ID:          svc.ID,
			ServiceName: svc.ServiceName,
			ServiceType: svc.ServiceType,
			Status:      string(svc.Status),
			PurchasedAt: svc.PurchasedAt,
			ExpiresAt:   svc.ExpiresAt,
			CompletedAt: svc.CompletedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.ProfileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	profile, err := h.service.Update(r.Context(), identity.UserID, profilesvc.UpdateInput{
		Headline:   req.Headline,
		TargetRole: req.TargetRole,
		Language:   req.Language,
	})
	if err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, profileResponse(profile))
}

func (h *ProfileHandler) CompleteService(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	rawID := strings.TrimSpace(chi.URLParam(r, "id"))
	serviceID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || serviceID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid service id")
		return
	}

	if err := h.service.CompleteService(r.Context(), identity.UserID, serviceID); err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, map[string]bool{"ok": true})
}

func profileResponse(profile pgrepo.ProfileRecord) dto.ProfileResponse {
	return dto.ProfileResponse{
		UserID:             profile.UserID,
		Email:              profile.Email,
		FullName:           profile.FullName,
		Headline:           profile.Headline,
		TargetRole:         profile.TargetRole,
		Language:           profile.Language,
		SubscriptionStatus: profile.SubscriptionStatus,
		SubscriptionPlan:   profile.SubscriptionPlan,
		InterviewCredits:   profile.InterviewCredits,
		TrialInterviewUsed: profile.TrialInterviewUsed,
		PaymentCompletedAt: profile.PaymentCompletedAt,
	}
}

func handleProfileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profilesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid profile payload")
	case errors.Is(err, profilesvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "profile or service not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process profile request")
	}
}
