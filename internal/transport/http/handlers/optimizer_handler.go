package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/model"
	authsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/auth"
	optsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/optimizer"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/transport/http/dto"
	httperrors "github.com/pmorral/lapieza-career-navigator-sub000/internal/transport/http/errors"
)

type OptimizerHandler struct {
	service *optsvc.Service
}

func NewOptimizerHandler(service *optsvc.Service) *OptimizerHandler {
	return &OptimizerHandler{service: service}
}

func (h *OptimizerHandler) OptimizeCV(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "OPTIMIZER_SERVICE_UNAVAILABLE", "optimizer service is unavailable")
		return
	}

	var req dto.OptimizeCVRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	opt, err := h.service.OptimizeCV(r.Context(), optsvc.CVInput{
		UserID:         identity.UserID,
		CVText:         req.CVText,
		TargetRole:     req.TargetRole,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		handleOptimizerError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, optimizationResponse(opt))
}

func (h *OptimizerHandler) OptimizeLinkedIn(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "OPTIMIZER_SERVICE_UNAVAILABLE", "optimizer service is unavailable")
		return
	}

	var req dto.OptimizeLinkedInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	opt, err := h.service.OptimizeLinkedIn(r.Context(), optsvc.LinkedInInput{
		UserID:         identity.UserID,
		Headline:       req.Headline,
		About:          req.About,
		TargetRole:     req.TargetRole,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		handleOptimizerError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, optimizationResponse(opt))
}

func (h *OptimizerHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "OPTIMIZER_SERVICE_UNAVAILABLE", "optimizer service is unavailable")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := h.service.History(r.Context(), identity.UserID, limit)
	if err != nil {
		handleOptimizerError(w, err)
		return
	}

	resp := dto.OptimizationHistoryResponse{
		Optimizations: make([]dto.OptimizationResponse, 0, len(history)),
	}
	for _, opt := range history {
		resp.Optimizations = append(resp.Optimizations, optimizationResponse(opt))
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func optimizationResponse(opt model.Optimization) dto.OptimizationResponse {
	return dto.OptimizationResponse{
		ID:             opt.ID,
		Kind:           opt.Kind,
		TargetRole:     opt.TargetRole,
		TargetLanguage: opt.TargetLanguage,
		Result:         opt.Result,
		Fallback:       opt.Fallback,
		CreatedAt:      opt.CreatedAt,
	}
}

func handleOptimizerError(w http.ResponseWriter, err error) {
	if errors.Is(err, optsvc.ErrValidation) {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid optimization payload")
		return
	}
	writeInternal(w, "INTERNAL_ERROR", "failed to run optimization")
}
