package dto

import "time"

type OptimizeCVRequest struct {
	CVText         string `json:"cv_text"`
	TargetRole     string `json:"target_role"`
	TargetLanguage string `json:"target_language,omitempty"`
}

type OptimizeLinkedInRequest struct {
	Headline       string `json:"headline"`
	About          string `json:"about"`
	TargetRole     string `json:"target_role"`
	TargetLanguage string `json:"target_language,omitempty"`
}

type OptimizationResponse struct {
	ID             int64          `json:"id"`
	Kind           string         `json:"kind"`
	TargetRole     string         `json:"target_role"`
	TargetLanguage string         `json:"target_language,omitempty"`
	Result         map[string]any `json:"result"`
	Fallback       bool           `json:"fallback"`
	CreatedAt      time.Time      `json:"created_at"`
}

type OptimizationHistoryResponse struct {
	Optimizations []OptimizationResponse `json:"optimizations"`
}
