package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/model"
)

var ErrValidation = errors.New("validation error")

const (
	KindCV       = "cv"
	KindLinkedIn = "linkedin"
)

type ChatClient interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

type Store interface {
	Insert(ctx context.Context, opt model.Optimization) (model.Optimization, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.Optimization, error)
}

type Service struct {
	cvClient ChatClient
	liClient ChatClient
	store    Store
	logger   *zap.Logger
}

type Dependencies struct {
	CVClient       ChatClient
	LinkedInClient ChatClient
	Store          Store
	Logger         *zap.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		cvClient: deps.CVClient,
		liClient: deps.LinkedInClient,
		store:    deps.Store,
		logger:   logger,
	}
}

type CVInput struct {
	UserID         int64
	CVText         string
	TargetRole     string
	TargetLanguage string
}

type LinkedInInput struct {
	UserID         int64
	Headline       string
	About          string
	TargetRole     string
	TargetLanguage string
}

const cvPromptTemplate = `You are a career coach optimizing a CV for the role of %q.
Respond with ONLY a single JSON object and NOTHING ELSE. No commentary, no markdown, no code fences.
The object must have exactly these keys:
 - "summary": string, a rewritten professional summary
 - "improvements": array of strings, concrete changes to make
 - "keywords": array of strings, role-specific keywords to add
 - "score": integer 0-100, how well the CV currently fits the role
All text MUST be in %s.

CV:
%s`

const linkedinPromptTemplate = `You are a career coach optimizing a LinkedIn profile for the role of %q.
Respond with ONLY a single JSON object and NOTHING ELSE. No commentary, no markdown, no code fences.
The object must have exactly these keys:
 - "headline": string, an improved profile headline
 - "about": string, a rewritten about section
 - "skills": array of strings, skills to feature
 - "score": integer 0-100, how well the profile currently fits the role
All text MUST be in %s.

Current headline:
%s

Current about section:
%s`

// OptimizeCV runs the AI rewrite and stores the result. When the model is
// unreachable or answers with garbage, a deterministic fallback result is
// stored instead so the user always gets something actionable.
func (s *Service) OptimizeCV(ctx context.Context, in CVInput) (model.Optimization, error) {
	if in.UserID <= 0 || strings.TrimSpace(in.CVText) == "" {
		return model.Optimization{}, ErrValidation
	}
	role := orDefault(in.TargetRole, "your target role")
	language := orDefault(in.TargetLanguage, "English")

	prompt := fmt.Sprintf(cvPromptTemplate, role, language, in.CVText)
	result, fallback := s.run(ctx, s.cvClient, prompt, func() map[string]any {
		return fallbackCVResult(role)
	})

	return s.persist(ctx, model.Optimization{
		UserID:         in.UserID,
		Kind:           KindCV,
		TargetRole:     role,
		TargetLanguage: language,
		Result:         result,
		Fallback:       fallback,
	})
}

func (s *Service) OptimizeLinkedIn(ctx context.Context, in LinkedInInput) (model.Optimization, error) {
	if in.UserID <= 0 || (strings.TrimSpace(in.Headline) == "" && strings.TrimSpace(in.About) == "") {
		return model.Optimization{}, ErrValidation
	}
	role := orDefault(in.TargetRole, "your target role")
	language := orDefault(in.TargetLanguage, "English")

	prompt := fmt.Sprintf(linkedinPromptTemplate, role, language, in.Headline, in.About)
	result, fallback := s.run(ctx, s.liClient, prompt, func() map[string]any {
		return fallbackLinkedInResult(role, in.Headline)
	})

	return s.persist(ctx, model.Optimization{
		UserID:         in.UserID,
		Kind:           KindLinkedIn,
		TargetRole:     role,
		TargetLanguage: language,
		Result:         result,
		Fallback:       fallback,
	})
}

func (s *Service) History(ctx context.Context, userID int64, limit int) ([]model.Optimization, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	return s.store.ListByUser(ctx, userID, limit)
}

func (s *Service) run(ctx context.Context, client ChatClient, prompt string, fallback func() map[string]any) (map[string]any, bool) {
	if client == nil {
		return fallback(), true
	}

	output, err := client.Chat(ctx, prompt)
	if err != nil {
		s.logger.Warn("ai chat failed, using fallback", zap.Error(err))
		return fallback(), true
	}

	result, err := parseStrictJSON(output)
	if err != nil {
		s.logger.Warn("ai returned unparseable output, using fallback",
			zap.Error(err),
			zap.String("output_prefix", prefix(output, 120)))
		return fallback(), true
	}
	return result, false
}

func (s *Service) persist(ctx context.Context, opt model.Optimization) (model.Optimization, error) {
	stored, err := s.store.Insert(ctx, opt)
	if err != nil {
		return model.Optimization{}, fmt.Errorf("store optimization: %w", err)
	}
	return stored, nil
}

// parseStrictJSON accepts the model output as-is, with markdown fences
// stripped, or with the outermost JSON object cut out of surrounding prose.
func parseStrictJSON(output string) (map[string]any, error) {
	candidate := strings.TrimSpace(output)
	candidate = stripCodeFences(candidate)

	var result map[string]any
	if err := json.Unmarshal([]byte(candidate), &result); err == nil {
		return result, nil
	}

	start := strings.IndexByte(candidate, '{')
	end := strings.LastIndexByte(candidate, '}')
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(candidate[start:end+1]), &result); err == nil {
			return result, nil
		}
	}

	return nil, fmt.Errorf("output is not a json object")
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag on the opening fence line.
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func fallbackCVResult(role string) map[string]any {
	return map[string]any{
		"summary": fmt.Sprintf("Experienced professional targeting a %s position.", role),
		"improvements": []any{
			"Lead each experience bullet with a measurable outcome.",
			"Mirror the vocabulary of the job description you are applying to.",
			"Keep the CV to two pages and move older roles into a single line each.",
		},
		"keywords": []any{role},
		"score":    50,
	}
}

func fallbackLinkedInResult(role, headline string) map[string]any {
	suggested := strings.TrimSpace(headline)
	if suggested == "" {
		suggested = role
	}
	return map[string]any{
		"headline": suggested,
		"about":    fmt.Sprintf("Professional focused on %s. Open to new opportunities.", role),
		"skills":   []any{role},
		"score":    50,
	}
}

func orDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
