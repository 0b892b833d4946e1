package interviews

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/enums"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/model"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/rules"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/pkg/validate"
	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotPDF        = errors.New("cv must be a pdf file")
	ErrFileTooLarge  = errors.New("cv file exceeds the size limit")
	ErrQuotaExceeded = errors.New("interview allowance exhausted")
	ErrNotFound      = errors.New("interview not found")
)

const (
	MaxCVSize = 2 << 20 // 2 MiB

	defaultSignedURLTTL = 7 * 24 * time.Hour
)

type Store interface {
	Create(ctx context.Context, iv model.Interview) (model.Interview, error)
	FindByRequestID(ctx context.Context, userID int64, requestID string) (model.Interview, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Interview, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
}

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error)
	MarkTrialUsed(ctx context.Context, userID int64, now time.Time) (bool, error)
	ReleaseTrial(ctx context.Context, userID int64) error
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	PutDocument(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// ProviderClient is the external interview API surface the service needs.
type ProviderClient interface {
	CreateInterview(ctx context.Context, in CreateRequest) (CreateResponse, error)
}

type Service struct {
	store        Store
	profiles     ProfileStore
	storage      ObjectStorage
	provider     ProviderClient
	allowance    int
	signedURLTTL time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

type Dependencies struct {
	Store        Store
	Profiles     ProfileStore
	Storage      ObjectStorage
	Provider     ProviderClient
	Allowance    int
	SignedURLTTL time.Duration
	Logger       *zap.Logger
}

func NewService(deps Dependencies) *Service {
	allowance := deps.Allowance
	if allowance <= 0 {
		allowance = rules.DefaultInterviewAllowance
	}
	ttl := deps.SignedURLTTL
	if ttl <= 0 {
		ttl = defaultSignedURLTTL
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:        deps.Store,
		profiles:     deps.Profiles,
		storage:      deps.Storage,
		provider:     deps.Provider,
		allowance:    allowance,
		signedURLTTL: ttl,
		logger:       logger,
		now:          time.Now,
	}
}

type SubmitInput struct {
	UserID         int64
	JobTitle       string
	JobDescription string
	Language       string
	FileName       string
	ContentType    string
	Body           io.Reader
	Size           int64
}

// Submit validates the CV, checks the allowance, uploads the file and
// registers the interview with the provider. The file is validated before
// anything touches storage, so an oversize upload costs nothing.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (model.Interview, error) {
	if in.UserID <= 0 || !validate.Required(in.JobTitle) || in.Body == nil {
		return model.Interview{}, ErrValidation
	}
	if err := validateCV(in.FileName, in.ContentType, in.Size); err != nil {
		return model.Interview{}, err
	}

	// Extension and Content-Type are client claims; the magic bytes are not.
	body, err := sniffPDF(in.Body)
	if err != nil {
		return model.Interview{}, err
	}

	profile, err := s.profiles.GetByUserID(ctx, in.UserID)
	if err != nil {
		return model.Interview{}, fmt.Errorf("load profile: %w", err)
	}

	usedTrial, err := s.claimSlot(ctx, profile)
	if err != nil {
		return model.Interview{}, err
	}

	objectKey := buildCVObjectKey(in.UserID, in.FileName)
	if err := s.storage.EnsureBucket(ctx); err != nil {
		s.refundTrial(ctx, in.UserID, usedTrial)
		return model.Interview{}, err
	}
	if err := s.storage.PutDocument(ctx, objectKey, body, in.Size, in.ContentType); err != nil {
		s.refundTrial(ctx, in.UserID, usedTrial)
		return model.Interview{}, err
	}

	cvURL, err := s.storage.PresignGet(ctx, objectKey, s.signedURLTTL)
	if err != nil {
		_ = s.storage.Delete(ctx, objectKey)
		s.refundTrial(ctx, in.UserID, usedTrial)
		return model.Interview{}, err
	}

	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = "en"
	}

	created, err := s.provider.CreateInterview(ctx, CreateRequest{
		CandidateName:  profile.FullName,
		CandidateEmail: profile.Email,
		JobTitle:       strings.TrimSpace(in.JobTitle),
		JobDescription: strings.TrimSpace(in.JobDescription),
		CVURL:          cvURL,
		Language:       language,
	})
	if err != nil {
		_ = s.storage.Delete(ctx, objectKey)
		s.refundTrial(ctx, in.UserID, usedTrial)
		return model.Interview{}, err
	}

	status := enums.InterviewStatus(created.Status)
	if !status.Valid() {
		status = enums.InterviewStatusCreating
	}

	interview, err := s.store.Create(ctx, model.Interview{
		UserID:         in.UserID,
		RequestID:      created.RequestID,
		TaskID:         created.TaskID,
		CandidateID:    created.CandidateID,
		JobTitle:       strings.TrimSpace(in.JobTitle),
		JobDescription: strings.TrimSpace(in.JobDescription),
		CVObjectKey:    objectKey,
		Language:       language,
		Status:         status,
		APIMessage:     created.Message,
	})
	if err != nil {
		return model.Interview{}, fmt.Errorf("persist interview: %w", err)
	}

	s.logger.Info("interview submitted",
		zap.Int64("user_id", in.UserID),
		zap.String("request_id", interview.RequestID),
		zap.Bool("trial", usedTrial))

	return interview, nil
}

// claimSlot consumes the trial interview if it is still available, otherwise
// enforces the allowance. Reports whether the trial was used.
func (s *Service) claimSlot(ctx context.Context, profile pgrepo.ProfileRecord) (bool, error) {
	if !profile.TrialInterviewUsed {
		// The conditional update flips the flag at most once even when two
		// submissions race for the free slot. The loser falls through to
		// the allowance check.
		claimed, err := s.profiles.MarkTrialUsed(ctx, profile.UserID, s.now().UTC())
		if err != nil {
			return false, fmt.Errorf("claim trial interview: %w", err)
		}
		if claimed {
			return true, nil
		}
	}

	allowance := s.allowance
	if profile.InterviewCredits > 0 {
		allowance = profile.InterviewCredits
	}

	used, err := s.store.CountByUser(ctx, profile.UserID)
	if err != nil {
		return false, fmt.Errorf("count interviews: %w", err)
	}
	if used >= allowance {
		return false, ErrQuotaExceeded
	}
	return false, nil
}

func (s *Service) Get(ctx context.Context, userID int64, requestID string) (model.Interview, error) {
	if userID <= 0 || strings.TrimSpace(requestID) == "" {
		return model.Interview{}, ErrValidation
	}

	interview, err := s.store.FindByRequestID(ctx, userID, requestID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrInterviewNotFound) {
			return model.Interview{}, ErrNotFound
		}
		return model.Interview{}, fmt.Errorf("find interview: %w", err)
	}
	return interview, nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]model.Interview, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}

	interviews, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	return interviews, nil
}

// CVLink produces a fresh presigned download URL for the stored CV.
func (s *Service) CVLink(ctx context.Context, userID int64, requestID string) (string, error) {
	interview, err := s.Get(ctx, userID, requestID)
	if err != nil {
		return "", err
	}
	if interview.CVObjectKey == "" {
		return "", ErrNotFound
	}
	return s.storage.PresignGet(ctx, interview.CVObjectKey, s.signedURLTTL)
}

// refundTrial hands the free slot back when the submission dies after
// claiming it. Best effort; a failed release is logged and the flag stays
// burned.
func (s *Service) refundTrial(ctx context.Context, userID int64, used bool) {
	if !used {
		return
	}
	if err := s.profiles.ReleaseTrial(ctx, userID); err != nil {
		s.logger.Warn("release trial interview",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}

var pdfMagic = []byte("%PDF-")

// sniffPDF checks the magic bytes and returns a reader that replays them
// ahead of the rest of the stream.
func sniffPDF(r io.Reader) (io.Reader, error) {
	head := make([]byte, len(pdfMagic))
	n, err := io.ReadFull(r, head)
	if err != nil || !bytes.Equal(head[:n], pdfMagic) {
		return nil, ErrNotPDF
	}
	return io.MultiReader(bytes.NewReader(head), r), nil
}

func validateCV(fileName, contentType string, size int64) error {
	if size <= 0 {
		return ErrValidation
	}
	if size > MaxCVSize {
		return ErrFileTooLarge
	}

	ext := strings.ToLower(path.Ext(fileName))
	if ext != ".pdf" {
		return ErrNotPDF
	}
	if contentType != "" && contentType != "application/pdf" && contentType != "application/octet-stream" {
		return ErrNotPDF
	}
	return nil
}

func buildCVObjectKey(userID int64, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("cv/%d/%s%s", userID, uuid.NewString(), ext)
}
