package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studyvault/studyvault-api/internal/dto"
	"github.com/studyvault/studyvault-api/internal/models"
	"github.com/studyvault/studyvault-api/internal/security"
	"github.com/studyvault/studyvault-api/pkg/captcha"
	appErrors "github.com/studyvault/studyvault-api/pkg/errors"
)

var (
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	htmlTagRe = regexp.MustCompile(`<[^>]*>`)
)

type requestRepository interface {
	Create(ctx context.Context, req *models.MaterialRequest) error
	ExistsRecent(ctx context.Context, course, email string, since time.Time) (bool, error)
	List(ctx context.Context) ([]models.MaterialRequest, error)
	Delete(ctx context.Context, id string) error
}

// IntakeConfig bounds public submissions.
type IntakeConfig struct {
	RateLimit       int
	RateWindow      time.Duration
	DuplicateWindow time.Duration
}

// RequestService handles the public material-request intake and the admin
// view over submitted requests.
type RequestService struct {
	repo     requestRepository
	limiter  *security.RateLimiter
	tracker  *security.Tracker
	verifier captcha.Verifier
	metrics  *MetricsService
	logger   *zap.Logger
	config   IntakeConfig
}

// NewRequestService constructs a request service.
func NewRequestService(repo requestRepository, limiter *security.RateLimiter, tracker *security.Tracker, verifier captcha.Verifier, metrics *MetricsService, logger *zap.Logger, config IntakeConfig) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 5
	}
	if config.RateWindow <= 0 {
		config.RateWindow = time.Hour
	}
	if config.DuplicateWindow <= 0 {
		config.DuplicateWindow = 24 * time.Hour
	}
	return &RequestService{
		repo:     repo,
		limiter:  limiter,
		tracker:  tracker,
		verifier: verifier,
		metrics:  metrics,
		logger:   logger,
		config:   config,
	}
}

// Submit runs the intake pipeline: rate limit, CAPTCHA, validation,
// duplicate window, then insert. Every failure before the insert feeds the
// security tracker.
func (s *RequestService) Submit(ctx context.Context, payload dto.SubmitMaterialRequest, clientID, remoteIP string) (*models.MaterialRequest, error) {
	if !s.limiter.Allow(clientID, s.config.RateLimit, s.config.RateWindow) {
		s.tracker.LogEvent(ctx, security.Event{Kind: security.EventRateLimit, Identifier: clientID, Detail: "request intake"})
		s.countIntake("rate_limited")
		return nil, appErrors.Clone(appErrors.ErrRateLimited, "too many requests, try again later")
	}

	if err := s.verifier.Verify(ctx, payload.CaptchaToken, remoteIP); err != nil {
		s.tracker.LogEvent(ctx, security.Event{Kind: security.EventCaptchaFailure, Identifier: clientID, Detail: err.Error()})
		s.countIntake("captcha_failed")
		return nil, appErrors.Clone(appErrors.ErrCaptchaFailed, "captcha verification failed")
	}

	record, violations := s.validate(payload)
	if len(violations) > 0 {
		s.tracker.LogEvent(ctx, security.Event{Kind: security.EventValidation, Identifier: clientID, Detail: strings.Join(violations, "; ")})
		s.countIntake("rejected")
		return nil, appErrors.Clone(appErrors.ErrValidation, strings.Join(violations, "; "))
	}

	if record.Email != "" {
		since := time.Now().Add(-s.config.DuplicateWindow)
		exists, err := s.repo.ExistsRecent(ctx, record.Course, record.Email, since)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for duplicates")
		}
		if exists {
			s.countIntake("duplicate")
			return nil, appErrors.Clone(appErrors.ErrConflict, "a request for this course was already submitted recently")
		}
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store request")
	}

	s.countIntake("accepted")
	s.logger.Info("material request accepted",
		zap.String("id", record.ID),
		zap.String("course", record.Course),
	)
	return record, nil
}

// validate sanitizes the payload and returns the record plus every violated
// rule. The record is only meaningful when no violations are reported.
func (s *RequestService) validate(payload dto.SubmitMaterialRequest) (*models.MaterialRequest, []string) {
	var violations []string

	course := strings.TrimSpace(payload.Course)
	if course == "" {
		violations = append(violations, "course is required")
	} else if len(course) > 50 {
		violations = append(violations, "course must be at most 50 characters")
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email != "" {
		if len(email) > 100 {
			violations = append(violations, "email must be at most 100 characters")
		} else if !emailRe.MatchString(email) {
			violations = append(violations, "email format is invalid")
		}
	}

	details := strings.TrimSpace(payload.Details)
	if details != "" {
		if len(details) > 500 {
			violations = append(violations, "details must be at most 500 characters")
		}
		details = htmlTagRe.ReplaceAllString(details, "")
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return &models.MaterialRequest{Course: course, Email: email, Details: details}, nil
}

// List returns every stored request, newest first. Admin-only.
func (s *RequestService) List(ctx context.Context) ([]models.MaterialRequest, error) {
	requests, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	if requests == nil {
		requests = []models.MaterialRequest{}
	}
	return requests, nil
}

// Delete removes a handled request. Admin-only.
func (s *RequestService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete request")
	}
	return nil
}

func (s *RequestService) countIntake(outcome string) {
	if s.metrics != nil {
		s.metrics.IncIntake(outcome)
	}
}
