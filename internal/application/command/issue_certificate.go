package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/certificate"
	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/pkg/keylock"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUE CERTIFICATE COMMAND
// Idempotent per (user, course): the first call creates the certificate,
// every later call returns the same record with the same number and
// timestamp. Triggered by the course-completed event, also callable
// directly over HTTP.
// ══════════════════════════════════════════════════════════════════════════════

// IssueCertificateCommand contains the data to issue a certificate.
type IssueCertificateCommand struct {
	// UserID is the stable learner identifier.
	UserID string

	// CourseID is the completed course.
	CourseID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c IssueCertificateCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("issue_certificate: user_id is required")
	}
	if c.CourseID == "" {
		return errors.New("issue_certificate: course_id is required")
	}
	return nil
}

// IssueCertificateResult contains the issued (or pre-existing) certificate.
type IssueCertificateResult struct {
	// Certificate is the single certificate for the pair.
	Certificate *certificate.Certificate

	// AlreadyIssued indicates the certificate existed before this call.
	AlreadyIssued bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// IssueCertificateHandler handles the IssueCertificateCommand.
type IssueCertificateHandler struct {
	certificateRepo certificate.Repository
	enrollmentRepo  enrollment.Repository
	locks           *keylock.KeyLock
	eventPublisher  shared.EventPublisher

	// Configuration
	baseURL string // Base URL for certificate download links
}

// IssueCertificateHandlerConfig contains configuration for the handler.
type IssueCertificateHandlerConfig struct {
	BaseURL string
}

// DefaultIssueCertificateHandlerConfig returns default configuration.
func DefaultIssueCertificateHandlerConfig() IssueCertificateHandlerConfig {
	return IssueCertificateHandlerConfig{
		BaseURL: "https://learnhub.example.com",
	}
}

// NewIssueCertificateHandler creates a new IssueCertificateHandler.
func NewIssueCertificateHandler(
	certificateRepo certificate.Repository,
	enrollmentRepo enrollment.Repository,
	locks *keylock.KeyLock,
	eventPublisher shared.EventPublisher,
	config IssueCertificateHandlerConfig,
) *IssueCertificateHandler {
	if config.BaseURL == "" {
		config = DefaultIssueCertificateHandlerConfig()
	}

	return &IssueCertificateHandler{
		certificateRepo: certificateRepo,
		enrollmentRepo:  enrollmentRepo,
		locks:           locks,
		eventPublisher:  eventPublisher,
		baseURL:         config.BaseURL,
	}
}

// Handle executes the issue certificate command.
//
// Idempotency is enforced twice: the per-key lock serializes callers on one
// instance, and the store's unique constraint catches races across
// instances. A lost race is converted into returning the winner's record.
func (h *IssueCertificateHandler) Handle(
	ctx context.Context,
	cmd IssueCertificateCommand,
) (*IssueCertificateResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("issue_certificate: validation failed: %w", err)
	}

	key, err := buildEnrollmentKey(cmd.UserID, cmd.CourseID)
	if err != nil {
		return nil, fmt.Errorf("issue_certificate: %w", err)
	}

	h.locks.Lock(key.String())
	defer h.locks.Unlock(key.String())

	existing, err := h.certificateRepo.Get(ctx, key)
	switch {
	case err == nil:
		return &IssueCertificateResult{Certificate: existing, AlreadyIssued: true}, nil
	case errors.Is(err, certificate.ErrCertificateNotFound):
		// First issue, continue below.
	default:
		return nil, fmt.Errorf("issue_certificate: failed to load certificate: %w", err)
	}

	e, err := h.enrollmentRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, enrollment.ErrNotEnrolled) {
			return nil, enrollment.ErrNotEnrolled
		}
		return nil, fmt.Errorf("issue_certificate: failed to load enrollment: %w", err)
	}
	if !e.IsCompleted() {
		return nil, certificate.ErrCourseNotCompleted
	}

	now := time.Now().UTC()
	cert, err := certificate.New(key, h.baseURL, now)
	if err != nil {
		return nil, fmt.Errorf("issue_certificate: %w", err)
	}

	if err := h.certificateRepo.CreateUnique(ctx, cert); err != nil {
		if errors.Is(err, certificate.ErrCertificateAlreadyExists) {
			// Lost a cross-instance race. The constraint guarantees a
			// winner exists; return its record.
			winner, getErr := h.certificateRepo.Get(ctx, key)
			if getErr != nil {
				return nil, fmt.Errorf("issue_certificate: failed to load winning certificate: %w", getErr)
			}
			return &IssueCertificateResult{Certificate: winner, AlreadyIssued: true}, nil
		}
		return nil, fmt.Errorf("issue_certificate: failed to create certificate: %w", err)
	}

	event := shared.NewCertificateIssuedEvent(key, cert.Number, cert.IssuedAt)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &IssueCertificateResult{Certificate: cert}, nil
}
