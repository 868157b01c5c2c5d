// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Enrollment events
	EventEnrollmentCreated     EventType = "enrollment.created"
	EventEnrollmentReactivated EventType = "enrollment.reactivated"
	EventEnrollmentDropped     EventType = "enrollment.dropped"
	EventEnrollmentExpired     EventType = "enrollment.expired"
	EventCourseCompleted       EventType = "enrollment.course_completed"

	// Progress events
	EventContentProgressRecorded EventType = "progress.content_recorded"
	EventContentCompleted        EventType = "progress.content_completed"

	// Assessment events
	EventAssessmentSubmitted EventType = "assessment.submitted"

	// Certificate events
	EventCertificateIssued EventType = "certificate.issued"

	// Integrity events
	EventLearningPatternChanged EventType = "integrity.pattern_changed"

	// System events
	EventUsageRefreshed EventType = "system.usage_refreshed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a single domain event.
type EventHandler interface {
	// Handle processes the event. Errors are logged by the bus, never
	// propagated back to the publisher.
	Handle(event Event) error

	// Name returns the handler name for logging and metrics.
	Name() string
}

// EventPublisher publishes domain events to interested subscribers.
type EventPublisher interface {
	Publish(event Event) error
}

// EventBus routes published events to subscribed handlers.
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for every event.
	SubscribeAll(handler EventHandler) error

	// Close shuts the bus down, waiting for in-flight handlers.
	Close() error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// EnrollmentCreatedEvent is emitted when a learner enrolls in a course.
type EnrollmentCreatedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	CourseID    string `json:"course_id"`
	Reactivated bool   `json:"reactivated"`
}

// Payload implements Event interface.
func (e EnrollmentCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"course_id":   e.CourseID,
		"reactivated": e.Reactivated,
	}
}

// NewEnrollmentCreatedEvent creates an enrollment created event. The
// aggregate ID is the (user, course) key, matching the serialization unit.
func NewEnrollmentCreatedEvent(key EnrollmentKey, reactivated bool) EnrollmentCreatedEvent {
	eventType := EventEnrollmentCreated
	if reactivated {
		eventType = EventEnrollmentReactivated
	}
	return EnrollmentCreatedEvent{
		BaseEvent:   NewBaseEvent(eventType, key.String()),
		UserID:      key.UserID.String(),
		CourseID:    key.CourseID.String(),
		Reactivated: reactivated,
	}
}

// EnrollmentDroppedEvent is emitted when a learner drops a course.
type EnrollmentDroppedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
}

// Payload implements Event interface.
func (e EnrollmentDroppedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"course_id": e.CourseID,
	}
}

// NewEnrollmentDroppedEvent creates an enrollment dropped event.
func NewEnrollmentDroppedEvent(key EnrollmentKey) EnrollmentDroppedEvent {
	return EnrollmentDroppedEvent{
		BaseEvent: NewBaseEvent(EventEnrollmentDropped, key.String()),
		UserID:    key.UserID.String(),
		CourseID:  key.CourseID.String(),
	}
}

// CourseCompletedEvent is emitted exactly once when overall progress
// reaches 100 and the enrollment transitions to completed. It triggers
// certificate issuance on the async side.
type CourseCompletedEvent struct {
	BaseEvent
	UserID      string    `json:"user_id"`
	CourseID    string    `json:"course_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Payload implements Event interface.
func (e CourseCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"course_id":    e.CourseID,
		"completed_at": e.CompletedAt,
	}
}

// NewCourseCompletedEvent creates a course completed event.
func NewCourseCompletedEvent(key EnrollmentKey, completedAt time.Time) CourseCompletedEvent {
	return CourseCompletedEvent{
		BaseEvent:   NewBaseEvent(EventCourseCompleted, key.String()),
		UserID:      key.UserID.String(),
		CourseID:    key.CourseID.String(),
		CompletedAt: completedAt,
	}
}

// EnrollmentExpiredEvent is emitted by the worker when an active
// enrollment goes untouched past the staleness cutoff.
type EnrollmentExpiredEvent struct {
	BaseEvent
	UserID         string    `json:"user_id"`
	CourseID       string    `json:"course_id"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// Payload implements Event interface.
func (e EnrollmentExpiredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"course_id":        e.CourseID,
		"last_accessed_at": e.LastAccessedAt,
	}
}

// NewEnrollmentExpiredEvent creates an enrollment expired event.
func NewEnrollmentExpiredEvent(key EnrollmentKey, lastAccessedAt time.Time) EnrollmentExpiredEvent {
	return EnrollmentExpiredEvent{
		BaseEvent:      NewBaseEvent(EventEnrollmentExpired, key.String()),
		UserID:         key.UserID.String(),
		CourseID:       key.CourseID.String(),
		LastAccessedAt: lastAccessedAt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// ContentProgressRecordedEvent is emitted after every successful content
// progress upsert. The integrity tracker consumes it on the async side.
type ContentProgressRecordedEvent struct {
	BaseEvent
	UserID           string `json:"user_id"`
	CourseID         string `json:"course_id"`
	ModuleID         string `json:"module_id"`
	ContentID        string `json:"content_id"`
	Progress         int    `json:"progress"`
	TimeSpentSeconds int64  `json:"time_spent_seconds"`
	Action           string `json:"action"`
	OverallProgress  int    `json:"overall_progress"`
}

// Payload implements Event interface.
func (e ContentProgressRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":            e.UserID,
		"course_id":          e.CourseID,
		"module_id":          e.ModuleID,
		"content_id":         e.ContentID,
		"progress":           e.Progress,
		"time_spent_seconds": e.TimeSpentSeconds,
		"action":             e.Action,
		"overall_progress":   e.OverallProgress,
	}
}

// NewContentProgressRecordedEvent creates a content progress event.
func NewContentProgressRecordedEvent(
	key EnrollmentKey,
	moduleID ModuleID,
	contentID ContentID,
	progress int,
	timeSpentSeconds int64,
	action string,
	overallProgress int,
) ContentProgressRecordedEvent {
	return ContentProgressRecordedEvent{
		BaseEvent:        NewBaseEvent(EventContentProgressRecorded, key.String()),
		UserID:           key.UserID.String(),
		CourseID:         key.CourseID.String(),
		ModuleID:         moduleID.String(),
		ContentID:        contentID.String(),
		Progress:         progress,
		TimeSpentSeconds: timeSpentSeconds,
		Action:           action,
		OverallProgress:  overallProgress,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Assessment Events
// ═══════════════════════════════════════════════════════════════════════════

// AssessmentSubmittedEvent is emitted after every scored submission.
// Score and MaxScore are raw point totals on the same scale, not a
// percentage; consumers derive the percentage from the pair.
type AssessmentSubmittedEvent struct {
	BaseEvent
	UserID                string `json:"user_id"`
	CourseID              string `json:"course_id"`
	AssessmentIdentifier  string `json:"assessment_id"`
	Score                 int    `json:"score"`
	MaxScore              int    `json:"max_score"`
	Passed                bool   `json:"passed"`
	CompletionTimeSeconds int64  `json:"completion_time_seconds"`
	Attempts              int    `json:"attempts"`
}

// Payload implements Event interface.
func (e AssessmentSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":                 e.UserID,
		"course_id":               e.CourseID,
		"assessment_id":           e.AssessmentIdentifier,
		"score":                   e.Score,
		"max_score":               e.MaxScore,
		"passed":                  e.Passed,
		"completion_time_seconds": e.CompletionTimeSeconds,
		"attempts":                e.Attempts,
	}
}

// NewAssessmentSubmittedEvent creates an assessment submitted event.
func NewAssessmentSubmittedEvent(
	key EnrollmentKey,
	assessmentID AssessmentID,
	score, maxScore int,
	passed bool,
	completionTimeSeconds int64,
	attempts int,
) AssessmentSubmittedEvent {
	return AssessmentSubmittedEvent{
		BaseEvent:             NewBaseEvent(EventAssessmentSubmitted, key.String()),
		UserID:                key.UserID.String(),
		CourseID:              key.CourseID.String(),
		AssessmentIdentifier:  assessmentID.String(),
		Score:                 score,
		MaxScore:              maxScore,
		Passed:                passed,
		CompletionTimeSeconds: completionTimeSeconds,
		Attempts:              attempts,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Certificate Events
// ═══════════════════════════════════════════════════════════════════════════

// CertificateIssuedEvent is emitted when a certificate is first issued.
// Idempotent re-issues do not emit this event.
type CertificateIssuedEvent struct {
	BaseEvent
	UserID            string    `json:"user_id"`
	CourseID          string    `json:"course_id"`
	CertificateNumber string    `json:"certificate_number"`
	IssuedAt          time.Time `json:"issued_at"`
}

// Payload implements Event interface.
func (e CertificateIssuedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":            e.UserID,
		"course_id":          e.CourseID,
		"certificate_number": e.CertificateNumber,
		"issued_at":          e.IssuedAt,
	}
}

// NewCertificateIssuedEvent creates a certificate issued event.
func NewCertificateIssuedEvent(key EnrollmentKey, number string, issuedAt time.Time) CertificateIssuedEvent {
	return CertificateIssuedEvent{
		BaseEvent:         NewBaseEvent(EventCertificateIssued, key.String()),
		UserID:            key.UserID.String(),
		CourseID:          key.CourseID.String(),
		CertificateNumber: number,
		IssuedAt:          issuedAt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Integrity Events
// ═══════════════════════════════════════════════════════════════════════════

// LearningPatternChangedEvent is emitted when the integrity classification
// for a (user, course) pair changes. Downstream dashboards subscribe to it;
// nothing on the enrollment path does.
type LearningPatternChangedEvent struct {
	BaseEvent
	UserID          string   `json:"user_id"`
	CourseID        string   `json:"course_id"`
	PreviousPattern string   `json:"previous_pattern"`
	Pattern         string   `json:"pattern"`
	Flags           []string `json:"flags"`
}

// Payload implements Event interface.
func (e LearningPatternChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"course_id":        e.CourseID,
		"previous_pattern": e.PreviousPattern,
		"pattern":          e.Pattern,
		"flags":            e.Flags,
	}
}

// NewLearningPatternChangedEvent creates a pattern changed event.
func NewLearningPatternChangedEvent(key EnrollmentKey, previous, current string, flags []string) LearningPatternChangedEvent {
	return LearningPatternChangedEvent{
		BaseEvent:       NewBaseEvent(EventLearningPatternChanged, key.String()),
		UserID:          key.UserID.String(),
		CourseID:        key.CourseID.String(),
		PreviousPattern: previous,
		Pattern:         current,
		Flags:           flags,
	}
}
