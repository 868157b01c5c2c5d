package eventhandler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/application/command"
	"github.com/learnhub/enrollment-hub/internal/application/eventhandler"
	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/integrity"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/memory"
	"github.com/learnhub/enrollment-hub/pkg/keylock"
)

type capturingPatternSink struct {
	mu       sync.Mutex
	patterns []integrity.Pattern
}

func (s *capturingPatternSink) PublishPattern(ctx context.Context, key shared.EnrollmentKey, pattern integrity.Pattern, flags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, pattern)
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(shared.Event) error { return nil }

func testKey() shared.EnrollmentKey {
	return shared.EnrollmentKey{UserID: "alice", CourseID: "go-101"}
}

func TestOnContentProgress_FlagsFastForwarders(t *testing.T) {
	repo := memory.NewIntegrityRepository()
	sink := &capturingPatternSink{}
	handler := eventhandler.NewOnContentProgressHandler(repo, sink, nopPublisher{}, nil, keylock.New(), nil)

	// Plenty of completions at a healthy pace, then a burst of
	// fast-forwards pushing past the ratio threshold.
	for i := 0; i < 4; i++ {
		err := handler.Handle(shared.NewContentProgressRecordedEvent(testKey(), "m1", "c1", 100, 600, "complete", 50))
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		err := handler.Handle(shared.NewContentProgressRecordedEvent(testKey(), "m1", "c2", 10, 5, "fastforward", 50))
		require.NoError(t, err)
	}

	profile, err := repo.Get(context.Background(), testKey())
	require.NoError(t, err)
	assert.Contains(t, profile.Flags, integrity.FlagExcessiveFastForward)
	assert.Equal(t, integrity.PatternSuspicious, profile.Pattern)

	// Exactly one classification change: normal → suspicious.
	require.Len(t, sink.patterns, 1)
	assert.Equal(t, integrity.PatternSuspicious, sink.patterns[0])
}

func TestOnContentProgress_DropsUnknownAction(t *testing.T) {
	repo := memory.NewIntegrityRepository()
	handler := eventhandler.NewOnContentProgressHandler(repo, nil, nopPublisher{}, nil, keylock.New(), nil)

	err := handler.Handle(shared.NewContentProgressRecordedEvent(testKey(), "m1", "c1", 50, 60, "rewind", 25))

	require.NoError(t, err)
	_, err = repo.Get(context.Background(), testKey())
	assert.ErrorIs(t, err, integrity.ErrProfileNotFound)
}

func TestOnAssessmentSubmitted_FlagsSuspiciousPerformance(t *testing.T) {
	repo := memory.NewIntegrityRepository()
	sink := &capturingPatternSink{}
	handler := eventhandler.NewOnAssessmentSubmittedHandler(repo, sink, nopPublisher{}, keylock.New(), nil)

	// Three near-perfect scores submitted implausibly fast.
	for i := 0; i < 3; i++ {
		err := handler.Handle(shared.NewAssessmentSubmittedEvent(testKey(), "quiz-1", 98, 100, true, 60, i+1))
		require.NoError(t, err)
	}

	profile, err := repo.Get(context.Background(), testKey())
	require.NoError(t, err)
	assert.Contains(t, profile.Flags, integrity.FlagSuspiciousAssessmentPerf)
	assert.Equal(t, integrity.PatternSuspicious, profile.Pattern)
}

func TestOnAssessmentSubmitted_NormalizesPointScales(t *testing.T) {
	repo := memory.NewIntegrityRepository()
	sink := &capturingPatternSink{}
	handler := eventhandler.NewOnAssessmentSubmittedHandler(repo, sink, nopPublisher{}, keylock.New(), nil)

	// Perfect scores on a 200-point assessment, each finished in a
	// minute. The point scale must not dilute the percentage: 200/200
	// is 100%, not 50%.
	for i := 0; i < 3; i++ {
		err := handler.Handle(shared.NewAssessmentSubmittedEvent(testKey(), "final-1", 200, 200, true, 60, i+1))
		require.NoError(t, err)
	}

	profile, err := repo.Get(context.Background(), testKey())
	require.NoError(t, err)
	assert.Contains(t, profile.Flags, integrity.FlagSuspiciousAssessmentPerf)
	assert.Equal(t, integrity.PatternSuspicious, profile.Pattern)
}

func TestOnCourseCompleted_IssuesCertificate(t *testing.T) {
	enrollments := memory.NewEnrollmentRepository()
	certificates := memory.NewCertificateRepository()
	locks := keylock.New()
	ctx := context.Background()

	e, err := enrollment.New(testKey(), time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, enrollments.Create(ctx, e))
	completed, err := enrollments.CompleteIfActive(ctx, testKey(), time.Now().UTC())
	require.NoError(t, err)
	require.True(t, completed)

	issue := command.NewIssueCertificateHandler(certificates, enrollments, locks, nopPublisher{},
		command.IssueCertificateHandlerConfig{BaseURL: "https://certs.test"})
	handler := eventhandler.NewOnCourseCompletedHandler(issue, nil)

	err = handler.Handle(shared.NewCourseCompletedEvent(testKey(), time.Now().UTC()))
	require.NoError(t, err)

	cert, err := certificates.Get(ctx, testKey())
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Number)

	// Redelivery of the event is harmless.
	err = handler.Handle(shared.NewCourseCompletedEvent(testKey(), time.Now().UTC()))
	require.NoError(t, err)

	again, err := certificates.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, cert.Number, again.Number)
}
