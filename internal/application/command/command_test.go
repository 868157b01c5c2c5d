package command_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/application/command"
	"github.com/learnhub/enrollment-hub/internal/domain/assessment"
	"github.com/learnhub/enrollment-hub/internal/domain/catalog"
	"github.com/learnhub/enrollment-hub/internal/domain/certificate"
	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/progress"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/memory"
	"github.com/learnhub/enrollment-hub/pkg/keylock"
)

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) ofType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// testEnv wires the command handlers over the in-memory layer.
type testEnv struct {
	enrollments  *memory.EnrollmentRepository
	progress     *memory.ProgressStore
	scores       *memory.ScoreStore
	certificates *memory.CertificateRepository
	catalog      *memory.CatalogReader
	publisher    *capturingPublisher
	locks        *keylock.KeyLock

	enroll         *command.EnrollHandler
	drop           *command.DropHandler
	recordProgress *command.RecordContentProgressHandler
	submit         *command.SubmitAssessmentHandler
	issue          *command.IssueCertificateHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		enrollments:  memory.NewEnrollmentRepository(),
		progress:     memory.NewProgressStore(),
		scores:       memory.NewScoreStore(),
		certificates: memory.NewCertificateRepository(),
		catalog:      memory.NewCatalogReader(),
		publisher:    &capturingPublisher{},
		locks:        keylock.New(),
	}

	env.catalog.AddCourse(&catalog.CourseStructure{
		CourseID: "go-101",
		Title:    "Go Fundamentals",
		Items: []catalog.ContentItem{
			{ModuleID: "m1", ContentID: "c1", Title: "Basics"},
			{ModuleID: "m1", ContentID: "c2", Title: "Types"},
		},
	})
	env.catalog.AddAssessment(&assessment.Assessment{
		ID:           "quiz-1",
		CourseID:     "go-101",
		Title:        "Final Quiz",
		PassingScore: 70,
		Questions: []assessment.Question{
			{ID: "q1", Type: assessment.TypeMultipleChoice, Points: 50, CorrectAnswer: "b"},
			{ID: "q2", Type: assessment.TypeTrueFalse, Points: 50, CorrectAnswer: "true"},
		},
	})

	env.enroll = command.NewEnrollHandler(env.enrollments, env.catalog, env.locks, env.publisher)
	env.drop = command.NewDropHandler(env.enrollments, env.locks, env.publisher)
	env.recordProgress = command.NewRecordContentProgressHandler(env.enrollments, env.progress, env.locks, env.publisher)
	env.submit = command.NewSubmitAssessmentHandler(env.enrollments, env.scores, env.catalog, env.locks, env.publisher)
	env.issue = command.NewIssueCertificateHandler(env.certificates, env.enrollments, env.locks, env.publisher,
		command.IssueCertificateHandlerConfig{BaseURL: "https://certs.test"})

	return env
}

func (env *testEnv) mustEnroll(t *testing.T, userID, courseID string) {
	t.Helper()
	_, err := env.enroll.Handle(context.Background(), command.EnrollCommand{UserID: userID, CourseID: courseID})
	require.NoError(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Enroll / Drop
// ─────────────────────────────────────────────────────────────────────────────

func TestEnroll_CreatesActiveEnrollment(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.enroll.Handle(context.Background(), command.EnrollCommand{
		UserID:   "alice",
		CourseID: "go-101",
	})

	require.NoError(t, err)
	assert.False(t, result.Reactivated)
	assert.Equal(t, enrollment.StatusActive, result.Enrollment.Status)
	assert.Len(t, env.publisher.ofType(shared.EventEnrollmentCreated), 1)
}

func TestEnroll_RejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "alice", "go-101")

	_, err := env.enroll.Handle(context.Background(), command.EnrollCommand{
		UserID:   "alice",
		CourseID: "go-101",
	})

	assert.ErrorIs(t, err, enrollment.ErrAlreadyEnrolled)
}

func TestEnroll_RejectsUnknownCourse(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.enroll.Handle(context.Background(), command.EnrollCommand{
		UserID:   "alice",
		CourseID: "no-such-course",
	})

	assert.ErrorIs(t, err, catalog.ErrCourseNotFound)
}

func TestEnroll_ReactivatesDropped(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "alice", "go-101")

	// Some progress before dropping.
	_, err := env.recordProgress.Handle(context.Background(), command.RecordContentProgressCommand{
		UserID: "alice", CourseID: "go-101", ModuleID: "m1", ContentID: "c1", Progress: 40,
	})
	require.NoError(t, err)

	_, err = env.drop.Handle(context.Background(), command.DropCommand{UserID: "alice", CourseID: "go-101"})
	require.NoError(t, err)

	result, err := env.enroll.Handle(context.Background(), command.EnrollCommand{
		UserID:   "alice",
		CourseID: "go-101",
	})

	require.NoError(t, err)
	assert.True(t, result.Reactivated)
	assert.Equal(t, enrollment.StatusActive, result.Enrollment.Status)
	assert.Len(t, env.publisher.ofType(shared.EventEnrollmentReactivated), 1)

	// History survived the drop.
	records, err := env.progress.ListForCourse(context.Background(),
		shared.EnrollmentKey{UserID: "alice", CourseID: "go-101"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 40, records[0].Progress.Int())
}

func TestDrop_NotEnrolled(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.drop.Handle(context.Background(), command.DropCommand{UserID: "alice", CourseID: "go-101"})

	assert.ErrorIs(t, err, enrollment.ErrNotEnrolled)
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress and completion
// ─────────────────────────────────────────────────────────────────────────────

func TestRecordProgress_RejectsInvalidValues(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "alice", "go-101")

	for _, p := range []int{0, -5, 101} {
		_, err := env.recordProgress.Handle(context.Background(), command.RecordContentProgressCommand{
			UserID: "alice", CourseID: "go-101", ModuleID: "m1", ContentID: "c1", Progress: p,
		})
		assert.ErrorIs(t, err, progress.ErrInvalidProgressValue, "progress=%d", p)
	}
}

func TestRecordProgress_RequiresEnrollment(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.recordProgress.Handle(context.Background(), command.RecordContentProgressCommand{
		UserID: "alice", CourseID: "go-101", ModuleID: "m1", ContentID: "c1", Progress: 50,
	})

	assert.ErrorIs(t, err, enrollment.ErrNotEnrolled)
}

func TestRecordProgress_OverallIsUnweightedMean(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "alice", "go-101")
	ctx := context.Background()

	_, err := env.recordProgress.Handle(ctx, command.RecordContentProgressCommand{
		UserID: "alice", CourseID: "go-101", ModuleID: "m1", ContentID: "c1", Progress: 100,
	})
	require.NoError(t, err)

	result, err := env.recordProgress.Handle(ctx, command.RecordContentProgressCommand{
		UserID: "alice", CourseID: "go-101", ModuleID: "m1", ContentID: "c2", Progress: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, 75, result.OverallProgress.Int())
	assert.False(t, result.CourseCompleted)

	e, err := env.enrollments.Get(ctx, shared.EnrollmentKey{UserID: "alice", CourseID: "go-101"})
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusActive, e.Status)
}

func TestRecordProgress_CompletesCourseExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "alice", "go-101")
	ctx := context.Background()

	_, err := env.recordProgress.Handle(ctx, command.RecordContentProgressCommand{
		UserID: "alice", CourseID: "go-101", ModuleID: "m1", ContentID: "c1", Progress: 100,
	})
	require.NoError(t, err)

	result, err := env.recordProgress.Handle(ctx, command.RecordContentProgressCommand{
		UserID: "alice", CourseID: "go-101", ModuleID: "m1", ContentID: "c2", Progress: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, 100, result.OverallProgress.Int())
	assert.True(t, result.CourseCompleted)
	assert.Len(t, env.publisher.ofType(shared.EventCourseCompleted), 1)

	e, err := env.enrollments.Get(ctx, shared.EnrollmentKey{UserID: "alice", CourseID: "go-101"})
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCompleted, e.Status)
	require.NotNil(t, e.CompletedAt)

	// Further interactions against a completed enrollment are rejected and
	// emit nothing.
	_, err = env.recordProgress.Handle(ctx, command.RecordContentProgressCommand{
		UserID: "alice", CourseID: "go-101", ModuleID: "m1", ContentID: "c2", Progress: 100,
	})
	assert.ErrorIs(t, err, enrollment.ErrAlreadyCompleted)
	assert.Len(t, env.publisher.ofType(shared.EventCourseCompleted), 1)
}

func TestRecordProgress_ConcurrentWritersSingleCompletion(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "alice", "go-101")
	ctx := context.Background()

	_, err := env.recordProgress.Handle(ctx, command.RecordContentProgressCommand{
		UserID: "alice", CourseID: "go-101", ModuleID: "m1", ContentID: "c1", Progress: 100,
	})
	require.NoError(t, err)

	// Many concurrent attempts to push the final item to 100. Exactly one
	// triggers the completion transition; the rest lose the race to the
	// status check or the compare-and-set.
	const writers = 16
	var wg sync.WaitGroup
	completions := make(chan bool, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := env.recordProgress.Handle(ctx, command.RecordContentProgressCommand{
				UserID: "alice", CourseID: "go-101", ModuleID: "m1", ContentID: "c2", Progress: 100,
			})
			if err == nil && result.CourseCompleted {
				completions <- true
			}
		}()
	}
	wg.Wait()
	close(completions)

	count := 0
	for range completions {
		count++
	}
	assert.Equal(t, 1, count)
	assert.Len(t, env.publisher.ofType(shared.EventCourseCompleted), 1)
}

// ─────────────────────────────────────────────────────────────────────────────
// Assessment submission
// ─────────────────────────────────────────────────────────────────────────────

func TestSubmitAssessment_ScoresAndCountsAttempts(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "alice", "go-101")
	ctx := context.Background()

	first, err := env.submit.Handle(ctx, command.SubmitAssessmentCommand{
		UserID: "alice", CourseID: "go-101", AssessmentID: "quiz-1",
		Answers: []command.AnswerInput{
			{QuestionID: "q1", Value: "b"},
			{QuestionID: "q2", Value: "false"},
		},
		CompletionTimeSeconds: 240,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, first.Score)
	assert.False(t, first.Passed)
	assert.Equal(t, 1, first.Attempt)

	second, err := env.submit.Handle(ctx, command.SubmitAssessmentCommand{
		UserID: "alice", CourseID: "go-101", AssessmentID: "quiz-1",
		Answers: []command.AnswerInput{
			{QuestionID: "q1", Value: "b"},
			{QuestionID: "q2", Value: "true"},
		},
		CompletionTimeSeconds: 180,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, second.Score)
	assert.True(t, second.Passed)
	assert.Equal(t, 2, second.Attempt)

	// Both attempts survive.
	attempts, err := env.scores.ListAttempts(ctx, "alice", "quiz-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, 50, attempts[0].Score)
	assert.Equal(t, 100, attempts[1].Score)

	assert.Len(t, env.publisher.ofType(shared.EventAssessmentSubmitted), 2)
}

func TestSubmitAssessment_EventCarriesRawPoints(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.AddAssessment(&assessment.Assessment{
		ID:           "final-1",
		CourseID:     "go-101",
		Title:        "Final Exam",
		PassingScore: 70,
		Questions: []assessment.Question{
			{ID: "q1", Type: assessment.TypeMultipleChoice, Points: 200, CorrectAnswer: "c"},
		},
	})
	env.mustEnroll(t, "alice", "go-101")

	result, err := env.submit.Handle(context.Background(), command.SubmitAssessmentCommand{
		UserID: "alice", CourseID: "go-101", AssessmentID: "final-1",
		Answers:               []command.AnswerInput{{QuestionID: "q1", Value: "c"}},
		CompletionTimeSeconds: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)

	// The event keeps score and max on the same point scale so
	// consumers can compute the percentage: 200/200, not 100/200.
	events := env.publisher.ofType(shared.EventAssessmentSubmitted)
	require.Len(t, events, 1)
	submitted, ok := events[0].(shared.AssessmentSubmittedEvent)
	require.True(t, ok)
	assert.Equal(t, 200, submitted.Score)
	assert.Equal(t, 200, submitted.MaxScore)
}

func TestSubmitAssessment_UnknownDefinition(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "alice", "go-101")

	_, err := env.submit.Handle(context.Background(), command.SubmitAssessmentCommand{
		UserID: "alice", CourseID: "go-101", AssessmentID: "no-such-quiz",
	})

	assert.ErrorIs(t, err, assessment.ErrAssessmentNotFound)
}

// ─────────────────────────────────────────────────────────────────────────────
// Certificate issuance
// ─────────────────────────────────────────────────────────────────────────────

// completeCourse drives an enrollment to completed through the real
// progress path.
func completeCourse(t *testing.T, env *testEnv, userID, courseID string) {
	t.Helper()
	ctx := context.Background()
	for _, contentID := range []string{"c1", "c2"} {
		_, err := env.recordProgress.Handle(ctx, command.RecordContentProgressCommand{
			UserID: userID, CourseID: courseID, ModuleID: "m1", ContentID: contentID, Progress: 100,
		})
		require.NoError(t, err)
	}
}

func TestIssueCertificate_RequiresCompletion(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "alice", "go-101")

	_, err := env.issue.Handle(context.Background(), command.IssueCertificateCommand{
		UserID: "alice", CourseID: "go-101",
	})

	assert.ErrorIs(t, err, certificate.ErrCourseNotCompleted)
}

func TestIssueCertificate_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "alice", "go-101")
	completeCourse(t, env, "alice", "go-101")
	ctx := context.Background()

	first, err := env.issue.Handle(ctx, command.IssueCertificateCommand{UserID: "alice", CourseID: "go-101"})
	require.NoError(t, err)
	assert.False(t, first.AlreadyIssued)
	assert.NotEmpty(t, first.Certificate.Number)
	assert.Contains(t, first.Certificate.DownloadURL, "https://certs.test/certificates/")

	time.Sleep(5 * time.Millisecond)

	second, err := env.issue.Handle(ctx, command.IssueCertificateCommand{UserID: "alice", CourseID: "go-101"})
	require.NoError(t, err)
	assert.True(t, second.AlreadyIssued)
	assert.Equal(t, first.Certificate.Number, second.Certificate.Number)
	assert.Equal(t, first.Certificate.IssuedAt, second.Certificate.IssuedAt)

	// Only the first issue emits the event.
	assert.Len(t, env.publisher.ofType(shared.EventCertificateIssued), 1)
}

func TestIssueCertificate_ConcurrentCallsYieldOneCertificate(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "alice", "go-101")
	completeCourse(t, env, "alice", "go-101")
	ctx := context.Background()

	const callers = 20
	var wg sync.WaitGroup
	numbers := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := env.issue.Handle(ctx, command.IssueCertificateCommand{
				UserID: "alice", CourseID: "go-101",
			})
			if err == nil {
				numbers <- result.Certificate.Number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	unique := make(map[string]struct{})
	total := 0
	for n := range numbers {
		unique[n] = struct{}{}
		total++
	}
	assert.Equal(t, callers, total, "every caller gets a certificate back")
	assert.Len(t, unique, 1, "and they all get the same one")
	assert.Len(t, env.publisher.ofType(shared.EventCertificateIssued), 1)
}
