package projections_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/projections"
)

func enrollmentKey(t *testing.T, userID, courseID string) shared.EnrollmentKey {
	t.Helper()

	uid, err := shared.NewUserID(userID)
	require.NoError(t, err)
	cid, err := shared.NewCourseID(courseID)
	require.NoError(t, err)
	key, err := shared.NewEnrollmentKey(uid, cid)
	require.NoError(t, err)
	return key
}

func TestCourseDashboardView_LifecycleCounters(t *testing.T) {
	view := projections.NewCourseDashboardView()
	key := enrollmentKey(t, "user-1", "go-101")
	other := enrollmentKey(t, "user-2", "go-101")

	require.NoError(t, view.Handle(shared.NewEnrollmentCreatedEvent(key, false)))
	require.NoError(t, view.Handle(shared.NewEnrollmentCreatedEvent(other, false)))
	require.NoError(t, view.Handle(shared.NewEnrollmentDroppedEvent(other)))
	require.NoError(t, view.Handle(shared.NewEnrollmentCreatedEvent(other, true)))
	require.NoError(t, view.Handle(shared.NewCourseCompletedEvent(key, time.Now())))

	d, ok := view.GetCourse("go-101")
	require.True(t, ok)

	assert.Equal(t, 1, d.ActiveEnrollments, "two enrolled, one dropped+reactivated, one completed")
	assert.Equal(t, 1, d.Completions)
	assert.Equal(t, 1, d.Drops)
	assert.Equal(t, 1, d.Reactivations)
}

func TestCourseDashboardView_ActivityCounters(t *testing.T) {
	view := projections.NewCourseDashboardView()
	key := enrollmentKey(t, "user-1", "go-101")

	require.NoError(t, view.Handle(shared.NewContentProgressRecordedEvent(
		key, "m1", "c1", 50, 120, "start", 50)))
	require.NoError(t, view.Handle(shared.NewContentProgressRecordedEvent(
		key, "m1", "c1", 100, 300, "complete", 100)))
	require.NoError(t, view.Handle(shared.NewAssessmentSubmittedEvent(
		key, "quiz-1", 75, 100, true, 240, 1)))
	require.NoError(t, view.Handle(shared.NewAssessmentSubmittedEvent(
		key, "quiz-1", 40, 100, false, 180, 2)))
	require.NoError(t, view.Handle(shared.NewCertificateIssuedEvent(
		key, "CERT-20260829-ABCDEF-12", time.Now())))

	d, ok := view.GetCourse("go-101")
	require.True(t, ok)

	assert.Equal(t, 2, d.ProgressEvents)
	assert.Equal(t, 2, d.AssessmentSubmissions)
	assert.Equal(t, 1, d.AssessmentPasses)
	assert.Equal(t, 1, d.CertificatesIssued)
}

func TestCourseDashboardView_FlaggedLearners(t *testing.T) {
	view := projections.NewCourseDashboardView()
	key := enrollmentKey(t, "user-1", "go-101")

	require.NoError(t, view.Handle(shared.NewLearningPatternChangedEvent(
		key, "normal", "suspicious", []string{"excessive_skipping"})))

	d, ok := view.GetCourse("go-101")
	require.True(t, ok)
	require.Contains(t, d.FlaggedLearners, "user-1")
	assert.Equal(t, "suspicious", d.FlaggedLearners["user-1"].Pattern)
	assert.Equal(t, []string{"excessive_skipping"}, d.FlaggedLearners["user-1"].Flags)

	// Back to normal clears the flag entry.
	require.NoError(t, view.Handle(shared.NewLearningPatternChangedEvent(
		key, "suspicious", "normal", nil)))

	d, ok = view.GetCourse("go-101")
	require.True(t, ok)
	assert.NotContains(t, d.FlaggedLearners, "user-1")
}

func TestCourseDashboardView_ExpiryDecrementsActive(t *testing.T) {
	view := projections.NewCourseDashboardView()
	key := enrollmentKey(t, "user-1", "go-101")

	require.NoError(t, view.Handle(shared.NewEnrollmentCreatedEvent(key, false)))
	require.NoError(t, view.Handle(shared.NewEnrollmentExpiredEvent(key, time.Now())))

	d, ok := view.GetCourse("go-101")
	require.True(t, ok)
	assert.Equal(t, 0, d.ActiveEnrollments)
	assert.Equal(t, 1, d.Expirations)
}

func TestCourseDashboardView_VersionAndListing(t *testing.T) {
	view := projections.NewCourseDashboardView()

	assert.Zero(t, view.Version())
	assert.Empty(t, view.ListCourses())

	require.NoError(t, view.Handle(shared.NewEnrollmentCreatedEvent(
		enrollmentKey(t, "user-1", "go-101"), false)))
	require.NoError(t, view.Handle(shared.NewEnrollmentCreatedEvent(
		enrollmentKey(t, "user-1", "sql-201"), false)))

	assert.Equal(t, int64(2), view.Version())

	courses := view.ListCourses()
	require.Len(t, courses, 2)
	assert.Equal(t, "go-101", courses[0].CourseID, "listing is sorted by course ID")
	assert.Equal(t, "sql-201", courses[1].CourseID)
	assert.False(t, view.LastUpdated().IsZero())
}
