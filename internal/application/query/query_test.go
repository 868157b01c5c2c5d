package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/application/query"
	"github.com/learnhub/enrollment-hub/internal/domain/certificate"
	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/progress"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/memory"
)

// fakeUsageStore is an in-memory shared.UsageStore.
type fakeUsageStore struct {
	summaries map[shared.UserID]*shared.UsageSummary
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{summaries: make(map[shared.UserID]*shared.UsageSummary)}
}

func (s *fakeUsageStore) GetUsageSummary(ctx context.Context, userID shared.UserID) (*shared.UsageSummary, error) {
	if summary, ok := s.summaries[userID]; ok {
		return summary, nil
	}
	return nil, shared.ErrNotFound
}

func (s *fakeUsageStore) SetUsageSummary(ctx context.Context, summary *shared.UsageSummary, ttl time.Duration) error {
	s.summaries[summary.UserID] = summary
	return nil
}

func mustKey(t *testing.T, userID, courseID string) shared.EnrollmentKey {
	t.Helper()

	uid, err := shared.NewUserID(userID)
	require.NoError(t, err)
	cid, err := shared.NewCourseID(courseID)
	require.NoError(t, err)
	key, err := shared.NewEnrollmentKey(uid, cid)
	require.NoError(t, err)
	return key
}

func seedEnrollment(t *testing.T, repo *memory.EnrollmentRepository, key shared.EnrollmentKey) *enrollment.Enrollment {
	t.Helper()

	e, err := enrollment.New(key, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), e))
	return e
}

func seedRecord(t *testing.T, store *memory.ProgressStore, key shared.EnrollmentKey, moduleID, contentID string, pct int, seconds int64) {
	t.Helper()

	r, err := progress.NewRecord(progress.Key{
		UserID:    key.UserID,
		CourseID:  key.CourseID,
		ModuleID:  shared.ModuleID(moduleID),
		ContentID: shared.ContentID(contentID),
	}, shared.Percent(pct), seconds, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), r))
}

func TestGetOverallProgress_MeanOfRecords(t *testing.T) {
	enrollments := memory.NewEnrollmentRepository()
	records := memory.NewProgressStore()
	key := mustKey(t, "user-1", "go-101")
	seedEnrollment(t, enrollments, key)

	seedRecord(t, records, key, "m1", "c1", 50, 120)
	seedRecord(t, records, key, "m1", "c2", 100, 300)

	h := query.NewGetOverallProgressHandler(enrollments, records)
	dto, err := h.Handle(context.Background(), query.GetOverallProgressQuery{
		UserID:   "user-1",
		CourseID: "go-101",
	})
	require.NoError(t, err)

	assert.Equal(t, 75, dto.OverallProgress)
	assert.Equal(t, 2, dto.ItemsRecorded)
	assert.Equal(t, 1, dto.ItemsCompleted)
	assert.Equal(t, int64(420), dto.TimeSpentSeconds)
	assert.Empty(t, dto.Items, "breakdown only on request")
}

func TestGetOverallProgress_NoRecordsIsZero(t *testing.T) {
	enrollments := memory.NewEnrollmentRepository()
	records := memory.NewProgressStore()
	key := mustKey(t, "user-1", "go-101")
	seedEnrollment(t, enrollments, key)

	h := query.NewGetOverallProgressHandler(enrollments, records)
	dto, err := h.Handle(context.Background(), query.GetOverallProgressQuery{
		UserID:   "user-1",
		CourseID: "go-101",
	})
	require.NoError(t, err)
	assert.Zero(t, dto.OverallProgress)
}

func TestGetOverallProgress_NotEnrolled(t *testing.T) {
	h := query.NewGetOverallProgressHandler(memory.NewEnrollmentRepository(), memory.NewProgressStore())

	_, err := h.Handle(context.Background(), query.GetOverallProgressQuery{
		UserID:   "user-1",
		CourseID: "go-101",
	})
	assert.True(t, shared.IsNotFound(err))
}

func TestGetOverallProgress_IncludeItems(t *testing.T) {
	enrollments := memory.NewEnrollmentRepository()
	records := memory.NewProgressStore()
	key := mustKey(t, "user-1", "go-101")
	seedEnrollment(t, enrollments, key)
	seedRecord(t, records, key, "m1", "c1", 50, 120)

	h := query.NewGetOverallProgressHandler(enrollments, records)
	dto, err := h.Handle(context.Background(), query.GetOverallProgressQuery{
		UserID:       "user-1",
		CourseID:     "go-101",
		IncludeItems: true,
	})
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, "c1", dto.Items[0].ContentID)
}

func TestGetCertificate_ByPairAndByNumber(t *testing.T) {
	certificates := memory.NewCertificateRepository()
	key := mustKey(t, "user-1", "go-101")

	cert, err := certificate.New(key, "https://learnhub.example.com", time.Now())
	require.NoError(t, err)
	require.NoError(t, certificates.CreateUnique(context.Background(), cert))

	h := query.NewGetCertificateHandler(certificates)

	byPair, err := h.Handle(context.Background(), query.GetCertificateQuery{
		UserID: "user-1", CourseID: "go-101",
	})
	require.NoError(t, err)
	assert.Equal(t, cert.Number, byPair.Number)
	assert.True(t, byPair.NumberVerified)

	byNumber, err := h.Handle(context.Background(), query.GetCertificateQuery{
		Number: cert.Number,
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", byNumber.UserID)
}

func TestGetCertificate_NotFound(t *testing.T) {
	h := query.NewGetCertificateHandler(memory.NewCertificateRepository())

	_, err := h.Handle(context.Background(), query.GetCertificateQuery{
		UserID: "user-1", CourseID: "go-101",
	})
	assert.True(t, shared.IsNotFound(err))
}

func TestGetLearningPattern_DefaultsToNormal(t *testing.T) {
	h := query.NewGetLearningPatternHandler(memory.NewIntegrityRepository())

	dto, err := h.Handle(context.Background(), query.GetLearningPatternQuery{
		UserID: "user-1", CourseID: "go-101",
	})
	require.NoError(t, err)
	assert.Equal(t, "normal", dto.Pattern)
	assert.Empty(t, dto.Flags)
}

func TestGetUsageSummary_CacheAndForceRefresh(t *testing.T) {
	enrollments := memory.NewEnrollmentRepository()
	certificates := memory.NewCertificateRepository()
	store := newFakeUsageStore()

	key := mustKey(t, "user-1", "go-101")
	seedEnrollment(t, enrollments, key)

	h := query.NewGetUsageSummaryHandler(enrollments, certificates, store,
		query.DefaultGetUsageSummaryHandlerConfig())

	first, err := h.Handle(context.Background(), query.GetUsageSummaryQuery{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ActiveCourses)

	// Enroll in another course; the cached summary is stale until a
	// forced refresh.
	seedEnrollment(t, enrollments, mustKey(t, "user-1", "sql-201"))

	cached, err := h.Handle(context.Background(), query.GetUsageSummaryQuery{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, cached.ActiveCourses)

	fresh, err := h.Handle(context.Background(), query.GetUsageSummaryQuery{
		UserID: "user-1", ForceRefresh: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.ActiveCourses)
}

func TestQueries_ValidateInput(t *testing.T) {
	progressHandler := query.NewGetOverallProgressHandler(
		memory.NewEnrollmentRepository(), memory.NewProgressStore())
	_, err := progressHandler.Handle(context.Background(), query.GetOverallProgressQuery{})
	assert.Error(t, err)

	certHandler := query.NewGetCertificateHandler(memory.NewCertificateRepository())
	_, err = certHandler.Handle(context.Background(), query.GetCertificateQuery{})
	assert.Error(t, err)

	usageHandler := query.NewGetUsageSummaryHandler(
		memory.NewEnrollmentRepository(), memory.NewCertificateRepository(), nil,
		query.DefaultGetUsageSummaryHandlerConfig())
	_, err = usageHandler.Handle(context.Background(), query.GetUsageSummaryQuery{})
	assert.Error(t, err)
}
