package jobs_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/application/query"
	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/memory"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/scheduler/jobs"
)

// capturingPublisher records published events.
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

// fakeUsageStore is an in-memory shared.UsageStore.
type fakeUsageStore struct {
	mu        sync.Mutex
	summaries map[shared.UserID]*shared.UsageSummary
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{summaries: make(map[shared.UserID]*shared.UsageSummary)}
}

func (s *fakeUsageStore) GetUsageSummary(ctx context.Context, userID shared.UserID) (*shared.UsageSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if summary, ok := s.summaries[userID]; ok {
		return summary, nil
	}
	return nil, shared.ErrNotFound
}

func (s *fakeUsageStore) SetUsageSummary(ctx context.Context, summary *shared.UsageSummary, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summary.UserID] = summary
	return nil
}

func mustEnroll(t *testing.T, repo *memory.EnrollmentRepository, userID, courseID string, lastAccess time.Time) *enrollment.Enrollment {
	t.Helper()

	uid, err := shared.NewUserID(userID)
	require.NoError(t, err)
	cid, err := shared.NewCourseID(courseID)
	require.NoError(t, err)
	key, err := shared.NewEnrollmentKey(uid, cid)
	require.NoError(t, err)

	e, err := enrollment.New(key, lastAccess)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), e))
	return e
}

func TestExpireEnrollmentsJob_ExpiresStaleOnly(t *testing.T) {
	repo := memory.NewEnrollmentRepository()
	publisher := &capturingPublisher{}

	stale := mustEnroll(t, repo, "user-stale", "go-101", time.Now().Add(-120*24*time.Hour))
	fresh := mustEnroll(t, repo, "user-fresh", "go-101", time.Now().Add(-time.Hour))

	cfg := jobs.DefaultExpireEnrollmentsConfig()
	cfg.StaleAfter = 90 * 24 * time.Hour
	job := jobs.NewExpireEnrollmentsJob(repo, publisher, nil, cfg)

	require.NoError(t, job.Run(context.Background()))

	got, err := repo.Get(context.Background(), stale.Key())
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusExpired, got.Status)

	got, err = repo.Get(context.Background(), fresh.Key())
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusActive, got.Status)

	expired := publisher.ofType(shared.EventEnrollmentExpired)
	require.Len(t, expired, 1)

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.StaleFound)
	assert.Equal(t, 1, stats.Expired)
	assert.Zero(t, stats.Skipped)
}

func TestExpireEnrollmentsJob_EmptySweep(t *testing.T) {
	repo := memory.NewEnrollmentRepository()
	publisher := &capturingPublisher{}

	job := jobs.NewExpireEnrollmentsJob(repo, publisher, nil, jobs.DefaultExpireEnrollmentsConfig())
	require.NoError(t, job.Run(context.Background()))

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Zero(t, stats.StaleFound)
	assert.Empty(t, publisher.events)
}

func TestExpireEnrollmentsJob_RespectsBatchSize(t *testing.T) {
	repo := memory.NewEnrollmentRepository()
	publisher := &capturingPublisher{}

	old := time.Now().Add(-200 * 24 * time.Hour)
	mustEnroll(t, repo, "user-1", "go-101", old)
	mustEnroll(t, repo, "user-2", "go-101", old.Add(time.Hour))
	mustEnroll(t, repo, "user-3", "go-101", old.Add(2*time.Hour))

	cfg := jobs.DefaultExpireEnrollmentsConfig()
	cfg.StaleAfter = 90 * 24 * time.Hour
	cfg.BatchSize = 2
	job := jobs.NewExpireEnrollmentsJob(repo, publisher, nil, cfg)

	require.NoError(t, job.Run(context.Background()))

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Expired, "one enrollment is left for the next sweep")
}

func TestRefreshUsageJob_WarmsCache(t *testing.T) {
	enrollments := memory.NewEnrollmentRepository()
	certificates := memory.NewCertificateRepository()
	store := newFakeUsageStore()

	mustEnroll(t, enrollments, "user-1", "go-101", time.Now())
	mustEnroll(t, enrollments, "user-1", "sql-201", time.Now())
	mustEnroll(t, enrollments, "user-2", "go-101", time.Now())

	usageQuery := query.NewGetUsageSummaryHandler(
		enrollments, certificates, store, query.DefaultGetUsageSummaryHandlerConfig())

	job := jobs.NewRefreshUsageJob(enrollments, usageQuery, store, nil, jobs.DefaultRefreshUsageConfig())
	require.NoError(t, job.Run(context.Background()))

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.UsersFound)
	assert.Equal(t, 2, stats.Refreshed)
	assert.Empty(t, stats.Errors)

	uid, err := shared.NewUserID("user-1")
	require.NoError(t, err)
	summary, err := store.GetUsageSummary(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ActiveCourses)
}
