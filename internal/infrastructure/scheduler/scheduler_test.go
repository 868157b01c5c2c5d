package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/infrastructure/scheduler"
)

// fakeJob counts executions and optionally fails.
type fakeJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *fakeJob) Name() string                  { return j.name }
func (j *fakeJob) Description() string           { return "test job" }
func (j *fakeJob) Run(ctx context.Context) error { j.runs.Add(1); return j.err }

func TestParseCronExpression(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"every minute", "* * * * *", false},
		{"every 5 minutes", "*/5 * * * *", false},
		{"nightly at 3", "0 3 * * *", false},
		{"sunday midnight", "0 0 * * 0", false},
		{"list", "0,15,30,45 * * * *", false},
		{"range", "0 9-17 * * *", false},
		{"range with step", "0 0-12/3 * * *", false},
		{"too few fields", "* * * *", true},
		{"too many fields", "* * * * * *", true},
		{"minute out of range", "60 * * * *", true},
		{"hour out of range", "0 24 * * *", true},
		{"garbage", "banana * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce, err := scheduler.ParseCronExpression(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expr, ce.String())
		})
	}
}

func TestCronExpression_Next(t *testing.T) {
	// Friday 2026-08-28 14:30:45 UTC
	base := time.Date(2026, 8, 28, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"* * * * *", time.Date(2026, 8, 28, 14, 31, 0, 0, time.UTC)},
		{"0 3 * * *", time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2026, 8, 28, 14, 45, 0, 0, time.UTC)},
		{"0 0 * * 0", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			ce := scheduler.MustParseCronExpression(tt.expr)
			assert.Equal(t, tt.want, ce.Next(base))
		})
	}
}

func TestCronSchedule_ImplementsSchedule(t *testing.T) {
	s, err := scheduler.NewCronSchedule("0 3 * * *")
	require.NoError(t, err)

	var _ scheduler.Schedule = s

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	next := s.Next(base)
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, "0 3 * * *", s.String())

	_, err = scheduler.NewCronSchedule("nope")
	assert.Error(t, err)
}

func TestIntervalSchedule(t *testing.T) {
	s := scheduler.NewIntervalSchedule(30 * time.Minute)

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(30*time.Minute), s.Next(base))
	assert.Equal(t, "@every 30m0s", s.String())
}

func TestScheduler_RegisterAndRunNow(t *testing.T) {
	s := scheduler.NewScheduler(scheduler.DefaultSchedulerConfig())
	job := &fakeJob{name: "sweep"}

	require.NoError(t, s.Register(job, scheduler.NewIntervalSchedule(time.Hour)))

	// Duplicate names are rejected.
	err := s.Register(&fakeJob{name: "sweep"}, scheduler.NewIntervalSchedule(time.Hour))
	assert.ErrorIs(t, err, scheduler.ErrJobAlreadyExists)

	result, err := s.RunNow(context.Background(), "sweep")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(1), job.runs.Load())

	_, err = s.RunNow(context.Background(), "unknown")
	assert.ErrorIs(t, err, scheduler.ErrJobNotFound)
}

func TestScheduler_RunNowRecordsFailure(t *testing.T) {
	s := scheduler.NewScheduler(scheduler.DefaultSchedulerConfig())
	job := &fakeJob{name: "broken", err: errors.New("boom")}

	require.NoError(t, s.Register(job, scheduler.NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, result.Success)

	history := s.GetHistory(10)
	require.Len(t, history, 1)
	assert.Equal(t, "broken", history[0].JobName)
	assert.False(t, history[0].Success)
}

func TestScheduler_StartStop(t *testing.T) {
	s := scheduler.NewScheduler(scheduler.DefaultSchedulerConfig())
	require.NoError(t, s.Register(&fakeJob{name: "noop"}, scheduler.NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), scheduler.ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), scheduler.ErrSchedulerNotRunning)
}

func TestScheduler_EnableDisable(t *testing.T) {
	s := scheduler.NewScheduler(scheduler.DefaultSchedulerConfig())
	require.NoError(t, s.Register(&fakeJob{name: "sweep"}, scheduler.NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.DisableJob("sweep"))
	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.False(t, jobs[0].Enabled)

	require.NoError(t, s.EnableJob("sweep"))
	jobs = s.ListJobs()
	assert.True(t, jobs[0].Enabled)

	assert.Error(t, s.EnableJob("unknown"))
}
