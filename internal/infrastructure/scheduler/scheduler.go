// Package scheduler runs the hub's background sweeps, such as enrollment
// expiry and usage summary refreshes, on interval or cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOBS AND SCHEDULES
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of background work. Run must honor context cancellation;
// the scheduler cancels the context on shutdown.
type Job interface {
	Name() string
	Run(ctx context.Context) error
	Description() string
}

// Schedule decides when a job is due.
type Schedule interface {
	// Next returns the first due time strictly after t.
	Next(t time.Time) time.Time

	String() string
}

// JobResult records one finished execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
}

var (
	// ErrNilJob is returned when Register is given a nil job.
	ErrNilJob = errors.New("job cannot be nil")

	// ErrNilSchedule is returned when Register is given a nil schedule.
	ErrNilSchedule = errors.New("schedule cannot be nil")

	// ErrJobAlreadyExists is returned when a job name is registered twice.
	ErrJobAlreadyExists = errors.New("job already exists")

	// ErrJobNotFound is returned when no job has the given name.
	ErrJobNotFound = errors.New("job not found")

	// ErrSchedulerAlreadyRunning is returned by Start on a running scheduler.
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")

	// ErrSchedulerNotRunning is returned by Stop on a stopped scheduler.
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler owns a set of named jobs and fires each one when its schedule
// says it is due. Executions run concurrently; Stop waits for in-flight
// runs to drain.
type Scheduler struct {
	mu sync.RWMutex

	logger     *slog.Logger
	timezone   *time.Location
	maxHistory int

	entries   map[string]*jobEntry
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time

	history []JobResult
}

// jobEntry is the scheduler's bookkeeping for one registered job.
type jobEntry struct {
	job       Job
	schedule  Schedule
	enabled   bool
	lastRun   time.Time
	nextRun   time.Time
	runCount  int64
	failCount int64
	lastRes   *JobResult
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// Timezone used when evaluating schedules (default UTC).
	Timezone *time.Location

	// MaxHistorySize bounds the retained execution history.
	MaxHistorySize int
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Logger:         slog.Default(),
		Timezone:       time.UTC,
		MaxHistorySize: 1000,
	}
}

// NewScheduler creates a Scheduler. Zero-value config fields fall back to
// the defaults.
func NewScheduler(config SchedulerConfig) *Scheduler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}
	if config.MaxHistorySize <= 0 {
		config.MaxHistorySize = 1000
	}

	return &Scheduler{
		logger:     config.Logger,
		timezone:   config.Timezone,
		maxHistory: config.MaxHistorySize,
		entries:    make(map[string]*jobEntry),
	}
}

// Register adds a job under its name. Names are unique; registering twice
// is an error. The job starts enabled with its first due time computed
// from now.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	entry := &jobEntry{
		job:      job,
		schedule: schedule,
		enabled:  true,
		nextRun:  schedule.Next(time.Now().In(s.timezone)),
	}
	s.entries[name] = entry

	s.logger.Info("job registered",
		"job", name,
		"description", job.Description(),
		"next_run", entry.nextRun.Format(time.RFC3339),
	)
	return nil
}

// EnableJob re-enables a disabled job and recomputes its next due time, so
// a long-disabled sweep does not fire immediately on a stale deadline.
func (s *Scheduler) EnableJob(jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[jobName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	entry.enabled = true
	entry.nextRun = entry.schedule.Next(time.Now().In(s.timezone))
	s.logger.Info("job enabled", "job", jobName, "next_run", entry.nextRun)
	return nil
}

// DisableJob keeps a job registered but stops scheduling it.
func (s *Scheduler) DisableJob(jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[jobName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	entry.enabled = false
	s.logger.Info("job disabled", "job", jobName)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start launches the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.startedAt = time.Now()
	jobCount := len(s.entries)
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs_count", jobCount)

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop cancels the loop and blocks until every in-flight job returns.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.logger.Info("scheduler stopped", "uptime", time.Since(s.startedAt).String())
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	// One-second resolution is plenty: the shortest real schedule in the
	// hub is measured in minutes.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatchDue(time.Now().In(s.timezone))
		}
	}
}

// dispatchDue fires every enabled job whose deadline has passed. The next
// due time is advanced before the job runs, so a slow run never stacks a
// second execution of the same job.
func (s *Scheduler) dispatchDue(now time.Time) {
	s.mu.Lock()
	var due []*jobEntry
	for _, entry := range s.entries {
		if entry.enabled && !entry.nextRun.IsZero() && now.After(entry.nextRun) {
			entry.lastRun = now
			entry.nextRun = entry.schedule.Next(now)
			entry.runCount++
			due = append(due, entry)
		}
	}
	s.mu.Unlock()

	for _, entry := range due {
		s.wg.Add(1)
		go func(entry *jobEntry) {
			defer s.wg.Done()
			s.execute(s.ctx, entry)
		}(entry)
	}
}

// execute runs one job and records the outcome.
func (s *Scheduler) execute(ctx context.Context, entry *jobEntry) JobResult {
	name := entry.job.Name()
	startedAt := time.Now()
	s.logger.Info("job started", "job", name)

	err := entry.job.Run(ctx)
	completedAt := time.Now()

	result := JobResult{
		JobName:     name,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
		Success:     err == nil,
		Error:       err,
	}

	s.mu.Lock()
	if err != nil {
		entry.failCount++
	}
	entry.lastRes = &result
	s.history = append(s.history, result)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed",
			"job", name,
			"duration", result.Duration.String(),
			"error", err,
		)
	} else {
		s.logger.Info("job completed",
			"job", name,
			"duration", result.Duration.String(),
		)
	}
	return result
}

// ══════════════════════════════════════════════════════════════════════════════
// MANUAL EXECUTION AND INTROSPECTION
// ══════════════════════════════════════════════════════════════════════════════

// RunNow executes a job immediately, outside its schedule. The run is
// recorded in history like a scheduled one, and the job's error, if any,
// is returned alongside the result.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (*JobResult, error) {
	s.mu.Lock()
	entry, ok := s.entries[jobName]
	if ok {
		entry.runCount++
	}
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	s.logger.Info("manual job execution", "job", jobName)
	result := s.execute(ctx, entry)
	return &result, result.Error
}

// JobInfo is a snapshot of one registered job.
type JobInfo struct {
	Name        string
	Description string
	Enabled     bool
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
	RunCount    int64
	FailCount   int64
	LastResult  *JobResult
}

// ListJobs snapshots every registered job.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.entries))
	for name, entry := range s.entries {
		infos = append(infos, JobInfo{
			Name:        name,
			Description: entry.job.Description(),
			Enabled:     entry.enabled,
			Schedule:    entry.schedule.String(),
			LastRun:     entry.lastRun,
			NextRun:     entry.nextRun,
			RunCount:    entry.runCount,
			FailCount:   entry.failCount,
			LastResult:  entry.lastRes,
		})
	}
	return infos
}

// GetHistory returns up to limit of the most recent execution results,
// oldest first. A non-positive limit returns everything retained.
func (s *Scheduler) GetHistory(limit int) []JobResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]JobResult, limit)
	copy(out, s.history[len(s.history)-limit:])
	return out
}
