// Package projections implements read models for CQRS pattern.
// Projections are denormalized views optimized for fast reads.
// They are updated asynchronously when domain events occur.
package projections

import (
	"sort"
	"sync"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE DASHBOARD VIEW - Denormalized Read Model
// ══════════════════════════════════════════════════════════════════════════════

// CourseDashboardView is the denormalized per-course dashboard for
// instructors. It folds enrollment lifecycle, completion, certificate,
// and integrity events into counters without touching the repositories.
//
// The view is eventually consistent: it rebuilds from the event stream
// and an empty view after a restart simply warms up again. Commands
// never read it.
type CourseDashboardView struct {
	mu sync.RWMutex

	// courses holds dashboards indexed by course ID.
	courses map[string]*CourseDashboard

	// lastUpdated is the timestamp of the last applied event.
	lastUpdated time.Time

	// version is incremented on each update for cache invalidation.
	version int64
}

// CourseDashboard aggregates one course's activity.
type CourseDashboard struct {
	CourseID string `json:"course_id"`

	// Lifecycle counters
	ActiveEnrollments int `json:"active_enrollments"`
	Completions       int `json:"completions"`
	Drops             int `json:"drops"`
	Expirations       int `json:"expirations"`
	Reactivations     int `json:"reactivations"`

	// Activity counters
	ProgressEvents        int `json:"progress_events"`
	AssessmentSubmissions int `json:"assessment_submissions"`
	AssessmentPasses      int `json:"assessment_passes"`
	CertificatesIssued    int `json:"certificates_issued"`

	// FlaggedLearners holds the current non-normal classifications,
	// keyed by user ID. A learner returning to normal is removed.
	FlaggedLearners map[string]FlaggedLearner `json:"flagged_learners"`

	LastActivityAt time.Time `json:"last_activity_at"`
}

// FlaggedLearner is a learner whose published pattern is not normal.
type FlaggedLearner struct {
	UserID    string    `json:"user_id"`
	Pattern   string    `json:"pattern"`
	Flags     []string  `json:"flags"`
	FlaggedAt time.Time `json:"flagged_at"`
}

// NewCourseDashboardView creates an empty view.
func NewCourseDashboardView() *CourseDashboardView {
	return &CourseDashboardView{
		courses: make(map[string]*CourseDashboard),
	}
}

// Name implements shared.EventHandler.
func (v *CourseDashboardView) Name() string {
	return "course_dashboard_view"
}

// Handle implements shared.EventHandler. The view subscribes to all
// events and folds in the ones it understands. Unknown events are not
// an error; the stream will grow before this view does.
func (v *CourseDashboardView) Handle(event shared.Event) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch e := event.(type) {
	case shared.EnrollmentCreatedEvent:
		d := v.dashboard(e.CourseID)
		d.ActiveEnrollments++
		if e.Reactivated {
			d.Reactivations++
		}
		v.touch(d, e.OccurredAt())

	case shared.EnrollmentDroppedEvent:
		d := v.dashboard(e.CourseID)
		d.ActiveEnrollments--
		d.Drops++
		v.touch(d, e.OccurredAt())

	case shared.EnrollmentExpiredEvent:
		d := v.dashboard(e.CourseID)
		d.ActiveEnrollments--
		d.Expirations++
		v.touch(d, e.OccurredAt())

	case shared.CourseCompletedEvent:
		d := v.dashboard(e.CourseID)
		d.ActiveEnrollments--
		d.Completions++
		v.touch(d, e.OccurredAt())

	case shared.ContentProgressRecordedEvent:
		d := v.dashboard(e.CourseID)
		d.ProgressEvents++
		v.touch(d, e.OccurredAt())

	case shared.AssessmentSubmittedEvent:
		d := v.dashboard(e.CourseID)
		d.AssessmentSubmissions++
		if e.Passed {
			d.AssessmentPasses++
		}
		v.touch(d, e.OccurredAt())

	case shared.CertificateIssuedEvent:
		d := v.dashboard(e.CourseID)
		d.CertificatesIssued++
		v.touch(d, e.OccurredAt())

	case shared.LearningPatternChangedEvent:
		d := v.dashboard(e.CourseID)
		if e.Pattern == "normal" {
			delete(d.FlaggedLearners, e.UserID)
		} else {
			d.FlaggedLearners[e.UserID] = FlaggedLearner{
				UserID:    e.UserID,
				Pattern:   e.Pattern,
				Flags:     append([]string(nil), e.Flags...),
				FlaggedAt: e.OccurredAt(),
			}
		}
		v.touch(d, e.OccurredAt())
	}

	return nil
}

// dashboard returns the dashboard for a course, creating it if needed.
// Caller must hold the lock.
func (v *CourseDashboardView) dashboard(courseID string) *CourseDashboard {
	d, ok := v.courses[courseID]
	if !ok {
		d = &CourseDashboard{
			CourseID:        courseID,
			FlaggedLearners: make(map[string]FlaggedLearner),
		}
		v.courses[courseID] = d
	}
	return d
}

// touch records activity. Caller must hold the lock.
func (v *CourseDashboardView) touch(d *CourseDashboard, at time.Time) {
	if at.After(d.LastActivityAt) {
		d.LastActivityAt = at
	}
	v.lastUpdated = time.Now().UTC()
	v.version++
}

// ══════════════════════════════════════════════════════════════════════════════
// READ SIDE
// ══════════════════════════════════════════════════════════════════════════════

// GetCourse returns a copy of the dashboard for a course.
func (v *CourseDashboardView) GetCourse(courseID string) (CourseDashboard, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	d, ok := v.courses[courseID]
	if !ok {
		return CourseDashboard{}, false
	}
	return cloneDashboard(d), true
}

// ListCourses returns copies of all dashboards sorted by course ID.
func (v *CourseDashboardView) ListCourses() []CourseDashboard {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]CourseDashboard, 0, len(v.courses))
	for _, d := range v.courses {
		out = append(out, cloneDashboard(d))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CourseID < out[j].CourseID
	})
	return out
}

// Version returns the current view version.
func (v *CourseDashboardView) Version() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// LastUpdated returns when the view last applied an event.
func (v *CourseDashboardView) LastUpdated() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastUpdated
}

func cloneDashboard(d *CourseDashboard) CourseDashboard {
	out := *d
	out.FlaggedLearners = make(map[string]FlaggedLearner, len(d.FlaggedLearners))
	for k, f := range d.FlaggedLearners {
		f.Flags = append([]string(nil), f.Flags...)
		out.FlaggedLearners[k] = f
	}
	return out
}
