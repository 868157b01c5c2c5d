// Package integrity contains the learning integrity profile: a parallel,
// purely observational behavioral record per (user, course) used to flag
// anomalous learning patterns. It never blocks, rejects, or alters
// enrollment, progress, or certificate outcomes.
package integrity

import (
	"math"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIONS
// ══════════════════════════════════════════════════════════════════════════════

// Action is the kind of content interaction fed into the tracker.
type Action string

const (
	// ActionStart - the learner opened a chapter.
	ActionStart Action = "start"

	// ActionComplete - the learner finished a chapter.
	ActionComplete Action = "complete"

	// ActionFastForward - the learner fast-forwarded through content.
	ActionFastForward Action = "fastforward"

	// ActionSkip - the learner skipped content outright.
	ActionSkip Action = "skip"
)

// IsValid checks if the action is known.
func (a Action) IsValid() bool {
	switch a {
	case ActionStart, ActionComplete, ActionFastForward, ActionSkip:
		return true
	}
	return false
}

// String returns the string representation.
func (a Action) String() string {
	return string(a)
}

// ══════════════════════════════════════════════════════════════════════════════
// FLAGS AND PATTERNS
// ══════════════════════════════════════════════════════════════════════════════

// Flag names an anomaly detected in the profile.
type Flag string

const (
	FlagExcessiveFastForward       Flag = "excessive_fastforward"
	FlagExcessiveSkipping          Flag = "excessive_skipping"
	FlagUnusuallyFastCompletion    Flag = "unusually_fast_completion"
	FlagSuspiciousAssessmentPerf   Flag = "suspicious_assessment_performance"
	FlagMultipleAssessmentAttempts Flag = "multiple_assessment_attempts"
)

// Pattern is the derived classification of a learning session.
type Pattern string

const (
	// PatternNormal - no anomaly flags.
	PatternNormal Pattern = "normal"

	// PatternSuspicious - at least one anomaly flag.
	PatternSuspicious Pattern = "suspicious"

	// PatternCheating - three or more anomaly flags.
	PatternCheating Pattern = "cheating"
)

// String returns the string representation.
func (p Pattern) String() string {
	return string(p)
}

// Anomaly thresholds. Recomputed in full on every event - never turned into
// incremental flag accumulation, so the flags cannot drift from the counters.
const (
	// fastForwardRatio: excessive_fastforward when
	// fastForwardCount > fastForwardRatio * chaptersCompleted.
	fastForwardRatio = 0.5

	// skipRatio: excessive_skipping when
	// skipCount > skipRatio * chaptersCompleted.
	skipRatio = 0.3

	// fastChapterSeconds: unusually_fast_completion when the average time
	// per completed chapter falls below this (2 minutes).
	fastChapterSeconds = 120

	// recentScoreWindow: how many of the latest assessment scores feed the
	// assessment heuristics.
	recentScoreWindow = 3

	// suspiciousScoreAvg: suspicious_assessment_performance requires the
	// recent average score above this percentage...
	suspiciousScoreAvg = 95.0

	// suspiciousTimeSeconds: ...and the recent average completion time
	// below this (5 minutes).
	suspiciousTimeSeconds = 300.0

	// attemptsThreshold: multiple_assessment_attempts when any recent
	// attempt count exceeds this.
	attemptsThreshold = 5

	// cheatingFlagCount: flag count at which the pattern escalates from
	// suspicious to cheating.
	cheatingFlagCount = 3
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE SAMPLES
// ══════════════════════════════════════════════════════════════════════════════

// ScoreSample is one assessment outcome as seen by the tracker.
type ScoreSample struct {
	AssessmentID          shared.AssessmentID `json:"assessment_id"`
	Score                 int                 `json:"score"`
	MaxScore              int                 `json:"max_score"`
	CompletionTimeSeconds int64               `json:"completion_time_seconds"`
	Attempts              int                 `json:"attempts"`
	RecordedAt            time.Time           `json:"recorded_at"`
}

// Percent normalizes the sample to an integer percentage. Samples recorded
// with MaxScore 100 (or unset) pass through unchanged.
func (s ScoreSample) Percent() float64 {
	if s.MaxScore <= 0 {
		return float64(s.Score)
	}
	return 100 * float64(s.Score) / float64(s.MaxScore)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// Profile accumulates behavioral counters for one (user, course) pair and
// derives the published classification. Only the tracker writes it; other
// components may read nothing but Pattern.
type Profile struct {
	UserID   shared.UserID
	CourseID shared.CourseID

	TotalTimeSpentSeconds int64
	ChaptersCompleted     int
	TotalChapters         int
	FastForwardCount      int
	SkipCount             int

	// AssessmentScores is the full append-only sample history.
	AssessmentScores []ScoreSample

	// Derived on every event.
	AverageTimePerChapterSeconds float64
	Flags                        []Flag
	Pattern                      Pattern

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfile creates an empty profile classified as normal.
func NewProfile(key shared.EnrollmentKey, now time.Time) *Profile {
	return &Profile{
		UserID:    key.UserID,
		CourseID:  key.CourseID,
		Pattern:   PatternNormal,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Key returns the (user, course) aggregate key.
func (p *Profile) Key() shared.EnrollmentKey {
	return shared.EnrollmentKey{UserID: p.UserID, CourseID: p.CourseID}
}

// RecordContentEvent folds one content interaction into the counters and
// re-evaluates the classification.
func (p *Profile) RecordContentEvent(action Action, timeSpentSeconds int64, now time.Time) error {
	if !action.IsValid() {
		return shared.NewDomainError("integrity", "RecordContentEvent", shared.ErrInvalidInput, "unknown content action")
	}

	if timeSpentSeconds > 0 {
		p.TotalTimeSpentSeconds += timeSpentSeconds
	}

	switch action {
	case ActionComplete:
		p.ChaptersCompleted++
	case ActionFastForward:
		p.FastForwardCount++
	case ActionSkip:
		p.SkipCount++
	}

	p.UpdatedAt = now
	p.Evaluate()
	return nil
}

// RecordAssessmentEvent appends a score sample and re-evaluates.
func (p *Profile) RecordAssessmentEvent(sample ScoreSample, now time.Time) {
	p.AssessmentScores = append(p.AssessmentScores, sample)
	p.UpdatedAt = now
	p.Evaluate()
}

// SetTotalChapters records the catalog's chapter count for reporting.
// It does not participate in any threshold.
func (p *Profile) SetTotalChapters(n int) {
	if n > p.TotalChapters {
		p.TotalChapters = n
	}
}

// Evaluate recomputes the derived average, all anomaly flags, and the
// classification from the raw counters. Full recomputation on every call
// keeps the flags consistent with the counters by construction.
func (p *Profile) Evaluate() {
	p.AverageTimePerChapterSeconds =
		float64(p.TotalTimeSpentSeconds) / math.Max(float64(p.ChaptersCompleted), 1)

	flags := make([]Flag, 0, 5)

	if float64(p.FastForwardCount) > fastForwardRatio*float64(p.ChaptersCompleted) {
		flags = append(flags, FlagExcessiveFastForward)
	}

	if float64(p.SkipCount) > skipRatio*float64(p.ChaptersCompleted) {
		flags = append(flags, FlagExcessiveSkipping)
	}

	// Only meaningful once something was completed; an empty profile must
	// not start out flagged.
	if p.ChaptersCompleted > 0 && p.AverageTimePerChapterSeconds < fastChapterSeconds {
		flags = append(flags, FlagUnusuallyFastCompletion)
	}

	recent := p.recentScores()
	if len(recent) > 0 {
		var scoreSum, timeSum float64
		maxAttempts := 0
		for _, s := range recent {
			scoreSum += s.Percent()
			timeSum += float64(s.CompletionTimeSeconds)
			if s.Attempts > maxAttempts {
				maxAttempts = s.Attempts
			}
		}
		avgScore := scoreSum / float64(len(recent))
		avgTime := timeSum / float64(len(recent))

		if avgScore > suspiciousScoreAvg && avgTime < suspiciousTimeSeconds {
			flags = append(flags, FlagSuspiciousAssessmentPerf)
		}
		if maxAttempts > attemptsThreshold {
			flags = append(flags, FlagMultipleAssessmentAttempts)
		}
	}

	p.Flags = flags

	switch {
	case len(flags) >= cheatingFlagCount:
		p.Pattern = PatternCheating
	case len(flags) >= 1:
		p.Pattern = PatternSuspicious
	default:
		p.Pattern = PatternNormal
	}
}

// recentScores returns up to the last recentScoreWindow samples.
func (p *Profile) recentScores() []ScoreSample {
	if len(p.AssessmentScores) <= recentScoreWindow {
		return p.AssessmentScores
	}
	return p.AssessmentScores[len(p.AssessmentScores)-recentScoreWindow:]
}

// FlagStrings returns the flags as plain strings for events and transport.
func (p *Profile) FlagStrings() []string {
	out := make([]string, len(p.Flags))
	for i, f := range p.Flags {
		out[i] = string(f)
	}
	return out
}
