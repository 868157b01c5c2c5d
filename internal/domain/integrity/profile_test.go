package integrity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

func testProfile() *Profile {
	key := shared.EnrollmentKey{UserID: "user-1", CourseID: "course-go"}
	return NewProfile(key, time.Now().UTC())
}

func TestNewProfile_StartsNormal(t *testing.T) {
	p := testProfile()

	assert.Equal(t, PatternNormal, p.Pattern)
	assert.Empty(t, p.Flags)
}

func TestRecordContentEvent_Counters(t *testing.T) {
	p := testProfile()
	now := time.Now().UTC()

	require.NoError(t, p.RecordContentEvent(ActionComplete, 600, now))
	require.NoError(t, p.RecordContentEvent(ActionComplete, 300, now))
	require.NoError(t, p.RecordContentEvent(ActionFastForward, 0, now))
	require.NoError(t, p.RecordContentEvent(ActionSkip, 0, now))

	assert.Equal(t, 2, p.ChaptersCompleted)
	assert.Equal(t, 1, p.FastForwardCount)
	assert.Equal(t, 1, p.SkipCount)
	assert.Equal(t, int64(900), p.TotalTimeSpentSeconds)
	assert.Equal(t, 450.0, p.AverageTimePerChapterSeconds)
}

func TestRecordContentEvent_UnknownAction(t *testing.T) {
	p := testProfile()

	err := p.RecordContentEvent(Action("rewind"), 10, time.Now().UTC())
	assert.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestEvaluate_ExcessiveFastForward(t *testing.T) {
	p := testProfile()
	now := time.Now().UTC()

	// 10 completed chapters at a normal pace, 6 fast-forwards: 6 > 0.5*10.
	for i := 0; i < 10; i++ {
		require.NoError(t, p.RecordContentEvent(ActionComplete, 600, now))
	}
	for i := 0; i < 6; i++ {
		require.NoError(t, p.RecordContentEvent(ActionFastForward, 0, now))
	}

	assert.Contains(t, p.Flags, FlagExcessiveFastForward)
	assert.NotEqual(t, PatternNormal, p.Pattern, "must classify as at least suspicious")
}

func TestEvaluate_ExcessiveSkipping(t *testing.T) {
	p := testProfile()
	now := time.Now().UTC()

	for i := 0; i < 10; i++ {
		require.NoError(t, p.RecordContentEvent(ActionComplete, 600, now))
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, p.RecordContentEvent(ActionSkip, 0, now))
	}

	// 4 > 0.3 * 10
	assert.Contains(t, p.Flags, FlagExcessiveSkipping)
	assert.Equal(t, PatternSuspicious, p.Pattern)
}

func TestEvaluate_UnusuallyFastCompletion(t *testing.T) {
	p := testProfile()
	now := time.Now().UTC()

	// 5 chapters in 60 seconds each: average 60s < 120s threshold.
	for i := 0; i < 5; i++ {
		require.NoError(t, p.RecordContentEvent(ActionComplete, 60, now))
	}

	assert.Contains(t, p.Flags, FlagUnusuallyFastCompletion)
}

func TestEvaluate_EmptyProfileNotFlaggedAsFast(t *testing.T) {
	p := testProfile()
	now := time.Now().UTC()

	// A start event with no completions must not trip the fast-completion
	// heuristic on a zero average.
	require.NoError(t, p.RecordContentEvent(ActionStart, 0, now))

	assert.NotContains(t, p.Flags, FlagUnusuallyFastCompletion)
}

func TestEvaluate_SuspiciousAssessmentPerformance(t *testing.T) {
	p := testProfile()
	now := time.Now().UTC()

	// Three perfect scores, each under a minute.
	for i := 0; i < 3; i++ {
		p.RecordAssessmentEvent(ScoreSample{
			AssessmentID:          "quiz-1",
			Score:                 98,
			MaxScore:              100,
			CompletionTimeSeconds: 55,
			Attempts:              1,
			RecordedAt:            now,
		}, now)
	}

	assert.Contains(t, p.Flags, FlagSuspiciousAssessmentPerf)
	assert.Equal(t, PatternSuspicious, p.Pattern)
}

func TestEvaluate_HighScoreSlowTimeIsNormal(t *testing.T) {
	p := testProfile()
	now := time.Now().UTC()

	// High scores alone are fine when the learner takes real time.
	for i := 0; i < 3; i++ {
		p.RecordAssessmentEvent(ScoreSample{
			Score:                 100,
			MaxScore:              100,
			CompletionTimeSeconds: 1800,
			Attempts:              1,
			RecordedAt:            now,
		}, now)
	}

	assert.NotContains(t, p.Flags, FlagSuspiciousAssessmentPerf)
	assert.Equal(t, PatternNormal, p.Pattern)
}

func TestEvaluate_MultipleAttempts(t *testing.T) {
	p := testProfile()
	now := time.Now().UTC()

	p.RecordAssessmentEvent(ScoreSample{
		Score:                 60,
		MaxScore:              100,
		CompletionTimeSeconds: 900,
		Attempts:              7,
		RecordedAt:            now,
	}, now)

	assert.Contains(t, p.Flags, FlagMultipleAssessmentAttempts)
}

func TestEvaluate_WindowIsLastThree(t *testing.T) {
	p := testProfile()
	now := time.Now().UTC()

	// An old high-attempt sample ages out of the 3-sample window.
	p.RecordAssessmentEvent(ScoreSample{Score: 60, MaxScore: 100, CompletionTimeSeconds: 900, Attempts: 9, RecordedAt: now}, now)
	for i := 0; i < 3; i++ {
		p.RecordAssessmentEvent(ScoreSample{Score: 70, MaxScore: 100, CompletionTimeSeconds: 900, Attempts: 1, RecordedAt: now}, now)
	}

	assert.NotContains(t, p.Flags, FlagMultipleAssessmentAttempts)
	assert.Len(t, p.AssessmentScores, 4, "history stays append-only")
}

func TestEvaluate_CheatingAtThreeFlags(t *testing.T) {
	p := testProfile()
	now := time.Now().UTC()

	// One rushed completion plus heavy fast-forwarding and skipping.
	require.NoError(t, p.RecordContentEvent(ActionComplete, 30, now))
	for i := 0; i < 3; i++ {
		require.NoError(t, p.RecordContentEvent(ActionFastForward, 0, now))
		require.NoError(t, p.RecordContentEvent(ActionSkip, 0, now))
	}

	assert.Contains(t, p.Flags, FlagExcessiveFastForward)
	assert.Contains(t, p.Flags, FlagExcessiveSkipping)
	assert.Contains(t, p.Flags, FlagUnusuallyFastCompletion)
	assert.Equal(t, PatternCheating, p.Pattern)
}

func TestEvaluate_RecoversToNormal(t *testing.T) {
	p := testProfile()
	now := time.Now().UTC()

	require.NoError(t, p.RecordContentEvent(ActionComplete, 30, now))
	assert.Equal(t, PatternSuspicious, p.Pattern)

	// Enough honest completions dilute the average back over the threshold.
	for i := 0; i < 5; i++ {
		require.NoError(t, p.RecordContentEvent(ActionComplete, 600, now))
	}

	assert.Equal(t, PatternNormal, p.Pattern)
	assert.Empty(t, p.Flags)
}

func TestScoreSample_Percent(t *testing.T) {
	assert.Equal(t, 75.0, ScoreSample{Score: 75, MaxScore: 100}.Percent())
	assert.Equal(t, 50.0, ScoreSample{Score: 40, MaxScore: 80}.Percent())
	assert.Equal(t, 75.0, ScoreSample{Score: 75}.Percent(), "missing max treated as percentage")
}
