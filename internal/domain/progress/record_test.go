package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

func testRecordKey(contentID string) Key {
	return Key{
		UserID:    "user-1",
		CourseID:  "course-go",
		ModuleID:  "module-1",
		ContentID: shared.ContentID(contentID),
	}
}

func TestNewRecord(t *testing.T) {
	now := time.Now().UTC()

	r, err := NewRecord(testRecordKey("content-1"), 40, 90, now)
	require.NoError(t, err)

	assert.Equal(t, StatusInProgress, r.Status)
	assert.Equal(t, shared.Percent(40), r.Progress)
	assert.Equal(t, int64(90), r.TimeSpentSeconds)
	assert.Nil(t, r.CompletedAt)
}

func TestNewRecord_RejectsZeroAndOutOfRange(t *testing.T) {
	now := time.Now().UTC()

	_, err := NewRecord(testRecordKey("c"), 0, 0, now)
	assert.ErrorIs(t, err, ErrInvalidProgressValue)

	_, err = NewRecord(testRecordKey("c"), 101, 0, now)
	assert.ErrorIs(t, err, ErrInvalidProgressValue)

	_, err = NewRecord(testRecordKey("c"), -5, 0, now)
	assert.ErrorIs(t, err, ErrInvalidProgressValue)
}

func TestNewRecord_CompletedStampsCompletedAt(t *testing.T) {
	now := time.Now().UTC()

	r, err := NewRecord(testRecordKey("c"), 100, 30, now)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, r.Status)
	require.NotNil(t, r.CompletedAt)
	assert.Equal(t, now, *r.CompletedAt)
}

func TestApply_AccumulatesTimeSpent(t *testing.T) {
	now := time.Now().UTC()
	r, err := NewRecord(testRecordKey("c"), 20, 60, now)
	require.NoError(t, err)

	require.NoError(t, r.Apply(55, 120, now.Add(time.Minute)))
	assert.Equal(t, shared.Percent(55), r.Progress)
	assert.Equal(t, StatusInProgress, r.Status)
	assert.Equal(t, int64(180), r.TimeSpentSeconds)
}

func TestApply_CompletionIsSticky(t *testing.T) {
	now := time.Now().UTC()
	r, err := NewRecord(testRecordKey("c"), 100, 60, now)
	require.NoError(t, err)
	completedAt := *r.CompletedAt

	// A later, lower progress report keeps the record completed.
	require.NoError(t, r.Apply(30, 45, now.Add(time.Hour)))
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, shared.Percent(100), r.Progress)
	assert.Equal(t, completedAt, *r.CompletedAt)
	assert.Equal(t, int64(105), r.TimeSpentSeconds, "time still accumulates")
}

func TestStatusForProgress(t *testing.T) {
	assert.Equal(t, StatusNotStarted, StatusForProgress(0))
	assert.Equal(t, StatusInProgress, StatusForProgress(1))
	assert.Equal(t, StatusInProgress, StatusForProgress(99))
	assert.Equal(t, StatusCompleted, StatusForProgress(100))
}
