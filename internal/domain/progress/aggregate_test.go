package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

func mustRecord(t *testing.T, contentID string, progress int) *Record {
	t.Helper()
	r, err := NewRecord(testRecordKey(contentID), shared.Percent(progress), 0, time.Now().UTC())
	require.NoError(t, err)
	return r
}

func TestOverall_Empty(t *testing.T) {
	assert.Equal(t, 0, Overall(nil).Int())
	assert.Equal(t, 0, Overall([]*Record{}).Int())
}

func TestOverall_Mean(t *testing.T) {
	records := []*Record{
		mustRecord(t, "c1", 100),
		mustRecord(t, "c2", 50),
	}
	assert.Equal(t, 75, Overall(records).Int())
}

func TestOverall_OnlyHundredWhenAllComplete(t *testing.T) {
	// Truncation keeps the overall below 100 until every item is done.
	records := []*Record{
		mustRecord(t, "c1", 100),
		mustRecord(t, "c2", 100),
		mustRecord(t, "c3", 99),
	}
	assert.Equal(t, 99, Overall(records).Int())
	assert.False(t, AllCompleted(records))

	require.NoError(t, records[2].Apply(100, 0, time.Now().UTC()))
	assert.Equal(t, 100, Overall(records).Int())
	assert.True(t, AllCompleted(records))
}

func TestAllCompleted_EmptyIsFalse(t *testing.T) {
	assert.False(t, AllCompleted(nil))
}

func TestCountCompletedAndTotalTime(t *testing.T) {
	now := time.Now().UTC()
	a, err := NewRecord(testRecordKey("c1"), 100, 120, now)
	require.NoError(t, err)
	b, err := NewRecord(testRecordKey("c2"), 40, 60, now)
	require.NoError(t, err)

	records := []*Record{a, b}
	assert.Equal(t, 1, CountCompleted(records))
	assert.Equal(t, int64(180), TotalTimeSpentSeconds(records))
}
