package enrollment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

func testKey() shared.EnrollmentKey {
	return shared.EnrollmentKey{UserID: "user-1", CourseID: "course-go"}
}

func TestNewEnrollment(t *testing.T) {
	now := time.Now().UTC()

	e, err := New(testKey(), now)
	require.NoError(t, err)

	assert.Equal(t, StatusActive, e.Status)
	assert.Equal(t, shared.Percent(0), e.Progress)
	assert.Equal(t, now, e.EnrolledAt)
	assert.Nil(t, e.CompletedAt)
	assert.NoError(t, e.Validate())
}

func TestNewEnrollment_InvalidKey(t *testing.T) {
	_, err := New(shared.EnrollmentKey{}, time.Now())
	assert.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestDropAndReactivate(t *testing.T) {
	now := time.Now().UTC()
	e, err := New(testKey(), now)
	require.NoError(t, err)

	require.NoError(t, e.Drop(now))
	assert.Equal(t, StatusDropped, e.Status)
	assert.False(t, e.BlocksReenrollment())

	later := now.Add(time.Hour)
	require.NoError(t, e.Reactivate(later))
	assert.Equal(t, StatusActive, e.Status)
	assert.Equal(t, later, e.EnrolledAt, "reactivation resets enrolledAt")
	assert.Nil(t, e.CompletedAt)
}

func TestComplete_Terminal(t *testing.T) {
	now := time.Now().UTC()
	e, err := New(testKey(), now)
	require.NoError(t, err)

	require.NoError(t, e.Complete(now))
	assert.Equal(t, StatusCompleted, e.Status)
	require.NotNil(t, e.CompletedAt)
	assert.Equal(t, shared.MaxPercent, e.Progress)
	assert.NoError(t, e.Validate())

	// Completed is terminal: no second completion, no drop, no reactivate.
	assert.ErrorIs(t, e.Complete(now), ErrAlreadyCompleted)
	assert.ErrorIs(t, e.Drop(now), ErrInvalidTransition)
	assert.ErrorIs(t, e.Reactivate(now), ErrInvalidTransition)
}

func TestExpire(t *testing.T) {
	now := time.Now().UTC()
	e, err := New(testKey(), now)
	require.NoError(t, err)

	require.NoError(t, e.Expire(now))
	assert.Equal(t, StatusExpired, e.Status)
	assert.True(t, e.Status.IsTerminal())
	assert.True(t, e.BlocksReenrollment())

	assert.ErrorIs(t, e.Reactivate(now), ErrInvalidTransition)
	assert.ErrorIs(t, e.Complete(now), ErrInvalidTransition)
}

func TestDrop_OnlyFromActive(t *testing.T) {
	now := time.Now().UTC()
	e, err := New(testKey(), now)
	require.NoError(t, err)

	require.NoError(t, e.Drop(now))
	assert.ErrorIs(t, e.Drop(now), ErrInvalidTransition)
}

func TestValidate_CompletedAtInvariant(t *testing.T) {
	now := time.Now().UTC()
	e, err := New(testKey(), now)
	require.NoError(t, err)

	// completedAt without completed status violates the invariant.
	e.CompletedAt = &now
	assert.Error(t, e.Validate())

	// completed status without completedAt violates it too.
	e.CompletedAt = nil
	e.Status = StatusCompleted
	assert.Error(t, e.Validate())
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, Status("active").IsValid())
	assert.True(t, Status("expired").IsValid())
	assert.False(t, Status("paused").IsValid())

	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
	assert.False(t, StatusDropped.IsTerminal())
}
