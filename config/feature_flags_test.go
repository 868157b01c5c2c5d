package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFlags_Defaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureEnrollmentReactivation, nil))
	assert.True(t, ff.IsEnabled(FeatureCertificateAutoIssue, nil))
	assert.True(t, ff.IsEnabled(FeatureIntegrityTracking, nil))

	// Experimental features ship dark.
	assert.False(t, ff.IsEnabled(FeatureExperimentalRedisEvents, nil))

	assert.False(t, ff.IsEnabled("no.such.feature", nil))
}

func TestFeatureFlags_EnvironmentOverride(t *testing.T) {
	t.Setenv("FEATURE_CERTIFICATE_AUTO_ISSUE", "false")
	t.Setenv("FEATURE_EXPERIMENTAL_REDIS_EVENTS", "true")

	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureCertificateAutoIssue, nil))
	assert.True(t, ff.IsEnabled(FeatureExperimentalRedisEvents, nil))
}

func TestFeatureFlags_RolloutBucketsAreSticky(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureIntegrityDashboards, 50))

	ctx := &FeatureContext{UserID: "user-1"}
	first := ff.IsEnabled(FeatureIntegrityDashboards, ctx)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureIntegrityDashboards, ctx))
	}

	// 0% and 100% are unconditional regardless of bucket.
	require.NoError(t, ff.SetRolloutPercent(FeatureIntegrityDashboards, 0))
	assert.False(t, ff.IsEnabled(FeatureIntegrityDashboards, ctx))
	require.NoError(t, ff.SetRolloutPercent(FeatureIntegrityDashboards, 100))
	assert.True(t, ff.IsEnabled(FeatureIntegrityDashboards, ctx))
}

func TestFeatureFlags_UserOverrideWins(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: "user-1"}

	ff.SetUserOverride("user-1", FeatureExperimentalRedisEvents, true)
	assert.True(t, ff.IsEnabled(FeatureExperimentalRedisEvents, ctx))
	assert.False(t, ff.IsEnabled(FeatureExperimentalRedisEvents, nil))

	ff.ClearUserOverrides("user-1")
	assert.False(t, ff.IsEnabled(FeatureExperimentalRedisEvents, ctx))
}

func TestFeatureFlags_AdminSeesEverything(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: "ops-1", IsAdmin: true}

	assert.True(t, ff.IsEnabled(FeatureExperimentalRedisEvents, ctx))
}
