package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"orderbackup/internal/models"
)

func TestFeatureSwitches(t *testing.T) {
	repo := newTestRepo(t)
	s := &SystemSettingsService{Repo: repo}
	ctx := context.Background()

	require.NoError(t, s.EnsureDefaultSwitches(ctx))
	listed, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultFeatureSwitches(), listed)

	item, err := repo.GetSystemSettingByKey(ctx, FeatureFailedRetry)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Contains(t, item.Description, "backoff")

	require.NoError(t, s.SetEnabled(ctx, FeatureMonitoring, false))
	assert.False(t, s.IsEnabled(ctx, FeatureMonitoring, true))

	// Operator values survive a restart.
	require.NoError(t, s.EnsureDefaultSwitches(ctx))
	assert.False(t, s.IsEnabled(ctx, FeatureMonitoring, true))

	assert.True(t, s.IsEnabled(ctx, "feature.unknown.enabled", true))
	assert.False(t, s.IsEnabled(ctx, "  ", false))
}

func TestFeatureSwitchMalformedValueFallsBack(t *testing.T) {
	repo := newTestRepo(t)
	s := &SystemSettingsService{Repo: repo}
	ctx := context.Background()

	require.NoError(t, repo.UpsertSystemSetting(ctx, &models.SystemSetting{
		Key:   FeatureCleanup,
		Value: datatypes.JSON(`"yes"`),
	}))
	assert.True(t, s.IsEnabled(ctx, FeatureCleanup, true))
	assert.False(t, s.IsEnabled(ctx, FeatureCleanup, false))

	var nilService *SystemSettingsService
	assert.True(t, nilService.IsEnabled(ctx, FeatureCleanup, true))
	require.NoError(t, nilService.SetEnabled(ctx, FeatureCleanup, true))
}
