package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
)

const (
	FeatureScheduledSync = "feature.sync.enabled"
	FeatureFailedRetry   = "feature.failed_retry.enabled"
	FeatureMonitoring    = "feature.monitoring.enabled"
	FeatureCleanup       = "feature.cleanup.enabled"
	FeatureQualityReport = "feature.quality_report.enabled"
)

type featureSwitch struct {
	enabled     bool
	description string
}

var featureSwitches = map[string]featureSwitch{
	FeatureScheduledSync: {true, "queue incremental syncs for every known token on schedule"},
	FeatureFailedRetry:   {true, "retry failed order fetches whose backoff has elapsed"},
	FeatureMonitoring:    {true, "run the pre-sync circuit breaker and post-batch anomaly checks"},
	FeatureCleanup:       {true, "mark redundant events and purge old duplicates and sync history"},
	FeatureQualityReport: {false, "log a daily quality report and store a snapshot event per token"},
}

// DefaultFeatureSwitches returns the value each switch takes before an
// operator sets it.
func DefaultFeatureSwitches() map[string]bool {
	out := make(map[string]bool, len(featureSwitches))
	for key, sw := range featureSwitches {
		out[key] = sw.enabled
	}
	return out
}

// SystemSettingsService reads and writes feature switches. Unreadable or
// missing switches fall back to the caller's default so a settings outage
// never stops the engine.
type SystemSettingsService struct {
	Repo   repository.SettingsRepository
	Logger *zap.Logger
}

// EnsureDefaultSwitches creates missing switches. Existing values are left
// as operators set them.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	for key, sw := range featureSwitches {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := s.Repo.UpsertSystemSetting(ctx, switchSetting(key, sw.enabled)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil {
		s.logger().Warn("read feature switch failed", zap.String("key", key), zap.Error(err))
		return fallback
	}
	if item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		s.logger().Warn("feature switch is not a boolean", zap.String("key", key), zap.ByteString("value", item.Value))
		return fallback
	}
	return enabled
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if err := s.Repo.UpsertSystemSetting(ctx, switchSetting(key, enabled)); err != nil {
		return err
	}
	s.logger().Info("feature switch set", zap.String("key", key), zap.Bool("enabled", enabled))
	return nil
}

// List returns every stored switch by key.
func (s *SystemSettingsService) List(ctx context.Context) (map[string]bool, error) {
	out := map[string]bool{}
	if s == nil || s.Repo == nil {
		return out, nil
	}
	items, err := s.Repo.ListSystemSettings(ctx, repository.ListSystemSettingsParams{Prefix: "feature.", Limit: 100})
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		var enabled bool
		if err := json.Unmarshal(item.Value, &enabled); err != nil {
			continue
		}
		out[item.Key] = enabled
	}
	return out, nil
}

func switchSetting(key string, enabled bool) *models.SystemSetting {
	raw, _ := json.Marshal(enabled)
	description := "feature switch"
	if sw, ok := featureSwitches[key]; ok {
		description = sw.description
	}
	now := time.Now().UTC()
	return &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *SystemSettingsService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
