package gormrepository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
)

func (s *Store) CreateSyncHistory(ctx context.Context, item *models.SyncHistory) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetSyncHistory(ctx context.Context, id string) (*models.SyncHistory, error) {
	if s == nil || s.db == nil || id == "" {
		return nil, nil
	}
	var item models.SyncHistory
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FinalizeSyncHistory writes counters and timestamps unconditionally. The
// status only moves if the row is still running, so an operator cancel
// recorded mid-run survives. The returned bool reports whether the status was
// applied; item.SyncStatus is refreshed to the stored value.
func (s *Store) FinalizeSyncHistory(ctx context.Context, item *models.SyncHistory) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.SyncHistory{}).
			Where("id = ?", item.ID).
			Updates(map[string]any{
				"sync_completed_at": item.SyncCompletedAt,
				"orders_processed":  item.OrdersProcessed,
				"orders_added":      item.OrdersAdded,
				"orders_updated":    item.OrdersUpdated,
				"error_message":     item.ErrorMessage,
				"stats_json":        item.StatsJSON,
				"updated_at":        time.Now().UTC(),
			}).Error; err != nil {
			return err
		}
		res := tx.Model(&models.SyncHistory{}).
			Where("id = ? AND sync_status = ?", item.ID, models.SyncStatusRunning).
			Update("sync_status", item.SyncStatus)
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected > 0
		if !applied {
			var stored models.SyncHistory
			if err := tx.Select("sync_status").First(&stored, "id = ?", item.ID).Error; err != nil {
				return err
			}
			item.SyncStatus = stored.SyncStatus
		}
		return nil
	})
	return applied, err
}

func (s *Store) SetSyncHistoryStatus(ctx context.Context, id string, from []string, to string, message *string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	updates := map[string]any{"sync_status": to, "updated_at": time.Now().UTC()}
	if message != nil {
		updates["error_message"] = *message
	}
	query := s.db.WithContext(ctx).Model(&models.SyncHistory{}).Where("id = ?", id)
	if states := cleanStrings(from); len(states) > 0 {
		query = query.Where("sync_status IN ?", states)
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ListSyncHistory(ctx context.Context, params repository.ListSyncHistoryParams) ([]models.SyncHistory, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.syncHistoryQuery(ctx, params).
		Order("sync_started_at desc").
		Limit(normalizeLimit(params.Limit, 50)).
		Offset(normalizeOffset(params.Offset))
	var items []models.SyncHistory
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSyncHistory(ctx context.Context, params repository.ListSyncHistoryParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.syncHistoryQuery(ctx, params).Count(&count).Error
	return count, err
}

func (s *Store) syncHistoryQuery(ctx context.Context, params repository.ListSyncHistoryParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.SyncHistory{})
	if params.TokenID != "" {
		query = query.Where("token_id = ?", params.TokenID)
	}
	if states := cleanStrings(params.Status); len(states) > 0 {
		query = query.Where("sync_status IN ?", states)
	}
	if params.Since != nil {
		query = query.Where("sync_started_at >= ?", *params.Since)
	}
	return query
}

func (s *Store) LastSuccessfulSync(ctx context.Context, tokenID string) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SyncHistory
	query := s.db.WithContext(ctx).Where("sync_status = ?", models.SyncStatusCompleted)
	if tokenID != "" {
		query = query.Where("token_id = ?", tokenID)
	}
	err := query.Order("sync_completed_at desc").First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.SyncCompletedAt, nil
}

func (s *Store) DeleteSyncHistoryBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("sync_started_at < ? AND sync_status <> ?", before, models.SyncStatusRunning).
		Delete(&models.SyncHistory{})
	return res.RowsAffected, res.Error
}
