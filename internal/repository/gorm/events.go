package gormrepository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
)

func (s *Store) GetEventByEventID(ctx context.Context, tokenID, eventID string) (*models.OrderEvent, error) {
	if s == nil || s.db == nil || eventID == "" {
		return nil, nil
	}
	var item models.OrderEvent
	err := s.db.WithContext(ctx).
		Where("token_id = ? AND event_id = ?", tokenID, eventID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// InsertOrderEvent appends an audit row. It reports false when a uniqueness
// guard (event id or replay key) already holds a matching row.
func (s *Store) InsertOrderEvent(ctx context.Context, item *models.OrderEvent) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// LatestCursorEvent returns the newest event that can seed the upstream cursor.
func (s *Store) LatestCursorEvent(ctx context.Context, tokenID string) (*models.OrderEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.OrderEvent
	err := s.db.WithContext(ctx).
		Where("token_id = ? AND event_id IS NOT NULL AND event_type <> ?", tokenID, models.EventTypeDataSnapshot).
		Order("occurred_at desc").
		Order("id desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListOrderEvents returns events matching params. A zero Limit returns every
// matching row, which the health scan relies on.
func (s *Store) ListOrderEvents(ctx context.Context, params repository.ListOrderEventsParams) ([]models.OrderEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.eventQuery(ctx, params)
	direction := "desc"
	if params.Asc {
		direction = "asc"
	}
	query = query.Order("occurred_at " + direction).Order("id " + direction)
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}
	var items []models.OrderEvent
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountOrderEvents(ctx context.Context, params repository.ListOrderEventsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.eventQuery(ctx, params).Count(&count).Error
	return count, err
}

func (s *Store) eventQuery(ctx context.Context, params repository.ListOrderEventsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.OrderEvent{})
	if params.TokenID != "" {
		query = query.Where("token_id = ?", params.TokenID)
	}
	if params.OrderID != "" {
		query = query.Where("order_id = ?", params.OrderID)
	}
	if types := cleanStrings(params.EventTypes); len(types) > 0 {
		query = query.Where("event_type IN ?", types)
	}
	if types := cleanStrings(params.ExcludeTypes); len(types) > 0 {
		query = query.Where("event_type NOT IN ?", types)
	}
	if params.Since != nil {
		query = query.Where("occurred_at >= ?", *params.Since)
	}
	if params.Until != nil {
		query = query.Where("occurred_at < ?", *params.Until)
	}
	if params.DuplicateOnly {
		query = query.Where("is_duplicate = ?", true)
	} else if params.SkipDuplicate {
		query = query.Where("is_duplicate = ?", false)
	}
	return query
}

func (s *Store) MarkEventDuplicate(ctx context.Context, id uint64) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.OrderEvent{}).
		Where("id = ?", id).
		Update("is_duplicate", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) DeleteDuplicateEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("is_duplicate = ? AND occurred_at < ?", true, before).
		Delete(&models.OrderEvent{})
	return res.RowsAffected, res.Error
}

// DeleteEventsBefore prunes audit rows older than before. The newest cursor
// row per token is never removed.
func (s *Store) DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var keep []uint64
	err := s.db.WithContext(ctx).Raw(`
SELECT MAX(e.id) FROM order_events e
JOIN (
	SELECT token_id, MAX(occurred_at) AS occurred_at
	FROM order_events
	WHERE event_id IS NOT NULL AND event_type <> ?
	GROUP BY token_id
) latest ON latest.token_id = e.token_id AND latest.occurred_at = e.occurred_at
WHERE e.event_id IS NOT NULL
GROUP BY e.token_id`, models.EventTypeDataSnapshot).Scan(&keep).Error
	if err != nil {
		return 0, err
	}
	query := s.db.WithContext(ctx).Where("occurred_at < ?", before)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	res := query.Delete(&models.OrderEvent{})
	return res.RowsAffected, res.Error
}
