package gormrepository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
)

var activeFailedStates = []string{models.FailedOrderPending, models.FailedOrderRetrying}

func (s *Store) GetFailedOrder(ctx context.Context, id uint64) (*models.FailedOrderProcessing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.FailedOrderProcessing
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetActiveFailedOrder(ctx context.Context, tokenID, orderID string) (*models.FailedOrderProcessing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.FailedOrderProcessing
	err := s.db.WithContext(ctx).
		Where("token_id = ? AND order_id = ? AND status IN ?", tokenID, orderID, activeFailedStates).
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

func (s *Store) CreateFailedOrder(ctx context.Context, item *models.FailedOrderProcessing) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) SaveFailedOrder(ctx context.Context, item *models.FailedOrderProcessing) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

// ClaimFailedOrder moves an active row to retrying. It returns false when
// another worker already finished it.
func (s *Store) ClaimFailedOrder(ctx context.Context, id uint64, now time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.FailedOrderProcessing{}).
		Where("id = ? AND status IN ?", id, activeFailedStates).
		Updates(map[string]any{
			"status":        models.FailedOrderRetrying,
			"last_retry_at": now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ListDueFailedOrders(ctx context.Context, now time.Time, limit int) ([]models.FailedOrderProcessing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.FailedOrderProcessing
	err := s.db.WithContext(ctx).
		Where("status IN ?", activeFailedStates).
		Where("retry_count < max_retries").
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
		Order("priority desc").
		Order("id asc").
		Limit(normalizeLimit(limit, 50)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListFailedOrders(ctx context.Context, params repository.ListFailedOrdersParams) ([]models.FailedOrderProcessing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.FailedOrderProcessing
	err := s.failedOrderQuery(ctx, params).
		Order("updated_at desc").
		Limit(normalizeLimit(params.Limit, 50)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountFailedOrders(ctx context.Context, params repository.ListFailedOrdersParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.failedOrderQuery(ctx, params).Count(&count).Error
	return count, err
}

func (s *Store) CountFailedOrdersByStatus(ctx context.Context, tokenID string) (map[string]int64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	query := s.db.WithContext(ctx).Model(&models.FailedOrderProcessing{}).
		Select("status, COUNT(*) AS count")
	if tokenID != "" {
		query = query.Where("token_id = ?", tokenID)
	}
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

func (s *Store) failedOrderQuery(ctx context.Context, params repository.ListFailedOrdersParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.FailedOrderProcessing{})
	if params.TokenID != "" {
		query = query.Where("token_id = ?", params.TokenID)
	}
	if params.OrderID != "" {
		query = query.Where("order_id = ?", params.OrderID)
	}
	if states := cleanStrings(params.Status); len(states) > 0 {
		query = query.Where("status IN ?", states)
	}
	return query
}
