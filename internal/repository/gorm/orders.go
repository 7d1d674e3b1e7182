package gormrepository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
)

var orderSortColumns = map[string]string{
	"order_date": "order_date",
	"updated_at": "updated_at",
	"created_at": "created_at",
}

func (s *Store) GetOrder(ctx context.Context, tokenID, orderID string) (*models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return s.GetOrderTx(ctx, s.db, tokenID, orderID)
}

func (s *Store) GetOrderTx(ctx context.Context, tx *gorm.DB, tokenID, orderID string) (*models.Order, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.Order
	err := tx.WithContext(ctx).
		Where("token_id = ? AND allegro_order_id = ?", tokenID, orderID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetOrderByID(ctx context.Context, id uint64) (*models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Order
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateOrderTx(ctx context.Context, tx *gorm.DB, item *models.Order) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateOrderTx(ctx context.Context, tx *gorm.DB, item *models.Order) error {
	if tx == nil || item == nil || item.ID == 0 {
		return nil
	}
	item.UpdatedAt = time.Now().UTC()
	return tx.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"order_data":  item.OrderData,
			"revision":    item.Revision,
			"revision_at": item.RevisionAt,
			"order_date":  item.OrderDate,
			"is_deleted":  item.IsDeleted,
			"updated_at":  item.UpdatedAt,
		}).Error
}

func (s *Store) SoftDeleteOrder(ctx context.Context, id uint64) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_deleted": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ListOrders(ctx context.Context, params repository.ListOrdersParams) ([]models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.orderQuery(ctx, params)
	query = applyOrder(query, orderSortColumns[params.OrderBy], params.Asc, "order_date")
	query = query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset))
	var items []models.Order
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountOrders(ctx context.Context, params repository.ListOrdersParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.orderQuery(ctx, params).Count(&count).Error
	return count, err
}

func (s *Store) orderQuery(ctx context.Context, params repository.ListOrdersParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if params.TokenID != "" {
		query = query.Where("token_id = ?", params.TokenID)
	}
	if ids := cleanStrings(params.OrderIDs); len(ids) > 0 {
		query = query.Where("allegro_order_id IN ?", ids)
	}
	if !params.IncludeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if params.UpdatedSince != nil {
		query = query.Where("updated_at >= ?", *params.UpdatedSince)
	}
	return query
}
