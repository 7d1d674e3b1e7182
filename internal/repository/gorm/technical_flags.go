package gormrepository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"orderbackup/internal/models"
)

func (s *Store) GetTechnicalFlags(ctx context.Context, tokenID, orderID string) (*models.OrderTechnicalFlags, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.OrderTechnicalFlags
	err := s.db.WithContext(ctx).
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

func (s *Store) CreateTechnicalFlagsIfAbsent(ctx context.Context, item *models.OrderTechnicalFlags) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_id"}, {Name: "allegro_order_id"}},
		DoNothing: true,
	}).Create(item).Error
}

func (s *Store) UpdateTechnicalFlags(ctx context.Context, item *models.OrderTechnicalFlags) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.OrderTechnicalFlags{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"is_stock_updated":    item.IsStockUpdated,
			"has_invoice_created": item.HasInvoiceCreated,
			"invoice_id":          item.InvoiceID,
			"updated_at":          time.Now().UTC(),
		}).Error
}

func (s *Store) ListTechnicalFlags(ctx context.Context, tokenID string, orderIDs []string) ([]models.OrderTechnicalFlags, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ids := cleanStrings(orderIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.OrderTechnicalFlags
	err := s.db.WithContext(ctx).
		Where("token_id = ? AND allegro_order_id IN ?", tokenID, ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
