package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
)

// TechnicalFlagsService owns downstream business flags per order. The sync
// engine only reads them.
type TechnicalFlagsService struct {
	Repo   repository.TechnicalFlagsRepository
	Logger *zap.Logger
}

// GetOrCreate returns the flags row, creating an all-false one on first read.
func (s *TechnicalFlagsService) GetOrCreate(ctx context.Context, tokenID, orderID string) (*models.OrderTechnicalFlags, error) {
	tokenID, orderID = strings.TrimSpace(tokenID), strings.TrimSpace(orderID)
	if tokenID == "" || orderID == "" {
		return nil, errors.New("token id and order id are required")
	}
	existing, err := s.Repo.GetTechnicalFlags(ctx, tokenID, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if err := s.Repo.CreateTechnicalFlagsIfAbsent(ctx, &models.OrderTechnicalFlags{
		TokenID:        tokenID,
		AllegroOrderID: orderID,
	}); err != nil {
		return nil, fmt.Errorf("create technical flags for %s: %w", orderID, err)
	}
	// Read back: a concurrent creator may have won the insert.
	item, err := s.Repo.GetTechnicalFlags(ctx, tokenID, orderID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("technical flags for %s missing after create", orderID)
	}
	s.logger().Info("technical flags created", zap.String("token_id", tokenID), zap.String("order_id", orderID))
	return item, nil
}

func (s *TechnicalFlagsService) SetStockUpdated(ctx context.Context, tokenID, orderID string, updated bool) (*models.OrderTechnicalFlags, error) {
	item, err := s.GetOrCreate(ctx, tokenID, orderID)
	if err != nil {
		return nil, err
	}
	item.IsStockUpdated = updated
	if err := s.Repo.UpdateTechnicalFlags(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetInvoice records an issued invoice; a nil invoiceID clears it.
func (s *TechnicalFlagsService) SetInvoice(ctx context.Context, tokenID, orderID string, invoiceID *string) (*models.OrderTechnicalFlags, error) {
	item, err := s.GetOrCreate(ctx, tokenID, orderID)
	if err != nil {
		return nil, err
	}
	if invoiceID != nil {
		invoiceID = strPtr(*invoiceID)
	}
	item.InvoiceID = invoiceID
	item.HasInvoiceCreated = invoiceID != nil
	if err := s.Repo.UpdateTechnicalFlags(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ForOrders returns flags keyed by order id. Orders without a row get
// all-false defaults without touching the database.
func (s *TechnicalFlagsService) ForOrders(ctx context.Context, tokenID string, orderIDs []string) (map[string]models.OrderTechnicalFlags, error) {
	items, err := s.Repo.ListTechnicalFlags(ctx, tokenID, orderIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.OrderTechnicalFlags, len(orderIDs))
	for _, id := range orderIDs {
		out[id] = models.OrderTechnicalFlags{TokenID: tokenID, AllegroOrderID: id}
	}
	for _, item := range items {
		out[item.AllegroOrderID] = item
	}
	return out, nil
}

func (s *TechnicalFlagsService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
