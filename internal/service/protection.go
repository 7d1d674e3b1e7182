package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"orderbackup/internal/models"
	"orderbackup/internal/payload"
	"orderbackup/internal/repository"
)

type UpdateAction string

const (
	ActionCreate UpdateAction = "create"
	ActionUpdate UpdateAction = "update"
	ActionSkip   UpdateAction = "skip"
)

// buyerContactFields are backfilled from the stored payload when a new
// payload drops them.
var buyerContactFields = []string{"email", "firstName", "lastName", "phoneNumber"}

// regressionFields are compared for loss between stored and incoming payloads.
var regressionFields = []string{"email", "firstName", "lastName"}

// OrderWrite is one candidate write of an order payload.
type OrderWrite struct {
	TokenID  string
	OrderID  string
	Payload  payload.Order
	Revision string
	// RevisionAt orders revisions in time. When both the stored and incoming
	// values are known, an older incoming state is skipped.
	RevisionAt *time.Time
	OrderDate  *time.Time
	// Force skips revision checks. Used by emergency restore.
	Force bool
}

type UpdateResult struct {
	Success  bool         `json:"success"`
	Action   UpdateAction `json:"action"`
	Message  string       `json:"message"`
	OrderID  uint64       `json:"order_id,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// ProtectionService is the only writer of order rows.
type ProtectionService struct {
	Repo   repository.OrderRepository
	Logger *zap.Logger
	Now    func() time.Time
}

// ValidateQuality checks p against the stored order, if any. Creation is
// strict and returns *DataIntegrityError; updates only collect warnings.
func (s *ProtectionService) ValidateQuality(orderID string, p payload.Order, existing *models.Order) ([]string, error) {
	creating := existing == nil
	if p.Shape == payload.ShapeUnknown || p.Doc == nil {
		if creating {
			return nil, &DataIntegrityError{OrderID: orderID, Reasons: []string{"empty payload"}}
		}
		return nil, fmt.Errorf("empty payload for stored order %s", orderID)
	}

	var warnings []string
	if _, ok := p.ID(); !ok {
		reason := fmt.Sprintf("missing %s (%s payload)", p.IDField(), p.Shape)
		if creating {
			return nil, &DataIntegrityError{OrderID: orderID, Reasons: []string{reason}}
		}
		s.logger().Warn("order payload without id, keeping stored identity",
			zap.String("order_id", orderID), zap.String("shape", p.Shape.String()))
		warnings = append(warnings, reason)
	}

	if problems := payload.StructureProblems(p.Doc); len(problems) > 0 {
		if creating {
			return nil, &DataIntegrityError{OrderID: orderID, Reasons: problems}
		}
		warnings = append(warnings, problems...)
	}

	if !creating {
		warnings = append(warnings, s.regressions(existing, p)...)
	}
	if len(warnings) > 0 {
		s.logger().Warn("order payload quality warnings",
			zap.String("order_id", orderID), zap.Strings("warnings", warnings))
	}
	return warnings, nil
}

func (s *ProtectionService) regressions(existing *models.Order, p payload.Order) []string {
	old, err := payload.Decode(existing.OrderData)
	if err != nil || old.Doc == nil {
		return nil
	}
	var out []string
	if oldN, newN := len(old.LineItems()), len(p.LineItems()); newN < oldN {
		out = append(out, fmt.Sprintf("line items decreased from %d to %d", oldN, newN))
	}
	oldBuyer, newBuyer := old.Buyer(), p.Buyer()
	for _, field := range regressionFields {
		if payload.AsString(oldBuyer[field]) != "" && payload.AsString(newBuyer[field]) == "" {
			out = append(out, "buyer "+field+" lost")
		}
	}
	oldTotal, oldOK := old.TotalToPay()
	newTotal, newOK := p.TotalToPay()
	if oldOK && newOK && !oldTotal.Equal(newTotal) {
		out = append(out, fmt.Sprintf("total to pay changed from %s to %s", oldTotal, newTotal))
	}
	return out
}

// SafeOrderUpdate validates, compares revisions, merges and commits one write
// in a single transaction. A failed create returns *DataIntegrityError.
func (s *ProtectionService) SafeOrderUpdate(ctx context.Context, w OrderWrite) (UpdateResult, error) {
	var result UpdateResult
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		existing, err := s.Repo.GetOrderTx(ctx, tx, w.TokenID, w.OrderID)
		if err != nil {
			return err
		}

		warnings, err := s.ValidateQuality(w.OrderID, w.Payload, existing)
		if err != nil {
			action := ActionUpdate
			if existing == nil {
				action = ActionCreate
			}
			result = UpdateResult{Success: false, Action: action, Message: err.Error()}
			return err
		}

		if existing != nil && !w.Force {
			if w.Revision != "" && existing.Revision == w.Revision {
				result = UpdateResult{Success: true, Action: ActionSkip, OrderID: existing.ID,
					Message: "order already at revision " + w.Revision}
				return nil
			}
			if w.RevisionAt != nil && existing.RevisionAt != nil && w.RevisionAt.Before(*existing.RevisionAt) {
				result = UpdateResult{Success: true, Action: ActionSkip, OrderID: existing.ID,
					Message: fmt.Sprintf("stale revision %s older than stored %s", w.Revision, existing.Revision)}
				return nil
			}
		}

		merged := w.Payload.Clone()
		if existing != nil {
			backfillBuyer(merged, existing)
		}
		if w.Revision != "" {
			merged.Doc["revision"] = w.Revision
		}
		raw, err := json.Marshal(merged.Doc)
		if err != nil {
			return fmt.Errorf("encode order %s: %w", w.OrderID, err)
		}

		orderDate := s.now()
		if w.OrderDate != nil {
			orderDate = w.OrderDate.UTC()
		}

		if existing == nil {
			item := &models.Order{
				TokenID:        w.TokenID,
				AllegroOrderID: w.OrderID,
				OrderData:      datatypes.JSON(raw),
				Revision:       w.Revision,
				RevisionAt:     w.RevisionAt,
				OrderDate:      orderDate,
			}
			if err := s.Repo.CreateOrderTx(ctx, tx, item); err != nil {
				return fmt.Errorf("create order %s: %w", w.OrderID, err)
			}
			result = UpdateResult{Success: true, Action: ActionCreate, OrderID: item.ID, Warnings: warnings,
				Message: "order created"}
			return nil
		}

		existing.OrderData = datatypes.JSON(raw)
		existing.Revision = w.Revision
		if w.RevisionAt != nil {
			existing.RevisionAt = w.RevisionAt
		}
		existing.OrderDate = orderDate
		if err := s.Repo.UpdateOrderTx(ctx, tx, existing); err != nil {
			return fmt.Errorf("update order %s: %w", w.OrderID, err)
		}
		result = UpdateResult{Success: true, Action: ActionUpdate, OrderID: existing.ID, Warnings: warnings,
			Message: "order updated"}
		return nil
	})
	if err != nil {
		var integrity *DataIntegrityError
		if !errors.As(err, &integrity) {
			s.logger().Error("safe order update failed", zap.String("order_id", w.OrderID), zap.Error(err))
		}
		if result.Message == "" {
			result = UpdateResult{Success: false, Message: err.Error()}
		}
		return result, err
	}
	return result, nil
}

// backfillBuyer copies buyer contact fields the new payload lacks. Fields
// present in the new payload always win.
func backfillBuyer(merged payload.Order, existing *models.Order) {
	old, err := payload.Decode(existing.OrderData)
	if err != nil {
		return
	}
	oldBuyer := old.Buyer()
	if len(oldBuyer) == 0 {
		return
	}
	newBuyer := merged.Buyer()
	if newBuyer == nil {
		if _, present := merged.Doc["buyer"]; present && merged.Doc["buyer"] != nil {
			return
		}
		newBuyer = map[string]any{}
		merged.Doc["buyer"] = newBuyer
	}
	for _, field := range buyerContactFields {
		if payload.AsString(newBuyer[field]) != "" {
			continue
		}
		if v := payload.AsString(oldBuyer[field]); v != "" {
			newBuyer[field] = oldBuyer[field]
		}
	}
}

// RestoreFromEvents rebuilds an order from the newest audited event that
// carries a valid order payload, optionally no later than target.
func (s *ProtectionService) RestoreFromEvents(ctx context.Context, tokenID, orderID string, target *time.Time) (UpdateResult, error) {
	events, err := s.Repo.ListOrderEvents(ctx, repository.ListOrderEventsParams{
		TokenID:      tokenID,
		OrderID:      orderID,
		ExcludeTypes: []string{models.EventTypeOrderRestored},
	})
	if err != nil {
		return UpdateResult{}, err
	}
	for _, ev := range events {
		if target != nil && ev.OccurredAt.After(*target) {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal(ev.EventData, &raw); err != nil {
			continue
		}
		doc, _ := raw["order"].(map[string]any)
		p := payload.Detect(doc)
		if _, err := s.ValidateQuality(orderID, p, nil); err != nil {
			continue
		}
		revision := p.Revision()
		occurred := ev.OccurredAt
		res, err := s.SafeOrderUpdate(ctx, OrderWrite{
			TokenID:    tokenID,
			OrderID:    orderID,
			Payload:    p,
			Revision:   revision,
			RevisionAt: &occurred,
			OrderDate:  orderDateFor(p, &occurred, s.now()),
			Force:      true,
		})
		if err != nil {
			return res, err
		}
		s.recordRestore(ctx, tokenID, orderID, ev.ID)
		s.logger().Info("order restored from event",
			zap.String("token_id", tokenID), zap.String("order_id", orderID), zap.Uint64("event_row_id", ev.ID))
		return res, nil
	}
	return UpdateResult{Success: false, Message: "no valid event to restore from"}, fmt.Errorf("restore order %s: %w", orderID, ErrNoRestorePoint)
}

func (s *ProtectionService) recordRestore(ctx context.Context, tokenID, orderID string, sourceRowID uint64) {
	now := s.now()
	data := mustJSON(map[string]any{
		"restored_from_event_row": sourceRowID,
		"restored_at":             now.Format(time.RFC3339),
		"reason":                  "emergency_restore",
	})
	oid := orderID
	if _, err := s.Repo.InsertOrderEvent(ctx, &models.OrderEvent{
		TokenID:    tokenID,
		OrderID:    &oid,
		EventType:  models.EventTypeOrderRestored,
		OccurredAt: now,
		EventData:  data,
	}); err != nil {
		s.logger().Warn("restore audit event failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *ProtectionService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *ProtectionService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
