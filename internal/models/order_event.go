package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EventTypeStartingPoint = "SYNC_STARTING_POINT"
	EventTypeDataSnapshot  = "DATA_SNAPSHOT"
	EventTypeOrderRestored = "ORDER_RESTORED"
)

// OrderEvent is an append-only audit row for one upstream event.
type OrderEvent struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement"`
	TokenID     string         `gorm:"type:varchar(64);not null;uniqueIndex:uq_order_events_token_event,priority:1;uniqueIndex:uq_order_events_replay,priority:1;index:idx_order_events_token_time,priority:1"`
	EventID     *string        `gorm:"type:varchar(100);uniqueIndex:uq_order_events_token_event,priority:2"`
	OrderID     *string        `gorm:"type:varchar(100);uniqueIndex:uq_order_events_replay,priority:2;index"`
	EventType   string         `gorm:"type:varchar(60);not null;uniqueIndex:uq_order_events_replay,priority:3"`
	OccurredAt  time.Time      `gorm:"not null;uniqueIndex:uq_order_events_replay,priority:4;index:idx_order_events_token_time,priority:2"`
	Revision    *string        `gorm:"type:varchar(200)"`
	EventData   datatypes.JSON `gorm:"not null"`
	IsDuplicate bool           `gorm:"not null;default:false;index"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index"`
}

func (OrderEvent) TableName() string {
	return "order_events"
}
