package models

import (
	"time"

	"gorm.io/datatypes"
)

// Order is the latest known state of one upstream order for one source token.
type Order struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement"`
	TokenID        string         `gorm:"type:varchar(64);not null;uniqueIndex:uq_orders_token_order,priority:1"`
	AllegroOrderID string         `gorm:"type:varchar(100);not null;uniqueIndex:uq_orders_token_order,priority:2"`
	OrderData      datatypes.JSON `gorm:"not null"`
	Revision       string         `gorm:"type:varchar(200);not null;default:''"`
	RevisionAt     *time.Time     `gorm:"index"`
	OrderDate      time.Time      `gorm:"not null;index"`
	IsDeleted      bool           `gorm:"not null;default:false;index"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}
