package models

import "time"

type OrderTechnicalFlags struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement"`
	TokenID           string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_order_flags_token_order,priority:1"`
	AllegroOrderID    string    `gorm:"type:varchar(100);not null;uniqueIndex:uq_order_flags_token_order,priority:2"`
	IsStockUpdated    bool      `gorm:"not null;default:false"`
	HasInvoiceCreated bool      `gorm:"not null;default:false"`
	InvoiceID         *string   `gorm:"type:varchar(100)"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (OrderTechnicalFlags) TableName() string {
	return "order_technical_flags"
}
