package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
	SyncStatusCancelled = "cancelled"
	SyncStatusPaused    = "paused"
)

type SyncHistory struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)"`
	TokenID         string         `gorm:"type:varchar(64);not null;index"`
	SyncStartedAt   time.Time      `gorm:"not null;index"`
	SyncCompletedAt *time.Time     `gorm:"index"`
	SyncStatus      string         `gorm:"type:varchar(20);not null;default:'running';index"`
	OrdersProcessed int            `gorm:"not null;default:0"`
	OrdersAdded     int            `gorm:"not null;default:0"`
	OrdersUpdated   int            `gorm:"not null;default:0"`
	ErrorMessage    *string        `gorm:"type:text"`
	SyncFromDate    *time.Time     `gorm:"column:sync_from_date"`
	SyncToDate      *time.Time     `gorm:"column:sync_to_date"`
	StatsJSON       datatypes.JSON `gorm:"column:stats_json"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (SyncHistory) TableName() string {
	return "sync_history"
}
