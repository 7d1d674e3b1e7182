package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"orderbackup/internal/models"
)

// OrderRepository covers orders and the audit event log.
type OrderRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	GetOrder(ctx context.Context, tokenID, orderID string) (*models.Order, error)
	GetOrderTx(ctx context.Context, tx *gorm.DB, tokenID, orderID string) (*models.Order, error)
	GetOrderByID(ctx context.Context, id uint64) (*models.Order, error)
	CreateOrderTx(ctx context.Context, tx *gorm.DB, item *models.Order) error
	UpdateOrderTx(ctx context.Context, tx *gorm.DB, item *models.Order) error
	SoftDeleteOrder(ctx context.Context, id uint64) (bool, error)
	ListOrders(ctx context.Context, params ListOrdersParams) ([]models.Order, error)
	CountOrders(ctx context.Context, params ListOrdersParams) (int64, error)

	GetEventByEventID(ctx context.Context, tokenID, eventID string) (*models.OrderEvent, error)
	InsertOrderEvent(ctx context.Context, item *models.OrderEvent) (bool, error)
	LatestCursorEvent(ctx context.Context, tokenID string) (*models.OrderEvent, error)
	ListOrderEvents(ctx context.Context, params ListOrderEventsParams) ([]models.OrderEvent, error)
	CountOrderEvents(ctx context.Context, params ListOrderEventsParams) (int64, error)
	MarkEventDuplicate(ctx context.Context, id uint64) (bool, error)
	DeleteDuplicateEventsBefore(ctx context.Context, before time.Time) (int64, error)
	DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error)
}

type SyncHistoryRepository interface {
	CreateSyncHistory(ctx context.Context, item *models.SyncHistory) error
	GetSyncHistory(ctx context.Context, id string) (*models.SyncHistory, error)
	FinalizeSyncHistory(ctx context.Context, item *models.SyncHistory) (bool, error)
	SetSyncHistoryStatus(ctx context.Context, id string, from []string, to string, message *string) (bool, error)
	ListSyncHistory(ctx context.Context, params ListSyncHistoryParams) ([]models.SyncHistory, error)
	CountSyncHistory(ctx context.Context, params ListSyncHistoryParams) (int64, error)
	LastSuccessfulSync(ctx context.Context, tokenID string) (*time.Time, error)
	DeleteSyncHistoryBefore(ctx context.Context, before time.Time) (int64, error)
}

type FailedOrderRepository interface {
	GetFailedOrder(ctx context.Context, id uint64) (*models.FailedOrderProcessing, error)
	GetActiveFailedOrder(ctx context.Context, tokenID, orderID string) (*models.FailedOrderProcessing, error)
	CreateFailedOrder(ctx context.Context, item *models.FailedOrderProcessing) error
	SaveFailedOrder(ctx context.Context, item *models.FailedOrderProcessing) error
	ClaimFailedOrder(ctx context.Context, id uint64, now time.Time) (bool, error)
	ListDueFailedOrders(ctx context.Context, now time.Time, limit int) ([]models.FailedOrderProcessing, error)
	ListFailedOrders(ctx context.Context, params ListFailedOrdersParams) ([]models.FailedOrderProcessing, error)
	CountFailedOrders(ctx context.Context, params ListFailedOrdersParams) (int64, error)
	CountFailedOrdersByStatus(ctx context.Context, tokenID string) (map[string]int64, error)
}

type TechnicalFlagsRepository interface {
	GetTechnicalFlags(ctx context.Context, tokenID, orderID string) (*models.OrderTechnicalFlags, error)
	CreateTechnicalFlagsIfAbsent(ctx context.Context, item *models.OrderTechnicalFlags) error
	UpdateTechnicalFlags(ctx context.Context, item *models.OrderTechnicalFlags) error
	ListTechnicalFlags(ctx context.Context, tokenID string, orderIDs []string) ([]models.OrderTechnicalFlags, error)
}

type SettingsRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}

// Repository is everything the sync engine persists.
type Repository interface {
	OrderRepository
	SyncHistoryRepository
	FailedOrderRepository
	TechnicalFlagsRepository
	SettingsRepository
}

type ListOrdersParams struct {
	TokenID        string
	OrderIDs       []string
	IncludeDeleted bool
	UpdatedSince   *time.Time
	Limit          int
	Offset         int
	OrderBy        string
	Asc            *bool
}

type ListOrderEventsParams struct {
	TokenID       string
	OrderID       string
	EventTypes    []string
	ExcludeTypes  []string
	Since         *time.Time
	Until         *time.Time
	DuplicateOnly bool
	SkipDuplicate bool
	Limit         int
	Offset        int
	Asc           bool
}

type ListSyncHistoryParams struct {
	TokenID string
	Status  []string
	Since   *time.Time
	Limit   int
	Offset  int
}

type ListFailedOrdersParams struct {
	TokenID string
	OrderID string
	Status  []string
	Limit   int
	Offset  int
}

type ListSystemSettingsParams struct {
	Prefix string
	Limit  int
	Offset int
}
