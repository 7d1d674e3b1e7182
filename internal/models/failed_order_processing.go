package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	FailedOrderPending   = "pending"
	FailedOrderRetrying  = "retrying"
	FailedOrderResolved  = "resolved"
	FailedOrderAbandoned = "abandoned"
)

const DefaultFailedOrderMaxRetries = 5

// retryBackoff is indexed by retry_count; counts beyond the table reuse the last entry.
var retryBackoff = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
	240 * time.Minute,
}

// FailedOrderProcessing is a durable retry entry for one (token, order) pair.
type FailedOrderProcessing struct {
	ID               uint64         `gorm:"primaryKey;autoIncrement"`
	OrderID          string         `gorm:"type:varchar(100);not null;index:idx_failed_orders_token_order,priority:2"`
	TokenID          string         `gorm:"type:varchar(64);not null;index:idx_failed_orders_token_order,priority:1"`
	ErrorType        string         `gorm:"type:varchar(50);not null"`
	ErrorMessage     string         `gorm:"type:text;not null"`
	ErrorDetailsJSON datatypes.JSON `gorm:"column:error_details_json"`
	ActionRequired   string         `gorm:"type:varchar(50);not null"`
	EventDataJSON    datatypes.JSON `gorm:"column:event_data_json"`
	ExpectedRevision *string        `gorm:"type:varchar(200)"`
	Status           string         `gorm:"type:varchar(20);not null;default:'pending';index"`
	RetryCount       int            `gorm:"not null;default:0"`
	MaxRetries       int            `gorm:"not null;default:5"`
	Priority         int            `gorm:"not null;default:1"`
	FirstFailedAt    time.Time      `gorm:"not null"`
	LastRetryAt      *time.Time     `gorm:"column:last_retry_at"`
	NextRetryAt      *time.Time     `gorm:"index"`
	ResolvedAt       *time.Time     `gorm:"column:resolved_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
}

func (FailedOrderProcessing) TableName() string {
	return "failed_order_processing"
}

// RetryDelay returns the backoff for a row that has already been retried retryCount times.
func RetryDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount >= len(retryBackoff) {
		return retryBackoff[len(retryBackoff)-1]
	}
	return retryBackoff[retryCount]
}

func (f *FailedOrderProcessing) IsActive() bool {
	return f.Status == FailedOrderPending || f.Status == FailedOrderRetrying
}

func (f *FailedOrderProcessing) CanRetry(now time.Time) bool {
	if f == nil || !f.IsActive() {
		return false
	}
	if f.RetryCount >= f.MaxRetries {
		return false
	}
	return f.NextRetryAt == nil || !f.NextRetryAt.After(now)
}

// MarkForRetry records one more failed attempt. The delay is chosen from the
// retry count before the increment.
func (f *FailedOrderProcessing) MarkForRetry(now time.Time, message, errorType string) {
	delay := RetryDelay(f.RetryCount)
	f.RetryCount++
	f.LastRetryAt = &now
	f.ErrorMessage = message
	if errorType != "" {
		f.ErrorType = errorType
	}
	if f.RetryCount >= f.MaxRetries {
		f.Status = FailedOrderAbandoned
		f.NextRetryAt = nil
		return
	}
	f.Status = FailedOrderPending
	next := now.Add(delay)
	f.NextRetryAt = &next
}

// Postpone reschedules a row whose failure lies outside the order, such as a
// rejected credential. The retry budget is left untouched.
func (f *FailedOrderProcessing) Postpone(now time.Time, message, errorType string) {
	f.Status = FailedOrderPending
	f.LastRetryAt = &now
	f.ErrorMessage = message
	if errorType != "" {
		f.ErrorType = errorType
	}
	next := now.Add(RetryDelay(f.RetryCount))
	f.NextRetryAt = &next
}

func (f *FailedOrderProcessing) MarkResolved(now time.Time) {
	f.Status = FailedOrderResolved
	f.ResolvedAt = &now
	f.NextRetryAt = nil
}

// MarkAbandoned ends retries for a failure that will not heal by itself.
func (f *FailedOrderProcessing) MarkAbandoned(now time.Time, message, errorType string) {
	f.Status = FailedOrderAbandoned
	f.LastRetryAt = &now
	f.NextRetryAt = nil
	f.ErrorMessage = message
	if errorType != "" {
		f.ErrorType = errorType
	}
}
