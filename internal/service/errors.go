package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDataIntegrity  = errors.New("data integrity violation")
	ErrSyncPaused     = errors.New("sync paused")
	ErrNoCredential   = errors.New("no valid credential for token")
	ErrUpstreamAuth   = errors.New("upstream rejected credential")
	ErrNoRestorePoint = errors.New("no valid event to restore from")
)

// DataIntegrityError reports a payload that fails minimum shape requirements.
type DataIntegrityError struct {
	OrderID string
	Reasons []string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity violation for order %s: %s", e.OrderID, strings.Join(e.Reasons, "; "))
}

func (e *DataIntegrityError) Unwrap() error { return ErrDataIntegrity }

// PauseError is the control signal for a run that stopped on purpose.
type PauseError struct {
	Reasons []string
}

func (e *PauseError) Error() string {
	return "sync paused: " + strings.Join(e.Reasons, "; ")
}

func (e *PauseError) Unwrap() error { return ErrSyncPaused }
