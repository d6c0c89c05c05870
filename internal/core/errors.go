package core

import "errors"

// Business-rule failures returned by the engine. The gateway maps each to a
// stable error code; none are retried internally.
var (
	ErrInvalidTransition    = errors.New("invalid table state transition")
	ErrQuotaExceeded        = errors.New("flat-rate order quota exceeded")
	ErrSlotConflict         = errors.New("reservation slot conflict")
	ErrNotFound             = errors.New("not found")
	ErrEmptyOrder           = errors.New("order has no lines")
	ErrInvalidConfiguration = errors.New("invalid restaurant configuration")

	// ErrConflict is a transient store-write conflict that survived every
	// optimistic retry. Callers may re-issue the whole operation.
	ErrConflict = errors.New("store write conflict")
)
