package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the store. Business rejections and
// infrastructure faults are kept distinct so callers can tell "your request
// was refused" from "the store could not process it".
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrStaleStatus       = errors.New("stale status")
	ErrUnavailable       = errors.New("storage unavailable")
)

// unavailable wraps a driver-level failure as ErrUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
