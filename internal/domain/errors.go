package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrFieldOutOfRange    = errors.New("field out of range")
	ErrBridgeRequired     = errors.New("bridge id required")
	ErrNotFound           = errors.New("not found")
)

// ConfigurationConflictError reports a capacity mismatch against an existing
// log. It is never auto-resolved; the operator has to reconcile the two values.
type ConfigurationConflictError struct {
	BridgeID string
	Expected int
	Actual   int
}

func (e *ConfigurationConflictError) Error() string {
	return fmt.Sprintf("configuration conflict for bridge %s: log has capacity %d, requested %d", e.BridgeID, e.Expected, e.Actual)
}
