package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals an invalid type registration or search request.
	ErrConfiguration = errors.New("configuration error")
	// ErrIndexUnavailable signals that the index service did not answer the availability probe.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrIndexWrite signals a failed put or remove against the index service.
	ErrIndexWrite = errors.New("index write failed")
	// ErrUnknownType signals a record type that is not in the registry.
	ErrUnknownType = errors.New("unknown type")
	// ErrRecordNotFound signals a record missing from the record store.
	ErrRecordNotFound = errors.New("record not found")
)

// ConfigurationError wraps ErrConfiguration with the offending type and a reason.
type ConfigurationError struct {
	Type   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration.Error(), e.Type, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError creates a configuration error for the given type.
func NewConfigurationError(typeName, format string, args ...any) error {
	return &ConfigurationError{Type: typeName, Reason: fmt.Sprintf(format, args...)}
}

// IndexUnavailableError wraps ErrIndexUnavailable with the probe failure.
type IndexUnavailableError struct {
	Type string
	Err  error
}

func (e *IndexUnavailableError) Error() string {
	return fmt.Sprintf("%s for %s: %v", ErrIndexUnavailable.Error(), e.Type, e.Err)
}

// Unwrap matches ErrIndexUnavailable and exposes the probe failure.
func (e *IndexUnavailableError) Unwrap() []error { return []error{ErrIndexUnavailable, e.Err} }

// IndexWriteError wraps ErrIndexWrite with the failed operation and record.
type IndexWriteError struct {
	Op       string
	Type     string
	RecordID string
	Err      error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("%s: %s %s/%s: %v", ErrIndexWrite.Error(), e.Op, e.Type, e.RecordID, e.Err)
}

// Unwrap matches ErrIndexWrite and exposes the driver failure.
func (e *IndexWriteError) Unwrap() []error { return []error{ErrIndexWrite, e.Err} }
