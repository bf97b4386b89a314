package ftsync

import "github.com/kailas-cloud/ftsync/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrConfiguration    = domain.ErrConfiguration
	ErrIndexUnavailable = domain.ErrIndexUnavailable
	ErrIndexWrite       = domain.ErrIndexWrite
	ErrUnknownType      = domain.ErrUnknownType
	ErrRecordNotFound   = domain.ErrRecordNotFound
)

// Typed errors carrying the failing type and cause.
type (
	ConfigurationError    = domain.ConfigurationError
	IndexUnavailableError = domain.IndexUnavailableError
	IndexWriteError       = domain.IndexWriteError
)
