package db

import "errors"

// Sentinel errors for index service operations.
var (
	ErrIndexNotFound        = errors.New("db: index not found")
	ErrIndexExists          = errors.New("db: index already exists")
	ErrUnsupportedCondition = errors.New("db: condition not supported by driver")
)

// Op constants name the failing operation for error context.
const (
	OpPing        = "PING"
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpPut         = "PUT"
	OpDel         = "DEL"
	OpOpen        = "OPEN"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
