package engine

import "github.com/rqdb/rq/pkg/engine/internal/errors"

// Errors returned by planning and execution. Use errors.Is to test for them.
var (
	ErrTypeMismatch          = errors.ErrTypeMismatch
	ErrColumnIndexOutOfRange = errors.ErrColumnIndexOutOfRange
	ErrOutOfRange            = errors.ErrOutOfRange
	ErrColumnNotFound        = errors.ErrColumnNotFound
	ErrNullValue             = errors.ErrNullValue
	ErrNotImplemented        = errors.ErrNotImplemented
)
