package errors

import "errors"

var (
	ErrTypeMismatch          = errors.New("type mismatch")
	ErrColumnIndexOutOfRange = errors.New("column index out of range")
	ErrOutOfRange            = errors.New("row index out of range")
	ErrColumnNotFound        = errors.New("column not found")
	ErrNullValue             = errors.New("null value")
	ErrNotImplemented        = errors.New("not implemented")
)
