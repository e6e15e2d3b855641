package core

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrIDMismatch = errors.New("id mismatch between path and request body")

	ErrTransactionInProgress = errors.New("a transaction is already in progress")
	ErrNoTransaction         = errors.New("no transaction in progress")
)
