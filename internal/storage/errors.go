package storage

import "errors"

// Storage errors shared by the memory, Postgres and ClickHouse stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a signal, trade, price bar or
	// config version whose key already exists. Signals change only through
	// Replace.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails, such as a
	// config version starting on or before the open version.
	ErrInvalidInput = errors.New("invalid input")
)
