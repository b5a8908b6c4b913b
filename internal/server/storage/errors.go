package storage

import "errors"

// Common storage errors
var (
	// ErrDocumentNotFound indicates that document record was not found in storage
	ErrDocumentNotFound = errors.New("document not found")

	// ErrStorageClosed indicates an operation on a closed storage
	ErrStorageClosed = errors.New("storage closed")

	// ErrModeMismatch indicates a record written in another collaboration mode
	ErrModeMismatch = errors.New("document mode mismatch")

	// ErrCorruptRecord indicates stored content that cannot be decoded
	ErrCorruptRecord = errors.New("corrupt document record")
)
