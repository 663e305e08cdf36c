package models

import "errors"

var (
	// ErrInvalidArgument marks requests rejected before any storage is touched.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when the storage backend is refusing calls.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrNotSupported is returned by backends for operations they do not implement.
	ErrNotSupported = errors.New("not supported")
)
