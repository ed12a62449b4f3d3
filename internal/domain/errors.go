package domain

import "fmt"

// ValidationError reports client-supplied input that failed validation. It is
// surfaced to HTTP callers as a 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// StorageError reports persistence unavailability or a query failure. It is
// surfaced to HTTP callers as a generic 500; the wrapped error never leaks
// past the logs.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }
