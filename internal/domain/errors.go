package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRowsAffected marks a conditional write whose condition matched nothing.
	ErrNoRowsAffected      = errors.New("conditional write matched no rows")
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantExists   = errors.New("participant already in room")
	ErrProfileNotFound     = errors.New("profile not found")
	// ErrDescriptionRequired rejects publishing a room without a description.
	ErrDescriptionRequired = errors.New("public room requires a description")
)

// CatalogLoadError disables the opportunity panel but leaves the room usable.
type CatalogLoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *CatalogLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("catalog %s: %s", e.Source, e.Reason)
}

func (e *CatalogLoadError) Unwrap() error { return e.Err }

// BackendWriteError is reported next to the control that triggered the write.
type BackendWriteError struct {
	Op      string
	Control string
	Err     error
}

func (e *BackendWriteError) Error() string {
	return fmt.Sprintf("%s: write failed: %v", e.Op, e.Err)
}

func (e *BackendWriteError) Unwrap() error { return e.Err }

// BackendReadError with NotFound set is terminal for the view that issued it.
type BackendReadError struct {
	Op       string
	NotFound bool
	Err      error
}

func (e *BackendReadError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("%s: not found: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: read failed: %v", e.Op, e.Err)
}

func (e *BackendReadError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var readErr *BackendReadError
	return errors.As(err, &readErr) && readErr.NotFound
}
