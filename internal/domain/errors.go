package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a row the caller addressed does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed or missing required input. The operation
// aborts before any network or storage call; the caller re-prompts the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// RemoteError reports a CRM call that failed or returned a non-success
// payload. It is never retried automatically.
type RemoteError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// ImportError reports a snapshot fetch or merge failure. Partially applied
// state (event present, attendees stale or absent) is a known residual risk
// and is not auto-repaired.
type ImportError struct {
	EventID int
	Err     error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import event %d: %v", e.EventID, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// StorageError reports a local persistence fault. Always surfaced; no
// operation retries internally.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
