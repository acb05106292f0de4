package domain

import (
	"context"
)

// AttendeeForm is the validated input for creating or editing an attendee.
// UserID zero means create; non-zero means edit that lead. ProgressionStatus
// and PendingSync are carried through unchanged on edits.
type AttendeeForm struct {
	UserID            int    `json:"user_id"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Email             string `json:"email"`
	Company           string `json:"company"`
	Phone             string `json:"phone"`
	Unsubscribed      bool   `json:"unsubscribed"`
	ProgressionStatus string `json:"progression_status"`
	PendingSync       bool   `json:"pending_sync"`
}

// CreateResult reports what a create-or-update actually accomplished.
// StatusConfirmed is false when the lead was persisted but the follow-up
// Registered status call failed; the gap is surfaced, never retried silently.
type CreateResult struct {
	Attendee        *Attendee `json:"attendee"`
	Created         bool      `json:"created"`
	StatusConfirmed bool      `json:"status_confirmed"`
}

// SyncOutcome classifies one item of a sync pass.
type SyncOutcome string

const (
	SyncOutcomeSynced  SyncOutcome = "synced"
	SyncOutcomeFailed  SyncOutcome = "failed"
	SyncOutcomeSkipped SyncOutcome = "skipped"
)

// SyncItem is the per-operation outcome of a sync pass.
type SyncItem struct {
	Op      *PendingOperation `json:"op"`
	Outcome SyncOutcome       `json:"outcome"`
	Error   string            `json:"error,omitempty"`
}

// SyncReport enumerates every pending operation a sync pass saw. The pass
// aborts on the first failure; operations after it are reported as skipped
// and their pending flags are left untouched.
type SyncReport struct {
	Items   []SyncItem `json:"items"`
	Synced  int        `json:"synced"`
	Failed  int        `json:"failed"`
	Skipped int        `json:"skipped"`
}

// Clean reports whether every item synced.
func (r *SyncReport) Clean() bool {
	return r.Failed == 0 && r.Skipped == 0
}

// Coordinator mediates attendee mutations between optimistic local state and
// confirmed remote state. Implementations serialize mutating calls; two
// concurrent mutations never interleave partial writes.
type Coordinator interface {
	CreateOrUpdateAttendee(ctx context.Context, eventID int, form *AttendeeForm, token, workspace string) (*CreateResult, error)
	// CheckIn marks the attendee Attended. Online it confirms with the
	// CRM first; offline it records the change as pending for a later
	// sync pass. Sync is only ever triggered by explicit caller action.
	CheckIn(ctx context.Context, attendee *Attendee, eventID int, token string, online bool) error
	// SyncPending replays pending operations one at a time in enqueue
	// order, aborting the pass on the first failure. A failed item's
	// pending flag is never cleared.
	SyncPending(ctx context.Context, token string) (*SyncReport, error)
}
