package domain

import (
	"context"
)

// Progression statuses the core sets itself. The CRM may define others; the
// core treats the value as an opaque label it merely stores and compares.
const (
	StatusRegistered = "Registered"
	StatusAttended   = "Attended"
)

// Attendee is one member of an event, scoped to that event.
//
// UserID is the remote lead identifier; it stays 0 for attendees created
// locally whose remote create call has not returned yet. PendingSync marks a
// local status mutation the remote system has not confirmed.
type Attendee struct {
	RowID             int64  `json:"-"`
	EventID           int    `json:"event_id"`
	UserID            int    `json:"user_id"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Email             string `json:"email"`
	Company           string `json:"company"`
	Phone             string `json:"phone"`
	Unsubscribed      bool   `json:"unsubscribed"`
	ProgressionStatus string `json:"progression_status"`
	MembershipDate    string `json:"membership_date"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
	PendingSync       bool   `json:"pending_sync"`
}

// AttendeeRepository defines local storage operations for attendees.
type AttendeeRepository interface {
	// Replace bulk-upserts the given rows for the event. Rows absent from
	// the new list are never deleted, so locally created attendees survive
	// a re-import. Within one event user_id is unique once assigned.
	Replace(ctx context.Context, eventID int, attendees []*Attendee) error
	// Insert adds one new row. Zero rows affected is a StorageError.
	Insert(ctx context.Context, attendee *Attendee, eventID int) error
	// Update patches the identity-matched row by user_id with the full
	// mutable field set.
	Update(ctx context.Context, attendee *Attendee) error
	// GetByLead returns the attendee with the given lead id in the event.
	GetByLead(ctx context.Context, eventID, userID int) (*Attendee, error)
	// ListPendingSync returns every attendee whose status change has not
	// been confirmed by the remote system.
	ListPendingSync(ctx context.Context) ([]*Attendee, error)
}
