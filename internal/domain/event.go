package domain

import (
	"context"
)

// Event is the local replica of a remote CRM program. The scalar fields are
// remote-sourced and opaque to the sync core; dates are the ISO-8601 strings
// the CRM hands out, never parsed locally.
type Event struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Channel     string `json:"channel"`
	Workspace   string `json:"workspace"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`

	Attendees []*Attendee `json:"attendees"`
}

// EventRepository defines local storage operations for events.
// A re-upsert with the same id replaces the whole row, last writer wins.
type EventRepository interface {
	Upsert(ctx context.Context, event *Event) error
	// List returns every event with its attendees eagerly joined,
	// attendees in join encounter order.
	List(ctx context.Context) ([]*Event, error)
	// Delete removes the event and all its attendees in one transaction.
	// Returns ErrNotFound unless both deletes removed at least one row.
	Delete(ctx context.Context, eventID int) error
	// DeleteAll wipes every table in one transaction. Used on sign-out.
	DeleteAll(ctx context.Context) error
}

// Importer pulls one event's authoritative state from the CRM and merges it
// into local storage as an idempotent overwrite.
type Importer interface {
	ImportEvent(ctx context.Context, eventID int, token string) (*Event, error)
}
