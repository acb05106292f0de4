package domain

import (
	"context"
	"time"
)

// OpKind identifies the kind of remote operation an outbox row replays.
type OpKind string

// OpChangeStatus replays a member status change against the CRM.
const OpChangeStatus OpKind = "change_status"

// PendingOperation is one durable outbox row: a local mutation awaiting
// remote confirmation, with enough payload to replay it and bookkeeping for
// failed attempts.
type PendingOperation struct {
	ID         string    `json:"id"`
	EventID    int       `json:"event_id"`
	LeadID     int       `json:"lead_id"`
	Kind       OpKind    `json:"kind"`
	StatusName string    `json:"status_name"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error"`
	CreatedAt  time.Time `json:"created_at"`
}

// OutboxRepository owns the pending-operation log. Every mutation keeps the
// attendee's PendingSync flag and the outbox in step inside one transaction,
// so an attendee has PendingSync set iff a pending row exists for it.
type OutboxRepository interface {
	// MarkPending records the attendee's new status locally and enqueues
	// the replay operation, in one transaction.
	MarkPending(ctx context.Context, attendee *Attendee, statusName string) (*PendingOperation, error)
	// ClearPending removes the operation and clears the attendee's
	// PendingSync flag, in one transaction.
	ClearPending(ctx context.Context, op *PendingOperation) error
	// ListPending returns pending operations in enqueue order.
	ListPending(ctx context.Context) ([]*PendingOperation, error)
	// RecordFailure increments the attempt count and stores the error
	// message. The operation stays pending.
	RecordFailure(ctx context.Context, opID string, message string) error
}
