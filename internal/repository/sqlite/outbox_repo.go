package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"fieldsync/internal/domain"
)

type outboxRepository struct {
	DB  *sql.DB
	now func() time.Time
}

func NewOutboxRepository(db *sql.DB) domain.OutboxRepository {
	return &outboxRepository{
		DB:  db,
		now: time.Now,
	}
}

// MarkPending flips the attendee to the new status with the pending flag set
// and enqueues the replay operation, in one transaction. Re-marking the same
// lead reuses its outbox row and resets the attempt bookkeeping.
func (r *outboxRepository) MarkPending(ctx context.Context, a *domain.Attendee, statusName string) (*domain.PendingOperation, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, &domain.StorageError{Op: "mark pending", Err: err}
	}
	defer tx.Rollback()

	userQuery := `
		UPDATE users SET progression_status = ?, is_sync = 1
		WHERE event_id = ? AND user_id = ?
	`
	res, err := tx.ExecContext(ctx, userQuery, statusName, a.EventID, a.UserID)
	if err != nil {
		return nil, &domain.StorageError{Op: "mark pending", Err: err}
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, domain.ErrNotFound
	}

	op := &domain.PendingOperation{
		ID:         uuid.NewString(),
		EventID:    a.EventID,
		LeadID:     a.UserID,
		Kind:       domain.OpChangeStatus,
		StatusName: statusName,
		CreatedAt:  r.now().UTC(),
	}
	opQuery := `
		INSERT INTO sync_outbox (id, event_id, lead_id, kind, status_name, attempts, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, 0, '', ?)
		ON CONFLICT(event_id, lead_id, kind) DO UPDATE SET
			status_name = excluded.status_name,
			attempts = 0,
			last_error = ''
	`
	if _, err := tx.ExecContext(ctx, opQuery,
		op.ID, op.EventID, op.LeadID, string(op.Kind), op.StatusName,
		op.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return nil, &domain.StorageError{Op: "enqueue operation", Err: err}
	}

	// On the conflict path the stored row keeps its original id and enqueue
	// time; the returned operation must carry those, not the fresh ones.
	var createdAt string
	storedQuery := `SELECT id, created_at FROM sync_outbox WHERE event_id = ? AND lead_id = ? AND kind = ?`
	if err := tx.QueryRowContext(ctx, storedQuery, op.EventID, op.LeadID, string(op.Kind)).Scan(&op.ID, &createdAt); err != nil {
		return nil, &domain.StorageError{Op: "read back operation", Err: err}
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		op.CreatedAt = t
	}

	if err := tx.Commit(); err != nil {
		return nil, &domain.StorageError{Op: "mark pending", Err: err}
	}

	a.ProgressionStatus = statusName
	a.PendingSync = true
	return op, nil
}

// ClearPending removes the confirmed operation and clears the attendee's
// pending flag, in one transaction.
func (r *outboxRepository) ClearPending(ctx context.Context, op *domain.PendingOperation) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "clear pending", Err: err}
	}
	defer tx.Rollback()

	userQuery := `UPDATE users SET is_sync = 0 WHERE event_id = ? AND user_id = ?`
	if _, err := tx.ExecContext(ctx, userQuery, op.EventID, op.LeadID); err != nil {
		return &domain.StorageError{Op: "clear pending", Err: err}
	}
	opQuery := `DELETE FROM sync_outbox WHERE event_id = ? AND lead_id = ? AND kind = ?`
	if _, err := tx.ExecContext(ctx, opQuery, op.EventID, op.LeadID, string(op.Kind)); err != nil {
		return &domain.StorageError{Op: "dequeue operation", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "clear pending", Err: err}
	}
	return nil
}

// ListPending returns pending operations in enqueue order.
func (r *outboxRepository) ListPending(ctx context.Context) ([]*domain.PendingOperation, error) {
	query := `
		SELECT id, event_id, lead_id, kind, status_name, attempts, last_error, created_at
		FROM sync_outbox
		ORDER BY created_at, rowid
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.StorageError{Op: "list pending operations", Err: err}
	}
	defer rows.Close()

	ops := make([]*domain.PendingOperation, 0)
	for rows.Next() {
		op := &domain.PendingOperation{}
		var kind, createdAt string
		if err := rows.Scan(&op.ID, &op.EventID, &op.LeadID, &kind, &op.StatusName, &op.Attempts, &op.LastError, &createdAt); err != nil {
			return nil, &domain.StorageError{Op: "scan pending operation", Err: err}
		}
		op.Kind = domain.OpKind(kind)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			op.CreatedAt = t
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterate pending operations", Err: err}
	}
	return ops, nil
}

// RecordFailure increments the attempt count and stores the error message.
// The operation stays pending; nothing retries it behind the caller's back.
func (r *outboxRepository) RecordFailure(ctx context.Context, opID string, message string) error {
	query := `UPDATE sync_outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`
	res, err := r.DB.ExecContext(ctx, query, message, opID)
	if err != nil {
		return &domain.StorageError{Op: "record sync failure", Err: err}
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
