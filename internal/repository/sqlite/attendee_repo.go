package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"fieldsync/internal/domain"
)

type attendeeRepository struct {
	DB *sql.DB
}

func NewAttendeeRepository(db *sql.DB) domain.AttendeeRepository {
	return &attendeeRepository{
		DB: db,
	}
}

const attendeeColumns = `id, event_id, user_id, first_name, last_name, email, company, phone, updated_at, created_at, unsubscribed, progression_status, is_sync, membership_date`

// Replace bulk-upserts the snapshot rows for the event in one multi-row
// statement. Rows absent from the new list are left alone so locally created
// attendees are never dropped by a re-import. On conflict the remote-sourced
// fields are overwritten; a row whose status change is still pending keeps
// its local progression status and flag.
func (r *attendeeRepository) Replace(ctx context.Context, eventID int, attendees []*domain.Attendee) error {
	if len(attendees) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(attendees))
	args := make([]interface{}, 0, len(attendees)*12)
	for _, a := range attendees {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			eventID, a.UserID, a.FirstName, a.LastName, a.Email, a.Company, a.Phone,
			a.UpdatedAt, a.CreatedAt, boolToInt(a.Unsubscribed), a.ProgressionStatus, a.MembershipDate,
		)
	}

	query := `
		INSERT INTO users (event_id, user_id, first_name, last_name, email, company, phone, updated_at, created_at, unsubscribed, progression_status, membership_date)
		VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT(event_id, user_id) WHERE user_id != 0 DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			company = excluded.company,
			phone = excluded.phone,
			updated_at = excluded.updated_at,
			created_at = excluded.created_at,
			unsubscribed = excluded.unsubscribed,
			membership_date = excluded.membership_date,
			progression_status = CASE WHEN users.is_sync = 1
				THEN users.progression_status
				ELSE excluded.progression_status END
	`
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return &domain.StorageError{Op: "replace attendees", Err: err}
	}
	return nil
}

// Insert adds one new row for the event. Zero rows affected is a storage
// fault, not a silent no-op.
func (r *attendeeRepository) Insert(ctx context.Context, a *domain.Attendee, eventID int) error {
	query := `
		INSERT INTO users (event_id, user_id, first_name, last_name, email, company, phone, unsubscribed, progression_status, is_sync)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.DB.ExecContext(ctx, query,
		eventID, a.UserID, a.FirstName, a.LastName, a.Email, a.Company, a.Phone,
		boolToInt(a.Unsubscribed), a.ProgressionStatus, boolToInt(a.PendingSync),
	)
	if err != nil {
		return &domain.StorageError{Op: "insert attendee", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "insert attendee", Err: err}
	}
	if affected == 0 {
		return &domain.StorageError{Op: "insert attendee", Err: errors.New("no rows inserted")}
	}
	if rowID, err := res.LastInsertId(); err == nil {
		a.RowID = rowID
	}
	a.EventID = eventID
	return nil
}

// Update patches the row matched by (event_id, user_id) with the full mutable
// field set. A lead id is only unique within one event, so both keys are
// required to keep the same lead's rows in other events untouched.
func (r *attendeeRepository) Update(ctx context.Context, a *domain.Attendee) error {
	query := `
		UPDATE users
		SET first_name = ?, last_name = ?, email = ?, company = ?, phone = ?,
			unsubscribed = ?, progression_status = ?, is_sync = ?
		WHERE event_id = ? AND user_id = ?
	`
	res, err := r.DB.ExecContext(ctx, query,
		a.FirstName, a.LastName, a.Email, a.Company, a.Phone,
		boolToInt(a.Unsubscribed), a.ProgressionStatus, boolToInt(a.PendingSync),
		a.EventID, a.UserID,
	)
	if err != nil {
		return &domain.StorageError{Op: "update attendee", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "update attendee", Err: err}
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *attendeeRepository) GetByLead(ctx context.Context, eventID, userID int) (*domain.Attendee, error) {
	query := `SELECT ` + attendeeColumns + ` FROM users WHERE event_id = ? AND user_id = ?`
	a, err := scanAttendee(r.DB.QueryRowContext(ctx, query, eventID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get attendee", Err: err}
	}
	return a, nil
}

// ListPendingSync returns every attendee whose local status mutation has not
// been confirmed by the remote system, in row order.
func (r *attendeeRepository) ListPendingSync(ctx context.Context) ([]*domain.Attendee, error) {
	query := `SELECT ` + attendeeColumns + ` FROM users WHERE is_sync = 1 ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.StorageError{Op: "list pending sync", Err: err}
	}
	defer rows.Close()

	pending := make([]*domain.Attendee, 0)
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "scan pending attendee", Err: err}
		}
		pending = append(pending, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterate pending sync", Err: err}
	}
	return pending, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttendee(row rowScanner) (*domain.Attendee, error) {
	a := &domain.Attendee{}
	var unsubscribed, isSync int
	err := row.Scan(
		&a.RowID, &a.EventID, &a.UserID, &a.FirstName, &a.LastName, &a.Email, &a.Company, &a.Phone,
		&a.UpdatedAt, &a.CreatedAt, &unsubscribed, &a.ProgressionStatus, &isSync, &a.MembershipDate,
	)
	if err != nil {
		return nil, err
	}
	a.Unsubscribed = unsubscribed != 0
	a.PendingSync = isSync != 0
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
