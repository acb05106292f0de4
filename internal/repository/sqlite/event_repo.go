package sqlite

import (
	"context"
	"database/sql"

	"fieldsync/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

// Upsert replaces the whole event row. Fields are never merged one by one;
// the remote snapshot is authoritative.
func (r *eventRepository) Upsert(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (id, name, description, created_at, updated_at, url, type, channel, workspace, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			url = excluded.url,
			type = excluded.type,
			channel = excluded.channel,
			workspace = excluded.workspace,
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`
	_, err := r.DB.ExecContext(ctx, query,
		e.ID, e.Name, e.Description, e.CreatedAt, e.UpdatedAt,
		e.URL, e.Type, e.Channel, e.Workspace, e.StartDate, e.EndDate,
	)
	if err != nil {
		return &domain.StorageError{Op: "upsert event", Err: err}
	}
	return nil
}

// List returns every event with its attendees eagerly joined, grouped by
// event id, attendees in join encounter order.
func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT
			e.id, e.name, e.description, e.created_at, e.updated_at,
			e.url, e.type, e.channel, e.workspace, e.start_date, e.end_date,
			u.id, u.user_id, u.first_name, u.last_name, u.email, u.company, u.phone,
			u.updated_at, u.created_at, u.unsubscribed, u.progression_status, u.is_sync, u.membership_date
		FROM events e
		LEFT JOIN users u ON e.id = u.event_id
		ORDER BY e.id, u.id
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.StorageError{Op: "list events", Err: err}
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	byID := make(map[int]*domain.Event)
	for rows.Next() {
		e := &domain.Event{}
		var rowID sql.NullInt64
		var userID, unsubscribed, isSync sql.NullInt64
		var firstName, lastName, email, company, phone sql.NullString
		var userUpdatedAt, userCreatedAt, progressionStatus, membershipDate sql.NullString
		if err := rows.Scan(
			&e.ID, &e.Name, &e.Description, &e.CreatedAt, &e.UpdatedAt,
			&e.URL, &e.Type, &e.Channel, &e.Workspace, &e.StartDate, &e.EndDate,
			&rowID, &userID, &firstName, &lastName, &email, &company, &phone,
			&userUpdatedAt, &userCreatedAt, &unsubscribed, &progressionStatus, &isSync, &membershipDate,
		); err != nil {
			return nil, &domain.StorageError{Op: "scan event", Err: err}
		}

		ev, ok := byID[e.ID]
		if !ok {
			e.Attendees = []*domain.Attendee{}
			byID[e.ID] = e
			events = append(events, e)
			ev = e
		}

		if rowID.Valid {
			ev.Attendees = append(ev.Attendees, &domain.Attendee{
				RowID:             rowID.Int64,
				EventID:           ev.ID,
				UserID:            int(userID.Int64),
				FirstName:         firstName.String,
				LastName:          lastName.String,
				Email:             email.String,
				Company:           company.String,
				Phone:             phone.String,
				UpdatedAt:         userUpdatedAt.String,
				CreatedAt:         userCreatedAt.String,
				Unsubscribed:      unsubscribed.Int64 != 0,
				ProgressionStatus: progressionStatus.String,
				PendingSync:       isSync.Int64 != 0,
				MembershipDate:    membershipDate.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterate events", Err: err}
	}
	return events, nil
}

// Delete removes the event and every attendee with its event_id in one
// transaction. The deletes commit regardless; ErrNotFound reports that one
// of them touched nothing, which keeps repeated deletes idempotent.
func (r *eventRepository) Delete(ctx context.Context, eventID int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "delete event", Err: err}
	}
	defer tx.Rollback()

	usersRes, err := tx.ExecContext(ctx, `DELETE FROM users WHERE event_id = ?`, eventID)
	if err != nil {
		return &domain.StorageError{Op: "delete event attendees", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_outbox WHERE event_id = ?`, eventID); err != nil {
		return &domain.StorageError{Op: "delete event outbox", Err: err}
	}
	eventRes, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, eventID)
	if err != nil {
		return &domain.StorageError{Op: "delete event", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "delete event", Err: err}
	}

	usersAffected, _ := usersRes.RowsAffected()
	eventsAffected, _ := eventRes.RowsAffected()
	if usersAffected == 0 || eventsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAll wipes every table in one transaction. Used on sign-out.
func (r *eventRepository) DeleteAll(ctx context.Context) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "delete all", Err: err}
	}
	defer tx.Rollback()

	for _, query := range []string{
		`DELETE FROM users`,
		`DELETE FROM sync_outbox`,
		`DELETE FROM events`,
	} {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return &domain.StorageError{Op: "delete all", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "delete all", Err: err}
	}
	return nil
}
