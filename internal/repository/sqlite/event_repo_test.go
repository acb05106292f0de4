package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"fieldsync/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedEvent(t *testing.T, s *Store, id int, name string) {
	t.Helper()
	repo := NewEventRepository(s.DB())
	require.NoError(t, repo.Upsert(context.Background(), &domain.Event{ID: id, Name: name}))
}

func seedAttendee(t *testing.T, s *Store, eventID, userID int, status string, pending bool) {
	t.Helper()
	repo := NewAttendeeRepository(s.DB())
	require.NoError(t, repo.Insert(context.Background(), &domain.Attendee{
		UserID:            userID,
		FirstName:         "Lead",
		Email:             "lead@example.com",
		ProgressionStatus: status,
		PendingSync:       pending,
	}, eventID))
}

func TestEventRepository_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	repo := NewEventRepository(s.DB())

	first := &domain.Event{
		ID:          1003,
		Name:        "Spring Expo",
		Description: "original description",
		Workspace:   "Default",
		StartDate:   "2026-03-01T09:00:00Z",
	}
	require.NoError(t, repo.Upsert(ctx, first))

	// The re-import replaces the whole row, never a field-by-field merge.
	second := &domain.Event{ID: 1003, Name: "Spring Expo Renamed"}
	require.NoError(t, repo.Upsert(ctx, second))

	events, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 1003, events[0].ID)
	require.Equal(t, "Spring Expo Renamed", events[0].Name)
	require.Equal(t, "", events[0].Description)
	require.Equal(t, "", events[0].StartDate)
}

func TestEventRepository_ListJoinsAttendees(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	repo := NewEventRepository(s.DB())

	seedEvent(t, s, 1, "One")
	seedEvent(t, s, 2, "Two")
	seedAttendee(t, s, 1, 11, domain.StatusRegistered, false)
	seedAttendee(t, s, 1, 12, domain.StatusAttended, false)

	events, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)

	require.Equal(t, 1, events[0].ID)
	require.Len(t, events[0].Attendees, 2)
	require.Equal(t, 11, events[0].Attendees[0].UserID)
	require.Equal(t, 12, events[0].Attendees[1].UserID)

	// Events without members still appear, with an empty attendee list.
	require.Equal(t, 2, events[1].ID)
	require.Empty(t, events[1].Attendees)
}

func TestEventRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	repo := NewEventRepository(s.DB())

	seedEvent(t, s, 5, "Doomed")
	seedEvent(t, s, 6, "Survivor")
	seedAttendee(t, s, 5, 51, domain.StatusRegistered, false)
	seedAttendee(t, s, 5, 52, domain.StatusRegistered, false)
	seedAttendee(t, s, 6, 61, domain.StatusRegistered, false)

	require.NoError(t, repo.Delete(ctx, 5))

	events, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 6, events[0].ID)
	require.Len(t, events[0].Attendees, 1)
	require.Equal(t, 61, events[0].Attendees[0].UserID)
}

func TestEventRepository_DeleteReportsNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	repo := NewEventRepository(s.DB())

	require.ErrorIs(t, repo.Delete(ctx, 404), domain.ErrNotFound)

	// An event without attendees also reports not found, but the event row
	// itself is still removed, keeping repeated deletes idempotent.
	seedEvent(t, s, 7, "Empty")
	require.ErrorIs(t, repo.Delete(ctx, 7), domain.ErrNotFound)
	events, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestEventRepository_DeleteAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	repo := NewEventRepository(s.DB())

	seedEvent(t, s, 1, "One")
	seedAttendee(t, s, 1, 11, domain.StatusAttended, true)

	require.NoError(t, repo.DeleteAll(ctx))

	events, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, events)

	pending, err := NewAttendeeRepository(s.DB()).ListPendingSync(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestEventRepository_StorageErrors(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO events`).WillReturnError(sql.ErrConnDone)
	repo := NewEventRepository(db)

	err = repo.Upsert(ctx, &domain.Event{ID: 1})
	var storageErr *domain.StorageError
	require.True(t, errors.As(err, &storageErr))
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}
