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

func snapshotRow(userID int, email, status string) *domain.Attendee {
	return &domain.Attendee{
		UserID:            userID,
		FirstName:         "First",
		LastName:          "Last",
		Email:             email,
		ProgressionStatus: status,
		MembershipDate:    "2026-01-15",
	}
}

func TestAttendeeRepository_ReplaceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedEvent(t, s, 1003, "Expo")
	repo := NewAttendeeRepository(s.DB())

	rows := []*domain.Attendee{
		snapshotRow(1, "alice@x.com", domain.StatusRegistered),
		snapshotRow(2, "bob@x.com", domain.StatusRegistered),
	}
	require.NoError(t, repo.Replace(ctx, 1003, rows))
	require.NoError(t, repo.Replace(ctx, 1003, rows))

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM users WHERE event_id = 1003`).Scan(&count))
	require.Equal(t, 2, count)
}

func TestAttendeeRepository_ReplaceOverwritesRemoteFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedEvent(t, s, 1, "Expo")
	repo := NewAttendeeRepository(s.DB())

	require.NoError(t, repo.Replace(ctx, 1, []*domain.Attendee{snapshotRow(1, "old@x.com", domain.StatusRegistered)}))

	updated := snapshotRow(1, "new@x.com", domain.StatusAttended)
	updated.Company = "Acme"
	require.NoError(t, repo.Replace(ctx, 1, []*domain.Attendee{updated}))

	got, err := repo.GetByLead(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, "new@x.com", got.Email)
	require.Equal(t, "Acme", got.Company)
	require.Equal(t, domain.StatusAttended, got.ProgressionStatus)
	require.False(t, got.PendingSync)
}

func TestAttendeeRepository_ReplaceKeepsLocalRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedEvent(t, s, 1, "Expo")
	repo := NewAttendeeRepository(s.DB())

	// A locally created attendee still waiting for its remote lead id.
	local := &domain.Attendee{FirstName: "Local", Email: "local@x.com", ProgressionStatus: domain.StatusRegistered}
	require.NoError(t, repo.Insert(ctx, local, 1))

	// The snapshot does not mention it; the row must survive.
	require.NoError(t, repo.Replace(ctx, 1, []*domain.Attendee{snapshotRow(9, "remote@x.com", domain.StatusRegistered)}))

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM users WHERE event_id = 1`).Scan(&count))
	require.Equal(t, 2, count)

	kept, err := repo.GetByLead(ctx, 1, 0)
	require.NoError(t, err)
	require.Equal(t, "local@x.com", kept.Email)
}

func TestAttendeeRepository_ReplacePreservesPendingStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedEvent(t, s, 1, "Expo")
	repo := NewAttendeeRepository(s.DB())
	outbox := NewOutboxRepository(s.DB())

	require.NoError(t, repo.Replace(ctx, 1, []*domain.Attendee{snapshotRow(1, "alice@x.com", domain.StatusRegistered)}))

	att, err := repo.GetByLead(ctx, 1, 1)
	require.NoError(t, err)
	_, err = outbox.MarkPending(ctx, att, domain.StatusAttended)
	require.NoError(t, err)

	// The remote snapshot still says Registered; the unconfirmed local
	// check-in must not be silently rolled back by a re-import.
	require.NoError(t, repo.Replace(ctx, 1, []*domain.Attendee{snapshotRow(1, "alice@x.com", domain.StatusRegistered)}))

	got, err := repo.GetByLead(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAttended, got.ProgressionStatus)
	require.True(t, got.PendingSync)
}

func TestAttendeeRepository_Insert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedEvent(t, s, 1, "Expo")
	repo := NewAttendeeRepository(s.DB())

	a := &domain.Attendee{
		UserID:            42,
		FirstName:         "Ada",
		LastName:          "Lovelace",
		Email:             "ada@x.com",
		ProgressionStatus: domain.StatusRegistered,
	}
	require.NoError(t, repo.Insert(ctx, a, 1))
	require.NotZero(t, a.RowID)
	require.Equal(t, 1, a.EventID)

	// Duplicate lead id within the same event violates the partial unique
	// index and surfaces as a StorageError.
	err := repo.Insert(ctx, &domain.Attendee{UserID: 42, Email: "dup@x.com"}, 1)
	var storageErr *domain.StorageError
	require.True(t, errors.As(err, &storageErr))
}

func TestAttendeeRepository_Update(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedEvent(t, s, 1, "Expo")
	repo := NewAttendeeRepository(s.DB())
	seedAttendee(t, s, 1, 42, domain.StatusRegistered, false)

	got, err := repo.GetByLead(ctx, 1, 42)
	require.NoError(t, err)
	got.Company = "Acme"
	got.ProgressionStatus = domain.StatusAttended
	got.PendingSync = true
	require.NoError(t, repo.Update(ctx, got))

	stored, err := repo.GetByLead(ctx, 1, 42)
	require.NoError(t, err)
	require.Equal(t, "Acme", stored.Company)
	require.Equal(t, domain.StatusAttended, stored.ProgressionStatus)
	require.True(t, stored.PendingSync)

	require.ErrorIs(t, repo.Update(ctx, &domain.Attendee{EventID: 1, UserID: 999}), domain.ErrNotFound)
}

func TestAttendeeRepository_UpdateScopedToEvent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedEvent(t, s, 1, "Expo")
	seedEvent(t, s, 2, "Summit")
	repo := NewAttendeeRepository(s.DB())
	outbox := NewOutboxRepository(s.DB())

	// The same lead attends two events; its pending check-in at the second
	// event must survive an update at the first.
	seedAttendee(t, s, 1, 77, domain.StatusRegistered, false)
	seedAttendee(t, s, 2, 77, domain.StatusRegistered, false)

	other, err := repo.GetByLead(ctx, 2, 77)
	require.NoError(t, err)
	_, err = outbox.MarkPending(ctx, other, domain.StatusAttended)
	require.NoError(t, err)

	checked, err := repo.GetByLead(ctx, 1, 77)
	require.NoError(t, err)
	checked.ProgressionStatus = domain.StatusAttended
	checked.PendingSync = false
	require.NoError(t, repo.Update(ctx, checked))

	got, err := repo.GetByLead(ctx, 1, 77)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAttended, got.ProgressionStatus)
	require.False(t, got.PendingSync)

	untouched, err := repo.GetByLead(ctx, 2, 77)
	require.NoError(t, err)
	require.True(t, untouched.PendingSync)
	require.Equal(t, domain.StatusAttended, untouched.ProgressionStatus)

	ops, err := outbox.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, 2, ops[0].EventID)
	require.Equal(t, 77, ops[0].LeadID)
}

func TestAttendeeRepository_GetByLead_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	repo := NewAttendeeRepository(s.DB())

	_, err := repo.GetByLead(ctx, 1, 42)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttendeeRepository_ListPendingSyncMatchesFlag(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedEvent(t, s, 1, "Expo")
	repo := NewAttendeeRepository(s.DB())

	seedAttendee(t, s, 1, 1, domain.StatusRegistered, false)
	seedAttendee(t, s, 1, 2, domain.StatusAttended, true)
	seedAttendee(t, s, 1, 3, domain.StatusAttended, true)

	pending, err := repo.ListPendingSync(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, a := range pending {
		require.True(t, a.PendingSync)
	}
	require.Equal(t, 2, pending[0].UserID)
	require.Equal(t, 3, pending[1].UserID)
}

func TestAttendeeRepository_StorageErrors(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM users WHERE is_sync = 1`).WillReturnError(sql.ErrConnDone)
	repo := NewAttendeeRepository(db)

	_, err = repo.ListPendingSync(ctx)
	var storageErr *domain.StorageError
	require.True(t, errors.As(err, &storageErr))
	require.NoError(t, mock.ExpectationsWereMet())
}
