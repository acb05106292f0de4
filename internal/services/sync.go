package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"fieldsync/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type coordinatorService struct {
	attendeeRepo   domain.AttendeeRepository
	outboxRepo     domain.OutboxRepository
	gateway        domain.RemoteGateway
	contextTimeout time.Duration
	logger         *slog.Logger

	// Serializes mutating operations: a check-in racing a sync pass must
	// never interleave partial writes against the same row.
	mu sync.Mutex
}

// NewCoordinator creates the sync coordinator mediating attendee mutations
// between optimistic local state and confirmed remote state.
func NewCoordinator(
	attendeeRepo domain.AttendeeRepository,
	outboxRepo domain.OutboxRepository,
	gateway domain.RemoteGateway,
	timeout time.Duration,
	logger *slog.Logger,
) domain.Coordinator {
	return &coordinatorService{
		attendeeRepo:   attendeeRepo,
		outboxRepo:     outboxRepo,
		gateway:        gateway,
		contextTimeout: timeout,
		logger:         logger,
	}
}

func validateForm(form *domain.AttendeeForm) error {
	if strings.TrimSpace(form.FirstName) == "" {
		return &domain.ValidationError{Field: "firstName", Message: "first name is required"}
	}
	if strings.TrimSpace(form.LastName) == "" {
		return &domain.ValidationError{Field: "lastName", Message: "last name is required"}
	}
	if strings.TrimSpace(form.Email) == "" {
		return &domain.ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailPattern.MatchString(form.Email) {
		return &domain.ValidationError{Field: "email", Message: "not a valid email address"}
	}
	return nil
}

// CreateOrUpdateAttendee validates the form locally, upserts the lead
// remotely, then persists the result. Creates additionally move the new lead
// to Registered; if that second call fails the attendee stays persisted and
// the result reports the unconfirmed status instead of retrying.
func (s *coordinatorService) CreateOrUpdateAttendee(ctx context.Context, eventID int, form *domain.AttendeeForm, token, workspace string) (*domain.CreateResult, error) {
	if err := validateForm(form); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	lead := &domain.LeadInput{
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Email:        form.Email,
		Company:      form.Company,
		Phone:        form.Phone,
		Unsubscribed: form.Unsubscribed,
	}
	result, err := s.gateway.UpsertLead(ctx, token, workspace, lead)
	if err != nil {
		return nil, err
	}

	if form.UserID != 0 {
		attendee := &domain.Attendee{
			EventID:           eventID,
			UserID:            form.UserID,
			FirstName:         form.FirstName,
			LastName:          form.LastName,
			Email:             form.Email,
			Company:           form.Company,
			Phone:             form.Phone,
			Unsubscribed:      form.Unsubscribed,
			ProgressionStatus: form.ProgressionStatus,
			PendingSync:       form.PendingSync,
		}
		if err := s.attendeeRepo.Update(ctx, attendee); err != nil {
			return nil, err
		}
		s.logger.Info("attendee updated", "event_id", eventID, "lead_id", form.UserID)
		return &domain.CreateResult{Attendee: attendee, Created: false, StatusConfirmed: true}, nil
	}

	attendee := &domain.Attendee{
		EventID:           eventID,
		UserID:            result.ID,
		FirstName:         form.FirstName,
		LastName:          form.LastName,
		Email:             form.Email,
		Company:           form.Company,
		Phone:             form.Phone,
		Unsubscribed:      form.Unsubscribed,
		ProgressionStatus: domain.StatusRegistered,
	}
	if err := s.attendeeRepo.Insert(ctx, attendee, eventID); err != nil {
		return nil, err
	}

	confirmed := true
	if err := s.gateway.ChangeMemberStatus(ctx, eventID, domain.StatusRegistered, result.ID, token); err != nil {
		// The lead exists locally and remotely but its registration
		// status is unconfirmed. Surfaced to the caller, not retried.
		confirmed = false
		s.logger.Warn("registration status not confirmed", "event_id", eventID, "lead_id", result.ID, "error", err)
	} else {
		s.logger.Info("attendee created", "event_id", eventID, "lead_id", result.ID)
	}
	return &domain.CreateResult{Attendee: attendee, Created: true, StatusConfirmed: confirmed}, nil
}

// CheckIn marks the attendee Attended. Online, the status change is confirmed
// with the CRM before anything is persisted; a remote failure leaves local
// state untouched. Offline, the change is persisted with the pending flag set
// and an outbox operation for a later explicit sync pass.
func (s *coordinatorService) CheckIn(ctx context.Context, attendee *domain.Attendee, eventID int, token string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	attendee.EventID = eventID

	if online {
		if err := s.gateway.ChangeMemberStatus(ctx, eventID, domain.StatusAttended, attendee.UserID, token); err != nil {
			return err
		}
		attendee.ProgressionStatus = domain.StatusAttended
		attendee.PendingSync = false
		if err := s.attendeeRepo.Update(ctx, attendee); err != nil {
			return err
		}
		s.logger.Info("attendee checked in", "event_id", eventID, "lead_id", attendee.UserID)
		return nil
	}

	if _, err := s.outboxRepo.MarkPending(ctx, attendee, domain.StatusAttended); err != nil {
		return err
	}
	s.logger.Info("attendee checked in offline, pending sync", "event_id", eventID, "lead_id", attendee.UserID)
	return nil
}

// SyncPending replays pending operations strictly one at a time in enqueue
// order. The pass aborts on the first failure: that operation's attempt count
// is bumped, its pending flag stays set, and everything after it is reported
// as skipped. The report enumerates every item either way.
func (s *coordinatorService) SyncPending(ctx context.Context, token string) (*domain.SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops, err := s.outboxRepo.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.SyncReport{Items: make([]domain.SyncItem, 0, len(ops))}
	var firstErr error
	for _, op := range ops {
		if firstErr != nil {
			report.Items = append(report.Items, domain.SyncItem{Op: op, Outcome: domain.SyncOutcomeSkipped})
			report.Skipped++
			continue
		}

		err := func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.contextTimeout)
			defer cancel()
			return s.gateway.ChangeMemberStatus(callCtx, op.EventID, op.StatusName, op.LeadID, token)
		}()
		if err != nil {
			if recordErr := s.outboxRepo.RecordFailure(ctx, op.ID, err.Error()); recordErr != nil {
				s.logger.Error("failed to record sync failure", "op_id", op.ID, "error", recordErr)
			}
			report.Items = append(report.Items, domain.SyncItem{Op: op, Outcome: domain.SyncOutcomeFailed, Error: err.Error()})
			report.Failed++
			firstErr = err
			continue
		}

		if err := s.outboxRepo.ClearPending(ctx, op); err != nil {
			report.Items = append(report.Items, domain.SyncItem{Op: op, Outcome: domain.SyncOutcomeFailed, Error: err.Error()})
			report.Failed++
			firstErr = err
			continue
		}
		report.Items = append(report.Items, domain.SyncItem{Op: op, Outcome: domain.SyncOutcomeSynced})
		report.Synced++
	}

	if firstErr != nil {
		s.logger.Warn("sync pass aborted", "synced", report.Synced, "failed", report.Failed, "skipped", report.Skipped)
		return report, fmt.Errorf("sync aborted after %d of %d operations: %w", report.Synced, len(ops), firstErr)
	}
	s.logger.Info("sync pass completed", "synced", report.Synced)
	return report, nil
}
