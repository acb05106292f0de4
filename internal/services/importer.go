package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fieldsync/internal/domain"
)

// memberFields are the lead fields requested with every member list pull.
var memberFields = []string{
	"firstName", "lastName", "email", "company", "phone", "unsubscribed",
}

type importerService struct {
	eventRepo      domain.EventRepository
	attendeeRepo   domain.AttendeeRepository
	gateway        domain.RemoteGateway
	contextTimeout time.Duration
	logger         *slog.Logger
}

// NewImporter creates the snapshot importer with the given repositories and
// gateway.
func NewImporter(
	eventRepo domain.EventRepository,
	attendeeRepo domain.AttendeeRepository,
	gateway domain.RemoteGateway,
	timeout time.Duration,
	logger *slog.Logger,
) domain.Importer {
	return &importerService{
		eventRepo:      eventRepo,
		attendeeRepo:   attendeeRepo,
		gateway:        gateway,
		contextTimeout: timeout,
		logger:         logger,
	}
}

// ImportEvent pulls the event and its member list concurrently, normalizes
// every field, and merges the snapshot into local storage as an idempotent
// overwrite. Any fetch or merge failure surfaces as an ImportError.
//
// The event upsert and attendee replace are two statements, not one
// transaction: a failure between them can leave an event without fresh
// attendees until the next import.
func (s *importerService) ImportEvent(ctx context.Context, eventID int, token string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		rec     *domain.EventRecord
		members []*domain.MemberRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec, err = s.gateway.FetchEvent(gctx, eventID, token)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = s.gateway.FetchMembers(gctx, eventID, token, memberFields)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, &domain.ImportError{EventID: eventID, Err: err}
	}

	event := normalizeEvent(rec)
	attendees := make([]*domain.Attendee, 0, len(members))
	for _, m := range members {
		// A member without a lead id cannot be keyed for upsert; letting
		// it through would grow a duplicate row on every re-import.
		if m.ID == 0 {
			return nil, &domain.ImportError{EventID: eventID, Err: fmt.Errorf("member record %q has no lead id", m.Email)}
		}
		attendees = append(attendees, normalizeMember(event.ID, m))
	}

	if err := s.eventRepo.Upsert(ctx, event); err != nil {
		return nil, &domain.ImportError{EventID: eventID, Err: err}
	}
	if err := s.attendeeRepo.Replace(ctx, event.ID, attendees); err != nil {
		return nil, &domain.ImportError{EventID: eventID, Err: err}
	}

	event.Attendees = attendees
	s.logger.Info("event snapshot imported", "event_id", event.ID, "attendees", len(attendees))
	return event, nil
}
