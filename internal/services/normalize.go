package services

import (
	"fieldsync/internal/domain"
)

// Normalization applies one explicit default table on every remote-to-local
// boundary crossing, so storage never receives an absent value:
//
//	absent string field      -> ""
//	absent boolean field     -> false
//	absent membership object -> all membership fields defaulted as above
//
// JSON decoding already zero-values missing scalars; these functions pin the
// rule down for the nested membership object and keep the mapping in one
// place instead of scattered across call sites.

func normalizeEvent(rec *domain.EventRecord) *domain.Event {
	if rec == nil {
		return &domain.Event{}
	}
	return &domain.Event{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		URL:         rec.URL,
		Type:        rec.Type,
		Channel:     rec.Channel,
		Workspace:   rec.Workspace,
		StartDate:   rec.StartDate,
		EndDate:     rec.EndDate,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func normalizeMember(eventID int, rec *domain.MemberRecord) *domain.Attendee {
	membership := rec.Membership
	if membership == nil {
		membership = &domain.MembershipRecord{}
	}
	return &domain.Attendee{
		EventID:           eventID,
		UserID:            rec.ID,
		FirstName:         rec.FirstName,
		LastName:          rec.LastName,
		Email:             rec.Email,
		Company:           rec.Company,
		Phone:             rec.Phone,
		Unsubscribed:      rec.Unsubscribed,
		ProgressionStatus: membership.ProgressionStatus,
		MembershipDate:    membership.MembershipDate,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}
