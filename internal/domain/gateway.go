package domain

import (
	"context"
)

// RemoteGateway performs the authenticated CRM calls the sync core depends
// on. Implementations validate response shapes at the boundary; a malformed
// or non-success payload surfaces as a RemoteError, never as an undefined
// field in local storage.
type RemoteGateway interface {
	// FetchEvent returns the event (program) resource.
	FetchEvent(ctx context.Context, eventID int, token string) (*EventRecord, error)
	// FetchMembers returns the event's member list with the given lead
	// fields populated.
	FetchMembers(ctx context.Context, eventID int, token string, fields []string) ([]*MemberRecord, error)
	// UpsertLead creates or updates a lead in the given partition, keyed
	// by email. Returns the remote-assigned lead id.
	UpsertLead(ctx context.Context, token, partition string, lead *LeadInput) (*LeadResult, error)
	// ChangeMemberStatus moves a lead to the named progression status
	// within the event.
	ChangeMemberStatus(ctx context.Context, eventID int, statusName string, leadID int, token string) error
	// Token obtains an OAuth access token via client credentials.
	Token(ctx context.Context, clientID, clientSecret string) (*TokenResponse, error)
}

// EventRecord is the event resource as the CRM returns it.
type EventRecord struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Channel     string `json:"channel"`
	Workspace   string `json:"workspace"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

// MembershipRecord is the nested membership object on a member resource.
type MembershipRecord struct {
	AcquiredBy            bool   `json:"acquiredBy"`
	ID                    int    `json:"id"`
	IsExhausted           bool   `json:"isExhausted"`
	MembershipDate        string `json:"membershipDate"`
	ProgressionStatus     string `json:"progressionStatus"`
	ProgressionStatusType string `json:"progressionStatusType"`
	ReachedSuccess        bool   `json:"reachedSuccess"`
	UpdatedAt             string `json:"updatedAt"`
}

// MemberRecord is one lead in the event's member list. Membership may be
// absent; normalization supplies defaults before anything reaches storage.
type MemberRecord struct {
	ID           int               `json:"id"`
	FirstName    string            `json:"firstName"`
	LastName     string            `json:"lastName"`
	Email        string            `json:"email"`
	Company      string            `json:"company"`
	Phone        string            `json:"phone"`
	Unsubscribed bool              `json:"unsubscribed"`
	CreatedAt    string            `json:"createdAt"`
	UpdatedAt    string            `json:"updatedAt"`
	Membership   *MembershipRecord `json:"membership"`
}

// LeadInput is the record sent to the CRM's createOrUpdate lead endpoint.
type LeadInput struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Company      string `json:"company"`
	Phone        string `json:"phone"`
	Unsubscribed bool   `json:"unsubscribed"`
}

// LeadResult is the outcome of a lead upsert: the remote-assigned id and the
// CRM's status word (created, updated, skipped).
type LeadResult struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

// TokenResponse is the OAuth token grant.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenProvider hands out a valid access token, refreshing through the
// gateway when the cached one expires.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	// Invalidate drops the cached token. Used on sign-out.
	Invalidate()
}
