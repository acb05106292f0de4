// Package crm implements the RemoteGateway contract against the CRM's REST
// API. Every response shape is validated here at the boundary; callers never
// see a half-decoded payload.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"fieldsync/internal/domain"
)

type client struct {
	http        *http.Client
	baseURL     string
	identityURL string
}

// NewClient returns a gateway that calls the CRM at baseURL and its identity
// service at identityURL. Pass an http.Client with a timeout; a call that
// exceeds it surfaces as a RemoteError.
func NewClient(httpClient *http.Client, baseURL, identityURL string) domain.RemoteGateway {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &client{
		http:        httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		identityURL: strings.TrimRight(identityURL, "/"),
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e apiError) String() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func joinErrors(errs []apiError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}

func (c *client) FetchEvent(ctx context.Context, eventID int, token string) (*domain.EventRecord, error) {
	const op = "fetch event"
	endpoint := fmt.Sprintf("%s/rest/asset/v1/program/%d.json?access_token=%s",
		c.baseURL, eventID, url.QueryEscape(token))

	var envelope struct {
		Success bool                 `json:"success"`
		Result  []domain.EventRecord `json:"result"`
		Errors  []apiError           `json:"errors"`
	}
	status, err := c.getJSON(ctx, endpoint, &envelope)
	if err != nil {
		return nil, &domain.RemoteError{Op: op, StatusCode: status, Err: err}
	}
	if !envelope.Success {
		return nil, &domain.RemoteError{Op: op, StatusCode: status, Err: fmt.Errorf("crm reported failure: %s", joinErrors(envelope.Errors))}
	}
	if len(envelope.Result) == 0 {
		return nil, &domain.RemoteError{Op: op, StatusCode: status, Err: fmt.Errorf("event %d not found in response", eventID)}
	}
	return &envelope.Result[0], nil
}

func (c *client) FetchMembers(ctx context.Context, eventID int, token string, fields []string) ([]*domain.MemberRecord, error) {
	const op = "fetch members"
	params := url.Values{}
	params.Set("access_token", token)
	if len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}
	endpoint := fmt.Sprintf("%s/rest/v1/leads/programs/%d.json?%s", c.baseURL, eventID, params.Encode())

	var envelope struct {
		Success bool                   `json:"success"`
		Result  []*domain.MemberRecord `json:"result"`
		Errors  []apiError             `json:"errors"`
	}
	status, err := c.getJSON(ctx, endpoint, &envelope)
	if err != nil {
		return nil, &domain.RemoteError{Op: op, StatusCode: status, Err: err}
	}
	if !envelope.Success {
		return nil, &domain.RemoteError{Op: op, StatusCode: status, Err: fmt.Errorf("crm reported failure: %s", joinErrors(envelope.Errors))}
	}
	return envelope.Result, nil
}

func (c *client) UpsertLead(ctx context.Context, token, partition string, lead *domain.LeadInput) (*domain.LeadResult, error) {
	const op = "upsert lead"
	endpoint := fmt.Sprintf("%s/rest/v1/leads.json?access_token=%s", c.baseURL, url.QueryEscape(token))
	payload := map[string]interface{}{
		"action":        "createOrUpdate",
		"partitionName": partition,
		"lookupField":   "email",
		"input":         []*domain.LeadInput{lead},
	}

	var envelope struct {
		Success bool                `json:"success"`
		Result  []domain.LeadResult `json:"result"`
		Errors  []apiError          `json:"errors"`
	}
	status, err := c.postJSON(ctx, endpoint, payload, &envelope)
	if err != nil {
		return nil, &domain.RemoteError{Op: op, StatusCode: status, Err: err}
	}
	if !envelope.Success {
		return nil, &domain.RemoteError{Op: op, StatusCode: status, Err: fmt.Errorf("crm reported failure: %s", joinErrors(envelope.Errors))}
	}
	if len(envelope.Result) == 0 || envelope.Result[0].ID == 0 {
		return nil, &domain.RemoteError{Op: op, StatusCode: status, Err: fmt.Errorf("no lead id in response")}
	}
	return &envelope.Result[0], nil
}

func (c *client) ChangeMemberStatus(ctx context.Context, eventID int, statusName string, leadID int, token string) error {
	const op = "change member status"
	endpoint := fmt.Sprintf("%s/rest/v1/programs/%d/members/status.json?access_token=%s",
		c.baseURL, eventID, url.QueryEscape(token))
	payload := map[string]interface{}{
		"statusName": statusName,
		"input":      []map[string]int{{"leadId": leadID}},
	}

	var envelope struct {
		Success bool       `json:"success"`
		Errors  []apiError `json:"errors"`
	}
	status, err := c.postJSON(ctx, endpoint, payload, &envelope)
	if err != nil {
		return &domain.RemoteError{Op: op, StatusCode: status, Err: err}
	}
	if !envelope.Success {
		return &domain.RemoteError{Op: op, StatusCode: status, Err: fmt.Errorf("crm reported failure: %s", joinErrors(envelope.Errors))}
	}
	return nil
}

func (c *client) Token(ctx context.Context, clientID, clientSecret string) (*domain.TokenResponse, error) {
	const op = "fetch token"
	params := url.Values{}
	params.Set("grant_type", "client_credentials")
	params.Set("client_id", clientID)
	params.Set("client_secret", clientSecret)
	endpoint := fmt.Sprintf("%s/identity/oauth/token?%s", c.identityURL, params.Encode())

	var grant domain.TokenResponse
	status, err := c.getJSON(ctx, endpoint, &grant)
	if err != nil {
		return nil, &domain.RemoteError{Op: op, StatusCode: status, Err: err}
	}
	if grant.AccessToken == "" {
		return nil, &domain.RemoteError{Op: op, StatusCode: status, Err: fmt.Errorf("empty access token in response")}
	}
	return &grant, nil
}

// getJSON performs a GET and decodes the body into out. It returns the HTTP
// status code alongside any error so callers can attach it to a RemoteError.
func (c *client) getJSON(ctx context.Context, endpoint string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *client) postJSON(ctx context.Context, endpoint string, payload, out interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out interface{}) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
