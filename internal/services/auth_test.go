package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldsync/internal/domain"
)

func TestTokenProvider_CachesUntilExpiry(t *testing.T) {
	gateway := &mockGateway{
		grant: &domain.TokenResponse{AccessToken: "tok-1", ExpiresIn: 3600},
	}
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	p := &tokenProvider{
		gateway:      gateway,
		clientID:     "id",
		clientSecret: "secret",
		now:          func() time.Time { return clock },
	}

	tok, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("expected tok-1, got %q", tok)
	}

	// Well within the grant lifetime: served from cache.
	clock = clock.Add(30 * time.Minute)
	gateway.grant = &domain.TokenResponse{AccessToken: "tok-2", ExpiresIn: 3600}
	tok, err = p.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "tok-1" {
		t.Errorf("expected cached tok-1, got %q", tok)
	}
	if gateway.tokenCalls != 1 {
		t.Errorf("expected 1 grant fetch, got %d", gateway.tokenCalls)
	}

	// Inside the refresh margin before actual expiry: refreshed.
	clock = clock.Add(30 * time.Minute)
	tok, err = p.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "tok-2" {
		t.Errorf("expected refreshed tok-2, got %q", tok)
	}
	if gateway.tokenCalls != 2 {
		t.Errorf("expected 2 grant fetches, got %d", gateway.tokenCalls)
	}
}

func TestTokenProvider_Invalidate(t *testing.T) {
	gateway := &mockGateway{
		grant: &domain.TokenResponse{AccessToken: "tok-1", ExpiresIn: 3600},
	}
	p := &tokenProvider{
		gateway: gateway,
		now:     time.Now,
	}

	if _, err := p.Token(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Invalidate()
	if _, err := p.Token(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gateway.tokenCalls != 2 {
		t.Errorf("expected a fresh grant after invalidation, got %d fetches", gateway.tokenCalls)
	}
}

func TestTokenProvider_GrantError(t *testing.T) {
	wantErr := &domain.RemoteError{Op: "fetch token", Err: errors.New("unexpected status 401")}
	gateway := &mockGateway{tokenErr: wantErr}
	p := &tokenProvider{gateway: gateway, now: time.Now}

	if _, err := p.Token(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected the gateway error, got %v", err)
	}
}
