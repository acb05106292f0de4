package services

import (
	"context"
	"sync"
	"time"

	"fieldsync/internal/domain"
)

// expiryMargin is subtracted from the grant lifetime so a token is refreshed
// before the CRM actually rejects it.
const expiryMargin = 60 * time.Second

type tokenProvider struct {
	gateway      domain.RemoteGateway
	clientID     string
	clientSecret string

	mu     sync.Mutex
	token  string
	expiry time.Time
	now    func() time.Time
}

// NewTokenProvider returns a provider that fetches client-credentials tokens
// through the gateway and caches them until shortly before expiry.
func NewTokenProvider(gateway domain.RemoteGateway, clientID, clientSecret string) domain.TokenProvider {
	return &tokenProvider{
		gateway:      gateway,
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

func (p *tokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Before(p.expiry) {
		return p.token, nil
	}

	grant, err := p.gateway.Token(ctx, p.clientID, p.clientSecret)
	if err != nil {
		return "", err
	}
	p.token = grant.AccessToken
	p.expiry = p.now().Add(time.Duration(grant.ExpiresIn)*time.Second - expiryMargin)
	return p.token, nil
}

func (p *tokenProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	p.expiry = time.Time{}
}
