package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"coachsync/internal/domain"
	"coachsync/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/calendar/v3"
)

// ServiceAccountProvider issues calendar credentials from a service account
// key with domain-wide delegation, impersonating each trainer's owner email.
type ServiceAccountProvider struct {
	keyJSON []byte
	email   string

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
}

var _ domain.CredentialProvider = (*ServiceAccountProvider)(nil)

func NewServiceAccountProvider(credentialsFile string) (*ServiceAccountProvider, error) {
	// Читаем файл учетных данных сервисного аккаунта
	keyJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}
	return NewServiceAccountProviderFromJSON(keyJSON)
}

func NewServiceAccountProviderFromJSON(keyJSON []byte) (*ServiceAccountProvider, error) {
	conf, err := jwtConfig(keyJSON)
	if err != nil {
		return nil, err
	}
	return &ServiceAccountProvider{
		keyJSON: keyJSON,
		email:   conf.Email,
		sources: make(map[string]oauth2.TokenSource),
	}, nil
}

// ServiceAccountEmail is the client_email of the key, used when trainers share calendars with it.
func (p *ServiceAccountProvider) ServiceAccountEmail() string {
	return p.email
}

// CredentialFor returns a cached, self-refreshing token source acting as cfg.OwnerEmail.
// Without an owner email the service account acts as itself.
func (p *ServiceAccountProvider) CredentialFor(_ context.Context, cfg *models.CalendarSyncConfig) (oauth2.TokenSource, error) {
	if cfg == nil {
		return nil, errors.New("credential: nil sync config")
	}
	subject := strings.ToLower(strings.TrimSpace(cfg.OwnerEmail))

	p.mu.Lock()
	defer p.mu.Unlock()

	if ts, ok := p.sources[subject]; ok {
		return ts, nil
	}

	conf, err := jwtConfig(p.keyJSON)
	if err != nil {
		return nil, err
	}
	conf.Subject = subject

	// token refreshes happen long after the caller's context is gone
	ts := conf.TokenSource(context.Background())
	p.sources[subject] = ts
	return ts, nil
}

func jwtConfig(keyJSON []byte) (*jwt.Config, error) {
	conf, err := google.JWTConfigFromJSON(keyJSON, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return conf, nil
}
