package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// expirySkew renews a token slightly before the backend would reject it.
const expirySkew = 30 * time.Second

// TokenProvider supplies bearer tokens to the authenticated fetcher.
type TokenProvider interface {
	// Token returns a cached token, fetching one when none is valid.
	// An empty string means requests go out unauthenticated.
	Token(ctx context.Context) (string, error)
	// Renew discards the cached token and fetches a new one.
	Renew(ctx context.Context) (string, error)
	// Clear drops the cached token without fetching.
	Clear()
}

// TokenSource caches one access token for the configured credentials.
// Concurrent callers share a single in-flight fetch.
type TokenSource struct {
	client   *TokenClient
	username string
	password string
	logger   *zap.Logger

	mu    sync.RWMutex
	token *Token
	group singleflight.Group
	now   func() time.Time
}

// NewTokenSource creates a token source. With empty credentials it never
// calls the token endpoint.
func NewTokenSource(client *TokenClient, username, password string, logger *zap.Logger) *TokenSource {
	return &TokenSource{
		client:   client,
		username: username,
		password: password,
		logger:   logger.Named("token-source"),
		now:      time.Now,
	}
}

func (s *TokenSource) hasCredentials() bool {
	return s.username != "" && s.password != ""
}

func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if !s.hasCredentials() {
		return "", nil
	}

	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if !token.Expired(s.now(), expirySkew) {
		return token.AccessToken, nil
	}
	return s.fetch(ctx)
}

func (s *TokenSource) Renew(ctx context.Context) (string, error) {
	if !s.hasCredentials() {
		return "", nil
	}
	s.Clear()
	return s.fetch(ctx)
}

func (s *TokenSource) Clear() {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()
}

func (s *TokenSource) fetch(ctx context.Context) (string, error) {
	v, err, _ := s.group.Do("token", func() (any, error) {
		token, err := s.client.FetchToken(ctx, s.username, s.password)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.token = token
		s.mu.Unlock()

		if token.ExpiresAt.IsZero() {
			s.logger.Debug("Obtained access token without expiry")
		} else {
			s.logger.Debug("Obtained access token", zap.Time("expires_at", token.ExpiresAt))
		}
		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
