package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/apperrors"
)

// stubTokens hands out numbered tokens so tests can tell renewals apart.
type stubTokens struct {
	issued  int32
	cleared int32
}

func (s *stubTokens) Token(ctx context.Context) (string, error) {
	if atomic.LoadInt32(&s.issued) == 0 {
		atomic.StoreInt32(&s.issued, 1)
	}
	return tokenName(atomic.LoadInt32(&s.issued)), nil
}

func (s *stubTokens) Renew(ctx context.Context) (string, error) {
	return tokenName(atomic.AddInt32(&s.issued, 1)), nil
}

func (s *stubTokens) Clear() { atomic.AddInt32(&s.cleared, 1) }

func tokenName(n int32) string {
	return "token-" + string(rune('0'+n))
}

func TestClient_Do_InjectsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), &stubTokens{}, zap.NewNop())
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/kg/nodes", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_Do_RenewsOnceOn401(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if r.Header.Get("Authorization") != "Bearer token-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tokens := &stubTokens{}
	client := NewClient(srv.Client(), tokens, zap.NewNop())
	hookCalls := 0
	client.OnUnauthorized(func() { hookCalls++ })

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL+"/kg/node", bytes.NewReader([]byte(`{"uri":"x"}`)))
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"uri":"x"}`, `{"uri":"x"}`}, bodies, "body must be replayed on retry")
	assert.Equal(t, 0, hookCalls)
}

func TestClient_Do_AuthErrorAfterFailedRenewal(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := &stubTokens{}
	client := NewClient(srv.Client(), tokens, zap.NewNop())
	hookCalls := 0
	client.OnUnauthorized(func() { hookCalls++ })

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/kg/nodes", nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	var authErr *apperrors.AuthError
	require.True(t, errors.As(err, &authErr), "expected AuthError, got %v", err)
	assert.True(t, errors.Is(err, apperrors.ErrNotAuthenticated))
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests), "exactly one renewal attempt")
	assert.Equal(t, 1, hookCalls)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens.cleared))
}

func TestClient_Do_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(&http.Client{Timeout: time.Second}, &stubTokens{}, zap.NewNop())
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url+"/kg/nodes", nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	var netErr *apperrors.NetworkError
	require.True(t, errors.As(err, &netErr), "expected NetworkError, got %v", err)
	assert.True(t, netErr.IsRetryable())
}

func TestClient_Do_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(srv.Client(), &stubTokens{}, zap.NewNop())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Do_RejectedCredentials(t *testing.T) {
	var calls int32
	srv := newTokenServer(t, &calls, func() string { return "unused" })
	source := NewTokenSource(NewTokenClient(srv.URL, time.Second, zap.NewNop()), "alice", "wrong", zap.NewNop())

	client := NewClient(srv.Client(), source, zap.NewNop())
	hookCalls := 0
	client.OnUnauthorized(func() { hookCalls++ })

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/kg/nodes", nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	assert.True(t, apperrors.IsAuth(err))
	assert.Equal(t, 1, hookCalls)
}
