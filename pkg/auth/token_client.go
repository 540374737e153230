package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/apperrors"
	"github.com/sindit-io/kgsync/pkg/logging"
)

const tokenEndpoint = "token"

// TokenClient exchanges username and password for a backend access token.
type TokenClient struct {
	httpClient *http.Client
	apiURL     string
	logger     *zap.Logger
}

// NewTokenClient creates a token client for the backend at apiURL.
func NewTokenClient(apiURL string, timeout time.Duration, logger *zap.Logger) *TokenClient {
	return &TokenClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiURL: strings.TrimSuffix(apiURL, "/"),
		logger: logger.Named("token-client"),
	}
}

// TokenResponse is the body returned by POST /token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Token is an access token and, when the token is a JWT, its expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the token expires within skew of now. Tokens with
// unknown expiry never expire locally.
func (t *Token) Expired(now time.Time, skew time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return true
	}
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(t.ExpiresAt)
}

// FetchToken posts the credentials as a form and returns the access token.
// A 401 is an AuthError; other non-200 statuses are APIErrors.
func (c *TokenClient) FetchToken(ctx context.Context, username, password string) (*Token, error) {
	endpoint := c.apiURL + "/" + tokenEndpoint

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Requesting access token",
		zap.String("url", logging.SanitizeURL(endpoint)),
		zap.String("username", username))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &apperrors.NetworkError{Endpoint: tokenEndpoint, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &apperrors.AuthError{Endpoint: tokenEndpoint, Message: "invalid username or password"}
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Token endpoint returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", logging.SanitizeBody(string(body))))
		return nil, &apperrors.APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   tokenEndpoint,
			Method:     http.MethodPost,
			Body:       logging.SanitizeBody(string(body)),
		}
	}

	var result TokenResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("empty access_token in token response")
	}

	token := &Token{AccessToken: result.AccessToken}
	if exp, ok := tokenExpiry(result.AccessToken); ok {
		token.ExpiresAt = exp
	}
	return token, nil
}
