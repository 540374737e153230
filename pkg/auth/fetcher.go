package auth

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/apperrors"
	"github.com/sindit-io/kgsync/pkg/logging"
)

// Fetcher issues authenticated HTTP requests to the backend.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the authenticated fetcher. It injects the bearer token, renews it
// once on 401 and otherwise surfaces the 401 as an AuthError after running the
// unauthorized hooks.
type Client struct {
	httpClient *http.Client
	tokens     TokenProvider
	logger     *zap.Logger

	mu             sync.Mutex
	onUnauthorized []func()
}

// NewClient creates an authenticated fetcher on top of httpClient.
func NewClient(httpClient *http.Client, tokens TokenProvider, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger.Named("auth"),
	}
}

// OnUnauthorized registers a hook run when the backend rejects a renewed token.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
}

// Do sends req with a bearer token. Requests with a body must be replayable
// through req.GetBody for the 401 renewal to resend them.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := logging.SanitizeURL(req.URL.String())

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, c.credentialError(endpoint, err)
	}

	resp, err := c.send(req, token, endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	c.logger.Info("Backend rejected token, renewing", zap.String("url", endpoint))

	token, err = c.tokens.Renew(ctx)
	if err != nil {
		return nil, c.credentialError(endpoint, err)
	}

	retryReq, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err = c.send(retryReq, token, endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		return nil, c.unauthorized(endpoint, "backend rejected renewed token")
	}
	return resp, nil
}

func (c *Client) send(req *http.Request, token, endpoint string) (*http.Response, error) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("Backend request failed",
			zap.String("url", endpoint),
			zap.String("error", logging.SanitizeError(err)))
		return nil, &apperrors.NetworkError{Endpoint: endpoint, Cause: err}
	}
	return resp, nil
}

// credentialError maps a token fetch failure. Rejected credentials end the
// session; anything else is returned as is so it can be retried.
func (c *Client) credentialError(endpoint string, err error) error {
	if apperrors.IsAuth(err) {
		return c.unauthorized(endpoint, err.Error())
	}
	return fmt.Errorf("obtain access token: %w", err)
}

func (c *Client) unauthorized(endpoint, message string) error {
	c.tokens.Clear()

	c.mu.Lock()
	hooks := append([]func(){}, c.onUnauthorized...)
	c.mu.Unlock()

	c.logger.Warn("Session is no longer authenticated", zap.String("url", endpoint))
	for _, hook := range hooks {
		hook()
	}
	return &apperrors.AuthError{Endpoint: endpoint, Message: message}
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("cannot resend %s %s: body is not replayable", req.Method, req.URL.Path)
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
