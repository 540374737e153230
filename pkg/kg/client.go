// Package kg is the typed gateway to the knowledge graph backend. Every call
// builds a URL from an endpoint name and query parameters, goes through the
// authenticated fetcher and fails with an APIError on a non-2xx answer.
// Nothing here retries; callers decide.
package kg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/apperrors"
	"github.com/sindit-io/kgsync/pkg/auth"
	"github.com/sindit-io/kgsync/pkg/logging"
	"github.com/sindit-io/kgsync/pkg/uri"
)

// Client provides access to the knowledge graph backend API.
type Client struct {
	fetcher auth.Fetcher
	apiURL  string
	codec   *uri.Codec
	logger  *zap.Logger
}

// NewClient creates a gateway for the backend at apiURL.
func NewClient(fetcher auth.Fetcher, apiURL string, codec *uri.Codec, logger *zap.Logger) *Client {
	return &Client{
		fetcher: fetcher,
		apiURL:  apiURL,
		codec:   codec,
		logger:  logger.Named("kg"),
	}
}

// Codec returns the URI codec the client encodes node IDs with.
func (c *Client) Codec() *uri.Codec {
	return c.codec
}

// get issues a GET and decodes the JSON answer into out (when non-nil).
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return decodeBody(resp, endpoint, out)
}

// post issues a POST with body encoded as JSON.
func (c *Client) post(ctx context.Context, endpoint string, query url.Values, body, out any) error {
	resp, err := c.do(ctx, http.MethodPost, endpoint, query, body)
	if err != nil {
		return err
	}
	return decodeBody(resp, endpoint, out)
}

func (c *Client) delete(ctx context.Context, endpoint string, query url.Values) error {
	resp, err := c.do(ctx, http.MethodDelete, endpoint, query, nil)
	if err != nil {
		return err
	}
	return decodeBody(resp, endpoint, nil)
}

// do sends the request and returns the response only when it is 2xx. The
// caller owns the body.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any) (*http.Response, error) {
	target, err := buildURL(c.apiURL, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Calling backend",
		zap.String("method", method),
		zap.String("url", logging.SanitizeURL(target)))

	resp, err := c.fetcher.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Backend returned error",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("body", logging.SanitizeBody(string(respBody))))
		return nil, &apperrors.APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Method:     method,
			Body:       logging.SanitizeBody(string(respBody)),
		}
	}
	return resp, nil
}

func decodeBody(resp *http.Response, endpoint string, out any) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}
	return nil
}

// buildURL constructs a URL by parsing the base and joining path segments.
func buildURL(baseURL string, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	segments := append([]string{u.Path}, pathSegments...)
	u.Path = path.Join(segments...)

	return u.String(), nil
}
