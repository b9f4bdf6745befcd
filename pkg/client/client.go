// Package client talks to the back-office API on behalf of a signed-in user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/internal/logger"
	"github.com/mcclellann/backoffice/pkg/session"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

var (
	// ErrUnauthorized means the token is missing, expired or rejected. The
	// caller should send the user back to login.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRefreshFailed means a write succeeded but reloading the lists after
	// it did not.
	ErrRefreshFailed = errors.New("saved, but failed to reload data")
)

// APIError is any non-2xx response other than 401.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// StatusCode extracts the HTTP status from an *APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	session    *session.Session
	log        zerolog.Logger
}

// New creates a client. s may be nil for the login and register calls.
func New(baseURL string, timeout time.Duration, s *session.Session) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    s,
		log:        logger.WithComponent("client"),
	}, nil
}

// Session returns the session the client was built with.
func (c *Client) Session() *session.Session {
	return c.session
}

type request struct {
	method         string
	path           string
	query          url.Values
	body           any
	idempotencyKey string
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil && c.session.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
	if req.idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.log.Warn().Str("path", req.path).Msg("unauthorized, login required")
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func errorMessage(body []byte, status string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return status
}

func newIdempotencyKey() string {
	return uuid.NewString()
}
