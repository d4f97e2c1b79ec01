package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultServer is the host of the public RACE RESULT event API.
	DefaultServer = "events.raceresult.com"

	// DefaultBaseURL is DefaultServer over HTTPS.
	DefaultBaseURL = "https://" + DefaultServer

	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = "raceresult-go/0.1"
)

// HTTPDoer sends HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a RACE RESULT web API client. It owns one session; the zero
// session is logged out. A Client is safe for concurrent queries, but Login
// and Logout must not race with each other.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	userAgent  string
	now        func() time.Time

	mu       sync.RWMutex
	state    State
	token    string
	expires  time.Time
	signInAs string
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL for the API, e.g. "http://localhost:8080".
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithServer sets the API host and scheme.
func WithServer(host string, https bool) Option {
	scheme := "http"
	if https {
		scheme = "https"
	}
	return WithBaseURL(scheme + "://" + host)
}

// WithHTTPClient sets a custom transport.
func WithHTTPClient(httpClient HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithSession starts the client authenticated with a session token obtained
// elsewhere, e.g. by an earlier process.
func WithSession(token string) Option {
	return func(c *Client) {
		if token != "" && token != loggedOutToken {
			c.token = token
			c.state = StateAuthenticated
		}
	}
}

// New creates a new RACE RESULT API client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		userAgent:  DefaultUserAgent,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends an authenticated call and returns the raw response body.
//
// It fails with ErrNotLoggedIn before sending anything if there is no valid
// session. A response that reports an invalid session logs the client out
// and fails with an error matching ErrSessionExpired.
func (c *Client) Do(ctx context.Context, call Call) ([]byte, error) {
	req, err := c.BuildRequest(ctx, call)
	if err != nil {
		return nil, err
	}
	token, err := c.attach(req)
	if err != nil {
		return nil, err
	}

	body, err := c.send(req, call.Command)
	if err != nil {
		if IsInvalidSession(err) {
			c.expire(token)
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return nil, err
	}
	return body, nil
}

// GetJSON sends call and decodes the JSON response into result.
func (c *Client) GetJSON(ctx context.Context, call Call, result any) error {
	body, err := c.Do(ctx, call)
	if err != nil {
		return err
	}
	return decodeJSON(body, result)
}

func decodeJSON(body []byte, result any) error {
	if result == nil || len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// send executes req and returns the body of a 200 response. Any other status
// becomes an *APIError, and transport failures a *TransportError.
func (c *Client) send(req *http.Request, command string) ([]byte, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("HTTP request failed",
			slog.String("method", req.Method),
			slog.String("command", command),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, &TransportError{Op: req.Method + " " + command, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := parseError(resp, command)
		slog.Debug("HTTP request returned error",
			slog.String("method", req.Method),
			slog.String("command", command),
			slog.Int("status", resp.StatusCode),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, apiErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: req.Method + " " + command, Err: fmt.Errorf("reading response: %w", err)}
	}

	slog.Debug("HTTP request completed",
		slog.String("method", req.Method),
		slog.String("command", command),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return body, nil
}

// parseError extracts an APIError from an error response.
func parseError(resp *http.Response, command string) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return newAPIError(command, resp.StatusCode, errResp.Code, errResp.Error)
	}
	return newAPIError(command, resp.StatusCode, "", strings.TrimSpace(string(body)))
}

// errorResponse is the JSON structure for API errors.
type errorResponse struct {
	Error string `json:"Error"`
	Code  string `json:"Code"`
}
