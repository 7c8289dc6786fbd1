// Package apiclient is the authenticated client for the Mi Chame backend.
//
// client.go -- Request executor: bearer attach, envelope normalization, and a
// single retry after refreshing the access token on 401.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/michame/console/internal/models"
)

// SessionExpiredMessage is the envelope error returned when a 401 cannot be recovered.
const SessionExpiredMessage = "Session expired"

// LoginPath is where the navigator is sent after an unrecoverable 401.
const LoginPath = "/login"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// ErrSessionExpired is returned by Do when a 401 could not be recovered by refreshing.
// By the time it is returned the store has been cleared and the navigator called.
var ErrSessionExpired = errors.New("session expired")

// Store is the credential storage the client reads and writes.
// Satisfied by *credstore.Store.
type Store interface {
	AccessToken(ctx context.Context) string
	RefreshToken(ctx context.Context) string
	SetTokens(ctx context.Context, access, refresh string) error
	SetAccessToken(ctx context.Context, access string) error
	SetUser(ctx context.Context, u models.UserProfile) error
	Clear(ctx context.Context) error
}

// Navigator sends the user somewhere else, e.g. the login route.
// The web console marks its session expired; the CLI prints a hint.
type Navigator func(path string)

// Observer receives request and refresh outcomes. Satisfied by *metrics.Collector.
type Observer interface {
	RequestDone(method, outcome string, elapsed time.Duration)
	RefreshDone(ok bool)
	SessionExpired()
}

// Request outcomes reported to the Observer.
const (
	OutcomeSuccess        = "success"
	OutcomeFailure        = "failure"
	OutcomeTransportError = "transport_error"
	OutcomeParseError     = "parse_error"
	OutcomeSessionExpired = "session_expired"
)

// Client performs authenticated calls against one backend.
// Safe for concurrent use; concurrent 401s may each refresh independently.
type Client struct {
	baseURL    string
	store      Store
	httpClient *http.Client
	navigate   Navigator
	observer   Observer
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each network call. Zero keeps the transport default.
// Applied after all options, on a copy, so a client from WithHTTPClient is never mutated.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithNavigator sets the callback invoked with LoginPath when the session expires.
func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.navigate = n }
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New returns a Client for baseURL. baseURL must already be normalized
// (trailing slash stripped once by config); paths are appended verbatim.
func New(baseURL string, store Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		store:      store,
		httpClient: &http.Client{},
		navigate:   func(string) {},
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs one logical call and returns the final response body.
//
// A 401 on an authenticated call triggers one refresh. If that works the identical
// request is sent once more with the new token and its body is returned whatever
// the status. If it fails the store is cleared, the navigator is sent to LoginPath
// and ErrSessionExpired is returned.
func (c *Client) Do(ctx context.Context, method, path string, body any, header http.Header, includeAuth bool) ([]byte, error) {
	_, data, err := c.do(ctx, method, path, body, header, includeAuth)
	return data, err
}

// do is Do that also reports the final HTTP status.
func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header, includeAuth bool) (int, []byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	// One id per logical call; the retry reuses it so backend logs line up.
	reqID := newRequestID()

	token := ""
	if includeAuth {
		token = c.store.AccessToken(ctx)
	}

	status, respBody, err := c.send(ctx, method, path, payload, header, token, reqID)
	if err != nil {
		return status, nil, err
	}

	if status != http.StatusUnauthorized || !includeAuth {
		return status, respBody, nil
	}

	slog.Debug("api: 401, attempting token refresh", "method", method, "path", path, "request_id", reqID)
	if !c.Refresh(ctx) {
		c.expire(ctx)
		return status, nil, ErrSessionExpired
	}

	return c.send(ctx, method, path, payload, header, c.store.AccessToken(ctx), reqID)
}

// send issues a single HTTP request. token is attached as a bearer when non-empty.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, header http.Header, token, reqID string) (int, []byte, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}

	// Content-Type first so callers can override it; Authorization last so they can't.
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("api: request failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		slog.Warn("api: reading response failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// expire tears down local session state after an unrecoverable 401.
func (c *Client) expire(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		slog.Error("api: clearing credentials after failed refresh", "error", err)
	}
	slog.Info("api: session expired, redirecting to login")
	c.observer.SessionExpired()
	c.navigate(LoginPath)
}

// request runs Do and decodes the body into Envelope[T]. It never returns a Go error:
// transport, parse and session-expiry failures come back as Success=false.
func request[T any](ctx context.Context, c *Client, method, path string, body any, includeAuth bool) Envelope[T] {
	start := time.Now()

	status, raw, err := c.do(ctx, method, path, body, nil, includeAuth)
	if err != nil {
		env := Failure[T](err.Error())
		env.Outcome = OutcomeTransportError
		if errors.Is(err, ErrSessionExpired) {
			env = Failure[T](SessionExpiredMessage)
			env.Outcome = OutcomeSessionExpired
		}
		env.Status = status
		c.observer.RequestDone(method, env.Outcome, time.Since(start))
		return env
	}

	var env Envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		slog.Warn("api: malformed response", "method", method, "path", path, "status", status, "error", err)
		env = Failure[T](fmt.Sprintf("invalid response from server: %v", err))
		env.Outcome = OutcomeParseError
	} else if env.Success {
		env.Outcome = OutcomeSuccess
	} else {
		env.Outcome = OutcomeFailure
	}
	env.Status = status
	c.observer.RequestDone(method, env.Outcome, time.Since(start))
	return env
}

// newRequestID returns a UUIDv7 string, or "" if the generator fails.
func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return ""
	}
	return id.String()
}

type nopObserver struct{}

func (nopObserver) RequestDone(string, string, time.Duration) {}
func (nopObserver) RefreshDone(bool)                         {}
func (nopObserver) SessionExpired()                          {}
