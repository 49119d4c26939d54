package inquire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// requestGrace is added to the server-side timeout to derive the client
// deadline of a submit or poll call.
const requestGrace = 5 * time.Second

// defaultRequestTimeout bounds calls that carry no server-side timeout
// (login, logout, catalog).
const defaultRequestTimeout = 60 * time.Second

// Session owns the backend endpoint and the bearer-token credential.
// It is safe for concurrent use by multiple pollers.
type Session struct {
	endpoint *url.URL
	client   *http.Client
	limiter  *rate.Limiter

	mu    sync.RWMutex
	token string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(c *http.Client) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.client = c
		}
	}
}

// WithToken seeds the session with a pre-issued API token. Callers that
// supply a token own its lifecycle and skip Login/Logout.
func WithToken(token string) SessionOption {
	return func(s *Session) {
		s.token = token
	}
}

// WithRateLimit caps outbound requests to rps per second with the given
// burst, shared by every poller of the session. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) SessionOption {
	return func(s *Session) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewSession creates a session against the backend at endpoint, e.g.
// "https://inquire.example.com". Calls go to <endpoint>/rest.
func NewSession(endpoint string, opts ...SessionOption) (*Session, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: endpoint: %v", ErrParameter, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: endpoint %q must be an http(s) URL", ErrParameter, endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint %q has no host", ErrParameter, endpoint)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/rest"

	s := &Session{
		endpoint: u,
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Endpoint returns the REST base URL.
func (s *Session) Endpoint() string {
	return s.endpoint.String()
}

// Token returns the current bearer token, or "" when anonymous.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// HasToken reports whether a bearer token is set.
func (s *Session) HasToken() bool {
	return s.Token() != ""
}

// SetToken replaces the bearer token. An empty token makes calls anonymous.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// request describes one backend call.
type request struct {
	method string
	path   string
	query  paramList
	form   paramList
	json   any
	// timeout bounds the call; zero means defaultRequestTimeout.
	timeout time.Duration
}

type response struct {
	status int
	body   []byte
}

// send performs r. A call that runs past its own deadline or loses its
// connection returns an error wrapping ErrNetworkTimeout. Cancellation of
// ctx by the caller is returned as the context error.
func (s *Session) send(ctx context.Context, r request) (*response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			// Wait fails early when the caller's deadline cannot cover
			// the delay; report it as that deadline.
			if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
				err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	timeout := r.timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// r.path is already escaped.
	rel := strings.TrimLeft(r.path, "/")
	unescaped, err := url.PathUnescape(rel)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	u := *s.endpoint
	u.Path = s.endpoint.Path + "/" + unescaped
	u.RawPath = s.endpoint.EscapedPath() + "/" + rel
	u.RawQuery = r.query.encode()

	var body io.Reader
	contentType := ""
	switch {
	case r.json != nil:
		b, err := json.Marshal(r.json)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	case r.form != nil:
		body = strings.NewReader(r.form.encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(reqCtx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := s.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, err, timeout)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, err, timeout)
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

// transportError separates caller cancellation from request-level
// failures, which are all reported as ErrNetworkTimeout.
func transportError(parent context.Context, err error, timeout time.Duration) error {
	if perr := parent.Err(); perr != nil {
		return perr
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: ErrNetworkTimeout, Op: "request", Message: fmt.Sprintf("no response within %s", timeout)}
	}
	return &Error{Kind: ErrNetworkTimeout, Op: "request", Err: err}
}

// login posts credentials to path and stores the returned token.
func (s *Session) login(ctx context.Context, path, username, password string) (string, error) {
	op := "login"
	if username == "" || password == "" {
		return "", &Error{Kind: ErrAuthentication, Op: op, Message: "username and password are required"}
	}
	resp, err := s.send(ctx, request{
		method: http.MethodPost,
		path:   path,
		json:   map[string]string{"username": username, "password": password},
	})
	if err != nil {
		return "", &Error{Kind: ErrAuthentication, Op: op, Err: err}
	}
	if resp.status < 200 || resp.status > 299 {
		return "", &Error{Kind: ErrAuthentication, Op: op, Err: &StatusError{Code: resp.status, Body: snippet(resp.body)}}
	}
	token := parseToken(resp.body)
	if token == "" {
		return "", &Error{Kind: ErrAuthentication, Op: op, Message: "empty token in login response"}
	}
	s.SetToken(token)
	return token, nil
}

// logout posts to path and clears the token. Failures are ignored.
func (s *Session) logout(ctx context.Context, path string) {
	if !s.HasToken() {
		return
	}
	_, _ = s.send(ctx, request{method: http.MethodPost, path: path})
	s.SetToken("")
}

// parseToken accepts a bare token or a JSON string.
func parseToken(body []byte) string {
	b := bytes.TrimSpace(body)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return string(b)
}

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// snippet truncates a response body for error messages.
func snippet(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
