// Package inquire implements the asynchronous shared-query execution
// protocol of the Inquire backend: session handling, the shared query
// catalog, submission of named queries and polling of their executions
// until a terminal message arrives.
//
// A Client is selected once per API version by New and hides the wire
// differences between versions:
//
//	sess, _ := inquire.NewSession("https://backend.example.com")
//	c, err := inquire.New(1, sess)
//	if err != nil { ... }
//	_, poller, err := c.Submit(ctx, "lds", "DailyVisits", inquire.Params{From: "2022-01-01", To: "2022-01-31"})
//	if err != nil { ... }
//	if err := poller.Wait(ctx, inquire.DefaultBackoff()); err != nil { ... }
//	rows := poller.Results()
//
// The core never retries. Every failure is an *Error classified by one of
// the sentinel kinds.
package inquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client is the version-agnostic contract of one backend API version.
type Client interface {
	// Version returns the API version the client speaks.
	Version() int
	// Session returns the underlying session.
	Session() *Session
	// Login authenticates and stores the returned token on the session.
	Login(ctx context.Context, username, password string) (string, error)
	// Logout invalidates the token. Best effort, never fails, idempotent.
	Logout(ctx context.Context)
	// SharedQueries lists the published queries of a data source.
	SharedQueries(ctx context.Context, lds string) ([]SharedQuery, error)
	// Submit starts a named query and returns the first message and a
	// poller seeded with it. A Failure at submit time returns an error
	// and no poller.
	Submit(ctx context.Context, lds, identifier string, p Params) (Message, *Poller, error)
}

// Versions lists the implemented API versions.
var Versions = []int{1, 2}

// New returns the client for the given API version. Versions without an
// implementation fail with ErrUnsupportedVersion.
func New(version int, s *Session, opts ...Option) (Client, error) {
	if s == nil {
		return nil, &Error{Kind: ErrParameter, Op: "new client", Message: "session is required"}
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	base := wire{session: s, observer: o.observer}
	switch version {
	case 1:
		return &clientV1{wire: base}, nil
	case 2:
		return &clientV2{wire: base}, nil
	default:
		return nil, &Error{Kind: ErrUnsupportedVersion, Op: "new client", Message: fmt.Sprintf("version %d", version)}
	}
}

// ParseVersion parses "1", "v1", "2", "v2" and so on. It does not check
// that the version is implemented; New does.
func ParseVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "v"))
	if err != nil || v <= 0 {
		return 0, &Error{Kind: ErrUnsupportedVersion, Op: "parse version", Message: strconv.Quote(s)}
	}
	return v, nil
}

// Option configures a Client.
type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver registers fn to receive an Exchange for every submit and
// poll call. fn runs synchronously on the calling goroutine and must be
// safe for concurrent use when pollers run in parallel.
func WithObserver(fn Observer) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// Observer receives protocol exchanges.
type Observer func(Exchange)

// Exchange records one submit or poll call.
type Exchange struct {
	// Op is "submit" or "poll".
	Op          string
	DataSource  string
	Query       string
	ExecutionID string
	// Status is the HTTP status, zero when no response arrived.
	Status int
	// Kind is the decoded message kind, empty when decoding failed.
	Kind Kind
	// Body is the raw response body.
	Body     []byte
	Started  time.Time
	Duration time.Duration
	Err      error
}

// wire holds what every version shares: the session and the envelope
// handling of submit and poll responses.
type wire struct {
	session  *Session
	observer Observer
}

func (w *wire) Session() *Session {
	return w.session
}

// exchange performs a submit or poll call and parses the envelope.
// A Failure message is returned together with an ErrBackendQuery error.
func (w *wire) exchange(ctx context.Context, op string, r request, tags tagTable, ref queryRef, id string) (Message, error) {
	started := time.Now()
	resp, err := w.session.send(ctx, r)
	msg, err := parseEnvelope(resp, err, tags)
	if err != nil {
		kind := ErrProtocol
		if errors.Is(err, ErrNetworkTimeout) {
			kind = ErrNetworkTimeout
		}
		err = annotate(err, kind, op, ref, id)
	}

	if w.observer != nil {
		ex := Exchange{
			Op:          op,
			DataSource:  ref.lds,
			Query:       ref.query,
			ExecutionID: id,
			Started:     started,
			Duration:    time.Since(started),
			Err:         err,
		}
		if resp != nil {
			ex.Status = resp.status
			ex.Body = resp.body
		}
		if msg != nil {
			ex.Kind = msg.Kind()
			if ex.ExecutionID == "" {
				ex.ExecutionID = msg.Common().ID
			}
		}
		w.observer(ex)
	}
	return msg, err
}

// parseEnvelope maps the response status and body to a message.
func parseEnvelope(resp *response, sendErr error, tags tagTable) (Message, error) {
	if sendErr != nil {
		var e *Error
		switch {
		case errors.As(sendErr, &e):
			return nil, sendErr
		case errors.Is(sendErr, context.Canceled):
			return nil, &Error{Kind: context.Canceled}
		case errors.Is(sendErr, context.DeadlineExceeded):
			return nil, &Error{Kind: context.DeadlineExceeded}
		default:
			return nil, &Error{Kind: ErrNetworkTimeout, Err: sendErr}
		}
	}
	switch resp.status {
	case http.StatusNoContent, http.StatusForbidden:
		return nil, &Error{Kind: ErrAuthorization, Message: "user does not have sufficient rights to perform this operation"}
	case http.StatusUnauthorized:
		return nil, &Error{Kind: ErrAuthentication, Err: &StatusError{Code: resp.status, Body: snippet(resp.body)}}
	}

	msg, err := decodeMessage(resp.body, tags)
	if err != nil {
		if resp.status < 200 || resp.status > 299 {
			return nil, &Error{Kind: ErrProtocol, Err: &StatusError{Code: resp.status, Body: snippet(resp.body)}}
		}
		return nil, &Error{Kind: ErrProtocol, Err: err}
	}
	if f, ok := msg.(*Failure); ok {
		return f, &Error{Kind: ErrBackendQuery, ExecutionID: f.ID, Message: f.ErrorMessage, Stacktrace: f.Stacktrace}
	}
	if resp.status < 200 || resp.status > 299 {
		return nil, &Error{Kind: ErrProtocol, Err: &StatusError{Code: resp.status, Body: snippet(resp.body)}}
	}
	return msg, nil
}

// submit runs the shared submit flow against a version's endpoint.
func (w *wire) submit(ctx context.Context, lds, identifier string, p Params, build func(paramList) request, pageSizeKey string, tags tagTable, poll pollFunc) (Message, *Poller, error) {
	ref := queryRef{lds: lds, query: identifier}
	if lds == "" || identifier == "" {
		return nil, nil, &Error{Kind: ErrParameter, Op: "submit", DataSource: lds, Query: identifier, Message: "data source and query identifier are required"}
	}
	params, err := p.submitParams(identifier, pageSizeKey)
	if err != nil {
		return nil, nil, annotate(err, ErrParameter, "submit", ref, "")
	}

	r := build(params)
	r.timeout = p.timeout() + requestGrace
	msg, err := w.exchange(ctx, "submit", r, tags, ref, "")
	if err != nil {
		return nil, nil, err
	}
	if !Terminal(msg) && msg.Common().ID == "" {
		return msg, nil, &Error{Kind: ErrProtocol, Op: "submit", DataSource: lds, Query: identifier, Message: "non-terminal response carries no execution id"}
	}
	return msg, newPoller(msg, ref, p.timeout(), poll), nil
}
