package inquire

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds. Use errors.Is(err, ErrXxx) to classify failures
// returned by a Client or Poller.
var (
	// ErrAuthentication indicates bad credentials or an unreachable login endpoint.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAuthorization indicates the backend refused the call (204/403).
	ErrAuthorization = errors.New("insufficient rights")

	// ErrParameter indicates invalid caller-supplied execution parameters.
	ErrParameter = errors.New("invalid parameter")

	// ErrDateParse indicates a malformed from/to date.
	ErrDateParse = errors.New("invalid date")

	// ErrCatalog indicates the shared query catalog could not be listed.
	ErrCatalog = errors.New("catalog unavailable")

	// ErrBackendQuery indicates a terminal Failure message from the backend.
	ErrBackendQuery = errors.New("query failed")

	// ErrNetworkTimeout indicates a submit or poll call exceeded its deadline
	// or lost its connection. Recoverable by a fresh submit.
	ErrNetworkTimeout = errors.New("network timeout")

	// ErrUnsupportedVersion indicates an API version without an implementation.
	ErrUnsupportedVersion = errors.New("unsupported api version")

	// ErrProtocol indicates a response that could not be decoded as a message.
	ErrProtocol = errors.New("protocol error")
)

// Error carries a failure kind together with the query context needed to
// log it and optionally resubmit.
type Error struct {
	// Kind is the sentinel error for classification.
	Kind error
	// Op is the operation that failed (login, catalog, submit, poll).
	Op string
	// DataSource is the LDS name, if any.
	DataSource string
	// Query is the shared query identifier, if any.
	Query string
	// ExecutionID is the server-assigned execution id, if known.
	ExecutionID string
	// Message is the server-provided error text for backend failures.
	Message string
	// Stacktrace is the server-provided stack trace for backend failures.
	Stacktrace string
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.DataSource != "" {
		fmt.Fprintf(&b, " lds=%s", e.DataSource)
	}
	if e.Query != "" {
		fmt.Fprintf(&b, " query=%q", e.Query)
	}
	if e.ExecutionID != "" {
		fmt.Fprintf(&b, " id=%s", e.ExecutionID)
	}
	fmt.Fprintf(&b, ": %v", e.Kind)
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// annotate fills the operation and query context of err. Errors that are
// not an *Error are wrapped with kind.
func annotate(err error, kind error, op string, ref queryRef, id string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		c := *e
		c.Op = op
		if c.DataSource == "" {
			c.DataSource = ref.lds
		}
		if c.Query == "" {
			c.Query = ref.query
		}
		if c.ExecutionID == "" {
			c.ExecutionID = id
		}
		return &c
	}
	return &Error{Kind: kind, Op: op, DataSource: ref.lds, Query: ref.query, ExecutionID: id, Err: err}
}

// KindOf returns the sentinel kind of err, or nil when err is not an *Error.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// KindName returns a short stable label for the kind of err, suitable for
// reports and metrics.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrAuthorization):
		return "authorization"
	case errors.Is(err, ErrParameter):
		return "parameter"
	case errors.Is(err, ErrDateParse):
		return "date_parse"
	case errors.Is(err, ErrCatalog):
		return "catalog"
	case errors.Is(err, ErrBackendQuery):
		return "backend_query"
	case errors.Is(err, ErrNetworkTimeout):
		return "network_timeout"
	case errors.Is(err, ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}
