package inquire

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout is the server execution/poll timeout used when Params
// leaves Timeout unset.
const DefaultTimeout = 30 * time.Second

// Accepted date layouts, selected by input length.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05Z"
)

// Params are the caller-facing execution parameters of a submit.
// From and To are both empty or both set.
type Params struct {
	// From is the inclusive lower bound, "2006-01-02" or "2006-01-02T15:04:05Z".
	From string
	// To is the upper bound in the same formats. Requires From.
	To string
	// PageSize is a server-side paging hint. Zero omits it.
	PageSize int
	// Timeout is the server execution/poll timeout, sent in whole seconds.
	// Zero means DefaultTimeout.
	Timeout time.Duration
}

// Validate checks the from/to pairing and numeric ranges without parsing
// dates.
func (p Params) Validate() error {
	if (p.From == "") != (p.To == "") {
		return paramError("from and to must both be set or both be empty")
	}
	if p.PageSize < 0 {
		return paramError(fmt.Sprintf("page size must be >= 0, got %d", p.PageSize))
	}
	if p.Timeout < 0 {
		return paramError(fmt.Sprintf("timeout must be >= 0, got %s", p.Timeout))
	}
	return nil
}

// timeout returns the effective timeout.
func (p Params) timeout() time.Duration {
	if p.Timeout == 0 {
		return DefaultTimeout
	}
	return p.Timeout
}

// TimeoutSeconds returns the effective timeout in whole seconds, rounded up.
func (p Params) TimeoutSeconds() int {
	return durationSeconds(p.timeout())
}

func durationSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

// ParseDate parses s as "2006-01-02" when it is ten characters long and
// as "2006-01-02T15:04:05Z" otherwise. The result is in UTC.
func ParseDate(s string) (time.Time, error) {
	layout := dateTimeLayout
	if len(s) == len(dateLayout) {
		layout = dateLayout
	}
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return time.Time{}, &Error{Kind: ErrDateParse, Op: "parse date", Message: strconv.Quote(s), Err: err}
	}
	return t, nil
}

func paramError(msg string) error {
	return &Error{Kind: ErrParameter, Op: "params", Message: msg}
}

// EpochMillis converts a date string accepted by ParseDate to a decimal
// epoch-millisecond string.
func EpochMillis(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(t.UnixMilli(), 10), nil
}

// param is one key/value pair. Submit parameters keep insertion order on
// the wire, which url.Values does not.
type param struct {
	key   string
	value string
}

type paramList []param

func (l paramList) encode() string {
	var b strings.Builder
	for i, p := range l {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

func (l paramList) get(key string) (string, bool) {
	for _, p := range l {
		if p.key == key {
			return p.value, true
		}
	}
	return "", false
}

// submitParams validates p and builds the ordered wire parameters:
// identifier, from, to, page size, timeout. pageSizeKey differs between
// API versions.
func (p Params) submitParams(identifier, pageSizeKey string) (paramList, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := paramList{{"identifier", identifier}}
	if p.From != "" {
		from, err := EpochMillis(p.From)
		if err != nil {
			return nil, err
		}
		to, err := EpochMillis(p.To)
		if err != nil {
			return nil, err
		}
		out = append(out, param{"from", from}, param{"to", to})
	}
	if p.PageSize > 0 {
		out = append(out, param{pageSizeKey, strconv.Itoa(p.PageSize)})
	}
	out = append(out, param{"timeout", strconv.Itoa(p.TimeoutSeconds())})
	return out, nil
}
