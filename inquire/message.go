package inquire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Kind discriminates the message variants.
type Kind string

// Message kinds. The string values are the canonical wire tags.
const (
	KindStartExecution Kind = "StartExecutionMessage"
	KindPartialUpdate  Kind = "PartialUpdateMessage"
	KindFinalResult    Kind = "FinalResultMessage"
	KindFailure        Kind = "FailureMessage"
)

// TimeEstimate is the backend's prediction of how quickly a query completes.
type TimeEstimate string

// Time estimates. Only TimeEstimateImmediate short-circuits polling.
const (
	TimeEstimateImmediate TimeEstimate = "immediate"
	TimeEstimateFast      TimeEstimate = "fast"
	TimeEstimateSlow      TimeEstimate = "slow"
)

// Message is one of *StartExecution, *PartialUpdate, *FinalResult or
// *Failure. The set is closed.
type Message interface {
	// Kind returns the variant discriminant.
	Kind() Kind
	// Common returns the fields shared by every variant.
	Common() Header

	results() []json.RawMessage
}

// Header holds the fields shared by every message.
type Header struct {
	// ID is the execution id, stable for the life of the poll sequence.
	ID string `json:"id"`
	// LDS is the data source name.
	LDS string `json:"lds"`
	// Query is the query text the backend executes.
	Query string `json:"query"`
	// Error is set by the backend on failure messages.
	Error bool `json:"error"`
	// Time is the elapsed execution time in milliseconds.
	Time int64 `json:"time"`
}

// Elapsed returns Time as a duration.
func (h Header) Elapsed() time.Duration {
	return time.Duration(h.Time) * time.Millisecond
}

// ExecutionConfiguration is how the backend classified a submitted query.
type ExecutionConfiguration struct {
	CommandExecutionOnly      bool         `json:"commandExecutionOnly"`
	ExecuteCommandIteratively bool         `json:"executeCommandIteratively"`
	TimeEstimate              TimeEstimate `json:"timeEstimate"`
	LimitDuringExecution      bool         `json:"limitDuringExecution"`
}

// Progress reports how far an execution has advanced.
type Progress struct {
	SeenResults           int64   `json:"seenResults"`
	SeenSessions          int64   `json:"seenSessions"`
	TotalSessions         int64   `json:"totalSessions"`
	PagesProcessed        int     `json:"pagesProcessed"`
	EstimatedPages        int     `json:"estimatedPages"`
	LastExecutionTime     int64   `json:"lastExecutionTime"`
	MeanExecutionTime     float64 `json:"meanExecutionTime"`
	ExecutionTimeVariance float64 `json:"executionTimeVariance"`
}

// OrderKey is one ordering column of an aggregation.
type OrderKey struct {
	Key       string `json:"key"`
	Direction string `json:"direction"` // ASCENDING or DESCENDING
}

// AggregationMethod tells how partial results relate to earlier ones.
type AggregationMethod struct {
	Method    string     `json:"method"` // APPEND, REPLACE or UPSERT
	OrderKeys []OrderKey `json:"orderKeys"`
	Keys      []string   `json:"keys"`
}

// StartExecution is returned when the backend accepts a query.
type StartExecution struct {
	Header
	ExecutionConfiguration ExecutionConfiguration `json:"executionConfiguration"`
	Phases                 string                 `json:"phases"`
	MainCommand            string                 `json:"mainCommand"`

	rows []json.RawMessage
}

// PartialUpdate is an intermediate snapshot. Its rows are provisional.
type PartialUpdate struct {
	Header
	Progress          Progress          `json:"progress"`
	AggregationMethod AggregationMethod `json:"aggregationMethod"`

	rows []json.RawMessage
}

// FinalResult carries the authoritative, complete row set.
type FinalResult struct {
	Header

	rows []json.RawMessage
}

// Failure is a terminal backend error. It carries no rows.
type Failure struct {
	Header
	ErrorMessage string `json:"errorMessage"`
	Stacktrace   string `json:"stacktrace"`
}

func (*StartExecution) Kind() Kind { return KindStartExecution }
func (*PartialUpdate) Kind() Kind  { return KindPartialUpdate }
func (*FinalResult) Kind() Kind    { return KindFinalResult }
func (*Failure) Kind() Kind        { return KindFailure }

func (m *StartExecution) Common() Header { return m.Header }
func (m *PartialUpdate) Common() Header  { return m.Header }
func (m *FinalResult) Common() Header    { return m.Header }
func (m *Failure) Common() Header        { return m.Header }

func (m *StartExecution) results() []json.RawMessage { return m.rows }
func (m *PartialUpdate) results() []json.RawMessage  { return m.rows }
func (m *FinalResult) results() []json.RawMessage    { return m.rows }
func (*Failure) results() []json.RawMessage          { return nil }

// Immediate reports whether the backend promised the complete result in
// this single response.
func (m *StartExecution) Immediate() bool {
	return m.ExecutionConfiguration.TimeEstimate == TimeEstimateImmediate
}

// ResultRows returns a fresh single-pass sequence over the rows carried by m.
func ResultRows(m Message) *Rows {
	if m == nil {
		return newRows(nil)
	}
	return newRows(m.results())
}

// Terminal reports whether m ends the poll sequence: a FinalResult or
// Failure, or a StartExecution with an immediate time estimate.
func Terminal(m Message) bool {
	switch v := m.(type) {
	case *FinalResult, *Failure:
		return true
	case *StartExecution:
		return v.Immediate()
	default:
		return false
	}
}

// tagTable maps accepted wire tags to kinds for one API version.
type tagTable map[string]Kind

var (
	// v1 accepts both the short and the class-name form.
	tagsV1 = tagTable{
		"start":                 KindStartExecution,
		"partial":               KindPartialUpdate,
		"final":                 KindFinalResult,
		"failure":               KindFailure,
		"StartExecutionMessage": KindStartExecution,
		"PartialUpdateMessage":  KindPartialUpdate,
		"FinalResultMessage":    KindFinalResult,
		"FailureMessage":        KindFailure,
	}

	tagsV2 = tagTable{
		"StartExecutionMessage": KindStartExecution,
		"PartialUpdateMessage":  KindPartialUpdate,
		"FinalResultMessage":    KindFinalResult,
		"FailureMessage":        KindFailure,
	}
)

type envelope struct {
	Type   *string         `json:"type"`
	Result json.RawMessage `json:"result"`
}

// decodeMessage reads the type discriminator first, then decodes the
// matching variant. Unknown fields are ignored.
func decodeMessage(data []byte, tags tagTable) (Message, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty message", ErrProtocol)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if env.Type == nil {
		return nil, fmt.Errorf("%w: missing type tag", ErrProtocol)
	}
	kind, ok := tags[*env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown message type %q", ErrProtocol, *env.Type)
	}

	var rows []json.RawMessage
	if kind != KindFailure {
		var err error
		rows, err = splitResult(env.Result)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProtocol, kind, err)
		}
	}

	var msg Message
	switch kind {
	case KindStartExecution:
		m := &StartExecution{rows: rows}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProtocol, kind, err)
		}
		msg = m
	case KindPartialUpdate:
		m := &PartialUpdate{rows: rows}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProtocol, kind, err)
		}
		msg = m
	case KindFinalResult:
		m := &FinalResult{rows: rows}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProtocol, kind, err)
		}
		msg = m
	case KindFailure:
		m := &Failure{}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProtocol, kind, err)
		}
		msg = m
	}
	return msg, nil
}
