package inquire

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle state of a Poller.
type State int

const (
	// StatePending means no terminal message has been received.
	StatePending State = iota
	// StateFinished means a terminal message was received and rows are final.
	StateFinished
	// StateFailed means the execution failed or its connection was lost.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// pollFunc fetches the next message of execution id.
type pollFunc func(ctx context.Context, ref queryRef, id string, timeout time.Duration) (Message, error)

// queryRef identifies the query a poller drives, for error context.
type queryRef struct {
	lds   string
	query string
}

// Poller drives one execution to a terminal state. All state is local to
// the instance; pollers of different executions never share anything
// except the session. A Poller must not be polled from more than one
// goroutine at a time, but its accessors are safe to call concurrently.
type Poller struct {
	poll    pollFunc
	ref     queryRef
	timeout time.Duration

	mu    sync.Mutex
	msg   Message
	id    string
	state State
	err   error
	polls int
}

func newPoller(first Message, ref queryRef, timeout time.Duration, poll pollFunc) *Poller {
	p := &Poller{
		poll:    poll,
		ref:     ref,
		timeout: timeout,
		msg:     first,
		id:      first.Common().ID,
	}
	if Terminal(first) {
		p.state = StateFinished
	}
	return p
}

// Poll advances the poller by at most one network call. Once the poller
// is Finished or Failed it returns the same state (and error) without
// touching the network.
//
// A Failure message moves the poller to Failed with an error wrapping
// ErrBackendQuery. A transport failure or cancellation also moves it to
// Failed: the server may already have advanced, so the execution must be
// resubmitted rather than polled again.
func (p *Poller) Poll(ctx context.Context) (State, error) {
	p.mu.Lock()
	state, err, id := p.state, p.err, p.id
	p.mu.Unlock()
	if state != StatePending {
		return state, err
	}

	msg, err := p.poll(ctx, p.ref, id, p.timeout)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	if msg != nil {
		if next := msg.Common().ID; next != "" && next != p.id {
			p.state = StateFailed
			p.err = &Error{
				Kind: ErrProtocol, Op: "poll", DataSource: p.ref.lds, Query: p.ref.query, ExecutionID: p.id,
				Message: fmt.Sprintf("execution id changed to %q", next),
			}
			return p.state, p.err
		}
		p.msg = msg
	}
	if err != nil {
		p.state = StateFailed
		p.err = err
		return p.state, p.err
	}
	if Terminal(msg) {
		p.state = StateFinished
	}
	return p.state, nil
}

// Wait polls until the poller leaves Pending, sleeping between calls
// according to b. The first check happens immediately. Cancellation of
// ctx aborts the wait; the remote execution is abandoned.
func (p *Poller) Wait(ctx context.Context, b Backoff) error {
	b = b.normalize()
	for attempt := 1; ; attempt++ {
		state, err := p.Poll(ctx)
		if err != nil {
			return err
		}
		if state == StateFinished {
			return nil
		}

		timer := time.NewTimer(b.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("wait %s: %w", p.ID(), ctx.Err())
		case <-timer.C:
		}
	}
}

// Finished reports whether the termination predicate holds.
func (p *Poller) Finished() bool {
	return p.State() == StateFinished
}

// State returns the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the terminal error of a Failed poller.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// ID returns the execution id.
func (p *Poller) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// Message returns the latest message received.
func (p *Poller) Message() Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.msg
}

// Polls returns the number of poll calls issued so far.
func (p *Poller) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

// DataSource returns the data source the query runs against.
func (p *Poller) DataSource() string {
	return p.ref.lds
}

// Query returns the shared query identifier.
func (p *Poller) Query() string {
	return p.ref.query
}

// Results returns the rows carried by the latest message. Before the
// poller is Finished these are whatever provisional rows the last message
// held, possibly none. It never fails; decode errors surface through
// Rows.Err.
func (p *Poller) Results() *Rows {
	return ResultRows(p.Message())
}
