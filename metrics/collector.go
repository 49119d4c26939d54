// Package metrics provides per-run metrics collection for export runs.
//
// The Collector accumulates counters during a single run. It is a leaf package
// with no internal dependencies. Row ingestion metrics are absorbed from
// policy.Stats at run completion rather than recorded live, avoiding double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all run metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Run lifecycle
	RunsStarted   int64
	RunsCompleted int64
	RunsPartial   int64
	RunsFailed    int64

	// Query lifecycle
	QueriesSelected  int64
	QueriesSucceeded int64
	QueriesFailed    int64
	QueriesSkipped   int64
	FailuresByKind   map[string]int64

	// Protocol
	Submits         int64
	Polls           int64
	NetworkTimeouts int64
	AuthFailures    int64

	// Ingestion (absorbed from policy.Stats at run completion)
	RowsReceived  int64
	RowsPersisted int64
	Batches       int64

	// Lode / Storage
	LodeWriteSuccess int64
	LodeWriteFailure int64

	// Dimensions (informational, set at construction)
	Policy         string
	APIVersion     int
	StorageBackend string
	RunID          string
	LDS            string
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates a Collector with dimension labels.
// policy, apiVersion and storageBackend are required; runID and lds are
// optional dimensions.
func NewCollector(policy string, apiVersion int, storageBackend, runID, lds string) *Collector {
	return &Collector{s: Snapshot{
		FailuresByKind: make(map[string]int64),
		Policy:         policy,
		APIVersion:     apiVersion,
		StorageBackend: storageBackend,
		RunID:          runID,
		LDS:            lds,
	}}
}

func (c *Collector) add(fn func(s *Snapshot)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn(&c.s)
	c.mu.Unlock()
}

// --- Run lifecycle ---

// IncRunStarted records a run start.
func (c *Collector) IncRunStarted() { c.add(func(s *Snapshot) { s.RunsStarted++ }) }

// IncRunCompleted records a run where every selected query succeeded.
func (c *Collector) IncRunCompleted() { c.add(func(s *Snapshot) { s.RunsCompleted++ }) }

// IncRunPartial records a run where some queries failed.
func (c *Collector) IncRunPartial() { c.add(func(s *Snapshot) { s.RunsPartial++ }) }

// IncRunFailed records a run that failed as a whole.
func (c *Collector) IncRunFailed() { c.add(func(s *Snapshot) { s.RunsFailed++ }) }

// --- Query lifecycle ---

// AddQueriesSelected records how many catalog entries were selected to run.
func (c *Collector) AddQueriesSelected(n int) {
	c.add(func(s *Snapshot) { s.QueriesSelected += int64(n) })
}

// IncQuerySucceeded records a query whose rows were stored.
func (c *Collector) IncQuerySucceeded() { c.add(func(s *Snapshot) { s.QueriesSucceeded++ }) }

// IncQueryFailed records a failed query, classified by error kind.
func (c *Collector) IncQueryFailed(kind string) {
	c.add(func(s *Snapshot) {
		s.QueriesFailed++
		if kind != "" {
			s.FailuresByKind[kind]++
		}
	})
}

// IncQuerySkipped records a query excluded by the selection rules.
func (c *Collector) IncQuerySkipped() { c.add(func(s *Snapshot) { s.QueriesSkipped++ }) }

// --- Protocol ---

// IncSubmit records a submit call.
func (c *Collector) IncSubmit() { c.add(func(s *Snapshot) { s.Submits++ }) }

// IncPoll records a poll call.
func (c *Collector) IncPoll() { c.add(func(s *Snapshot) { s.Polls++ }) }

// AddPolls records n poll calls made by one poller.
func (c *Collector) AddPolls(n int) { c.add(func(s *Snapshot) { s.Polls += int64(n) }) }

// IncNetworkTimeout records a submit or poll call that timed out.
func (c *Collector) IncNetworkTimeout() { c.add(func(s *Snapshot) { s.NetworkTimeouts++ }) }

// IncAuthFailure records a login or authorization failure.
func (c *Collector) IncAuthFailure() { c.add(func(s *Snapshot) { s.AuthFailures++ }) }

// --- Lode / Storage ---
// Lode counters are per-call, not per-row. A single WriteRows call
// with N rows counts as 1 success. Per-row granularity is tracked
// separately by policy.Stats (rows_persisted_total).

// IncLodeWriteSuccess records a successful Lode write operation (per-call).
func (c *Collector) IncLodeWriteSuccess() { c.add(func(s *Snapshot) { s.LodeWriteSuccess++ }) }

// IncLodeWriteFailure records a failed Lode write operation (per-call).
func (c *Collector) IncLodeWriteFailure() { c.add(func(s *Snapshot) { s.LodeWriteFailure++ }) }

// --- Ingestion (absorbed from policy.Stats) ---

// AbsorbPolicyStats copies ingestion counters from policy.Stats into the collector.
// Called once after run completion with the final policy stats snapshot.
func (c *Collector) AbsorbPolicyStats(received, persisted, batches int64) {
	c.add(func(s *Snapshot) {
		s.RowsReceived = received
		s.RowsPersisted = persisted
		s.Batches = batches
	})
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.s
	s.FailuresByKind = make(map[string]int64, len(c.s.FailuresByKind))
	for k, v := range c.s.FailuresByKind {
		s.FailuresByKind[k] = v
	}
	return s
}
