// Package export runs a batch export: it selects shared queries from the
// catalog of one data source, executes them through the asynchronous
// protocol, streams their rows into an ingestion policy and records the
// run's metrics, manifest and completion event.
package export

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/inquire/adapter"
	"github.com/pithecene-io/inquire/inquire"
	"github.com/pithecene-io/inquire/lode"
	"github.com/pithecene-io/inquire/log"
	"github.com/pithecene-io/inquire/metrics"
	"github.com/pithecene-io/inquire/policy"
	"github.com/pithecene-io/inquire/types"
)

// finalizeTimeout bounds flush, logout and publishing after the run
// context is done.
const finalizeTimeout = 30 * time.Second

// Config configures a single export run.
type Config struct {
	// RunMeta is the run identity and lineage. RunMeta.LDS is the data
	// source exported from.
	RunMeta *types.RunMeta
	// Client speaks the backend API version of the run.
	Client inquire.Client
	// Username and Password are used to log in when the session carries
	// no token. A session with a token is never logged in or out.
	Username string
	Password string
	// Query is "all" (default) or one published query name.
	Query string
	// Exclude skips matching query names. Nil disables exclusion.
	Exclude *regexp.Regexp
	// Params are the submit parameters applied to every query.
	Params inquire.Params
	// Parallel bounds the number of queries in flight (default 1).
	Parallel int
	// Backoff paces the polling of each execution.
	Backoff inquire.Backoff
	// Policy receives the result rows.
	Policy policy.Policy
	// PolicyName is reported with the run.
	PolicyName string
	// RunStore persists the metrics record and manifest. Optional.
	RunStore lode.RunStore
	// StoragePath is reported in the completion event. Optional.
	StoragePath string
	// Adapter publishes the completion event. Optional.
	Adapter adapter.Adapter
	// Collector records run metrics. Optional, nil-safe.
	Collector *metrics.Collector
	// Logger is the run logger. Optional, nil-safe.
	Logger *log.Logger
}

// ErrInvalidConfig is returned by Run when the config cannot start a run.
var ErrInvalidConfig = errors.New("invalid export config")

func (c *Config) validate() error {
	switch {
	case c.RunMeta == nil:
		return fmt.Errorf("%w: run metadata is required", ErrInvalidConfig)
	case c.Client == nil:
		return fmt.Errorf("%w: client is required", ErrInvalidConfig)
	case c.Policy == nil:
		return fmt.Errorf("%w: policy is required", ErrInvalidConfig)
	case c.Parallel < 0:
		return fmt.Errorf("%w: parallel must be >= 0, got %d", ErrInvalidConfig, c.Parallel)
	}
	if err := c.RunMeta.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// QueryResult is the outcome of one shared query.
type QueryResult struct {
	Name        string            `json:"name"`
	QueryID     string            `json:"query_id,omitempty"`
	ExecutionID string            `json:"execution_id,omitempty"`
	Status      types.QueryStatus `json:"status"`
	Rows        int64             `json:"rows"`
	Polls       int               `json:"polls"`
	DurationMs  int64             `json:"duration_ms"`
	ErrorKind   string            `json:"error_kind,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Result is the outcome of an export run.
type Result struct {
	RunMeta     *types.RunMeta
	Outcome     *types.RunOutcome
	Queries     []QueryResult
	Started     time.Time
	Duration    time.Duration
	PolicyStats policy.Stats

	Selected  int
	Succeeded int
	Failed    int
	Skipped   int
	Rows      int64
}

// Run executes one export run end-to-end:
//  1. Log in when the session has no token
//  2. List the catalog and select queries
//  3. Run the selected queries with bounded parallelism; a failed query
//     is recorded and the run continues
//  4. Flush the policy and determine the outcome
//  5. Persist metrics and manifest, publish the completion event
//  6. Log out if this run logged in
//
// Run returns an error only for an invalid config; every other failure is
// reported through Result.Outcome.
func Run(ctx context.Context, cfg *Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	r := &runner{cfg: cfg, logger: cfg.Logger, lds: cfg.RunMeta.LDS}
	res := &Result{RunMeta: cfg.RunMeta, Started: time.Now()}
	cfg.Collector.IncRunStarted()

	r.logger.Info("starting export", map[string]any{
		"query":       queryOrAll(cfg.Query),
		"api_version": cfg.Client.Version(),
		"parallel":    r.parallel(),
	})

	loggedIn, err := r.login(ctx)
	if err == nil {
		err = r.runQueries(ctx, res)
	}
	if err != nil {
		res.Outcome = &types.RunOutcome{
			Status:    types.OutcomeFailed,
			Message:   err.Error(),
			ErrorKind: inquire.KindName(err),
		}
		if errors.Is(err, ErrQueryNotFound) {
			res.Outcome.ErrorKind = "selection"
		}
	} else {
		res.Outcome = DetermineOutcome(res.Succeeded, res.Failed, ctx.Err())
	}

	// Finalization runs even when ctx is done.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	r.flush(fctx, res)
	res.Duration = time.Since(res.Started)
	r.recordOutcome(res)
	r.persist(fctx, res)
	r.publish(fctx, res)

	if loggedIn {
		cfg.Client.Logout(fctx)
	}

	r.logger.Info("export finished", map[string]any{
		"outcome":     string(res.Outcome.Status),
		"selected":    res.Selected,
		"succeeded":   res.Succeeded,
		"failed":      res.Failed,
		"skipped":     res.Skipped,
		"rows":        res.Rows,
		"duration_ms": res.Duration.Milliseconds(),
	})
	return res, nil
}

type runner struct {
	cfg    *Config
	logger *log.Logger
	lds    string
}

func (r *runner) parallel() int {
	if r.cfg.Parallel <= 0 {
		return 1
	}
	return r.cfg.Parallel
}

func queryOrAll(q string) string {
	if q == "" {
		return AllQueries
	}
	return q
}

// login authenticates unless the session already has a token.
func (r *runner) login(ctx context.Context) (bool, error) {
	if r.cfg.Client.Session().HasToken() {
		return false, nil
	}
	if _, err := r.cfg.Client.Login(ctx, r.cfg.Username, r.cfg.Password); err != nil {
		r.cfg.Collector.IncAuthFailure()
		r.logger.Error("login failed", map[string]any{
			"error":      err.Error(),
			"error_kind": inquire.KindName(err),
		})
		return false, err
	}
	return true, nil
}

// runQueries lists the catalog, selects and runs the queries. Only
// catalog and selection errors are returned.
func (r *runner) runQueries(ctx context.Context, res *Result) error {
	catalog, err := r.cfg.Client.SharedQueries(ctx, r.lds)
	if err != nil {
		if errors.Is(err, inquire.ErrAuthentication) || errors.Is(err, inquire.ErrAuthorization) {
			r.cfg.Collector.IncAuthFailure()
		}
		r.logger.Error("catalog listing failed", map[string]any{
			"error":      err.Error(),
			"error_kind": inquire.KindName(err),
		})
		return err
	}

	selected, skipped, err := Select(catalog, r.cfg.Query, r.cfg.Exclude)
	if err != nil {
		r.logger.Error("query selection failed", map[string]any{
			"error":   err.Error(),
			"catalog": len(catalog),
		})
		return err
	}

	r.cfg.Collector.AddQueriesSelected(len(selected))
	res.Selected = len(selected)
	for _, q := range skipped {
		r.cfg.Collector.IncQuerySkipped()
		r.logger.Debug("query excluded", map[string]any{"query": q.PublishedName})
		res.Queries = append(res.Queries, QueryResult{
			Name:    q.PublishedName,
			QueryID: q.ID.String(),
			Status:  types.QuerySkipped,
		})
	}
	res.Skipped = len(skipped)

	results := make([]QueryResult, len(selected))
	var g errgroup.Group
	g.SetLimit(r.parallel())
	for i, q := range selected {
		g.Go(func() error {
			results[i] = r.runQuery(ctx, q)
			return nil
		})
	}
	_ = g.Wait()

	for _, qr := range results {
		switch qr.Status {
		case types.QuerySuccess:
			res.Succeeded++
			res.Rows += qr.Rows
		case types.QueryFailed:
			res.Failed++
		}
	}
	res.Queries = append(results, res.Queries...)
	return nil
}

// runQuery submits one query, waits for its final result and ingests the
// rows. Failures are returned in the result, never as an error.
func (r *runner) runQuery(ctx context.Context, q inquire.SharedQuery) QueryResult {
	started := time.Now()
	qr := QueryResult{Name: q.PublishedName, QueryID: q.ID.String()}
	qlog := r.logger.With(map[string]any{"query": q.PublishedName})

	fail := func(err error) QueryResult {
		kind := inquire.KindName(err)
		switch {
		case errors.Is(err, inquire.ErrNetworkTimeout):
			r.cfg.Collector.IncNetworkTimeout()
		case errors.Is(err, inquire.ErrAuthentication), errors.Is(err, inquire.ErrAuthorization):
			r.cfg.Collector.IncAuthFailure()
		}
		var se *lode.StorageError
		if errors.As(err, &se) {
			kind = "storage"
		}
		r.cfg.Collector.IncQueryFailed(kind)

		qr.Status = types.QueryFailed
		qr.ErrorKind = kind
		qr.Error = err.Error()
		qr.DurationMs = time.Since(started).Milliseconds()
		qlog.Error("query failed", map[string]any{
			"execution_id": qr.ExecutionID,
			"error":        err.Error(),
			"error_kind":   kind,
			"polls":        qr.Polls,
			"rows":         qr.Rows,
		})
		return qr
	}

	r.cfg.Collector.IncSubmit()
	_, poller, err := r.cfg.Client.Submit(ctx, r.lds, q.PublishedName, r.cfg.Params)
	if err != nil {
		return fail(err)
	}
	qr.ExecutionID = poller.ID()
	qlog.Debug("query submitted", map[string]any{
		"execution_id": qr.ExecutionID,
		"finished":     poller.Finished(),
	})

	err = poller.Wait(ctx, r.cfg.Backoff)
	qr.Polls = poller.Polls()
	r.cfg.Collector.AddPolls(qr.Polls)
	if err != nil {
		return fail(err)
	}

	ref := policy.QueryRef{Query: q.PublishedName, ExecutionID: qr.ExecutionID}
	// Rows still buffered for a failed result are dropped so the final
	// flush cannot persist a query reported as failed.
	abandon := func(err error) QueryResult {
		if n := r.cfg.Policy.Discard(ref); n > 0 {
			qlog.Warn("buffered rows discarded", map[string]any{
				"execution_id": qr.ExecutionID,
				"rows":         n,
			})
		}
		return fail(err)
	}
	rows := poller.Results()
	for rows.Next() {
		if err := r.cfg.Policy.IngestRow(ctx, ref, rows.Row()); err != nil {
			return abandon(fmt.Errorf("ingest row %d: %w", qr.Rows, err))
		}
		qr.Rows++
	}
	if err := rows.Err(); err != nil {
		return abandon(err)
	}
	if err := r.cfg.Policy.EndResult(ctx, ref); err != nil {
		return abandon(fmt.Errorf("end result: %w", err))
	}

	r.cfg.Collector.IncQuerySucceeded()
	qr.Status = types.QuerySuccess
	qr.DurationMs = time.Since(started).Milliseconds()
	qlog.Info("query exported", map[string]any{
		"execution_id": qr.ExecutionID,
		"rows":         qr.Rows,
		"polls":        qr.Polls,
		"duration_ms":  qr.DurationMs,
	})
	return qr
}

// flush writes buffered rows. A failed flush loses rows, so a run that
// would otherwise succeed is downgraded to failed.
func (r *runner) flush(ctx context.Context, res *Result) {
	err := r.cfg.Policy.Flush(ctx)
	res.PolicyStats = r.cfg.Policy.Stats()
	if err == nil {
		return
	}
	r.logger.Error("policy flush failed", map[string]any{"error": err.Error()})
	if res.Outcome.Status == types.OutcomeSuccess || res.Outcome.Status == types.OutcomePartial {
		res.Outcome = &types.RunOutcome{
			Status:    types.OutcomeFailed,
			Message:   fmt.Sprintf("policy flush failed: %v", err),
			ErrorKind: "storage",
		}
	}
}

func (r *runner) recordOutcome(res *Result) {
	c := r.cfg.Collector
	s := res.PolicyStats
	c.AbsorbPolicyStats(s.TotalRows, s.RowsPersisted, s.Batches)
	switch res.Outcome.Status {
	case types.OutcomeSuccess:
		c.IncRunCompleted()
	case types.OutcomePartial:
		c.IncRunPartial()
	default:
		c.IncRunFailed()
	}
}

// persist writes the metrics record and the run manifest. Failures are
// logged; the rows are already stored.
func (r *runner) persist(ctx context.Context, res *Result) {
	if r.cfg.RunStore == nil {
		return
	}
	snap := r.cfg.Collector.Snapshot()
	if err := r.cfg.RunStore.WriteMetrics(ctx, snap, time.Now()); err != nil {
		r.logger.Warn("metrics write failed", map[string]any{"error": err.Error()})
	}

	report := BuildRunReport(res, snap, r.cfg.PolicyName, ExitCode(res.Outcome))
	data, err := MarshalRunReport(report)
	if err == nil {
		err = r.cfg.RunStore.PutFile(ctx, ManifestFile, data)
	}
	if err != nil {
		r.logger.Warn("manifest write failed", map[string]any{"error": err.Error()})
	}
}

// publish sends the completion event. Failures are logged.
func (r *runner) publish(ctx context.Context, res *Result) {
	if r.cfg.Adapter == nil {
		return
	}
	event := &adapter.ExportCompletedEvent{
		ContractVersion:  types.ContractVersion,
		EventType:        adapter.EventTypeExportCompleted,
		RunID:            res.RunMeta.RunID,
		LDS:              r.lds,
		APIVersion:       r.cfg.Client.Version(),
		Day:              lode.DeriveDay(res.Started),
		Outcome:          string(res.Outcome.Status),
		StoragePath:      r.cfg.StoragePath,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Attempt:          res.RunMeta.Attempt,
		QueriesSelected:  res.Selected,
		QueriesSucceeded: res.Succeeded,
		QueriesFailed:    res.Failed,
		QueriesSkipped:   res.Skipped,
		RowCount:         res.Rows,
		DurationMs:       res.Duration.Milliseconds(),
	}
	if err := r.cfg.Adapter.Publish(ctx, event); err != nil {
		r.logger.Warn("adapter publish failed", map[string]any{"error": err.Error()})
	}
}
