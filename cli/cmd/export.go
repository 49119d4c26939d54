package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/inquire/cli/config"
	"github.com/pithecene-io/inquire/cli/render"
	"github.com/pithecene-io/inquire/export"
	"github.com/pithecene-io/inquire/inquire"
	"github.com/pithecene-io/inquire/iox"
	"github.com/pithecene-io/inquire/lode"
	"github.com/pithecene-io/inquire/log"
	"github.com/pithecene-io/inquire/metrics"
	"github.com/pithecene-io/inquire/transcript"
	"github.com/pithecene-io/inquire/types"
)

// ExportCommand returns the export command.
// Export is the only command that writes to storage.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:   "export",
		Usage:  "Export shared query results of one or more data sources",
		Flags:  exportFlags(),
		Action: exportAction,
	}
}

// runOptions are the per-invocation settings that never come from a
// config file.
type runOptions struct {
	runID       string
	attempt     int
	parentRunID string
	dryRun      bool
	quiet       bool
	report      string
	// suffix the report and transcript paths with the LDS when several
	// configs run in one invocation.
	perLDS bool
}

func runOptionsFrom(c *cli.Context, configs int) runOptions {
	return runOptions{
		runID:       c.String("run-id"),
		attempt:     c.Int("attempt"),
		parentRunID: c.String("parent-run-id"),
		dryRun:      c.Bool("dry-run"),
		quiet:       c.Bool("quiet"),
		report:      c.String("report"),
		perLDS:      configs > 1,
	}
}

// loadConfigs loads --config, or starts from an empty config so that
// flags alone can describe a run. Flags are merged into every config and
// every config is validated before anything runs.
func loadConfigs(c *cli.Context) ([]config.File, error) {
	var files []config.File
	if p := c.String("config"); p != "" {
		loaded, err := config.LoadAll(p)
		if err != nil {
			return nil, err
		}
		files = loaded
	} else {
		files = []config.File{{Config: &config.Config{}}}
	}

	var errs []error
	for _, f := range files {
		if err := applyFlags(c, f.Config); err != nil {
			return nil, err
		}
		if err := f.Config.Validate(f.Path); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return files, nil
}

func exportAction(c *cli.Context) error {
	files, err := loadConfigs(c)
	if err != nil {
		return cli.Exit(err.Error(), export.ExitCodeConfig)
	}
	if c.IsSet("run-id") && len(files) > 1 {
		return cli.Exit("--run-id requires a single config file", export.ExitCodeConfig)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), export.ExitCodeConfig)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptionsFrom(c, len(files))
	worst := export.ExitCodeSuccess
	var msgs []string
	for _, f := range files {
		report, code, err := runExport(ctx, f, opts)
		if err != nil {
			msgs = append(msgs, err.Error())
		}
		if report != nil && !opts.quiet {
			if err := r.Render(report); err != nil {
				return err
			}
		}
		worst = max(worst, code)
		if ctx.Err() != nil {
			break
		}
	}
	if worst == export.ExitCodeSuccess {
		return nil
	}
	return cli.Exit(strings.Join(msgs, "\n"), worst)
}

// runExport executes one config end-to-end and returns its report and
// exit code. The error is set only when the run could not start.
func runExport(ctx context.Context, f config.File, opts runOptions) (*export.RunReport, int, error) {
	cfg := f.Config
	runID := opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	apiVersion := cfg.APIVersion
	if apiVersion == 0 {
		apiVersion = 1
	}
	runMeta := &types.RunMeta{
		RunID:      runID,
		LDS:        cfg.LDS,
		APIVersion: apiVersion,
		Attempt:    opts.attempt,
	}
	if opts.parentRunID != "" {
		parent := opts.parentRunID
		runMeta.ParentRunID = &parent
	}
	if err := runMeta.Validate(); err != nil {
		return nil, export.ExitCodeConfig, fmt.Errorf("invalid run metadata: %w", err)
	}

	logger := log.NewLogger(runMeta)
	defer iox.DiscardErr(logger.Sync)

	exclude, err := excludePattern(cfg.Exclude)
	if err != nil {
		return nil, export.ExitCodeConfig, err
	}

	polName := policyName(cfg.Policy, opts.dryRun)
	start := time.Now()
	st, err := openStorage(ctx, cfg.Storage, lode.Config{
		Dataset: cfg.Storage.Dataset,
		LDS:     cfg.LDS,
		Day:     lode.DeriveDay(start),
		RunID:   runID,
		Policy:  polName,
	}, opts.dryRun)
	if err != nil {
		return nil, export.ExitCodeConfig, fmt.Errorf("failed to open storage: %w", err)
	}

	collector := metrics.NewCollector(polName, apiVersion, st.backend, runID, cfg.LDS)

	pol, err := newPolicy(polName, cfg.Policy, st, collector, logger)
	if err != nil {
		return nil, export.ExitCodeConfig, err
	}
	defer iox.CloseReport(pol, func(err error) {
		logger.Warn("failed to close policy", map[string]any{"error": err.Error()})
	})

	adp, err := newAdapter(cfg.Adapter)
	if err != nil {
		return nil, export.ExitCodeConfig, fmt.Errorf("invalid adapter config: %w", err)
	}
	if adp != nil {
		defer iox.DiscardClose(adp)
	}

	var (
		tw       *transcript.Writer
		observer inquire.Observer
	)
	if cfg.Transcript != "" {
		tw, err = transcript.Create(suffixPath(cfg.Transcript, cfg.LDS, opts.perLDS), runID)
		if err != nil {
			return nil, export.ExitCodeConfig, err
		}
		observer = tw.Observer()
		defer closeTranscript(tw, logger)
	}

	client, err := newClient(cfg, observer)
	if err != nil {
		return nil, export.ExitCodeConfig, err
	}

	result, err := export.Run(ctx, &export.Config{
		RunMeta:     runMeta,
		Client:      client,
		Username:    cfg.Username,
		Password:    cfg.Password,
		Query:       cfg.Query,
		Exclude:     exclude,
		Params:      exportParams(cfg),
		Parallel:    cfg.Parallel,
		Backoff:     backoffFrom(cfg.Poll),
		Policy:      pol,
		PolicyName:  polName,
		RunStore:    st.store,
		StoragePath: st.path,
		Adapter:     adp,
		Collector:   collector,
		Logger:      logger,
	})
	if err != nil {
		return nil, export.ExitCodeConfig, err
	}

	code := export.ExitCode(result.Outcome)
	report := export.BuildRunReport(result, collector.Snapshot(), polName, code)
	if opts.report != "" {
		if err := export.WriteRunReport(report, suffixPath(opts.report, cfg.LDS, opts.perLDS)); err != nil {
			logger.Warn("failed to write run report", map[string]any{"error": err.Error()})
		}
	}

	var runErr error
	if code != export.ExitCodeSuccess {
		runErr = fmt.Errorf("%s: %s", cfg.LDS, result.Outcome.Message)
	}
	return report, code, runErr
}

func closeTranscript(tw *transcript.Writer, logger *log.Logger) {
	if err := tw.Err(); err != nil {
		logger.Warn("transcript incomplete", map[string]any{"error": err.Error()})
	}
	iox.CloseReport(tw, func(err error) {
		logger.Warn("failed to close transcript", map[string]any{"error": err.Error()})
	})
}

// suffixPath inserts ".<lds>" before the extension of p when enabled.
// "-" is never suffixed.
func suffixPath(p, lds string, enabled bool) string {
	if !enabled || p == "-" {
		return p
	}
	ext := filepath.Ext(p)
	return strings.TrimSuffix(p, ext) + "." + lds + ext
}
