package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/inquire/cli/config"
	"github.com/pithecene-io/inquire/export"
	"github.com/pithecene-io/inquire/iox"
	"github.com/pithecene-io/inquire/log"
)

// ScheduleCommand returns the schedule command. It runs exports on cron
// schedules until interrupted.
func ScheduleCommand() *cli.Command {
	flags := exportFlags()
	flags = append(flags,
		&cli.StringFlag{
			Name:  "schedule",
			Usage: "Cron spec applied to every config (e.g. \"0 3 * * *\" or \"@daily\")",
		},
		&cli.BoolFlag{
			Name:  "run-now",
			Usage: "Run every export once at startup",
		},
	)
	return &cli.Command{
		Name:   "schedule",
		Usage:  "Run exports on a cron schedule",
		Flags:  flags,
		Action: scheduleAction,
	}
}

// cronLogger adapts a SugaredLogger to cron.Logger.
type cronLogger struct {
	s *log.SugaredLogger
}

var _ cron.Logger = cronLogger{}

// Info logs routine scheduler messages.
func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.With(keysAndValues...).Infof("%s", msg)
}

// Error logs scheduler errors.
func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.With(append(keysAndValues, "error", err.Error())...).Errorf("%s", msg)
}

// scheduledJob is one config bound to its cron spec.
type scheduledJob struct {
	file config.File
	spec string
}

func scheduleJobs(c *cli.Context, files []config.File) ([]scheduledJob, error) {
	jobs := make([]scheduledJob, 0, len(files))
	for _, f := range files {
		spec := resolveString(c, "schedule", f.Config.Schedule)
		if spec == "" {
			return nil, fmt.Errorf("%s: schedule is required (--schedule or schedule:)", f.Config.LDS)
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("%s: invalid schedule %q: %w", f.Config.LDS, spec, err)
		}
		jobs = append(jobs, scheduledJob{file: f, spec: spec})
	}
	return jobs, nil
}

func scheduleAction(c *cli.Context) error {
	if c.IsSet("run-id") {
		return cli.Exit("--run-id is not supported for scheduled exports", export.ExitCodeConfig)
	}
	files, err := loadConfigs(c)
	if err != nil {
		return cli.Exit(err.Error(), export.ExitCodeConfig)
	}
	jobs, err := scheduleJobs(c, files)
	if err != nil {
		return cli.Exit(err.Error(), export.ExitCodeConfig)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.NewLogger(nil).With(map[string]any{"component": "scheduler"})
	defer iox.DiscardErr(logger.Sync)

	opts := runOptionsFrom(c, len(files))
	opts.quiet = true

	cl := cronLogger{s: logger.Sugar()}
	cr := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	for _, j := range jobs {
		run := exportJob(ctx, j.file, opts, logger)
		if _, err := cr.AddFunc(j.spec, run); err != nil {
			return cli.Exit(fmt.Sprintf("%s: %v", j.file.Config.LDS, err), export.ExitCodeConfig)
		}
		logger.Info("export scheduled", map[string]any{"lds": j.file.Config.LDS, "schedule": j.spec})
		if c.Bool("run-now") {
			run()
		}
	}

	cr.Start()
	<-ctx.Done()
	logger.Info("scheduler stopping", nil)
	<-cr.Stop().Done()
	return nil
}

// exportJob returns the cron job of one config. Every invocation is a new
// run with its own run id.
func exportJob(ctx context.Context, f config.File, opts runOptions, logger *log.Logger) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		report, code, err := runExport(ctx, f, opts)
		fields := map[string]any{"lds": f.Config.LDS, "exit_code": code}
		if report != nil {
			fields["run_id"] = report.RunID
			fields["outcome"] = string(report.Outcome)
			fields["rows"] = report.Rows
		}
		if err != nil {
			fields["error"] = err.Error()
			logger.Warn("scheduled export finished with errors", fields)
			return
		}
		logger.Info("scheduled export finished", fields)
	}
}
