package cmd

import (
	"context"
	"fmt"
	"time"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/inquire/cli/config"
	"github.com/pithecene-io/inquire/cli/reader"
	"github.com/pithecene-io/inquire/cli/render"
	"github.com/pithecene-io/inquire/lode"
)

// statsTimeout bounds the storage read of the stats command.
const statsTimeout = 30 * time.Second

// StatsCommand returns the stats command with subcommands.
// Stats returns aggregated, derived facts read from storage.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregated statistics of export runs",
		Subcommands: []*cli.Command{
			statsMetricsCommand(),
		},
	}
}

func statsMetricsCommand() *cli.Command {
	flags := append(ReadOnlyFlags(),
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Config file to read storage settings from"},
		&cli.StringFlag{Name: "run-id", Usage: "Read metrics for specific run ID"},
		&cli.StringFlag{Name: "lds", Usage: "Filter by data source partition"},
	)
	flags = append(flags, storageFlags()...)
	return &cli.Command{
		Name:   "metrics",
		Usage:  "Show the latest run metrics record (run lifecycle, queries, protocol, storage)",
		Flags:  flags,
		Action: statsMetricsAction,
	}
}

func statsMetricsAction(c *cli.Context) error {
	var cfg *config.Config
	if p := c.String("config"); p != "" {
		loaded, err := config.Load(p)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		cfg = loaded
	}

	storage := configVal(cfg, func(c *config.Config) config.StorageConfig { return c.Storage })
	applyStorageFlags(c, &storage)
	lds := resolveString(c, "lds", configVal(cfg, func(c *config.Config) string { return c.LDS }))

	if storage.Path == "" {
		return cli.Exit("--storage-path is required (or storage.path in --config)", 1)
	}

	ctx, cancel := context.WithTimeout(c.Context, statsTimeout)
	defer cancel()

	ds, err := buildReadDataset(ctx, storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage reader: %w", err)
	}

	record, err := lode.QueryLatestMetrics(ctx, ds, c.String("run-id"), lds)
	if err != nil {
		return fmt.Errorf("failed to read metrics from Lode: %w", err)
	}

	snapshot, err := reader.ParseMetricsRecord(record)
	if err != nil {
		return fmt.Errorf("failed to parse metrics record: %w", err)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_metrics", snapshot)
	}

	return r.Render(snapshot)
}

// buildReadDataset opens the Lode dataset for reading.
func buildReadDataset(ctx context.Context, s config.StorageConfig) (lodelibrary.Dataset, error) {
	dataset := s.Dataset
	if dataset == "" {
		dataset = lode.DefaultDataset
	}
	switch s.Backend {
	case "fs", "":
		return lode.NewReadDatasetFS(dataset, s.Path)
	case "s3":
		bucket, prefix := lode.ParseS3Path(s.Path)
		return lode.NewReadDatasetS3(ctx, dataset, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       s.Region,
			Endpoint:     s.Endpoint,
			UsePathStyle: s.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (must be fs or s3)", s.Backend)
	}
}
