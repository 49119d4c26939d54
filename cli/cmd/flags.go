// Package cmd provides CLI commands for the inquire binary.
package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/inquire/cli/config"
	"github.com/pithecene-io/inquire/lode"
	"github.com/pithecene-io/inquire/policy"
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for select read-only commands (catalog, inspect, stats).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (catalog, inspect, stats only)",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// connectionFlags select the backend, data source and credentials.
func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML config file or a directory of config files",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Backend base URL",
		},
		&cli.StringFlag{
			Name:  "lds",
			Usage: "Logical data source to export from",
		},
		&cli.StringFlag{
			Name:  "username",
			Usage: "Login user name",
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "Login password",
			EnvVars: []string{"INQUIRE_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "api-token",
			Usage:   "Pre-issued API token (skips login and logout)",
			EnvVars: []string{"INQUIRE_API_TOKEN"},
		},
		&cli.IntFlag{
			Name:  "api-version",
			Usage: "Backend API version: 1 or 2",
			Value: 1,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Server-side execution timeout sent with each submit",
		},
		&cli.Float64Flag{
			Name:  "requests-per-second",
			Usage: "Client-side request rate limit (0 disables)",
		},
		&cli.IntFlag{
			Name:  "burst",
			Usage: "Rate limit burst size",
		},
	}
}

// storageFlags select where rows, metrics and manifests are written.
func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "storage-dataset",
			Usage: "Lode dataset ID",
			Value: lode.DefaultDataset,
		},
		&cli.StringFlag{
			Name:  "storage-backend",
			Usage: "Storage backend: fs or s3",
			Value: "fs",
		},
		&cli.StringFlag{
			Name:  "storage-path",
			Usage: "Storage path (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "storage-region",
			Usage: "AWS region for S3 backend (optional, uses default chain)",
		},
		&cli.StringFlag{
			Name:  "storage-endpoint",
			Usage: "Custom S3 endpoint for S3-compatible providers",
		},
		&cli.BoolFlag{
			Name:  "storage-s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
	}
}

// exportFlags configure one export run.
func exportFlags() []cli.Flag {
	flags := connectionFlags()
	flags = append(flags,
		&cli.StringFlag{
			Name:  "query",
			Usage: "Published query name, or \"all\"",
			Value: "all",
		},
		&cli.StringFlag{
			Name:  "exclude",
			Usage: "Regular expression of query names to skip (empty disables)",
		},
		&cli.StringFlag{
			Name:  "from",
			Usage: "Inclusive start date (YYYY-MM-DD or RFC 3339 UTC)",
		},
		&cli.StringFlag{
			Name:  "to",
			Usage: "End date (YYYY-MM-DD or RFC 3339 UTC)",
		},
		&cli.IntFlag{
			Name:  "page-size",
			Usage: "Server-side page size hint",
		},
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "Maximum queries in flight",
			Value: 1,
		},
		&cli.DurationFlag{
			Name:  "poll-initial",
			Usage: "Delay before the first poll",
		},
		&cli.DurationFlag{
			Name:  "poll-max",
			Usage: "Upper bound on the delay between polls",
		},
		&cli.Float64Flag{
			Name:  "poll-multiplier",
			Usage: "Growth factor of the poll delay",
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run ID (default: random UUID)",
		},
		&cli.IntFlag{
			Name:  "attempt",
			Usage: "Attempt number (starts at 1)",
			Value: 1,
		},
		&cli.StringFlag{
			Name:  "parent-run-id",
			Usage: "Parent run ID (required for attempts > 1)",
		},
		&cli.StringFlag{
			Name:  "policy",
			Usage: "Ingestion policy: strict or buffered",
			Value: policy.NameStrict,
		},
		&cli.IntFlag{
			Name:  "buffer-rows",
			Usage: "Max buffered rows (buffered policy)",
		},
		&cli.Int64Flag{
			Name:  "buffer-bytes",
			Usage: "Max buffer size in bytes (buffered policy)",
		},
	)
	flags = append(flags, storageFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Completion event adapter: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Adapter endpoint URL",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.StringFlag{
			Name:  "adapter-list",
			Usage: "Redis list that also receives every event",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as KEY=VALUE (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Adapter publish timeout",
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Adapter retry attempts",
		},
		&cli.StringFlag{
			Name:  "transcript",
			Usage: "Write a protocol transcript to this file",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write the run report as JSON to this path (\"-\" for stderr)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Run queries but discard rows and skip storage",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress result output",
		},
		FormatFlag,
		NoColorFlag,
	)
	return flags
}

// applyFlags merges explicitly set and default flag values into cfg.
func applyFlags(c *cli.Context, cfg *config.Config) error {
	cfg.Backend = resolveString(c, "backend", cfg.Backend)
	cfg.LDS = resolveString(c, "lds", cfg.LDS)
	cfg.Username = resolveString(c, "username", cfg.Username)
	cfg.Password = resolveString(c, "password", cfg.Password)
	cfg.APIToken = resolveString(c, "api-token", cfg.APIToken)
	cfg.APIVersion = resolveInt(c, "api-version", cfg.APIVersion)
	cfg.Timeout.Duration = resolveDuration(c, "timeout", cfg.Timeout.Duration)
	cfg.PageSize = resolveInt(c, "page-size", cfg.PageSize)
	cfg.From = resolveString(c, "from", cfg.From)
	cfg.To = resolveString(c, "to", cfg.To)
	cfg.Query = resolveString(c, "query", cfg.Query)
	if c.IsSet("exclude") {
		exclude := c.String("exclude")
		cfg.Exclude = &exclude
	}
	cfg.Parallel = resolveInt(c, "parallel", cfg.Parallel)

	cfg.Poll.Initial.Duration = resolveDuration(c, "poll-initial", cfg.Poll.Initial.Duration)
	cfg.Poll.Max.Duration = resolveDuration(c, "poll-max", cfg.Poll.Max.Duration)
	cfg.Poll.Multiplier = resolveFloat(c, "poll-multiplier", cfg.Poll.Multiplier)
	cfg.Poll.RequestsPerSecond = resolveFloat(c, "requests-per-second", cfg.Poll.RequestsPerSecond)
	cfg.Poll.Burst = resolveInt(c, "burst", cfg.Poll.Burst)

	cfg.Policy.Name = resolveString(c, "policy", cfg.Policy.Name)
	cfg.Policy.BufferRows = resolveInt(c, "buffer-rows", cfg.Policy.BufferRows)
	cfg.Policy.BufferBytes = resolveInt64(c, "buffer-bytes", cfg.Policy.BufferBytes)

	applyStorageFlags(c, &cfg.Storage)

	cfg.Adapter.Type = resolveString(c, "adapter", cfg.Adapter.Type)
	cfg.Adapter.URL = resolveString(c, "adapter-url", cfg.Adapter.URL)
	cfg.Adapter.Channel = resolveString(c, "adapter-channel", cfg.Adapter.Channel)
	cfg.Adapter.List = resolveString(c, "adapter-list", cfg.Adapter.List)
	cfg.Adapter.Timeout.Duration = resolveDuration(c, "adapter-timeout", cfg.Adapter.Timeout.Duration)
	if c.IsSet("adapter-retries") {
		retries := c.Int("adapter-retries")
		cfg.Adapter.Retries = &retries
	}
	headers, err := parseHeaders(c.StringSlice("adapter-header"))
	if err != nil {
		return err
	}
	if len(headers) > 0 && cfg.Adapter.Headers == nil {
		cfg.Adapter.Headers = make(map[string]string, len(headers))
	}
	for k, v := range headers {
		cfg.Adapter.Headers[k] = v
	}

	cfg.Transcript = resolveString(c, "transcript", cfg.Transcript)
	return nil
}

func applyStorageFlags(c *cli.Context, s *config.StorageConfig) {
	s.Dataset = resolveString(c, "storage-dataset", s.Dataset)
	s.Backend = resolveString(c, "storage-backend", s.Backend)
	s.Path = resolveString(c, "storage-path", s.Path)
	s.Region = resolveString(c, "storage-region", s.Region)
	s.Endpoint = resolveString(c, "storage-endpoint", s.Endpoint)
	s.S3PathStyle = resolveBool(c, "storage-s3-path-style", s.S3PathStyle)
}

// parseHeaders parses KEY=VALUE pairs.
func parseHeaders(pairs []string) (map[string]string, error) {
	headers := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q: expected KEY=VALUE", p)
		}
		headers[k] = v
	}
	return headers, nil
}
