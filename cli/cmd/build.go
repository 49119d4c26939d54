package cmd

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"

	"github.com/pithecene-io/inquire/adapter"
	"github.com/pithecene-io/inquire/adapter/redis"
	"github.com/pithecene-io/inquire/adapter/webhook"
	"github.com/pithecene-io/inquire/cli/config"
	"github.com/pithecene-io/inquire/export"
	"github.com/pithecene-io/inquire/inquire"
	"github.com/pithecene-io/inquire/lode"
	"github.com/pithecene-io/inquire/log"
	"github.com/pithecene-io/inquire/metrics"
	"github.com/pithecene-io/inquire/policy"
)

// storageNone is the metrics storage backend label of a dry run.
const storageNone = "none"

// newSession builds the HTTP session for cfg's backend.
func newSession(cfg *config.Config) (*inquire.Session, error) {
	var opts []inquire.SessionOption
	if cfg.Poll.RequestsPerSecond > 0 {
		opts = append(opts, inquire.WithRateLimit(cfg.Poll.RequestsPerSecond, cfg.Poll.Burst))
	}
	if cfg.APIToken != "" {
		opts = append(opts, inquire.WithToken(cfg.APIToken))
	}
	return inquire.NewSession(cfg.Backend, opts...)
}

// newClient builds the versioned protocol client. observer may be nil.
func newClient(cfg *config.Config, observer inquire.Observer) (inquire.Client, error) {
	s, err := newSession(cfg)
	if err != nil {
		return nil, err
	}
	version := cfg.APIVersion
	if version == 0 {
		version = 1
	}
	var opts []inquire.Option
	if observer != nil {
		opts = append(opts, inquire.WithObserver(observer))
	}
	return inquire.New(version, s, opts...)
}

func exportParams(cfg *config.Config) inquire.Params {
	return inquire.Params{
		From:     cfg.From,
		To:       cfg.To,
		PageSize: cfg.PageSize,
		Timeout:  cfg.Timeout.Duration,
	}
}

// backoffFrom overrides the default backoff with the non-zero poll settings.
func backoffFrom(p config.PollConfig) inquire.Backoff {
	b := inquire.DefaultBackoff()
	if p.Initial.Duration > 0 {
		b.Initial = p.Initial.Duration
	}
	if p.Max.Duration > 0 {
		b.Max = p.Max.Duration
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	return b
}

// excludePattern compiles the exclusion regexp: nil selects the default
// pattern and an empty string disables exclusion.
func excludePattern(exclude *string) (*regexp.Regexp, error) {
	switch {
	case exclude == nil:
		return export.DefaultExclude, nil
	case *exclude == "":
		return nil, nil
	}
	re, err := regexp.Compile(*exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern %q: %w", *exclude, err)
	}
	return re, nil
}

// storage is the opened storage of one run.
type storage struct {
	backend string
	client  lode.Client
	store   lode.RunStore
	path    string
}

// openStorage opens the Lode dataset for a run. A dry run opens nothing.
func openStorage(ctx context.Context, s config.StorageConfig, lc lode.Config, dryRun bool) (*storage, error) {
	if dryRun {
		return &storage{backend: storageNone}, nil
	}
	if lc.Dataset == "" {
		lc.Dataset = lode.DefaultDataset
	}

	backend := s.Backend
	if backend == "" {
		backend = "fs"
	}
	if s.Path == "" {
		return nil, errors.New("storage path is required (--storage-path or storage.path)")
	}

	var (
		client *lode.LodeClient
		where  string
		err    error
	)
	switch backend {
	case "fs":
		client, err = lode.NewLodeClient(lc, s.Path)
		if err == nil {
			where = filepath.Join(s.Path, filepath.FromSlash(client.FilePath(export.ManifestFile)))
		}
	case "s3":
		bucket, prefix := lode.ParseS3Path(s.Path)
		s3cfg := lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       s.Region,
			Endpoint:     s.Endpoint,
			UsePathStyle: s.S3PathStyle,
		}
		if err := s3cfg.Validate(); err != nil {
			return nil, err
		}
		client, err = lode.NewLodeS3Client(ctx, lc, s3cfg)
		if err == nil {
			where = "s3://" + path.Join(bucket, prefix, client.FilePath(export.ManifestFile))
		}
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (must be fs or s3)", backend)
	}
	if err != nil {
		return nil, err
	}

	return &storage{
		backend: backend,
		client:  client,
		store:   client,
		path:    where,
	}, nil
}

// policyName resolves the ingestion policy of a run. A dry run always
// uses the noop policy.
func policyName(cfg config.PolicyConfig, dryRun bool) string {
	switch {
	case dryRun:
		return policy.NameNoop
	case cfg.Name == "":
		return policy.NameStrict
	default:
		return cfg.Name
	}
}

// newPolicy wraps the storage client with instrumentation and builds the
// named policy. Without a storage client only the noop policy is valid.
func newPolicy(name string, cfg config.PolicyConfig, st *storage, collector *metrics.Collector, logger *log.Logger) (policy.Policy, error) {
	var sink policy.Sink
	if st.client != nil {
		sink = lode.NewInstrumentedSink(lode.NewSink(st.client), collector)
	} else if name != policy.NameNoop {
		return nil, fmt.Errorf("policy %q requires storage", name)
	}
	p, err := policy.New(name, sink, policy.BufferedConfig{
		MaxBufferRows:  cfg.BufferRows,
		MaxBufferBytes: cfg.BufferBytes,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid policy config: %w", err)
	}
	return p, nil
}

// newAdapter builds the completion event adapter, or nil when none is
// configured.
func newAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	retries := webhook.DefaultRetries
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}
	switch cfg.Type {
	case "":
		return nil, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			List:    cfg.List,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unsupported adapter type: %s (must be webhook or redis)", cfg.Type)
	}
}
