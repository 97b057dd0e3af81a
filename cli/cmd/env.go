package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/adapter"
	"github.com/justapithecus/strata/adapter/redis"
	"github.com/justapithecus/strata/adapter/webhook"
	"github.com/justapithecus/strata/archive"
	"github.com/justapithecus/strata/archive/gcsbucket"
	"github.com/justapithecus/strata/archive/subprocess"
	"github.com/justapithecus/strata/archive/webapi"
	"github.com/justapithecus/strata/catalog"
	"github.com/justapithecus/strata/cli/config"
	"github.com/justapithecus/strata/journal"
	"github.com/justapithecus/strata/layout"
	"github.com/justapithecus/strata/log"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/types"
)

// loadConfig reads the config file and applies the root flags over it.
// Errors are invalid-invocation exits.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadOptional(c.String("config"), c.IsSet("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitInvalid)
	}
	if v := c.String("root"); v != "" {
		cfg.Root = v
	}
	if v := c.String("staging-dir"); v != "" {
		cfg.StagingDir = v
	}
	if v := c.String("archive"); v != "" {
		cfg.Archive.Client = v
	}
	if cfg.Root == "" {
		cfg.Root = layout.DefaultRoot
	}
	if cfg.Archive.Client == "" {
		cfg.Archive.Client = config.ArchiveWebAPI
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Exit(err.Error(), exitInvalid)
	}
	return cfg, nil
}

func newResolver(cfg *config.Config) *layout.Resolver {
	return layout.NewResolver(cfg.Root, cfg.StagingDir, catalog.ERAInterim())
}

// newLogger creates the batch logger, honouring --verbose.
func newLogger(c *cli.Context, meta *types.BatchMeta) *log.Logger {
	logger := log.NewLogger(meta)
	logger.SetVerbose(c.Bool("verbose"))
	return logger
}

// buildClient creates the configured archive client. The returned close
// function is never nil.
func buildClient(ctx context.Context, cfg *config.Config, meta types.BatchMeta, logger *log.Logger) (archive.Client, func() error, error) {
	noop := func() error { return nil }
	a := cfg.Archive
	switch a.Client {
	case config.ArchiveWebAPI:
		creds, err := webapi.LoadCredentials(webapi.Credentials{URL: a.WebAPI.URL, Key: a.WebAPI.Key, Email: a.WebAPI.Email})
		if err != nil {
			return nil, noop, err
		}
		client, err := webapi.New(webapi.Config{
			Credentials:  creds,
			Dataset:      a.WebAPI.Dataset,
			PollInterval: a.WebAPI.PollInterval.Duration,
			Logger:       logger,
		})
		return client, noop, err
	case config.ArchiveSubprocess:
		client, err := subprocess.New(subprocess.Config{
			Command: a.Subprocess.Command,
			Args:    a.Subprocess.Args,
			Env:     a.Subprocess.Env,
			BatchID: meta.BatchID,
			Logger:  logger,
		})
		return client, noop, err
	case config.ArchiveGCS:
		client, err := gcsbucket.New(ctx, gcsbucket.Config{
			Bucket:    a.GCS.Bucket,
			Prefix:    a.GCS.Prefix,
			Anonymous: a.GCS.Anonymous,
			Endpoint:  a.GCS.Endpoint,
			Logger:    logger,
		})
		if err != nil {
			return nil, noop, err
		}
		return client, client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown archive client %q", a.Client)
	}
}

func s3Config(s config.StoreConfig) journal.S3Config {
	bucket, prefix := journal.ParseS3Path(s.Path)
	return journal.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       s.Region,
		Endpoint:     s.Endpoint,
		UsePathStyle: s.S3PathStyle,
	}
}

// buildJournal opens the configured journal, or returns nil when none is
// configured.
func buildJournal(ctx context.Context, cfg *config.Config, meta types.BatchMeta, m *metrics.Collector) (*journal.Journal, error) {
	s := cfg.Journal
	jcfg := journal.Config{Dataset: s.Dataset, Meta: meta}
	opts := []journal.Option{journal.WithMetrics(m), journal.WithFlushEvery(s.FlushEvery)}
	switch s.Backend {
	case config.BackendFS:
		return journal.NewFS(jcfg, s.Path, opts...)
	case config.BackendS3:
		return journal.NewS3(ctx, jcfg, s3Config(s), opts...)
	default:
		return nil, nil
	}
}

// openJournalDataset opens the configured journal for reading.
func openJournalDataset(ctx context.Context, cfg *config.Config) (lode.Dataset, error) {
	factory, err := storeFactory(ctx, cfg.Journal)
	if err != nil || factory == nil {
		return nil, err
	}
	return journal.NewReadDataset(cfg.Journal.Dataset, factory)
}

// buildMirror creates the configured mirror, or returns nil.
func buildMirror(ctx context.Context, cfg *config.Config, m *metrics.Collector) (*journal.Mirror, error) {
	factory, err := storeFactory(ctx, cfg.Mirror)
	if err != nil || factory == nil {
		return nil, err
	}
	return journal.NewMirror(factory, "", m), nil
}

func storeFactory(ctx context.Context, s config.StoreConfig) (lode.StoreFactory, error) {
	switch s.Backend {
	case config.BackendFS:
		return lode.NewFSFactory(s.Path), nil
	case config.BackendS3:
		return journal.NewS3Factory(ctx, s3Config(s))
	default:
		return nil, nil
	}
}

// buildAdapter creates the configured event adapter, or returns nil.
func buildAdapter(cfg *config.Config) (adapter.Adapter, error) {
	a := cfg.Adapter
	retries := 0
	if a.Retries != nil {
		retries = *a.Retries
	}
	switch a.Type {
	case "":
		return nil, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     a.URL,
			Headers: a.Headers,
			Timeout: a.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     a.URL,
			Channel: a.Channel,
			List:    a.List,
			ListMax: a.ListMax,
			Timeout: a.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", a.Type)
	}
}

// storageBackend names the journal backend for metrics dimensions.
func storageBackend(cfg *config.Config, journalOff bool) string {
	if journalOff || !cfg.Journal.Enabled() {
		return config.BackendNone
	}
	return cfg.Journal.Backend
}

// invalid wraps setup errors as invalid-invocation exits.
func invalid(what string, err error) error {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		return err
	}
	return cli.Exit(fmt.Sprintf("%s: %v", what, strings.TrimSpace(err.Error())), exitInvalid)
}
