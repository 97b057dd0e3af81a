package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/strata/batch"
)

// Config represents a strata.yaml configuration file.
// All values are optional and act as defaults for the command flags.
// CLI flags always override config values.
type Config struct {
	Root       string        `yaml:"root"`
	StagingDir string        `yaml:"staging_dir"`
	Archive    ArchiveConfig `yaml:"archive"`
	Journal    StoreConfig   `yaml:"journal"`
	Mirror     StoreConfig   `yaml:"mirror"`
	Adapter    AdapterConfig `yaml:"adapter"`
	Plan       *batch.Plan   `yaml:"plan,omitempty"`
}

// Archive client names.
const (
	ArchiveWebAPI     = "webapi"
	ArchiveSubprocess = "subprocess"
	ArchiveGCS        = "gcs"
)

// ArchiveConfig selects and configures the archive client.
type ArchiveConfig struct {
	// Client is one of webapi, subprocess, gcs (default webapi).
	Client     string           `yaml:"client"`
	WebAPI     WebAPIConfig     `yaml:"webapi"`
	Subprocess SubprocessConfig `yaml:"subprocess"`
	GCS        GCSConfig        `yaml:"gcs"`
}

// WebAPIConfig configures the ECMWF Web API client. Empty credentials
// fall back to the environment and ~/.ecmwfapirc.
type WebAPIConfig struct {
	URL          string   `yaml:"url"`
	Key          string   `yaml:"key"`
	Email        string   `yaml:"email"`
	Dataset      string   `yaml:"dataset"`
	PollInterval Duration `yaml:"poll_interval"`
}

// SubprocessConfig configures the external retriever process.
type SubprocessConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
}

// GCSConfig configures the bucket client.
type GCSConfig struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Anonymous bool   `yaml:"anonymous"`
	Endpoint  string `yaml:"endpoint"`
}

// Store backends.
const (
	BackendNone = "none"
	BackendFS   = "fs"
	BackendS3   = "s3"
)

// StoreConfig configures a journal or mirror backend.
type StoreConfig struct {
	// Backend is one of none, fs, s3. Empty disables the store.
	Backend string `yaml:"backend"`
	// Dataset is the journal dataset ID (journal only).
	Dataset string `yaml:"dataset"`
	// Path is a directory (fs) or "bucket/prefix" (s3).
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
	// FlushEvery buffers journal records and writes them in groups
	// (journal only). 0 or 1 writes each record as it arrives.
	FlushEvery int `yaml:"flush_every"`
}

// Enabled reports whether a backend is configured.
func (s StoreConfig) Enabled() bool {
	return s.Backend != "" && s.Backend != BackendNone
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	List    string            `yaml:"list,omitempty"`
	ListMax int               `yaml:"list_max,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	if d.Duration == 0 {
		return "", nil
	}
	return d.String(), nil
}

// Validate checks enumerated values. Missing required values are reported
// by the component that needs them.
func (c *Config) Validate() error {
	var errs []error
	switch c.Archive.Client {
	case "", ArchiveWebAPI, ArchiveSubprocess, ArchiveGCS:
	default:
		errs = append(errs, fmt.Errorf("archive.client: unknown client %q (want webapi, subprocess or gcs)", c.Archive.Client))
	}
	for name, s := range map[string]StoreConfig{"journal": c.Journal, "mirror": c.Mirror} {
		switch s.Backend {
		case "", BackendNone:
		case BackendFS, BackendS3:
			if s.Path == "" {
				errs = append(errs, fmt.Errorf("%s.path is required for backend %s", name, s.Backend))
			}
		default:
			errs = append(errs, fmt.Errorf("%s.backend: unknown backend %q (want none, fs or s3)", name, s.Backend))
		}
	}
	if c.Journal.FlushEvery < 0 {
		errs = append(errs, fmt.Errorf("journal.flush_every must be >= 0, got %d", c.Journal.FlushEvery))
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		errs = append(errs, fmt.Errorf("adapter.type: unknown adapter %q (want webhook or redis)", c.Adapter.Type))
	}
	if c.Plan != nil {
		if err := c.Plan.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("plan: %w", err))
		}
	}
	return errors.Join(errs...)
}
