package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultURL is the public Web API endpoint.
const DefaultURL = "https://api.ecmwf.int/v1"

// Environment variables consulted by LoadCredentials.
const (
	EnvURL   = "ECMWF_API_URL"
	EnvKey   = "ECMWF_API_KEY"
	EnvEmail = "ECMWF_API_EMAIL"
)

// RCFile is the credentials file name looked up in the home directory.
const RCFile = ".ecmwfapirc"

// Credentials authenticate against the Web API.
type Credentials struct {
	URL   string `json:"url" yaml:"url"`
	Key   string `json:"key" yaml:"key"`
	Email string `json:"email" yaml:"email"`
}

// Complete reports whether key and email are both present.
func (c Credentials) Complete() bool { return c.Key != "" && c.Email != "" }

// LoadCredentials resolves credentials in order: explicit values, the
// ECMWF_API_* environment, then ~/.ecmwfapirc. The first source providing
// both key and email wins; URL falls back to DefaultURL.
func LoadCredentials(explicit Credentials) (Credentials, error) {
	if explicit.Complete() {
		return withDefaultURL(explicit), nil
	}

	env := Credentials{URL: os.Getenv(EnvURL), Key: os.Getenv(EnvKey), Email: os.Getenv(EnvEmail)}
	if env.Complete() {
		if explicit.URL != "" {
			env.URL = explicit.URL
		}
		return withDefaultURL(env), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Credentials{}, fmt.Errorf("webapi: no credentials in config or environment, and no home directory: %w", err)
	}
	rc, err := ReadRCFile(filepath.Join(home, RCFile))
	if err != nil {
		return Credentials{}, err
	}
	if explicit.URL != "" {
		rc.URL = explicit.URL
	}
	return withDefaultURL(rc), nil
}

// ReadRCFile parses a JSON credentials file.
func ReadRCFile(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, fmt.Errorf("webapi: no credentials: set %s and %s or create %s", EnvKey, EnvEmail, path)
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("webapi: read %s: %w", path, err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("webapi: parse %s: %w", path, err)
	}
	if !c.Complete() {
		return Credentials{}, fmt.Errorf("webapi: %s must contain key and email", path)
	}
	return c, nil
}

func withDefaultURL(c Credentials) Credentials {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	return c
}
