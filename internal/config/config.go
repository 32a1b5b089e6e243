// Package config loads rigor's settings from rigor.yaml and RIGOR_* environment
// variables. Environment values override the file; unset fields take defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corey/rigor/internal/domain/rigor"
)

// FileName is the config file looked up in the working directory.
const FileName = "rigor.yaml"

// Store backends.
const (
	StoreBbolt  = "bbolt"
	StoreSQLite = "sqlite"
	StoreNone   = "none"
)

// HTTPOff as http_addr disables the daemon's HTTP API.
const HTTPOff = "off"

// Defaults.
const (
	DefaultDataDir         = ".rigor"
	DefaultHTTPAddr        = "127.0.0.1:8080"
	DefaultMaxUploadBytes  = 5 << 20
	DefaultAllowedOrigin   = "*"
	DefaultFetchTimeout    = 15 * time.Second
	DefaultMinWordsPerPage = 20
	DefaultLogLevel        = "info"
)

// Config is the full set of settings.
type Config struct {
	// Dictionary is a path to a YAML dictionary; empty means the embedded one.
	Dictionary string `yaml:"dictionary"`
	// InitialScore overrides the dictionary's starting score.
	InitialScore *float64 `yaml:"initial_score,omitempty"`
	// PowerPolicy is "real", "sign" or "strict".
	PowerPolicy string `yaml:"power_policy"`
	// WholeWords drops matches inside longer words. Default true.
	WholeWords *bool `yaml:"whole_words,omitempty"`

	Store   string `yaml:"store"`
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`

	HTTPAddr        string        `yaml:"http_addr"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	AllowedOrigin   string        `yaml:"allowed_origin"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	MinWordsPerPage *int          `yaml:"min_words_per_page,omitempty"`

	LogLevel string `yaml:"log_level"`
}

// Load reads path (or ./rigor.yaml when path is empty), applies environment
// overrides and defaults, and validates the result. A missing ./rigor.yaml
// is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}

	explicit := path != ""
	if !explicit {
		path = FileName
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a validated config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("RIGOR_DICTIONARY", &c.Dictionary)
	str("RIGOR_POWER_POLICY", &c.PowerPolicy)
	str("RIGOR_STORE", &c.Store)
	str("RIGOR_DATA_DIR", &c.DataDir)
	str("RIGOR_DB_PATH", &c.DBPath)
	str("RIGOR_HTTP_ADDR", &c.HTTPAddr)
	str("RIGOR_ALLOWED_ORIGIN", &c.AllowedOrigin)
	str("RIGOR_LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("RIGOR_INITIAL_SCORE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RIGOR_INITIAL_SCORE: %w", err)
		}
		c.InitialScore = &f
	}
	if v, ok := lookup("RIGOR_WHOLE_WORDS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RIGOR_WHOLE_WORDS: %w", err)
		}
		c.WholeWords = &b
	}
	if v, ok := lookup("RIGOR_MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("RIGOR_MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}
	if v, ok := lookup("RIGOR_FETCH_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RIGOR_FETCH_TIMEOUT: %w", err)
		}
		c.FetchTimeout = d
	}
	if v, ok := lookup("RIGOR_MIN_WORDS_PER_PAGE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RIGOR_MIN_WORDS_PER_PAGE: %w", err)
		}
		c.MinWordsPerPage = &n
	}
	return nil
}

// ApplyDefaults fills every unset field. Derived paths follow DataDir and Store.
func (c *Config) ApplyDefaults() {
	if c.PowerPolicy == "" {
		c.PowerPolicy = rigor.PowerReal.String()
	}
	if c.WholeWords == nil {
		on := true
		c.WholeWords = &on
	}
	if c.Store == "" {
		c.Store = StoreBbolt
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.DBPath == "" {
		switch c.Store {
		case StoreSQLite:
			c.DBPath = filepath.Join(c.DataDir, "history.sqlite")
		default:
			c.DBPath = filepath.Join(c.DataDir, "history.db")
		}
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.AllowedOrigin == "" {
		c.AllowedOrigin = DefaultAllowedOrigin
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.MinWordsPerPage == nil {
		n := DefaultMinWordsPerPage
		c.MinWordsPerPage = &n
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks enumerated and numeric fields.
func (c *Config) Validate() error {
	if _, err := rigor.PowerPolicyFromName(c.PowerPolicy); err != nil {
		return fmt.Errorf("power_policy: %w", err)
	}
	switch c.Store {
	case StoreBbolt, StoreSQLite, StoreNone:
	default:
		return fmt.Errorf("store: unknown backend %q (want bbolt, sqlite or none)", c.Store)
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("max_upload_bytes: must not be negative")
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout: must not be negative")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// HTTPEnabled reports whether the daemon should serve the HTTP API.
func (c *Config) HTTPEnabled() bool {
	return c.HTTPAddr != "" && c.HTTPAddr != HTTPOff
}

// Policy returns the parsed power policy. Call after Validate.
func (c *Config) Policy() rigor.PowerPolicy {
	p, _ := rigor.PowerPolicyFromName(c.PowerPolicy)
	return p
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(strings.TrimSpace(s)))
	return l, err
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
