// Package config loads famtree settings from a TOML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"famtree/internal/analytics"
	"famtree/internal/archive"
	"famtree/internal/observability"
	"famtree/internal/remote"
	"famtree/internal/storage"
	"famtree/internal/viewport"
)

// Environment overrides applied by Load. Storage and archive variables are
// read by their own packages when the backend is opened.
const (
	EnvAuthURL           = "FAMTREE_AUTH_URL"
	EnvSaveURL           = "FAMTREE_SAVE_URL"
	EnvLoadURL           = "FAMTREE_LOAD_URL"
	EnvListURL           = "FAMTREE_LIST_URL"
	EnvUserEmail         = "FAMTREE_USER_EMAIL"
	EnvAutosaveInterval  = "FAMTREE_AUTOSAVE_INTERVAL"
	EnvAnalyticsEndpoint = "FAMTREE_ANALYTICS_ENDPOINT"
	EnvLogFormat         = "FAMTREE_LOG_FORMAT"
	EnvConfigFile        = "FAMTREE_CONFIG"
)

// Config holds famtree configuration.
type Config struct {
	Remote    RemoteConfig    `toml:"remote"`
	Autosave  AutosaveConfig  `toml:"autosave"`
	Storage   StorageConfig   `toml:"storage"`
	Archive   ArchiveConfig   `toml:"archive"`
	Viewport  ViewportConfig  `toml:"viewport"`
	Analytics AnalyticsConfig `toml:"analytics"`
	Log       LogConfig       `toml:"log"`
	Admin     AdminConfig     `toml:"admin"`
}

// RemoteConfig points at the backend endpoints. An empty save URL disables
// remote sync.
type RemoteConfig struct {
	AuthURL   string `toml:"auth_url"`
	SaveURL   string `toml:"save_url"`
	LoadURL   string `toml:"load_url"`
	ListURL   string `toml:"list_url"`
	UserEmail string `toml:"user_email"`
	Title     string `toml:"title"`
}

// AutosaveConfig controls the debounced remote save.
type AutosaveConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"` // Go duration, e.g. "15m" or "5s"
}

// StorageConfig selects the local state backend.
type StorageConfig struct {
	Driver      string `toml:"driver"` // "file", "sqlite", "postgres", "memory"
	FilePath    string `toml:"file_path"`
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
}

// ArchiveConfig selects where backups go.
type ArchiveConfig struct {
	Driver      string `toml:"driver"` // "fs", "s3", "memory"
	FSRoot      string `toml:"fs_root"`
	S3Bucket    string `toml:"s3_bucket"`
	S3Region    string `toml:"s3_region"`
	S3Endpoint  string `toml:"s3_endpoint"`
	S3PathStyle bool   `toml:"s3_path_style"`
}

// ViewportConfig names the canvas policy.
type ViewportConfig struct {
	Policy string `toml:"policy"`
}

// AnalyticsConfig configures goal delivery. No endpoint means goals are
// dropped.
type AnalyticsConfig struct {
	Endpoint string `toml:"endpoint"`
	Counter  int64  `toml:"counter"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// AdminConfig lists administrator e-mails.
type AdminConfig struct {
	Emails []string `toml:"emails"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Remote:    RemoteConfig{Title: "Моё семейное древо"},
		Autosave:  AutosaveConfig{Enabled: true, Interval: "15m"},
		Storage:   StorageConfig{Driver: string(storage.DriverFile)},
		Archive:   ArchiveConfig{Driver: string(archive.DriverFilesystem)},
		Viewport:  ViewportConfig{Policy: "editor"},
		Analytics: AnalyticsConfig{Counter: analytics.DefaultCounter},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// ConfigDir returns the famtree config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "famtree")
}

// DefaultPath is the config file location, FAMTREE_CONFIG when set.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigFile); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) (err error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return toml.NewEncoder(f).Encode(cfg)
}

func (c *Config) applyEnv() {
	c.Remote.AuthURL = envOr(EnvAuthURL, c.Remote.AuthURL)
	c.Remote.SaveURL = envOr(EnvSaveURL, c.Remote.SaveURL)
	c.Remote.LoadURL = envOr(EnvLoadURL, c.Remote.LoadURL)
	c.Remote.ListURL = envOr(EnvListURL, c.Remote.ListURL)
	c.Remote.UserEmail = envOr(EnvUserEmail, c.Remote.UserEmail)
	c.Autosave.Interval = envOr(EnvAutosaveInterval, c.Autosave.Interval)
	c.Analytics.Endpoint = envOr(EnvAnalyticsEndpoint, c.Analytics.Endpoint)
	c.Log.Level = envOr(observability.EnvLogLevel, c.Log.Level)
	c.Log.Format = envOr(EnvLogFormat, c.Log.Format)
}

// Validate rejects settings that would fail later at open time.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.AutosaveInterval(); err != nil {
		errs = append(errs, err)
	}
	switch storage.Driver(c.Storage.Driver) {
	case "", storage.DriverMemory, storage.DriverFile, storage.DriverSQLite, storage.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	switch archive.Driver(c.Archive.Driver) {
	case "", archive.DriverFilesystem, archive.DriverMemory:
	case archive.DriverS3:
		if c.Archive.S3Bucket == "" {
			errs = append(errs, errors.New("archive.s3_bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("archive.driver: unknown driver %q", c.Archive.Driver))
	}
	if _, ok := viewport.PolicyByName(c.Viewport.Policy); !ok {
		errs = append(errs, fmt.Errorf("viewport.policy: unknown policy %q", c.Viewport.Policy))
	}
	return errors.Join(errs...)
}

// AutosaveInterval parses the configured interval. Zero when autosave is
// disabled.
func (c *Config) AutosaveInterval() (time.Duration, error) {
	if !c.Autosave.Enabled {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Autosave.Interval)
	if err != nil {
		return 0, fmt.Errorf("autosave.interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("autosave.interval: must be positive, got %s", d)
	}
	return d, nil
}

// Endpoints converts the remote section.
func (c *Config) Endpoints() remote.Endpoints {
	return remote.Endpoints{Auth: c.Remote.AuthURL, Save: c.Remote.SaveURL, Load: c.Remote.LoadURL, List: c.Remote.ListURL}
}

// RemoteEnabled reports whether a save endpoint is configured.
func (c *Config) RemoteEnabled() bool { return c.Remote.SaveURL != "" }

// StorageConfig converts the storage section.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Driver:      storage.Driver(c.Storage.Driver),
		FilePath:    c.Storage.FilePath,
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// ArchiveConfig converts the archive section.
func (c *Config) ArchiveConfig() archive.Config {
	return archive.Config{
		Driver:      archive.Driver(c.Archive.Driver),
		FSRoot:      c.Archive.FSRoot,
		S3Bucket:    c.Archive.S3Bucket,
		S3Region:    c.Archive.S3Region,
		S3Endpoint:  c.Archive.S3Endpoint,
		S3PathStyle: c.Archive.S3PathStyle,
	}
}

// ViewportPolicy resolves the configured canvas policy.
func (c *Config) ViewportPolicy() viewport.Policy {
	p, _ := viewport.PolicyByName(c.Viewport.Policy)
	return p
}

// IsAdmin reports whether email is a configured administrator.
func (c *Config) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	return slices.ContainsFunc(c.Admin.Emails, func(a string) bool {
		return strings.ToLower(strings.TrimSpace(a)) == email
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
