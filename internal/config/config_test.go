package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"famtree/internal/analytics"
	"famtree/internal/storage"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if !cfg.Autosave.Enabled || cfg.Autosave.Interval != "15m" {
		t.Errorf("unexpected autosave defaults %+v", cfg.Autosave)
	}
	if cfg.Storage.Driver != "file" || cfg.Archive.Driver != "fs" {
		t.Errorf("unexpected driver defaults %q %q", cfg.Storage.Driver, cfg.Archive.Driver)
	}
	if cfg.Analytics.Counter != analytics.DefaultCounter {
		t.Errorf("expected counter %d, got %d", analytics.DefaultCounter, cfg.Analytics.Counter)
	}
	if cfg.RemoteEnabled() {
		t.Error("remote should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/test-xdg")
	if dir := ConfigDir(); dir != "/tmp/test-xdg/famtree" {
		t.Errorf("expected /tmp/test-xdg/famtree, got %q", dir)
	}
	t.Setenv("XDG_CONFIG_HOME", "")
	home, _ := os.UserHomeDir()
	if dir := ConfigDir(); dir != filepath.Join(home, ".config", "famtree") {
		t.Errorf("unexpected dir %q", dir)
	}
	t.Setenv(EnvConfigFile, "/etc/famtree.toml")
	if p := DefaultPath(); p != "/etc/famtree.toml" {
		t.Errorf("FAMTREE_CONFIG ignored: %q", p)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Remote.SaveURL = "https://api.example/save"
	cfg.Remote.UserEmail = "demo@familytree.com"
	cfg.Autosave.Interval = "5s"
	cfg.Storage.Driver = "sqlite"
	cfg.Admin.Emails = []string{"Boss@Example.com"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Remote.SaveURL != cfg.Remote.SaveURL || got.StorageConfig().Driver != storage.DriverSQLite {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	if d, _ := got.AutosaveInterval(); d != 5*time.Second {
		t.Fatalf("interval = %s", d)
	}
	if !got.IsAdmin(" boss@example.com") || got.IsAdmin("") || got.IsAdmin("other@example.com") {
		t.Fatalf("unexpected admin check")
	}
}

func TestLoadMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "absent.toml"))
	if err != nil || cfg.Log.Level != "info" {
		t.Fatalf("missing file must yield defaults: %+v %v", cfg, err)
	}
	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[remote\nsave_url = 1"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[remote]\nsave_url = \"https://file/save\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvSaveURL, "https://env/save")
	t.Setenv(EnvUserEmail, "env@example.com")
	t.Setenv(EnvAutosaveInterval, "5s")
	t.Setenv("FAMTREE_LOG_LEVEL", "debug")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Remote.SaveURL != "https://env/save" || cfg.Remote.UserEmail != "env@example.com" || cfg.Log.Level != "debug" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if ep := cfg.Endpoints(); ep.Save != "https://env/save" {
		t.Fatalf("unexpected endpoints %+v", ep)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad interval", func(c *Config) { c.Autosave.Interval = "soon" }, "autosave.interval"},
		{"negative interval", func(c *Config) { c.Autosave.Interval = "-1s" }, "must be positive"},
		{"storage driver", func(c *Config) { c.Storage.Driver = "redis" }, "storage.driver"},
		{"s3 without bucket", func(c *Config) { c.Archive.Driver = "s3" }, "s3_bucket"},
		{"archive driver", func(c *Config) { c.Archive.Driver = "ftp" }, "archive.driver"},
		{"viewport", func(c *Config) { c.Viewport.Policy = "wide" }, "viewport.policy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q error, got %v", tc.want, err)
			}
		})
	}

	cfg := Default()
	cfg.Autosave.Enabled = false
	cfg.Autosave.Interval = "garbage"
	if d, err := cfg.AutosaveInterval(); err != nil || d != 0 {
		t.Fatalf("disabled autosave must not parse the interval: %s %v", d, err)
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Archive = ArchiveConfig{Driver: "s3", S3Bucket: "b", S3Region: "ru-central1", S3PathStyle: true}
	ac := cfg.ArchiveConfig()
	if ac.S3Bucket != "b" || !ac.S3PathStyle || string(ac.Driver) != "s3" {
		t.Fatalf("unexpected archive config %+v", ac)
	}
	cfg.Viewport.Policy = "demo"
	if p := cfg.ViewportPolicy(); p.Initial.K != 0.6 {
		t.Fatalf("demo policy not resolved: %+v", p)
	}
}
