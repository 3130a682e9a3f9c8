package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenDefaultsToFile(t *testing.T) {
	t.Setenv(EnvDriver, "")
	path := filepath.Join(t.TempDir(), "state.json")
	port, err := Open(context.Background(), Config{FilePath: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = port.Close() }()
	if err := port.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	again, err := Open(context.Background(), Config{FilePath: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok, _ := again.Get(context.Background(), "k"); !ok || v != "v" {
		t.Fatalf("value not persisted: %q %v", v, ok)
	}
}

func TestOpenEnvOverridesDriver(t *testing.T) {
	t.Setenv(EnvDriver, " MEMORY ")
	port, err := Open(context.Background(), Config{Driver: DriverFile})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := port.(memoryPort); !ok {
		t.Fatalf("expected memory port, got %T", port)
	}
}

func TestOpenSQLiteFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	t.Setenv(EnvDriver, "sqlite")
	t.Setenv(EnvSQLitePath, path)
	port, err := Open(context.Background(), Config{})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer func() { _ = port.Close() }()
	if err := port.Set(context.Background(), "a", "b"); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Setenv(EnvDriver, "")
	if _, err := Open(context.Background(), Config{Driver: "redis"}); err == nil || !strings.Contains(err.Error(), "unknown storage driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvDriver, "postgres")
	t.Setenv(EnvPostgresDSN, "postgres://db/x")
	t.Setenv(EnvFilePath, "/tmp/s.json")
	t.Setenv(EnvSQLitePath, "")
	cfg := FromEnv(Config{SQLitePath: "keep.db"})
	if cfg.Driver != DriverPostgres || cfg.PostgresDSN != "postgres://db/x" || cfg.FilePath != "/tmp/s.json" || cfg.SQLitePath != "keep.db" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
