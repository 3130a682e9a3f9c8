// Package storage is the single entry point for the key/value profile that
// backs local state. Callers depend on Port; the concrete backends live under
// internal/infra/kv and are only imported here.
package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"famtree/internal/infra/kv/file"
	"famtree/internal/infra/kv/memory"
	"famtree/internal/infra/kv/postgres"
	"famtree/internal/infra/kv/sqlite"
)

// Driver names a key/value backend.
type Driver string

const (
	// DriverMemory keeps state in process only.
	DriverMemory Driver = "memory"
	// DriverFile writes a JSON document to disk.
	DriverFile Driver = "file"
	// DriverSQLite uses an embedded SQLite database.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres uses a shared PostgreSQL table.
	DriverPostgres Driver = "postgres"
)

// Environment overrides applied by Open.
const (
	EnvDriver      = "FAMTREE_STORAGE_DRIVER"
	EnvFilePath    = "FAMTREE_STATE_PATH"
	EnvSQLitePath  = "FAMTREE_SQLITE_PATH"
	EnvPostgresDSN = "FAMTREE_POSTGRES_DSN"
)

// Port is the string key/value contract local state is written through.
type Port interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver      Driver
	FilePath    string
	SQLitePath  string
	PostgresDSN string
}

// FromEnv overlays the FAMTREE_* storage variables on cfg.
func FromEnv(cfg Config) Config {
	if v := os.Getenv(EnvDriver); v != "" {
		cfg.Driver = Driver(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv(EnvFilePath); v != "" {
		cfg.FilePath = v
	}
	if v := os.Getenv(EnvSQLitePath); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		cfg.PostgresDSN = v
	}
	return cfg
}

// Open builds the backend named by cfg after applying environment overrides.
// An empty driver selects the file backend.
func Open(ctx context.Context, cfg Config) (Port, error) {
	cfg = FromEnv(cfg)
	switch cfg.Driver {
	case "", DriverFile:
		return file.NewStore(cfg.FilePath)
	case DriverMemory:
		return memoryPort{memory.NewStore()}, nil
	case DriverSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// NewMemory returns an in-process Port, mostly for tests.
func NewMemory() Port { return memoryPort{memory.NewStore()} }

type memoryPort struct{ *memory.Store }

func (memoryPort) Close() error { return nil }
