// Package archive is the facade over the backup object stores. Callers use
// Store and Open; the backends under internal/infra/archive are only imported
// here.
package archive

import (
	"context"
	"fmt"
	"os"
	"strings"

	"famtree/internal/archive/core"
	"famtree/internal/infra/archive/fs"
	"famtree/internal/infra/archive/memory"
	"famtree/internal/infra/archive/s3"
)

type (
	// Driver identifies an archive backend.
	Driver = core.Driver
	// PutOptions describes an object being written.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes a stored object.
	Info = core.Info
	// Store is the archive backend contract.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	// ErrUnsupported indicates a backend lacks a capability.
	ErrUnsupported = core.ErrUnsupported
	// ErrNotFound indicates a missing key.
	ErrNotFound = core.ErrNotFound
)

// Environment overrides applied by Open.
const (
	EnvDriver      = "FAMTREE_ARCHIVE_DRIVER"
	EnvFSRoot      = "FAMTREE_ARCHIVE_FS_ROOT"
	EnvS3Bucket    = "FAMTREE_ARCHIVE_S3_BUCKET"
	EnvS3Region    = "FAMTREE_ARCHIVE_S3_REGION"
	EnvS3Endpoint  = "FAMTREE_ARCHIVE_S3_ENDPOINT"
	EnvS3PathStyle = "FAMTREE_ARCHIVE_S3_PATH_STYLE"
)

// Config selects the backend.
type Config struct {
	Driver      Driver
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// FromEnv overlays the FAMTREE_ARCHIVE_* variables on cfg.
func FromEnv(cfg Config) Config {
	if v := os.Getenv(EnvDriver); v != "" {
		cfg.Driver = Driver(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv(EnvFSRoot); v != "" {
		cfg.FSRoot = v
	}
	if v := os.Getenv(EnvS3Bucket); v != "" {
		cfg.S3Bucket = v
	}
	if v := os.Getenv(EnvS3Region); v != "" {
		cfg.S3Region = v
	}
	if v := os.Getenv(EnvS3Endpoint); v != "" {
		cfg.S3Endpoint = v
	}
	if v := os.Getenv(EnvS3PathStyle); v != "" {
		cfg.S3PathStyle = strings.EqualFold(v, "true")
	}
	return cfg
}

// Open builds the backend described by cfg and the environment. The
// filesystem driver is the default.
func Open(ctx context.Context, cfg Config) (Store, error) {
	cfg = FromEnv(cfg)
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverMemory:
		return memory.New(), nil
	case DriverS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("%s required for s3 driver", EnvS3Bucket)
		}
		return s3.New(ctx, s3.Config{Bucket: cfg.S3Bucket, Region: cfg.S3Region, Endpoint: cfg.S3Endpoint, PathStyle: cfg.S3PathStyle})
	default:
		return nil, fmt.Errorf("unknown archive driver %s", cfg.Driver)
	}
}

// NewMemory returns an in-process store.
func NewMemory() Store { return memory.New() }

// NewS3MockForTests returns an S3 store backed by a fake bucket transport.
func NewS3MockForTests() Store { return s3.NewMockForTests() }
