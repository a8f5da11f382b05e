// Package drivers opens the storage backend named in configuration.
package drivers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xiaomiproject/aikefu/pkg/logger"
	"github.com/xiaomiproject/aikefu/pkg/storage"
	"github.com/xiaomiproject/aikefu/pkg/storage/inmemory"
	"github.com/xiaomiproject/aikefu/pkg/storage/postgres"
	"github.com/xiaomiproject/aikefu/pkg/storage/sqlite"
)

// Options selects and locates a storage backend.
type Options struct {
	// Driver is storage.DriverMemory, storage.DriverSQLite or storage.DriverPostgres.
	// Empty means memory.
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// Open returns the configured storage driver, with its schema migrated.
func Open(ctx context.Context, opts Options, log *slog.Logger) (storage.Driver, error) {
	log = logger.OrNop(log)

	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", storage.DriverMemory:
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case storage.DriverSQLite:
		if opts.SQLitePath == "" {
			return nil, errors.New("sqlite storage requires a database path")
		}
		d, err := sqlite.NewDriver(ctx, opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		log.Info("using SQLite storage", "path", opts.SQLitePath)
		return d, nil

	case storage.DriverPostgres:
		if opts.PostgresDSN == "" {
			return nil, errors.New("postgres storage requires a connection string")
		}
		d, err := postgres.NewDriver(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres storage: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return d, nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %q (available: %s, %s, %s)",
			opts.Driver, storage.DriverMemory, storage.DriverSQLite, storage.DriverPostgres)
	}
}
