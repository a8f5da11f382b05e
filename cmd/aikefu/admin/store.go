// Package admincmder provides commands that manage the knowledge base and
// user accounts directly in storage, without a running server.
package admincmder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xiaomiproject/aikefu/pkg/config"
	"github.com/xiaomiproject/aikefu/pkg/logger"
	"github.com/xiaomiproject/aikefu/pkg/storage"
	"github.com/xiaomiproject/aikefu/pkg/storage/drivers"
)

var storeFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
}

// storeOptions holds the storage flags shared by admin commands.
type storeOptions struct {
	driver      string
	sqlitePath  string
	postgresDSN string

	debug bool
}

func (o *storeOptions) addFlags(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &o.driver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &o.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &o.postgresDSN)
}

// resolve applies flag > env > config file precedence to the storage flags.
func (o *storeOptions) resolve(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	o.debug, _ = cmd.Flags().GetBool("debug")

	v, err := config.InitViper(configDir)
	if err != nil {
		return err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, storeFlags)

	o.driver = v.GetString(config.Flags[config.FlagStorageDriver].ViperKey)
	o.sqlitePath = v.GetString(config.Flags[config.FlagSQLite].ViperKey)
	o.postgresDSN = v.GetString(config.Flags[config.FlagPostgres].ViperKey)
	return nil
}

func (o *storeOptions) logger() *slog.Logger {
	return logger.New(logger.WithDebug(o.debug), logger.WithFormat(logger.FormatPretty))
}

// open opens the configured store. In-memory storage is refused since
// nothing written to it would outlive the command.
func (o *storeOptions) open(ctx context.Context, log *slog.Logger) (storage.Driver, error) {
	if o.driver == "" || o.driver == storage.DriverMemory {
		return nil, fmt.Errorf("%s storage is not persistent: pass --storage sqlite or --storage postgres, or set storage.driver", storage.DriverMemory)
	}

	return drivers.Open(ctx, drivers.Options{
		Driver:      o.driver,
		SQLitePath:  o.sqlitePath,
		PostgresDSN: o.postgresDSN,
	}, log)
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
