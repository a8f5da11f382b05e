package config

import (
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag describes a CLI flag once so every command registering it agrees on
// name, shorthand, config key and help text.
type Flag struct {
	Name      string
	Shorthand string

	// ViperKey is the dotted config key the flag overrides.
	ViperKey string

	Description string
}

// FlagSet maps registry keys to flag definitions.
type FlagSet map[string]Flag

// Registry keys for Flags.
const (
	FlagListen        = "listen"
	FlagStorageDriver = "storage"
	FlagSQLite        = "sqlite"
	FlagPostgres      = "postgres"
	FlagCache         = "cache"
	FlagRedisAddr     = "redis-addr"
	FlagDefaultModel  = "default-model"
	FlagStreamWorkers = "stream-workers"
	FlagStreamQueue   = "stream-queue"
	FlagKafkaBrokers  = "kafka-brokers"
	FlagKafkaTopic    = "kafka-topic"
	FlagAPITarget     = "api-target"
	FlagUsername      = "username"
)

// Flags is shared by every aikefu command.
var Flags = FlagSet{
	FlagListen:        {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the API server to listen on"},
	FlagStorageDriver: {Name: "storage", ViperKey: "storage.driver", Description: "Storage driver (memory, sqlite, postgres)"},
	FlagSQLite:        {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database"},
	FlagPostgres:      {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagCache:         {Name: "cache", ViperKey: "cache.provider", Description: "Answer cache (memory, redis)"},
	FlagRedisAddr:     {Name: "redis-addr", ViperKey: "cache.redis_addr", Description: "Redis address for the redis answer cache"},
	FlagDefaultModel:  {Name: "default-model", Shorthand: "m", ViperKey: "llm.default_model", Description: "Model used when a request names none or an unknown one"},
	FlagStreamWorkers: {Name: "stream-workers", ViperKey: "server.stream_workers", Description: "Concurrent streaming answers"},
	FlagStreamQueue:   {Name: "stream-queue", ViperKey: "server.stream_queue", Description: "Streaming answers allowed to wait for a worker"},
	FlagKafkaBrokers:  {Name: "kafka-brokers", ViperKey: "events.kafka_brokers", Description: "Comma-separated Kafka brokers for answer events"},
	FlagKafkaTopic:    {Name: "kafka-topic", ViperKey: "events.kafka_topic", Description: "Kafka topic for answer events"},
	FlagAPITarget:     {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "aikefu API server URL"},
	FlagUsername:      {Name: "username", Shorthand: "u", ViperKey: "client.username", Description: "Username for API requests"},
}

// flagDefaults is a viper holding only NewDefaultConfig values, used for flag
// defaults in --help output.
var flagDefaults = sync.OnceValue(func() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
})

// AddStringFlag registers the string flag fs[key] on cmd. Unknown keys are
// ignored.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	if f, ok := fs[key]; ok {
		cmd.Flags().StringVarP(target, f.Name, f.Shorthand, flagDefaults().GetString(f.ViperKey), f.Description)
	}
}

// AddUintFlag registers the uint flag fs[key] on cmd. Unknown keys are
// ignored.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, key string, target *uint) {
	if f, ok := fs[key]; ok {
		cmd.Flags().UintVarP(target, f.Name, f.Shorthand, flagDefaults().GetUint(f.ViperKey), f.Description)
	}
}

// BindRegisteredFlags binds flags already added to cmd into v so a flag set
// on the command line outranks env, file and defaults. Call it after
// InitViper.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		f, ok := fs[key]
		if !ok {
			continue
		}
		if pf := cmd.Flags().Lookup(f.Name); pf != nil {
			_ = v.BindPFlag(f.ViperKey, pf)
		}
	}
}
