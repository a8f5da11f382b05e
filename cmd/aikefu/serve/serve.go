// Package servecmder provides the serve command, which runs the aikefu API server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xiaomiproject/aikefu/api"
	"github.com/xiaomiproject/aikefu/pkg/config"
	"github.com/xiaomiproject/aikefu/pkg/credentials"
	"github.com/xiaomiproject/aikefu/pkg/logger"
	"github.com/xiaomiproject/aikefu/pkg/resolve"
	"github.com/xiaomiproject/aikefu/pkg/storage/drivers"
	"github.com/xiaomiproject/aikefu/pkg/worker"
)

type serveCommander struct {
	flags config.FlagSet

	listen        string
	storageDriver string
	sqlitePath    string
	postgresDSN   string
	cacheProvider string
	redisAddr     string
	defaultModel  string
	kafkaBrokers  string
	kafkaTopic    string
	streamWorkers uint
	streamQueue   uint

	configDir  string
	debug      bool
	logFormat  string
	logFile    string
	disableMCP bool

	cfg    *config.Config
	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagCache,
	config.FlagRedisAddr,
	config.FlagDefaultModel,
	config.FlagStreamWorkers,
	config.FlagStreamQueue,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const serveLongDesc string = `Run the aikefu API server.

Questions are answered from the answer cache, then the curated knowledge
base, then the configured language models. Answers are recorded in each
user's history and, when Kafka brokers are configured, published as events.

Settings come from flags, AIKEFU_* environment variables and
.aikefu/config.toml, in that order of precedence. Models are registered in
the [[llm.providers]] tables of config.toml; their API keys are stored with
"aikefu auth".

Examples:
  aikefu serve
  aikefu serve --storage sqlite --sqlite ./aikefu.db
  aikefu serve --storage postgres --postgres postgres://localhost/aikefu --cache redis --redis-addr localhost:6379`

const serveShortDesc string = "Run the aikefu API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{flags: config.Flags}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, serveFlags)

			cmder.cfg, err = loadConfig(cmder.configDir, v)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagCache, &cmder.cacheProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagRedisAddr, &cmder.redisAddr)
	config.AddStringFlag(cmd, cmder.flags, config.FlagDefaultModel, &cmder.defaultModel)
	config.AddUintFlag(cmd, cmder.flags, config.FlagStreamWorkers, &cmder.streamWorkers)
	config.AddUintFlag(cmd, cmder.flags, config.FlagStreamQueue, &cmder.streamQueue)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	cmd.Flags().StringVar(&cmder.logFormat, "log-format", string(logger.FormatPretty), "Log format: text, json or pretty")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.disableMCP, "disable-mcp", false, "Do not mount the /mcp endpoint")

	return cmd
}

// loadConfig reads config.toml, then lays flag and environment values over
// its scalar keys.
func loadConfig(configDir string, v *viper.Viper) (*config.Config, error) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := config.ApplyViper(v, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *serveCommander) run(ctx context.Context) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []closer
	defer func() {
		var result *multierror.Error
		for i := len(closers) - 1; i >= 0; i-- {
			result = multierror.Append(result, closers[i].Close())
		}
		if cerr := result.ErrorOrNil(); cerr != nil {
			c.logger.Error("shutting down", "error", cerr)
			if err == nil {
				err = cerr
			}
		}
	}()

	log, logFile, err := c.newLogger()
	if err != nil {
		return err
	}
	c.logger = log
	if logFile != nil {
		closers = append(closers, logFile)
	}
	cfg := c.cfg

	store, err := drivers.Open(ctx, drivers.Options{
		Driver:      cfg.Storage.Driver,
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	}, c.logger)
	if err != nil {
		return err
	}
	closers = append(closers, store)

	answers, err := newCache(ctx, cfg.Cache, c.logger)
	if err != nil {
		return err
	}
	if cl, ok := answers.(closer); ok {
		closers = append(closers, cl)
	}

	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	registry, err := newRegistry(cfg.LLM, creds, c.logger)
	if err != nil {
		return fmt.Errorf("building model registry: %w", err)
	}

	publisher, err := newPublisher(cfg.Events, c.logger)
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	closers = append(closers, publisher)

	pool, err := worker.NewPool(worker.Config{
		NumWorkers: cfg.Server.StreamWorkers,
		QueueSize:  cfg.Server.StreamQueue,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	closers = append(closers, poolCloser{pool})

	pipeline, err := resolve.New(resolve.Config{
		Cache:             answers,
		Knowledge:         store,
		History:           store,
		Registry:          registry,
		Pool:              pool,
		Publisher:         publisher,
		Logger:            c.logger,
		UnavailableAnswer: cfg.LLM.UnavailableAnswer,
		EmptyAnswer:       cfg.LLM.EmptyAnswer,
	})
	if err != nil {
		return err
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: cfg.Server.Listen,
		DisableMCP: c.disableMCP,
	}, pipeline, store, c.logger)
	if err != nil {
		return err
	}

	models, def := pipeline.Models()
	c.logger.Info("model registry ready",
		"models", len(models),
		"default_model", def,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// poolCloser adapts the worker pool to closer. Close waits for in-flight
// streams to finish recording.
type poolCloser struct {
	pool *worker.Pool
}

func (p poolCloser) Close() error {
	p.pool.Close()
	return nil
}

// newLogger builds the terminal logger and, with --log-file, tees JSON
// records into that file. The returned file is nil without --log-file.
func (c *serveCommander) newLogger() (*slog.Logger, *os.File, error) {
	format, err := logger.ParseFormat(c.logFormat)
	if err != nil {
		return nil, nil, err
	}
	term := logger.New(logger.WithDebug(c.debug), logger.WithFormat(format))
	if c.logFile == "" {
		return term, nil, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	file := logger.New(logger.WithDebug(c.debug), logger.WithFormat(logger.FormatJSON), logger.WithOutput(f))
	return logger.Tee(term, file), f, nil
}
