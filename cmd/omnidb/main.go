// Package main is the omnidb gateway entry point.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/omnidb-project/omnidb/internal/config"
	"github.com/omnidb-project/omnidb/internal/server"
	"github.com/omnidb-project/omnidb/pkg/dialect"
	"github.com/omnidb-project/omnidb/pkg/engine"
	"github.com/omnidb-project/omnidb/pkg/pipeline"
	"github.com/omnidb-project/omnidb/pkg/record"
	"github.com/omnidb-project/omnidb/pkg/reflection"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	host       string
	port       int
	driver     string
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "omnidb [flags] DATABASE",
		Short: "SQL gateway that transpiles queries and executes them against a single backing store",
		Long: `omnidb accepts queries in several source SQL dialects, rewrites them
into the backing store's dialect, executes them and keeps an append-only
audit trail of every submitted query inside the same store.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.host, "host", "H", "127.0.0.1", "Host to bind")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 4411, "Port to bind")
	cmd.Flags().StringVar(&opts.driver, "driver", "sqlite3", "Backing store driver (sqlite3 or postgres)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to YAML configuration file")
	return cmd
}

func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return cfg, err
		}
	}

	// Explicit flags win over the config file.
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = opts.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = opts.port
	}
	if cmd.Flags().Changed("driver") {
		cfg.Backend.Driver = opts.driver
	}

	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, opts *options, dsn string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	db, err := sql.Open(cfg.Backend.Driver, dsn)
	if err != nil {
		return fmt.Errorf("opening backing store: %w", err)
	}
	defer func() { _ = db.Close() }()

	store := record.New(db, cfg.Backend.Driver)
	if err := store.EnsureSchema(); err != nil {
		return fmt.Errorf("ensuring audit schema: %w", err)
	}

	inspector, err := reflection.New(db, cfg.Backend.Driver)
	if err != nil {
		return err
	}

	writeDialect, err := dialect.ForDriver(cfg.Backend.Driver)
	if err != nil {
		return err
	}

	executor, err := engine.New(engine.Config{Driver: cfg.Backend.Driver, DSN: dsn})
	if err != nil {
		return err
	}

	pipe, err := pipeline.New(pipeline.Config{
		WriteDialect: writeDialect,
		Executor:     executor,
		Store:        store,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHandler(server.HandlerConfig{
		Pipeline:  pipe,
		Inspector: inspector,
		Store:     store,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return server.Run(cmd.Context(), addr, handler, logger)
}
