package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vincentbai/browsetrace-server/internal/config"
	"github.com/vincentbai/browsetrace-server/internal/database"
	"github.com/vincentbai/browsetrace-server/internal/ingest"
	"github.com/vincentbai/browsetrace-server/internal/logger"
	"github.com/vincentbai/browsetrace-server/internal/observability"
	"github.com/vincentbai/browsetrace-server/internal/server"
	"github.com/vincentbai/browsetrace-server/internal/snapshots"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "browsetrace-server",
	Short:        "Collector for the BrowserTrace study extension",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collector HTTP server",
	RunE:  runServe,
}

var initDBCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create any missing database tables and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := openDatabase(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("Tables ready (%s)\n", cfg.Database.Type)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = filepath.Join(config.DataDir(), "config.toml")
		}
		if err := config.Init(path, config.Default()); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		fmt.Printf("Configuration initialized at %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(serveCmd, initDBCmd, configCmd)
}

func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return cfg, log, nil
}

func openDatabase(cfg *config.Config, log *logger.Logger) (*database.Database, error) {
	var creds config.Credentials
	if cfg.Database.Type == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		var err error
		creds, err = config.LoadCredentials(cfg.Database.CredentialsPath)
		if errors.Is(err, config.ErrNoCredentials) {
			log.Warn("no database credentials found, connecting without them", "credentials_path", cfg.Database.CredentialsPath)
		} else if err != nil {
			return nil, err
		}
	}
	return database.NewDatabase(cfg.Database, creds, log)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := openDatabase(cfg, log)
	if err != nil {
		log.Error("failed to open database", "error", err)
		return err
	}
	defer db.Close()

	var traceService string
	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracing(cfg.Tracing.ServiceName, os.Stdout)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Warn("failed to flush traces", "error", err)
			}
		}()
		traceService = cfg.Tracing.ServiceName
	}

	terms, err := snapshots.Load(cfg.SearchTerms)
	if err != nil {
		return err
	}

	dispatcher := ingest.NewDispatcher(log, cfg.ClosedCohorts)
	srv := server.NewServer(db, dispatcher, terms, log, cfg.Address, server.Options{
		MaxBodyBytes:    cfg.MaxBodyBytes,
		AllowOrigins:    cfg.AllowOrigins,
		ReadTimeout:     time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:    time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second,
		TraceService:    traceService,
	})
	return srv.Start(cmd.Context())
}
