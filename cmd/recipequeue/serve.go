package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/cwygoda/recipequeue/internal/adapter/api"
	httpAdapter "github.com/cwygoda/recipequeue/internal/adapter/http"
	"github.com/cwygoda/recipequeue/internal/adapter/processor"
	"github.com/cwygoda/recipequeue/internal/adapter/recipecache"
	"github.com/cwygoda/recipequeue/internal/adapter/sqlite"
	"github.com/cwygoda/recipequeue/internal/config"
	"github.com/cwygoda/recipequeue/internal/domain"
	"github.com/cwygoda/recipequeue/internal/logging"
	"github.com/cwygoda/recipequeue/internal/worker"
)

type serveFlags struct {
	port      int
	db        string
	apiURL    string
	logLevel  string
	logFormat string
}

func newServeCmd(configPath *string) *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the queue and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	cmd.Flags().IntVar(&flags.port, "port", 8080, "HTTP server port")
	cmd.Flags().StringVar(&flags.db, "db", "", "SQLite history database path")
	cmd.Flags().StringVar(&flags.apiURL, "api-url", "", "recipe backend base URL")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "", "log format (auto, console, json)")
	return cmd
}

// applyFlags overrides the loaded config with flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f serveFlags) {
	if cmd.Flags().Changed("port") {
		cfg.Port = f.port
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = f.db
	}
	if cmd.Flags().Changed("api-url") {
		cfg.APIBaseURL = f.apiURL
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
}

// loadConfig reads the config file, falling back to the XDG default path.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// acquireInstanceLock takes an exclusive lock next to the history database so
// only one queue runs against it.
func acquireInstanceLock(dbPath string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}
	lock := flock.New(dbPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another recipequeue instance is using %s", dbPath)
	}
	return lock, nil
}

func serve(cfg *config.Config) error {
	logger, err := logging.New(os.Stderr, logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting recipequeue", "port", cfg.Port, "db", cfg.DBPath, "api", cfg.APIBaseURL)
	if cfg.APIToken == "" {
		logger.Warn("no api token configured, extraction calls will fail")
	}

	lock, err := acquireInstanceLock(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release instance lock", "err", err)
		}
	}()

	history, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer history.Close()

	client := api.NewClient(cfg.APIBaseURL, cfg.APIToken, nil, logger)
	cache := recipecache.New(client, logger)

	registry := processor.NewRegistry()
	registry.Register(domain.KindVideo, processor.NewVideoExtractor(client))
	registry.Register(domain.KindImageBatch, processor.NewImageExtractor(client))

	store := domain.NewStore()
	w := worker.New(store, registry, worker.Options{
		Logger:           logger,
		Cache:            cache,
		Recorder:         history,
		ProgressInterval: cfg.ProgressInterval.Duration,
		PruneDelay:       cfg.PruneDelay.Duration,
	})
	defer w.Close()

	svc := domain.NewQueueService(store, w)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := httpAdapter.NewServer(svc, addr, httpAdapter.Deps{
		Recipes:   cache,
		VideoInfo: client,
		History:   history,
		Activity:  w,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", "err", err)
	}

	logger.Info("shutdown complete")
	return nil
}
