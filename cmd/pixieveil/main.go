package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixieveil/pixieveil/dimse"
	"github.com/pixieveil/pixieveil/internal/anonymize"
	"github.com/pixieveil/pixieveil/internal/completion"
	"github.com/pixieveil/pixieveil/internal/config"
	"github.com/pixieveil/pixieveil/internal/counters"
	"github.com/pixieveil/pixieveil/internal/dashboard"
	"github.com/pixieveil/pixieveil/internal/filter"
	"github.com/pixieveil/pixieveil/internal/ingest"
	"github.com/pixieveil/pixieveil/internal/numbering"
	"github.com/pixieveil/pixieveil/internal/storage"
	"github.com/pixieveil/pixieveil/internal/upload"
	"github.com/pixieveil/pixieveil/server"
	"github.com/pixieveil/pixieveil/services"
)

const drainTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := counters.New()

	registry := anonymize.NewRegistry()
	anonymiser := anonymize.NewAnonymiser(registry)
	profile := loadProfile(cfg, logger)

	seriesFilter := filter.New(cfg.SeriesFilter.ExcludeModalities, cfg.SeriesFilter.KeepOriginalSeries)
	allocator := numbering.New(cfg.Storage.BasePath)

	manager := storage.New(
		cfg.Storage.BasePath,
		cfg.Storage.TempPath,
		allocator,
		seriesFilter,
		anonymiser,
		profile,
		stats,
		logger,
	)

	if err := manager.Recover(time.Now()); err != nil {
		return fmt.Errorf("boot recovery failed: %w", err)
	}

	uploader := upload.New(cfg.Storage.RemoteStorage.BaseURL, cfg.Storage.RemoteStorage.AuthToken)
	if !cfg.RemoteUploadEnabled() {
		logger.Info("remote storage not configured, uploads disabled")
	}

	tracker := completion.New(
		manager,
		uploader,
		stats,
		time.Duration(cfg.CompletionCheckInterval())*time.Second,
		time.Duration(cfg.CompletionTimeout())*time.Second,
		logger,
	)

	adapter := ingest.NewAdapter(manager, 4, 256, logger)
	adapter.Start(ctx)

	svcRegistry := services.NewRegistry()
	svcRegistry.RegisterHandler(dimse.CEchoRQ, services.NewEchoService())
	svcRegistry.RegisterHandler(dimse.CStoreRQ, adapter)

	dash := dashboard.New(
		fmt.Sprintf("%s:%d", cfg.HTTPServer.IP, cfg.HTTPServer.Port),
		manager,
		logger,
	)

	errCh := make(chan error, 3)

	go func() {
		tracker.Run(ctx)
		errCh <- nil
	}()

	go func() {
		errCh <- dash.ListenAndServe(ctx)
	}()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.DicomServer.IP, cfg.DicomServer.Port)
		errCh <- server.ListenAndServe(ctx, addr, cfg.DicomServer.AETitle, svcRegistry,
			server.WithLogger(logger),
			server.WithStorageSOPClasses(cfg.StorageSOPClassUIDs()),
			server.WithAssociationHook(stats.AddAssociation),
		)
	}()

	var firstErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case firstErr = <-errCh:
		stop()
	}

	manager.Shutdown()
	adapter.Drain(drainTimeout)

	if firstErr != nil && firstErr != context.Canceled {
		return firstErr
	}
	return nil
}

// loadProfile resolves the configured anonymization profile, falling back
// to the built-in default when none is configured.
func loadProfile(cfg *config.Config, logger *slog.Logger) *anonymize.Profile {
	name := cfg.DefaultProfileName()
	if raw, ok := cfg.Profile(name); ok {
		logger.Info("using anonymization profile", "profile", name)
		return anonymize.FromConfigActions(name, raw.Actions, raw.PixelBlackout, raw.KeepPrivateTags, raw.RetainStudyDate)
	}
	logger.Info("using default anonymization profile")
	return anonymize.DefaultProfile()
}
