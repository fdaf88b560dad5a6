package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cadenza/internal/config"
	"cadenza/internal/importer"
	"cadenza/internal/library"
	"cadenza/internal/metadata"
	"cadenza/internal/server"
	"cadenza/internal/store"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Optional .env overrides (config path, library root)
	if err := godotenv.Load(".env"); err == nil {
		logger.Debug("Loaded environment from .env file")
	}

	configPath := os.Getenv("CADENZA_CONFIG")
	if configPath == "" {
		configPath = "./config.toml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}
	if root := os.Getenv("CADENZA_LIBRARY_ROOT"); root != "" {
		cfg.Library.Root = root
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	// Initialize the managed library tree
	lib := library.New(cfg.Library.Root, cfg.Library.AllowedRoot)
	if err := lib.Initialize(); err != nil {
		logger.WithError(err).Fatal("Error initializing library directories")
	}

	// Open the store inside the library's database subtree
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = lib.DatabasePath()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer st.Close()

	extractor := metadata.NewExtractor(cfg.Import.SupportedFormats)
	pipeline := importer.NewPipeline(st, lib, extractor)

	if ok, reasons := pipeline.ValidatePrerequisites(); !ok {
		logger.WithField("reasons", reasons).Fatal("Import prerequisites not met")
	}

	// Optional watch folder for drop-in imports
	if cfg.Import.WatchForChanges && cfg.Import.WatchFolder != "" {
		watcher, err := importer.NewWatcher(pipeline, cfg.Import.WatchFolder)
		if err != nil {
			logger.WithError(err).Warn("Could not create watch folder monitor")
		} else if err := watcher.Start(); err != nil {
			logger.WithError(err).Warn("Could not start watch folder monitor")
		} else {
			defer watcher.Stop()
			logger.WithField("watch_folder", cfg.Import.WatchFolder).Info("Watch folder monitoring enabled")
		}
	}

	srv := server.NewServer(cfg, st, lib, pipeline)

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	if stats, err := st.GetStats(); err == nil {
		logger.WithFields(logrus.Fields{
			"tracks":    stats.Tracks,
			"playlists": stats.Playlists,
			"albums":    stats.Albums,
		}).Info("Library loaded")
	}

	<-sigCh
	logger.Info("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Error during shutdown")
	}
}
