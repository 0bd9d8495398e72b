package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/tvarr/internal/config"
	"github.com/amaumene/tvarr/internal/controllers"
	"github.com/amaumene/tvarr/internal/models"
	"github.com/amaumene/tvarr/internal/services/qbittorrent"
	"github.com/amaumene/tvarr/internal/services/tvmaze"
	"github.com/amaumene/tvarr/internal/utils"
)

// app holds the wired components shared by every command
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *models.Database

	shows     *controllers.ShowController
	tracker   *controllers.Tracker
	downloads *controllers.DownloadController
	cleanup   *controllers.CleanupController

	shutdownTracing func(context.Context) error
}

// newApp wires every component. Logs go to logOut.
func newApp(logOut io.Writer) (*app, error) {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger and tracing
	logger := utils.NewLogger(cfg.LogLevel, logOut)
	logger.WithFields(logrus.Fields{
		"config_dir":     filepath.Dir(cfg.DatabaseFile),
		"download_path":  cfg.DownloadPath,
		"min_free":       humanize.IBytes(cfg.MinFreeBytes),
		"check_interval": cfg.CheckInterval.String(),
	}).Debug("Configuration loaded")

	a := &app{cfg: cfg, logger: logger}
	if cfg.TracingEnabled {
		a.shutdownTracing = utils.SetupTracing(logger)
	}

	// 3. Initialize database
	a.db, err = models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database (is another tvarr process running?): %w", err)
	}

	// 4. Load blacklist
	blacklist, err := utils.LoadBlacklist(cfg.BlacklistFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load blacklist, continuing without it")
		blacklist = utils.NewBlacklist()
	} else {
		logger.WithField("terms", blacklist.Len()).Debug("Blacklist loaded")
	}

	// 5. Initialize services
	qbit, err := qbittorrent.NewClient(cfg, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize qBittorrent client: %w", err)
	}
	catalog := tvmaze.NewClient(cfg, logger)

	// 6. Initialize controllers
	showCatalog := controllers.NewShowCatalog(a.db)
	airDates := controllers.NewAirDateController(catalog, logger)
	admission := controllers.NewAdmissionController(utils.DiskStat{}, cfg.DownloadPath, cfg.MinFreeBytes, logger)
	search := controllers.NewSearchController(qbit, blacklist, cfg, logger)

	a.downloads = controllers.NewDownloadController(a.db, qbit, cfg, logger)
	a.shows = controllers.NewShowController(showCatalog, catalog, airDates, logger)
	a.tracker = controllers.NewTracker(showCatalog, admission, search, a.downloads, airDates, cfg, logger)
	a.cleanup = controllers.NewCleanupController(a.db, cfg.GrabRetentionDays, logger)

	return a, nil
}

// Close releases the database and flushes pending spans
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WithError(err).Error("Failed to close database")
		}
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			a.logger.WithError(err).Error("Failed to shut down tracing")
		}
	}
}
