// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/audience-insights/internal/api"
	"github.com/tomtom215/audience-insights/internal/auth"
	"github.com/tomtom215/audience-insights/internal/authz"
	"github.com/tomtom215/audience-insights/internal/cloud"
	"github.com/tomtom215/audience-insights/internal/config"
	"github.com/tomtom215/audience-insights/internal/database"
	"github.com/tomtom215/audience-insights/internal/engagement"
	"github.com/tomtom215/audience-insights/internal/logging"
	"github.com/tomtom215/audience-insights/internal/nielsen"
	"github.com/tomtom215/audience-insights/internal/supervisor"
	"github.com/tomtom215/audience-insights/internal/supervisor/services"
)

const (
	lockoutCleanupInterval = 5 * time.Minute
	reportSweepInterval    = time.Hour
)

//nolint:gocyclo // sequential startup
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
		File: logging.FileConfig{
			Path:       cfg.Logging.FilePath,
			MaxSizeMB:  cfg.Logging.FileMaxSizeMB,
			MaxBackups: cfg.Logging.FileMaxBackups,
			MaxAgeDays: cfg.Logging.FileMaxAgeDays,
			Compress:   cfg.Logging.FileCompress,
		},
	})
	defer func() {
		if err := logging.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing log file")
		}
	}()

	logging.Info().
		Str("db_driver", cfg.Database.Driver).
		Str("aws_region", cfg.AWS.Region).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting Audience Insights")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := cloud.LoadAWSConfig(ctx, &cfg.AWS)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load AWS configuration")
	}

	db, err := database.New(ctx, &cfg.Database, database.Options{
		Credentials: awsCfg.Credentials,
		Region:      awsCfg.Region,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	storage := cloud.NewStorageFromConfig(awsCfg, &cfg.AWS)
	mailer := cloud.NewMailerFromConfig(awsCfg, &cfg.AWS)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	authSvc := auth.NewService(db, mailer, jwtManager, &cfg.Security)

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}

	generator := nielsen.NewGenerator(db, storage, cfg.Nielsen)

	handler := api.NewHandler(api.Deps{
		Config:     cfg,
		Engagement: engagement.NewService(db),
		Auth:       authSvc,
		Storage:    storage,
		Nielsen:    db,
		Users:      db,
		Reports:    generator,
		DB:         db,
	})
	router := api.NewRouter(&cfg.Server, handler, auth.NewMiddleware(jwtManager), authz.NewMiddleware(enforcer))

	server := &http.Server{
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMaintenanceService(services.NewPeriodicService("lockout-cleanup", lockoutCleanupInterval,
		func(context.Context) error {
			if n := authSvc.Lockout().Cleanup(); n > 0 {
				logging.Debug().Int("released", n).Msg("Expired login lockouts released")
			}
			return nil
		}))
	tree.AddMaintenanceService(services.NewPeriodicService("report-sweep", reportSweepInterval,
		func(context.Context) error {
			n, err := generator.SweepStale(cfg.Nielsen.ReportTTL)
			if n > 0 {
				logging.Info().Int("removed", n).Msg("Stale Nielsen reports removed")
			}
			return err
		}))
	if cfg.AWS.CacheTTL > 0 {
		tree.AddMaintenanceService(services.NewPeriodicService("cache-prune", cfg.AWS.CacheTTL,
			func(context.Context) error {
				storage.PruneCache()
				return nil
			}))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Audience Insights stopped")
}
