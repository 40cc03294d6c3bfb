// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

/*
Package supervisor runs the long-lived services under a suture v4 tree.

	RootSupervisor ("audience-insights")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   ├── PeriodicService "lockout-cleanup"
	│   ├── PeriodicService "report-sweep"
	│   └── PeriodicService "cache-prune" (when S3_CACHE_TTL > 0)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with backoff once FailureThreshold failures
accumulate, decaying at FailureDecay per second. Supervisor events go to
slog through sutureslog, which cmd/server bridges onto zerolog.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor
