// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

/*
Package services adapts long-running components to suture.Service.

	HTTPServerService  ListenAndServe/Shutdown of the API server
	PeriodicService    a task on a fixed interval (lockout cleanup, report sweeping)

Each service returns ctx.Err() when its context is canceled and a wrapped
error on failure, so the supervisor restarts it with backoff. String names
the service in supervisor events.
*/
package services
