// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/audience-insights/internal/logging"
)

// Task is one run of a periodic job.
type Task func(ctx context.Context) error

// PeriodicService runs a task on a fixed interval until its context ends.
//
// A failing run is logged and the schedule continues; only a panic in the
// task reaches the supervisor, which restarts the service with backoff.
//
//	tree.AddMaintenanceService(services.NewPeriodicService("lockout-cleanup", time.Minute, cleanup))
type PeriodicService struct {
	name     string
	interval time.Duration
	task     Task
}

// NewPeriodicService creates a PeriodicService. interval must be positive.
func NewPeriodicService(name string, interval time.Duration, task Task) *PeriodicService {
	if interval <= 0 {
		panic(fmt.Sprintf("services: non-positive interval for %s", name))
	}
	return &PeriodicService{name: name, interval: interval, task: task}
}

// Serve implements suture.Service.
func (p *PeriodicService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	logger := logging.WithComponent(p.name)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := p.task(ctx); err != nil {
				logger.Warn().Err(err).Msg("Periodic task failed")
				continue
			}
			logger.Debug().Dur("duration", time.Since(start)).Msg("Periodic task finished")
		}
	}
}

func (p *PeriodicService) String() string {
	return p.name
}
