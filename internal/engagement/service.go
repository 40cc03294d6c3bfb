// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

// Package engagement assembles the engagement dashboard reports.
//
// Each report reads flat records from the store, splits them by network
// group, builds state and market rollups with the pivot engine, reconciles
// the two, joins periods where the report compares them and rounds the result.
// Nothing is cached: every call recomputes from the store.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/audience-insights/internal/database"
	"github.com/tomtom215/audience-insights/internal/logging"
	"github.com/tomtom215/audience-insights/internal/metrics"
	"github.com/tomtom215/audience-insights/internal/models"
	"github.com/tomtom215/audience-insights/internal/pivot"
)

// ErrInvalidRange is returned when report months are out of order.
var ErrInvalidRange = errors.New("engagement: invalid month range")

// Report precision.
const places = 3

// monthLabel formats months inside column names, e.g. "March 2024".
const monthLabel = "January 2006"

// Store reads engagement and periodicity records.
type Store interface {
	DataRange(ctx context.Context) (models.DataRange, error)
	Engagement(ctx context.Context, q database.EngagementQuery) ([]models.EngagementRecord, error)
	Periodicity(ctx context.Context, from, to int, networks []string) ([]models.PeriodicityRecord, error)
	PeriodicityHistory(ctx context.Context, from, to int) ([]models.PeriodicityRecord, error)
}

// Report is the data and metadata of one endpoint response.
type Report struct {
	Data     map[string]any
	Metadata map[string]any
}

// Service builds engagement reports.
type Service struct {
	store Store
}

// NewService creates a Service reading from store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// DataRange reports the oldest and newest months with engagement data,
// formatted "Jan 2024".
func (s *Service) DataRange(ctx context.Context) (Report, error) {
	r, err := s.store.DataRange(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read data range: %w", err)
	}
	return Report{Data: map[string]any{
		"oldest_month":       r.Oldest.Format("Jan 2006"),
		"most_current_month": r.Newest.Format("Jan 2006"),
	}}, nil
}

// checkOrder fails unless months are in non-decreasing order.
func checkOrder(months ...time.Time) error {
	for i := 1; i < len(months); i++ {
		if months[i].Before(months[i-1]) {
			return fmt.Errorf("%w: %s is before %s", ErrInvalidRange,
				months[i].Format(monthLabel), months[i-1].Format(monthLabel))
		}
	}
	return nil
}

// groups holds records split by network group.
type groups struct {
	sn, cable, big4 []models.EngagementRecord
}

func splitGroups(records []models.EngagementRecord) groups {
	var g groups
	for _, r := range records {
		switch r.NetworkGroup {
		case models.GroupSpectrumNews:
			g.sn = append(g.sn, r)
		case models.GroupCableNews:
			g.cable = append(g.cable, r)
		case models.GroupBig4:
			g.big4 = append(g.big4, r)
		}
	}
	return g
}

// rollup builds a state and a market table with build and reconciles them.
// Disagreeing totals are logged and counted but do not fail the report.
func rollup(ctx context.Context, report string, opts pivot.ReconcileOptions, build func(pivot.Level) pivot.Table) pivot.Table {
	start := time.Now()
	state := build(pivot.StateLevel)
	market := build(pivot.MarketLevel)
	table, mismatches := pivot.Reconcile(state, market, opts)
	recordBuild(report, start)

	if len(mismatches) > 0 {
		metrics.RecordReconciliationMismatch(report, len(mismatches))
		for _, m := range mismatches {
			st, _ := m.State.Float()
			mk, _ := m.Market.Float()
			logging.Ctx(ctx).Warn().
				Str("report", report).
				Str("column", m.Column).
				Float64("state_total", st).
				Float64("market_total", mk).
				Msg("State and market totals disagree")
		}
	}
	return table
}

// renameFoxNews maps the periodicity feed's network name to the one used by
// engagement data.
func renameFoxNews(records []models.PeriodicityRecord) {
	for i := range records {
		if records[i].Network == models.NetworkFoxNews {
			records[i].Network = models.NetworkFoxNewsChannel
		}
	}
}

func recordBuild(report string, start time.Time) {
	metrics.RecordPivotBuild(report, time.Since(start))
}
