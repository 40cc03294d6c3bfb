// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package engagement

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/audience-insights/internal/database"
	"github.com/tomtom215/audience-insights/internal/models"
	"github.com/tomtom215/audience-insights/internal/pivot"
)

// Periodicity history network sets, as named in the periodicity feed.
var (
	periodicitySN    = []string{models.NetworkSpecNews}
	periodicityBig4  = []string{"ABC", "FOX", "NBC", "CBS"}
	periodicityCable = []string{"CNN", "MSNBC", models.NetworkFoxNews}
)

// YTD builds the year-to-date table from the fiscal year start through the
// current month. The FALSE tier is included; highly engaged viewers come
// from periodicity matched on month, network and market.
func (s *Service) YTD(ctx context.Context, start, end time.Time) (Report, error) {
	if err := checkOrder(start, end); err != nil {
		return Report{}, err
	}
	from, to := database.MonthKey(start), database.MonthKey(end)

	var (
		records     []models.EngagementRecord
		periodicity []models.PeriodicityRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.store.Engagement(gctx, database.EngagementQuery{From: from, To: to, IncludeFalseTier: true})
		return err
	})
	g.Go(func() error {
		var err error
		periodicity, err = s.store.Periodicity(gctx, from, to, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("failed to query YTD data: %w", err)
	}

	renameFoxNews(periodicity)
	records = withMonthlyHEV(records, periodicity)

	period := pivot.YTDPeriod{FiscalYearStart: start, CurrentMonth: end}
	opts := pivot.ReconcileOptions{Compare: pivot.YTDReconcileColumns}
	build := func(name string, recs []models.EngagementRecord) pivot.Table {
		return rollup(ctx, name, opts, func(l pivot.Level) pivot.Table {
			return pivot.YTDPivot(recs, l, period)
		}).RoundColumns(pivot.YTDPercentPlaces, pivot.YTDPercentColumns...).Round(places)
	}

	split := splitGroups(records)
	sn := build("ytd_sn", split.sn)
	return Report{
		Data: map[string]any{
			"ytd_sn":    sn,
			"ytd_cable": build("ytd_cable", split.cable),
			"ytd_big4":  build("ytd_big4", split.big4),
		},
		Metadata: map[string]any{"data_columns": sn.ColumnNames()},
	}, nil
}

// withMonthlyHEV keeps the records that have a periodicity for their month,
// network and market and sets their highly engaged value.
func withMonthlyHEV(records []models.EngagementRecord, periodicity []models.PeriodicityRecord) []models.EngagementRecord {
	type key struct {
		month   int
		network string
		market  string
	}
	lookup := make(map[key]float64, len(periodicity))
	for _, p := range periodicity {
		lookup[key{p.FiscalMonth, p.Network, p.Market}] = p.Periodicity
	}

	out := make([]models.EngagementRecord, 0, len(records))
	for _, r := range records {
		p, ok := lookup[key{r.FiscalMonth(), r.Network, r.Market}]
		if !ok {
			continue
		}
		r.HighlyEngaged = p / 100 * r.AdjustedEngagement
		out = append(out, r)
	}
	return out
}

// MoM builds the month-over-month table comparing end, previous and the
// trailing year start..previous.
func (s *Service) MoM(ctx context.Context, start, previous, end time.Time) (Report, error) {
	if err := checkOrder(start, previous, end); err != nil {
		return Report{}, err
	}
	records, err := s.store.Engagement(ctx, database.EngagementQuery{
		From: database.MonthKey(start),
		To:   database.MonthKey(end),
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to query MoM data: %w", err)
	}

	prevKey, endKey := database.MonthKey(previous), database.MonthKey(end)
	var curr, prev, prev12 []models.EngagementRecord
	for _, r := range records {
		m := r.FiscalMonth()
		if m == endKey {
			curr = append(curr, r)
		}
		if m == prevKey {
			prev = append(prev, r)
		}
		if m <= prevKey {
			prev12 = append(prev12, r)
		}
	}

	build := func(name string, recs []models.EngagementRecord) pivot.Table {
		return rollup(ctx, name, pivot.ReconcileOptions{}, func(l pivot.Level) pivot.Table {
			return pivot.EngagementPivot(recs, pivot.ByNetworkGroup, l)
		})
	}
	table := pivot.JoinMoM(
		build("mom_curr", curr),
		build("mom_prev", prev),
		build("mom_prev_12", prev12),
		pivot.MoMLabels{
			Current:  end.Format(monthLabel),
			Previous: previous.Format(monthLabel),
			YearAgo:  start.Format(monthLabel),
		},
	).Round(places)

	return Report{
		Data:     map[string]any{"mom_data": table},
		Metadata: map[string]any{"mom_data_columns": table.ColumnNames()},
	}, nil
}

// OverTime builds the monthly engagement tables from start through end.
func (s *Service) OverTime(ctx context.Context, start, end time.Time) (Report, error) {
	if err := checkOrder(start, end); err != nil {
		return Report{}, err
	}
	records, err := s.store.Engagement(ctx, database.EngagementQuery{
		From: database.MonthKey(start),
		To:   database.MonthKey(end),
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to query over-time data: %w", err)
	}

	build := func(name string, recs []models.EngagementRecord) pivot.Table {
		return rollup(ctx, name, pivot.ReconcileOptions{}, func(l pivot.Level) pivot.Table {
			return pivot.EngagementPivot(recs, pivot.ByYearMonth, l)
		}).Round(places)
	}
	split := splitGroups(records)
	sn := build("overtime_sn", split.sn)
	return Report{
		Data: map[string]any{
			"overtime_sn_data":    sn,
			"overtime_cable_data": build("overtime_cable", split.cable),
			"overtime_big4_data":  build("overtime_big4", split.big4),
		},
		Metadata: map[string]any{"data_columns": sn.ColumnNames()},
	}, nil
}

// Rank builds the current-period network rank table for end and the
// rank-over-time table for start..end.
func (s *Service) Rank(ctx context.Context, start, end time.Time) (Report, error) {
	if err := checkOrder(start, end); err != nil {
		return Report{}, err
	}
	endKey := database.MonthKey(end)

	var current, history []models.EngagementRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.store.Engagement(gctx, database.EngagementQuery{From: endKey, To: endKey})
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.store.Engagement(gctx, database.EngagementQuery{From: database.MonthKey(start), To: endKey})
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("failed to query rank data: %w", err)
	}

	byNetwork := rollup(ctx, "rank_current_period", pivot.ReconcileOptions{}, func(l pivot.Level) pivot.Table {
		return pivot.EngagementPivot(current, pivot.ByNetwork, l)
	})
	currentPeriod := pivot.RankCurrentPeriod(byNetwork).Round(places)
	overTime := pivot.RankOverTime(history, start, end).Round(places)

	return Report{
		Data: map[string]any{
			"rank_current_period": currentPeriod,
			"rank_over_time":      overTime,
		},
		Metadata: map[string]any{
			"rank_current_period_columns": currentPeriod.ColumnNames(),
			"rank_over_time_columns":      overTime.ColumnNames(),
		},
	}, nil
}

// HEVPeriods are the two periods compared by the HEV report.
type HEVPeriods struct {
	CurrentStart, CurrentEnd   time.Time
	PreviousStart, PreviousEnd time.Time
}

// HEV builds the highly-engaged-viewer table comparing two periods.
//
// Previous-period engagement uses the periodicity of the previous period's
// last month per market and network. Current-period engagement uses the
// SPECNEWS periodicity of the current period's last month per market. Records
// without a matching periodicity count zero highly engaged viewers.
func (s *Service) HEV(ctx context.Context, p HEVPeriods) (Report, error) {
	if err := checkOrder(p.CurrentStart, p.CurrentEnd); err != nil {
		return Report{}, err
	}
	if err := checkOrder(p.PreviousStart, p.PreviousEnd); err != nil {
		return Report{}, err
	}
	prevEnd, currEnd := database.MonthKey(p.PreviousEnd), database.MonthKey(p.CurrentEnd)

	var (
		currRecs, prevRecs []models.EngagementRecord
		currPer, prevPer   []models.PeriodicityRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		// The current window spans CurrentStart..CurrentEnd. The legacy
		// dashboard queried CurrentStart..CurrentStart only, which dropped
		// every month after the first.
		currRecs, err = s.store.Engagement(gctx, database.EngagementQuery{From: database.MonthKey(p.CurrentStart), To: currEnd})
		return err
	})
	g.Go(func() error {
		var err error
		prevRecs, err = s.store.Engagement(gctx, database.EngagementQuery{From: database.MonthKey(p.PreviousStart), To: prevEnd})
		return err
	})
	g.Go(func() error {
		var err error
		currPer, err = s.store.Periodicity(gctx, currEnd, currEnd, []string{models.NetworkSpecNews})
		return err
	})
	g.Go(func() error {
		var err error
		prevPer, err = s.store.Periodicity(gctx, prevEnd, prevEnd, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("failed to query HEV data: %w", err)
	}

	renameFoxNews(prevPer)
	prevByMarketNetwork := make(map[[2]string]float64, len(prevPer))
	for _, r := range prevPer {
		prevByMarketNetwork[[2]string{r.Market, r.Network}] = r.Periodicity
	}
	currByMarket := make(map[string]float64, len(currPer))
	for _, r := range currPer {
		currByMarket[r.Market] = r.Periodicity
	}

	prevRecs = slices.Clone(prevRecs)
	for i := range prevRecs {
		r := &prevRecs[i]
		r.HighlyEngaged = prevByMarketNetwork[[2]string{r.Market, r.Network}] / 100 * r.AdjustedEngagement
	}
	currRecs = slices.Clone(currRecs)
	for i := range currRecs {
		r := &currRecs[i]
		r.HighlyEngaged = currByMarket[r.Market] / 100 * r.AdjustedEngagement
	}

	build := func(name string, recs []models.EngagementRecord) pivot.Table {
		return rollup(ctx, name, pivot.ReconcileOptions{}, func(l pivot.Level) pivot.Table {
			return pivot.HEVPivot(recs, l)
		})
	}
	curr := build("hev_curr", currRecs)
	prev := build("hev_prev", prevRecs)
	table := pivot.JoinHEV(curr, prev, pivot.HEVChange(curr, prev), pivot.HEVLabels{
		CurrentStart:  p.CurrentStart.Format(monthLabel),
		CurrentEnd:    p.CurrentEnd.Format(monthLabel),
		PreviousStart: p.PreviousStart.Format(monthLabel),
		PreviousEnd:   p.PreviousEnd.Format(monthLabel),
	}).Round(places)

	return Report{
		Data:     map[string]any{"hev_data": table},
		Metadata: map[string]any{"columns": table.ColumnNames()},
	}, nil
}

// Quarterly builds yearly and quarterly engagement tables per network group,
// plus the network group totals of each.
func (s *Service) Quarterly(ctx context.Context, start, end time.Time) (Report, error) {
	if err := checkOrder(start, end); err != nil {
		return Report{}, err
	}
	records, err := s.store.Engagement(ctx, database.EngagementQuery{
		From: database.MonthKey(start),
		To:   database.MonthKey(end),
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to query quarterly data: %w", err)
	}
	split := splitGroups(records)

	data := make(map[string]any, 8)
	meta := make(map[string]any, 4)
	for _, v := range []struct {
		prefix, suffix string
		dim            pivot.Dimension
	}{
		{"yearly", "yearly", pivot.ByYear},
		{"quarter", "quarterly", pivot.ByQuarter},
	} {
		build := func(group string, recs []models.EngagementRecord) pivot.Table {
			return rollup(ctx, v.prefix+"_"+group, pivot.ReconcileOptions{}, func(l pivot.Level) pivot.Table {
				return pivot.EngagementPivot(recs, v.dim, l)
			})
		}
		sn, cable, big4 := build("sn", split.sn), build("cable", split.cable), build("big4", split.big4)
		totals := pivot.NetworkTotals(sn, big4, cable).Round(places)

		sn = sn.Round(places)
		data[v.prefix+"_sn"] = sn
		data[v.prefix+"_cable"] = cable.Round(places)
		data[v.prefix+"_big4"] = big4.Round(places)
		data[v.prefix+"_network_totals"] = totals
		meta["by_market_table_columns_"+v.suffix] = sn.ColumnNames()
		meta["network_totals_columns_"+v.suffix] = totals.ColumnNames()
	}
	return Report{Data: data, Metadata: meta}, nil
}

// PeriodicityHistory builds the average periodicity per month for Spectrum
// News, the Big 4 and the cable news networks.
func (s *Service) PeriodicityHistory(ctx context.Context, start, end time.Time) (Report, error) {
	if err := checkOrder(start, end); err != nil {
		return Report{}, err
	}
	records, err := s.store.PeriodicityHistory(ctx, database.MonthKey(start), database.MonthKey(end))
	if err != nil {
		return Report{}, fmt.Errorf("failed to query periodicity history: %w", err)
	}

	pick := func(networks []string) []models.PeriodicityRecord {
		var out []models.PeriodicityRecord
		for _, r := range records {
			if slices.Contains(networks, r.Network) {
				out = append(out, r)
			}
		}
		return out
	}
	build := func(name string, networks []string) pivot.Table {
		began := time.Now()
		t := pivot.PeriodicityHistory(pick(networks)).Round(places)
		recordBuild(name, began)
		return t
	}

	sn := build("periodicity_history_sn", periodicitySN)
	return Report{
		Data: map[string]any{
			"periodicity_history_sn":    sn,
			"periodicity_history_big4":  build("periodicity_history_big4", periodicityBig4),
			"periodicity_history_cable": build("periodicity_history_cable", periodicityCable),
		},
		Metadata: map[string]any{"periodicity_columns": sn.ColumnNames()},
	}, nil
}
