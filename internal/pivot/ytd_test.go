// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"slices"
	"testing"
	"time"

	"github.com/tomtom215/audience-insights/internal/models"
)

var january2024 = YTDPeriod{
	FiscalYearStart: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	CurrentMonth:    time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
}

func TestYTDPivot_StateScenario(t *testing.T) {
	t.Parallel()

	records := testRecords{
		{year: 2024, month: 1, state: "NY", market: "Albany", subs: 100, adj: 10},
		{year: 2024, month: 1, state: "NY", market: "Buffalo", subs: 200, adj: 20},
	}.build()

	table := YTDPivot(records, StateLevel, january2024)
	ny := mustRow(t, table, RowKey{State: "NY"})
	// 300 subscribers and 30 engaged viewers, reported in thousands.
	assertNum(t, "service_subs", ny.Get(ColServiceSubs), 0.3)
	assertNum(t, "engaged_viewers", ny.Get(ColEngagedViewers), 0.03)
	assertNum(t, "percent_engaged", ny.Get(ColPercentEngaged), 10)

	if !slices.Equal(table.Columns, YTDColumns) {
		t.Errorf("Columns = %v, want %v", table.Columns, YTDColumns)
	}
	total := mustRow(t, table, TotalKey(StateLevel))
	if total.Label != YTDTotalLabel {
		t.Errorf("Total label = %q, want %q", total.Label, YTDTotalLabel)
	}
	if total.Sort != TotalSortKey {
		t.Errorf("Total sort = %v, want %v", total.Sort, TotalSortKey)
	}
}

func TestYTDPivot_PooledPercent(t *testing.T) {
	t.Parallel()

	records := testRecords{
		{year: 2024, month: 1, state: "NY", market: "Albany", subs: 100, adj: 10},
		{year: 2024, month: 1, state: "NY", market: "Buffalo", subs: 300, adj: 90},
	}.build()

	ny := mustRow(t, YTDPivot(records, StateLevel, january2024), RowKey{State: "NY"})
	// 100/400 pooled; the per-market mean would be 20.
	assertNum(t, "percent_engaged", ny.Get(ColPercentEngaged), 25)
}

func TestYTDPivot_FalseTierExcludedFromPercent(t *testing.T) {
	t.Parallel()

	records := testRecords{
		{year: 2024, month: 1, state: "NY", market: "Albany", tier: models.TierBulk, subs: 100, adj: 10},
		{year: 2024, month: 1, state: "NY", market: "Albany", tier: models.TierNonBulk, subs: 200, adj: 20},
		{year: 2024, month: 1, state: "NY", market: "Albany", tier: models.TierFalse, subs: 100, adj: 50},
	}.build()

	ny := mustRow(t, YTDPivot(records, StateLevel, january2024), RowKey{State: "NY"})
	assertNum(t, "service_subs", ny.Get(ColServiceSubs), 0.4)
	assertNum(t, "engaged_viewers", ny.Get(ColEngagedViewers), 0.08)
	assertNum(t, "percent_engaged", ny.Get(ColPercentEngaged), 10)
}

func TestYTDPivot_ProratesByLaunch(t *testing.T) {
	t.Parallel()

	period := YTDPeriod{
		FiscalYearStart: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		CurrentMonth:    time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
	}

	records := testRecords{
		{year: 2024, month: 1, state: "NY", market: "Albany", subs: 4000, adj: 400},
		{year: 2024, month: 2, state: "NY", market: "Albany", subs: 4000, adj: 400},
		{year: 2024, month: 3, state: "TX", market: "Austin", subs: 6000, adj: 900},
		{year: 2024, month: 4, state: "TX", market: "Austin", subs: 6000, adj: 900},
	}.build()
	for i := range records {
		if records[i].State == "TX" {
			records[i].LaunchDate = time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC)
		}
	}

	table := YTDPivot(records, StateLevel, period)

	// NY averages over April (4 months), TX over its launch month (2), in thousands.
	ny := mustRow(t, table, RowKey{State: "NY"})
	assertNum(t, "NY service_subs", ny.Get(ColServiceSubs), 2)
	assertNum(t, "NY engaged_viewers", ny.Get(ColEngagedViewers), 0.2)

	tx := mustRow(t, table, RowKey{State: "TX"})
	assertNum(t, "TX service_subs", tx.Get(ColServiceSubs), 6)
	assertNum(t, "TX engaged_viewers", tx.Get(ColEngagedViewers), 0.9)

	total := mustRow(t, table, TotalKey(StateLevel))
	assertNum(t, "Total service_subs", total.Get(ColServiceSubs), 8)
	assertNum(t, "Total percent_engaged", total.Get(ColPercentEngaged), 1.1/8*100)
}

func TestYTDPivot_ReconcilesAcrossLevels(t *testing.T) {
	t.Parallel()

	records := testRecords{
		{year: 2024, month: 1, state: "NY", market: "Albany", subs: 100, adj: 10},
		{year: 2024, month: 1, state: "NY", market: "Buffalo", subs: 200, adj: 20},
		{year: 2024, month: 1, state: "OH", market: "Columbus", subs: 50, adj: 25},
	}.build()

	state := YTDPivot(records, StateLevel, january2024)
	market := YTDPivot(records, MarketLevel, january2024)

	merged, mismatches := Reconcile(state, market, ReconcileOptions{Compare: YTDReconcileColumns})
	if len(mismatches) != 0 {
		t.Errorf("mismatches = %+v, want none", mismatches)
	}
	var totals int
	for _, r := range merged.Rows {
		if r.Key.IsTotal() {
			totals++
		}
	}
	if totals != 1 {
		t.Errorf("Total rows = %d, want 1", totals)
	}
}

func TestYTDPivot_NoIntermediateRounding(t *testing.T) {
	t.Parallel()

	period := YTDPeriod{
		FiscalYearStart: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		CurrentMonth:    time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	records := testRecords{
		{year: 2024, month: 1, state: "NY", market: "Albany", subs: 1000, adj: 100},
	}.build()

	ny := mustRow(t, YTDPivot(records, StateLevel, period), RowKey{State: "NY"})
	// 1000/3 averaged is 333.33..., not 333.33.
	assertNum(t, "service_subs", ny.Get(ColServiceSubs), 1000.0/3/1000)
	assertNum(t, "engaged_viewers", ny.Get(ColEngagedViewers), 100.0/3/1000)
}
