// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"strconv"

	"github.com/tomtom215/audience-insights/internal/models"
)

// PeriodicityPivot averages periodicity by fiscal month at level. Columns are
// YYYYMM labels in chronological order; no Total row is added.
func PeriodicityPivot(records []models.PeriodicityRecord, level Level) Table {
	x := newCrosstab(level)
	for _, r := range records {
		key := RowKey{State: r.State}
		if level == MarketLevel {
			key.Market = r.DisplayMarket
		}
		col := ColumnKey{Label: strconv.Itoa(r.FiscalMonth), Order: r.FiscalMonth}
		x.add(key, col, r.Periodicity, 0)
	}
	return x.meanTable()
}

// PeriodicityHistory merges the market and state periodicity rollups of
// records into one table ordered by sorting_column.
func PeriodicityHistory(records []models.PeriodicityRecord) Table {
	market := PeriodicityPivot(records, MarketLevel)
	state := PeriodicityPivot(records, StateLevel)

	out := Table{
		Label:   RegionColumn,
		Columns: withSortLast(mergeColumns(market.Columns, state.Columns)),
	}
	out.Rows = append(out.Rows, market.Clone().Rows...)
	out.Rows = append(out.Rows, state.Clone().Rows...)
	return out.SortBySortKey()
}
