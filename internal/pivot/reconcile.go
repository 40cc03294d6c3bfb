// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"slices"
)

// reconcilePlaces is the precision at which the two Total rows must agree.
const reconcilePlaces = 2

// Mismatch describes a Total cell on which the state and market rollups disagree.
type Mismatch struct {
	Column string
	State  Value
	Market Value
}

// ReconcileOptions tunes Reconcile.
type ReconcileOptions struct {
	// Compare lists the Total columns to check; nil checks every value column.
	Compare []string
}

// Reconcile merges a state rollup and a market rollup into one table labelled
// "Market / Region".
//
// The Total rows of both rollups are compared after rounding to 2 places and
// any disagreement is returned as mismatches; the state Total is kept and the
// market Total dropped either way. The merged rows are ordered by
// sorting_column, so each market follows its state and Total comes last.
func Reconcile(state, market Table, opts ReconcileOptions) (Table, []Mismatch) {
	compare := opts.Compare
	if compare == nil {
		compare = mergeColumns(state.valueColumns(), market.valueColumns())
	}

	var mismatches []Mismatch
	stateTotal, okState := state.Total()
	marketTotal, okMarket := market.Total()
	if okState && okMarket {
		for _, col := range compare {
			s, m := stateTotal.Get(col), marketTotal.Get(col)
			if !equalRounded(s, m, reconcilePlaces) {
				mismatches = append(mismatches, Mismatch{Column: col, State: s, Market: m})
			}
		}
	} else if okState != okMarket {
		mismatches = append(mismatches, Mismatch{Column: TotalLabel})
	}

	out := Table{
		Label:   RegionColumn,
		Columns: withSortLast(mergeColumns(state.Columns, market.Columns)),
	}
	out.Rows = append(out.Rows, state.Clone().Rows...)
	for _, r := range market.Clone().Rows {
		if r.Key.IsTotal() {
			continue
		}
		out.Rows = append(out.Rows, r)
	}
	return out.SortBySortKey(), mismatches
}

// withSortLast moves SortColumn to the end of columns when present.
func withSortLast(columns []string) []string {
	i := slices.Index(columns, SortColumn)
	if i < 0 {
		return columns
	}
	out := slices.Delete(slices.Clone(columns), i, i+1)
	return append(out, SortColumn)
}

// Network group labels used by NetworkTotals, in display order.
const (
	TotalsSpectrumNews = "Spectrum News"
	TotalsBig4         = "Big 4"
	TotalsCableNews    = "Cable News"
)

// NetworkTotals stacks the Total rows of the Spectrum News, Big 4 and Cable
// News tables into one "Network Group" table sorted 1, 2, 3.
func NetworkTotals(sn, big4, cable Table) Table {
	out := Table{
		Label:   NetworkGroupColumn,
		Columns: withSortLast(mergeColumns(sn.Columns, big4.Columns, cable.Columns)),
	}
	groups := []struct {
		table Table
		label string
	}{
		{sn, TotalsSpectrumNews},
		{big4, TotalsBig4},
		{cable, TotalsCableNews},
	}
	for i, g := range groups {
		total, ok := g.table.Total()
		if !ok {
			continue
		}
		row := total.clone()
		row.Key = RowKey{State: g.label}
		row.Label = g.label
		row.Sort = float64(i + 1)
		out.Rows = append(out.Rows, row)
	}
	return out
}
