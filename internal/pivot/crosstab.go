// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"slices"

	"github.com/tomtom215/audience-insights/internal/models"
)

// cell accumulates one numerator/denominator pair. n counts contributing records.
type cell struct {
	num float64
	den float64
	n   int
}

// crosstab is a sparse (row, column) accumulator. Rows and columns are kept in
// first-seen order until finalized.
type crosstab struct {
	level   Level
	rows    []RowKey
	columns []ColumnKey
	cells   map[RowKey]map[string]*cell
}

func newCrosstab(level Level) *crosstab {
	return &crosstab{level: level, cells: make(map[RowKey]map[string]*cell)}
}

func (x *crosstab) add(key RowKey, col ColumnKey, num, den float64) {
	byCol, ok := x.cells[key]
	if !ok {
		byCol = make(map[string]*cell)
		x.cells[key] = byCol
		x.rows = append(x.rows, key)
	}
	c, ok := byCol[col.Label]
	if !ok {
		c = &cell{}
		byCol[col.Label] = c
		if !slices.ContainsFunc(x.columns, func(k ColumnKey) bool { return k.Label == col.Label }) {
			x.columns = append(x.columns, col)
		}
	}
	c.num += num
	c.den += den
	c.n++
}

// sorted returns row keys and column labels in display order.
func (x *crosstab) sorted() ([]RowKey, []string) {
	rows := slices.Clone(x.rows)
	slices.SortFunc(rows, RowKey.Compare)

	cols := slices.Clone(x.columns)
	slices.SortFunc(cols, ColumnKey.compare)
	labels := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = c.Label
	}
	return rows, labels
}

// ratioTable turns the accumulated sums into num/den*100 cells and appends the
// Total row, whose ratio is computed from the column sums of numerator and
// denominator. Cells with no contributing records stay null.
func (x *crosstab) ratioTable() Table {
	keys, columns := x.sorted()

	totals := make(map[string]*cell, len(columns))
	rows := make([]Row, 0, len(keys)+1)
	for _, key := range keys {
		values := make(map[string]Value, len(columns))
		for _, col := range columns {
			c, ok := x.cells[key][col]
			if !ok {
				values[col] = Null
				continue
			}
			t, ok := totals[col]
			if !ok {
				t = &cell{}
				totals[col] = t
			}
			t.num += c.num
			t.den += c.den
			t.n += c.n
			values[col] = ratio(c.num, c.den)
		}
		rows = append(rows, Row{Key: key, Label: labelOf(key, x.level), Values: values})
	}

	totalValues := make(map[string]Value, len(columns))
	for _, col := range columns {
		if t, ok := totals[col]; ok {
			totalValues[col] = ratio(t.num, t.den)
		} else {
			totalValues[col] = Null
		}
	}
	rows = append(rows, Row{Key: TotalKey(x.level), Label: TotalLabel, Values: totalValues})

	AssignSortKeys(rows, x.level)
	return Table{
		Label:   x.level.labelColumn(),
		Columns: append(columns, SortColumn),
		Rows:    rows,
	}
}

// meanTable turns accumulated sums into means (num/n). No Total row is added.
func (x *crosstab) meanTable() Table {
	keys, columns := x.sorted()

	rows := make([]Row, 0, len(keys))
	for _, key := range keys {
		values := make(map[string]Value, len(columns))
		for _, col := range columns {
			c, ok := x.cells[key][col]
			if !ok || c.n == 0 {
				values[col] = Null
				continue
			}
			values[col] = Num(c.num / float64(c.n))
		}
		rows = append(rows, Row{Key: key, Label: labelOf(key, x.level), Values: values})
	}

	AssignSortKeys(rows, x.level)
	return Table{
		Label:   x.level.labelColumn(),
		Columns: append(columns, SortColumn),
		Rows:    rows,
	}
}

// EngagementPivot builds the engagement-penetration rollup
// (adjusted engagement / subscribers * 100) of records at level, with one
// column per dim value plus the Total row.
func EngagementPivot(records []models.EngagementRecord, dim Dimension, level Level) Table {
	x := newCrosstab(level)
	for _, r := range records {
		x.add(rowKeyOf(r, level), dim.Key(r), r.AdjustedEngagement, r.Subscribers)
	}
	return x.ratioTable()
}

// HEVPivot builds the highly-engaged-viewer rollup
// (highly engaged / subscribers * 100) of records at level, by network group.
func HEVPivot(records []models.EngagementRecord, level Level) Table {
	x := newCrosstab(level)
	for _, r := range records {
		x.add(rowKeyOf(r, level), ByNetworkGroup.Key(r), r.HighlyEngaged, r.Subscribers)
	}
	return x.ratioTable()
}
