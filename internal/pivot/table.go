// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"cmp"
	"slices"
)

// Column and label names that are part of the dashboard contract.
const (
	SortColumn         = "sorting_column"
	StateColumn        = "state"
	MarketColumn       = "clean_prg_name_all"
	RegionColumn       = "Market / Region"
	NetworkGroupColumn = "Network Group"
	RankColumn         = "Rank"

	TotalLabel    = "Total"
	YTDTotalLabel = "SN Total"

	// TotalSortKey pins Total rows below every state and market.
	TotalSortKey = 1000
)

// Level selects the row grain of a rollup.
type Level uint8

const (
	StateLevel Level = iota
	MarketLevel
)

// labelColumn is the name of the row label column a builder emits at level.
func (l Level) labelColumn() string {
	if l == MarketLevel {
		return MarketColumn
	}
	return StateColumn
}

// RowKey identifies a row. State rows leave Market empty.
type RowKey struct {
	State  string
	Market string
}

// TotalKey returns the key of the synthetic Total row at level.
func TotalKey(level Level) RowKey {
	if level == MarketLevel {
		return RowKey{State: TotalLabel, Market: TotalLabel}
	}
	return RowKey{State: TotalLabel}
}

// IsTotal reports whether the key belongs to a Total row.
func (k RowKey) IsTotal() bool {
	return k.State == TotalLabel
}

// Compare orders keys by state, then market. State rows sort before their markets.
func (k RowKey) Compare(o RowKey) int {
	if c := cmp.Compare(k.State, o.State); c != 0 {
		return c
	}
	return cmp.Compare(k.Market, o.Market)
}

// Row is one table row.
type Row struct {
	Key    RowKey
	Label  string
	Values map[string]Value
	Sort   float64
}

// Get returns the cell for column. The sort column reads Row.Sort.
func (r Row) Get(column string) Value {
	if column == SortColumn {
		return Num(r.Sort)
	}
	return r.Values[column]
}

func (r Row) clone() Row {
	values := make(map[string]Value, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	r.Values = values
	return r
}

// Table is an ordered set of rows with an explicit column order.
//
// Label names the row label column and is emitted first; an empty Label means
// the table has no label column. Columns lists the remaining columns in display
// order and may include SortColumn.
type Table struct {
	Label   string
	Columns []string
	Rows    []Row
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	out := Table{
		Label:   t.Label,
		Columns: slices.Clone(t.Columns),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.clone()
	}
	return out
}

// ColumnNames returns every column in display order, label column first.
func (t Table) ColumnNames() []string {
	if t.Label == "" {
		return slices.Clone(t.Columns)
	}
	return append([]string{t.Label}, t.Columns...)
}

// Find returns the row with key.
func (t Table) Find(key RowKey) (Row, bool) {
	for _, r := range t.Rows {
		if r.Key == key {
			return r, true
		}
	}
	return Row{}, false
}

// Total returns the Total row.
func (t Table) Total() (Row, bool) {
	for _, r := range t.Rows {
		if r.Key.IsTotal() {
			return r, true
		}
	}
	return Row{}, false
}

// valueColumns returns Columns without SortColumn.
func (t Table) valueColumns() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c != SortColumn {
			out = append(out, c)
		}
	}
	return out
}

// SortBySortKey returns a copy with rows in ascending sorting_column order.
// Rows with equal keys keep their relative order.
func (t Table) SortBySortKey() Table {
	out := t.Clone()
	slices.SortStableFunc(out.Rows, func(a, b Row) int {
		return cmp.Compare(a.Sort, b.Sort)
	})
	return out
}

// Round returns a copy with every number rounded half to even at places,
// sorting_column included.
func (t Table) Round(places int32) Table {
	out := t.Clone()
	for i := range out.Rows {
		row := &out.Rows[i]
		row.Sort = roundFloat(row.Sort, places)
		for k, v := range row.Values {
			if v.Kind == KindNumber {
				row.Values[k] = Num(roundFloat(v.Num, places))
			}
		}
	}
	return out
}

// RoundColumns returns a copy with the named columns rounded half to even at
// places. Other columns and sorting_column are left as they are.
func (t Table) RoundColumns(places int32, columns ...string) Table {
	out := t.Clone()
	for i := range out.Rows {
		for _, c := range columns {
			if v, ok := out.Rows[i].Values[c]; ok && v.Kind == KindNumber {
				out.Rows[i].Values[c] = Num(roundFloat(v.Num, places))
			}
		}
	}
	return out
}

// mergeColumns appends the columns of extra not already in base, keeping order.
func mergeColumns(base []string, extra ...[]string) []string {
	out := slices.Clone(base)
	for _, cols := range extra {
		for _, c := range cols {
			if !slices.Contains(out, c) {
				out = append(out, c)
			}
		}
	}
	return out
}
