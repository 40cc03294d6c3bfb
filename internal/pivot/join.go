// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tomtom215/audience-insights/internal/models"
)

// Role tags appended to period columns before they are relabelled.
const (
	roleCurrent   = "curr"
	rolePrevious  = "prev"
	roleYearAgo   = "prev_12"
	roleHEVChange = "hevchange"
)

// MoMGroupOrder is the network group order of the month-over-month table.
var MoMGroupOrder = []string{models.GroupSpectrumNews, models.GroupCableNews, models.GroupBig4}

// HEVGroupOrder is the network group order of the HEV table.
var HEVGroupOrder = []string{models.GroupSpectrumNews, models.GroupBig4, models.GroupCableNews}

// MoMLabels are the period strings substituted into month-over-month columns.
type MoMLabels struct {
	Current  string // e.g. "March 2024"
	Previous string // e.g. "February 2024"
	YearAgo  string // e.g. "March 2023"
}

// HEVLabels are the period bounds substituted into HEV columns.
type HEVLabels struct {
	CurrentStart, CurrentEnd   string
	PreviousStart, PreviousEnd string
}

// tagged is a period table whose columns get a role suffix.
type tagged struct {
	table Table
	role  string
}

// joined is the outer join of several tagged tables on row key.
type joined struct {
	keys   []RowKey
	labels map[RowKey]string
	values map[RowKey]map[string]Value
	sorts  map[RowKey][]float64 // per input, valid where has is set
	has    map[RowKey][]bool
}

// outerJoin suffixes every value column with its role and joins on row key.
// Keys keep first-seen order across inputs.
func outerJoin(parts ...tagged) joined {
	j := joined{
		labels: make(map[RowKey]string),
		values: make(map[RowKey]map[string]Value),
		sorts:  make(map[RowKey][]float64),
		has:    make(map[RowKey][]bool),
	}
	for i, p := range parts {
		cols := p.table.valueColumns()
		for _, r := range p.table.Rows {
			if _, ok := j.values[r.Key]; !ok {
				j.keys = append(j.keys, r.Key)
				j.labels[r.Key] = r.Label
				j.values[r.Key] = make(map[string]Value)
				j.sorts[r.Key] = make([]float64, len(parts))
				j.has[r.Key] = make([]bool, len(parts))
			}
			for _, c := range cols {
				j.values[r.Key][c+"_"+p.role] = r.Get(c)
			}
			j.sorts[r.Key][i] = r.Sort
			j.has[r.Key][i] = true
		}
	}
	return j
}

// sortFrom returns the row's sort key from the first input in priority order
// that contains it.
func (j joined) sortFrom(key RowKey, priority ...int) float64 {
	for _, i := range priority {
		if j.has[key][i] {
			return j.sorts[key][i]
		}
	}
	return TotalSortKey
}

// table materializes the join with the given tagged column order, sort
// priority and column renaming.
func (j joined) table(order []string, rename func(string) string, priority ...int) Table {
	out := Table{Label: RegionColumn}
	for _, c := range order {
		out.Columns = append(out.Columns, rename(c))
	}
	out.Columns = append(out.Columns, SortColumn)

	for _, k := range j.keys {
		values := make(map[string]Value, len(order))
		for _, c := range order {
			values[rename(c)] = j.values[k][c]
		}
		out.Rows = append(out.Rows, Row{
			Key:    k,
			Label:  j.labels[k],
			Values: values,
			Sort:   j.sortFrom(k, priority...),
		})
	}
	return out.SortBySortKey()
}

// replacer applies substitutions in order, each to the result of the previous.
func replacer(pairs ...string) func(string) string {
	return func(s string) string {
		for i := 0; i+1 < len(pairs); i += 2 {
			s = strings.ReplaceAll(s, pairs[i], pairs[i+1])
		}
		return s
	}
}

// JoinMoM joins the current month, previous month and trailing-year tables of
// the month-over-month report.
//
// Columns come out as SN, Cable News, Big 4 x (current, previous, trailing
// year) followed by sorting_column, e.g. "SN_March 2024", "SN_February 2024",
// "SN_March 2023 - February 2024". Rows are ordered by the trailing-year
// table's sorting_column.
func JoinMoM(curr, prev, prev12 Table, labels MoMLabels) Table {
	j := outerJoin(
		tagged{curr, roleCurrent},
		tagged{prev, rolePrevious},
		tagged{prev12, roleYearAgo},
	)

	var order []string
	for _, g := range MoMGroupOrder {
		order = append(order, g+"_"+roleCurrent, g+"_"+rolePrevious, g+"_"+roleYearAgo)
	}
	rename := replacer(
		roleYearAgo, fmt.Sprintf("%s - %s", labels.YearAgo, labels.Previous),
		roleCurrent, labels.Current,
		rolePrevious, labels.Previous,
	)
	return j.table(order, rename, 2, 0, 1)
}

// HEVChange returns curr - prev for every network group, keyed like curr.
// Rows present in only one table yield null changes.
func HEVChange(curr, prev Table) Table {
	out := Table{Label: curr.Label, Columns: slices.Clone(HEVGroupOrder)}
	seen := make(map[RowKey]bool)
	add := func(r Row) {
		if seen[r.Key] {
			return
		}
		seen[r.Key] = true
		c, _ := curr.Find(r.Key)
		p, _ := prev.Find(r.Key)
		values := make(map[string]Value, len(HEVGroupOrder))
		for _, g := range HEVGroupOrder {
			values[g] = c.Get(g).Sub(p.Get(g))
		}
		out.Rows = append(out.Rows, Row{Key: r.Key, Label: r.Label, Values: values, Sort: r.Sort})
	}
	for _, r := range curr.Rows {
		add(r)
	}
	for _, r := range prev.Rows {
		add(r)
	}
	return out
}

// JoinHEV joins the current, previous and change tables of the HEV report.
//
// Columns come out as SN, Big 4, Cable News x (current, previous, change)
// followed by sorting_column, with "curr" and "prev" replaced by
// "<start> - <end>" of the matching period. Rows are ordered by the current
// table's sorting_column.
func JoinHEV(curr, prev, change Table, labels HEVLabels) Table {
	j := outerJoin(
		tagged{curr, roleCurrent},
		tagged{prev, rolePrevious},
		tagged{change, roleHEVChange},
	)

	var order []string
	for _, g := range HEVGroupOrder {
		order = append(order, g+"_"+roleCurrent, g+"_"+rolePrevious, g+"_"+roleHEVChange)
	}
	rename := replacer(
		roleCurrent, fmt.Sprintf("%s - %s", labels.CurrentStart, labels.CurrentEnd),
		rolePrevious, fmt.Sprintf("%s - %s", labels.PreviousStart, labels.PreviousEnd),
	)
	return j.table(order, rename, 0, 1)
}
