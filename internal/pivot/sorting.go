// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"slices"
	"time"
)

// AssignSortKeys sets Row.Sort on rows in place.
//
// The integer part is the 1-based alphabetical rank of the row's state among
// the distinct states present, Total included. At market level the n-th row of
// a state (in the given row order) adds n/10, or n/100 once the state has ten
// or more markets, so a market never reaches the next state's integer. Total
// rows are then pinned to TotalSortKey.
func AssignSortKeys(rows []Row, level Level) {
	states := make([]string, 0, len(rows))
	for _, r := range rows {
		if !slices.Contains(states, r.Key.State) {
			states = append(states, r.Key.State)
		}
	}
	slices.Sort(states)

	rank := make(map[string]int, len(states))
	for i, s := range states {
		rank[s] = i + 1
	}

	scale := make(map[string]int, len(states))
	if level == MarketLevel {
		count := make(map[string]int, len(states))
		for _, r := range rows {
			count[r.Key.State]++
		}
		for s, n := range count {
			scale[s] = offsetScale(n)
		}
	}

	seen := make(map[string]int, len(states))
	for i := range rows {
		r := &rows[i]
		base := rank[r.Key.State]
		if level == MarketLevel {
			seen[r.Key.State]++
			sc := scale[r.Key.State]
			r.Sort = float64(base*sc+seen[r.Key.State]) / float64(sc)
		} else {
			r.Sort = float64(base)
		}
		if r.Key.IsTotal() {
			r.Sort = TotalSortKey
		}
	}
}

// offsetScale is the smallest power of ten above n.
func offsetScale(n int) int {
	scale := 10
	for scale <= n {
		scale *= 10
	}
	return scale
}

// YTDDivisors returns the number of months each key contributes to a
// year-to-date average.
//
// The divisor is the month number of currentMonth, unless the key launched
// strictly after fiscalYearStart, in which case it is the launch month number.
// A zero launch date means unknown and uses currentMonth.
func YTDDivisors[K comparable](launchDates map[K]time.Time, fiscalYearStart, currentMonth time.Time) map[K]int {
	divisors := make(map[K]int, len(launchDates))
	for key, launch := range launchDates {
		if !launch.IsZero() && launch.After(fiscalYearStart) {
			divisors[key] = int(launch.Month())
			continue
		}
		divisors[key] = int(currentMonth.Month())
	}
	return divisors
}
