// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"cmp"
	"slices"
	"time"

	"github.com/tomtom215/audience-insights/internal/models"
)

// FNCLabel is the short name shown for FOX NEWS CHANNEL in rank tables.
const FNCLabel = "FNC"

// RankOverTimeMonths returns the seven months shown in the rank-over-time
// table: start and the four months after it, start+5, then current. With
// start seven months before current this leaves out the month before current.
func RankOverTimeMonths(start, current time.Time) []time.Time {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]time.Time, 0, 7)
	for i := 0; i <= 5; i++ {
		months = append(months, first.AddDate(0, i, 0))
	}
	return append(months, time.Date(current.Year(), current.Month(), 1, 0, 0, 0, 0, time.UTC))
}

// monthRank is one network's standing in one month.
type monthRank struct {
	network string
	adjeng  float64
	rank    float64
}

// rankMonth ranks networks by engagement penetration within a single month.
// Networks with no subscribers cannot be ranked and are left out.
func rankMonth(records []models.EngagementRecord, month time.Time) []monthRank {
	type sums struct{ adj, subs float64 }
	byNetwork := make(map[string]*sums)
	var networks []string
	for _, r := range records {
		if r.Year != month.Year() || r.Month != int(month.Month()) {
			continue
		}
		s, ok := byNetwork[r.Network]
		if !ok {
			s = &sums{}
			byNetwork[r.Network] = s
			networks = append(networks, r.Network)
		}
		s.adj += r.AdjustedEngagement
		s.subs += r.Subscribers
	}
	slices.Sort(networks)

	values := make([]Value, len(networks))
	for i, n := range networks {
		values[i] = ratio(byNetwork[n].adj, byNetwork[n].subs)
	}
	ranks := DescendingRanks(values)

	out := make([]monthRank, 0, len(networks))
	for i, n := range networks {
		rank, ok := ranks[i].Float()
		if !ok {
			continue
		}
		name := n
		if name == models.NetworkFoxNewsChannel {
			name = FNCLabel
		}
		out = append(out, monthRank{network: name, adjeng: values[i].Num, rank: rank})
	}
	slices.SortStableFunc(out, func(a, b monthRank) int { return cmp.Compare(a.rank, b.rank) })
	return out
}

// rankSlot keys a rank-over-time row: the rank value plus its occurrence
// among tied networks, so ties stay on separate rows.
type rankSlot struct {
	rank    float64
	ordinal int
}

// RankOverTime builds the wide rank table for the months of
// RankOverTimeMonths(start, current).
//
// Each month contributes "<YYYY-MM>_network", "<YYYY-MM>_adjeng" and
// "<YYYY-MM>_rankchange" columns. Rows are keyed by Rank, outer-joined across
// months. Rank change is the previous shown month's rank minus this month's
// rank for the same network; it is null in the first month and for networks
// absent the month before.
func RankOverTime(records []models.EngagementRecord, start, current time.Time) Table {
	months := RankOverTimeMonths(start, current)

	out := Table{Columns: []string{RankColumn}}
	cells := make(map[rankSlot]map[string]Value)
	var slots []rankSlot

	var previous map[string]float64
	for _, month := range months {
		prefix := month.Format("2006-01") + "_"
		colNetwork, colAdjeng, colChange := prefix+"network", prefix+"adjeng", prefix+"rankchange"
		out.Columns = append(out.Columns, colNetwork, colAdjeng, colChange)

		ranked := rankMonth(records, month)
		current := make(map[string]float64, len(ranked))
		occurrences := make(map[float64]int)
		for _, mr := range ranked {
			current[mr.network] = mr.rank
			change := Null
			if prev, ok := previous[mr.network]; ok {
				change = Num(prev - mr.rank)
			}

			slot := rankSlot{rank: mr.rank, ordinal: occurrences[mr.rank]}
			occurrences[mr.rank]++
			if _, ok := cells[slot]; !ok {
				cells[slot] = make(map[string]Value)
				slots = append(slots, slot)
			}
			cells[slot][colNetwork] = Text(mr.network)
			cells[slot][colAdjeng] = Num(mr.adjeng)
			cells[slot][colChange] = change
		}
		previous = current
	}

	slices.SortFunc(slots, func(a, b rankSlot) int {
		if c := cmp.Compare(a.rank, b.rank); c != 0 {
			return c
		}
		return cmp.Compare(a.ordinal, b.ordinal)
	})
	for i, s := range slots {
		values := cells[s]
		values[RankColumn] = Num(s.rank)
		out.Rows = append(out.Rows, Row{Values: values, Sort: float64(i + 1)})
	}
	return out
}
