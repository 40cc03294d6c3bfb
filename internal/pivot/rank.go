// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"slices"

	"github.com/tomtom215/audience-insights/internal/models"
)

// SNRankColumn holds the house network's rank in the current-period table.
const SNRankColumn = "SN_Rank"

// TrackedNetworks are the networks ranked against each other.
var TrackedNetworks = []string{
	"ABC", "CBS", "CNN", "FOX", models.NetworkFoxNewsChannel, "MSNBC", "NBC", models.NetworkSpecNews,
}

// DescendingRanks ranks values from highest (1) to lowest. Ties share the
// average of the positions they span; null entries are not ranked and get a
// null rank.
func DescendingRanks(values []Value) []Value {
	type entry struct {
		idx int
		v   float64
	}
	entries := make([]entry, 0, len(values))
	for i, v := range values {
		if f, ok := v.Float(); ok {
			entries = append(entries, entry{i, f})
		}
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.v > b.v:
			return -1
		case a.v < b.v:
			return 1
		default:
			return 0
		}
	})

	ranks := make([]Value, len(values))
	for i := 0; i < len(entries); {
		j := i
		for j+1 < len(entries) && entries[j+1].v == entries[i].v {
			j++
		}
		// positions i..j (0-based) share rank mean(i+1 .. j+1)
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[entries[k].idx] = Num(avg)
		}
		i = j + 1
	}
	return ranks
}

// RankCurrentPeriod adds SN_Rank to a reconciled network table: each row ranks
// the tracked networks by engagement, highest first, and SN_Rank is the
// SPECNEWS position. Networks missing from the row are not ranked.
func RankCurrentPeriod(t Table) Table {
	out := t.Clone()
	snIdx := slices.Index(TrackedNetworks, models.NetworkSpecNews)
	for i := range out.Rows {
		row := &out.Rows[i]
		values := make([]Value, len(TrackedNetworks))
		for n, network := range TrackedNetworks {
			values[n] = row.Get(network)
		}
		row.Values[SNRankColumn] = DescendingRanks(values)[snIdx]
	}
	out.Columns = append(out.Columns, SNRankColumn)
	return out
}
