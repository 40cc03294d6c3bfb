// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"math"
	"testing"

	"github.com/tomtom215/audience-insights/internal/models"
)

// testRecord is a compact engagement fixture. Zero year/month default to
// March 2024 and an empty tier to Non-Bulk.
type testRecord struct {
	year, month int
	tier        string
	network     string
	group       string
	state       string
	market      string
	subs, adj   float64
	hev         float64
}

type testRecords []testRecord

func (rs testRecords) build() []models.EngagementRecord {
	out := make([]models.EngagementRecord, len(rs))
	for i, r := range rs {
		if r.year == 0 {
			r.year = 2024
		}
		if r.month == 0 {
			r.month = 3
		}
		if r.tier == "" {
			r.tier = models.TierNonBulk
		}
		out[i] = models.EngagementRecord{
			Year:               r.year,
			Month:              r.month,
			Tier:               r.tier,
			Network:            r.network,
			NetworkGroup:       r.group,
			Market:             r.market,
			State:              r.state,
			DisplayMarket:      r.market,
			Subscribers:        r.subs,
			AdjustedEngagement: r.adj,
			HighlyEngaged:      r.hev,
		}
	}
	return out
}

// mustRow returns the row with key or fails the test.
func mustRow(t *testing.T, table Table, key RowKey) Row {
	t.Helper()
	r, ok := table.Find(key)
	if !ok {
		t.Fatalf("row %v not found", key)
	}
	return r
}

// assertNum fails unless v is a number within 1e-9 of want.
func assertNum(t *testing.T, what string, v Value, want float64) {
	t.Helper()
	got, ok := v.Float()
	if !ok {
		t.Errorf("%s = null, want %v", what, want)
		return
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func assertNull(t *testing.T, what string, v Value) {
	t.Helper()
	if !v.IsNull() {
		t.Errorf("%s = %+v, want null", what, v)
	}
}
