// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"slices"
	"time"

	"github.com/tomtom215/audience-insights/internal/models"
)

// YTD report columns.
const (
	ColServiceSubs          = "service_subs"
	ColEngagedViewers       = "engaged_viewers"
	ColPercentEngaged       = "percent_engaged"
	ColHighlyEngagedViewers = "highly_engaged_viewers"
	ColPercentHighlyEngaged = "percent_highly_engaged"
)

// YTDColumns is the fixed column order of the year-to-date table.
var YTDColumns = []string{
	ColServiceSubs,
	ColEngagedViewers,
	ColPercentEngaged,
	ColHighlyEngagedViewers,
	ColPercentHighlyEngaged,
	SortColumn,
}

// YTDReconcileColumns are the Total columns compared between the two rollups.
var YTDReconcileColumns = []string{ColServiceSubs, ColEngagedViewers, ColPercentEngaged}

// YTDPercentColumns are published at YTDPercentPlaces.
var YTDPercentColumns = []string{ColPercentEngaged, ColPercentHighlyEngaged}

// YTDPercentPlaces is the published precision of YTD percentages.
const YTDPercentPlaces = 2

// ThousandsUnit is the divisor of every YTD count: the table reports
// subscribers and viewers in thousands.
const ThousandsUnit = 1000

var ytdTiers = []string{models.TierBulk, models.TierFalse, models.TierNonBulk}

// YTDPeriod anchors a year-to-date report.
type YTDPeriod struct {
	FiscalYearStart time.Time
	CurrentMonth    time.Time
}

// tierSums holds per-tier subscriber, engagement and highly-engaged sums.
type tierSums struct {
	subs, adj, hev map[string]float64
}

func newTierSums() *tierSums {
	return &tierSums{
		subs: make(map[string]float64, len(ytdTiers)),
		adj:  make(map[string]float64, len(ytdTiers)),
		hev:  make(map[string]float64, len(ytdTiers)),
	}
}

func (s *tierSums) add(o *tierSums) {
	for _, t := range ytdTiers {
		s.subs[t] += o.subs[t]
		s.adj[t] += o.adj[t]
		s.hev[t] += o.hev[t]
	}
}

// values derives the published YTD cells. Totals span every tier; percentages
// leave the FALSE tier out of both numerator and denominator.
func (s *tierSums) values() map[string]Value {
	var subs, adj, hev float64
	for _, t := range ytdTiers {
		subs += s.subs[t]
		adj += s.adj[t]
		hev += s.hev[t]
	}
	paidSubs := s.subs[models.TierBulk] + s.subs[models.TierNonBulk]
	return map[string]Value{
		ColServiceSubs:          Num(subs),
		ColEngagedViewers:       Num(adj),
		ColPercentEngaged:       ratio(s.adj[models.TierBulk]+s.adj[models.TierNonBulk], paidSubs),
		ColHighlyEngagedViewers: Num(hev),
		ColPercentHighlyEngaged: ratio(s.hev[models.TierBulk]+s.hev[models.TierNonBulk], paidSubs),
	}
}

// prorate divides every tier sum by the row's divisor and reports it in
// thousands. Nothing is rounded here.
func (s *tierSums) prorate(divisor int) *tierSums {
	out := newTierSums()
	d := float64(divisor) * ThousandsUnit
	scale := func(v float64) float64 { return v / d }
	for _, t := range ytdTiers {
		out.subs[t] = scale(s.subs[t])
		out.adj[t] = scale(s.adj[t])
		out.hev[t] = scale(s.hev[t])
	}
	return out
}

// YTDPivot builds the year-to-date rollup at level.
//
// Subscriber, engagement and highly-engaged sums are split by tier, averaged
// over each row's YTDDivisors month count and reported in thousands. The
// "SN Total" row sums the averaged tiers and recomputes both percentages from
// those sums.
func YTDPivot(records []models.EngagementRecord, level Level, period YTDPeriod) Table {
	sums := make(map[RowKey]*tierSums)
	launch := make(map[RowKey]time.Time)
	var keys []RowKey
	for _, r := range records {
		key := rowKeyOf(r, level)
		s, ok := sums[key]
		if !ok {
			s = newTierSums()
			sums[key] = s
			keys = append(keys, key)
		}
		s.subs[r.Tier] += r.Subscribers
		s.adj[r.Tier] += r.AdjustedEngagement
		s.hev[r.Tier] += r.HighlyEngaged
		if launch[key].IsZero() && !r.LaunchDate.IsZero() {
			launch[key] = r.LaunchDate
		}
	}
	for _, k := range keys {
		if _, ok := launch[k]; !ok {
			launch[k] = time.Time{}
		}
	}
	slices.SortFunc(keys, RowKey.Compare)

	divisors := YTDDivisors(launch, period.FiscalYearStart, period.CurrentMonth)

	total := newTierSums()
	rows := make([]Row, 0, len(keys)+1)
	for _, k := range keys {
		averaged := sums[k].prorate(divisors[k])
		total.add(averaged)
		rows = append(rows, Row{Key: k, Label: labelOf(k, level), Values: averaged.values()})
	}
	AssignSortKeys(rows, level)

	rows = append(rows, Row{
		Key:    TotalKey(level),
		Label:  YTDTotalLabel,
		Values: total.values(),
		Sort:   TotalSortKey,
	})

	return Table{
		Label:   level.labelColumn(),
		Columns: slices.Clone(YTDColumns),
		Rows:    rows,
	}
}
