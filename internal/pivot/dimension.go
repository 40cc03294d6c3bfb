// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"cmp"
	"fmt"
	"strconv"

	"github.com/tomtom215/audience-insights/internal/models"
)

// ColumnKey names a pivot column. Columns are ordered by Order, then Label.
type ColumnKey struct {
	Label string
	Order int
}

func (c ColumnKey) compare(o ColumnKey) int {
	if n := cmp.Compare(c.Order, o.Order); n != 0 {
		return n
	}
	return cmp.Compare(c.Label, o.Label)
}

// Dimension maps an engagement record to its pivot column.
type Dimension struct {
	Name string
	Key  func(models.EngagementRecord) ColumnKey
}

// ByNetworkGroup pivots by station group: "Big 4", "Cable News", "SN".
var ByNetworkGroup = Dimension{
	Name: "network_group",
	Key: func(r models.EngagementRecord) ColumnKey {
		return ColumnKey{Label: r.NetworkGroup}
	},
}

// ByNetwork pivots by network name.
var ByNetwork = Dimension{
	Name: "network",
	Key: func(r models.EngagementRecord) ColumnKey {
		return ColumnKey{Label: r.Network}
	},
}

// ByYear pivots by calendar year, labelled "2024".
var ByYear = Dimension{
	Name: "year",
	Key: func(r models.EngagementRecord) ColumnKey {
		return ColumnKey{Label: strconv.Itoa(r.Year), Order: r.Year}
	},
}

// ByYearMonth pivots by month, labelled "2024_3" without zero padding.
var ByYearMonth = Dimension{
	Name: "year_month",
	Key: func(r models.EngagementRecord) ColumnKey {
		return ColumnKey{Label: fmt.Sprintf("%d_%d", r.Year, r.Month), Order: r.FiscalMonth()}
	},
}

// ByQuarter pivots by calendar quarter, labelled "Q1 2024".
var ByQuarter = Dimension{
	Name: "quarter",
	Key: func(r models.EngagementRecord) ColumnKey {
		q := QuarterOf(r.Month)
		return ColumnKey{Label: fmt.Sprintf("Q%d %d", q, r.Year), Order: r.Year*10 + q}
	},
}

// ByTier pivots by subscriber tier.
var ByTier = Dimension{
	Name: "tier",
	Key: func(r models.EngagementRecord) ColumnKey {
		return ColumnKey{Label: r.Tier}
	},
}

// QuarterOf maps a month number to its calendar quarter. Out-of-range months
// fall into Q4.
func QuarterOf(month int) int {
	switch {
	case month >= 1 && month <= 3:
		return 1
	case month >= 4 && month <= 6:
		return 2
	case month >= 7 && month <= 9:
		return 3
	default:
		return 4
	}
}

// rowKeyOf returns the rollup key for a record at level.
func rowKeyOf(r models.EngagementRecord, level Level) RowKey {
	if level == MarketLevel {
		return RowKey{State: r.State, Market: r.DisplayMarket}
	}
	return RowKey{State: r.State}
}

// labelOf returns the display label for a key at level.
func labelOf(k RowKey, level Level) string {
	if level == MarketLevel {
		return k.Market
	}
	return k.State
}
