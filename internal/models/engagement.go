// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package models

import "time"

// Subscriber tiers reported in engagement_raw.tiername.
const (
	TierBulk    = "Bulk"
	TierNonBulk = "Non-Bulk"
	TierFalse   = "FALSE"
)

// Network groups reported in network_stn_grp.stn_grp.
const (
	GroupSpectrumNews = "SN"
	GroupCableNews    = "Cable News"
	GroupBig4         = "Big 4"
)

// Networks referenced by name in report logic.
const (
	NetworkSpecNews       = "SPECNEWS"
	NetworkFoxNews        = "FOX NEWS"
	NetworkFoxNewsChannel = "FOX NEWS CHANNEL"
)

// EngagementRecord is one month of engagement for a tier, network and market,
// joined to the market's region, state, display name and launch date.
// Records for months before the market's launch are filtered out at query time.
type EngagementRecord struct {
	Year          int
	Month         int
	Tier          string
	Network       string
	Market        string // specnewsmarket
	Region        string
	State         string
	DisplayMarket string // clean_prg_name_all
	NetworkGroup  string
	LaunchDate    time.Time // zero when unknown

	Subscribers        float64
	AdjustedEngagement float64

	// HighlyEngaged is periodicity/100 * AdjustedEngagement, populated only by
	// reports that join periodicity.
	HighlyEngaged float64
}

// FiscalMonth returns the record's month as a YYYYMM integer.
func (r EngagementRecord) FiscalMonth() int {
	return r.Year*100 + r.Month
}

// PeriodicityRecord is the share of engaged viewers who watch regularly for a
// network and market in one fiscal month. State, Region and DisplayMarket are
// populated only by the history query.
type PeriodicityRecord struct {
	FiscalMonth   int // YYYYMM
	Network       string
	Market        string
	Periodicity   float64 // percentage in [0,100]
	Region        string
	State         string
	DisplayMarket string
}

// DataRange is the span of months present in engagement_raw.
type DataRange struct {
	Oldest time.Time
	Newest time.Time
}

// StartEndRequest selects a month range. Months use the "January 2024" form.
type StartEndRequest struct {
	StartMonth string `json:"start_month" validate:"required,fullmonth"`
	EndMonth   string `json:"end_month" validate:"required,fullmonth"`
}

// StartPrevEndRequest selects the three anchors of the month-over-month report.
type StartPrevEndRequest struct {
	StartMonth    string `json:"start_month" validate:"required,fullmonth"`
	PreviousMonth string `json:"previous_month" validate:"required,fullmonth"`
	EndMonth      string `json:"end_month" validate:"required,fullmonth"`
}

// HEVPeriodsRequest selects the current and previous highly-engaged-viewer periods.
type HEVPeriodsRequest struct {
	CurrPeriodStart string `json:"curr_period_start" validate:"required,fullmonth"`
	CurrPeriodEnd   string `json:"curr_period_end" validate:"required,fullmonth"`
	PrevPeriodStart string `json:"prev_period_start" validate:"required,fullmonth"`
	PrevPeriodEnd   string `json:"prev_period_end" validate:"required,fullmonth"`
}
