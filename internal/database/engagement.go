// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/audience-insights/internal/models"
)

// EngagementQuery selects engagement records between two fiscal months
// (YYYYMM, inclusive). Months before a market's launch are excluded, and so
// are markets without a launch date.
type EngagementQuery struct {
	From int
	To   int
	// IncludeFalseTier keeps rows whose tier is "FALSE".
	IncludeFalseTier bool
}

// MonthKey returns t as a YYYYMM fiscal month.
func MonthKey(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

// MonthFromKey converts a YYYYMM fiscal month to the first day of the month, UTC.
func MonthFromKey(key int) time.Time {
	return time.Date(key/100, time.Month(key%100), 1, 0, 0, 0, 0, time.UTC)
}

const engagementSQL = `
SELECT
    e.year,
    e.month,
    e.tiername,
    e.network,
    e.specnewsmarket,
    e.adjeng,
    e.subs,
    r.region,
    r.state,
    r.clean_prg_name_all,
    s.stn_grp,
    r.launch_date
FROM main.engagement_raw e
JOIN main.market_region_mapping r ON e.specnewsmarket = r.specnewsmarket
JOIN main.network_stn_grp s ON e.network = s.network
WHERE e.year * 100 + e.month BETWEEN $1 AND $2
  AND s.stn_grp IN ('Big 4', 'Cable News', 'SN')
  AND make_date(e.year, e.month, 1) >= r.launch_date
  %s
ORDER BY e.year, e.month, e.network, e.specnewsmarket`

// DataRange returns the oldest and newest month present in engagement_raw.
func (db *DB) DataRange(ctx context.Context) (models.DataRange, error) {
	var oldest, newest sql.NullInt64
	err := db.query(ctx, "engagement_data_range",
		`SELECT MIN(year * 100 + month), MAX(year * 100 + month) FROM main.engagement_raw`,
		func(rows *sql.Rows) error { return rows.Scan(&oldest, &newest) })
	if err != nil {
		return models.DataRange{}, err
	}
	if !oldest.Valid || !newest.Valid {
		return models.DataRange{}, ErrNotFound
	}
	return models.DataRange{
		Oldest: MonthFromKey(int(oldest.Int64)),
		Newest: MonthFromKey(int(newest.Int64)),
	}, nil
}

// Engagement returns the engagement records selected by q, ordered by month,
// network and market. Missing adjeng and subs read as 0.
func (db *DB) Engagement(ctx context.Context, q EngagementQuery) ([]models.EngagementRecord, error) {
	if q.From > q.To {
		return nil, fmt.Errorf("engagement range %d-%d is reversed", q.From, q.To)
	}
	tier := ""
	if !q.IncludeFalseTier {
		tier = "AND e.tiername <> 'FALSE'"
	}

	var out []models.EngagementRecord
	err := db.query(ctx, "engagement", fmt.Sprintf(engagementSQL, tier), func(rows *sql.Rows) error {
		var (
			r         models.EngagementRecord
			adj, subs sql.NullFloat64
			region    sql.NullString
			launch    sql.NullTime
		)
		if err := rows.Scan(&r.Year, &r.Month, &r.Tier, &r.Network, &r.Market,
			&adj, &subs, &region, &r.State, &r.DisplayMarket, &r.NetworkGroup, &launch); err != nil {
			return err
		}
		r.AdjustedEngagement = adj.Float64
		r.Subscribers = subs.Float64
		r.Region = region.String
		if launch.Valid {
			r.LaunchDate = launch.Time
		}
		out = append(out, r)
		return nil
	}, q.From, q.To)
	return out, err
}

// Periodicity returns periodicity rows for fiscal months From..To. When
// networks is non-empty only those networks are returned. Network names are
// returned as stored.
func (db *DB) Periodicity(ctx context.Context, from, to int, networks []string) ([]models.PeriodicityRecord, error) {
	args := []any{from, to}
	filter := ""
	if len(networks) > 0 {
		placeholders := make([]string, len(networks))
		for i, n := range networks {
			args = append(args, n)
			placeholders[i] = fmt.Sprintf("$%d", i+3)
		}
		filter = "AND network IN (" + strings.Join(placeholders, ", ") + ")"
	}

	q := `
SELECT fiscalmonth, network, specnewsmarket, periodicity
FROM main.periodicity
WHERE fiscalmonth BETWEEN $1 AND $2
  ` + filter + `
ORDER BY network, specnewsmarket`

	var out []models.PeriodicityRecord
	err := db.query(ctx, "periodicity", q, func(rows *sql.Rows) error {
		var (
			r models.PeriodicityRecord
			p sql.NullFloat64
		)
		if err := rows.Scan(&r.FiscalMonth, &r.Network, &r.Market, &p); err != nil {
			return err
		}
		r.Periodicity = p.Float64
		out = append(out, r)
		return nil
	}, args...)
	return out, err
}

// PeriodicityHistory returns periodicity rows for fiscal months From..To
// joined to each market's region, state and display name.
func (db *DB) PeriodicityHistory(ctx context.Context, from, to int) ([]models.PeriodicityRecord, error) {
	const q = `
SELECT p.fiscalmonth, p.network, p.specnewsmarket, p.periodicity,
       r.region, r.state, r.clean_prg_name_all
FROM main.periodicity p
JOIN main.market_region_mapping r ON p.specnewsmarket = r.specnewsmarket
WHERE p.fiscalmonth BETWEEN $1 AND $2
ORDER BY p.network, p.specnewsmarket`

	var out []models.PeriodicityRecord
	err := db.query(ctx, "periodicity_history", q, func(rows *sql.Rows) error {
		var (
			r      models.PeriodicityRecord
			p      sql.NullFloat64
			region sql.NullString
		)
		if err := rows.Scan(&r.FiscalMonth, &r.Network, &r.Market, &p, &region, &r.State, &r.DisplayMarket); err != nil {
			return err
		}
		if !p.Valid {
			return nil // averaged later; a null must not count as 0
		}
		r.Periodicity = p.Float64
		r.Region = region.String
		out = append(out, r)
		return nil
	}, from, to)
	return out, err
}
