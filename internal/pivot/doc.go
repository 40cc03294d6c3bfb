// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

// Package pivot is the report engine behind every engagement endpoint.
//
// It turns flat engagement and periodicity records into the state/market
// rollups the dashboard renders. Every function in the package is pure and
// synchronous: inputs are never mutated and each transformation returns a new
// Table.
//
// # Pipeline
//
// A report is composed in four steps:
//
//  1. Build: a builder (EngagementPivot, HEVPivot, YTDPivot, PeriodicityPivot)
//     aggregates records at state level and at market level, cross-tabulated by
//     a Dimension, and appends the synthetic Total row.
//  2. Reconcile: the two rollups are merged into one table keyed by
//     "Market / Region", after checking that both Total rows agree.
//  3. Join: period tables are joined side by side (JoinMoM, JoinHEV) and their
//     columns relabelled with human period strings.
//  4. Finish: Round applies the report's precision and MarshalJSON emits the
//     row-major records, failing on values JSON cannot carry.
//
// # Totals and Ratios
//
// Ratio metrics (engagement %, HEV %) are computed after summing numerator and
// denominator independently, so the Total row is always the pooled ratio and
// never an average of per-row ratios. A zero denominator yields a null cell.
//
// # Sorting
//
// Every table carries a sorting_column: the 1-based alphabetical rank of the
// row's state, plus n/10 for the n-th market inside that state (n/100 when the
// state has ten or more markets). Total rows are pinned to 1000 so they always
// sort last.
package pivot
