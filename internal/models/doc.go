// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

// Package models defines the data structures shared by the storage, reporting
// and HTTP layers.
//
// # Record Types
//
//   - EngagementRecord: one row of monthly engagement per tier, network and market,
//     already joined to the region/state/launch-date reference data
//   - PeriodicityRecord: monthly periodicity percentage per network and market
//   - SubjectLine, DMAMapping, NielsenMappings: Nielsen report configuration
//
// # Request and Response Types
//
// Request bodies are decoded into the *Request structs and validated with the
// tags declared on them (see internal/validation). All handlers reply with the
// APIResponse envelope:
//
//	{
//	  "success": true,
//	  "message": "Data retrieved successfully",
//	  "data": {"mom_data": [...]},
//	  "metadata": {"mom_data_columns": [...]}
//	}
//
// Error responses carry an APIError with a machine-readable code.
package models
