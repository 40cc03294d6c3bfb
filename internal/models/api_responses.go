// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package models

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Example successful response:
//
//	{
//	  "success": true,
//	  "message": "Data retrieved successfully",
//	  "data": {"ytd_sn": [...], "ytd_cable": [...], "ytd_big4": [...]},
//	  "metadata": {"data_columns": ["Market / Region", "service_subs", ...]}
//	}
//
// Example error response:
//
//	{
//	  "success": false,
//	  "message": "Failed to retrieve data",
//	  "data": null,
//	  "metadata": null,
//	  "error": {
//	    "code": "DATABASE_ERROR",
//	    "message": "failed to query engagement data: ...",
//	    "request_id": "0b0c..."
//	  }
//	}
type APIResponse struct {
	Success  bool                   `json:"success"`
	Message  string                 `json:"message"`
	Data     interface{}            `json:"data"`
	Metadata map[string]interface{} `json:"metadata"`
	Error    *APIError              `json:"error,omitempty"`
}

// APIError carries machine-readable error details.
//
// Common error codes:
//   - BAD_REQUEST: malformed body or upload
//   - VALIDATION_ERROR: request fields failed validation
//   - UNAUTHORIZED / FORBIDDEN: missing token or insufficient role
//   - NOT_FOUND: resource does not exist
//   - DATABASE_ERROR: query execution failure
//   - SERIALIZATION_ERROR: a report contained values JSON cannot carry
//   - UPSTREAM_ERROR: S3 or SES failure
type APIError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}
