// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

/*
Package api serves the HTTP API on a chi router.

Route groups live under /api:

	/api/auth        account signup, login and password reset (rate limited, public)
	/api/engagement  engagement reports
	/api/map         coverage GeoJSON
	/api/nielsen     Nielsen uploads, report generation and report configuration
	/api/useradmin   accounts and pre-approved emails (admin role)

Every group except auth requires a bearer session token and a role allowed
by the authz policy for the group.

Responses use one JSON envelope:

	{"success": true, "message": "...", "data": ..., "metadata": {...}}

Failures add an "error" object with a stable code (VALIDATION_ERROR,
NOT_FOUND, ...) and the request ID. Account flow rejections such as
"incorrect_password" are 200 responses with success=false and the code as
the message, which the frontend displays.
*/
package api
