// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

/*
Package main is the entry point for the Audience Insights server.

The server answers the engagement dashboard (YTD, MoM, over-time, rank,
HEV, quarterly and periodicity reports), serves the coverage map and the
Nielsen benchmark workbooks from S3, and builds the daily Nielsen ratings
emails from uploaded workbooks.

# Startup

 1. Configuration: defaults, .env, config.yaml, environment (koanf)
 2. Logging: zerolog, optionally rotated to LOG_FILE
 3. AWS: SDK config for S3, SES and RDS IAM tokens
 4. Database: Postgres (lib/pq) or DuckDB for local runs
 5. Services: engagement reports, Nielsen generator, account flows
 6. Authorization: casbin route-group policy
 7. Supervisor tree: HTTP server plus maintenance tasks

	RootSupervisor ("audience-insights")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   ├── lockout-cleanup (every 5m)
	│   ├── report-sweep (hourly, NIELSEN_REPORT_TTL)
	│   └── cache-prune (every S3_CACHE_TTL)
	└── APISupervisor ("api-layer")
	    └── http-server

# Configuration

	HTTP_HOST=0.0.0.0
	HTTP_PORT=8000
	DB_DRIVER=postgres           # or duckdb with DUCKDB_PATH
	RDS_URL, RDS_PORT, RDS_USERNAME, RDS_PASSWORD, RDS_DB_NAME
	RDS_IAM_AUTH=false
	JWT_SECRET=<32+ chars>
	AWS_REGION=us-east-2
	COVERAGE_BUCKET, BENCHMARK_BUCKET, SES_SENDER
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signals

SIGINT and SIGTERM cancel the root context. The HTTP server drains within
HTTP_SHUTDOWN_TIMEOUT, then the database pool and log file are closed.
*/
package main
