// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package database

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema/schema.sql
var schemaSQL string

// schemaStatements splits the embedded schema into statements, dropping
// comments and blanks. The schema contains no string literals with ';'.
func schemaStatements() []string {
	var stmts []string
	for _, raw := range strings.Split(schemaSQL, ";") {
		var lines []string
		for _, line := range strings.Split(raw, "\n") {
			if t := strings.TrimSpace(line); t != "" && !strings.HasPrefix(t, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			stmts = append(stmts, strings.Join(lines, "\n"))
		}
	}
	return stmts
}

// applySchema creates every schema and table that does not exist yet.
func (db *DB) applySchema(ctx context.Context) error {
	for i, stmt := range schemaStatements() {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}
