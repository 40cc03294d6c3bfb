// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package database

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/audience-insights/internal/models"
)

// SubjectLines returns the configured report subject lines ordered by ID.
func (db *DB) SubjectLines(ctx context.Context) ([]models.SubjectLine, error) {
	var out []models.SubjectLine
	err := db.query(ctx, "subject_lines",
		`SELECT id, subject FROM nielsen_report_config.email_subject_lines ORDER BY id`,
		func(rows *sql.Rows) error {
			var s models.SubjectLine
			if err := rows.Scan(&s.ID, &s.Subject); err != nil {
				return err
			}
			out = append(out, s)
			return nil
		})
	return out, err
}

// UpdateSubjectLines rewrites the subject text of each line by ID. Unknown
// IDs are inserted.
func (db *DB) UpdateSubjectLines(ctx context.Context, lines []models.SubjectLine) error {
	return db.inTx(ctx, "update_subject_lines", func(tx *sql.Tx) error {
		for _, l := range lines {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO nielsen_report_config.email_subject_lines (id, subject) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET subject = EXCLUDED.subject`, l.ID, l.Subject); err != nil {
				return err
			}
		}
		return nil
	})
}

// Recipients returns the recipient emails of a subject line.
func (db *DB) Recipients(ctx context.Context, subjectLineID int) ([]string, error) {
	return db.strings(ctx, "email_recipients", `
SELECT email FROM nielsen_report_config.email_recipients
WHERE subject_line_id = $1 ORDER BY email`, subjectLineID)
}

// ReplaceRecipients replaces every recipient of a subject line.
func (db *DB) ReplaceRecipients(ctx context.Context, subjectLineID int, emails []string) error {
	return db.inTx(ctx, "replace_recipients", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM nielsen_report_config.email_recipients WHERE subject_line_id = $1`, subjectLineID); err != nil {
			return err
		}
		seen := make(map[string]bool, len(emails))
		for _, e := range emails {
			if seen[e] {
				continue
			}
			seen[e] = true
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO nielsen_report_config.email_recipients (subject_line_id, email) VALUES ($1, $2)`,
				subjectLineID, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReportNote returns the note of a subject line, or "" when none is set.
func (db *DB) ReportNote(ctx context.Context, subjectLineID int) (string, error) {
	notes, err := db.strings(ctx, "report_note",
		`SELECT note FROM nielsen_report_config.report_notes WHERE subject_line_id = $1`, subjectLineID)
	if err != nil || len(notes) == 0 {
		return "", err
	}
	return notes[0], nil
}

// SetReportNote replaces the note of a subject line.
func (db *DB) SetReportNote(ctx context.Context, subjectLineID int, note string) error {
	_, err := db.exec(ctx, "set_report_note", `
INSERT INTO nielsen_report_config.report_notes (subject_line_id, note) VALUES ($1, $2)
ON CONFLICT (subject_line_id) DO UPDATE SET note = EXCLUDED.note`, subjectLineID, note)
	return err
}

// DMAList returns the DMAs of a subject line in report order.
func (db *DB) DMAList(ctx context.Context, subjectLineID int) ([]string, error) {
	return db.strings(ctx, "dma_list", `
SELECT dma FROM nielsen_report_config.dma_lists
WHERE subject_line_id = $1 ORDER BY position`, subjectLineID)
}

// DMANameMappings returns the editable DMA name and penetration mapping.
func (db *DB) DMANameMappings(ctx context.Context) ([]models.DMAMapping, error) {
	var out []models.DMAMapping
	err := db.query(ctx, "dma_name_mapping", `
SELECT nielsen_dma_name, sn_dma_name, penetration_percent
FROM nielsen_report_config.dma_name_mapping ORDER BY nielsen_dma_name`,
		func(rows *sql.Rows) error {
			var m models.DMAMapping
			if err := rows.Scan(&m.NielsenDMAName, &m.SNDMAName, &m.PenetrationPercent); err != nil {
				return err
			}
			out = append(out, m)
			return nil
		})
	return out, err
}

// ReplaceDMANameMappings replaces the whole DMA mapping table.
func (db *DB) ReplaceDMANameMappings(ctx context.Context, mappings []models.DMAMapping) error {
	return db.inTx(ctx, "replace_dma_name_mapping", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM nielsen_report_config.dma_name_mapping`); err != nil {
			return err
		}
		for _, m := range mappings {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO nielsen_report_config.dma_name_mapping (nielsen_dma_name, sn_dma_name, penetration_percent)
VALUES ($1, $2, $3)`, m.NielsenDMAName, m.SNDMAName, m.PenetrationPercent); err != nil {
				return err
			}
		}
		return nil
	})
}

// NielsenMappings loads every lookup table used to clean an upload. The
// tables are read concurrently.
func (db *DB) NielsenMappings(ctx context.Context) (models.NielsenMappings, error) {
	m := models.NielsenMappings{
		StationNetwork:     make(map[string]string),
		StationFullName:    make(map[string]string),
		DaypartOrder:       make(map[string]int),
		FifteenMinuteOrder: make(map[string]int),
		DMAName:            make(map[string]string),
		DMAPenetration:     make(map[string]float64),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return db.stringMap(gctx, "station_network_mapping",
			`SELECT station_name, network FROM nielsen_main.station_network_mapping`, m.StationNetwork)
	})
	g.Go(func() error {
		return db.stringMap(gctx, "spectrum_station_names",
			`SELECT station_abbr, station_name_full FROM nielsen_main.spectrum_station_names`, m.StationFullName)
	})
	g.Go(func() error {
		return db.intMap(gctx, "daypart_order_mapping",
			`SELECT daypart, order_in_report_table FROM nielsen_main.daypart_order_mapping`, m.DaypartOrder)
	})
	g.Go(func() error {
		return db.intMap(gctx, "fifteen_minute_order_mapping",
			`SELECT time_slot, order_in_x_axis FROM nielsen_main.fifteen_minute_order_mapping`, m.FifteenMinuteOrder)
	})
	g.Go(func() error {
		mappings, err := db.DMANameMappings(gctx)
		if err != nil {
			return err
		}
		for _, d := range mappings {
			m.DMAName[d.NielsenDMAName] = d.SNDMAName
			m.DMAPenetration[d.SNDMAName] = d.PenetrationPercent
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.NielsenMappings{}, err
	}
	return m, nil
}

func (db *DB) strings(ctx context.Context, name, q string, args ...any) ([]string, error) {
	var out []string
	err := db.query(ctx, name, q, func(rows *sql.Rows) error {
		var s string
		if err := rows.Scan(&s); err != nil {
			return err
		}
		out = append(out, s)
		return nil
	}, args...)
	return out, err
}

func (db *DB) stringMap(ctx context.Context, name, q string, into map[string]string) error {
	return db.query(ctx, name, q, func(rows *sql.Rows) error {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		into[k] = v
		return nil
	})
}

func (db *DB) intMap(ctx context.Context, name, q string, into map[string]int) error {
	return db.query(ctx, name, q, func(rows *sql.Rows) error {
		var (
			k string
			v int
		)
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		into[k] = v
		return nil
	})
}
