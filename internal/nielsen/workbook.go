// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

// Package nielsen turns Nielsen ratings exports into daily report emails.
//
// An export is an Excel workbook whose "Live+Same Day, TV Households" sheet
// holds a title block, one header row and a trailing footnote block. The
// package reads that sheet, verifies its shape, classifies it as a
// quarter-hour or a daypart file, cleans it against the lookup tables kept in
// the database, and renders one section per DMA into EML files.
package nielsen

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/audience-insights/internal/models"
)

// SheetName is the worksheet every Nielsen export carries its ratings on.
const SheetName = "Live+Same Day, TV Households"

const (
	headerRow  = 8 // 0-based
	footerRows = 8
)

// Column names as they appear in the header row. "Indicator " carries a
// trailing space in every export.
const (
	ColAffiliate   = "Affil."
	ColDaypart     = "Daypart"
	ColCustomRange = "Custom Range"
	ColTime        = "Time"
	ColSource      = "Viewing Source"
	ColDemo        = "Demo"
	ColDates       = "Dates"
	ColGeography   = "Geography / Metrics"
	ColRating      = "RTG % (X.X)"
	ColIndicator   = "Indicator "
)

// ExpectedColumns is the exact header of a valid export, in order.
var ExpectedColumns = []string{
	ColAffiliate, ColDaypart, ColCustomRange, ColTime, ColSource,
	ColDemo, ColDates, ColGeography, ColRating, ColIndicator,
}

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("missing column")

// Workbook is the ratings sheet of an export: the header row and the data
// rows between it and the footnotes, with blank cells forward filled.
type Workbook struct {
	Columns []string
	Rows    [][]string
}

// ReadWorkbook parses the ratings sheet of an export.
func ReadWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", SheetName, err)
	}
	if len(rows) <= headerRow {
		return nil, fmt.Errorf("sheet %q has %d rows, header expected on row %d", SheetName, len(rows), headerRow+1)
	}

	data := rows[headerRow+1:]
	if len(data) > footerRows {
		data = data[:len(data)-footerRows]
	} else {
		data = nil
	}

	width := len(rows[headerRow])
	for _, row := range data {
		width = max(width, len(row))
	}
	columns := make([]string, width)
	for i := range columns {
		if i < len(rows[headerRow]) && rows[headerRow][i] != "" {
			columns[i] = rows[headerRow][i]
		} else {
			columns[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	w := &Workbook{Columns: columns, Rows: make([][]string, 0, len(data))}
	var prev []string
	for _, raw := range data {
		row := make([]string, width)
		copy(row, raw)
		if prev != nil {
			for i, cell := range row {
				if cell == "" {
					row[i] = prev[i]
				}
			}
		}
		w.Rows = append(w.Rows, row)
		prev = row
	}
	return w, nil
}

// ReadWorkbookBytes is ReadWorkbook over an in-memory upload.
func ReadWorkbookBytes(data []byte) (*Workbook, error) {
	return ReadWorkbook(bytes.NewReader(data))
}

// Index returns the position of column name, or -1.
func (w *Workbook) Index(name string) int {
	for i, c := range w.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Distinct returns the distinct values of a column in order of first
// appearance.
func (w *Workbook) Distinct(name string) ([]string, error) {
	i := w.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	seen := make(map[string]bool)
	var out []string
	for _, row := range w.Rows {
		if !seen[row[i]] {
			seen[row[i]] = true
			out = append(out, row[i])
		}
	}
	return out, nil
}

// Classify names the export type from its Time column. Quarter-hour exports
// carry one bucket per 15 minutes of the broadcast day; daypart exports
// carry a handful.
func Classify(w *Workbook) string {
	times, err := w.Distinct(ColTime)
	if err == nil && len(times) > 70 {
		return models.ReportType15Min
	}
	return models.ReportTypeDayparts
}
