// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package nielsen

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Upload verification errors.
var (
	ErrNotExcel          = errors.New("not an .xlsx file")
	ErrEmptyFile         = errors.New("file is empty")
	ErrNoRows            = errors.New("file holds no rating rows")
	ErrInvalidColumns    = errors.New("columns in file do not match expected Nielsen column names")
	ErrMultipleDates     = errors.New("could not identify file because date range is greater than 1")
	ErrDashInDate        = errors.New("looks like there is a dash in one of your dates, please remove the dash and try again")
	ErrNotBenchmarkRange = errors.New("benchmark files must contain a range of dates, separated by a dash")
)

// Verification identifies a verified upload.
type Verification struct {
	Type      string // models.ReportType15Min or models.ReportTypeDayparts
	Dates     string // the single date, or the benchmark range
	Benchmark bool
}

// Label is the name the upload is presented under: "15min - 03/04/2025" for a
// daily file, "Benchmark-15min-02_01_2025-02_28_2025" for a benchmark.
func (v Verification) Label() string {
	if v.Benchmark {
		return "Benchmark-" + v.Type + "-" + rangeLabel(v.Dates)
	}
	return v.Type + " - " + v.Dates
}

// rangeLabel makes a benchmark date range safe for a file name.
func rangeLabel(dates string) string {
	return strings.ReplaceAll(strings.ReplaceAll(dates, "/", "_"), " ", "")
}

// VerifyDaily checks that an upload is a single-day export.
func VerifyDaily(filename string, data []byte) (Verification, *Workbook, error) {
	w, dates, err := verifyShape(filename, data)
	if err != nil {
		return Verification{}, nil, err
	}
	if len(dates) > 1 {
		return Verification{}, nil, fmt.Errorf("%w: dates in file: %q", ErrMultipleDates, dates)
	}
	if strings.Contains(dates[0], "-") {
		return Verification{}, nil, fmt.Errorf("%w: dates in file: %q", ErrDashInDate, dates)
	}
	return Verification{Type: Classify(w), Dates: dates[0]}, w, nil
}

// VerifyBenchmark checks that an upload is a date-range export.
func VerifyBenchmark(filename string, data []byte) (Verification, *Workbook, error) {
	w, dates, err := verifyShape(filename, data)
	if err != nil {
		return Verification{}, nil, err
	}
	if !strings.Contains(dates[0], "-") {
		return Verification{}, nil, fmt.Errorf("%w: dates in file: %q", ErrNotBenchmarkRange, dates)
	}
	return Verification{Type: Classify(w), Dates: dates[0], Benchmark: true}, w, nil
}

func verifyShape(filename string, data []byte) (*Workbook, []string, error) {
	if !strings.HasSuffix(filename, ".xlsx") {
		return nil, nil, ErrNotExcel
	}
	if len(data) == 0 {
		return nil, nil, ErrEmptyFile
	}
	w, err := ReadWorkbookBytes(data)
	if err != nil {
		return nil, nil, err
	}
	if !slices.Equal(w.Columns, ExpectedColumns) {
		return nil, nil, fmt.Errorf("%w: columns in file: %q, expected columns: %q",
			ErrInvalidColumns, w.Columns, ExpectedColumns)
	}
	dates, err := w.Distinct(ColDates)
	if err != nil {
		return nil, nil, err
	}
	if len(dates) == 0 {
		return nil, nil, ErrNoRows
	}
	return w, dates, nil
}

// FailureMessage is the user-facing message for a failed verification.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotExcel):
		return "Invalid file type. Please upload an excel file."
	case errors.Is(err, ErrEmptyFile):
		return "File is empty. Please upload a valid file."
	default:
		return "Error verifying the file: " + err.Error()
	}
}
