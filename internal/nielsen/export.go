// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package nielsen

import (
	"archive/zip"
	"cmp"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/audience-insights/internal/models"
)

// Download names.
const (
	ReportsZipName   = "nielsen_reports.zip"
	MappingsFileName = "additional_mappings.xlsx"
)

// ZipEmails writes the files at paths into a zip archive, flat.
func ZipEmails(w io.Writer, paths []string) error {
	zw := zip.NewWriter(w)
	for _, p := range paths {
		if err := addFile(zw, p); err != nil {
			return err
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	dst, err := zw.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}

// MappingsWorkbook exports the four read-only lookup tables as one sheet
// each.
func MappingsWorkbook(w io.Writer, m models.NielsenMappings) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{MappingStationNetwork, []any{"station_name", "network"}, stringRows(m.StationNetwork)},
		{MappingStationName, []any{"station_abbr", "station_name_full"}, stringRows(m.StationFullName)},
		{"daypart_order_mapping", []any{"daypart", "order_in_report_table"}, orderRows(m.DaypartOrder)},
		{MappingFifteenMinute, []any{"time_slot", "order_in_x_axis"}, orderRows(m.FifteenMinuteOrder)},
	}
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
			return err
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return err
			}
		}
	}
	f.SetActiveSheet(0)
	_, err := f.WriteTo(w)
	return err
}

func stringRows(m map[string]string) [][]any {
	keys := slices.Sorted(maps.Keys(m))
	rows := make([][]any, len(keys))
	for i, k := range keys {
		rows[i] = []any{k, m[k]}
	}
	return rows
}

func orderRows(m map[string]int) [][]any {
	keys := slices.SortedFunc(maps.Keys(m), func(a, b string) int {
		return cmp.Or(cmp.Compare(m[a], m[b]), cmp.Compare(a, b))
	})
	rows := make([][]any, len(keys))
	for i, k := range keys {
		rows[i] = []any{k, m[k]}
	}
	return rows
}
