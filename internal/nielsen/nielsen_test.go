// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package nielsen

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/audience-insights/internal/models"
)

const (
	dailyDate     = "03/04/2025"
	benchmarkDate = "02/01/2025 - 02/28/2025"

	geoTampa  = "Tampa-St. Pete (Sarasota)"
	dmaTampa  = "Tampa/Saint Petersburg"
	geoAustin = "Austin"
)

// workbookBytes builds an export: a title block, the header on row 9, rows,
// then eight footnote rows.
func workbookBytes(t *testing.T, header []string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	if err := f.SetCellValue(SheetName, "A1", "Local TV Ratings"); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}
	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A9", &hdr); err != nil {
		t.Fatalf("SetSheetRow header: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, 10+i)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			t.Fatalf("SetSheetRow %d: %v", i, err)
		}
	}
	for i := 0; i < footerRows; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, 10+len(rows)+i)
		if err := f.SetCellValue(SheetName, cell, fmt.Sprintf("Footnote %d", i+1)); err != nil {
			t.Fatalf("SetCellValue footer: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

// ratingRow is one export row in ExpectedColumns order.
func ratingRow(slot, source, date, geography string, rating any) []any {
	return []any{"", "", "", slot, source, "HH", date, geography, rating, ""}
}

func exportBytes(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	return workbookBytes(t, ExpectedColumns, rows)
}

// quarterHours returns n slots starting at 3:00 am.
func quarterHours(n int) []string {
	out := make([]string, n)
	for i := range out {
		from := 180 + 15*i
		to := from + 15
		out[i] = fmt.Sprintf("%s - %s", clock(from), clock(to))
	}
	return out
}

func clock(minutes int) string {
	h, m := (minutes/60)%24, minutes%60
	suffix := "am"
	if h >= 12 {
		suffix = "pm"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, m, suffix)
}

func slotKey(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

func testMappings() models.NielsenMappings {
	m := models.NielsenMappings{
		StationNetwork: map[string]string{
			"S1TB":      "Spec News",
			"S1DF":      "Spec News",
			"S1MK":      "Spec News",
			StationKAZD: "KAZD",
			"WFLA":      "NBC",
			"WFAA":      "ABC",
			"WTVT":      "FOX",
			"CNN":       "CNN",
			"FNC":       "Fox News",
		},
		StationFullName: map[string]string{
			"S1TB": "Spectrum Bay News 9",
			"S1DF": "Spectrum News 1 Dallas",
		},
		DaypartOrder: map[string]int{
			"Full Day":            1,
			"06:00 am - 09:00 am": 2,
		},
		FifteenMinuteOrder: make(map[string]int),
		DMAName: map[string]string{
			geoTampa:     dmaTampa,
			geoDallas:    DMADallas,
			geoMilwaukee: "Milwaukee",
		},
		DMAPenetration: map[string]float64{
			dmaTampa:  45.7,
			DMADallas: 30.2,
		},
	}
	for i, s := range quarterHours(76) {
		m.FifteenMinuteOrder[slotKey(s)] = i + 1
	}
	return m
}

func TestReadWorkbook(t *testing.T) {
	data := exportBytes(t,
		ratingRow("06:00 am - 09:00 am", "S1TB", dailyDate, geoTampa, 1.5),
		[]any{"", "", "", "09:00 am - 12:00 pm", "", "", "", "", 2.25, ""},
	)
	w, err := ReadWorkbookBytes(data)
	if err != nil {
		t.Fatalf("ReadWorkbookBytes: %v", err)
	}
	if len(w.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (footnotes dropped)", len(w.Rows))
	}
	row := w.Rows[1]
	if got := row[w.Index(ColSource)]; got != "S1TB" {
		t.Errorf("forward filled source = %q, want S1TB", got)
	}
	if got := row[w.Index(ColGeography)]; got != geoTampa {
		t.Errorf("forward filled geography = %q, want %q", got, geoTampa)
	}
	if got := row[w.Index(ColRating)]; got != "2.25" {
		t.Errorf("rating = %q, want 2.25", got)
	}
}

func TestReadWorkbook_MissingSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ReadWorkbookBytes(buf.Bytes()); err == nil {
		t.Fatal("expected an error for a workbook without the ratings sheet")
	}
}

func TestVerifyDaily(t *testing.T) {
	valid := exportBytes(t,
		ratingRow("06:00 am - 09:00 am", "S1TB", dailyDate, geoTampa, 1.5),
		ratingRow("09:00 am - 12:00 pm", "S1TB", dailyDate, geoTampa, 1.1),
	)

	tests := []struct {
		name     string
		filename string
		data     []byte
		wantErr  error
		wantMsg  string
	}{
		{"valid dayparts", "Dayparts.xlsx", valid, nil, "Dayparts - 03/04/2025"},
		{"not excel", "ratings.csv", valid, ErrNotExcel, "Invalid file type. Please upload an excel file."},
		{"empty", "ratings.xlsx", nil, ErrEmptyFile, "File is empty. Please upload a valid file."},
		{
			"wrong columns", "ratings.xlsx",
			workbookBytes(t, []string{"Time", "Dates"}, [][]any{{"a", dailyDate}}),
			ErrInvalidColumns, "",
		},
		{
			"two dates", "ratings.xlsx",
			exportBytes(t,
				ratingRow("06:00 am - 09:00 am", "S1TB", dailyDate, geoTampa, 1.5),
				ratingRow("06:00 am - 09:00 am", "S1TB", "03/05/2025", geoTampa, 1.5)),
			ErrMultipleDates, "",
		},
		{
			"benchmark range", "ratings.xlsx",
			exportBytes(t, ratingRow("06:00 am - 09:00 am", "S1TB", benchmarkDate, geoTampa, 1.5)),
			ErrDashInDate, "",
		},
		{"no rows", "ratings.xlsx", exportBytes(t), ErrNoRows, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _, err := VerifyDaily(tt.filename, tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				msg := FailureMessage(err)
				if tt.wantMsg != "" && msg != tt.wantMsg {
					t.Errorf("message = %q, want %q", msg, tt.wantMsg)
				}
				if tt.wantMsg == "" && !strings.HasPrefix(msg, "Error verifying the file: ") {
					t.Errorf("message = %q, want verification prefix", msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyDaily: %v", err)
			}
			if v.Label() != tt.wantMsg {
				t.Errorf("label = %q, want %q", v.Label(), tt.wantMsg)
			}
		})
	}
}

func TestVerifyBenchmark(t *testing.T) {
	var rows [][]any
	for _, s := range quarterHours(76) {
		rows = append(rows, ratingRow(s, "S1TB", benchmarkDate, geoTampa, 0.4))
	}
	v, _, err := VerifyBenchmark("bench.xlsx", exportBytes(t, rows...))
	if err != nil {
		t.Fatalf("VerifyBenchmark: %v", err)
	}
	if want := "Benchmark-15min-02_01_2025-02_28_2025"; v.Label() != want {
		t.Errorf("label = %q, want %q", v.Label(), want)
	}

	_, _, err = VerifyBenchmark("bench.xlsx", exportBytes(t, ratingRow("a", "S1TB", dailyDate, geoTampa, 1)))
	if !errors.Is(err, ErrNotBenchmarkRange) {
		t.Errorf("single date err = %v, want ErrNotBenchmarkRange", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		slots int
		want  string
	}{
		{70, models.ReportTypeDayparts},
		{71, models.ReportType15Min},
		{6, models.ReportTypeDayparts},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d slots", tt.slots), func(t *testing.T) {
			w := &Workbook{Columns: ExpectedColumns}
			for _, s := range quarterHours(tt.slots) {
				w.Rows = append(w.Rows, []string{"", "", "", s, "S1TB", "", dailyDate, geoTampa, "1", ""})
			}
			if got := Classify(w); got != tt.want {
				t.Errorf("Classify = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClean15Min(t *testing.T) {
	slots := quarterHours(2)
	data := exportBytes(t,
		ratingRow(slots[0], "S1TB", dailyDate, geoTampa, ""),
		ratingRow(slots[1], "S1TB", dailyDate, geoTampa, 0.8),
		ratingRow(slots[0], "S1DF", dailyDate, geoTampa, 0.9), // dropped: S1DF outside Dallas
		ratingRow(slots[0], "S1DF", dailyDate, geoDallas, 0.7),
		ratingRow(slots[0], "S1MK", dailyDate, geoTampa, 0.6),   // dropped: S1MK outside Milwaukee
		ratingRow(slots[0], "UNKNOWN", dailyDate, geoAustin, 1), // dropped geography, never mapped
	)
	w, err := ReadWorkbookBytes(data)
	if err != nil {
		t.Fatalf("ReadWorkbookBytes: %v", err)
	}
	rows, err := Clean15Min(w, testMappings())
	if err != nil {
		t.Fatalf("Clean15Min: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %+v, want 3", rows)
	}
	first := rows[0]
	if first.Rating != 0 || first.Time != slotKey(slots[0]) || first.Order != 1 || first.DMA != dmaTampa || first.Network != "Spec News" {
		t.Errorf("first row = %+v", first)
	}
	if last := rows[2]; last.Source != "S1DF" || last.DMA != DMADallas {
		t.Errorf("Dallas row = %+v, want S1DF in %s", last, DMADallas)
	}
}

func TestClean15Min_Unmapped(t *testing.T) {
	tests := []struct {
		name    string
		row     []any
		mapping string
	}{
		{"station", ratingRow(quarterHours(1)[0], "WXYZ", dailyDate, geoTampa, 1), MappingStationNetwork},
		{"geography", ratingRow(quarterHours(1)[0], "S1TB", dailyDate, "Nowhere", 1), MappingDMAName},
		{"slot", ratingRow("11:59 pm - 12:14 am", "S1TB", dailyDate, geoTampa, 1), MappingFifteenMinute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ReadWorkbookBytes(exportBytes(t, tt.row))
			if err != nil {
				t.Fatal(err)
			}
			_, err = Clean15Min(w, testMappings())
			if !errors.Is(err, ErrUnmappedKey) {
				t.Fatalf("err = %v, want ErrUnmappedKey", err)
			}
			var uk *UnmappedKeyError
			if !errors.As(err, &uk) || uk.Mapping != tt.mapping {
				t.Errorf("err = %#v, want mapping %s", err, tt.mapping)
			}
		})
	}
}

func TestCleanDayparts(t *testing.T) {
	data := exportBytes(t,
		ratingRow("06:00 am - 09:00 am", "S1TB", dailyDate, geoTampa, 1.2),
		ratingRow("06:00 am - 09:00 am", "WFLA", dailyDate, geoTampa, 2.4),
		ratingRow("03:00 am - 03:00 am", "S1TB", dailyDate, geoTampa, 0.5),
		ratingRow("09:00 am - 12:00 pm", "S1TB", dailyDate, geoTampa, 0.3),
		ratingRow("06:00 am - 09:00 am", "S1DF", dailyDate, geoDallas, 0.4),
		ratingRow("06:00 am - 09:00 am", StationKAZD, dailyDate, geoDallas, 0.2),
	)
	w, err := ReadWorkbookBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := CleanDayparts(w, testMappings())
	if err != nil {
		t.Fatalf("CleanDayparts: %v", err)
	}

	byKey := make(map[string]DaypartRow)
	for _, r := range rows {
		byKey[r.DMA+"|"+r.Daypart] = r
	}
	if len(byKey) != 4 {
		t.Fatalf("rows = %+v, want 4 (dma, daypart) pairs", rows)
	}
	full, ok := byKey[dmaTampa+"|Full Day"]
	if !ok || full.Order != 1 || full.Ratings[NetworkSpecNews] != 0.5 {
		t.Errorf("full day = %+v", full)
	}
	morning := byKey[dmaTampa+"|06:00 am - 09:00 am"]
	if morning.Ratings["NBC"] != 2.4 || morning.Ratings[NetworkSpecNews] != 1.2 {
		t.Errorf("morning = %+v", morning)
	}
	if _, ok := morning.Ratings["CNN"]; ok {
		t.Error("CNN should be absent, not zero")
	}
	if late := byKey[dmaTampa+"|09:00 am - 12:00 pm"]; late.Order != unorderedDaypart {
		t.Errorf("unmapped daypart order = %d, want %d", late.Order, unorderedDaypart)
	}
	if rows[0].DMA != dmaTampa {
		t.Errorf("first DMA = %q, want first appearance order", rows[0].DMA)
	}
}

func TestDaypartLabel(t *testing.T) {
	tests := []struct{ in, want string }{
		{"06:00 am - 09:00 am", "6:00am - 9:00am"},
		{"10:00 am - 12:00 pm", "10:00am - 12:00pm"},
		{"Full Day", "Full Day"},
	}
	for _, tt := range tests {
		if got := daypartLabel(tt.in); got != tt.want {
			t.Errorf("daypartLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildTable(t *testing.T) {
	daily := []DaypartRow{
		{DMA: DMADallas, Daypart: "06:00 am - 09:00 am", Order: 2, Ratings: map[string]float64{NetworkSpecNews: 0.404, NetworkKAZD: 0.2, "ABC": 1}},
		{DMA: DMADallas, Daypart: "Full Day", Order: 1, Ratings: map[string]float64{NetworkSpecNews: 0.3, NetworkKAZD: 0.1, "ABC": 2}},
		{DMA: dmaTampa, Daypart: "Full Day", Order: 1, Ratings: map[string]float64{NetworkSpecNews: 9}},
	}
	bench := []DaypartRow{
		{DMA: DMADallas, Daypart: "06:00 am - 09:00 am", Order: 2, Ratings: map[string]float64{NetworkSpecNews: 0.5, NetworkKAZD: 0.05, "ABC": 1}},
	}

	table, err := buildTable(DMADallas, daily, bench)
	if err != nil {
		t.Fatalf("buildTable: %v", err)
	}
	if table.Columns[0] != colCombined || len(table.Columns) != len(dallasTableColumns) {
		t.Fatalf("columns = %v", table.Columns)
	}
	if len(table.Rows) != 2 || table.Rows[0].Daypart != "Full Day" || table.Rows[1].Daypart != "6:00am - 9:00am" {
		t.Fatalf("rows = %+v, want ordered Full Day then morning", table.Rows)
	}

	morning := table.Rows[1].Cells
	tests := []struct {
		col   int
		text  string
		above bool
	}{
		{0, "0.6", true},  // 0.40 + 0.20 vs 0.50 + 0.05
		{1, "0.4", false}, // 0.40 vs 0.50
		{2, "0.2", true},  // 0.20 vs 0.05
		{3, "1", false},   // equal is not above
		{4, missingRating, false},
	}
	for _, tt := range tests {
		if c := morning[tt.col]; c.Text != tt.text || c.Above != tt.above {
			t.Errorf("%s = %+v, want %q above=%v", table.Columns[tt.col], c, tt.text, tt.above)
		}
	}
	for _, c := range table.Rows[0].Cells {
		if c.Above {
			t.Errorf("Full Day has no benchmark, cell %+v should not be above", c)
		}
	}

	if _, err := buildTable("Nowhere", daily, bench); !errors.Is(err, ErrNoDMAData) {
		t.Errorf("missing DMA err = %v, want ErrNoDMAData", err)
	}
}

func TestMovingAverage(t *testing.T) {
	var rows []QuarterHour
	for i, v := range []float64{1, 2, 3, 4, 5, 6} {
		rows = append(rows, QuarterHour{Time: fmt.Sprintf("slot%d", i), Rating: v})
	}
	want := []float64{2, 2.5, 3, 4, 4.5, 5}
	got := movingAverage(rows)
	for i := range want {
		if math.Abs(got[i].value-want[i]) > 1e-9 {
			t.Errorf("point %d = %v, want %v", i, got[i].value, want[i])
		}
	}

	if single := movingAverage(rows[:1]); !math.IsNaN(single[0].value) {
		t.Errorf("a single sample should not be smoothed, got %v", single[0].value)
	}
}

func TestBuildChart_Dallas(t *testing.T) {
	slots := quarterHours(3)
	var daily, bench []QuarterHour
	for i, s := range slots {
		daily = append(daily,
			QuarterHour{Source: StationDallas, DMA: DMADallas, Time: slotKey(s), Date: dailyDate, Rating: 1, Order: i + 1},
			QuarterHour{Source: StationKAZD, DMA: DMADallas, Time: slotKey(s), Date: dailyDate, Rating: 0.5, Order: i + 1},
		)
		bench = append(bench,
			QuarterHour{Source: StationDallas, DMA: DMADallas, Time: slotKey(s), Date: benchmarkDate, Rating: 2, Order: i + 1},
			QuarterHour{Source: StationKAZD, DMA: DMADallas, Time: slotKey(s), Date: benchmarkDate, Rating: 9, Order: i + 1},
		)
	}

	c, err := buildChart(DMADallas, daily, bench, testMappings().StationFullName)
	if err != nil {
		t.Fatalf("buildChart: %v", err)
	}
	if c.Title != "Spectrum News 1 Dallas" {
		t.Errorf("title = %q", c.Title)
	}
	if len(c.Labels) != 3 || c.Labels[0] != "03:15am" {
		t.Errorf("labels = %v", c.Labels)
	}
	for i := range c.Daily {
		if c.Daily[i] != 1.5 || c.Benchmark[i] != 2 {
			t.Errorf("point %d = daily %v benchmark %v, want 1.5 and 2", i, c.Daily[i], c.Benchmark[i])
		}
	}
	if c.DailyLegend != "SN 1 Dallas + SN KAZD 03/04/2025" || c.BenchmarkLegend != "SN 1 Dallas February 2025 average" {
		t.Errorf("legends = %q, %q", c.DailyLegend, c.BenchmarkLegend)
	}

	svg := string(c.SVG())
	if !strings.HasPrefix(svg, "<svg") || !strings.Contains(svg, "Spectrum News 1 Dallas") {
		t.Errorf("unexpected svg: %.120s", svg)
	}
}

func TestSafeIdentifier(t *testing.T) {
	a := SafeIdentifier("Jane.Doe@Example.com")
	b := SafeIdentifier("jane.doe@example.com")
	if a != b {
		t.Errorf("identifier should ignore case: %q vs %q", a, b)
	}
	if len(a) != 10 || strings.ContainsAny(a, "/+=") {
		t.Errorf("identifier %q is not a 10 character URL-safe string", a)
	}
	if a == SafeIdentifier("john.doe@example.com") {
		t.Error("different emails should not collide")
	}
}

func TestSplitDailyUploads(t *testing.T) {
	d, f, err := SplitDailyUploads([]Upload{{Name: "Daily_15min.xlsx"}, {Name: "Daily_Dayparts.xlsx"}})
	if err != nil {
		t.Fatalf("SplitDailyUploads: %v", err)
	}
	if d.Name != "Daily_Dayparts.xlsx" || f.Name != "Daily_15min.xlsx" {
		t.Errorf("split = %q, %q", d.Name, f.Name)
	}

	_, _, err = SplitDailyUploads([]Upload{{Name: "a_Dayparts.xlsx"}, {Name: "b_Dayparts.xlsx"}})
	if !errors.Is(err, ErrMissingDailyFile) {
		t.Errorf("err = %v, want ErrMissingDailyFile", err)
	}
}
