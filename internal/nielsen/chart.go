// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package nielsen

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Chart colors.
const (
	colorDaily     = "#0A2F6E"
	colorBenchmark = "#689DF3"
	colorAxis      = "#787878"
)

// Chart geometry in SVG user units.
const (
	chartWidth   = 1400
	chartHeight  = 420
	marginLeft   = 70
	marginRight  = 20
	marginTop    = 40
	marginBottom = 130
)

// smoothingWindow is the centered moving average applied to both lines.
const (
	smoothingWindow     = 5
	smoothingMinSamples = 2
)

// Chart is a quarter-hour line chart comparing one day against the
// benchmark average. Points are NaN where a series has no value.
type Chart struct {
	Title           string
	Labels          []string
	Daily           []float64
	Benchmark       []float64
	DailyLegend     string
	BenchmarkLegend string
}

// buildChart assembles the chart of one DMA. Dallas/Ft. Worth charts the
// combined rating of S1DF and KAZD against the S1DF benchmark.
func buildChart(dma string, daily, benchmark []QuarterHour, stationNames map[string]string) (Chart, error) {
	if len(daily) == 0 || len(benchmark) == 0 {
		return Chart{}, fmt.Errorf("%w: %s", ErrNoDMAData, dma)
	}
	byOrder := func(a, b QuarterHour) int { return a.Order - b.Order }
	daily = slices.Clone(daily)
	benchmark = slices.Clone(benchmark)
	slices.SortStableFunc(daily, byOrder)
	slices.SortStableFunc(benchmark, byOrder)

	source := benchmark[0].Source
	dailyDate := daily[0].Date
	var dailyPrefix, benchPrefix string
	if dma == DMADallas {
		source = StationDallas
		daily = combineKAZD(daily)
		benchmark = slices.DeleteFunc(benchmark, func(q QuarterHour) bool { return q.Source != StationDallas })
		dailyPrefix, benchPrefix = "SN 1 Dallas + SN KAZD ", "SN 1 Dallas "
		if len(daily) == 0 || len(benchmark) == 0 {
			return Chart{}, fmt.Errorf("%w: %s", ErrNoDMAData, dma)
		}
	}

	title, ok := stationNames[source]
	if !ok {
		return Chart{}, &UnmappedKeyError{Mapping: MappingStationName, Key: source}
	}

	var labels []string
	index := make(map[string]int)
	add := func(rows []QuarterHour) {
		for _, q := range rows {
			l := timeLabel(q.Time)
			if _, ok := index[l]; !ok {
				index[l] = len(labels)
				labels = append(labels, l)
			}
		}
	}
	add(daily)
	add(benchmark)

	return Chart{
		Title:           title,
		Labels:          labels,
		Daily:           align(labels, index, movingAverage(daily)),
		Benchmark:       align(labels, index, movingAverage(benchmark)),
		DailyLegend:     dailyPrefix + dailyDate,
		BenchmarkLegend: benchPrefix + averageLegend(benchmark[0].Date),
	}, nil
}

// combineKAZD keeps the S1DF rows with the KAZD rating of the same slot added.
func combineKAZD(rows []QuarterHour) []QuarterHour {
	kazd := make(map[int]float64)
	for _, q := range rows {
		if q.Source == StationKAZD {
			kazd[q.Order] += q.Rating
		}
	}
	var out []QuarterHour
	for _, q := range rows {
		if q.Source == StationDallas {
			q.Rating += kazd[q.Order]
			out = append(out, q)
		}
	}
	return out
}

// timeLabel is the end of a slot, e.g. "03:00am-03:15am" -> "03:15am".
func timeLabel(slot string) string {
	if len(slot) <= 7 {
		return slot
	}
	return slot[len(slot)-7:]
}

type point struct {
	label string
	value float64
}

// movingAverage smooths ratings with a centered window, keeping a point when
// at least two samples fall inside it.
func movingAverage(rows []QuarterHour) []point {
	out := make([]point, len(rows))
	half := smoothingWindow / 2
	for i := range rows {
		var sum float64
		n := 0
		for j := max(0, i-half); j <= min(len(rows)-1, i+half); j++ {
			sum += rows[j].Rating
			n++
		}
		v := math.NaN()
		if n >= smoothingMinSamples {
			v = sum / float64(n)
		}
		out[i] = point{label: timeLabel(rows[i].Time), value: v}
	}
	return out
}

// align places points on the shared x axis, averaging points that share a label.
func align(labels []string, index map[string]int, points []point) []float64 {
	sums := make([]float64, len(labels))
	counts := make([]int, len(labels))
	for _, p := range points {
		if math.IsNaN(p.value) {
			continue
		}
		sums[index[p.label]] += p.value
		counts[index[p.label]]++
	}
	out := make([]float64, len(labels))
	for i := range out {
		out[i] = math.NaN()
		if counts[i] > 0 {
			out[i] = sums[i] / float64(counts[i])
		}
	}
	return out
}

// averageLegend turns a benchmark range "02/01/2025 - 02/28/2025" into
// "February 2025 average".
func averageLegend(dates string) string {
	if len(dates) >= 10 {
		if m, err := strconv.Atoi(dates[0:2]); err == nil && m >= 1 && m <= 12 {
			return fmt.Sprintf("%s %s average", time.Month(m), dates[6:10])
		}
	}
	return dates + " average"
}

// SVG renders the chart.
func (c Chart) SVG() []byte {
	plotW := float64(chartWidth - marginLeft - marginRight)
	plotH := float64(chartHeight - marginTop - marginBottom)

	ymax := 0.0
	for _, v := range slices.Concat(c.Daily, c.Benchmark) {
		if !math.IsNaN(v) {
			ymax = max(ymax, v)
		}
	}
	ymax *= 1.2
	if ymax == 0 {
		ymax = 1
	}
	step := plotW
	if len(c.Labels) > 1 {
		step = plotW / float64(len(c.Labels)-1)
	}
	x := func(i int) float64 { return marginLeft + float64(i)*step }
	y := func(v float64) float64 { return marginTop + plotH - v/ymax*plotH }

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="Arial, sans-serif">`,
		chartWidth, chartHeight, chartWidth, chartHeight)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#FFFFFF"/>`, chartWidth, chartHeight)
	fmt.Fprintf(&b, `<text x="%d" y="24" text-anchor="middle" font-size="14" font-weight="bold">%s</text>`,
		chartWidth/2, html.EscapeString(c.Title))

	// Axes.
	bottom := marginTop + plotH
	fmt.Fprintf(&b, `<line x1="%d" y1="%d" x2="%d" y2="%.1f" stroke="%s"/>`, marginLeft, marginTop, marginLeft, bottom, colorAxis)
	fmt.Fprintf(&b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s"/>`, marginLeft, bottom, chartWidth-marginRight, bottom, colorAxis)
	for i := 0; i <= 4; i++ {
		v := ymax * float64(i) / 4
		fmt.Fprintf(&b, `<text x="%d" y="%.1f" text-anchor="end" font-size="12">%.2f</text>`, marginLeft-6, y(v)+4, v)
	}
	fmt.Fprintf(&b, `<text x="18" y="%.1f" font-size="12" transform="rotate(-90 18 %.1f)" text-anchor="middle">Rating</text>`,
		marginTop+plotH/2, marginTop+plotH/2)
	for i := 1; i < len(c.Labels); i += 2 {
		fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`, x(i), bottom, x(i), bottom+4, colorAxis)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="12" text-anchor="end" transform="rotate(-90 %.1f %.1f)">%s</text>`,
			x(i)+4, bottom+8, x(i)+4, bottom+8, html.EscapeString(c.Labels[i]))
	}

	// Benchmark area and line, then the daily line on top.
	if area := polyline(c.Benchmark, x, y); area != "" {
		first, last := firstLast(c.Benchmark)
		fmt.Fprintf(&b, `<polygon points="%.1f,%.1f %s %.1f,%.1f" fill="%s" fill-opacity="0.3"/>`,
			x(first), bottom, area, x(last), bottom, colorBenchmark)
		fmt.Fprintf(&b, `<polyline points="%s" fill="none" stroke="%s" stroke-opacity="0.5" stroke-width="2"/>`, area, colorBenchmark)
	}
	if line := polyline(c.Daily, x, y); line != "" {
		fmt.Fprintf(&b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="2"/>`, line, colorDaily)
	}

	// Legend.
	ly := chartHeight - 16
	fmt.Fprintf(&b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"/>`, chartWidth/2-300, ly-4, chartWidth/2-270, ly-4, colorDaily)
	fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="12">%s</text>`, chartWidth/2-264, ly, html.EscapeString(c.DailyLegend))
	fmt.Fprintf(&b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-opacity="0.5" stroke-width="2"/>`, chartWidth/2+20, ly-4, chartWidth/2+50, ly-4, colorBenchmark)
	fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="12">%s</text>`, chartWidth/2+56, ly, html.EscapeString(c.BenchmarkLegend))
	b.WriteString(`</svg>`)
	return b.Bytes()
}

// polyline joins the defined points of a series.
func polyline(values []float64, x func(int) float64, y func(float64) float64) string {
	var pts []string
	for i, v := range values {
		if !math.IsNaN(v) {
			pts = append(pts, fmt.Sprintf("%.1f,%.1f", x(i), y(v)))
		}
	}
	return strings.Join(pts, " ")
}

func firstLast(values []float64) (int, int) {
	first, last := -1, -1
	for i, v := range values {
		if !math.IsNaN(v) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last
}
