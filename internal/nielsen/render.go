// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package nielsen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/audience-insights/internal/metrics"
	"github.com/tomtom215/audience-insights/internal/models"
)

// DMADallas is the one DMA reported with its KAZD simulcast.
const DMADallas = "Dallas/Ft. Worth"

// ErrNoDMAData is returned when an export has no rows for a reported DMA.
var ErrNoDMAData = errors.New("no ratings for DMA")

// SVGContentType is the media type of rendered charts.
const SVGContentType = "image/svg+xml"

// Image is an inline email attachment referenced by Content-ID.
type Image struct {
	ContentID string // without angle brackets
	Filename  string
	Data      []byte
}

// Section is the rendered block of one DMA.
type Section struct {
	DMA   string
	HTML  string
	Chart Image
}

// ReportData is the cleaned content of the four files a report is built from.
type ReportData struct {
	Benchmark15Min    []QuarterHour
	Daily15Min        []QuarterHour
	BenchmarkDayparts []DaypartRow
	DailyDayparts     []DaypartRow
}

// Renderer renders DMA sections concurrently.
type Renderer struct {
	mappings models.NielsenMappings
	domain   string
	workers  int
}

// NewRenderer returns a renderer running at most workers DMAs at once.
// Content-IDs are generated on domain.
func NewRenderer(mappings models.NielsenMappings, domain string, workers int) *Renderer {
	if workers < 1 {
		workers = 1
	}
	return &Renderer{mappings: mappings, domain: domain, workers: workers}
}

// Render renders every DMA in dmas.
func (r *Renderer) Render(ctx context.Context, dmas []string, data ReportData) (map[string]Section, error) {
	var (
		mu       sync.Mutex
		sections = make(map[string]Section, len(dmas))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, dma := range dmas {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			s, err := r.RenderDMA(dma, data)
			if err != nil {
				return err
			}
			metrics.RecordDMARender(time.Since(start))
			mu.Lock()
			sections[dma] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sections, nil
}

// RenderDMA renders the chart, daypart table and penetration line of one DMA.
func (r *Renderer) RenderDMA(dma string, data ReportData) (Section, error) {
	otherDMA := func(q QuarterHour) bool { return q.DMA != dma }
	chart, err := buildChart(dma,
		slices.DeleteFunc(slices.Clone(data.Daily15Min), otherDMA),
		slices.DeleteFunc(slices.Clone(data.Benchmark15Min), otherDMA),
		r.mappings.StationFullName)
	if err != nil {
		return Section{}, err
	}

	table, err := buildTable(dma, data.DailyDayparts, data.BenchmarkDayparts)
	if err != nil {
		return Section{}, err
	}

	penetration, ok := r.mappings.DMAPenetration[dma]
	if !ok {
		return Section{}, &UnmappedKeyError{Mapping: MappingDMAPenetration, Key: dma}
	}
	sentence := fmt.Sprintf("%d%% of TV households in the %s DMA have Spectrum News", int(penetration), dma)
	if dma == DMADallas {
		sentence = fmt.Sprintf("%d%% of TV households in the %s DMA have Spectrum News our cable channel or KAZD", int(penetration), dma)
	}

	cid := ulid.Make().String() + "@" + r.domain
	var b bytes.Buffer
	if err := sectionTemplate.Execute(&b, sectionView{
		DMA:         dma,
		ChartSrc:    template.URL("cid:" + cid),
		Table:       table,
		Compact:     dma == DMADallas,
		Penetration: sentence,
	}); err != nil {
		return Section{}, fmt.Errorf("failed to render %s: %w", dma, err)
	}

	return Section{
		DMA:  dma,
		HTML: b.String(),
		Chart: Image{
			ContentID: cid,
			Filename:  filePrefix(dma) + "_chart.svg",
			Data:      chart.SVG(),
		},
	}, nil
}

func filePrefix(dma string) string {
	if len(dma) > 3 {
		dma = dma[:3]
	}
	return strings.NewReplacer("/", "_", " ", "_").Replace(dma)
}

// Table is a daypart table: daily ratings, each flagged against the benchmark.
type Table struct {
	Columns []string
	Rows    []TableRow
}

// TableRow is one daypart.
type TableRow struct {
	Daypart string
	Cells   []TableCell
}

// TableCell is one rating. Above is set when the daily rating beats the
// benchmark; missing ratings are never above.
type TableCell struct {
	Text  string
	Above bool
}

const (
	colCombined    = "SN 1 + SN KAZD"
	colDallas      = "SN 1 Dallas"
	colKAZD        = "SN KAZD"
	missingRating  = "-"
	ratingDecimals = 2
)

var (
	tableColumns       = []string{NetworkSpecNews, "ABC", "CBS", "CW", "FOX", "NBC", "CNN", "Fox News", "MSNBC"}
	dallasTableColumns = []string{colCombined, colDallas, colKAZD, "ABC", "CBS", "CW", "FOX", "NBC", "CNN", "Fox News", "MSNBC"}

	leadingZero = regexp.MustCompile(`0([1-9]:)`)
	meridiem    = regexp.MustCompile(` ([ap])`)
)

// daypartLabel shortens "06:00 am - 09:00 am" to "6:00am - 9:00am".
func daypartLabel(d string) string {
	return meridiem.ReplaceAllString(leadingZero.ReplaceAllString(d, "$1"), "$1")
}

// rating returns the rounded value of a table column for a daypart row.
func rating(row DaypartRow, col string) (decimal.Decimal, bool) {
	get := func(network string) (decimal.Decimal, bool) {
		v, ok := row.Ratings[network]
		return decimal.NewFromFloat(v).RoundBank(ratingDecimals), ok
	}
	switch col {
	case colDallas:
		return get(NetworkSpecNews)
	case colKAZD:
		return get(NetworkKAZD)
	case colCombined:
		sn, ok1 := get(NetworkSpecNews)
		kazd, ok2 := get(NetworkKAZD)
		return sn.Add(kazd), ok1 && ok2
	default:
		return get(col)
	}
}

func buildTable(dma string, daily, benchmark []DaypartRow) (Table, error) {
	pick := func(rows []DaypartRow) []DaypartRow {
		out := slices.DeleteFunc(slices.Clone(rows), func(r DaypartRow) bool { return r.DMA != dma })
		slices.SortStableFunc(out, func(a, b DaypartRow) int { return a.Order - b.Order })
		return out
	}
	dailyRows := pick(daily)
	if len(dailyRows) == 0 {
		return Table{}, fmt.Errorf("%w: %s", ErrNoDMAData, dma)
	}
	bench := make(map[string]DaypartRow)
	for _, r := range pick(benchmark) {
		bench[r.Daypart] = r
	}

	columns := tableColumns
	if dma == DMADallas {
		columns = dallasTableColumns
	}
	t := Table{Columns: columns}
	for _, d := range dailyRows {
		row := TableRow{Daypart: daypartLabel(d.Daypart)}
		b, hasBench := bench[d.Daypart]
		for _, col := range columns {
			v, ok := rating(d, col)
			cell := TableCell{Text: missingRating}
			if ok {
				cell.Text = v.String()
				if hasBench {
					if bv, ok := rating(b, col); ok {
						cell.Above = v.GreaterThan(bv)
					}
				}
			}
			row.Cells = append(row.Cells, cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

type sectionView struct {
	DMA         string
	ChartSrc    template.URL
	Table       Table
	Compact     bool
	Penetration string
}

var sectionTemplate = template.Must(template.New("dma").Parse(`<h3 style="font-size:18px;"> {{.DMA}} </h3> <b>Ratings by Quarter Hour:</b>
<br>
<div style="margin-left: 36px;">
    <img src="{{.ChartSrc}}" style="width: 100%; max-width: 900px;">
</div>
<br> <b>Dayparts Table ({{.DMA}}):</b> <br>
<div style="margin-left: 36px;">
<table style="border-collapse: collapse; font-family: Arial, sans-serif; font-size: {{if .Compact}}10px{{else}}12px{{end}};">
<tr><th style="background-color: #0A2F6E; color: #FFFFFF; text-align: left; padding: 4px 8px;">Daypart</th>{{range .Table.Columns}}<th style="background-color: #0A2F6E; color: #FFFFFF; padding: 4px 8px;">{{.}}</th>{{end}}</tr>
{{range .Table.Rows}}<tr><th style="background-color: #0A2F6E; color: #FFFFFF; text-align: left; padding: 4px 8px;">{{.Daypart}}</th>{{range .Cells}}<td style="background-color: {{if .Above}}#AFE1AF{{else}}#F69697{{end}}; text-align: center; padding: 4px 8px;">{{.Text}}</td>{{end}}</tr>
{{end}}</table>
</div>
<br>{{.Penetration}}<br><br><hr color="black" size="2" width="100%">
`))
