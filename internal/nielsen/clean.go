// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package nielsen

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/tomtom215/audience-insights/internal/logging"
	"github.com/tomtom215/audience-insights/internal/models"
)

// ErrUnmappedKey is returned when a lookup table has no entry for a value
// found in an export.
var ErrUnmappedKey = errors.New("unmapped key")

// UnmappedKeyError names the lookup that failed.
type UnmappedKeyError struct {
	Mapping string
	Key     string
}

func (e *UnmappedKeyError) Error() string {
	return fmt.Sprintf("%s has no entry for %q", e.Mapping, e.Key)
}

// Is reports ErrUnmappedKey.
func (e *UnmappedKeyError) Is(target error) bool {
	return target == ErrUnmappedKey
}

// Mapping names used in UnmappedKeyError.
const (
	MappingStationNetwork = "station_network_mapping"
	MappingStationName    = "spectrum_station_name_mapping"
	MappingFifteenMinute  = "fifteen_min_order_mapping"
	MappingDMAName        = "dma_name_mapping"
	MappingDMAPenetration = "dma_penetration_mapping"
)

// Stations with special handling. Spectrum News 1 Dallas and Milwaukee feeds
// appear under every geography in the export but belong to one DMA each.
const (
	StationDallas    = "S1DF"
	StationMilwaukee = "S1MK"
	StationKAZD      = "KAZD 55.1"

	geoDallas    = "Dallas-Ft. Worth"
	geoMilwaukee = "Milwaukee"
)

// droppedGeographies are markets with no report recipients.
var droppedGeographies = []string{"Greensboro", "Raleigh", "Columbus", "Milwaukee", "Austin", "San Antonio"}

// Report networks in daypart table order.
const (
	NetworkSpecNews = "Spec News"
	NetworkKAZD     = "KAZD"
)

// DaypartNetworks are the columns of a cleaned daypart table.
var DaypartNetworks = []string{
	NetworkSpecNews, "ABC", "CNN", "Fox News", "MSNBC", "CBS", "CW", "FOX", NetworkKAZD, "NBC",
}

// unorderedDaypart sorts dayparts missing from the order mapping last.
const unorderedDaypart = 99

var fullDayTimes = []string{"03:00 am - 02:00 am", "03:00 am - 03:00 am"}

// QuarterHour is one cleaned row of a quarter-hour export.
type QuarterHour struct {
	Source  string  // viewing source, e.g. "S1DF"
	Network string  // mapped network, e.g. "Spec News"
	DMA     string  // Spectrum News DMA name
	Time    string  // time slot with all whitespace removed
	Date    string  // MM/DD/YYYY, or a range for benchmarks
	Rating  float64 // RTG %
	Order   int     // x axis position
}

// DaypartRow is one daypart of one DMA with the summed rating of every
// network that reported it. Networks absent from the export are absent from
// Ratings.
type DaypartRow struct {
	DMA     string
	Daypart string
	Order   int
	Ratings map[string]float64
}

// rawRow is an export row after the cleaning shared by both file types.
type rawRow struct {
	source    string
	geography string
	time      string
	date      string
	rating    float64
}

func baseRows(w *Workbook, file string) ([]rawRow, error) {
	idx := make(map[string]int)
	for _, c := range []string{ColTime, ColSource, ColDates, ColGeography, ColRating} {
		i := w.Index(c)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
		idx[c] = i
	}

	var (
		kept, dallas, milwaukee []rawRow
		missing                 int
	)
	for n, row := range w.Rows {
		r := rawRow{
			source:    strings.TrimSpace(row[idx[ColSource]]),
			geography: strings.TrimSpace(row[idx[ColGeography]]),
			time:      strings.TrimSpace(row[idx[ColTime]]),
			date:      strings.TrimSpace(row[idx[ColDates]]),
		}
		rating := strings.TrimSpace(row[idx[ColRating]])
		if rating == "" {
			missing++
		} else {
			v, err := strconv.ParseFloat(rating, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid rating %q: %w", n+1, rating, err)
			}
			r.rating = v
		}

		switch {
		case r.source == StationDallas:
			if r.geography == geoDallas {
				dallas = append(dallas, r)
			}
		case r.source == StationMilwaukee:
			if r.geography == geoMilwaukee {
				milwaukee = append(milwaukee, r)
			}
		default:
			kept = append(kept, r)
		}
	}
	if missing > 0 {
		logging.Warn().Str("file", file).Int("rows", missing).Msg("Missing ratings read as 0")
	}

	kept = append(append(kept, dallas...), milwaukee...)
	return slices.DeleteFunc(kept, func(r rawRow) bool {
		return slices.Contains(droppedGeographies, r.geography)
	}), nil
}

// Clean15Min cleans a quarter-hour export.
func Clean15Min(w *Workbook, m models.NielsenMappings) ([]QuarterHour, error) {
	rows, err := baseRows(w, models.ReportType15Min)
	if err != nil {
		return nil, err
	}
	out := make([]QuarterHour, 0, len(rows))
	for _, r := range rows {
		network, dma, err := mapRow(r, m)
		if err != nil {
			return nil, err
		}
		slot := strings.Map(func(c rune) rune {
			if unicode.IsSpace(c) {
				return -1
			}
			return c
		}, r.time)
		order, ok := m.FifteenMinuteOrder[slot]
		if !ok {
			return nil, &UnmappedKeyError{Mapping: MappingFifteenMinute, Key: slot}
		}
		out = append(out, QuarterHour{
			Source:  r.source,
			Network: network,
			DMA:     dma,
			Time:    slot,
			Date:    r.date,
			Rating:  r.rating,
			Order:   order,
		})
	}
	return out, nil
}

// CleanDayparts cleans a daypart export and pivots it to one row per DMA and
// daypart, summing ratings per network. DMAs keep their first appearance
// order; dayparts within a DMA are sorted by name.
func CleanDayparts(w *Workbook, m models.NielsenMappings) ([]DaypartRow, error) {
	rows, err := baseRows(w, models.ReportTypeDayparts)
	if err != nil {
		return nil, err
	}

	type key struct{ dma, daypart string }
	cells := make(map[key]map[string]float64)
	var dmas []string
	dayparts := make(map[string][]string)
	for _, r := range rows {
		network, dma, err := mapRow(r, m)
		if err != nil {
			return nil, err
		}
		daypart := r.time
		if slices.Contains(fullDayTimes, daypart) {
			daypart = "Full Day"
		}
		k := key{dma, daypart}
		if _, ok := cells[k]; !ok {
			cells[k] = make(map[string]float64)
			if _, seen := dayparts[dma]; !seen {
				dmas = append(dmas, dma)
			}
			dayparts[dma] = append(dayparts[dma], daypart)
		}
		cells[k][network] += r.rating
	}

	var out []DaypartRow
	for _, dma := range dmas {
		names := dayparts[dma]
		slices.Sort(names)
		for _, d := range names {
			order, ok := m.DaypartOrder[d]
			if !ok {
				order = unorderedDaypart
			}
			ratings := make(map[string]float64)
			for network, v := range cells[key{dma, d}] {
				if slices.Contains(DaypartNetworks, network) {
					ratings[network] = v
				}
			}
			out = append(out, DaypartRow{DMA: dma, Daypart: d, Order: order, Ratings: ratings})
		}
	}
	return out, nil
}

func mapRow(r rawRow, m models.NielsenMappings) (network, dma string, err error) {
	network, ok := m.StationNetwork[r.source]
	if !ok {
		return "", "", &UnmappedKeyError{Mapping: MappingStationNetwork, Key: r.source}
	}
	dma, ok = m.DMAName[r.geography]
	if !ok {
		return "", "", &UnmappedKeyError{Mapping: MappingDMAName, Key: r.geography}
	}
	return network, dma, nil
}
