// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package models

import "time"

// Nielsen upload types.
const (
	ReportType15Min    = "15min"
	ReportTypeDayparts = "Dayparts"
)

// SubjectLine is one configured report email. Recipients, notes and DMA
// lists are keyed by its ID.
type SubjectLine struct {
	ID      int    `json:"id" validate:"required,min=1"`
	Subject string `json:"subject" validate:"required,max=255"`
}

// DMAMapping maps a Nielsen DMA name to the Spectrum News DMA name and that
// DMA's subscriber penetration.
type DMAMapping struct {
	NielsenDMAName     string  `json:"nielsen_dma_name" validate:"required"`
	SNDMAName          string  `json:"sn_dma_name" validate:"required"`
	PenetrationPercent float64 `json:"penetration_percent" validate:"min=0,max=100"`
}

// NielsenMappings holds every lookup table used to clean a Nielsen upload.
type NielsenMappings struct {
	StationNetwork     map[string]string  // station name -> network
	StationFullName    map[string]string  // station abbreviation -> full name
	DaypartOrder       map[string]int     // daypart -> table row order
	FifteenMinuteOrder map[string]int     // time slot -> x axis order
	DMAName            map[string]string  // Nielsen DMA -> SN DMA
	DMAPenetration     map[string]float64 // SN DMA -> penetration percent
}

// BenchmarkFile describes a stored benchmark workbook.
type BenchmarkFile struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// DMAPenetration is the penetration of one SN DMA.
type DMAPenetration struct {
	SNDMAName          string  `json:"sn_dma_name"`
	PenetrationPercent float64 `json:"penetration_percent"`
}

// Report configuration bodies. Recipients and notes are keyed by the decimal
// subject line ID, e.g. {"1": ["a@example.com"]}.
type (
	RecipientsBySubject map[string][]string
	NotesBySubject      map[string]string
)

// DownloadEMLRequest names a generated report file to download.
type DownloadEMLRequest struct {
	FilePath string `json:"file_path" validate:"required"`
}
