// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/audience-insights/internal/engagement"
	"github.com/tomtom215/audience-insights/internal/models"
	"github.com/tomtom215/audience-insights/internal/validation"
)

const (
	msgDataRetrieved = "Data retrieved successfully"
	msgHEVRetrieved  = "HEV data retrieved successfully."
	msgReportFailed  = "Failed to build engagement report"
)

// respondReport writes an engagement report or maps its error.
func respondReport(w http.ResponseWriter, r *http.Request, message string, report engagement.Report, err error) {
	if err != nil {
		handleError(w, r, err, ErrCodeDatabase, msgReportFailed)
		return
	}
	respondSuccess(w, r, message, report.Data, report.Metadata)
}

// parseMonths parses already-validated month strings.
func parseMonths(months ...string) ([]time.Time, error) {
	out := make([]time.Time, len(months))
	for i, m := range months {
		t, err := validation.ParseFullMonth(m)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// rangeReport serves the reports taking a start and end month.
func (h *Handler) rangeReport(build func(ctx context.Context, start, end time.Time) (engagement.Report, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.StartEndRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		months, err := parseMonths(req.StartMonth, req.EndMonth)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid month", err)
			return
		}
		report, err := build(r.Context(), months[0], months[1])
		respondReport(w, r, msgDataRetrieved, report, err)
	}
}

// DataRange returns the oldest and most recent engagement months.
func (h *Handler) DataRange(w http.ResponseWriter, r *http.Request) {
	report, err := h.engagement.DataRange(r.Context())
	if err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to retrieve data")
		return
	}
	respondSuccess(w, r, msgDataRetrieved, report.Data, nil)
}

// YTD returns the year-to-date engagement tables.
func (h *Handler) YTD(w http.ResponseWriter, r *http.Request) {
	h.rangeReport(h.engagement.YTD)(w, r)
}

// MoM returns the month-over-month table.
func (h *Handler) MoM(w http.ResponseWriter, r *http.Request) {
	var req models.StartPrevEndRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	months, err := parseMonths(req.StartMonth, req.PreviousMonth, req.EndMonth)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid month", err)
		return
	}
	report, err := h.engagement.MoM(r.Context(), months[0], months[1], months[2])
	respondReport(w, r, msgDataRetrieved, report, err)
}

// OverTime returns engagement per month.
func (h *Handler) OverTime(w http.ResponseWriter, r *http.Request) {
	h.rangeReport(h.engagement.OverTime)(w, r)
}

// Rank returns the market ranking and its history.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	h.rangeReport(h.engagement.Rank)(w, r)
}

// HEV returns the highly-engaged-viewer comparison.
func (h *Handler) HEV(w http.ResponseWriter, r *http.Request) {
	var req models.HEVPeriodsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	months, err := parseMonths(req.CurrPeriodStart, req.CurrPeriodEnd, req.PrevPeriodStart, req.PrevPeriodEnd)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid month", err)
		return
	}
	report, err := h.engagement.HEV(r.Context(), engagement.HEVPeriods{
		CurrentStart:  months[0],
		CurrentEnd:    months[1],
		PreviousStart: months[2],
		PreviousEnd:   months[3],
	})
	respondReport(w, r, msgHEVRetrieved, report, err)
}

// Quarterly returns engagement per quarter.
func (h *Handler) Quarterly(w http.ResponseWriter, r *http.Request) {
	h.rangeReport(h.engagement.Quarterly)(w, r)
}

// PeriodicityHistory returns the periodicity tables per network group.
func (h *Handler) PeriodicityHistory(w http.ResponseWriter, r *http.Request) {
	h.rangeReport(h.engagement.PeriodicityHistory)(w, r)
}
