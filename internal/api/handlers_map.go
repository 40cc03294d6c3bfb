// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package api

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
)

// CoverageSNZips returns the coverage GeoJSON. The document is passed
// through unparsed; metadata.size is its length.
func (h *Handler) CoverageSNZips(w http.ResponseWriter, r *http.Request) {
	body, err := h.storage.Coverage(r.Context())
	if err != nil {
		handleError(w, r, err, ErrCodeUpstream, "Failed to retrieve coverage data")
		return
	}
	if !json.Valid(body) {
		respondError(w, r, http.StatusBadGateway, ErrCodeUpstream, "Failed to retrieve coverage data", nil)
		return
	}
	respondSuccess(w, r, "Coverage data retrieved successfully", json.RawMessage(body), map[string]interface{}{
		"size": strconv.Itoa(len(body)) + " bytes",
	})
}
