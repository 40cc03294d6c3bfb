// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/audience-insights/internal/models"
)

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status            string  `json:"status"`
	DatabaseConnected bool    `json:"database_connected"`
	Uptime            float64 `json:"uptime"`
}

// Health reports database connectivity. It answers 503 when the database is
// unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	status, code := "healthy", http.StatusOK
	if !dbConnected {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	respondJSON(w, r, code, &models.APIResponse{
		Success: dbConnected,
		Message: status,
		Data: HealthStatus{
			Status:            status,
			DatabaseConnected: dbConnected,
			Uptime:            time.Since(h.startTime).Seconds(),
		},
	})
}
