// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/audience-insights/internal/cloud"
	"github.com/tomtom215/audience-insights/internal/database"
	"github.com/tomtom215/audience-insights/internal/engagement"
	"github.com/tomtom215/audience-insights/internal/logging"
	"github.com/tomtom215/audience-insights/internal/models"
	"github.com/tomtom215/audience-insights/internal/nielsen"
	"github.com/tomtom215/audience-insights/internal/pivot"
	"github.com/tomtom215/audience-insights/internal/validation"
)

// Error codes for API responses
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeTooLarge           = "PAYLOAD_TOO_LARGE"
	ErrCodeDatabase           = "DATABASE_ERROR"
	ErrCodeSerialization      = "SERIALIZATION_ERROR"
	ErrCodeUpstream           = "UPSTREAM_ERROR"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers. A body that cannot
// be encoded is replaced by a SERIALIZATION_ERROR response.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		status = http.StatusInternalServerError
		msg := "Failed to encode response"
		if errors.Is(err, pivot.ErrNonFinite) {
			msg = "Report contains values that cannot be represented in JSON"
		}
		data, _ = json.Marshal(&models.APIResponse{
			Success: false,
			Message: msg,
			Error: &models.APIError{
				Code:      ErrCodeSerialization,
				Message:   msg,
				RequestID: logging.RequestIDFromContext(r.Context()),
			},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess sends a 200 success envelope.
func respondSuccess(w http.ResponseWriter, r *http.Request, message string, data interface{}, metadata map[string]interface{}) {
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Success:  true,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// respondRejected sends a 200 envelope with success=false. The frontend
// shows message to the user; it is not an error condition.
func respondRejected(w http.ResponseWriter, r *http.Request, message string) {
	respondJSON(w, r, http.StatusOK, &models.APIResponse{Success: false, Message: message})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	apiErr := &models.APIError{
		Code:      code,
		Message:   message,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
	if err != nil {
		logger := logging.Ctx(r.Context())
		event := logger.Warn()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.Str("code", code).Str("error", sanitizeLogValue(err.Error())).Msg("API error")
		apiErr.Message = err.Error()
	}
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr.Details = verr.Details()
	}
	respondJSON(w, r, status, &models.APIResponse{
		Success: false,
		Message: message,
		Error:   apiErr,
	})
}

// handleError maps err onto a status and error code. fallbackCode is used for
// errors without a more specific mapping.
func handleError(w http.ResponseWriter, r *http.Request, err error, fallbackCode, message string) {
	var (
		verr     *validation.RequestValidationError
		unmapped *nielsen.UnmappedKeyError
	)
	switch {
	case errors.As(err, &verr):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Request validation failed", err)
	case errors.As(err, &unmapped):
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("No %s entry for %q", unmapped.Mapping, unmapped.Key), err)
	case errors.Is(err, engagement.ErrInvalidRange),
		errors.Is(err, nielsen.ErrMissingDailyFile),
		errors.Is(err, nielsen.ErrNoRows),
		errors.Is(err, nielsen.ErrInvalidColumns),
		errors.Is(err, nielsen.ErrNotExcel),
		errors.Is(err, nielsen.ErrNoDMAData),
		errors.Is(err, nielsen.ErrMissingColumn):
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, message, err)
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, cloud.ErrObjectNotFound),
		errors.Is(err, cloud.ErrNoBenchmark),
		errors.Is(err, nielsen.ErrReportNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, message, err)
	case errors.Is(err, pivot.ErrNonFinite):
		respondError(w, r, http.StatusInternalServerError, ErrCodeSerialization, message, err)
	case errors.Is(err, cloud.ErrUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUpstream, message, err)
	default:
		respondError(w, r, http.StatusInternalServerError, fallbackCode, message, err)
	}
}

// decodeJSON decodes the request body into v and validates it. It writes the
// error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		msg := "Invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, msg, err)
		return false
	}
	if err := validation.ValidateStruct(v); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Request validation failed", err)
		return false
	}
	return true
}

// decodeJSONValue decodes a body that is not a struct (a list or a map) and
// validates it with rule.
func decodeJSONValue(w http.ResponseWriter, r *http.Request, v interface{}, rule string) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body", err)
		return false
	}
	if err := validation.ValidateVar(reflect.Indirect(reflect.ValueOf(v)).Interface(), rule); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Request validation failed", err)
		return false
	}
	return true
}
