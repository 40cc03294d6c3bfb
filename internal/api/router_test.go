// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomtom215/audience-insights/internal/config"
)

func TestRouter_Access(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"public auth route", http.MethodPost, "/api/auth/check_email", "", http.StatusBadRequest},
		{"engagement without token", http.MethodGet, "/api/engagement/data_range", "", http.StatusUnauthorized},
		{"engagement as user", http.MethodGet, "/api/engagement/data_range", env.userToken, http.StatusOK},
		{"map as user", http.MethodGet, "/api/map/coverage_snzips", env.userToken, http.StatusBadGateway},
		{"nielsen as admin", http.MethodGet, "/api/nielsen/get_subject_lines", env.adminToken, http.StatusOK},
		{"useradmin as user", http.MethodGet, "/api/useradmin/get_current_users", env.userToken, http.StatusForbidden},
		{"useradmin as admin", http.MethodGet, "/api/useradmin/get_current_users", env.adminToken, http.StatusOK},
		{"garbage token", http.MethodGet, "/api/nielsen/get_subject_lines", "not.a.token", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/api/auth/login", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.token, nil, "")
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (body %s)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestRouter_SecurityHeadersAndRequestID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/engagement/data_range", env.userToken, nil, "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"database_connected":true`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/metrics", "", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("metrics = %d", rec.Code)
	}
}

func TestHealth_Degraded(t *testing.T) {
	h := NewHandler(Deps{DB: fakePinger{err: errors.New("connection refused")}})
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"status":"degraded"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_AuthRateLimit(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(&config.ServerConfig{AuthRateLimit: 2}, NewHandler(Deps{Auth: env.auth}), nil, nil).Setup()

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/check_email", strings.NewReader(`{"email":"a@example.com"}`))
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", last)
	}
}
