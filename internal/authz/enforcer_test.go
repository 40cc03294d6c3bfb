// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/audience-insights/internal/auth"
)

func setupEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	enforcer, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	return enforcer
}

func TestEnforce(t *testing.T) {
	enforcer := setupEnforcer(t)

	tests := []struct {
		role   string
		object string
		want   bool
	}{
		{RoleUser, "engagement", true},
		{RoleUser, "map", true},
		{RoleUser, "nielsen", true},
		{RoleUser, "useradmin", false},
		{RoleAdmin, "engagement", true},
		{RoleAdmin, "nielsen", true},
		{RoleAdmin, "useradmin", true},
		{"", "engagement", false},
		{"guest", "map", false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.object, func(t *testing.T) {
			got, err := enforcer.Enforce(tt.role, tt.object, ActionAccess)
			if err != nil {
				t.Fatalf("Enforce() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce(%q, %q) = %v, want %v", tt.role, tt.object, got, tt.want)
			}
		})
	}
}

func TestNewEnforcerFromStrings_InvalidPolicy(t *testing.T) {
	if _, err := NewEnforcerFromStrings(embeddedModel, "p, admin, useradmin\n"); err == nil {
		t.Error("expected error for a short policy line")
	}
	if _, err := NewEnforcerFromStrings("not a model", embeddedPolicy); err == nil {
		t.Error("expected error for an invalid model")
	}
}

func TestMiddleware_Authorize(t *testing.T) {
	mw := NewMiddleware(setupEnforcer(t))
	handler := mw.Authorize("useradmin")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		claims *auth.Claims
		want   int
	}{
		{name: "admin", claims: &auth.Claims{Email: "a@example.com", Role: RoleAdmin}, want: http.StatusNoContent},
		{name: "user", claims: &auth.Claims{Email: "u@example.com", Role: RoleUser}, want: http.StatusForbidden},
		{name: "unauthenticated", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/useradmin/get_current_users", nil)
			if tt.claims != nil {
				req = req.WithContext(auth.ContextWithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
