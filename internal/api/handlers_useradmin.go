// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/audience-insights/internal/database"
	"github.com/tomtom215/audience-insights/internal/models"
)

// adminResult writes the outcome of a user admin change. A change that
// matched nothing is a 400 with failure as the message.
func adminResult(w http.ResponseWriter, r *http.Request, err error, success, failure string) {
	switch {
	case err == nil:
		respondSuccess(w, r, success, nil, nil)
	case errors.Is(err, database.ErrNotFound):
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, failure, nil)
	default:
		handleError(w, r, err, ErrCodeDatabase, failure)
	}
}

// GetCurrentUsers lists every account.
func (h *Handler) GetCurrentUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Users(r.Context())
	if err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to retrieve users")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	respondSuccess(w, r, "users_retrieved_successfully", users, nil)
}

// UpdateUserRole changes a user's role when it still holds old_role.
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	err := h.users.UpdateUserRole(r.Context(), email, req.OldRole, req.NewRole)
	if err == nil {
		h.audit.AdminEvent(r.Context(), "update_user_role", actor(r.Context()), email, req.OldRole+" -> "+req.NewRole)
	}
	adminResult(w, r, err, "user_role_updated_successfully", "Failed to update user role")
}

// DeleteUser removes an account.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	err := h.users.DeleteUser(r.Context(), email)
	if err == nil {
		h.audit.AdminEvent(r.Context(), "delete_user", actor(r.Context()), email, "")
	}
	adminResult(w, r, err, "user_deleted_successfully", "Failed to delete user")
}

// GetPreApprovedEmails lists the pre-approved emails.
func (h *Handler) GetPreApprovedEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := h.users.PreApprovedEmails(r.Context())
	if err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to retrieve pre-approved emails")
		return
	}
	if emails == nil {
		emails = []models.PreApprovedEmail{}
	}
	respondSuccess(w, r, "emails_retrieved_successfully", emails, nil)
}

// AddPreApprovedEmail pre-approves an email with a role, dated today.
func (h *Handler) AddPreApprovedEmail(w http.ResponseWriter, r *http.Request) {
	var req models.PreApprovedEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	now := h.now().UTC()
	err := h.users.SavePreApprovedEmail(r.Context(), models.PreApprovedEmail{
		Email:        email,
		Role:         req.Role,
		DateApproved: now.Truncate(24 * time.Hour),
	})
	if err == nil {
		h.audit.AdminEvent(r.Context(), "add_pre_approved_email", actor(r.Context()), email, req.Role)
	}
	adminResult(w, r, err, "email_added_successfully", "Failed to add pre-approved email")
}

// DeletePreApprovedEmail removes a pre-approved email.
func (h *Handler) DeletePreApprovedEmail(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	err := h.users.DeletePreApprovedEmail(r.Context(), email)
	if err == nil {
		h.audit.AdminEvent(r.Context(), "delete_pre_approved_email", actor(r.Context()), email, "")
	}
	adminResult(w, r, err, "email_deleted_successfully", "Email not found in pre-approved list")
}
