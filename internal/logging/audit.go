// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package logging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Account events written by AuditLogger.
const (
	EventSignupCodeSent    = "signup_code_sent"
	EventSignupCompleted   = "signup_completed"
	EventSignupRejected    = "signup_rejected"
	EventLoginSucceeded    = "login_succeeded"
	EventLoginFailed       = "login_failed"
	EventResetRequested    = "password_reset_requested"
	EventResetCompleted    = "password_reset_completed"
	EventResetRejected     = "password_reset_rejected"
	EventRoleChanged       = "user_role_changed"
	EventUserDeleted       = "user_deleted"
	EventPreApprovalAdded  = "preapproval_added"
	EventPreApprovalRemove = "preapproval_removed"
)

// AuditLogger records account and user-administration events with email
// addresses masked.
type AuditLogger struct {
	logger zerolog.Logger
}

// NewAuditLogger returns an AuditLogger on the global logger.
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{logger: WithComponent("auth")}
}

// NewAuditLoggerWith returns an AuditLogger on logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAuditLoggerWith(logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.With().Str("component", "auth").Logger()}
}

// Event logs one account event. reason is logged for failures only.
func (a *AuditLogger) Event(ctx context.Context, event, email string, ok bool, reason string) {
	var e *zerolog.Event
	if ok {
		e = a.logger.Info()
	} else {
		e = a.logger.Warn().Str("reason", reason)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		e = e.Str("request_id", id)
	}
	e.Str("event", event).
		Str("email", SanitizeEmail(email)).
		Bool("success", ok).
		Msg("account event")
}

// AdminEvent logs a change one user made to another account.
func (a *AuditLogger) AdminEvent(ctx context.Context, event, actor, target, detail string) {
	e := a.logger.Info()
	if id := RequestIDFromContext(ctx); id != "" {
		e = e.Str("request_id", id)
	}
	if detail != "" {
		e = e.Str("detail", detail)
	}
	e.Str("event", event).
		Str("actor", SanitizeEmail(actor)).
		Str("target", SanitizeEmail(target)).
		Msg("user admin event")
}

// SanitizeEmail keeps the first two characters of the local part.
//
//	SanitizeEmail("jane.doe@example.com") == "ja***@example.com"
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}

// SanitizeToken keeps the first and last four characters of a token.
func SanitizeToken(token string) string {
	switch {
	case token == "":
		return ""
	case len(token) <= 12:
		return "***"
	default:
		return token[:4] + "..." + token[len(token)-4:]
	}
}
