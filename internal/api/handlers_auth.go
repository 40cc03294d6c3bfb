// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package api

import (
	"net/http"

	"github.com/tomtom215/audience-insights/internal/auth"
	"github.com/tomtom215/audience-insights/internal/models"
)

// authResult writes the outcome of an account flow. Rejections of the
// user's input are 200 responses with success=false and the message code.
func (h *Handler) authResult(w http.ResponseWriter, r *http.Request, err error, success, failure string, data interface{}) {
	if err == nil {
		respondSuccess(w, r, success, data, nil)
		return
	}
	if code, ok := auth.Rejection(err); ok {
		respondRejected(w, r, code)
		return
	}
	handleError(w, r, err, ErrCodeInternal, failure)
}

// CheckEmail reports whether an email is pre-approved and already in use.
// It always succeeds so the frontend can show the message.
func (h *Handler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := h.auth.CheckEmail(r.Context(), req.Email)
	if err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to check email")
		return
	}
	respondSuccess(w, r, status.Message(), status, nil)
}

// SendVerificationCode stores a pending signup and emails its code.
func (h *Handler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.auth.SendVerificationCode(r.Context(), req)
	h.authResult(w, r, err, auth.MsgVerificationSent, "Failed to send verification email", nil)
}

// RefreshVerificationCode issues a new code for a pending signup.
func (h *Handler) RefreshVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.auth.RefreshVerificationCode(r.Context(), req.Email)
	h.authResult(w, r, err, auth.MsgVerificationSent, "Failed to send verification email", nil)
}

// VerifySignup completes a signup with the emailed code.
func (h *Handler) VerifySignup(w http.ResponseWriter, r *http.Request) {
	var req models.VerificationCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.auth.VerifySignup(r.Context(), req.Email, req.VerificationCode)
	h.authResult(w, r, err, auth.MsgUserCreated, "Failed to create user", nil)
}

// Login returns a session token as the response data.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	h.authResult(w, r, err, auth.MsgLoginSuccessful, "Failed to log in", token)
}

// RequestPasswordReset emails a reset link.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.auth.RequestPasswordReset(r.Context(), req.Email)
	h.authResult(w, r, err, auth.MsgResetEmailSent, "Failed to send password reset email", nil)
}

// ResetPassword sets a new password from a reset token.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.NewPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.auth.ResetPassword(r.Context(), req.Token, req.NewPassword)
	h.authResult(w, r, err, auth.MsgPasswordReset, "Failed to reset password", nil)
}
