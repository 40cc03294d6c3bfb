// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package models

import "time"

// User is a registered account.
type User struct {
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	Team          string     `json:"team"`
	Role          string     `json:"role"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginTime *time.Time `json:"last_login_time,omitempty"`
}

// PendingSignup is a signup awaiting its email verification code.
type PendingSignup struct {
	Email            string
	PasswordHash     string
	Team             string
	VerificationCode string
	ExpiresAt        time.Time
}

// PreApprovedEmail grants an email address the right to sign up with a role.
type PreApprovedEmail struct {
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	DateApproved time.Time `json:"date_approved"`
}

// EmailRequest carries a single email address.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// SignupRequest starts a signup.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Team     string `json:"team" validate:"required,max=100"`
}

// VerificationCodeRequest completes a signup.
type VerificationCodeRequest struct {
	Email            string `json:"email" validate:"required,email"`
	VerificationCode string `json:"verification_code" validate:"required,len=6,numeric"`
}

// LoginRequest authenticates with email and password.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// NewPasswordRequest completes a password reset.
type NewPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newpassword" validate:"required,min=8,max=72"`
}

// PreApprovedEmailRequest adds a pre-approved email.
type PreApprovedEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin user"`
}

// UpdateUserRoleRequest changes a user's role.
type UpdateUserRoleRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OldRole string `json:"old_role" validate:"required"`
	NewRole string `json:"new_role" validate:"required,oneof=admin user"`
}
