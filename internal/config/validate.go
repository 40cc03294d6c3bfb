// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinJWTSecretLength is the shortest accepted JWT_SECRET.
const MinJWTSecretLength = 32

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateNielsen(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.AuthRateLimit < 1 {
		return fmt.Errorf("AUTH_RATE_LIMIT must be positive, got %d", c.Server.AuthRateLimit)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "duckdb":
		return nil
	case "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or duckdb, got %q", c.Database.Driver)
	}

	var missing []string
	if c.Database.Host == "" {
		missing = append(missing, "RDS_URL")
	}
	if c.Database.User == "" {
		missing = append(missing, "RDS_USERNAME")
	}
	if c.Database.Name == "" {
		missing = append(missing, "RDS_DB_NAME")
	}
	if c.Database.Password == "" && !c.Database.IAMAuth {
		missing = append(missing, "RDS_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required when DB_DRIVER=postgres", strings.Join(missing, ", "))
	}
	if c.Database.IAMAuth && c.AWS.Region == "" {
		return fmt.Errorf("AWS_REGION is required when RDS_IAM_AUTH=true")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength)
	}
	if c.Security.SessionTimeout <= 0 || c.Security.ResetTokenTimeout <= 0 || c.Security.VerificationCodeTTL <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT, RESET_TOKEN_TIMEOUT and VERIFICATION_CODE_TTL must be positive")
	}
	if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Security.BcryptCost)
	}
	if c.Security.LoginMaxAttempts < 0 || c.Security.LoginLockout < 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS and LOGIN_LOCKOUT must not be negative")
	}
	u, err := url.Parse(c.Security.FrontendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("FRONTEND_URL must be an http(s) URL, got %q", c.Security.FrontendURL)
	}
	return nil
}

func (c *Config) validateNielsen() error {
	if c.Nielsen.WorkDir == "" {
		return fmt.Errorf("NIELSEN_WORK_DIR is required")
	}
	if c.Nielsen.MaxWorkers < 1 {
		return fmt.Errorf("NIELSEN_MAX_WORKERS must be positive, got %d", c.Nielsen.MaxWorkers)
	}
	if c.Nielsen.ReportTTL <= 0 {
		return fmt.Errorf("NIELSEN_REPORT_TTL must be positive, got %s", c.Nielsen.ReportTTL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	levels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
	if !slices.Contains(levels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("LOG_LEVEL must be one of %s, got %q", strings.Join(levels, ", "), c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
