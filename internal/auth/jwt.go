// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/audience-insights/internal/config"
)

// Token purposes. A reset token is never accepted as a session token and
// vice versa.
const (
	PurposeSession = "session"
	PurposeReset   = "reset"
)

// Claims represents JWT claims
type Claims struct {
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token creation and validation
type JWTManager struct {
	secret       []byte
	timeout      time.Duration
	resetTimeout time.Duration
	now          func() time.Time
}

// NewJWTManager creates a JWT manager with the configured secret and the
// session and reset token lifetimes.
//
// Returns an error if JWT_SECRET is empty. Length is enforced by
// config.Validate.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}
	return &JWTManager{
		secret:       []byte(cfg.JWTSecret),
		timeout:      cfg.SessionTimeout,
		resetTimeout: cfg.ResetTokenTimeout,
		now:          time.Now,
	}, nil
}

// GenerateToken creates a session token carrying the user's email and role.
func (m *JWTManager) GenerateToken(email, role string) (string, error) {
	return m.sign(email, role, PurposeSession, m.timeout)
}

// GenerateResetToken creates a password reset token for email.
func (m *JWTManager) GenerateResetToken(email string) (string, error) {
	return m.sign(email, "", PurposeReset, m.resetTimeout)
}

func (m *JWTManager) sign(email, role, purpose string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := &Claims{
		Email:   email,
		Role:    role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signedToken, nil
}

// ValidateToken validates a session token and returns its claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	return m.validate(tokenString, PurposeSession)
}

// ValidateResetToken validates a password reset token and returns its claims.
func (m *JWTManager) ValidateResetToken(tokenString string) (*Claims, error) {
	return m.validate(tokenString, PurposeReset)
}

// validate returns ErrTokenExpired for a well-formed but expired token and
// ErrInvalidToken for anything else that fails.
func (m *JWTManager) validate(tokenString, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: %s token used as %s token", ErrInvalidToken, claims.Purpose, purpose)
	}
	return claims, nil
}
