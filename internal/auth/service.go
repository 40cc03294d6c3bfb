// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/audience-insights/internal/config"
	"github.com/tomtom215/audience-insights/internal/database"
	"github.com/tomtom215/audience-insights/internal/logging"
	"github.com/tomtom215/audience-insights/internal/metrics"
	"github.com/tomtom215/audience-insights/internal/models"
)

// Rejections. The error text is the message code shown by the frontend.
var (
	ErrNotPreApproved    = errors.New("email_not_preapproved")
	ErrEmailInUse        = errors.New("email_already_in_use")
	ErrNoPendingSignup   = errors.New("no_pending_signup")
	ErrCodeIncorrect     = errors.New("verification_code_incorrect")
	ErrCodeExpired       = errors.New("verification_code_expired")
	ErrUserNotFound      = errors.New("user_not_found")
	ErrIncorrectPassword = errors.New("incorrect_password")
	ErrAccountLocked     = errors.New("account_locked")
	ErrTokenExpired      = errors.New("token_expired")
	ErrInvalidToken      = errors.New("invalid_token")
	ErrSamePassword      = errors.New("new_password_same_as_old")
)

var rejections = []error{
	ErrNotPreApproved, ErrEmailInUse, ErrNoPendingSignup, ErrCodeIncorrect,
	ErrCodeExpired, ErrUserNotFound, ErrIncorrectPassword, ErrAccountLocked,
	ErrTokenExpired, ErrInvalidToken, ErrSamePassword,
}

// Rejection returns the message code of err when it is a rejection of the
// user's input rather than a failure.
func Rejection(err error) (string, bool) {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return r.Error(), true
		}
	}
	return "", false
}

// Success message codes.
const (
	MsgVerificationSent = "verification_email_sent"
	MsgUserCreated      = "user_created_successfully"
	MsgLoginSuccessful  = "login_successful"
	MsgResetEmailSent   = "password_reset_email_sent"
	MsgPasswordReset    = "password_reset_successful"
)

// Store is the account persistence used by Service.
type Store interface {
	PreApprovedRole(ctx context.Context, email string) (string, error)
	UserExists(ctx context.Context, email string) (bool, error)
	User(ctx context.Context, email string) (*models.User, error)
	SavePendingSignup(ctx context.Context, p models.PendingSignup) error
	RefreshVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error
	PendingSignup(ctx context.Context, email string) (*models.PendingSignup, error)
	CompleteSignup(ctx context.Context, u models.User) error
	UpdatePassword(ctx context.Context, email, hash string) error
	TouchLastLogin(ctx context.Context, email string, t time.Time) error
}

// Mailer delivers account emails.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
	SendPasswordReset(ctx context.Context, to, link string) error
}

// EmailStatus is the result of CheckEmail.
type EmailStatus struct {
	IsPreapproved bool `json:"is_preapproved"`
	IsExisting    bool `json:"is_existing"`
}

// Message is the text shown next to the signup form.
func (s EmailStatus) Message() string {
	switch {
	case s.IsExisting:
		return "Email is already in use."
	case s.IsPreapproved:
		return "Email is preapproved and available for signup."
	default:
		return "Email is not preapproved. Please contact the audience insights team to request access."
	}
}

// Service implements signup, login and password reset.
type Service struct {
	store   Store
	mailer  Mailer
	jwt     *JWTManager
	lockout *Lockout
	audit   *logging.AuditLogger
	cfg     *config.SecurityConfig
	now     func() time.Time
}

// NewService wires the auth flows.
func NewService(store Store, mailer Mailer, jwt *JWTManager, cfg *config.SecurityConfig) *Service {
	return &Service{
		store:   store,
		mailer:  mailer,
		jwt:     jwt,
		lockout: NewLockout(cfg.LoginMaxAttempts, cfg.LoginLockout),
		audit:   logging.NewAuditLogger(),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Lockout returns the login lockout tracker.
func (s *Service) Lockout() *Lockout {
	return s.lockout
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// record counts the attempt and returns err unchanged.
func record(flow string, err error) error {
	switch _, rejected := Rejection(err); {
	case err == nil:
		metrics.RecordAuthAttempt(flow, "success")
	case rejected:
		metrics.RecordAuthAttempt(flow, "rejected")
	default:
		metrics.RecordAuthAttempt(flow, "error")
	}
	return err
}

// CheckEmail reports whether email is pre-approved and already registered.
func (s *Service) CheckEmail(ctx context.Context, email string) (EmailStatus, error) {
	email = normalizeEmail(email)
	var st EmailStatus
	_, err := s.store.PreApprovedRole(ctx, email)
	switch {
	case err == nil:
		st.IsPreapproved = true
	case !errors.Is(err, database.ErrNotFound):
		return st, err
	}
	exists, err := s.store.UserExists(ctx, email)
	if err != nil {
		return st, err
	}
	st.IsExisting = exists
	return st, nil
}

// SendVerificationCode stores a pending signup for a pre-approved email and
// emails its verification code. A repeated call replaces the pending signup.
func (s *Service) SendVerificationCode(ctx context.Context, req models.SignupRequest) (err error) {
	defer func() { record("signup", err) }()
	email := normalizeEmail(req.Email)

	st, err := s.CheckEmail(ctx, email)
	if err != nil {
		return err
	}
	if st.IsExisting {
		s.audit.Event(ctx, logging.EventSignupRejected, email, false, ErrEmailInUse.Error())
		return ErrEmailInUse
	}
	if !st.IsPreapproved {
		s.audit.Event(ctx, logging.EventSignupRejected, email, false, ErrNotPreApproved.Error())
		return ErrNotPreApproved
	}

	hash, err := HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	code, err := NewVerificationCode()
	if err != nil {
		return err
	}
	if err := s.store.SavePendingSignup(ctx, models.PendingSignup{
		Email:            email,
		PasswordHash:     hash,
		Team:             req.Team,
		VerificationCode: code,
		ExpiresAt:        s.now().Add(s.cfg.VerificationCodeTTL),
	}); err != nil {
		return fmt.Errorf("failed to save pending signup: %w", err)
	}
	if err := s.mailer.SendVerificationCode(ctx, email, code); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	s.audit.Event(ctx, logging.EventSignupCodeSent, email, true, "")
	return nil
}

// RefreshVerificationCode issues a new code for an existing pending signup.
func (s *Service) RefreshVerificationCode(ctx context.Context, email string) (err error) {
	defer func() { record("signup", err) }()
	email = normalizeEmail(email)

	code, err := NewVerificationCode()
	if err != nil {
		return err
	}
	err = s.store.RefreshVerificationCode(ctx, email, code, s.now().Add(s.cfg.VerificationCodeTTL))
	if errors.Is(err, database.ErrNotFound) {
		return ErrNoPendingSignup
	}
	if err != nil {
		return fmt.Errorf("failed to refresh verification code: %w", err)
	}
	if err := s.mailer.SendVerificationCode(ctx, email, code); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	s.audit.Event(ctx, logging.EventSignupCodeSent, email, true, "")
	return nil
}

// VerifySignup checks the emailed code and creates the user with the role
// the email was pre-approved with.
func (s *Service) VerifySignup(ctx context.Context, email, code string) (err error) {
	defer func() { record("verify_signup", err) }()
	email = normalizeEmail(email)

	pending, err := s.store.PendingSignup(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return ErrNoPendingSignup
	}
	if err != nil {
		return err
	}
	if !codesEqual(pending.VerificationCode, code) {
		s.audit.Event(ctx, logging.EventSignupRejected, email, false, ErrCodeIncorrect.Error())
		return ErrCodeIncorrect
	}
	if !s.now().Before(pending.ExpiresAt) {
		s.audit.Event(ctx, logging.EventSignupRejected, email, false, ErrCodeExpired.Error())
		return ErrCodeExpired
	}

	role, err := s.store.PreApprovedRole(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		s.audit.Event(ctx, logging.EventSignupRejected, email, false, ErrNotPreApproved.Error())
		return ErrNotPreApproved
	}
	if err != nil {
		return err
	}

	if err := s.store.CompleteSignup(ctx, models.User{
		Email:        email,
		PasswordHash: pending.PasswordHash,
		Team:         pending.Team,
		Role:         role,
		CreatedAt:    s.now(),
	}); err != nil {
		return fmt.Errorf("failed to complete signup: %w", err)
	}
	s.audit.Event(ctx, logging.EventSignupCompleted, email, true, "")
	return nil
}

// Login checks the password and returns a session token.
func (s *Service) Login(ctx context.Context, email, password string) (token string, err error) {
	defer func() { record("login", err) }()
	email = normalizeEmail(email)

	if locked, remaining := s.lockout.Locked(email); locked {
		s.audit.Event(ctx, logging.EventLoginFailed, email, false, "locked for "+remaining.Round(time.Second).String())
		return "", ErrAccountLocked
	}

	user, err := s.store.User(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		s.audit.Event(ctx, logging.EventLoginFailed, email, false, ErrUserNotFound.Error())
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	if !CheckPassword(user.PasswordHash, password) {
		s.audit.Event(ctx, logging.EventLoginFailed, email, false, ErrIncorrectPassword.Error())
		if s.lockout.Fail(email) {
			logging.Ctx(ctx).Warn().Str("email", logging.SanitizeEmail(email)).Msg("Account locked after repeated failed logins")
		}
		return "", ErrIncorrectPassword
	}
	s.lockout.Succeed(email)

	token, err = s.jwt.GenerateToken(user.Email, user.Role)
	if err != nil {
		return "", err
	}
	if err := s.store.TouchLastLogin(ctx, user.Email, s.now()); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to record last login time")
	}
	s.audit.Event(ctx, logging.EventLoginSucceeded, email, true, "")
	return token, nil
}

// RequestPasswordReset emails a reset link for a registered user.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (err error) {
	defer func() { record("password_reset", err) }()
	email = normalizeEmail(email)

	if _, err := s.store.User(ctx, email); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.audit.Event(ctx, logging.EventResetRejected, email, false, ErrUserNotFound.Error())
			return ErrUserNotFound
		}
		return err
	}
	token, err := s.jwt.GenerateResetToken(email)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, email, s.ResetLink(token)); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	s.audit.Event(ctx, logging.EventResetRequested, email, true, "")
	return nil
}

// ResetLink is the frontend page that completes a reset with token.
func (s *Service) ResetLink(token string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset_password?token=" + url.QueryEscape(token)
}

// ResetPassword sets a new password for the user named by a reset token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func() { record("password_reset", err) }()

	claims, err := s.jwt.ValidateResetToken(token)
	if err != nil {
		s.audit.Event(ctx, logging.EventResetRejected, "", false, err.Error())
		return err
	}
	user, err := s.store.User(ctx, claims.Email)
	if errors.Is(err, database.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if CheckPassword(user.PasswordHash, newPassword) {
		s.audit.Event(ctx, logging.EventResetRejected, user.Email, false, ErrSamePassword.Error())
		return ErrSamePassword
	}
	hash, err := HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, user.Email, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.lockout.Succeed(user.Email)
	s.audit.Event(ctx, logging.EventResetCompleted, user.Email, true, "")
	return nil
}
