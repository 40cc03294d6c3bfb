// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tomtom215/audience-insights/internal/models"
)

// PreApprovedRole returns the role an email was pre-approved with, or
// ErrNotFound.
func (db *DB) PreApprovedRole(ctx context.Context, email string) (string, error) {
	var role string
	found := false
	err := db.query(ctx, "preapproved_role",
		`SELECT role FROM users_and_admin.pre_approved_emails WHERE email = $1`,
		func(rows *sql.Rows) error {
			found = true
			return rows.Scan(&role)
		}, email)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotFound
	}
	return role, nil
}

// UserExists reports whether email belongs to a registered user.
func (db *DB) UserExists(ctx context.Context, email string) (bool, error) {
	_, err := db.User(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// User returns the registered user with email, or ErrNotFound.
func (db *DB) User(ctx context.Context, email string) (*models.User, error) {
	var u *models.User
	err := db.query(ctx, "user_by_email", `
SELECT email, password, team, role, created_at, last_login_time
FROM users_and_admin.users WHERE email = $1`,
		func(rows *sql.Rows) error {
			var err error
			u, err = scanUser(rows)
			return err
		}, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func scanUser(rows *sql.Rows) (*models.User, error) {
	var (
		u         models.User
		team      sql.NullString
		created   sql.NullTime
		lastLogin sql.NullTime
	)
	if err := rows.Scan(&u.Email, &u.PasswordHash, &team, &u.Role, &created, &lastLogin); err != nil {
		return nil, err
	}
	u.Team = team.String
	if created.Valid {
		u.CreatedAt = created.Time
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginTime = &t
	}
	return &u, nil
}

// Users lists every registered user ordered by email.
func (db *DB) Users(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := db.query(ctx, "list_users", `
SELECT email, password, team, role, created_at, last_login_time
FROM users_and_admin.users ORDER BY email`,
		func(rows *sql.Rows) error {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, *u)
			return nil
		})
	return out, err
}

// SavePendingSignup stores or replaces the pending signup for p.Email.
func (db *DB) SavePendingSignup(ctx context.Context, p models.PendingSignup) error {
	_, err := db.exec(ctx, "save_pending_signup", `
INSERT INTO users_and_admin.verify_users (email, password, team, verif_code, expiration_time)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email) DO UPDATE SET
    password = EXCLUDED.password,
    team = EXCLUDED.team,
    verif_code = EXCLUDED.verif_code,
    expiration_time = EXCLUDED.expiration_time`,
		p.Email, p.PasswordHash, p.Team, p.VerificationCode, p.ExpiresAt.UTC())
	return err
}

// RefreshVerificationCode replaces the code and expiry of an existing pending
// signup. It returns ErrNotFound when no signup is pending for email.
func (db *DB) RefreshVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	n, err := db.exec(ctx, "refresh_verification_code", `
UPDATE users_and_admin.verify_users SET verif_code = $2, expiration_time = $3 WHERE email = $1`,
		email, code, expiresAt.UTC())
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingSignup returns the pending signup for email, or ErrNotFound.
func (db *DB) PendingSignup(ctx context.Context, email string) (*models.PendingSignup, error) {
	var p *models.PendingSignup
	err := db.query(ctx, "pending_signup", `
SELECT email, password, team, verif_code, expiration_time
FROM users_and_admin.verify_users WHERE email = $1`,
		func(rows *sql.Rows) error {
			var (
				s        models.PendingSignup
				pw, team sql.NullString
			)
			if err := rows.Scan(&s.Email, &pw, &team, &s.VerificationCode, &s.ExpiresAt); err != nil {
				return err
			}
			s.PasswordHash, s.Team = pw.String, team.String
			p = &s
			return nil
		}, email)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// CompleteSignup creates the user and removes the pending signup in one
// transaction.
func (db *DB) CompleteSignup(ctx context.Context, u models.User) error {
	return db.inTx(ctx, "complete_signup", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO users_and_admin.users (email, password, team, role, created_at)
VALUES ($1, $2, $3, $4, $5)`,
			u.Email, u.PasswordHash, u.Team, u.Role, u.CreatedAt.UTC()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM users_and_admin.verify_users WHERE email = $1`, u.Email)
		return err
	})
}

// UpdatePassword replaces a user's password hash.
func (db *DB) UpdatePassword(ctx context.Context, email, hash string) error {
	n, err := db.exec(ctx, "update_password",
		`UPDATE users_and_admin.users SET password = $2 WHERE email = $1`, email, hash)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastLogin records a successful login at t.
func (db *DB) TouchLastLogin(ctx context.Context, email string, t time.Time) error {
	_, err := db.exec(ctx, "touch_last_login",
		`UPDATE users_and_admin.users SET last_login_time = $2 WHERE email = $1`, email, t.UTC())
	return err
}

// UpdateUserRole changes a user's role from oldRole to newRole. It returns
// ErrNotFound when no user with email currently holds oldRole.
func (db *DB) UpdateUserRole(ctx context.Context, email, oldRole, newRole string) error {
	n, err := db.exec(ctx, "update_user_role",
		`UPDATE users_and_admin.users SET role = $3 WHERE email = $1 AND role = $2`, email, oldRole, newRole)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user. It returns ErrNotFound when none matched.
func (db *DB) DeleteUser(ctx context.Context, email string) error {
	n, err := db.exec(ctx, "delete_user", `DELETE FROM users_and_admin.users WHERE email = $1`, email)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PreApprovedEmails lists every pre-approved email ordered by email.
func (db *DB) PreApprovedEmails(ctx context.Context) ([]models.PreApprovedEmail, error) {
	var out []models.PreApprovedEmail
	err := db.query(ctx, "list_preapproved", `
SELECT email, role, date_approved FROM users_and_admin.pre_approved_emails ORDER BY email`,
		func(rows *sql.Rows) error {
			var p models.PreApprovedEmail
			if err := rows.Scan(&p.Email, &p.Role, &p.DateApproved); err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
	return out, err
}

// SavePreApprovedEmail adds a pre-approved email or updates its role and
// approval date.
func (db *DB) SavePreApprovedEmail(ctx context.Context, p models.PreApprovedEmail) error {
	_, err := db.exec(ctx, "save_preapproved", `
INSERT INTO users_and_admin.pre_approved_emails (email, role, date_approved)
VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role, date_approved = EXCLUDED.date_approved`,
		p.Email, p.Role, p.DateApproved.UTC())
	return err
}

// DeletePreApprovedEmail removes a pre-approved email. It returns ErrNotFound
// when none matched.
func (db *DB) DeletePreApprovedEmail(ctx context.Context, email string) error {
	n, err := db.exec(ctx, "delete_preapproved",
		`DELETE FROM users_and_admin.pre_approved_emails WHERE email = $1`, email)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
