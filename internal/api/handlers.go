// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package api

import (
	"context"
	"time"

	"github.com/tomtom215/audience-insights/internal/auth"
	"github.com/tomtom215/audience-insights/internal/cloud"
	"github.com/tomtom215/audience-insights/internal/config"
	"github.com/tomtom215/audience-insights/internal/engagement"
	"github.com/tomtom215/audience-insights/internal/logging"
	"github.com/tomtom215/audience-insights/internal/models"
	"github.com/tomtom215/audience-insights/internal/nielsen"
)

// EngagementService builds the engagement reports.
type EngagementService interface {
	DataRange(ctx context.Context) (engagement.Report, error)
	YTD(ctx context.Context, start, end time.Time) (engagement.Report, error)
	MoM(ctx context.Context, start, previous, end time.Time) (engagement.Report, error)
	OverTime(ctx context.Context, start, end time.Time) (engagement.Report, error)
	Rank(ctx context.Context, start, end time.Time) (engagement.Report, error)
	HEV(ctx context.Context, p engagement.HEVPeriods) (engagement.Report, error)
	Quarterly(ctx context.Context, start, end time.Time) (engagement.Report, error)
	PeriodicityHistory(ctx context.Context, start, end time.Time) (engagement.Report, error)
}

// AuthService runs the signup, login and password reset flows.
type AuthService interface {
	CheckEmail(ctx context.Context, email string) (auth.EmailStatus, error)
	SendVerificationCode(ctx context.Context, req models.SignupRequest) error
	RefreshVerificationCode(ctx context.Context, email string) error
	VerifySignup(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Storage serves the coverage map and the benchmark workbooks.
type Storage interface {
	Coverage(ctx context.Context) ([]byte, error)
	LatestBenchmark(ctx context.Context, kind string) (models.BenchmarkFile, error)
	DownloadBenchmark(ctx context.Context, kind string) (models.BenchmarkFile, []byte, error)
	ReplaceBenchmarks(ctx context.Context, uploads []cloud.BenchmarkUpload) ([]string, error)
}

// NielsenStore holds the editable report configuration.
type NielsenStore interface {
	SubjectLines(ctx context.Context) ([]models.SubjectLine, error)
	UpdateSubjectLines(ctx context.Context, lines []models.SubjectLine) error
	Recipients(ctx context.Context, subjectLineID int) ([]string, error)
	ReplaceRecipients(ctx context.Context, subjectLineID int, emails []string) error
	ReportNote(ctx context.Context, subjectLineID int) (string, error)
	SetReportNote(ctx context.Context, subjectLineID int, note string) error
	DMAList(ctx context.Context, subjectLineID int) ([]string, error)
	DMANameMappings(ctx context.Context) ([]models.DMAMapping, error)
	ReplaceDMANameMappings(ctx context.Context, mappings []models.DMAMapping) error
	NielsenMappings(ctx context.Context) (models.NielsenMappings, error)
}

// UserStore holds accounts and the pre-approved email list.
type UserStore interface {
	Users(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, email, oldRole, newRole string) error
	DeleteUser(ctx context.Context, email string) error
	PreApprovedEmails(ctx context.Context) ([]models.PreApprovedEmail, error)
	SavePreApprovedEmail(ctx context.Context, p models.PreApprovedEmail) error
	DeletePreApprovedEmail(ctx context.Context, email string) error
}

// ReportGenerator builds the daily Nielsen report emails.
type ReportGenerator interface {
	Generate(ctx context.Context, owner, userEmail string, uploads []nielsen.Upload) (*nielsen.Report, error)
	ResolveReport(owner, path string) (string, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Handler. Every field is required.
type Deps struct {
	Config     *config.Config
	Engagement EngagementService
	Auth       AuthService
	Storage    Storage
	Nielsen    NielsenStore
	Users      UserStore
	Reports    ReportGenerator
	DB         Pinger
}

// Handler serves every API endpoint.
type Handler struct {
	cfg        *config.Config
	engagement EngagementService
	auth       AuthService
	storage    Storage
	nielsen    NielsenStore
	users      UserStore
	reports    ReportGenerator
	db         Pinger
	audit      *logging.AuditLogger
	startTime  time.Time
	now        func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		cfg:        deps.Config,
		engagement: deps.Engagement,
		auth:       deps.Auth,
		storage:    deps.Storage,
		nielsen:    deps.Nielsen,
		users:      deps.Users,
		reports:    deps.Reports,
		db:         deps.DB,
		audit:      logging.NewAuditLogger(),
		startTime:  time.Now(),
		now:        time.Now,
	}
}

// actor is the email of the authenticated caller, or "" on public routes.
func actor(ctx context.Context) string {
	if claims, ok := auth.ClaimsFromContext(ctx); ok {
		return claims.Email
	}
	return ""
}
