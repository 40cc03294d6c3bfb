// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/audience-insights/internal/config"
	"github.com/tomtom215/audience-insights/internal/models"
)

// newTestDB opens an in-memory DuckDB with the schema applied.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:       DriverDuckDB,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		QueryTimeout: 10 * time.Second,
	}
	db, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustExec(t *testing.T, db *DB, q string, args ...any) {
	t.Helper()
	if _, err := db.conn.ExecContext(context.Background(), q, args...); err != nil {
		t.Fatalf("fixture %q: %v", strings.TrimSpace(q), err)
	}
}

func seedEngagement(t *testing.T, db *DB) {
	t.Helper()

	mustExec(t, db, `INSERT INTO main.market_region_mapping VALUES
		('AUSTIN', 'Texas', 'TX', 'Austin', DATE '2023-01-01'),
		('TAMPA', 'Florida', 'FL', 'Tampa', DATE '2024-02-01'),
		('NOWHERE', NULL, 'XX', 'Nowhere', NULL)`)
	mustExec(t, db, `INSERT INTO main.network_stn_grp VALUES
		('SPECNEWS', 'SN'), ('CNN', 'Cable News'), ('ABC', 'Big 4'), ('ESPN', 'Sports')`)
	mustExec(t, db, `INSERT INTO main.engagement_raw VALUES
		(2024, 1, 'Bulk', 'SPECNEWS', 'AUSTIN', 10, 100),
		(2024, 1, 'FALSE', 'SPECNEWS', 'AUSTIN', 5, 50),
		(2024, 1, 'Bulk', 'SPECNEWS', 'TAMPA', 7, 70),
		(2024, 2, 'Bulk', 'SPECNEWS', 'TAMPA', 8, 80),
		(2024, 2, 'Bulk', 'CNN', 'AUSTIN', NULL, NULL),
		(2024, 2, 'Bulk', 'ESPN', 'AUSTIN', 3, 30),
		(2024, 2, 'Bulk', 'ABC', 'NOWHERE', 4, 40),
		(2024, 3, 'Non-Bulk', 'ABC', 'AUSTIN', 2, 20)`)
}

func TestMonthKey(t *testing.T) {
	tests := []struct {
		in   time.Time
		want int
	}{
		{time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), 202401},
		{time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), 202312},
	}
	for _, tt := range tests {
		got := MonthKey(tt.in)
		if got != tt.want {
			t.Errorf("MonthKey(%v) = %d, want %d", tt.in, got, tt.want)
		}
		back := MonthFromKey(got)
		if back.Year() != tt.in.Year() || back.Month() != tt.in.Month() || back.Day() != 1 {
			t.Errorf("MonthFromKey(%d) = %v", got, back)
		}
	}
}

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements()
	if len(stmts) < 10 {
		t.Fatalf("schemaStatements() returned %d statements", len(stmts))
	}
	for i, s := range stmts {
		if strings.Contains(s, "--") {
			t.Errorf("statement %d still contains a comment: %q", i, s)
		}
		if strings.TrimSpace(s) == "" {
			t.Errorf("statement %d is blank", i)
		}
	}
	if !strings.HasPrefix(strings.TrimSpace(stmts[0]), "CREATE SCHEMA") {
		t.Errorf("first statement = %q, want a CREATE SCHEMA", stmts[0])
	}
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(context.Background(), &config.DatabaseConfig{Driver: "mysql"}, Options{})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("New() error = %v, want unsupported driver", err)
	}
}

func TestNew_IAMRequiresCredentials(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: DriverPostgres, IAMAuth: true}
	if _, err := New(context.Background(), cfg, Options{}); err == nil {
		t.Error("New() with IAM auth and no credentials should fail")
	}
}

func TestDataRange(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.DataRange(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DataRange() on empty table error = %v, want ErrNotFound", err)
	}

	seedEngagement(t, db)
	got, err := db.DataRange(ctx)
	if err != nil {
		t.Fatalf("DataRange() error = %v", err)
	}
	if MonthKey(got.Oldest) != 202401 || MonthKey(got.Newest) != 202403 {
		t.Errorf("DataRange() = %v..%v, want 2024-01..2024-03", got.Oldest, got.Newest)
	}
}

func TestEngagement(t *testing.T) {
	db := newTestDB(t)
	seedEngagement(t, db)
	ctx := context.Background()

	t.Run("excludes false tier by default", func(t *testing.T) {
		recs, err := db.Engagement(ctx, EngagementQuery{From: 202401, To: 202401})
		if err != nil {
			t.Fatal(err)
		}
		// TAMPA launched in February, so only the AUSTIN Bulk row remains.
		if len(recs) != 1 {
			t.Fatalf("got %d records, want 1: %+v", len(recs), recs)
		}
		r := recs[0]
		if r.Market != "AUSTIN" || r.Tier != models.TierBulk || r.AdjustedEngagement != 10 || r.Subscribers != 100 {
			t.Errorf("record = %+v", r)
		}
		if r.State != "TX" || r.Region != "Texas" || r.DisplayMarket != "Austin" || r.NetworkGroup != models.GroupSpectrumNews {
			t.Errorf("joined columns = %+v", r)
		}
		if r.LaunchDate.Year() != 2023 {
			t.Errorf("LaunchDate = %v", r.LaunchDate)
		}
	})

	t.Run("includes false tier on request", func(t *testing.T) {
		recs, err := db.Engagement(ctx, EngagementQuery{From: 202401, To: 202401, IncludeFalseTier: true})
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 2 {
			t.Fatalf("got %d records, want 2", len(recs))
		}
	})

	t.Run("filters groups and unlaunched markets", func(t *testing.T) {
		recs, err := db.Engagement(ctx, EngagementQuery{From: 202402, To: 202402})
		if err != nil {
			t.Fatal(err)
		}
		for _, r := range recs {
			if r.Network == "ESPN" {
				t.Error("network outside the tracked groups was returned")
			}
			if r.Market == "NOWHERE" {
				t.Error("market without a launch date was returned")
			}
		}
		if len(recs) != 2 {
			t.Fatalf("got %d records, want 2: %+v", len(recs), recs)
		}
	})

	t.Run("null measures read as zero", func(t *testing.T) {
		recs, err := db.Engagement(ctx, EngagementQuery{From: 202402, To: 202402})
		if err != nil {
			t.Fatal(err)
		}
		for _, r := range recs {
			if r.Network == "CNN" && (r.AdjustedEngagement != 0 || r.Subscribers != 0) {
				t.Errorf("CNN record = %+v, want zero measures", r)
			}
		}
	})

	t.Run("rejects reversed range", func(t *testing.T) {
		if _, err := db.Engagement(ctx, EngagementQuery{From: 202403, To: 202401}); err == nil {
			t.Error("expected error for reversed range")
		}
	})
}

func TestPeriodicity(t *testing.T) {
	db := newTestDB(t)
	seedEngagement(t, db)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO main.periodicity VALUES
		(202401, 'SPECNEWS', 'AUSTIN', 40),
		(202401, 'FOX NEWS', 'AUSTIN', 20),
		(202402, 'SPECNEWS', 'AUSTIN', NULL),
		(202402, 'CNN', 'TAMPA', 30)`)

	t.Run("network filter", func(t *testing.T) {
		recs, err := db.Periodicity(ctx, 202401, 202402, []string{models.NetworkFoxNews, "CNN"})
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 2 {
			t.Fatalf("got %d records, want 2", len(recs))
		}
		for _, r := range recs {
			if r.Network == models.NetworkSpecNews {
				t.Error("filtered network returned")
			}
		}
	})

	t.Run("all networks", func(t *testing.T) {
		recs, err := db.Periodicity(ctx, 202401, 202401, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 2 {
			t.Fatalf("got %d records, want 2", len(recs))
		}
	})

	t.Run("history skips nulls", func(t *testing.T) {
		recs, err := db.PeriodicityHistory(ctx, 202401, 202402)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 3 {
			t.Fatalf("got %d records, want 3: %+v", len(recs), recs)
		}
		for _, r := range recs {
			if r.State == "" || r.DisplayMarket == "" {
				t.Errorf("history record missing market columns: %+v", r)
			}
		}
	})
}

func TestUserLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	const email = "analyst@example.com"

	if _, err := db.PreApprovedRole(ctx, email); !errors.Is(err, ErrNotFound) {
		t.Fatalf("PreApprovedRole() error = %v, want ErrNotFound", err)
	}
	if err := db.SavePreApprovedEmail(ctx, models.PreApprovedEmail{Email: email, Role: "user", DateApproved: now}); err != nil {
		t.Fatal(err)
	}
	role, err := db.PreApprovedRole(ctx, email)
	if err != nil || role != "user" {
		t.Fatalf("PreApprovedRole() = %q, %v", role, err)
	}

	if err := db.RefreshVerificationCode(ctx, email, "123456", now); !errors.Is(err, ErrNotFound) {
		t.Errorf("RefreshVerificationCode() without signup error = %v, want ErrNotFound", err)
	}

	pending := models.PendingSignup{
		Email: email, PasswordHash: "hash1", Team: "Research",
		VerificationCode: "111111", ExpiresAt: now.Add(24 * time.Hour),
	}
	if err := db.SavePendingSignup(ctx, pending); err != nil {
		t.Fatal(err)
	}
	pending.PasswordHash = "hash2"
	if err := db.SavePendingSignup(ctx, pending); err != nil {
		t.Fatalf("second SavePendingSignup() error = %v", err)
	}
	if err := db.RefreshVerificationCode(ctx, email, "222222", now.Add(48*time.Hour)); err != nil {
		t.Fatal(err)
	}
	got, err := db.PendingSignup(ctx, email)
	if err != nil {
		t.Fatal(err)
	}
	if got.PasswordHash != "hash2" || got.VerificationCode != "222222" || got.Team != "Research" {
		t.Errorf("PendingSignup() = %+v", got)
	}

	if exists, _ := db.UserExists(ctx, email); exists {
		t.Fatal("user exists before signup completes")
	}
	user := models.User{Email: email, PasswordHash: got.PasswordHash, Team: got.Team, Role: role, CreatedAt: now}
	if err := db.CompleteSignup(ctx, user); err != nil {
		t.Fatal(err)
	}
	if _, err := db.PendingSignup(ctx, email); !errors.Is(err, ErrNotFound) {
		t.Errorf("pending signup survived completion: %v", err)
	}
	if exists, err := db.UserExists(ctx, email); err != nil || !exists {
		t.Fatalf("UserExists() = %v, %v", exists, err)
	}

	if err := db.TouchLastLogin(ctx, email, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdatePassword(ctx, email, "hash3"); err != nil {
		t.Fatal(err)
	}
	u, err := db.User(ctx, email)
	if err != nil {
		t.Fatal(err)
	}
	if u.PasswordHash != "hash3" || u.LastLoginTime == nil || !u.LastLoginTime.Equal(now.Add(time.Hour)) {
		t.Errorf("User() = %+v", u)
	}

	if err := db.UpdateUserRole(ctx, email, "admin", "user"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateUserRole() with wrong old role error = %v, want ErrNotFound", err)
	}
	if err := db.UpdateUserRole(ctx, email, "user", "admin"); err != nil {
		t.Fatal(err)
	}
	users, err := db.Users(ctx)
	if err != nil || len(users) != 1 || users[0].Role != "admin" {
		t.Fatalf("Users() = %+v, %v", users, err)
	}

	if err := db.DeleteUser(ctx, email); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteUser(ctx, email); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteUser() error = %v, want ErrNotFound", err)
	}
	if err := db.UpdatePassword(ctx, email, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePassword() on deleted user error = %v, want ErrNotFound", err)
	}
}

func TestPreApprovedEmails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, p := range []models.PreApprovedEmail{
		{Email: "b@example.com", Role: "user", DateApproved: day},
		{Email: "a@example.com", Role: "user", DateApproved: day},
		{Email: "b@example.com", Role: "admin", DateApproved: day},
	} {
		if err := db.SavePreApprovedEmail(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	list, err := db.PreApprovedEmails(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Email != "a@example.com" || list[1].Role != "admin" {
		t.Errorf("PreApprovedEmails() = %+v", list)
	}

	if err := db.DeletePreApprovedEmail(ctx, "a@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := db.DeletePreApprovedEmail(ctx, "a@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeletePreApprovedEmail() error = %v, want ErrNotFound", err)
	}
}

func TestNielsenReportConfig(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.UpdateSubjectLines(ctx, []models.SubjectLine{
		{ID: 2, Subject: "Dayparts"}, {ID: 1, Subject: "Overnights"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateSubjectLines(ctx, []models.SubjectLine{{ID: 1, Subject: "Overnight Ratings"}}); err != nil {
		t.Fatal(err)
	}
	lines, err := db.SubjectLines(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0].ID != 1 || lines[0].Subject != "Overnight Ratings" {
		t.Errorf("SubjectLines() = %+v", lines)
	}

	if err := db.ReplaceRecipients(ctx, 1, []string{"x@example.com", "y@example.com", "x@example.com"}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceRecipients(ctx, 1, []string{"z@example.com", "y@example.com"}); err != nil {
		t.Fatal(err)
	}
	recips, err := db.Recipients(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(recips, ",") != "y@example.com,z@example.com" {
		t.Errorf("Recipients() = %v", recips)
	}

	note, err := db.ReportNote(ctx, 1)
	if err != nil || note != "" {
		t.Fatalf("ReportNote() unset = %q, %v", note, err)
	}
	for _, n := range []string{"first", "Preliminary data"} {
		if err := db.SetReportNote(ctx, 1, n); err != nil {
			t.Fatal(err)
		}
	}
	if note, _ = db.ReportNote(ctx, 1); note != "Preliminary data" {
		t.Errorf("ReportNote() = %q", note)
	}

	mustExec(t, db, `INSERT INTO nielsen_report_config.dma_lists VALUES (1, 2, 'Tampa'), (1, 1, 'Austin')`)
	dmas, err := db.DMAList(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(dmas, ",") != "Austin,Tampa" {
		t.Errorf("DMAList() = %v", dmas)
	}
}

func TestNielsenMappings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO nielsen_main.station_network_mapping VALUES ('WFTS', 'ABC'), ('SNBN', 'SPECNEWS')`)
	mustExec(t, db, `INSERT INTO nielsen_main.spectrum_station_names VALUES ('SNBN', 'Spectrum News Bay News 9')`)
	mustExec(t, db, `INSERT INTO nielsen_main.daypart_order_mapping VALUES ('M-F 6A-9A', 1), ('M-F 5P-7P', 2)`)
	mustExec(t, db, `INSERT INTO nielsen_main.fifteen_minute_order_mapping VALUES ('06:00A', 1), ('06:15A', 2)`)
	if err := db.ReplaceDMANameMappings(ctx, []models.DMAMapping{
		{NielsenDMAName: "Tampa-St. Pete (Sarasota)", SNDMAName: "Tampa", PenetrationPercent: 45.5},
	}); err != nil {
		t.Fatal(err)
	}

	m, err := db.NielsenMappings(ctx)
	if err != nil {
		t.Fatalf("NielsenMappings() error = %v", err)
	}
	if m.StationNetwork["WFTS"] != "ABC" || m.StationFullName["SNBN"] != "Spectrum News Bay News 9" {
		t.Errorf("station maps = %v %v", m.StationNetwork, m.StationFullName)
	}
	if m.DaypartOrder["M-F 5P-7P"] != 2 || m.FifteenMinuteOrder["06:15A"] != 2 {
		t.Errorf("order maps = %v %v", m.DaypartOrder, m.FifteenMinuteOrder)
	}
	if m.DMAName["Tampa-St. Pete (Sarasota)"] != "Tampa" || m.DMAPenetration["Tampa"] != 45.5 {
		t.Errorf("DMA maps = %v %v", m.DMAName, m.DMAPenetration)
	}

	if err := db.ReplaceDMANameMappings(ctx, []models.DMAMapping{
		{NielsenDMAName: "Austin", SNDMAName: "Austin", PenetrationPercent: 30},
	}); err != nil {
		t.Fatal(err)
	}
	mappings, err := db.DMANameMappings(ctx)
	if err != nil || len(mappings) != 1 || mappings[0].SNDMAName != "Austin" {
		t.Errorf("DMANameMappings() after replace = %+v, %v", mappings, err)
	}
}
