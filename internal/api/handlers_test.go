// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/audience-insights/internal/auth"
	"github.com/tomtom215/audience-insights/internal/authz"
	"github.com/tomtom215/audience-insights/internal/cloud"
	"github.com/tomtom215/audience-insights/internal/config"
	"github.com/tomtom215/audience-insights/internal/database"
	"github.com/tomtom215/audience-insights/internal/engagement"
	"github.com/tomtom215/audience-insights/internal/models"
	"github.com/tomtom215/audience-insights/internal/nielsen"
)

// fakeEngagement records the last call and returns a fixed report.
type fakeEngagement struct {
	report engagement.Report
	err    error
	last   string
	start  time.Time
	end    time.Time
	hev    engagement.HEVPeriods
}

func (f *fakeEngagement) record(name string, start, end time.Time) (engagement.Report, error) {
	f.last, f.start, f.end = name, start, end
	return f.report, f.err
}

func (f *fakeEngagement) DataRange(context.Context) (engagement.Report, error) {
	return f.record("data_range", time.Time{}, time.Time{})
}

func (f *fakeEngagement) YTD(_ context.Context, start, end time.Time) (engagement.Report, error) {
	return f.record("ytd", start, end)
}

func (f *fakeEngagement) MoM(_ context.Context, start, _, end time.Time) (engagement.Report, error) {
	return f.record("mom", start, end)
}

func (f *fakeEngagement) OverTime(_ context.Context, start, end time.Time) (engagement.Report, error) {
	return f.record("over_time", start, end)
}

func (f *fakeEngagement) Rank(_ context.Context, start, end time.Time) (engagement.Report, error) {
	return f.record("rank", start, end)
}

func (f *fakeEngagement) HEV(_ context.Context, p engagement.HEVPeriods) (engagement.Report, error) {
	f.hev = p
	return f.record("hev", p.CurrentStart, p.CurrentEnd)
}

func (f *fakeEngagement) Quarterly(_ context.Context, start, end time.Time) (engagement.Report, error) {
	return f.record("quarterly", start, end)
}

func (f *fakeEngagement) PeriodicityHistory(_ context.Context, start, end time.Time) (engagement.Report, error) {
	return f.record("periodicity_history", start, end)
}

type fakeAuth struct {
	status auth.EmailStatus
	token  string
	err    error
}

func (f *fakeAuth) CheckEmail(context.Context, string) (auth.EmailStatus, error) {
	return f.status, f.err
}

func (f *fakeAuth) SendVerificationCode(context.Context, models.SignupRequest) error { return f.err }
func (f *fakeAuth) RefreshVerificationCode(context.Context, string) error             { return f.err }
func (f *fakeAuth) VerifySignup(context.Context, string, string) error                { return f.err }
func (f *fakeAuth) RequestPasswordReset(context.Context, string) error                { return f.err }
func (f *fakeAuth) ResetPassword(context.Context, string, string) error               { return f.err }

func (f *fakeAuth) Login(context.Context, string, string) (string, error) {
	return f.token, f.err
}

type fakeStorage struct {
	coverage   []byte
	benchmarks map[string]models.BenchmarkFile
	replaced   []cloud.BenchmarkUpload
	err        error
}

func (f *fakeStorage) Coverage(context.Context) ([]byte, error) { return f.coverage, f.err }

func (f *fakeStorage) LatestBenchmark(_ context.Context, kind string) (models.BenchmarkFile, error) {
	b, ok := f.benchmarks[kind]
	if !ok {
		return models.BenchmarkFile{}, cloud.ErrNoBenchmark
	}
	return b, nil
}

func (f *fakeStorage) DownloadBenchmark(ctx context.Context, kind string) (models.BenchmarkFile, []byte, error) {
	b, err := f.LatestBenchmark(ctx, kind)
	if err != nil {
		return b, nil, err
	}
	return b, []byte("xlsx-bytes"), nil
}

func (f *fakeStorage) ReplaceBenchmarks(_ context.Context, uploads []cloud.BenchmarkUpload) ([]string, error) {
	f.replaced = uploads
	names := make([]string, len(uploads))
	for i, u := range uploads {
		names[i] = u.Name
	}
	return names, f.err
}

type fakeNielsenStore struct {
	lines      []models.SubjectLine
	recipients map[int][]string
	notes      map[int]string
	dmas       map[int][]string
	mappings   []models.DMAMapping
	replaced   map[int][]string
}

func (f *fakeNielsenStore) SubjectLines(context.Context) ([]models.SubjectLine, error) {
	return f.lines, nil
}

func (f *fakeNielsenStore) UpdateSubjectLines(_ context.Context, lines []models.SubjectLine) error {
	f.lines = lines
	return nil
}

func (f *fakeNielsenStore) Recipients(_ context.Context, id int) ([]string, error) {
	return f.recipients[id], nil
}

func (f *fakeNielsenStore) ReplaceRecipients(_ context.Context, id int, emails []string) error {
	if f.replaced == nil {
		f.replaced = map[int][]string{}
	}
	f.replaced[id] = emails
	return nil
}

func (f *fakeNielsenStore) ReportNote(_ context.Context, id int) (string, error) {
	return f.notes[id], nil
}

func (f *fakeNielsenStore) SetReportNote(_ context.Context, id int, note string) error {
	if f.notes == nil {
		f.notes = map[int]string{}
	}
	f.notes[id] = note
	return nil
}

func (f *fakeNielsenStore) DMAList(_ context.Context, id int) ([]string, error) {
	return f.dmas[id], nil
}

func (f *fakeNielsenStore) DMANameMappings(context.Context) ([]models.DMAMapping, error) {
	return f.mappings, nil
}

func (f *fakeNielsenStore) ReplaceDMANameMappings(_ context.Context, m []models.DMAMapping) error {
	f.mappings = m
	return nil
}

func (f *fakeNielsenStore) NielsenMappings(context.Context) (models.NielsenMappings, error) {
	return models.NielsenMappings{}, nil
}

type fakeUsers struct {
	users   []models.User
	saved   []models.PreApprovedEmail
	err     error
	deleted string
}

func (f *fakeUsers) Users(context.Context) ([]models.User, error) { return f.users, f.err }

func (f *fakeUsers) UpdateUserRole(context.Context, string, string, string) error { return f.err }

func (f *fakeUsers) DeleteUser(_ context.Context, email string) error {
	f.deleted = email
	return f.err
}

func (f *fakeUsers) PreApprovedEmails(context.Context) ([]models.PreApprovedEmail, error) {
	return f.saved, f.err
}

func (f *fakeUsers) SavePreApprovedEmail(_ context.Context, p models.PreApprovedEmail) error {
	f.saved = append(f.saved, p)
	return f.err
}

func (f *fakeUsers) DeletePreApprovedEmail(context.Context, string) error { return f.err }

type fakeReports struct {
	report  *nielsen.Report
	err     error
	uploads []nielsen.Upload
	owner   string
	user    string
	lookups []string
}

func (f *fakeReports) Generate(_ context.Context, owner, user string, uploads []nielsen.Upload) (*nielsen.Report, error) {
	f.owner, f.user, f.uploads = owner, user, uploads
	return f.report, f.err
}

func (f *fakeReports) ResolveReport(owner, _ string) (string, error) {
	f.lookups = append(f.lookups, owner)
	return "", nielsen.ErrReportNotFound
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

// testEnv is a router over fakes with tokens for both roles.
type testEnv struct {
	handler    http.Handler
	engagement *fakeEngagement
	auth       *fakeAuth
	storage    *fakeStorage
	nielsen    *fakeNielsenStore
	users      *fakeUsers
	reports    *fakeReports
	userToken  string
	adminToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{AuthRateLimit: 1000, MaxUploadMB: 1},
		Security: config.SecurityConfig{
			JWTSecret:         "this_is_a_very_long_secret_key_for_testing_purposes_12345",
			SessionTimeout:    time.Hour,
			ResetTokenTimeout: 3 * time.Hour,
		},
	}
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatal(err)
	}
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		engagement: &fakeEngagement{report: engagement.Report{
			Data:     map[string]any{"ytd_data": []any{}},
			Metadata: map[string]any{"ytd_columns": []string{"Market"}},
		}},
		auth:    &fakeAuth{},
		storage: &fakeStorage{benchmarks: map[string]models.BenchmarkFile{}},
		nielsen: &fakeNielsenStore{},
		users:   &fakeUsers{},
		reports: &fakeReports{},
	}
	h := NewHandler(Deps{
		Config:     cfg,
		Engagement: env.engagement,
		Auth:       env.auth,
		Storage:    env.storage,
		Nielsen:    env.nielsen,
		Users:      env.users,
		Reports:    env.reports,
		DB:         fakePinger{},
	})
	env.handler = NewRouter(&cfg.Server, h, auth.NewMiddleware(jwtManager), authz.NewMiddleware(enforcer)).Setup()

	if env.userToken, err = jwtManager.GenerateToken("user@example.com", authz.RoleUser); err != nil {
		t.Fatal(err)
	}
	if env.adminToken, err = jwtManager.GenerateToken("admin@example.com", authz.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, path, token, strings.NewReader(body), "application/json")
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for field, names := range files {
		for _, name := range names {
			fw, err := mw.CreateFormFile(field, name)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := fw.Write([]byte("content of " + name)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestAuthEndpoints(t *testing.T) {
	t.Run("check email", func(t *testing.T) {
		env := newTestEnv(t)
		env.auth.status = auth.EmailStatus{IsPreapproved: true}
		rec := env.postJSON(t, "/api/auth/check_email", "", `{"email":"new@example.com"}`)
		resp := decodeResponse(t, rec)
		if rec.Code != http.StatusOK || !resp.Success {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if resp.Message != "Email is preapproved and available for signup." {
			t.Errorf("message = %q", resp.Message)
		}
		if !strings.Contains(rec.Body.String(), `"is_preapproved":true`) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("login returns token", func(t *testing.T) {
		env := newTestEnv(t)
		env.auth.token = "signed.jwt.token"
		rec := env.postJSON(t, "/api/auth/login", "", `{"email":"a@example.com","password":"secret-pw"}`)
		resp := decodeResponse(t, rec)
		if !resp.Success || resp.Message != auth.MsgLoginSuccessful || resp.Data != "signed.jwt.token" {
			t.Errorf("response = %+v", resp)
		}
	})

	rejections := []struct {
		name string
		path string
		body string
		err  error
	}{
		{"wrong password", "/api/auth/login", `{"email":"a@example.com","password":"nope"}`, auth.ErrIncorrectPassword},
		{"locked", "/api/auth/login", `{"email":"a@example.com","password":"nope"}`, auth.ErrAccountLocked},
		{"bad code", "/api/auth/verify_signup", `{"email":"a@example.com","verification_code":"123456"}`, auth.ErrCodeIncorrect},
		{"expired token", "/api/auth/reset_password", `{"token":"t","newpassword":"long-enough"}`, fmt.Errorf("wrapped: %w", auth.ErrTokenExpired)},
	}
	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.auth.err = tt.err
			rec := env.postJSON(t, tt.path, "", tt.body)
			resp := decodeResponse(t, rec)
			want, _ := auth.Rejection(tt.err)
			if rec.Code != http.StatusOK || resp.Success || resp.Message != want {
				t.Errorf("status = %d, response = %+v, want message %q", rec.Code, resp, want)
			}
		})
	}

	t.Run("mailer failure is an upstream error", func(t *testing.T) {
		env := newTestEnv(t)
		env.auth.err = fmt.Errorf("send: %w", cloud.ErrUnavailable)
		rec := env.postJSON(t, "/api/auth/refresh_verification_code", "", `{"email":"a@example.com"}`)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.postJSON(t, "/api/auth/send_verification_code", "", `{"email":"bad","password":"x","team":"News"}`)
		resp := decodeResponse(t, rec)
		if rec.Code != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != ErrCodeValidation {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"field":"email"`) {
			t.Errorf("body = %s, want email field details", rec.Body.String())
		}
	})
}

func TestEngagementEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/api/engagement/ytd", env.userToken, `{"start_month":"January 2024","end_month":"March 2024"}`)
	resp := decodeResponse(t, rec)
	if rec.Code != http.StatusOK || resp.Message != msgDataRetrieved {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if env.engagement.last != "ytd" || env.engagement.start.Month() != time.January || env.engagement.end.Month() != time.March {
		t.Errorf("call = %s %v %v", env.engagement.last, env.engagement.start, env.engagement.end)
	}
	if _, ok := resp.Metadata["ytd_columns"]; !ok {
		t.Errorf("metadata = %v", resp.Metadata)
	}

	rec = env.postJSON(t, "/api/engagement/hev", env.userToken,
		`{"curr_period_start":"January 2024","curr_period_end":"March 2024","prev_period_start":"January 2023","prev_period_end":"December 2023"}`)
	resp = decodeResponse(t, rec)
	if resp.Message != msgHEVRetrieved {
		t.Errorf("hev message = %q", resp.Message)
	}
	if env.engagement.hev.PreviousEnd.Year() != 2023 || env.engagement.hev.PreviousEnd.Month() != time.December {
		t.Errorf("hev periods = %+v", env.engagement.hev)
	}

	rec = env.postJSON(t, "/api/engagement/rank", env.userToken, `{"start_month":"2024-01","end_month":"March 2024"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid month status = %d, want 400", rec.Code)
	}

	env.engagement.err = fmt.Errorf("%w: end before start", engagement.ErrInvalidRange)
	rec = env.postJSON(t, "/api/engagement/over_time", env.userToken, `{"start_month":"March 2024","end_month":"January 2024"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid range status = %d, want 400", rec.Code)
	}
}

func TestEngagement_NonFiniteIsSerializationError(t *testing.T) {
	env := newTestEnv(t)
	env.engagement.report = engagement.Report{Data: map[string]any{"ytd_data": math.NaN()}}
	rec := env.postJSON(t, "/api/engagement/ytd", env.userToken, `{"start_month":"January 2024","end_month":"March 2024"}`)
	resp := decodeResponse(t, rec)
	if rec.Code != http.StatusInternalServerError || resp.Error == nil || resp.Error.Code != ErrCodeSerialization {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCoverage(t *testing.T) {
	env := newTestEnv(t)
	env.storage.coverage = []byte(`{"type":"FeatureCollection","features":[]}`)
	rec := env.do(t, http.MethodGet, "/api/map/coverage_snzips", env.userToken, nil, "")
	resp := decodeResponse(t, rec)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Metadata["size"] != "42 bytes" {
		t.Errorf("size = %v", resp.Metadata["size"])
	}
	if !strings.Contains(rec.Body.String(), `"data":{"type":"FeatureCollection"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestNielsenBenchmarks(t *testing.T) {
	env := newTestEnv(t)
	env.storage.benchmarks[cloud.BenchmarkDayparts] = models.BenchmarkFile{Name: "Benchmark-Dayparts-01_01_2025-01_31_2025.xlsx"}

	rec := env.do(t, http.MethodGet, "/api/nielsen/get_benchmark_dayparts_name", env.userToken, nil, "")
	if !strings.Contains(rec.Body.String(), `"filename":"Benchmark-Dayparts-01_01_2025-01_31_2025.xlsx"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/nielsen/get_benchmark_15min_name", env.userToken, nil, "")
	resp := decodeResponse(t, rec)
	if rec.Code != http.StatusNotFound || resp.Message != "No 15min benchmark file found" {
		t.Errorf("status = %d, message = %q", rec.Code, resp.Message)
	}

	rec = env.do(t, http.MethodGet, "/api/nielsen/download_benchmark_dayparts", env.userToken, nil, "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != contentTypeXLSX {
		t.Errorf("status = %d, type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "Benchmark-Dayparts") {
		t.Errorf("Content-Disposition = %q", got)
	}

	body, ct := multipartBody(t, nil, map[string][]string{"files": {"Benchmark-15min-a.xlsx", "Benchmark-Dayparts-a.xlsx"}})
	rec = env.do(t, http.MethodPost, "/api/nielsen/update_benchmark_files", env.userToken, body, ct)
	resp = decodeResponse(t, rec)
	if resp.Message != "Benchmark files updated: Benchmark-15min-a.xlsx, Benchmark-Dayparts-a.xlsx" {
		t.Errorf("message = %q", resp.Message)
	}
	if len(env.storage.replaced) != 2 {
		t.Errorf("replaced %d files", len(env.storage.replaced))
	}
}

func TestVerifyUploadFile_Rejected(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartBody(t, nil, map[string][]string{"file": {"ratings.csv"}})
	rec := env.do(t, http.MethodPost, "/api/nielsen/verify_upload_file", env.userToken, body, ct)
	resp := decodeResponse(t, rec)
	if rec.Code != http.StatusOK || resp.Success {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if resp.Message != "Invalid file type. Please upload an excel file." {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestUploadTooLarge(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "big.xlsx")
	_, _ = fw.Write(bytes.Repeat([]byte("x"), 2<<20))
	_ = mw.Close()
	rec := env.do(t, http.MethodPost, "/api/nielsen/verify_benchmark_file", env.userToken, &buf, mw.FormDataContentType())
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestGenerateNielsenReport(t *testing.T) {
	env := newTestEnv(t)
	env.reports.report = &nielsen.Report{BatchID: "b1", Date: "03/04/2025", Files: []string{"/work/x/a.eml", "/work/x/b.eml"}}
	body, ct := multipartBody(t,
		map[string]string{"toEmail": "ana@example.com", "uploadToDb": "false", "autoDownload": "false"},
		map[string][]string{"file0": {"Dayparts.xlsx"}, "file1": {"15min.xlsx"}})
	rec := env.do(t, http.MethodPost, "/api/nielsen/generate_nielsen_report", env.userToken, body, ct)
	resp := decodeResponse(t, rec)
	if rec.Code != http.StatusOK || resp.Message != "EML files created" {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if env.reports.user != "ana@example.com" || len(env.reports.uploads) != 2 {
		t.Errorf("generate called with %q and %d uploads", env.reports.user, len(env.reports.uploads))
	}
	if env.reports.owner != "user@example.com" {
		t.Errorf("report owner = %q, want the caller", env.reports.owner)
	}

	env.reports.err = nielsen.ErrMissingDailyFile
	body, ct = multipartBody(t,
		map[string]string{"toEmail": "ana@example.com", "autoDownload": "false"},
		map[string][]string{"file0": {"a.xlsx"}, "file1": {"b.xlsx"}})
	rec = env.do(t, http.MethodPost, "/api/nielsen/generate_nielsen_report", env.userToken, body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing daily file status = %d, want 400", rec.Code)
	}
}

func TestDownloadDailyEMLReport_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.postJSON(t, "/api/nielsen/download_daily_eml_report", env.userToken, `{"file_path":"/etc/passwd"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if len(env.reports.lookups) != 1 || env.reports.lookups[0] != "user@example.com" {
		t.Errorf("lookups = %v, want the caller's directory", env.reports.lookups)
	}
}

func TestReportConfiguration(t *testing.T) {
	env := newTestEnv(t)
	env.nielsen.lines = []models.SubjectLine{{ID: 1, Subject: "East"}, {ID: 2, Subject: "West"}}
	env.nielsen.recipients = map[int][]string{1: {"a@example.com"}}
	env.nielsen.dmas = map[int][]string{2: {"Los Angeles"}}

	rec := env.do(t, http.MethodGet, "/api/nielsen/get_email_recipients", env.userToken, nil, "")
	if !strings.Contains(rec.Body.String(), `"1":["a@example.com"]`) || !strings.Contains(rec.Body.String(), `"2":[]`) {
		t.Errorf("recipients body = %s", rec.Body.String())
	}

	rec = env.postJSON(t, "/api/nielsen/update_email_recipients", env.userToken, `{"1":["b@example.com"],"2":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if _, ok := env.nielsen.replaced[2]; ok {
		t.Error("empty recipient list should be skipped")
	}
	if got := env.nielsen.replaced[1]; len(got) != 1 || got[0] != "b@example.com" {
		t.Errorf("replaced[1] = %v", got)
	}

	rec = env.postJSON(t, "/api/nielsen/update_email_recipients", env.userToken, `{"1":["not-an-email"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid recipient status = %d, want 400", rec.Code)
	}

	rec = env.postJSON(t, "/api/nielsen/update_report_notes", env.userToken, `{"2":"Preliminary numbers"}`)
	if rec.Code != http.StatusOK || env.nielsen.notes[2] != "Preliminary numbers" {
		t.Errorf("status = %d, notes = %v", rec.Code, env.nielsen.notes)
	}

	rec = env.postJSON(t, "/api/nielsen/update_report_notes", env.userToken, `{"abc":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/nielsen/get_dma_list", env.userToken, nil, "")
	if !strings.Contains(rec.Body.String(), `"2":["Los Angeles"]`) {
		t.Errorf("dma list body = %s", rec.Body.String())
	}
}

func TestGetDMAPenetration_OneRowPerDMA(t *testing.T) {
	env := newTestEnv(t)
	env.nielsen.mappings = []models.DMAMapping{
		{NielsenDMAName: "New York", SNDMAName: "NYC", PenetrationPercent: 30},
		{NielsenDMAName: "New York City", SNDMAName: "NYC", PenetrationPercent: 30},
		{NielsenDMAName: "Albany-Schenectady-Troy", SNDMAName: "Albany", PenetrationPercent: 55.5},
	}
	rec := env.do(t, http.MethodGet, "/api/nielsen/get_dma_penetration", env.userToken, nil, "")
	var resp struct {
		Data []models.DMAPenetration `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 2 || resp.Data[0].SNDMAName != "NYC" || resp.Data[1].PenetrationPercent != 55.5 {
		t.Errorf("data = %+v", resp.Data)
	}
}

func TestUserAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.users.users = []models.User{{Email: "a@example.com", Role: "user"}}

	rec := env.do(t, http.MethodGet, "/api/useradmin/get_current_users", env.adminToken, nil, "")
	resp := decodeResponse(t, rec)
	if rec.Code != http.StatusOK || resp.Message != "users_retrieved_successfully" {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("user listing must not expose password hashes")
	}

	rec = env.postJSON(t, "/api/useradmin/add_pre_approved_email", env.adminToken, `{"email":"New@Example.com","role":"admin"}`)
	if rec.Code != http.StatusOK || len(env.users.saved) != 1 || env.users.saved[0].Email != "new@example.com" {
		t.Errorf("status = %d, saved = %+v", rec.Code, env.users.saved)
	}

	rec = env.postJSON(t, "/api/useradmin/add_pre_approved_email", env.adminToken, `{"email":"x@example.com","role":"owner"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid role status = %d, want 400", rec.Code)
	}

	env.users.err = database.ErrNotFound
	rec = env.postJSON(t, "/api/useradmin/update_user_role", env.adminToken, `{"email":"a@example.com","old_role":"admin","new_role":"user"}`)
	resp = decodeResponse(t, rec)
	if rec.Code != http.StatusBadRequest || resp.Message != "Failed to update user role" {
		t.Errorf("status = %d, message = %q", rec.Code, resp.Message)
	}

	env.users.err = errors.New("connection reset")
	rec = env.postJSON(t, "/api/useradmin/delete_user", env.adminToken, `{"email":"a@example.com"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
