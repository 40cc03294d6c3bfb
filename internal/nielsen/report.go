// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package nielsen

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/audience-insights/internal/cloud"
	"github.com/tomtom215/audience-insights/internal/config"
	"github.com/tomtom215/audience-insights/internal/logging"
	"github.com/tomtom215/audience-insights/internal/metrics"
	"github.com/tomtom215/audience-insights/internal/models"
)

// Report generation errors.
var (
	ErrMissingDailyFile = errors.New("missing either dayparts or 15-minute file")
	ErrReportNotFound   = errors.New("report file not found")
)

// Store reads report configuration and lookup tables.
type Store interface {
	NielsenMappings(ctx context.Context) (models.NielsenMappings, error)
	SubjectLines(ctx context.Context) ([]models.SubjectLine, error)
	ReportNote(ctx context.Context, subjectLineID int) (string, error)
	Recipients(ctx context.Context, subjectLineID int) ([]string, error)
	DMAList(ctx context.Context, subjectLineID int) ([]string, error)
}

// BenchmarkSource serves the latest benchmark workbook of a kind.
type BenchmarkSource interface {
	DownloadBenchmark(ctx context.Context, kind string) (models.BenchmarkFile, []byte, error)
}

// Upload is an uploaded workbook.
type Upload struct {
	Name string
	Data []byte
}

// SplitDailyUploads tells the daypart upload from the quarter-hour one by
// file name.
func SplitDailyUploads(files []Upload) (dayparts, fifteen Upload, err error) {
	var haveDayparts, haveFifteen bool
	for _, f := range files {
		if strings.Contains(f.Name, models.ReportTypeDayparts) {
			dayparts, haveDayparts = f, true
		} else {
			fifteen, haveFifteen = f, true
		}
	}
	if !haveDayparts || !haveFifteen {
		return Upload{}, Upload{}, ErrMissingDailyFile
	}
	return dayparts, fifteen, nil
}

// Report is the outcome of a generation run.
type Report struct {
	BatchID string
	Date    string
	Files   []string
}

// Generator builds the daily report emails.
type Generator struct {
	store      Store
	benchmarks BenchmarkSource
	cfg        config.NielsenConfig
	now        func() time.Time
}

// NewGenerator returns a generator writing into cfg.WorkDir.
func NewGenerator(store Store, benchmarks BenchmarkSource, cfg config.NielsenConfig) *Generator {
	return &Generator{store: store, benchmarks: benchmarks, cfg: cfg, now: time.Now}
}

// Generate builds one EML file per subject line from the two daily uploads
// and the latest benchmarks, sent from userEmail. The files are written to
// owner's directory and the owner's previous run is removed.
func (g *Generator) Generate(ctx context.Context, owner, userEmail string, uploads []Upload) (report *Report, err error) {
	defer func() { metrics.RecordNielsenReport(err) }()

	daypartUpload, fifteenUpload, err := SplitDailyUploads(uploads)
	if err != nil {
		return nil, err
	}

	var (
		mappings      models.NielsenMappings
		emails        []ReportEmail
		bench15, benD []byte
	)
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() (err error) {
		mappings, err = g.store.NielsenMappings(gctx)
		return err
	})
	grp.Go(func() (err error) {
		emails, err = g.reportEmails(gctx)
		return err
	})
	grp.Go(func() (err error) {
		_, bench15, err = g.benchmarks.DownloadBenchmark(gctx, cloud.Benchmark15Min)
		return err
	})
	grp.Go(func() (err error) {
		_, benD, err = g.benchmarks.DownloadBenchmark(gctx, cloud.BenchmarkDayparts)
		return err
	})
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	var data ReportData
	if data.Benchmark15Min, err = clean15(bench15, mappings); err != nil {
		return nil, fmt.Errorf("benchmark 15min: %w", err)
	}
	if data.Daily15Min, err = clean15(fifteenUpload.Data, mappings); err != nil {
		return nil, fmt.Errorf("%s: %w", fifteenUpload.Name, err)
	}
	if data.BenchmarkDayparts, err = cleanDayparts(benD, mappings); err != nil {
		return nil, fmt.Errorf("benchmark dayparts: %w", err)
	}
	if data.DailyDayparts, err = cleanDayparts(daypartUpload.Data, mappings); err != nil {
		return nil, fmt.Errorf("%s: %w", daypartUpload.Name, err)
	}
	if len(data.Daily15Min) == 0 {
		return nil, fmt.Errorf("%s: %w", fifteenUpload.Name, ErrNoRows)
	}
	date := data.Daily15Min[0].Date

	var dmas []string
	seen := make(map[string]bool)
	for _, e := range emails {
		for _, d := range e.DMAs {
			if !seen[d] {
				seen[d] = true
				dmas = append(dmas, d)
			}
		}
	}
	sections, err := NewRenderer(mappings, g.cfg.MIMEDomain, g.cfg.MaxWorkers).Render(ctx, dmas, data)
	if err != nil {
		return nil, err
	}

	dir := g.UserDir(owner)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	report = &Report{BatchID: ulid.Make().String(), Date: date}
	now := g.now()
	for _, cfg := range emails {
		email, err := BuildEmail(userEmail, date, cfg, sections, now)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, filepath.Base(email.FileName))
		if err := os.WriteFile(path, email.Data, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		report.Files = append(report.Files, path)
	}

	logging.Ctx(ctx).Info().
		Str("batch_id", report.BatchID).
		Str("date", date).
		Int("dmas", len(dmas)).
		Int("emails", len(report.Files)).
		Msg("Nielsen report generated")
	return report, nil
}

func (g *Generator) reportEmails(ctx context.Context) ([]ReportEmail, error) {
	lines, err := g.store.SubjectLines(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ReportEmail, len(lines))
	grp, gctx := errgroup.WithContext(ctx)
	for i, l := range lines {
		out[i].Subject = l.Subject
		grp.Go(func() (err error) {
			out[i].Note, err = g.store.ReportNote(gctx, l.ID)
			return err
		})
		grp.Go(func() (err error) {
			out[i].Recipients, err = g.store.Recipients(gctx, l.ID)
			return err
		})
		grp.Go(func() (err error) {
			out[i].DMAs, err = g.store.DMAList(gctx, l.ID)
			return err
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func clean15(data []byte, m models.NielsenMappings) ([]QuarterHour, error) {
	w, err := ReadWorkbookBytes(data)
	if err != nil {
		return nil, err
	}
	return Clean15Min(w, m)
}

func cleanDayparts(data []byte, m models.NielsenMappings) ([]DaypartRow, error) {
	w, err := ReadWorkbookBytes(data)
	if err != nil {
		return nil, err
	}
	return CleanDayparts(w, m)
}

// UserDir is the scratch directory of a user's generated files.
func (g *Generator) UserDir(email string) string {
	return filepath.Join(g.cfg.WorkDir, SafeIdentifier(email))
}

// SweepStale removes generated files older than maxAge and any user
// directory left empty. It returns the number of files removed.
func (g *Generator) SweepStale(maxAge time.Duration) (int, error) {
	cutoff := g.now().Add(-maxAge)
	dirs, err := os.ReadDir(g.cfg.WorkDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		dir := filepath.Join(g.cfg.WorkDir, d.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		left := len(files)
		for _, f := range files {
			info, err := f.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, f.Name())); err != nil {
				errs = append(errs, err)
				continue
			}
			removed++
			left--
		}
		if left == 0 {
			if err := os.Remove(dir); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return removed, errors.Join(errs...)
}

// ResolveReport checks that path is a report file in owner's directory and
// returns its cleaned form. Other users' reports are not found.
func (g *Generator) ResolveReport(owner, path string) (string, error) {
	root, err := filepath.Abs(g.UserDir(owner))
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.Ext(abs) != ".eml" {
		return "", fmt.Errorf("%w: %s", ErrReportNotFound, filepath.Base(path))
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("%w: %s", ErrReportNotFound, filepath.Base(path))
	}
	return abs, nil
}

// SafeIdentifier derives a short, file system safe identifier from an email
// address.
func SafeIdentifier(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(email)))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:10]
}
