// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tomtom215/audience-insights/internal/cloud"
	"github.com/tomtom215/audience-insights/internal/logging"
	"github.com/tomtom215/audience-insights/internal/models"
	"github.com/tomtom215/audience-insights/internal/nielsen"
	"github.com/tomtom215/audience-insights/internal/validation"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeZip  = "application/zip"
	contentTypeEML  = "message/rfc822"

	// multipartMemory is kept in memory before parts spill to disk.
	multipartMemory = 32 << 20
)

// parseMultipart bounds the body by the configured upload size and parses
// the form. It writes the error response and returns false on failure.
func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if h.cfg != nil && h.cfg.Server.MaxUploadMB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxUploadMB<<20)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, ErrCodeTooLarge,
				fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit), nil)
			return false
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid multipart form", err)
		return false
	}
	return true
}

// readUpload reads one uploaded file into memory.
func readUpload(fh *multipart.FileHeader) (nielsen.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nielsen.Upload{}, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nielsen.Upload{}, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	return nielsen.Upload{Name: fh.Filename, Data: data}, nil
}

// formUpload reads the single file sent as field.
func (h *Handler) formUpload(w http.ResponseWriter, r *http.Request, field string) (nielsen.Upload, bool) {
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Missing file field "+field, nil)
		return nielsen.Upload{}, false
	}
	up, err := readUpload(files[0])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Failed to read upload", err)
		return nielsen.Upload{}, false
	}
	return up, true
}

// serveAttachment writes body as a download named name.
func serveAttachment(w http.ResponseWriter, r *http.Request, name, contentType string, body io.Reader) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("file", name).Msg("Failed to write attachment")
	}
}

// verifyUpload answers a verification with the upload label, or with the
// failure message and success=false.
func (h *Handler) verifyUpload(verify func(string, []byte) (nielsen.Verification, *nielsen.Workbook, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.parseMultipart(w, r) {
			return
		}
		up, ok := h.formUpload(w, r, "file")
		if !ok {
			return
		}
		v, _, err := verify(up.Name, up.Data)
		if err != nil {
			logging.Ctx(r.Context()).Info().Err(err).Str("file", sanitizeLogValue(up.Name)).Msg("Upload failed verification")
			respondRejected(w, r, nielsen.FailureMessage(err))
			return
		}
		respondSuccess(w, r, v.Label(), nil, nil)
	}
}

// VerifyUploadFile checks a daily Nielsen export.
func (h *Handler) VerifyUploadFile(w http.ResponseWriter, r *http.Request) {
	h.verifyUpload(nielsen.VerifyDaily)(w, r)
}

// VerifyBenchmarkFile checks a benchmark Nielsen export.
func (h *Handler) VerifyBenchmarkFile(w http.ResponseWriter, r *http.Request) {
	h.verifyUpload(nielsen.VerifyBenchmark)(w, r)
}

// GenerateNielsenReport builds the daily report emails from file0 and file1.
// With autoDownload the emails are returned as a zip archive; otherwise the
// data is the list of generated file paths.
func (h *Handler) GenerateNielsenReport(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	toEmail := strings.TrimSpace(r.FormValue("toEmail"))
	if err := validation.ValidateVar(toEmail, "required,email"); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "toEmail must be a valid email address", err)
		return
	}
	autoDownload, err := strconv.ParseBool(r.FormValue("autoDownload"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "autoDownload must be true or false", err)
		return
	}

	uploads := make([]nielsen.Upload, 0, 2)
	for _, field := range []string{"file0", "file1"} {
		up, ok := h.formUpload(w, r, field)
		if !ok {
			return
		}
		uploads = append(uploads, up)
	}

	report, err := h.reports.Generate(r.Context(), actor(r.Context()), toEmail, uploads)
	if err != nil {
		handleError(w, r, err, ErrCodeInternal, "Failed to generate Nielsen report")
		return
	}
	if !autoDownload {
		respondSuccess(w, r, "EML files created", report.Files, nil)
		return
	}

	var buf bytes.Buffer
	if err := nielsen.ZipEmails(&buf, report.Files); err != nil {
		handleError(w, r, err, ErrCodeInternal, "Failed to package Nielsen report")
		return
	}
	serveAttachment(w, r, nielsen.ReportsZipName, contentTypeZip, &buf)
}

// DownloadDailyEMLReport serves one generated email and then removes it.
func (h *Handler) DownloadDailyEMLReport(w http.ResponseWriter, r *http.Request) {
	var req models.DownloadEMLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	path, err := h.reports.ResolveReport(actor(r.Context()), req.FilePath)
	if err != nil {
		handleError(w, r, err, ErrCodeInternal, "Report file not found")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		handleError(w, r, err, ErrCodeInternal, "Failed to open report file")
		return
	}
	defer func() {
		f.Close()
		if err := os.Remove(path); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to remove downloaded report")
		}
	}()
	serveAttachment(w, r, filepath.Base(path), contentTypeEML, f)
}

// UpdateBenchmarkFiles replaces every stored benchmark with the uploads.
func (h *Handler) UpdateBenchmarkFiles(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Missing file field files", nil)
		return
	}
	uploads := make([]cloud.BenchmarkUpload, 0, len(files))
	for _, fh := range files {
		up, err := readUpload(fh)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Failed to read upload", err)
			return
		}
		uploads = append(uploads, cloud.BenchmarkUpload{Name: up.Name, Body: up.Data})
	}
	saved, err := h.storage.ReplaceBenchmarks(r.Context(), uploads)
	if err != nil {
		handleError(w, r, err, ErrCodeUpstream, "Failed to update benchmark files")
		return
	}
	h.audit.AdminEvent(r.Context(), "update_benchmark_files", actor(r.Context()), "", strings.Join(saved, ", "))
	respondSuccess(w, r, "Benchmark files updated: "+strings.Join(saved, ", "), nil, nil)
}

// downloadBenchmark serves the latest benchmark workbook of kind.
func (h *Handler) downloadBenchmark(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, body, err := h.storage.DownloadBenchmark(r.Context(), kind)
		if err != nil {
			handleError(w, r, err, ErrCodeUpstream, "Failed to download benchmark file")
			return
		}
		serveAttachment(w, r, file.Name, contentTypeXLSX, bytes.NewReader(body))
	}
}

// benchmarkName returns the file name of the latest benchmark of kind.
func (h *Handler) benchmarkName(kind, label string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, err := h.storage.LatestBenchmark(r.Context(), kind)
		if err != nil {
			handleError(w, r, err, ErrCodeUpstream, "No "+label+" benchmark file found")
			return
		}
		respondSuccess(w, r, "Benchmark file name retrieved", map[string]string{"filename": file.Name}, nil)
	}
}

// DownloadBenchmark15Min serves the latest quarter-hour benchmark.
func (h *Handler) DownloadBenchmark15Min(w http.ResponseWriter, r *http.Request) {
	h.downloadBenchmark(cloud.Benchmark15Min)(w, r)
}

// GetBenchmark15MinName returns the latest quarter-hour benchmark name.
func (h *Handler) GetBenchmark15MinName(w http.ResponseWriter, r *http.Request) {
	h.benchmarkName(cloud.Benchmark15Min, models.ReportType15Min)(w, r)
}

// DownloadBenchmarkDayparts serves the latest daypart benchmark.
func (h *Handler) DownloadBenchmarkDayparts(w http.ResponseWriter, r *http.Request) {
	h.downloadBenchmark(cloud.BenchmarkDayparts)(w, r)
}

// GetBenchmarkDaypartsName returns the latest daypart benchmark name.
func (h *Handler) GetBenchmarkDaypartsName(w http.ResponseWriter, r *http.Request) {
	h.benchmarkName(cloud.BenchmarkDayparts, models.ReportTypeDayparts)(w, r)
}

// GetSubjectLines lists the configured report emails.
func (h *Handler) GetSubjectLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.nielsen.SubjectLines(r.Context())
	if err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to retrieve subject lines")
		return
	}
	if lines == nil {
		lines = []models.SubjectLine{}
	}
	respondSuccess(w, r, "Subject lines retrieved", lines, nil)
}

// UpdateSubjectLines renames report emails by ID.
func (h *Handler) UpdateSubjectLines(w http.ResponseWriter, r *http.Request) {
	var lines []models.SubjectLine
	if !decodeJSONValue(w, r, &lines, "required,dive") {
		return
	}
	if err := h.nielsen.UpdateSubjectLines(r.Context(), lines); err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to update subject lines")
		return
	}
	respondSuccess(w, r, "Subject lines updated", nil, nil)
}

// perSubjectLine collects one value per subject line keyed by decimal ID.
func perSubjectLine[T any](h *Handler, r *http.Request, get func(id int) (T, error)) (map[string]T, error) {
	lines, err := h.nielsen.SubjectLines(r.Context())
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(lines))
	for _, l := range lines {
		v, err := get(l.ID)
		if err != nil {
			return nil, err
		}
		out[strconv.Itoa(l.ID)] = v
	}
	return out, nil
}

// subjectLineID parses a decimal subject line key.
func subjectLineID(key string) (int, error) {
	id, err := strconv.Atoi(key)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid subject line id %q", key)
	}
	return id, nil
}

// GetEmailRecipients returns the recipients of every report email.
func (h *Handler) GetEmailRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := perSubjectLine(h, r, func(id int) ([]string, error) {
		emails, err := h.nielsen.Recipients(r.Context(), id)
		if emails == nil {
			emails = []string{}
		}
		return emails, err
	})
	if err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to retrieve email recipients")
		return
	}
	respondSuccess(w, r, "Subject lines retrieved", recipients, nil)
}

// UpdateEmailRecipients replaces the recipients of each listed report
// email. Empty lists leave the stored recipients unchanged.
func (h *Handler) UpdateEmailRecipients(w http.ResponseWriter, r *http.Request) {
	var body models.RecipientsBySubject
	if !decodeJSONValue(w, r, &body, "required,dive,dive,email") {
		return
	}
	for _, key := range sortedKeys(body) {
		emails := body[key]
		if len(emails) == 0 {
			continue
		}
		id, err := subjectLineID(key)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid subject line id", err)
			return
		}
		if err := h.nielsen.ReplaceRecipients(r.Context(), id, emails); err != nil {
			handleError(w, r, err, ErrCodeDatabase, "Failed to update email recipients")
			return
		}
	}
	respondSuccess(w, r, "Email recipients updated", nil, nil)
}

// GetReportNotes returns the note of every report email.
func (h *Handler) GetReportNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := perSubjectLine(h, r, func(id int) (string, error) {
		return h.nielsen.ReportNote(r.Context(), id)
	})
	if err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to retrieve report notes")
		return
	}
	respondSuccess(w, r, "Report notes retrieved", notes, nil)
}

// UpdateReportNotes sets the note of each listed report email.
func (h *Handler) UpdateReportNotes(w http.ResponseWriter, r *http.Request) {
	var body models.NotesBySubject
	if !decodeJSONValue(w, r, &body, "required") {
		return
	}
	for _, key := range sortedKeys(body) {
		id, err := subjectLineID(key)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid subject line id", err)
			return
		}
		if err := h.nielsen.SetReportNote(r.Context(), id, body[key]); err != nil {
			handleError(w, r, err, ErrCodeDatabase, "Failed to update report notes")
			return
		}
	}
	respondSuccess(w, r, "Report notes updated", nil, nil)
}

// GetDMAList returns the DMAs included in every report email.
func (h *Handler) GetDMAList(w http.ResponseWriter, r *http.Request) {
	lists, err := perSubjectLine(h, r, func(id int) ([]string, error) {
		dmas, err := h.nielsen.DMAList(r.Context(), id)
		if dmas == nil {
			dmas = []string{}
		}
		return dmas, err
	})
	if err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to retrieve DMA list")
		return
	}
	respondSuccess(w, r, "Dma list retrieved", lists, nil)
}

// GetDMANameMapping returns the Nielsen to SN DMA name mapping.
func (h *Handler) GetDMANameMapping(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.nielsen.DMANameMappings(r.Context())
	if err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to retrieve DMA name mapping")
		return
	}
	if mappings == nil {
		mappings = []models.DMAMapping{}
	}
	respondSuccess(w, r, "Dma name mapping retrieved", mappings, nil)
}

// UpdateDMANameMapping replaces the DMA name mapping.
func (h *Handler) UpdateDMANameMapping(w http.ResponseWriter, r *http.Request) {
	var mappings []models.DMAMapping
	if !decodeJSONValue(w, r, &mappings, "required,dive") {
		return
	}
	if err := h.nielsen.ReplaceDMANameMappings(r.Context(), mappings); err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to update DMA name mapping")
		return
	}
	h.audit.AdminEvent(r.Context(), "update_dma_name_mapping", actor(r.Context()), "",
		strconv.Itoa(len(mappings))+" rows")
	respondSuccess(w, r, "Dma name mapping updated", nil, nil)
}

// GetDMAPenetration returns the penetration of each SN DMA, one row per DMA.
func (h *Handler) GetDMAPenetration(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.nielsen.DMANameMappings(r.Context())
	if err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to retrieve DMA penetration")
		return
	}
	seen := make(map[string]bool, len(mappings))
	out := make([]models.DMAPenetration, 0, len(mappings))
	for _, m := range mappings {
		if seen[m.SNDMAName] {
			continue
		}
		seen[m.SNDMAName] = true
		out = append(out, models.DMAPenetration{SNDMAName: m.SNDMAName, PenetrationPercent: m.PenetrationPercent})
	}
	respondSuccess(w, r, "Dma penetration retrieved", out, nil)
}

// GetAdditionalMappingFile exports the four read-only mappings as a workbook.
func (h *Handler) GetAdditionalMappingFile(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.nielsen.NielsenMappings(r.Context())
	if err != nil {
		handleError(w, r, err, ErrCodeDatabase, "Failed to retrieve mappings")
		return
	}
	var buf bytes.Buffer
	if err := nielsen.MappingsWorkbook(&buf, mappings); err != nil {
		handleError(w, r, err, ErrCodeInternal, "Failed to build mappings workbook")
		return
	}
	serveAttachment(w, r, nielsen.MappingsFileName, contentTypeXLSX, &buf)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
