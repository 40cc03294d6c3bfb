// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package nielsen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"
)

const dividerHTML = `<hr color="black" size="2" width="100%">`

// ReportEmail is the configuration of one subject line.
type ReportEmail struct {
	Subject    string
	Note       string
	Recipients []string
	DMAs       []string
}

// Email is a generated EML message.
type Email struct {
	Subject  string
	FileName string
	Data     []byte
}

// BuildEmail assembles the EML message of one subject line for the day in
// date (MM/DD/YYYY). Only charts referenced by the message body are attached.
func BuildEmail(from, date string, cfg ReportEmail, sections map[string]Section, now time.Time) (Email, error) {
	day, err := time.Parse("01/02/2006", date)
	if err != nil {
		return Email{}, fmt.Errorf("invalid report date %q: %w", date, err)
	}
	subject := fmt.Sprintf("%s - %s %s", cfg.Subject, day.Weekday(), date)

	var body strings.Builder
	body.WriteString(cfg.Note)
	body.WriteString(dividerHTML)
	var images []Image
	for _, dma := range cfg.DMAs {
		s, ok := sections[dma]
		if !ok {
			return Email{}, fmt.Errorf("%w: %s", ErrNoDMAData, dma)
		}
		body.WriteString(s.HTML)
		images = append(images, s.Chart)
	}

	var msg bytes.Buffer
	mw := multipart.NewWriter(&msg)
	headers := []struct{ key, value string }{
		{"From", from},
		{"To", strings.Join(cfg.Recipients, ", ")},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", mw.Boundary())},
	}
	var head bytes.Buffer
	for _, h := range headers {
		fmt.Fprintf(&head, "%s: %s\r\n", h.key, h.value)
	}
	head.WriteString("\r\n")

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=utf-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return Email{}, err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(body.String())); err != nil {
		return Email{}, err
	}
	if err := qp.Close(); err != nil {
		return Email{}, err
	}

	for _, img := range images {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {SVGContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Id":                {"<" + img.ContentID + ">"},
			"Content-Disposition":       {fmt.Sprintf("inline; filename=%q", img.Filename)},
		})
		if err != nil {
			return Email{}, err
		}
		if err := writeBase64Lines(part, img.Data); err != nil {
			return Email{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return Email{}, err
	}

	return Email{
		Subject:  subject,
		FileName: cfg.Subject + "_" + strings.ReplaceAll(date, "/", "-") + ".eml",
		Data:     append(head.Bytes(), msg.Bytes()...),
	}, nil
}

// writeBase64Lines writes data base64 encoded in 76 character lines.
func writeBase64Lines(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		if _, err := fmt.Fprintf(w, "%s\r\n", enc[:76]); err != nil {
			return err
		}
		enc = enc[76:]
	}
	_, err := fmt.Fprintf(w, "%s\r\n", enc)
	return err
}
