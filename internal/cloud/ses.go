// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package cloud

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"golang.org/x/time/rate"

	"github.com/tomtom215/audience-insights/internal/config"
	"github.com/tomtom215/audience-insights/internal/logging"
)

const (
	verificationSubject = "Your SN-AI Data App Verification Code"
	resetSubject        = "Reset Your Password for the SN-AI Data App"
	charset             = "UTF-8"
)

// SESAPI is the subset of the SES v2 client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Mailer sends account emails through SES.
type Mailer struct {
	api     SESAPI
	sender  string
	breaker *breaker
	limiter *rate.Limiter
}

// NewMailer wraps api with the sender, breaker and send rate settings of
// cfg. A non-positive SESMaxSendRate disables throttling.
func NewMailer(api SESAPI, cfg *config.AWSConfig) *Mailer {
	limit := rate.Inf
	if cfg.SESMaxSendRate > 0 {
		limit = rate.Limit(cfg.SESMaxSendRate)
	}
	return &Mailer{
		api:     api,
		sender:  cfg.SESSender,
		breaker: newBreaker("ses", cfg.Breaker, nil),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// NewMailerFromConfig builds the SES client from awsCfg.
func NewMailerFromConfig(awsCfg aws.Config, cfg *config.AWSConfig) *Mailer {
	return NewMailer(sesv2.NewFromConfig(awsCfg), cfg)
}

// SendVerificationCode emails a signup verification code.
func (m *Mailer) SendVerificationCode(ctx context.Context, to, code string) error {
	body := `<html>
<head></head>
<body>
<h1>Welcome to the Audience Insights Data App</h1>
<br>
<h2>Your verification code is: ` + html.EscapeString(code) + `</h2>
</body>
</html>`
	text := "Your verification code is: " + code
	return m.send(ctx, to, verificationSubject, body, text)
}

// SendPasswordReset emails a password reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, link string) error {
	l := html.EscapeString(link)
	body := `<html>
<head></head>
<body>
<h3>Please follow the link below to reset your password:</h3>
<p style="margin-left: 10px;"><a href="` + l + `">` + l + `</a></p>
<p>Do not share this link with anyone!</p>
<p>If you did not request a password reset, please ignore this email.</p>
</body>
</html>`
	return m.send(ctx, to, resetSubject, body, "")
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	// SES rejects sends above the account quota.
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to send %q email: %w", subject, err)
	}

	b := &sestypes.Body{
		Html: &sestypes.Content{Data: aws.String(htmlBody), Charset: aws.String(charset)},
	}
	if textBody != "" {
		b.Text = &sestypes.Content{Data: aws.String(textBody), Charset: aws.String(charset)}
	}

	out, err := call(m.breaker, func() (*sesv2.SendEmailOutput, error) {
		return m.api.SendEmail(ctx, &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(m.sender),
			Destination:      &sestypes.Destination{ToAddresses: []string{to}},
			Content: &sestypes.EmailContent{
				Simple: &sestypes.Message{
					Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String(charset)},
					Body:    b,
				},
			},
		})
	})
	if err != nil {
		return fmt.Errorf("failed to send %q email: %w", subject, err)
	}

	logging.Ctx(ctx).Info().
		Str("to", logging.SanitizeEmail(to)).
		Str("message_id", aws.ToString(out.MessageId)).
		Msg("Email sent")
	return nil
}
