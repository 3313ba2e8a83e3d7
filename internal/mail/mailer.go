// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

// Package mail dispatches outbound verification mail. Transport is an
// external concern; the implementations here build the verification link
// and hand it off, they do not speak SMTP.
package mail

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// VerificationURL builds the link embedded in the verification mail.
func VerificationURL(baseURL, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", oops.Code("MAIL_BAD_BASE_URL").
			With("base_url", baseURL).
			Wrap(err)
	}
	u = u.JoinPath("/verify-email")
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// LogMailer implements auth.Mailer by logging the verification link instead
// of delivering it. It stands in for a real delivery provider in
// development and tests.
type LogMailer struct {
	baseURL string
	from    string
	logger  *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(baseURL, from string, logger *slog.Logger) (*LogMailer, error) {
	if baseURL == "" {
		return nil, oops.Errorf("base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{baseURL: baseURL, from: from, logger: logger}, nil
}

// SendVerification logs the verification link for the recipient.
func (m *LogMailer) SendVerification(ctx context.Context, email, token string) error {
	link, err := VerificationURL(m.baseURL, token)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "verification mail dispatched",
		"from", m.from,
		"to", email,
		"verification_url", link,
	)
	return nil
}

// Retry configuration for mail dispatch. Dispatch is fire-and-forget from
// the signup flow's perspective, so a short bounded retry is all we buy.
const (
	retryAttempts = 3
	retryBase     = 500 * time.Millisecond
)

// sender matches auth.Mailer without importing it.
type sender interface {
	SendVerification(ctx context.Context, email, token string) error
}

// RetryMailer decorates a mailer with bounded exponential backoff. A send
// that keeps failing returns the last error; the caller decides whether
// that matters (the signup flow logs and moves on).
type RetryMailer struct {
	next sender
}

// NewRetryMailer creates a RetryMailer around next.
func NewRetryMailer(next sender) (*RetryMailer, error) {
	if next == nil {
		return nil, oops.Errorf("wrapped mailer is required")
	}
	return &RetryMailer{next: next}, nil
}

// SendVerification retries the wrapped send with exponential backoff.
func (m *RetryMailer) SendVerification(ctx context.Context, email, token string) error {
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := m.next.SendVerification(ctx, email, token); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("to", email).
			Wrap(err)
	}
	return nil
}
