// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muggles200/InvoiceMarshal/pkg/errutil"
)

func TestVerificationURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		token   string
		want    string
		wantErr bool
	}{
		{
			name:    "plain base",
			baseURL: "https://app.example.com",
			token:   "abc123",
			want:    "https://app.example.com/verify-email?token=abc123",
		},
		{
			name:    "base with path prefix",
			baseURL: "https://example.com/app",
			token:   "abc123",
			want:    "https://example.com/app/verify-email?token=abc123",
		},
		{
			name:    "token is query escaped",
			baseURL: "http://localhost:8080",
			token:   "a b&c",
			want:    "http://localhost:8080/verify-email?token=a+b%26c",
		},
		{
			name:    "unparseable base",
			baseURL: "http://bad url\x7f",
			token:   "abc123",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerificationURL(tt.baseURL, tt.token)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogMailer(t *testing.T) {
	t.Run("requires base url", func(t *testing.T) {
		_, err := NewLogMailer("", "no-reply@example.com", nil)
		require.Error(t, err)
	})

	t.Run("logs the verification link", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		mailer, err := NewLogMailer("https://app.example.com", "no-reply@example.com", logger)
		require.NoError(t, err)

		require.NoError(t, mailer.SendVerification(context.Background(), "user@example.com", "abc123"))

		out := buf.String()
		assert.Contains(t, out, "verification mail dispatched")
		assert.Contains(t, out, "user@example.com")
		assert.Contains(t, out, "https://app.example.com/verify-email?token=abc123")
	})

	t.Run("propagates a bad base url", func(t *testing.T) {
		mailer, err := NewLogMailer("http://bad url\x7f", "no-reply@example.com", slog.New(slog.DiscardHandler))
		require.NoError(t, err)

		err = mailer.SendVerification(context.Background(), "user@example.com", "abc123")
		require.Error(t, err)
	})
}

// flakySender fails a fixed number of sends before succeeding.
type flakySender struct {
	failures int
	calls    int
}

func (s *flakySender) SendVerification(_ context.Context, _, _ string) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("provider unavailable")
	}
	return nil
}

func TestRetryMailer(t *testing.T) {
	t.Run("requires a wrapped mailer", func(t *testing.T) {
		_, err := NewRetryMailer(nil)
		require.Error(t, err)
	})

	t.Run("succeeds first try without retrying", func(t *testing.T) {
		next := &flakySender{}
		mailer, err := NewRetryMailer(next)
		require.NoError(t, err)

		require.NoError(t, mailer.SendVerification(context.Background(), "user@example.com", "abc123"))
		assert.Equal(t, 1, next.calls)
	})

	t.Run("retries a transient failure", func(t *testing.T) {
		next := &flakySender{failures: 1}
		mailer, err := NewRetryMailer(next)
		require.NoError(t, err)

		require.NoError(t, mailer.SendVerification(context.Background(), "user@example.com", "abc123"))
		assert.Equal(t, 2, next.calls)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		next := &flakySender{failures: 10}
		mailer, err := NewRetryMailer(next)
		require.NoError(t, err)

		err = mailer.SendVerification(context.Background(), "user@example.com", "abc123")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MAIL_SEND_FAILED")
		assert.Equal(t, retryAttempts+1, next.calls)
	})
}
