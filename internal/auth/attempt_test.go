// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muggles200/InvoiceMarshal/internal/auth"
	"github.com/Muggles200/InvoiceMarshal/internal/auth/mocks"
	"github.com/Muggles200/InvoiceMarshal/pkg/errutil"
)

func TestNewAttemptRecord(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	accountID := ulid.Make()

	record := auth.NewAttemptRecord(auth.AttemptLogin, "user@example.com", &accountID, "203.0.113.7", false, at)

	assert.NotEqual(t, ulid.ULID{}, record.ID)
	assert.Equal(t, auth.AttemptLogin, record.Kind)
	assert.Equal(t, "user@example.com", record.Email)
	assert.Equal(t, &accountID, record.AccountID)
	assert.Equal(t, "203.0.113.7", record.OriginAddress)
	assert.False(t, record.Success)
	assert.Equal(t, at, record.OccurredAt)
}

func TestAttemptLedger_Record(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("inserts the record", func(t *testing.T) {
		repo := mocks.NewMockAttemptRepository(t)
		ledger, err := auth.NewAttemptLedger(repo, nil)
		require.NoError(t, err)

		record := auth.NewAttemptRecord(auth.AttemptSignup, "user@example.com", nil, "203.0.113.7", true, at)
		repo.On("Insert", ctx, record).Return(nil)

		ledger.Record(ctx, record)
	})

	t.Run("repository failure is swallowed", func(t *testing.T) {
		repo := mocks.NewMockAttemptRepository(t)
		ledger, err := auth.NewAttemptLedger(repo, nil)
		require.NoError(t, err)

		record := auth.NewAttemptRecord(auth.AttemptLogin, "", nil, "203.0.113.7", false, at)
		repo.On("Insert", ctx, record).Return(errors.New("connection refused"))

		// Must not panic or surface the error.
		ledger.Record(ctx, record)
	})
}

func TestAttemptLedger_CountRecentFailures(t *testing.T) {
	ctx := context.Background()
	since := time.Date(2026, 3, 14, 11, 45, 0, 0, time.UTC)

	t.Run("returns the repository count", func(t *testing.T) {
		repo := mocks.NewMockAttemptRepository(t)
		ledger, err := auth.NewAttemptLedger(repo, nil)
		require.NoError(t, err)

		match := auth.FailureMatch{OriginAddress: "203.0.113.7"}
		repo.On("CountFailuresSince", ctx, auth.AttemptLogin, since, match).Return(3, nil)

		count, err := ledger.CountRecentFailures(ctx, auth.AttemptLogin, since, match)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("repository failure propagates with upstream code", func(t *testing.T) {
		repo := mocks.NewMockAttemptRepository(t)
		ledger, err := auth.NewAttemptLedger(repo, nil)
		require.NoError(t, err)

		match := auth.FailureMatch{OriginAddress: "203.0.113.7"}
		repo.On("CountFailuresSince", ctx, auth.AttemptLogin, since, match).Return(0, errors.New("connection refused"))

		_, err = ledger.CountRecentFailures(ctx, auth.AttemptLogin, since, match)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeUpstream)
	})
}

func TestNewAttemptLedger_NilRepo(t *testing.T) {
	_, err := auth.NewAttemptLedger(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempt repository is required")
}
