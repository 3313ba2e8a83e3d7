// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// AttemptKind distinguishes signup attempts from login attempts.
type AttemptKind string

// Attempt kinds.
const (
	AttemptSignup AttemptKind = "SIGNUP"
	AttemptLogin  AttemptKind = "LOGIN"
)

// AttemptRecord is one authentication attempt, successful or not. Records
// are immutable once written and are never deleted by this package.
//
// Email is empty when no matching account context existed (e.g. a login
// against an unknown address records only the origin). AccountID is nil for
// the same reason and for all signup attempts.
type AttemptRecord struct {
	ID            ulid.ULID
	Kind          AttemptKind
	Email         string
	AccountID     *ulid.ULID
	OriginAddress string
	Success       bool
	OccurredAt    time.Time
}

// NewAttemptRecord creates an AttemptRecord stamped with the given time.
func NewAttemptRecord(kind AttemptKind, email string, accountID *ulid.ULID, origin string, success bool, at time.Time) *AttemptRecord {
	return &AttemptRecord{
		ID:            ulid.Make(),
		Kind:          kind,
		Email:         email,
		AccountID:     accountID,
		OriginAddress: origin,
		Success:       success,
		OccurredAt:    at,
	}
}

// FailureMatch selects attempt records by identity. A record is counted when
// any present matcher matches; a record matching several matchers still
// counts once.
type FailureMatch struct {
	Email         string // empty = not matched on
	AccountID     *ulid.ULID
	OriginAddress string
}

// AttemptRepository persists attempt records.
type AttemptRepository interface {
	// Insert appends one attempt record.
	Insert(ctx context.Context, record *AttemptRecord) error

	// CountFailuresSince counts failed records of the given kind with
	// occurred_at >= since matching any identity in match. Kinds are
	// counted separately: signup failures never raise the login count
	// and vice versa.
	CountFailuresSince(ctx context.Context, kind AttemptKind, since time.Time, match FailureMatch) (int, error)
}

// AttemptLedger is the append-only record of authentication attempts.
//
// Recording is best-effort auditing: a repository failure is logged and
// swallowed so it can never fail the caller's signup or login flow. Count
// queries propagate failures because the throttle cannot decide without them.
type AttemptLedger struct {
	repo   AttemptRepository
	logger *slog.Logger
}

// NewAttemptLedger creates an AttemptLedger.
func NewAttemptLedger(repo AttemptRepository, logger *slog.Logger) (*AttemptLedger, error) {
	if repo == nil {
		return nil, oops.Errorf("attempt repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AttemptLedger{repo: repo, logger: logger}, nil
}

// Record appends an attempt record. Failures are logged, never returned.
func (l *AttemptLedger) Record(ctx context.Context, record *AttemptRecord) {
	if err := l.repo.Insert(ctx, record); err != nil {
		l.logger.ErrorContext(ctx, "failed to record auth attempt",
			"kind", string(record.Kind),
			"origin", record.OriginAddress,
			"success", record.Success,
			"error", err)
	}
}

// CountRecentFailures counts failed attempts of one kind since the window
// start that match any of the supplied identities.
func (l *AttemptLedger) CountRecentFailures(ctx context.Context, kind AttemptKind, windowStart time.Time, match FailureMatch) (int, error) {
	count, err := l.repo.CountFailuresSince(ctx, kind, windowStart, match)
	if err != nil {
		return 0, oops.Code(CodeUpstream).
			With("operation", "count recent failures").
			Wrap(err)
	}
	return count, nil
}
