// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package postgres

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/Muggles200/InvoiceMarshal/internal/auth"
)

// AttemptRepository implements auth.AttemptRepository using PostgreSQL.
type AttemptRepository struct {
	db DB
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(db DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Insert appends one attempt record.
func (r *AttemptRepository) Insert(ctx context.Context, record *auth.AttemptRecord) error {
	var email *string
	if record.Email != "" {
		email = &record.Email
	}
	var accountID *string
	if record.AccountID != nil {
		s := record.AccountID.String()
		accountID = &s
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO auth_attempts (
			id, kind, email, account_id, origin_address, success, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		record.ID.String(),
		string(record.Kind),
		email,
		accountID,
		record.OriginAddress,
		record.Success,
		record.OccurredAt,
	)
	if err != nil {
		return oops.Code("ATTEMPT_INSERT_FAILED").
			With("operation", "insert attempt record").
			Wrap(err)
	}
	return nil
}

// CountFailuresSince counts failed records of one kind in the window that
// match any supplied identity. The OR runs over rows, so a record matching
// several identities still counts once.
func (r *AttemptRepository) CountFailuresSince(ctx context.Context, kind auth.AttemptKind, since time.Time, match auth.FailureMatch) (int, error) {
	var email *string
	if match.Email != "" {
		email = &match.Email
	}
	var accountID *string
	if match.AccountID != nil {
		s := match.AccountID.String()
		accountID = &s
	}
	var origin *string
	if match.OriginAddress != "" {
		origin = &match.OriginAddress
	}

	// NULL matchers never match: "column = NULL" is not true in SQL.
	row := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM auth_attempts
		WHERE kind = $1
		  AND occurred_at >= $2
		  AND success = FALSE
		  AND (email = $3 OR account_id = $4 OR origin_address = $5)
	`, string(kind), since, email, accountID, origin)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, oops.Code("ATTEMPT_COUNT_FAILED").
			With("operation", "count recent failures").
			Wrap(err)
	}
	return count, nil
}
