// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/Muggles200/InvoiceMarshal/internal/auth"
)

// VerificationTokenRepository implements auth.VerificationTokenRepository
// using PostgreSQL.
type VerificationTokenRepository struct {
	db DB
}

// NewVerificationTokenRepository creates a new VerificationTokenRepository.
func NewVerificationTokenRepository(db DB) *VerificationTokenRepository {
	return &VerificationTokenRepository{db: db}
}

// Create stores a new verification token.
func (r *VerificationTokenRepository) Create(ctx context.Context, token *auth.VerificationToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO verification_tokens (
			id, account_id, token_hash, expires_at, consumed, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`,
		token.ID.String(),
		token.AccountID.String(),
		token.TokenHash,
		token.ExpiresAt,
		token.Consumed,
		token.CreatedAt,
	)
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert verification token").
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a token by its hash.
func (r *VerificationTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.VerificationToken, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, account_id, token_hash, expires_at, consumed, created_at
		FROM verification_tokens
		WHERE token_hash = $1
	`, tokenHash)

	var (
		token        auth.VerificationToken
		idStr        string
		accountIDStr string
	)
	err := row.Scan(
		&idStr,
		&accountIDStr,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Consumed,
		&token.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").
			With("operation", "get verification token by hash").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse token id").Wrap(err)
	}
	accountID, err := ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.With("operation", "parse token account id").Wrap(err)
	}
	token.ID = id
	token.AccountID = accountID

	return &token, nil
}

// Consume marks an unconsumed token consumed. The consumed = FALSE guard
// makes redemption single-use even under concurrent requests: the loser of
// the race affects zero rows and gets ErrNotFound.
func (r *VerificationTokenRepository) Consume(ctx context.Context, id ulid.ULID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE verification_tokens
		SET consumed = TRUE
		WHERE id = $1 AND consumed = FALSE
	`, id.String())
	if err != nil {
		return oops.Code("TOKEN_CONSUME_FAILED").
			With("operation", "consume verification token").
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("TOKEN_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes expired tokens and returns the deleted count.
func (r *VerificationTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM verification_tokens
		WHERE expires_at < $1
	`, now)
	if err != nil {
		return 0, oops.Code("TOKEN_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired verification tokens").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}
