// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/Muggles200/InvoiceMarshal/internal/auth"
)

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores a new account. A uniqueness violation on the email column
// maps to auth.ErrDuplicateEmail so the existence-check/insert race resolves
// deterministically.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (
			id, email, password_hash, email_verified_at, role,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		account.ID.String(),
		account.Email,
		account.PasswordHash,
		account.EmailVerifiedAt,
		string(account.Role),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code(auth.CodeDuplicateEmail).
				With("operation", "insert account").
				Wrap(auth.ErrDuplicateEmail)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, email_verified_at, role,
		       created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id.String())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}
	return account, nil
}

// GetByEmail retrieves an account by exact email. Lookup is case-sensitive:
// emails are unique exactly as stored.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, email_verified_at, role,
		       created_at, updated_at
		FROM accounts
		WHERE email = $1
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	return account, nil
}

// UpdatePasswordHash replaces only the password hash for an account.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`, id.String(), passwordHash)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_HASH_FAILED").
			With("operation", "update password hash").
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// MarkEmailVerified sets the verification timestamp for an account.
func (r *AccountRepository) MarkEmailVerified(ctx context.Context, id ulid.ULID, verifiedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET email_verified_at = $2, updated_at = NOW()
		WHERE id = $1
	`, id.String(), verifiedAt)
	if err != nil {
		return oops.Code("ACCOUNT_MARK_VERIFIED_FAILED").
			With("operation", "mark email verified").
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		account auth.Account
		idStr   string
		roleStr string
	)
	if err := row.Scan(
		&idStr,
		&account.Email,
		&account.PasswordHash,
		&account.EmailVerifiedAt,
		&roleStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse account id").Wrap(err)
	}
	account.ID = id
	account.Role = auth.Role(roleStr)

	return &account, nil
}
