// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is an account's authorization role.
type Role string

// Account roles.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// MinPasswordLength is the minimum accepted password length at signup.
const MinPasswordLength = 8

// emailRegex is a structural check only; deliverability is proven by the
// verification mail, not by the pattern.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Account represents a user account.
//
// PasswordHash is nil for accounts that only authenticate through an
// external identity provider. EmailVerifiedAt is nil until a verification
// token is redeemed.
type Account struct {
	ID              ulid.ULID
	Email           string
	PasswordHash    *string
	EmailVerifiedAt *time.Time
	Role            Role
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewAccount creates a validated Account with the given email and password
// hash, stamped with the given time. The account starts unverified with
// RoleUser.
func NewAccount(email, passwordHash string, now time.Time) (*Account, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeValidation).Errorf("password hash cannot be empty")
	}

	return &Account{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: &passwordHash,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Verified reports whether the account's email has been verified.
func (a *Account) Verified() bool {
	return a.EmailVerifiedAt != nil
}

// ValidateEmail validates the structural shape of an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeValidation).Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code(CodeValidation).Errorf("email address is malformed")
	}
	return nil
}

// ValidateSignup checks the structural preconditions for a signup request.
// It is a pure check: no ledger or store interaction happens on failure.
func ValidateSignup(email, password, confirmPassword string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return oops.Code(CodeValidation).
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if password != confirmPassword {
		return oops.Code(CodeValidation).Errorf("passwords do not match")
	}
	return nil
}

// AccountRepository manages account persistence.
//
// Email lookups are case-sensitive: emails are unique exactly as stored.
type AccountRepository interface {
	// Create stores a new account. Returns ErrDuplicateEmail (possibly
	// wrapped) when the email uniqueness constraint is violated.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by exact email. Returns ErrNotFound
	// if absent.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// UpdatePasswordHash replaces only the password hash for an account.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error

	// MarkEmailVerified sets the verification timestamp for an account.
	MarkEmailVerified(ctx context.Context, id ulid.ULID, verifiedAt time.Time) error
}
