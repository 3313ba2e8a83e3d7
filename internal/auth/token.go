// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Verification token configuration.
const (
	// VerificationTokenBytes is the token entropy in bytes (256 bits).
	VerificationTokenBytes = 32

	// VerificationTokenTTL is the fixed lifetime of an issued token.
	VerificationTokenTTL = 24 * time.Hour
)

// VerificationToken is a single-use email verification token. Only the
// SHA-256 hash of the token is persisted; the plaintext goes into the
// outbound verification link and is never stored.
type VerificationToken struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	TokenHash string
	ExpiresAt time.Time
	Consumed  bool
	CreatedAt time.Time
}

// NewVerificationToken creates a validated VerificationToken.
func NewVerificationToken(accountID ulid.ULID, tokenHash string, issuedAt, expiresAt time.Time) (*VerificationToken, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Errorf("account ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Errorf("token hash cannot be empty")
	}
	if !expiresAt.After(issuedAt) {
		return nil, oops.Errorf("expiry must be after issuance")
	}
	return &VerificationToken{
		ID:        ulid.Make(),
		AccountID: accountID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: issuedAt,
	}, nil
}

// IsExpiredAt returns true if the token would be expired at the given time.
func (t *VerificationToken) IsExpiredAt(at time.Time) bool {
	return at.After(t.ExpiresAt)
}

// GenerateVerificationToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext is embedded
// in the verification link; the hash is stored in the database.
func GenerateVerificationToken() (token, hash string, err error) {
	tokenBytes := make([]byte, VerificationTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code(CodeUpstream).
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashVerificationToken(token)

	return token, hash, nil
}

// HashVerificationToken computes the SHA-256 hash of a token.
func HashVerificationToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyTokenHash checks a plaintext token against a stored hash using a
// constant-time comparison.
func VerifyTokenHash(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := HashVerificationToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// VerificationTokenRepository manages verification token persistence.
type VerificationTokenRepository interface {
	// Create stores a new token.
	Create(ctx context.Context, token *VerificationToken) error

	// GetByTokenHash retrieves a token by its hash. Returns ErrNotFound
	// if absent.
	GetByTokenHash(ctx context.Context, tokenHash string) (*VerificationToken, error)

	// Consume marks an unconsumed token consumed. Returns ErrNotFound when
	// the token does not exist or was already consumed, making redemption
	// single-use even under concurrent requests.
	Consume(ctx context.Context, id ulid.ULID) error

	// DeleteExpired removes expired tokens and returns the deleted count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenIssuer issues and redeems single-use verification tokens.
//
// Issue does not invalidate prior unconsumed tokens for the same account;
// a user who retriggers verification can hold several live tokens until
// they expire. See DESIGN.md for why this is preserved.
type TokenIssuer struct {
	tokens   VerificationTokenRepository
	accounts AccountRepository
	clock    Clock
	ttl      time.Duration
}

// NewTokenIssuer creates a TokenIssuer with the default verification TTL.
func NewTokenIssuer(tokens VerificationTokenRepository, accounts AccountRepository, clock Clock) (*TokenIssuer, error) {
	if tokens == nil {
		return nil, oops.Errorf("token repository is required")
	}
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &TokenIssuer{
		tokens:   tokens,
		accounts: accounts,
		clock:    clock,
		ttl:      VerificationTokenTTL,
	}, nil
}

// WithTTL overrides the verification token lifetime. Non-positive durations
// are ignored.
func (i *TokenIssuer) WithTTL(ttl time.Duration) *TokenIssuer {
	if ttl > 0 {
		i.ttl = ttl
	}
	return i
}

// Issue creates, persists, and returns a fresh token for the account.
// Returns the plaintext token for the outbound mail alongside the stored
// record.
func (i *TokenIssuer) Issue(ctx context.Context, accountID ulid.ULID) (string, *VerificationToken, error) {
	plaintext, hash, err := GenerateVerificationToken()
	if err != nil {
		return "", nil, err
	}

	now := i.clock.Now()
	token, err := NewVerificationToken(accountID, hash, now, now.Add(i.ttl))
	if err != nil {
		return "", nil, err
	}

	if err := i.tokens.Create(ctx, token); err != nil {
		return "", nil, oops.Code(CodeUpstream).
			With("operation", "persist verification token").
			Wrap(err)
	}

	return plaintext, token, nil
}

// Redeem consumes a token and marks the owning account's email verified.
// Unknown, expired, and already-consumed tokens fail identically so the
// response does not reveal which check tripped.
func (i *TokenIssuer) Redeem(ctx context.Context, plaintext string) error {
	if plaintext == "" {
		return oops.Code(CodeValidation).Errorf("verification token cannot be empty")
	}

	token, err := i.tokens.GetByTokenHash(ctx, HashVerificationToken(plaintext))
	if err != nil {
		if isNotFound(err) {
			return oops.Code(CodeValidation).Errorf("verification token is invalid or expired")
		}
		return oops.Code(CodeUpstream).
			With("operation", "look up verification token").
			Wrap(err)
	}

	if token.Consumed || token.IsExpiredAt(i.clock.Now()) {
		return oops.Code(CodeValidation).Errorf("verification token is invalid or expired")
	}

	if err := i.tokens.Consume(ctx, token.ID); err != nil {
		if isNotFound(err) {
			// Lost a race with a concurrent redemption.
			return oops.Code(CodeValidation).Errorf("verification token is invalid or expired")
		}
		return oops.Code(CodeUpstream).
			With("operation", "consume verification token").
			Wrap(err)
	}

	if err := i.accounts.MarkEmailVerified(ctx, token.AccountID, i.clock.Now()); err != nil {
		return oops.Code(CodeUpstream).
			With("operation", "mark email verified").
			With("account_id", token.AccountID.String()).
			Wrap(err)
	}

	return nil
}
