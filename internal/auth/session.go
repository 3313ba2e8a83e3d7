// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	// SessionTokenBytes is the opaque token entropy in bytes.
	SessionTokenBytes = 32

	// SessionTTL is the session lifetime.
	SessionTTL = 30 * 24 * time.Hour
)

// Session is a server-side session with role and verification snapshots
// taken at establishment time. The gate reads only the snapshots; it never
// reloads the account.
type Session struct {
	ID         ulid.ULID
	AccountID  ulid.ULID
	TokenHash  string
	Role       Role
	Verified   bool
	IssuedAt   time.Time
	ExpiresAt  time.Time
	LastSeenAt time.Time
}

// NewSession creates a validated Session snapshotting the account's role and
// verification state.
func NewSession(account *Account, tokenHash string, issuedAt, expiresAt time.Time) (*Session, error) {
	if account == nil {
		return nil, oops.Errorf("account cannot be nil")
	}
	if tokenHash == "" {
		return nil, oops.Errorf("token hash cannot be empty")
	}
	if !expiresAt.After(issuedAt) {
		return nil, oops.Errorf("expiry must be after issuance")
	}
	return &Session{
		ID:         ulid.Make(),
		AccountID:  account.ID,
		TokenHash:  tokenHash,
		Role:       account.Role,
		Verified:   account.Verified(),
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
		LastSeenAt: issuedAt,
	}, nil
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(at time.Time) bool {
	return at.After(s.ExpiresAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext goes to the
// client; the hash is stored in the database.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code(CodeUpstream).
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashSessionToken(token)

	return token, hash, nil
}

// HashSessionToken computes the SHA-256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash. Returns
	// ErrNotFound if absent.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// UpdateLastSeen updates the LastSeenAt timestamp for a session.
	UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error

	// Delete removes a session by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteExpired removes expired sessions and returns the deleted count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionStore establishes sessions after successful logins and resolves
// presented tokens back to sessions for the gate.
type SessionStore struct {
	sessions SessionRepository
	logger   *slog.Logger
	clock    Clock
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(sessions SessionRepository, clock Clock, logger *slog.Logger) (*SessionStore, error) {
	if sessions == nil {
		return nil, oops.Errorf("session repository is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{sessions: sessions, clock: clock, logger: logger}, nil
}

// Establish creates and persists a session for the account, returning the
// session and the plaintext token for the client.
func (s *SessionStore) Establish(ctx context.Context, account *Account) (*Session, string, error) {
	token, hash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", err
	}

	now := s.clock.Now()
	session, err := NewSession(account, hash, now, now.Add(SessionTTL))
	if err != nil {
		return nil, "", err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code(CodeUpstream).
			With("operation", "persist session").
			Wrap(err)
	}

	return session, token, nil
}

// Revoke deletes the session a presented token resolves to. Unknown tokens
// are a no-op.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return oops.Code(CodeUpstream).
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		if isNotFound(err) {
			return nil
		}
		return oops.Code(CodeUpstream).
			With("operation", "delete session").
			Wrap(err)
	}

	return nil
}

// Read resolves a presented token to a live session. Unknown and expired
// tokens both return (nil, nil): an absent session, not a failure.
func (s *SessionStore) Read(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, oops.Code(CodeUpstream).
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpiredAt(s.clock.Now()) {
		return nil, nil
	}

	// Best effort; resolution succeeds regardless.
	if err := s.sessions.UpdateLastSeen(ctx, session.ID, s.clock.Now()); err != nil {
		s.logger.ErrorContext(ctx, "failed to update session last seen",
			"session_id", session.ID.String(), "error", err)
	}

	return session, nil
}
