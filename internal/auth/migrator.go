// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// HashMigrator transparently upgrades legacy password hashes after a
// successful verification. Subsequent logins detect the current scheme and
// skip migration, so the effect is idempotent.
type HashMigrator struct {
	accounts AccountRepository
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewHashMigrator creates a HashMigrator.
func NewHashMigrator(accounts AccountRepository, hasher PasswordHasher, logger *slog.Logger) (*HashMigrator, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HashMigrator{accounts: accounts, hasher: hasher, logger: logger}, nil
}

// MaybeUpgrade rehashes the presented password under the current scheme and
// persists it, but only when verification succeeded under the legacy scheme.
// Failures are logged and swallowed: verification already succeeded this
// time, and the legacy hash remains valid for future attempts.
func (m *HashMigrator) MaybeUpgrade(ctx context.Context, accountID ulid.ULID, password string, result VerifyResult) {
	if !result.Valid || result.Scheme != SchemeLegacy {
		return
	}

	newHash, err := m.hasher.Hash(password)
	if err != nil {
		m.logger.ErrorContext(ctx, "hash upgrade failed",
			"account_id", accountID.String(),
			"from_scheme", result.Scheme.String(),
			"error", err)
		return
	}

	if err := m.accounts.UpdatePasswordHash(ctx, accountID, newHash); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist upgraded hash",
			"account_id", accountID.String(),
			"from_scheme", result.Scheme.String(),
			"error", err)
		return
	}

	HashMigrations.Inc()
	m.logger.InfoContext(ctx, "password hash upgraded",
		"account_id", accountID.String(),
		"from_scheme", result.Scheme.String())
}
