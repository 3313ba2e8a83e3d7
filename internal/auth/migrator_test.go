// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/Muggles200/InvoiceMarshal/internal/auth"
	"github.com/Muggles200/InvoiceMarshal/internal/auth/mocks"
)

func TestHashMigrator_MaybeUpgrade(t *testing.T) {
	ctx := context.Background()

	t.Run("upgrades a valid legacy credential", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		migrator, err := auth.NewHashMigrator(accounts, hasher, nil)
		require.NoError(t, err)

		accountID := ulid.Make()
		hasher.On("Hash", "password123").Return("$argon2id$new-hash", nil)
		accounts.On("UpdatePasswordHash", ctx, accountID, "$argon2id$new-hash").Return(nil)

		migrator.MaybeUpgrade(ctx, accountID, "password123", auth.VerifyResult{
			Valid:  true,
			Scheme: auth.SchemeLegacy,
		})
	})

	t.Run("no-op for current scheme", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		migrator, err := auth.NewHashMigrator(accounts, hasher, nil)
		require.NoError(t, err)

		// No expectations: neither hashing nor persistence may run.
		migrator.MaybeUpgrade(ctx, ulid.Make(), "password123", auth.VerifyResult{
			Valid:  true,
			Scheme: auth.SchemeCurrent,
		})
	})

	t.Run("no-op for invalid legacy credential", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		migrator, err := auth.NewHashMigrator(accounts, hasher, nil)
		require.NoError(t, err)

		migrator.MaybeUpgrade(ctx, ulid.Make(), "wrongpassword", auth.VerifyResult{
			Valid:  false,
			Scheme: auth.SchemeLegacy,
		})
	})

	t.Run("rehash failure is swallowed", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		migrator, err := auth.NewHashMigrator(accounts, hasher, nil)
		require.NoError(t, err)

		hasher.On("Hash", "password123").Return("", errors.New("entropy exhausted"))

		// Must not panic; the login that triggered this already succeeded.
		migrator.MaybeUpgrade(ctx, ulid.Make(), "password123", auth.VerifyResult{
			Valid:  true,
			Scheme: auth.SchemeLegacy,
		})
	})

	t.Run("persist failure is swallowed and keeps the legacy hash", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		migrator, err := auth.NewHashMigrator(accounts, hasher, nil)
		require.NoError(t, err)

		accountID := ulid.Make()
		hasher.On("Hash", "password123").Return("$argon2id$new-hash", nil)
		accounts.On("UpdatePasswordHash", ctx, accountID, "$argon2id$new-hash").
			Return(errors.New("connection refused"))

		migrator.MaybeUpgrade(ctx, accountID, "password123", auth.VerifyResult{
			Valid:  true,
			Scheme: auth.SchemeLegacy,
		})
	})
}

func TestNewHashMigrator_Validation(t *testing.T) {
	hasher := mocks.NewMockPasswordHasher(t)
	accounts := mocks.NewMockAccountRepository(t)

	_, err := auth.NewHashMigrator(nil, hasher, nil)
	require.Error(t, err)

	_, err = auth.NewHashMigrator(accounts, nil, nil)
	require.Error(t, err)
}
