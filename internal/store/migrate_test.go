// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMigrate records calls and returns configured errors.
type fakeMigrate struct {
	upErr      error
	downErr    error
	versionErr error
	version    uint
	dirty      bool
	sourceErr  error
	dbErr      error
}

func (f *fakeMigrate) Up() error   { return f.upErr }
func (f *fakeMigrate) Down() error { return f.downErr }
func (f *fakeMigrate) Version() (uint, bool, error) {
	return f.version, f.dirty, f.versionErr
}
func (f *fakeMigrate) Close() (error, error) { return f.sourceErr, f.dbErr }

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	// Every up migration needs a matching down migration.
	ups := 0
	downs := 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
	assert.Positive(t, ups)
}

func TestMigrator_Up(t *testing.T) {
	t.Run("applies pending migrations", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{}}
		require.NoError(t, m.Up())
	})

	t.Run("no change is not an error", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{upErr: migrate.ErrNoChange}}
		require.NoError(t, m.Up())
	})

	t.Run("other errors propagate", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{upErr: errors.New("syntax error")}}
		require.Error(t, m.Up())
	})
}

func TestMigrator_Down(t *testing.T) {
	t.Run("rolls back migrations", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{}}
		require.NoError(t, m.Down())
	})

	t.Run("no change is not an error", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{downErr: migrate.ErrNoChange}}
		require.NoError(t, m.Down())
	})

	t.Run("other errors propagate", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{downErr: errors.New("locked")}}
		require.Error(t, m.Down())
	})
}

func TestMigrator_Version(t *testing.T) {
	t.Run("reports current version", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{version: 1}}
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)
		assert.False(t, dirty)
	})

	t.Run("fresh database reports zero", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{versionErr: migrate.ErrNilVersion}}
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(0), version)
		assert.False(t, dirty)
	})

	t.Run("other errors propagate", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{versionErr: errors.New("connection closed")}}
		_, _, err := m.Version()
		require.Error(t, err)
	})
}

func TestMigrator_Close(t *testing.T) {
	t.Run("clean close", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{}}
		require.NoError(t, m.Close())
	})

	t.Run("source error propagates", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{sourceErr: errors.New("already closed")}}
		require.Error(t, m.Close())
	})

	t.Run("database error propagates", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{dbErr: errors.New("already closed")}}
		require.Error(t, m.Close())
	})
}
