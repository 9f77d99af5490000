// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoplace/internal/store"
	"github.com/holomush/holoplace/pkg/errutil"
)

// fakeMigrator records the calls made by the migrate subcommands.
type fakeMigrator struct {
	calls    []string
	steps    []int
	forced   []int
	status   *store.MigrationStatus
	err      error
	closeErr error
}

func (m *fakeMigrator) Up() error {
	m.calls = append(m.calls, "up")
	return m.err
}

func (m *fakeMigrator) Down() error {
	m.calls = append(m.calls, "down")
	return m.err
}

func (m *fakeMigrator) Steps(n int) error {
	m.calls = append(m.calls, "steps")
	m.steps = append(m.steps, n)
	return m.err
}

func (m *fakeMigrator) Force(version int) error {
	m.calls = append(m.calls, "force")
	m.forced = append(m.forced, version)
	return m.err
}

func (m *fakeMigrator) Status() (*store.MigrationStatus, error) {
	m.calls = append(m.calls, "status")
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
}

func (m *fakeMigrator) Close() error {
	m.calls = append(m.calls, "close")
	return m.closeErr
}

func migratorDeps(m *fakeMigrator) *Deps {
	return &Deps{
		MigratorFactory: func(url string) (Migrator, error) {
			if url != testDatabaseURL {
				return nil, errors.New("unexpected url " + url)
			}
			return m, nil
		},
		Getenv: envWithDatabase(testDatabaseURL),
	}
}

func TestMigrateUp(t *testing.T) {
	m := &fakeMigrator{}
	stdout, _, err := execute(t, migratorDeps(m), "migrate", "up")
	require.NoError(t, err)

	assert.Equal(t, []string{"up", "close"}, m.calls)
	assert.Contains(t, stdout, "Migrations completed successfully")
}

func TestMigrateUp_Failure(t *testing.T) {
	m := &fakeMigrator{err: errors.New("dirty database")}
	_, _, err := execute(t, migratorDeps(m), "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty database")
	assert.Equal(t, []string{"up", "close"}, m.calls, "migrator is closed on failure")
}

func TestMigrateDown(t *testing.T) {
	t.Run("one step", func(t *testing.T) {
		m := &fakeMigrator{}
		stdout, _, err := execute(t, migratorDeps(m), "migrate", "down")
		require.NoError(t, err)
		assert.Equal(t, []int{-1}, m.steps)
		assert.Contains(t, stdout, "Rolling back one migration")
	})

	t.Run("all", func(t *testing.T) {
		m := &fakeMigrator{}
		stdout, _, err := execute(t, migratorDeps(m), "migrate", "down", "--all")
		require.NoError(t, err)
		assert.Equal(t, []string{"down", "close"}, m.calls)
		assert.Contains(t, stdout, "Rolling back all migrations")
	})
}

func TestMigrateStatus(t *testing.T) {
	m := &fakeMigrator{status: &store.MigrationStatus{
		Version: 2,
		Name:    "purchases",
		Applied: []uint{1, 2},
		Pending: []uint{3},
	}}
	stdout, _, err := execute(t, migratorDeps(m), "migrate", "status")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Version: 2 (purchases)")
	assert.Contains(t, stdout, "Dirty:   false")
	assert.Contains(t, stdout, "Applied: 000001, 000002")
	assert.Contains(t, stdout, "Pending: 000003")
}

func TestMigrateStatus_Empty(t *testing.T) {
	m := &fakeMigrator{status: &store.MigrationStatus{Pending: []uint{1}}}
	stdout, _, err := execute(t, migratorDeps(m), "migrate", "status")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Version: 0 (none)")
	assert.Contains(t, stdout, "Applied: none")
}

func TestMigrateForce(t *testing.T) {
	m := &fakeMigrator{}
	stdout, _, err := execute(t, migratorDeps(m), "migrate", "force", "3")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, m.forced)
	assert.Contains(t, stdout, "Forced schema version to 3")

	m = &fakeMigrator{}
	_, _, err = execute(t, migratorDeps(m), "migrate", "force", "abc")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
	assert.Empty(t, m.calls, "no migrator is opened for an invalid version")
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	m := &fakeMigrator{}
	deps := migratorDeps(m)
	deps.Getenv = envWithDatabase("")

	_, _, err := execute(t, deps, "migrate", "up")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	assert.Empty(t, m.calls)
}

func TestMigrate_FactoryFailure(t *testing.T) {
	deps := &Deps{
		MigratorFactory: func(string) (Migrator, error) { return nil, errors.New("no route to host") },
		Getenv:          envWithDatabase(testDatabaseURL),
	}

	_, _, err := execute(t, deps, "migrate", "status")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_FAILED")
}

func TestMigrate_CloseErrorSurfaces(t *testing.T) {
	m := &fakeMigrator{closeErr: errors.New("close failed")}
	_, _, err := execute(t, migratorDeps(m), "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close failed")
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "negative is valid", input: "-1", wantVersion: -1},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "non-numeric returns error", input: "abc", wantErr: true},
		{name: "empty string returns error", input: "", wantErr: true},
		{name: "whitespace only returns error", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				assert.Equal(t, 0, version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}
