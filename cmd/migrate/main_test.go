package main

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	forced  int
	version uint
	dirty   bool
	verErr  error
}

func (f *fakeMigrator) Up() error               { return f.upErr }
func (f *fakeMigrator) Steps(n int) error       { f.steps = append(f.steps, n); return nil }
func (f *fakeMigrator) Force(version int) error { f.forced = version; return nil }
func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, f.dirty, f.verErr
}

func TestRunUpTreatsNoChangeAsSuccess(t *testing.T) {
	msg, err := run(&fakeMigrator{upErr: migrate.ErrNoChange}, nil)
	require.NoError(t, err)
	assert.Equal(t, "migrations complete", msg)

	_, err = run(&fakeMigrator{upErr: errors.New("boom")}, []string{"up"})
	assert.Error(t, err)
}

func TestRunDown(t *testing.T) {
	m := &fakeMigrator{}
	_, err := run(m, []string{"down"})
	require.NoError(t, err)
	_, err = run(m, []string{"down", "2"})
	require.NoError(t, err)
	assert.Equal(t, []int{-1, -2}, m.steps)

	_, err = run(m, []string{"down", "zero"})
	assert.Error(t, err)
}

func TestRunForce(t *testing.T) {
	m := &fakeMigrator{}
	msg, err := run(m, []string{"force", "3"})
	require.NoError(t, err)
	assert.Equal(t, 3, m.forced)
	assert.Equal(t, "forced version to 3", msg)

	_, err = run(m, []string{"force"})
	assert.Error(t, err)
}

func TestRunVersion(t *testing.T) {
	msg, err := run(&fakeMigrator{version: 1}, []string{"version"})
	require.NoError(t, err)
	assert.Equal(t, "version 1 (dirty=false)", msg)

	_, err = run(&fakeMigrator{verErr: migrate.ErrNilVersion}, []string{"version"})
	assert.NoError(t, err)
}

func TestRunUnknownCommand(t *testing.T) {
	_, err := run(&fakeMigrator{}, []string{"sideways"})
	assert.Error(t, err)
}
