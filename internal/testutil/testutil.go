// Package testutil provides test utilities for command tests
package testutil

import (
	"slices"
	"testing"

	"github.com/firefly-engineering/flatdeb/internal/app"
	"github.com/firefly-engineering/flatdeb/internal/system"
)

// TestEnv holds the test environment
type TestEnv struct {
	T        *testing.T
	Executor *system.MockExecutor
	FS       *system.MockFS
	App      *app.App
}

// NewTestEnv installs an app backed by a mock executor and filesystem as
// app.Default, makes the same mocks the system defaults, and points the XDG directories at empty temporary
// directories so no user configuration is picked up. The previous default
// is restored when the test finishes.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	exec := system.NewMockExecutor()
	fs := system.NewMockFS()
	testApp := app.New(
		app.WithExecutor(exec),
		app.WithFS(fs),
	)

	// Save original default and set test app
	originalDefault := app.Default
	app.SetDefault(testApp)
	t.Cleanup(func() { app.SetDefault(originalDefault) })

	system.SetDefaultExecutor(exec)
	system.SetDefaultFS(fs)
	t.Cleanup(system.ResetDefaults)

	return &TestEnv{
		T:        t,
		Executor: exec,
		FS:       fs,
		App:      testApp,
	}
}

// Ran reports whether argv was executed.
func (e *TestEnv) Ran(argv ...string) bool {
	for _, got := range e.Executor.Argvs() {
		if slices.Equal(got, argv) {
			return true
		}
	}
	return false
}

// AssertRan fails the test unless argv was executed.
func (e *TestEnv) AssertRan(argv ...string) {
	e.T.Helper()
	if !e.Ran(argv...) {
		e.T.Errorf("commands = %q, want %q", e.Executor.Argvs(), argv)
	}
}
