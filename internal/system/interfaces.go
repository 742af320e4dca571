// Package system provides abstractions for OS operations to enable testing.
package system

import (
	"context"
	"io"
	"os"
)

// Process describes one child process invocation.
type Process struct {
	// Argv is the program followed by its arguments. Argv[0] is resolved
	// through $PATH.
	Argv []string

	// Stdin, Stdout and Stderr are connected to the child when non-nil.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Env holds KEY=VALUE overrides added on top of the parent environment.
	Env []string
}

// FileSystem abstracts the file system operations workers perform on the
// local machine.
type FileSystem interface {
	// MkdirTemp creates a new uniquely named directory, as os.MkdirTemp.
	MkdirTemp(dir, pattern string) (string, error)

	// RemoveAll removes path and any children it contains.
	// A missing path is not an error.
	RemoveAll(path string) error

	// Open opens the named file for reading.
	Open(path string) (io.ReadCloser, error)

	// Create creates or truncates the named file for writing.
	Create(path string) (io.WriteCloser, error)
}

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// Run runs the process to completion and returns its exit status.
	// A nonzero status is not an error; err is set only when the process
	// could not be started, was killed by a signal, or ctx was cancelled.
	Run(ctx context.Context, p *Process) (int, error)
}

// Default instances using real OS operations.
var (
	defaultFS       FileSystem      = &osFileSystem{}
	defaultExecutor CommandExecutor = &osExecutor{}
)

// DefaultFS returns the default FileSystem implementation using real OS operations.
func DefaultFS() FileSystem {
	return defaultFS
}

// DefaultExecutor returns the default CommandExecutor implementation.
func DefaultExecutor() CommandExecutor {
	return defaultExecutor
}

// SetDefaultFS sets the default FileSystem (useful for testing).
func SetDefaultFS(fs FileSystem) {
	defaultFS = fs
}

// SetDefaultExecutor sets the default CommandExecutor (useful for testing).
func SetDefaultExecutor(exec CommandExecutor) {
	defaultExecutor = exec
}

// ResetDefaults restores the default OS implementations.
func ResetDefaults() {
	defaultFS = &osFileSystem{}
	defaultExecutor = &osExecutor{}
}

// osFileSystem implements FileSystem using real OS operations.
type osFileSystem struct{}

func (f *osFileSystem) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

func (f *osFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (f *osFileSystem) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (f *osFileSystem) Create(path string) (io.WriteCloser, error) {
	return os.Create(path)
}
