package worker

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/firefly-engineering/flatdeb/internal/errors"
)

// DefaultFileMode is the permission InstallFile callers normally use.
const DefaultFileMode fs.FileMode = 0o644

// Kind identifies one of the closed set of worker variants.
type Kind int

const (
	KindHost Kind = iota
	KindSudo
	KindNspawn
	KindSSH
)

func (k Kind) String() string {
	switch k {
	case KindHost:
		return "host"
	case KindSudo:
		return "sudo"
	case KindNspawn:
		return "nspawn"
	case KindSSH:
		return "ssh"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Worker is a place, at some privilege level, where commands execute.
type Worker interface {
	// Enter opens the worker. Only the outermost Enter acquires resources.
	Enter(ctx context.Context) error

	// Leave closes one level of nesting. The outermost Leave releases every
	// resource acquired by Enter. err is the outcome of the body the scope
	// protected; it is returned, joined with any cleanup failure.
	Leave(ctx context.Context, err error) error

	// Call runs argv and returns its exit status. err is set only when the
	// command could not be run at all, or did not exit on its own: a
	// child killed by a signal is reported as an error with status -1,
	// not as a negative status.
	Call(ctx context.Context, argv []string, opts ...Option) (int, error)

	// CheckCall runs argv and fails if it exits nonzero.
	CheckCall(ctx context.Context, argv []string, opts ...Option) error

	// CheckOutput runs argv, fails if it exits nonzero, and returns its
	// standard output.
	CheckOutput(ctx context.Context, argv []string, opts ...Option) ([]byte, error)

	// InstallFile copies a file readable by the calling process to
	// destination in the worker's namespace, with permissions perm.
	InstallFile(ctx context.Context, source, destination string, perm fs.FileMode) error

	// RemoteDir makes path, in the worker's namespace, available as a
	// local directory until the returned Dir is closed.
	RemoteDir(ctx context.Context, path string) (*Dir, error)

	// Scratch returns a directory private to this worker. It is only
	// valid while the worker is open; workers without one return "".
	Scratch() string

	// Kind returns the variant tag.
	Kind() Kind

	// Local reports whether paths in the worker's namespace can be
	// accessed directly by the calling process.
	Local() bool
}

// Dir is a directory exposed by RemoteDir.
type Dir struct {
	// Path is the locally addressable path.
	Path string

	once    sync.Once
	release func(ctx context.Context) error
	err     error
}

func newDir(path string, release func(ctx context.Context) error) *Dir {
	return &Dir{Path: path, release: release}
}

// Close releases the directory. It is safe to call more than once; only
// the first call does any work.
func (d *Dir) Close() error {
	d.once.Do(func() {
		if d.release != nil {
			d.err = d.release(context.Background())
		}
	})
	return d.err
}

// With opens w, runs fn and closes w again. w is closed even if fn fails
// or panics.
func With(ctx context.Context, w Worker, fn func() error) (err error) {
	if err := w.Enter(ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = w.Leave(ctx, fmt.Errorf("panic: %v", r))
			panic(r)
		}
		err = w.Leave(ctx, err)
	}()
	return fn()
}

// WithRemoteDir exposes path through w for the duration of fn. The
// directory is released whether or not fn fails.
func WithRemoteDir(ctx context.Context, w Worker, path string, fn func(dir string) error) (err error) {
	dir, err := w.RemoteDir(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = dir.Close()
			panic(r)
		}
		err = joinCleanup(err, dir.Close())
	}()
	return fn(dir.Path)
}

// check converts the result of Call into the result of CheckCall.
func check(argv []string, status int, err error) error {
	if err != nil {
		return err
	}
	if status != 0 {
		return errors.CommandFailed(argv, status, "")
	}
	return nil
}

// joinCleanup keeps err first so its exit code wins, and returns err
// itself when there is nothing to add.
func joinCleanup(err, cleanupErr error) error {
	if cleanupErr == nil {
		return err
	}
	if err == nil {
		return cleanupErr
	}
	return errors.Join(err, cleanupErr)
}

// modeArg renders perm the way install(1) expects it, e.g. "644".
func modeArg(perm fs.FileMode) string {
	return fmt.Sprintf("%o", perm.Perm())
}

func prepend(prefix, argv []string) []string {
	out := make([]string, 0, len(prefix)+len(argv))
	out = append(out, prefix...)
	return append(out, argv...)
}
