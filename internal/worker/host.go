package worker

import (
	"bytes"
	"context"
	"io/fs"

	"github.com/firefly-engineering/flatdeb/internal/errors"
	"github.com/firefly-engineering/flatdeb/internal/logging"
	"github.com/firefly-engineering/flatdeb/internal/system"
)

// HostWorker runs commands on the local machine as the calling user.
type HostWorker struct {
	Scope

	exec    system.CommandExecutor
	fs      system.FileSystem
	scratch string
}

// NewHostWorker returns a worker for the local machine. nil arguments
// select the real OS implementations.
func NewHostWorker(executor system.CommandExecutor, fsys system.FileSystem) *HostWorker {
	if executor == nil {
		executor = system.DefaultExecutor()
	}
	if fsys == nil {
		fsys = system.DefaultFS()
	}
	w := &HostWorker{exec: executor, fs: fsys}
	w.Scope = NewScope(KindHost.String(), w.open)
	return w
}

func (w *HostWorker) open(ctx context.Context) error {
	dir, err := w.fs.MkdirTemp("", "flatdeb-host.")
	if err != nil {
		return err
	}
	w.scratch = dir
	logging.Layer("host").Debug("created scratch directory", "path", dir)

	w.Defer("remove "+dir, func(ctx context.Context) error {
		w.scratch = ""
		return w.fs.RemoveAll(dir)
	})
	return nil
}

// Scratch returns the worker's temporary directory.
func (w *HostWorker) Scratch() string {
	return w.scratch
}

func (w *HostWorker) Kind() Kind {
	return KindHost
}

func (w *HostWorker) Local() bool {
	return true
}

func (w *HostWorker) Call(ctx context.Context, argv []string, opts ...Option) (int, error) {
	logging.Command("host", argv)
	return w.exec.Run(ctx, collect(opts).process(argv))
}

func (w *HostWorker) CheckCall(ctx context.Context, argv []string, opts ...Option) error {
	status, err := w.Call(ctx, argv, opts...)
	return check(argv, status, err)
}

func (w *HostWorker) CheckOutput(ctx context.Context, argv []string, opts ...Option) ([]byte, error) {
	o := collect(opts)
	if o.Stdout != nil {
		return nil, errors.ValidationError("CheckOutput captures stdout; WithStdout is not allowed")
	}

	var stdout bytes.Buffer
	o.Stdout = &stdout
	logging.Command("host", argv)
	status, err := w.exec.Run(ctx, o.process(argv))
	if err := check(argv, status, err); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (w *HostWorker) InstallFile(ctx context.Context, source, destination string, perm fs.FileMode) error {
	return w.CheckCall(ctx, []string{"install", "-m" + modeArg(perm), source, destination})
}

// RemoteDir returns path unchanged; the host's namespace is already local.
func (w *HostWorker) RemoteDir(ctx context.Context, path string) (*Dir, error) {
	return newDir(path, nil), nil
}

var _ Worker = (*HostWorker)(nil)
