package worker

import (
	"context"
	"io/fs"
	"path"

	"github.com/firefly-engineering/flatdeb/internal/logging"
	"github.com/firefly-engineering/flatdeb/internal/system"
)

// SudoPrefix runs the rest of argv as root: the caller's environment is
// dropped, sudo never prompts, and HOME is root's.
var SudoPrefix = []string{"env", "-", "/usr/bin/sudo", "-n", "-H"}

// SudoWorker runs commands as root on whatever machine inner runs them on.
type SudoWorker struct {
	Scope

	inner   Worker
	fs      system.FileSystem
	scratch string
}

// NewSudoWorker wraps inner. A nil fsys selects the real filesystem; it
// is only used to read source files for InstallFile.
func NewSudoWorker(inner Worker, fsys system.FileSystem) *SudoWorker {
	if fsys == nil {
		fsys = system.DefaultFS()
	}
	w := &SudoWorker{inner: inner, fs: fsys}
	w.Scope = NewScope(KindSudo.String(), w.open)
	return w
}

func (w *SudoWorker) open(ctx context.Context) error {
	if err := w.inner.Enter(ctx); err != nil {
		return err
	}
	w.Defer("leave "+w.inner.Kind().String(), func(ctx context.Context) error {
		return w.inner.Leave(ctx, nil)
	})

	// Created by the unprivileged inner worker so it sits in the inner
	// scratch space, but removed as root: files written there by root
	// cannot be deleted by the inner identity.
	scratch := path.Join(w.inner.Scratch(), "root")
	if err := w.inner.CheckCall(ctx, []string{"mkdir", scratch}); err != nil {
		return err
	}
	w.scratch = scratch
	w.Defer("remove "+scratch, func(ctx context.Context) error {
		w.scratch = ""
		return w.CheckCall(ctx, []string{"rm", "-fr", "--one-file-system", scratch})
	})
	return nil
}

// Scratch returns a directory inside the inner worker's scratch space.
func (w *SudoWorker) Scratch() string {
	return w.scratch
}

func (w *SudoWorker) Kind() Kind {
	return KindSudo
}

func (w *SudoWorker) Local() bool {
	return w.inner.Local()
}

func (w *SudoWorker) Call(ctx context.Context, argv []string, opts ...Option) (int, error) {
	logging.Command("sudo", argv)
	return w.inner.Call(ctx, prepend(SudoPrefix, argv), opts...)
}

func (w *SudoWorker) CheckCall(ctx context.Context, argv []string, opts ...Option) error {
	logging.Command("sudo", argv)
	return w.inner.CheckCall(ctx, prepend(SudoPrefix, argv), opts...)
}

func (w *SudoWorker) CheckOutput(ctx context.Context, argv []string, opts ...Option) ([]byte, error) {
	logging.Command("sudo", argv)
	return w.inner.CheckOutput(ctx, prepend(SudoPrefix, argv), opts...)
}

// InstallFile copies source to destination as root. root may not be able
// to read source (home directories on NFS, FUSE mounts), so the data is
// streamed through a root-owned receiver into the scratch directory and
// moved from there.
func (w *SudoWorker) InstallFile(ctx context.Context, source, destination string, perm fs.FileMode) error {
	return stagedInstall(ctx, w, w.fs, source, destination, perm)
}

// RemoteDir delegates to the inner worker; sudo does not change the
// filesystem namespace.
func (w *SudoWorker) RemoteDir(ctx context.Context, path string) (*Dir, error) {
	return w.inner.RemoteDir(ctx, path)
}

var _ Worker = (*SudoWorker)(nil)
