package worker

import (
	"context"
	"io/fs"
	"path"

	"github.com/firefly-engineering/flatdeb/internal/logging"
	"github.com/firefly-engineering/flatdeb/internal/system"
)

// ManifestPath is where WriteManifest records the installed packages.
const ManifestPath = "/usr/manifest.dpkg"

// manifestFormat is the dpkg-query -f format for the package manifest.
const manifestFormat = `${binary:Package}\t${Version}\t${source:Package}\t${source:Version}\t${Installed-Size}\t${Status}\n`

// NspawnWorker runs commands inside a directory tree with systemd-nspawn.
// It has no resources of its own: the tree belongs to whichever worker
// created it, and inner must be able to run systemd-nspawn (normally a
// SudoWorker).
type NspawnWorker struct {
	Scope

	inner Worker
	root  string
	env   []string
	fs    system.FileSystem
}

// NewNspawnWorker wraps inner to run commands in root. env holds
// KEY=VALUE assignments passed to every command. A nil fsys selects the
// real filesystem.
func NewNspawnWorker(inner Worker, root string, env []string, fsys system.FileSystem) *NspawnWorker {
	if fsys == nil {
		fsys = system.DefaultFS()
	}
	w := &NspawnWorker{
		inner: inner,
		root:  path.Clean(root),
		env:   append([]string(nil), env...),
		fs:    fsys,
	}
	w.Scope = NewScope(KindNspawn.String(), nil)
	return w
}

// Root returns the directory used as the container's root.
func (w *NspawnWorker) Root() string {
	return w.root
}

// Prefix returns the argv prefix that enters the container.
func (w *NspawnWorker) Prefix() []string {
	prefix := []string{
		"systemd-nspawn",
		"--directory=" + w.root,
		"--as-pid2",
		"env",
	}
	return append(prefix, w.env...)
}

// Scratch returns "": the container shares the scratch space of no one.
func (w *NspawnWorker) Scratch() string {
	return ""
}

func (w *NspawnWorker) Kind() Kind {
	return KindNspawn
}

func (w *NspawnWorker) Local() bool {
	return w.inner.Local()
}

func (w *NspawnWorker) Call(ctx context.Context, argv []string, opts ...Option) (int, error) {
	logging.Command("nspawn", argv)
	return w.inner.Call(ctx, prepend(w.Prefix(), argv), opts...)
}

func (w *NspawnWorker) CheckCall(ctx context.Context, argv []string, opts ...Option) error {
	logging.Command("nspawn", argv)
	return w.inner.CheckCall(ctx, prepend(w.Prefix(), argv), opts...)
}

func (w *NspawnWorker) CheckOutput(ctx context.Context, argv []string, opts ...Option) ([]byte, error) {
	logging.Command("nspawn", argv)
	return w.inner.CheckOutput(ctx, prepend(w.Prefix(), argv), opts...)
}

// InstallFile installs source at destination inside the container tree,
// reusing the inner worker's install mechanism. The destination is mapped
// lexically: a symlink at destination is replaced, not followed, and
// directories the caller cannot read are left to the inner worker.
func (w *NspawnWorker) InstallFile(ctx context.Context, source, destination string, perm fs.FileMode) error {
	target, err := ContainedPath(w.root, destination, false)
	if err != nil {
		return err
	}
	return w.inner.InstallFile(ctx, source, target, perm)
}

// RemoteDir exposes a directory of the container tree through the inner
// worker. When the tree is local, symlinks in p are resolved inside it,
// since the caller reads the result directly.
func (w *NspawnWorker) RemoteDir(ctx context.Context, p string) (*Dir, error) {
	target, err := ContainedPath(w.root, p, w.inner.Local())
	if err != nil {
		return nil, err
	}
	return w.inner.RemoteDir(ctx, target)
}

// WriteManifest records the packages installed in the container in
// ManifestPath, one tab-separated line per package.
func (w *NspawnWorker) WriteManifest(ctx context.Context) (err error) {
	dir, err := w.fs.MkdirTemp("", "flatdeb-manifest.")
	if err != nil {
		return err
	}
	defer func() {
		err = joinCleanup(err, w.fs.RemoveAll(dir))
	}()

	manifest := path.Join(dir, "manifest")
	out, err := w.fs.Create(manifest)
	if err != nil {
		return err
	}
	err = w.CheckCall(ctx, []string{"dpkg-query", "-W", "-f", manifestFormat}, WithStdout(out))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	return w.InstallFile(ctx, manifest, ManifestPath, DefaultFileMode)
}

var _ Worker = (*NspawnWorker)(nil)
