package worker

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/moby/sys/mountinfo"

	"github.com/firefly-engineering/flatdeb/internal/errors"
	"github.com/firefly-engineering/flatdeb/internal/logging"
	"github.com/firefly-engineering/flatdeb/internal/ssh"
	"github.com/firefly-engineering/flatdeb/internal/system"
)

// isMounted reports whether a filesystem is mounted on a directory.
var isMounted = mountinfo.Mounted

// remoteScratchTemplate is passed to mktemp(1) on the remote host.
const remoteScratchTemplate = "flatdeb-worker.XXXXXX"

// SSHWorker runs commands on another machine over ssh. Every command goes
// through one control master owned by the worker, so authentication
// happens once per scope.
type SSHWorker struct {
	Scope

	local   Worker
	opts    ssh.Options
	fs      system.FileSystem
	scratch string
	mounts  int
}

// NewSSHWorker returns a worker for the host described by opts. local runs
// ssh and sshfs and must be Local; it is normally a HostWorker. A nil
// fsys selects the real filesystem.
func NewSSHWorker(local Worker, opts ssh.Options, fsys system.FileSystem) *SSHWorker {
	if fsys == nil {
		fsys = system.DefaultFS()
	}
	w := &SSHWorker{local: local, opts: opts, fs: fsys}
	w.Scope = NewScope(KindSSH.String(), w.open)
	return w
}

func (w *SSHWorker) open(ctx context.Context) error {
	if !w.local.Local() {
		return errors.ValidationError("ssh must be run by a local worker")
	}
	if err := w.local.Enter(ctx); err != nil {
		return err
	}
	w.Defer("leave "+w.local.Kind().String(), func(ctx context.Context) error {
		return w.local.Leave(ctx, nil)
	})

	w.opts = w.opts.WithControlPath(path.Join(w.local.Scratch(), "ssh.sock"))
	if err := w.local.CheckCall(ctx, w.opts.ControlMasterArgs()); err != nil {
		return err
	}
	w.Defer("stop ssh control master", func(ctx context.Context) error {
		return w.local.CheckCall(ctx, w.opts.ControlExitArgs())
	})
	logging.Layer("ssh").Info("connected", "host", w.opts.Destination())

	out, err := w.CheckOutput(ctx, []string{"mktemp", "-d", "-t", remoteScratchTemplate})
	if err != nil {
		return err
	}
	scratch := strings.TrimSpace(string(out))
	if !path.IsAbs(scratch) {
		return fmt.Errorf("mktemp on %s returned %q", w.opts.Host, scratch)
	}
	w.scratch = scratch
	w.Defer("remove "+w.opts.Host+":"+scratch, func(ctx context.Context) error {
		w.scratch = ""
		return w.CheckCall(ctx, []string{"rm", "-fr", "--one-file-system", scratch})
	})
	return nil
}

// Options returns the connection options, including the control socket
// once the worker is open.
func (w *SSHWorker) Options() ssh.Options {
	return w.opts
}

// Scratch returns a temporary directory on the remote host.
func (w *SSHWorker) Scratch() string {
	return w.scratch
}

func (w *SSHWorker) Kind() Kind {
	return KindSSH
}

func (w *SSHWorker) Local() bool {
	return false
}

// command wraps argv into an ssh invocation. The remote login shell splits
// the quoted command line back into exactly argv.
func (w *SSHWorker) command(argv []string) []string {
	logging.Command("ssh", argv)
	return w.opts.BuildArgs(shellquote.Join(argv...))
}

func (w *SSHWorker) Call(ctx context.Context, argv []string, opts ...Option) (int, error) {
	return w.local.Call(ctx, w.command(argv), opts...)
}

func (w *SSHWorker) CheckCall(ctx context.Context, argv []string, opts ...Option) error {
	status, err := w.Call(ctx, argv, opts...)
	return check(argv, status, err)
}

func (w *SSHWorker) CheckOutput(ctx context.Context, argv []string, opts ...Option) ([]byte, error) {
	out, err := w.local.CheckOutput(ctx, w.command(argv), opts...)
	if status, ok := errors.ExitStatus(err); ok {
		return nil, errors.CommandFailed(argv, status, "")
	}
	return out, err
}

// InstallFile streams source into the remote scratch directory and
// installs it from there.
func (w *SSHWorker) InstallFile(ctx context.Context, source, destination string, perm fs.FileMode) error {
	return stagedInstall(ctx, w, w.fs, source, destination, perm)
}

// RemoteDir mounts p from the remote host with sshfs. The mount is
// released by Dir.Close, or when the worker closes, whichever is first.
func (w *SSHWorker) RemoteDir(ctx context.Context, p string) (*Dir, error) {
	if w.Depth() == 0 {
		return nil, errors.ValidationError("ssh worker is not open")
	}

	mountpoint := path.Join(w.local.Scratch(), fmt.Sprintf("mnt.%d", w.mounts))
	w.mounts++
	if err := w.local.CheckCall(ctx, []string{"mkdir", mountpoint}); err != nil {
		return nil, err
	}

	release := func(ctx context.Context) error {
		if err := w.local.CheckCall(ctx, []string{"fusermount", "-u", mountpoint}); err != nil {
			return err
		}
		return w.removeMountpoint(ctx, mountpoint)
	}

	if err := w.local.CheckCall(ctx, w.opts.SSHFSArgs(p, mountpoint)); err != nil {
		return nil, joinCleanup(err, w.removeMountpoint(context.WithoutCancel(ctx), mountpoint))
	}
	mounted, err := isMounted(mountpoint)
	if err == nil && !mounted {
		err = fmt.Errorf("sshfs exited but nothing is mounted on %s", mountpoint)
	}
	if err != nil {
		return nil, joinCleanup(err, release(context.WithoutCancel(ctx)))
	}

	logging.Layer("ssh").Info("mounted remote directory", "remote", w.opts.Host+":"+p, "path", mountpoint)
	dir := newDir(mountpoint, release)
	w.Defer("unmount "+mountpoint, func(ctx context.Context) error {
		return dir.Close()
	})
	return dir, nil
}

// removeMountpoint deletes an empty mount point. rmdir refuses to descend
// into a still-mounted remote tree, but the explicit check gives a
// clearer error.
func (w *SSHWorker) removeMountpoint(ctx context.Context, mountpoint string) error {
	mounted, err := isMounted(mountpoint)
	if err != nil {
		return err
	}
	if mounted {
		return fmt.Errorf("%s is still mounted", mountpoint)
	}
	return w.local.CheckCall(ctx, []string{"rmdir", mountpoint})
}

var _ Worker = (*SSHWorker)(nil)
