package worker

import (
	"context"
	stderrors "errors"
	"slices"
	"testing"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/flatdeb/internal/errors"
	"github.com/firefly-engineering/flatdeb/internal/ssh"
	"github.com/firefly-engineering/flatdeb/internal/system"
)

const (
	testSock          = "/tmp/flatdeb-host.1/ssh.sock"
	testRemoteScratch = "/tmp/flatdeb-worker.abc123"
)

// fakeMounts replaces isMounted with one that derives the mount table
// from the successful sshfs and fusermount commands recorded by exec.
func fakeMounts(t *testing.T, exec *system.MockExecutor) {
	t.Helper()
	orig := isMounted
	t.Cleanup(func() { isMounted = orig })

	isMounted = func(p string) (bool, error) {
		mounted := false
		for _, c := range exec.Commands {
			argv := c.Argv
			switch {
			case c.ExitStatus != 0:
			case len(argv) == 3 && argv[0] == "fusermount" && argv[2] == p:
				mounted = false
			case len(argv) >= 3 && argv[0] == "sshfs" && argv[2] == p:
				mounted = true
			}
		}
		return mounted, nil
	}
}

func newTestSSH(t *testing.T) (*SSHWorker, *HostWorker, *system.MockExecutor, *system.MockFS) {
	t.Helper()
	host, exec, fsys := newTestHost(t)
	exec.AddResponse("ssh", []byte(testRemoteScratch+"\n"), 0)
	fakeMounts(t, exec)
	w := NewSSHWorker(host, ssh.Options{Host: "builder", User: "deb"}, fsys)
	return w, host, exec, fsys
}

// remote returns the ssh argv that runs argv on the test host.
func remote(argv ...string) []string {
	return []string{"ssh", "-S", testSock, "deb@builder", "--", shellquote.Join(argv...)}
}

func TestSSHWorker_Lifecycle(t *testing.T) {
	ctx := context.Background()
	w, host, exec, fsys := newTestSSH(t)

	enter(t, w)
	if w.Scratch() != testRemoteScratch {
		t.Errorf("Scratch() = %q, want %q", w.Scratch(), testRemoteScratch)
	}
	if w.Options().ControlPath != testSock {
		t.Errorf("ControlPath = %q, want %q", w.Options().ControlPath, testSock)
	}
	if err := w.Leave(ctx, nil); err != nil {
		t.Fatalf("Leave error: %v", err)
	}

	want := [][]string{
		{"ssh", "-S", testSock, "-M", "-f", "-N", "deb@builder"},
		remote("mktemp", "-d", "-t", "flatdeb-worker.XXXXXX"),
		remote("rm", "-fr", "--one-file-system", testRemoteScratch),
		{"ssh", "-S", testSock, "-O", "exit", "deb@builder"},
	}
	if got := exec.Argvs(); !slices.EqualFunc(got, want, slices.Equal[[]string]) {
		t.Errorf("commands = %q, want %q", got, want)
	}
	if host.Depth() != 0 || !slices.Equal(fsys.Removed, []string{"/tmp/flatdeb-host.1"}) {
		t.Errorf("host not released: depth %d, removed %v", host.Depth(), fsys.Removed)
	}
}

func TestSSHWorker_QuotedArgvRoundTrips(t *testing.T) {
	ctx := context.Background()
	w, _, exec, _ := newTestSSH(t)

	argvs := [][]string{
		{"id"},
		{"sh", "-c", `echo "$HOME" > '/tmp/a b'`},
		{"printf", "%s\\n", "semi;colon", "glob*", "it's"},
	}

	for _, argv := range argvs {
		exec.Reset()
		if _, err := w.Call(ctx, argv); err != nil {
			t.Fatalf("Call error: %v", err)
		}
		cmd, _ := exec.LastCommand()
		if cmd.Argv[len(cmd.Argv)-2] != "--" {
			t.Fatalf("argv = %q, want -- before the command line", cmd.Argv)
		}
		split, err := shellquote.Split(cmd.Argv[len(cmd.Argv)-1])
		if err != nil {
			t.Fatalf("Split error: %v", err)
		}
		if !slices.Equal(split, argv) {
			t.Errorf("remote shell sees %q, want %q", split, argv)
		}
	}
}

func TestSSHWorker_CheckCallReportsRemoteArgv(t *testing.T) {
	w, _, exec, _ := newTestSSH(t)
	enter(t, w)
	exec.AddResponse("ssh -S "+testSock+" deb@builder --", nil, 1)

	err := w.CheckCall(context.Background(), []string{"test", "-d", "/srv"})
	var cmdErr *errors.CommandError
	if !stderrors.As(err, &cmdErr) {
		t.Fatalf("error %v should be a CommandError", err)
	}
	if !slices.Equal(cmdErr.Argv, []string{"test", "-d", "/srv"}) {
		t.Errorf("Argv = %q, want the remote command", cmdErr.Argv)
	}
}

func TestSSHWorker_ControlMasterFails(t *testing.T) {
	w, host, exec, fsys := newTestSSH(t)
	exec.AddResponse("ssh -S "+testSock+" -M", nil, 255)

	err := w.Enter(context.Background())
	if !errors.HasCode(err, errors.ExitAcquisitionFailed) {
		t.Errorf("Enter() = %v, want AcquisitionFailed", err)
	}
	if host.Depth() != 0 || len(fsys.Removed) != 1 {
		t.Errorf("host not released: depth %d, removed %v", host.Depth(), fsys.Removed)
	}
	if len(exec.Commands) != 1 {
		t.Errorf("commands = %q, want only the control master", exec.Argvs())
	}
}

func TestSSHWorker_RequiresLocalTransport(t *testing.T) {
	inner, _, _, fsys := newTestSSH(t)
	w := NewSSHWorker(inner, ssh.Options{Host: "other"}, fsys)

	err := w.Enter(context.Background())
	if !errors.HasCode(err, errors.ExitAcquisitionFailed) {
		t.Errorf("Enter() = %v, want AcquisitionFailed", err)
	}
	if inner.Depth() != 0 {
		t.Errorf("inner Depth() = %d, want 0", inner.Depth())
	}
}

func TestSSHWorker_InstallFile(t *testing.T) {
	ctx := context.Background()
	w, _, exec, fsys := newTestSSH(t)
	fsys.AddFile("/home/user/hook.sh", []byte("#!/bin/sh\n"))

	err := With(ctx, w, func() error {
		exec.Reset()
		return w.InstallFile(ctx, "/home/user/hook.sh", "/usr/local/bin/hook", 0o755)
	})
	if err != nil {
		t.Fatalf("InstallFile error: %v", err)
	}

	cmds := exec.Commands
	wantCopy := remote("sh", "-euc", receiverScript, "sh", testRemoteScratch)
	if !slices.Equal(cmds[0].Argv, wantCopy) {
		t.Errorf("copy argv = %q, want %q", cmds[0].Argv, wantCopy)
	}
	if cmds[0].Stdin != "#!/bin/sh\n" {
		t.Errorf("copy stdin = %q", cmds[0].Stdin)
	}
	wantInstall := remote("install", "-Dm755", testRemoteScratch+"/install", "/usr/local/bin/hook")
	if !slices.Equal(cmds[1].Argv, wantInstall) {
		t.Errorf("install argv = %q, want %q", cmds[1].Argv, wantInstall)
	}
}

func TestSSHWorker_RemoteDir(t *testing.T) {
	ctx := context.Background()
	w, _, exec, _ := newTestSSH(t)
	enter(t, w)
	exec.Reset()

	dir, err := w.RemoteDir(ctx, "/srv/build")
	if err != nil {
		t.Fatalf("RemoteDir error: %v", err)
	}
	if dir.Path != "/tmp/flatdeb-host.1/mnt.0" {
		t.Errorf("Path = %q, want %q", dir.Path, "/tmp/flatdeb-host.1/mnt.0")
	}
	if mounted, _ := isMounted(dir.Path); !mounted {
		t.Error("directory should be mounted")
	}

	if err := dir.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := dir.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}

	want := [][]string{
		{"mkdir", "/tmp/flatdeb-host.1/mnt.0"},
		{"sshfs", "deb@builder:/srv/build", "/tmp/flatdeb-host.1/mnt.0", "-o", "ControlPath=" + testSock},
		{"fusermount", "-u", "/tmp/flatdeb-host.1/mnt.0"},
		{"rmdir", "/tmp/flatdeb-host.1/mnt.0"},
	}
	if got := exec.Argvs(); !slices.EqualFunc(got, want, slices.Equal[[]string]) {
		t.Errorf("commands = %q, want %q", got, want)
	}

	exec.Reset()
	if err := w.Leave(ctx, nil); err != nil {
		t.Fatalf("Leave error: %v", err)
	}
	for _, argv := range exec.Argvs() {
		if argv[0] == "fusermount" {
			t.Errorf("closed directory unmounted again: %q", argv)
		}
	}
}

func TestSSHWorker_RemoteDirReleasedOnFailure(t *testing.T) {
	ctx := context.Background()
	w, _, _, _ := newTestSSH(t)
	boom := stderrors.New("build failed")

	var mountpoint string
	err := With(ctx, w, func() error {
		return WithRemoteDir(ctx, w, "/srv/build", func(dir string) error {
			mountpoint = dir
			return boom
		})
	})
	if !stderrors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
	if mounted, _ := isMounted(mountpoint); mounted {
		t.Errorf("%s still mounted after a failing body", mountpoint)
	}
}

func TestSSHWorker_RemoteDirReleasedOnLeave(t *testing.T) {
	ctx := context.Background()
	w, _, exec, _ := newTestSSH(t)
	enter(t, w)

	first, err := w.RemoteDir(ctx, "/srv/a")
	if err != nil {
		t.Fatalf("RemoteDir error: %v", err)
	}
	second, err := w.RemoteDir(ctx, "/srv/b")
	if err != nil {
		t.Fatalf("RemoteDir error: %v", err)
	}

	exec.Reset()
	if err := w.Leave(ctx, nil); err != nil {
		t.Fatalf("Leave error: %v", err)
	}

	for _, dir := range []*Dir{first, second} {
		if mounted, _ := isMounted(dir.Path); mounted {
			t.Errorf("%s still mounted after Leave", dir.Path)
		}
	}
	// Mounts go before the control master they depend on.
	argvs := exec.Argvs()
	if len(argvs) < 2 || argvs[0][2] != second.Path || argvs[0][0] != "fusermount" {
		t.Errorf("commands = %q, want the last mount released first", argvs)
	}
}

func TestSSHWorker_SSHFSFails(t *testing.T) {
	ctx := context.Background()
	w, _, exec, _ := newTestSSH(t)
	exec.AddResponse("sshfs", nil, 1)
	enter(t, w)
	exec.Reset()

	if _, err := w.RemoteDir(ctx, "/srv/build"); err == nil {
		t.Fatal("RemoteDir should fail")
	}
	want := [][]string{
		{"mkdir", "/tmp/flatdeb-host.1/mnt.0"},
		{"sshfs", "deb@builder:/srv/build", "/tmp/flatdeb-host.1/mnt.0", "-o", "ControlPath=" + testSock},
		{"rmdir", "/tmp/flatdeb-host.1/mnt.0"},
	}
	if got := exec.Argvs(); !slices.EqualFunc(got, want, slices.Equal[[]string]) {
		t.Errorf("commands = %q, want %q", got, want)
	}
}

func TestSSHWorker_RemoteDirNotOpen(t *testing.T) {
	w, _, _, _ := newTestSSH(t)
	if _, err := w.RemoteDir(context.Background(), "/srv"); err == nil {
		t.Error("RemoteDir on a closed worker should fail")
	}
}
