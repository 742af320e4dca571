package ssh

import (
	"slices"
	"strings"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions("builder.example.com")

	if opts.Host != "builder.example.com" {
		t.Errorf("Host = %q, want %q", opts.Host, "builder.example.com")
	}
	if opts.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", opts.Port, DefaultPort)
	}
	if opts.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %d, want %d", opts.ConnectTimeout, DefaultConnectTimeout)
	}
	if !opts.BatchMode {
		t.Error("BatchMode should be true by default")
	}
	if opts.ControlPath != "" {
		t.Errorf("ControlPath = %q, want empty", opts.ControlPath)
	}
}

func TestOptionsChaining(t *testing.T) {
	base := DefaultOptions("builder")
	opts := base.WithControlPath("/tmp/s/ssh.sock").WithTimeout(5)

	if opts.ControlPath != "/tmp/s/ssh.sock" {
		t.Errorf("ControlPath = %q, want %q", opts.ControlPath, "/tmp/s/ssh.sock")
	}
	if opts.ConnectTimeout != 5 {
		t.Errorf("ConnectTimeout = %d, want 5", opts.ConnectTimeout)
	}
	// Ensure the original is untouched
	if base.ControlPath != "" {
		t.Errorf("base ControlPath = %q, want empty", base.ControlPath)
	}
}

func TestDestination(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"host only", Options{Host: "builder"}, "builder"},
		{"user and host", Options{Host: "builder", User: "deb"}, "deb@builder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Destination(); got != tt.want {
				t.Errorf("Destination() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBaseArgs(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		contains []string
		excludes []string
	}{
		{
			name: "default options",
			opts: DefaultOptions("builder"),
			contains: []string{
				"-o", "BatchMode=yes",
				"-o", "ConnectTimeout=10",
			},
			excludes: []string{"-p", "-i", "-S"},
		},
		{
			name:     "custom port",
			opts:     Options{Host: "builder", Port: 2222},
			contains: []string{"-p", "2222"},
		},
		{
			name:     "identity file",
			opts:     Options{Host: "builder", IdentityFile: "/home/u/.ssh/id_builder"},
			contains: []string{"-i", "/home/u/.ssh/id_builder"},
		},
		{
			name:     "control path",
			opts:     DefaultOptions("builder").WithControlPath("/tmp/s/ssh.sock"),
			contains: []string{"-S", "/tmp/s/ssh.sock"},
		},
		{
			name:     "no batch mode",
			opts:     Options{Host: "builder"},
			excludes: []string{"BatchMode=yes", "ConnectTimeout=0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.opts.BaseArgs()
			joined := strings.Join(args, " ")

			for _, want := range tt.contains {
				if !slices.Contains(args, want) {
					t.Errorf("BaseArgs() = %q, missing %q", joined, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if slices.Contains(args, unwanted) {
					t.Errorf("BaseArgs() = %q, should not contain %q", joined, unwanted)
				}
			}
		})
	}
}

func TestBuildArgs(t *testing.T) {
	opts := Options{Host: "builder", User: "deb", ControlPath: "/tmp/s/ssh.sock"}
	got := opts.BuildArgs("id -u")
	want := []string{"ssh", "-S", "/tmp/s/ssh.sock", "deb@builder", "--", "id -u"}

	if !slices.Equal(got, want) {
		t.Errorf("BuildArgs() = %q, want %q", got, want)
	}
}

func TestControlArgs(t *testing.T) {
	opts := Options{Host: "builder", ControlPath: "/tmp/s/ssh.sock"}

	master := opts.ControlMasterArgs()
	wantMaster := []string{"ssh", "-S", "/tmp/s/ssh.sock", "-M", "-f", "-N", "builder"}
	if !slices.Equal(master, wantMaster) {
		t.Errorf("ControlMasterArgs() = %q, want %q", master, wantMaster)
	}

	exit := opts.ControlExitArgs()
	wantExit := []string{"ssh", "-S", "/tmp/s/ssh.sock", "-O", "exit", "builder"}
	if !slices.Equal(exit, wantExit) {
		t.Errorf("ControlExitArgs() = %q, want %q", exit, wantExit)
	}
}

func TestSSHFSArgs(t *testing.T) {
	opts := Options{Host: "builder", User: "deb", Port: 2222, ControlPath: "/tmp/s/ssh.sock"}
	got := opts.SSHFSArgs("/srv/build", "/tmp/s/mnt.0")
	want := []string{
		"sshfs", "deb@builder:/srv/build", "/tmp/s/mnt.0",
		"-p", "2222",
		"-o", "ControlPath=/tmp/s/ssh.sock",
	}

	if !slices.Equal(got, want) {
		t.Errorf("SSHFSArgs() = %q, want %q", got, want)
	}
}
