// Package ssh builds argument vectors for ssh(1) and sshfs(1) so that a
// remote build machine can be driven through an OpenSSH control master.
package ssh

import (
	"fmt"
	"strconv"
)

// Default SSH configuration values.
const (
	DefaultPort           = 22
	DefaultConnectTimeout = 10
)

// Options configures SSH connection parameters.
type Options struct {
	Host           string
	User           string
	Port           int
	IdentityFile   string
	ConnectTimeout int
	BatchMode      bool

	// ControlPath is the control socket shared by every connection. It is
	// empty until a control master has been started.
	ControlPath string
}

// DefaultOptions returns Options for host with non-interactive defaults.
func DefaultOptions(host string) Options {
	return Options{
		Host:           host,
		Port:           DefaultPort,
		ConnectTimeout: DefaultConnectTimeout,
		BatchMode:      true,
	}
}

// WithControlPath returns a copy that multiplexes over the socket at path.
func (o Options) WithControlPath(path string) Options {
	o.ControlPath = path
	return o
}

// WithTimeout returns a copy with the specified connect timeout.
func (o Options) WithTimeout(seconds int) Options {
	o.ConnectTimeout = seconds
	return o
}

// Destination returns user@host, or just host when no user is set.
func (o Options) Destination() string {
	if o.User == "" {
		return o.Host
	}
	return fmt.Sprintf("%s@%s", o.User, o.Host)
}

// BaseArgs returns the common SSH options (no program name, no destination).
func (o Options) BaseArgs() []string {
	var args []string

	if o.Port != 0 && o.Port != DefaultPort {
		args = append(args, "-p", strconv.Itoa(o.Port))
	}

	if o.IdentityFile != "" {
		args = append(args, "-i", o.IdentityFile)
	}

	if o.BatchMode {
		args = append(args, "-o", "BatchMode=yes")
	}

	if o.ConnectTimeout > 0 {
		args = append(args, "-o", fmt.Sprintf("ConnectTimeout=%d", o.ConnectTimeout))
	}

	if o.ControlPath != "" {
		args = append(args, "-S", o.ControlPath)
	}

	return args
}

// BuildArgs returns a complete ssh argv that runs command, a single shell
// command line, on the remote host.
func (o Options) BuildArgs(command string) []string {
	args := []string{"ssh"}
	args = append(args, o.BaseArgs()...)
	return append(args, o.Destination(), "--", command)
}

// ControlMasterArgs returns the argv that starts a backgrounded control
// master listening on ControlPath.
func (o Options) ControlMasterArgs() []string {
	args := []string{"ssh"}
	args = append(args, o.BaseArgs()...)
	return append(args, "-M", "-f", "-N", o.Destination())
}

// ControlExitArgs returns the argv that asks the control master to exit.
func (o Options) ControlExitArgs() []string {
	return []string{"ssh", "-S", o.ControlPath, "-O", "exit", o.Destination()}
}

// SSHFSArgs returns the argv that mounts remotePath of the host on
// mountpoint, reusing the control master when there is one.
func (o Options) SSHFSArgs(remotePath, mountpoint string) []string {
	args := []string{"sshfs", o.Destination() + ":" + remotePath, mountpoint}

	if o.Port != 0 && o.Port != DefaultPort {
		args = append(args, "-p", strconv.Itoa(o.Port))
	}
	if o.IdentityFile != "" {
		args = append(args, "-o", "IdentityFile="+o.IdentityFile)
	}
	if o.BatchMode {
		args = append(args, "-o", "BatchMode=yes")
	}
	if o.ConnectTimeout > 0 {
		args = append(args, "-o", fmt.Sprintf("ConnectTimeout=%d", o.ConnectTimeout))
	}
	if o.ControlPath != "" {
		args = append(args, "-o", "ControlPath="+o.ControlPath)
	}
	return args
}
