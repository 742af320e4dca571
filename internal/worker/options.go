package worker

import (
	"io"
	"sort"

	"github.com/firefly-engineering/flatdeb/internal/system"
)

// ExecOptions holds the execution options a command may carry. The set is
// closed: callers can only build it through the With* options below.
type ExecOptions struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Env overrides variables in the environment of the process started on
	// the local machine. Layers that reset the environment (sudo's `env -`,
	// ssh) do not carry them any further.
	Env map[string]string
}

// Option configures a single command execution.
type Option func(*ExecOptions)

// WithStdin connects r to the command's standard input.
func WithStdin(r io.Reader) Option {
	return func(o *ExecOptions) {
		o.Stdin = r
	}
}

// WithStdout sends the command's standard output to w.
func WithStdout(w io.Writer) Option {
	return func(o *ExecOptions) {
		o.Stdout = w
	}
}

// WithStderr sends the command's standard error to w.
func WithStderr(w io.Writer) Option {
	return func(o *ExecOptions) {
		o.Stderr = w
	}
}

// WithEnv adds environment overrides. Later calls win for the same key.
func WithEnv(env map[string]string) Option {
	return func(o *ExecOptions) {
		if o.Env == nil {
			o.Env = make(map[string]string, len(env))
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

func collect(opts []Option) ExecOptions {
	var o ExecOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o ExecOptions) process(argv []string) *system.Process {
	p := &system.Process{
		Argv:   argv,
		Stdin:  o.Stdin,
		Stdout: o.Stdout,
		Stderr: o.Stderr,
	}
	if len(o.Env) > 0 {
		keys := make([]string, 0, len(o.Env))
		for k := range o.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p.Env = append(p.Env, k+"="+o.Env[k])
		}
	}
	return p
}
