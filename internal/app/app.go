// Package app provides the application context for flatdeb.
// It allows dependency injection for testing.
package app

import (
	"context"

	"github.com/firefly-engineering/flatdeb/internal/config"
	"github.com/firefly-engineering/flatdeb/internal/ssh"
	"github.com/firefly-engineering/flatdeb/internal/system"
	"github.com/firefly-engineering/flatdeb/internal/worker"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded builder configuration
	Config *config.Config

	// Executor runs every process the workers start on this machine
	Executor system.CommandExecutor

	// FS is the local filesystem
	FS system.FileSystem
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets a custom configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithExecutor sets a custom command executor
func WithExecutor(exec system.CommandExecutor) Option {
	return func(a *App) {
		a.Executor = exec
	}
}

// WithFS sets a custom filesystem
func WithFS(fs system.FileSystem) Option {
	return func(a *App) {
		a.FS = fs
	}
}

// New creates a new App with the given options.
// Anything not provided falls back to the defaults.
func New(opts ...Option) *App {
	app := &App{}

	for _, opt := range opts {
		opt(app)
	}

	if app.Config == nil {
		app.Config = config.Default()
	}
	if app.Executor == nil {
		app.Executor = system.DefaultExecutor()
	}
	if app.FS == nil {
		app.FS = system.DefaultFS()
	}

	return app
}

// StackOptions selects the layers of a worker stack.
type StackOptions struct {
	// Sudo runs commands as root.
	Sudo bool

	// NspawnRoot, when set, runs commands in a systemd-nspawn container
	// with this directory as its root. It implies Sudo.
	NspawnRoot string
}

// Stack is a chain of workers built in the fixed order
// Host → [SSH] → [Sudo] → [Nspawn].
type Stack struct {
	Host   *worker.HostWorker
	Remote *worker.SSHWorker
	Sudo   *worker.SudoWorker
	Nspawn *worker.NspawnWorker
}

// Stack builds the worker chain for opts. The SSH layer is present when
// the configuration names a remote host.
func (a *App) Stack(opts StackOptions) *Stack {
	s := &Stack{Host: worker.NewHostWorker(a.Executor, a.FS)}

	var w worker.Worker = s.Host
	if a.Config.Remote.Enabled() {
		s.Remote = worker.NewSSHWorker(w, a.sshOptions(), a.FS)
		w = s.Remote
	}
	if opts.Sudo || opts.NspawnRoot != "" {
		s.Sudo = worker.NewSudoWorker(w, a.FS)
		w = s.Sudo
	}
	if opts.NspawnRoot != "" {
		s.Nspawn = worker.NewNspawnWorker(w, opts.NspawnRoot, a.Config.Nspawn.Env, a.FS)
	}
	return s
}

func (a *App) sshOptions() ssh.Options {
	remote := a.Config.Remote
	opts := ssh.DefaultOptions(remote.Host)
	opts.User = remote.User
	opts.IdentityFile = remote.IdentityFile
	if remote.Port != 0 {
		opts.Port = remote.Port
	}
	if remote.ConnectTimeout > 0 {
		opts = opts.WithTimeout(remote.ConnectTimeout)
	}
	return opts
}

// Top returns the innermost layer, the one commands should be sent to.
func (s *Stack) Top() worker.Worker {
	switch {
	case s.Nspawn != nil:
		return s.Nspawn
	case s.Sudo != nil:
		return s.Sudo
	case s.Remote != nil:
		return s.Remote
	default:
		return s.Host
	}
}

// Owner returns the innermost layer that owns resources. Entering it
// opens every layer below it; the nspawn layer owns nothing.
func (s *Stack) Owner() worker.Worker {
	switch {
	case s.Sudo != nil:
		return s.Sudo
	case s.Remote != nil:
		return s.Remote
	default:
		return s.Host
	}
}

// Run opens the stack, calls fn with the top worker and closes the stack
// again, whether or not fn fails.
func (s *Stack) Run(ctx context.Context, fn func(w worker.Worker) error) error {
	return worker.With(ctx, s.Owner(), func() error {
		return fn(s.Top())
	})
}

// Default is the default application instance
var Default = New()

// SetDefault sets the default application instance (used for testing)
func SetDefault(app *App) {
	Default = app
}

// ResetDefault resets to the default application instance
func ResetDefault() {
	Default = New()
}
