// Package app provides the application context for flatdeb.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Config   *config.Config          // Builder configuration
//	    Executor system.CommandExecutor  // Runs local processes
//	    FS       system.FileSystem       // Local filesystem
//	}
//
// # Worker Stacks
//
// Stack assembles workers in a fixed order so that privilege and
// containment always compose the same way:
//
//	Host → [SSH] → [Sudo] → [Nspawn]
//
// The SSH layer is added when the configuration names a remote host.
//
//	stack := app.Default.Stack(app.StackOptions{NspawnRoot: root})
//	err := stack.Run(ctx, func(w worker.Worker) error {
//	    return w.CheckCall(ctx, []string{"apt-get", "update"})
//	})
//
// # Available Options
//
//	WithConfig(cfg)       // Custom configuration
//	WithExecutor(exec)    // Custom command executor
//	WithFS(fs)            // Custom filesystem
package app
