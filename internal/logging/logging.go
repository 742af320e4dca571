package logging

import (
	"io"
	"log/slog"
	"os"

	shellquote "github.com/kballard/go-shellquote"
)

var (
	// Logger receives every record. Worker layers log through Layer.
	Logger = newLogger(os.Stderr, false, false)

	// Verbose is set when debug records, including issued commands, are
	// shown.
	Verbose bool
)

func newLogger(w io.Writer, verbose, jsonOutput bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup replaces Logger. A nil w means stderr.
func Setup(verbose bool, jsonOutput bool, w io.Writer) {
	Verbose = verbose
	Logger = newLogger(w, verbose, jsonOutput)
}

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// Layer returns a logger whose records carry layer=name, e.g. "sudo".
func Layer(name string) *slog.Logger {
	return Logger.With("layer", name)
}

// Command logs argv as issued by a worker layer. The argv is rendered as
// a shell-quoted line so it can be pasted into a terminal.
func Command(layer string, argv []string) {
	Layer(layer).Debug("command", "argv", shellquote.Join(argv...))
}

// ReleaseFailed records a release action that failed while a layer was
// closing. Closing carries on with the remaining actions.
func ReleaseFailed(layer, action string, err error) {
	Layer(layer).Warn("release action failed", "action", action, "error", err)
}
