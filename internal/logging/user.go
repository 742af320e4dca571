package logging

import (
	"fmt"
	"io"
	"os"
)

// Destinations for user-facing output. Tests may redirect them.
var (
	UserOut io.Writer = os.Stdout
	UserErr io.Writer = os.Stderr
)

// UserInfo prints an info message to UserOut.
func UserInfo(format string, args ...interface{}) {
	fmt.Fprintf(UserOut, "ℹ "+format+"\n", args...)
}

// UserSuccess prints a success message to UserOut.
func UserSuccess(format string, args ...interface{}) {
	fmt.Fprintf(UserOut, "✓ "+format+"\n", args...)
}

// UserWarning prints a warning message to UserErr.
func UserWarning(format string, args ...interface{}) {
	fmt.Fprintf(UserErr, "⚠ "+format+"\n", args...)
}

// UserError prints an error message to UserErr.
func UserError(format string, args ...interface{}) {
	fmt.Fprintf(UserErr, "✗ "+format+"\n", args...)
}
