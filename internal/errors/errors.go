package errors

import (
	"errors"
	"fmt"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
)

// Exit codes for flatdeb
const (
	ExitSuccess           = 0
	ExitGeneralError      = 1
	ExitCommandFailed     = 2
	ExitAcquisitionFailed = 3
	ExitCleanupFailed     = 4
	ExitTransformFailed   = 5
	ExitConfigError       = 6
)

// FlatdebError is the base error type for flatdeb
type FlatdebError struct {
	Code    int
	Message string
	Cause   error
}

func (e *FlatdebError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *FlatdebError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *FlatdebError) ExitCode() int {
	return e.Code
}

// New creates a new FlatdebError
func New(code int, message string) *FlatdebError {
	return &FlatdebError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a FlatdebError
func Wrap(code int, message string, cause error) *FlatdebError {
	return &FlatdebError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CommandError describes a child process that exited with a nonzero status.
type CommandError struct {
	Argv       []string
	ExitStatus int
	Stderr     string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", shellquote.Join(e.Argv...), e.ExitStatus)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Common error constructors

// CommandFailed returns an error for a command that exited nonzero.
// stderr may be empty when the child's error stream was not captured.
func CommandFailed(argv []string, status int, stderr string) *FlatdebError {
	return Wrap(ExitCommandFailed, "command failed", &CommandError{
		Argv:       append([]string(nil), argv...),
		ExitStatus: status,
		Stderr:     stderr,
	})
}

// AcquisitionFailed returns an error for a worker layer whose setup failed
func AcquisitionFailed(layer string, cause error) *FlatdebError {
	return Wrap(ExitAcquisitionFailed, fmt.Sprintf("%s worker setup failed", layer), cause)
}

// CleanupFailed returns an error for one or more failed release actions
func CleanupFailed(cause error) *FlatdebError {
	return Wrap(ExitCleanupFailed, "cleanup failed", cause)
}

// TransformFailed returns an error for a path that cannot be translated into a root
func TransformFailed(path, root, reason string) *FlatdebError {
	return New(ExitTransformFailed, fmt.Sprintf("cannot place %q inside %s: %s", path, root, reason))
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *FlatdebError {
	return Wrap(ExitConfigError, message, cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *FlatdebError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var flatdebErr *FlatdebError
	if errors.As(err, &flatdebErr) {
		return flatdebErr.ExitCode()
	}
	return ExitGeneralError
}

// HasCode reports whether any FlatdebError in err's tree carries code.
func HasCode(err error, code int) bool {
	if err == nil {
		return false
	}
	if fe, ok := err.(*FlatdebError); ok && fe.Code == code {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return HasCode(u.Unwrap(), code)
	}
	return false
}

// ExitStatus returns the exit status of the first failed command in err's
// chain, if there is one.
func ExitStatus(err error) (int, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitStatus, true
	}
	return 0, false
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join wraps errors.Join so callers that import this package as "errors"
// keep access to it.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
