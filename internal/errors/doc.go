// Package errors provides typed errors with exit codes for flatdeb.
//
// # Error Types
//
// FlatdebError is the base error type that wraps an error with an exit code:
//
//	type FlatdebError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// CommandError records the argv and exit status of a child process that
// exited nonzero. It is always carried as the Cause of an
// ExitCommandFailed FlatdebError.
//
// # Exit Codes
//
//	ExitSuccess            = 0 // Success
//	ExitGeneralError       = 1 // General/unknown errors
//	ExitCommandFailed      = 2 // A child process exited nonzero
//	ExitAcquisitionFailed  = 3 // A worker layer could not be set up
//	ExitCleanupFailed      = 4 // A release action failed
//	ExitTransformFailed    = 5 // A path could not be translated into a namespace
//	ExitConfigError        = 6 // Configuration error
//
// # Error Constructors
//
//	errors.CommandFailed(argv, 1, stderr)
//	errors.AcquisitionFailed("sudo", err)
//	errors.CleanupFailed(err)
//	errors.TransformFailed("../etc", "/srv/root", "escapes root")
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
//
// When several failures are joined (errors.Join), GetExitCode reports the
// code of the first one, which is the failure of the protected body.
package errors
