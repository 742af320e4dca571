// Package logging provides logging utilities for flatdeb.
//
// Two categories of output:
//   - Debug logging: structured logs via slog, including one record per
//     command issued by each worker layer
//   - User output: short status lines for the person running the build
//
// # Debug Logging
//
//	logging.Layer("sudo").Debug("acquiring")
//	logging.Command("host", argv)
//	logging.ReleaseFailed("sudo", name, err)
//
// # User Output
//
//	logging.UserInfo("Flatpak architecture: %s", arch)
//	logging.UserError("%v", err)
//
// UserInfo and UserSuccess write to UserOut (stdout by default);
// UserWarning and UserError write to UserErr (stderr by default).
package logging
