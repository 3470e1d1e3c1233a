// Package logging builds slog loggers for the tracksync CLI.
//
// Console output uses a compact human-readable handler; the rotating log file
// under paths.log_dir always receives JSON lines so sessions can be inspected
// with standard tooling. Helpers in this package standardize attribute keys
// (component, operation, track_id, ...) and enforce the cause/impact/hint
// shape of warnings.
package logging
