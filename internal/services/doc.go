// Package services defines shared utilities consumed by the catalog, scanner,
// and organizer components.
//
// Key responsibilities:
//   - Context helpers that stamp operation names, device identifiers, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (unreadable files, locked catalogs, stale external state, copy
//     verification) so callers can decide whether to retry, reload, or report.
//
// Use these helpers when wiring new components so operational behaviour (error
// classification, observability) stays uniform across the tool.
package services
