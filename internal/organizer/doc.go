// Package organizer finds duplicate tracks in the catalog and reorganizes the
// library into an Artist/Album/NN - Title layout.
//
// Planning and execution are separate steps. A Planner reads the catalog and
// produces a Plan: a list of DELETE, MOVE and KEEP actions that holds only
// plain data, so it can be saved as JSON, reviewed, and applied later by an
// Executor.
//
// Duplicate classes are formed by the configured policy:
//
//   - content (default): files with the same SHA-256 digest. Files without a
//     digest are never merged.
//   - semantic: files with the same case-folded artist, title and album,
//     optionally with the track number, and optionally merged by
//     Jaro-Winkler similarity.
//
// Within a class the member with the most complete metadata wins, then the
// one with the best quality score. The Executor applies actions one at a
// time in plan order, copying rather than renaming so moves work across
// volumes, and records failures per action instead of stopping.
package organizer
