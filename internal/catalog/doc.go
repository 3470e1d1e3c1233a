// Package catalog persists the shared music catalog in a SQLite file that
// lives inside a cloud-synchronized folder.
//
// A single Catalog handle is opened per process and passed explicitly to the
// scanner, organizer, and CLI. The file may be replaced at any time by the
// sync client when another device writes, so the handle records the file's
// modification time and size after every local write and exposes
// CheckExternalChanges/ReloadIfChanged for callers that want the freshest
// view. Reads between checks may be stale; that is accepted.
//
// Close always forces a full WAL checkpoint so the primary file, which is the
// only file the sync client replicates, carries every committed write.
package catalog
