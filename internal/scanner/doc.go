// Package scanner walks a music library and keeps the catalog in step with
// the files on disk.
//
// A full scan re-extracts every supported file whose modification time
// differs from its catalog row (or every file when forced). An incremental
// scan only adds files the catalog has never seen and removes rows whose
// files are confirmed gone; it does not compare modification times.
//
// Files are matched to catalog rows by the path each row resolves to on this
// device, so a track moved through a device path override stays one row.
//
// Extraction and hashing run on a bounded worker pool, but catalog writes and
// progress events happen on the calling goroutine in traversal order.
package scanner
