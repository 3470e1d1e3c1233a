// Package metadata extracts track metadata from audio files.
//
// Embedded tags are read with taglib first. Fields the tags leave empty are
// filled from the file name and the surrounding folder names, and every file
// gets a SHA-256 content hash. Files whose tags cannot be parsed still
// produce a result so the scanner can catalog them with best-effort fields.
package metadata
