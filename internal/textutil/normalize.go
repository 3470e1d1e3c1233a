package textutil

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizePath cleans p and converts it to NFC so paths read back from
// filesystems that store decomposed names (macOS) compare equal to composed ones.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	return norm.NFC.String(filepath.Clean(p))
}

// SamePath reports whether two paths refer to the same location after normalization.
func SamePath(a, b string) bool {
	return NormalizePath(a) == NormalizePath(b)
}

// PathKey is the case-insensitive comparison key for a path.
func PathKey(p string) string {
	return strings.ToLower(NormalizePath(p))
}

// FoldKey lower-cases and NFC-normalizes a metadata value for identity grouping.
func FoldKey(value string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(value)))
}
