package textutil

import "strings"

// UnknownValue is the placeholder used for missing identity fields.
const UnknownValue = "Unknown"

// invalidPathChars lists characters rejected by at least one common filesystem.
const invalidPathChars = `<>:"/\|?*`

// SanitizePathComponent strips filesystem-invalid characters and surrounding
// whitespace from a single path segment. Empty results become "Unknown".
func SanitizePathComponent(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if strings.ContainsRune(invalidPathChars, r) || r < 0x20 {
			continue
		}
		b.WriteRune(r)
	}
	out := strings.TrimSpace(b.String())
	// Trailing dots are silently dropped by Windows and would break round-trips.
	out = strings.TrimRight(out, ".")
	out = strings.TrimSpace(out)
	if out == "" {
		return UnknownValue
	}
	return out
}

// IsUnknown reports whether value is missing or literally "Unknown" (any case).
func IsUnknown(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed == "" || strings.EqualFold(trimmed, UnknownValue)
}

// FirstNonEmpty returns the first value that is not blank after trimming.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
