package textutil

import "testing"

func TestSanitizePathComponent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Abbey Road", "Abbey Road"},
		{"invalid chars", `AC/DC: <Live>|"?*\`, "ACDC Live"},
		{"trims", "  Spaced  ", "Spaced"},
		{"empty", "", "Unknown"},
		{"only invalid", `???`, "Unknown"},
		{"trailing dots", "Vol. 2...", "Vol. 2"},
		{"control chars", "Tab\tName", "TabName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizePathComponent(tt.in); got != tt.want {
				t.Errorf("SanitizePathComponent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsUnknown(t *testing.T) {
	for _, v := range []string{"", "  ", "Unknown", "unknown", " UNKNOWN "} {
		if !IsUnknown(v) {
			t.Errorf("IsUnknown(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"Unknown Artist", "Björk"} {
		if IsUnknown(v) {
			t.Errorf("IsUnknown(%q) = true, want false", v)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "Album Artist", "Artist"); got != "Album Artist" {
		t.Fatalf("unexpected value %q", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
