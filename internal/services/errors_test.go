package services_test

import (
	"errors"
	"strings"
	"testing"

	"tracksync/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrUnreadable, "scan", "hash", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrUnreadable) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"scan", "hash", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestIsRecoverable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{services.Wrap(services.ErrLockedCatalog, "catalog", "open", "busy", nil), true},
		{services.Wrap(services.ErrStaleExternalState, "catalog", "check", "", nil), true},
		{services.Wrap(services.ErrCopyVerification, "organize", "move", "", nil), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := services.IsRecoverable(tc.err); got != tc.want {
			t.Fatalf("IsRecoverable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestKind(t *testing.T) {
	if got := services.Kind(services.Wrap(services.ErrUnsupportedFormat, "tags", "write", "", nil)); got != "unsupported_format" {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := services.Kind(errors.New("other")); got != "transient" {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := services.Kind(nil); got != "" {
		t.Fatalf("expected empty kind for nil, got %q", got)
	}
}
