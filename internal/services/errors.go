package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnreadable         = errors.New("unreadable")
	ErrLockedCatalog      = errors.New("catalog locked")
	ErrStaleExternalState = errors.New("catalog changed externally")
	ErrCopyVerification   = errors.New("copy verification failed")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
	ErrNotFound           = errors.New("not found")
	ErrTransient          = errors.New("transient failure")
)

// Wrap builds an error message that includes operation context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, operation, step, message string, err error) error {
	detail := buildDetail(operation, step, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRecoverable reports whether the caller can retry or reload and try again
// without user intervention.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrLockedCatalog) || errors.Is(err, ErrStaleExternalState)
}

// Kind returns a short classification label for err, used in logs and CLI output.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnreadable):
		return "unreadable"
	case errors.Is(err, ErrLockedCatalog):
		return "locked_catalog"
	case errors.Is(err, ErrStaleExternalState):
		return "stale_external_state"
	case errors.Is(err, ErrCopyVerification):
		return "copy_verification_failed"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "transient"
	}
}

func buildDetail(operation, step, message string) string {
	parts := make([]string, 0, 3)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
