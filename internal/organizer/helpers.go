package organizer

import (
	"errors"
	"os"
	"syscall"

	"tracksync/internal/services"
	"tracksync/internal/textutil"
)

// libraryUnavailableErrors lists syscall errors that mean the volume holding
// the library went away, as opposed to a problem with one file.
var libraryUnavailableErrors = []error{
	syscall.ENODEV,
	syscall.ENOTCONN,
	syscall.EHOSTDOWN,
	syscall.EHOSTUNREACH,
	syscall.ETIMEDOUT,
	syscall.EIO,
	syscall.ESTALE,
}

func isLibraryUnavailable(err error) bool {
	for _, target := range libraryUnavailableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// actionHint suggests what the user should do about a failed action.
func actionHint(err error) string {
	switch {
	case isLibraryUnavailable(err):
		return "library volume looks unavailable; check the mount and re-run the plan"
	case errors.Is(err, services.ErrCopyVerification):
		return "compare source and destination, remove the bad copy, then re-run the plan"
	case errors.Is(err, services.ErrNotFound):
		return "source already moved; regenerate the plan"
	default:
		return "inspect the source and target paths, then re-run the plan"
	}
}

// sameFile reports whether two local paths name one file: equal once
// normalized, or resolving to the same inode through links.
func sameFile(a, b string) bool {
	if textutil.SamePath(a, b) {
		return true
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
