package fileutil

import (
	"fmt"
	"os"
)

// CheckWritableDir reports an error unless path is an existing directory the
// current user can list, create files in, and enter.
func CheckWritableDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if err := checkAccess(path); err != nil {
		return fmt.Errorf("insufficient permissions on %s: %w", path, err)
	}
	return nil
}
