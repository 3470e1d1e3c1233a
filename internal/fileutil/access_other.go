//go:build !unix

package fileutil

import "os"

// checkAccess falls back to creating a scratch file where access(2) is unavailable.
func checkAccess(path string) error {
	scratch, err := os.CreateTemp(path, ".tracksync-scratch-*")
	if err != nil {
		return err
	}
	name := scratch.Name()
	_ = scratch.Close()
	return os.Remove(name)
}
