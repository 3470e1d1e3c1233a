package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"tracksync/internal/metadata"
)

type walkFrame struct {
	entries []os.DirEntry
	dir     string
	next    int
}

type walkResult struct {
	files  []string
	errors []string
}

// walkLibrary lists supported audio files below root depth-first, visiting
// each directory's entries in name order. Symlinked directories are followed
// once; a directory whose resolved path was already visited is skipped.
// Symlinked files are never listed: the file they point to is either under
// root and listed on its own, or outside the library.
func walkLibrary(ctx context.Context, root string) (walkResult, error) {
	var result walkResult
	visited := make(map[string]struct{})

	rootEntries, err := readDir(root, visited)
	if err != nil {
		return result, err
	}
	stack := []*walkFrame{{dir: root, entries: rootEntries}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.entries[top.next]
		top.next++
		path := filepath.Join(top.dir, entry.Name())

		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				result.errors = append(result.errors, fmt.Sprintf("failed to resolve symlink: %s: %v", path, err))
				continue
			}
			if !info.IsDir() {
				continue
			}
			isDir = true
		} else if !isDir && !entry.Type().IsRegular() {
			continue
		}

		if isDir {
			entries, err := readDir(path, visited)
			if err != nil {
				result.errors = append(result.errors, fmt.Sprintf("failed to read directory: %s: %v", path, err))
				continue
			}
			if entries != nil {
				stack = append(stack, &walkFrame{dir: path, entries: entries})
			}
			continue
		}
		if metadata.IsSupported(path) {
			result.files = append(result.files, path)
		}
	}
	return result, nil
}

// readDir returns nil entries without error when dir resolves to a directory
// that was already visited.
func readDir(dir string, visited map[string]struct{}) ([]os.DirEntry, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, err
	}
	if _, seen := visited[resolved]; seen {
		return nil, nil
	}
	visited[resolved] = struct{}{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []os.DirEntry{}
	}
	return entries, nil
}
