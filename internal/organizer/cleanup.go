package organizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// removeEmptyDirs deletes directories under root that are empty, children
// before parents, so a chain of emptied folders collapses in one pass. The
// root itself is never removed and symlinked directories are not entered.
func removeEmptyDirs(ctx context.Context, root string) (int, []error) {
	root = filepath.Clean(root)
	var (
		order   []string
		errs    []error
		stack   = []string{root}
		visited = make(map[string]bool)
	)
	for len(stack) > 0 {
		if ctx.Err() != nil {
			return 0, errs
		}
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		real, err := filepath.EvalSymlinks(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve %s: %w", dir, err))
			continue
		}
		if visited[real] {
			continue
		}
		visited[real] = true
		order = append(order, dir)

		entries, err := os.ReadDir(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", dir, err))
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				stack = append(stack, filepath.Join(dir, entry.Name()))
			}
		}
	}

	removed := 0
	for _, dir := range slices.Backward(order) {
		if dir == root {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", dir, err))
			continue
		}
		removed++
	}
	return removed, errs
}
