package catalog

import (
	"context"
	"path/filepath"
	"strings"
)

// PathResolver converts between paths stored in the catalog and absolute
// paths on this device. With relative storage, catalog paths are
// slash-separated and relative to the music root so every device can apply
// its own root; device path overrides take precedence when resolving.
type PathResolver struct {
	catalog  *Catalog
	root     string
	relative bool
}

// NewPathResolver builds a resolver for the given music root.
func NewPathResolver(c *Catalog, musicRoot string, relative bool) *PathResolver {
	return &PathResolver{catalog: c, root: cleanPath(musicRoot), relative: relative}
}

// Root returns the local music root.
func (r *PathResolver) Root() string {
	return r.root
}

// ToCatalogPath converts a local absolute path to its stored form. Paths
// outside the music root are stored absolute.
func (r *PathResolver) ToCatalogPath(localPath string) string {
	cleaned := cleanPath(localPath)
	if !r.relative || r.root == "" {
		return cleaned
	}
	rel, err := filepath.Rel(r.root, cleaned)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return cleaned
	}
	return filepath.ToSlash(rel)
}

// ToLocalPath converts a stored path to an absolute path on this device.
func (r *PathResolver) ToLocalPath(catalogPath string) string {
	native := filepath.FromSlash(catalogPath)
	if filepath.IsAbs(native) || r.root == "" {
		return cleanPath(native)
	}
	return cleanPath(filepath.Join(r.root, native))
}

// Resolve returns the local path for a track, preferring this device's override.
func (r *PathResolver) Resolve(ctx context.Context, track Track) (string, error) {
	if r.catalog != nil && track.ID != "" {
		local, ok, err := r.catalog.DevicePath(ctx, r.catalog.DeviceID(), track.ID)
		if err != nil {
			return "", err
		}
		if ok {
			return cleanPath(local), nil
		}
	}
	return r.ToLocalPath(track.FilePath), nil
}

// ResolveAll resolves every track in one pass and returns local paths keyed
// by track id.
func (r *PathResolver) ResolveAll(ctx context.Context, tracks []Track) (map[string]string, error) {
	overrides := map[string]string{}
	if r.catalog != nil {
		var err error
		if overrides, err = r.catalog.DevicePaths(ctx, r.catalog.DeviceID()); err != nil {
			return nil, err
		}
	}
	locals := make(map[string]string, len(tracks))
	for _, track := range tracks {
		if local, ok := overrides[track.ID]; ok {
			locals[track.ID] = cleanPath(local)
			continue
		}
		locals[track.ID] = r.ToLocalPath(track.FilePath)
	}
	return locals, nil
}

// SavePathMapping records an override for a track whose local layout
// diverges from the stored path.
func (r *PathResolver) SavePathMapping(ctx context.Context, trackID, localPath string) error {
	return r.catalog.SetDevicePath(ctx, trackID, cleanPath(localPath))
}

// HasOverride reports whether this device has an override for trackID.
func (r *PathResolver) HasOverride(ctx context.Context, trackID string) (bool, error) {
	if r.catalog == nil {
		return false, nil
	}
	_, ok, err := r.catalog.DevicePath(ctx, r.catalog.DeviceID(), trackID)
	return ok, err
}

func cleanPath(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}
