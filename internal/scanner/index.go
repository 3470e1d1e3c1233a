package scanner

import (
	"context"
	"fmt"

	"tracksync/internal/catalog"
	"tracksync/internal/textutil"
)

// libraryIndex maps files on this device to catalog rows. A track lives at
// its device override when one exists, so a file there belongs to that row
// regardless of the row's stored path.
type libraryIndex struct {
	tracks    []catalog.Track
	local     map[string]string // track id -> resolved local path
	byLocal   map[string]catalog.Track
	byCatalog map[string]catalog.Track
}

// fileEntry is how a walked file relates to the catalog.
type fileEntry struct {
	catalogPath string
	existing    *catalog.Track
	// shadowed marks a file sitting at a row's stored path while that row
	// resolves elsewhere on this device through an override.
	shadowed bool
}

func (s *Scanner) loadIndex(ctx context.Context) (*libraryIndex, error) {
	tracks, err := s.catalog.GetAllTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog tracks: %w", err)
	}
	local, err := s.resolver.ResolveAll(ctx, tracks)
	if err != nil {
		return nil, fmt.Errorf("resolve track paths: %w", err)
	}
	idx := &libraryIndex{
		tracks:    tracks,
		local:     local,
		byLocal:   make(map[string]catalog.Track, len(tracks)),
		byCatalog: make(map[string]catalog.Track, len(tracks)),
	}
	for _, track := range tracks {
		idx.byLocal[textutil.NormalizePath(local[track.ID])] = track
		idx.byCatalog[track.FilePath] = track
	}
	return idx, nil
}

// knows reports whether some row resolves to path.
func (idx *libraryIndex) knows(path string) bool {
	_, ok := idx.byLocal[textutil.NormalizePath(path)]
	return ok
}

func (idx *libraryIndex) lookup(resolver *catalog.PathResolver, path string) fileEntry {
	if track, ok := idx.byLocal[textutil.NormalizePath(path)]; ok {
		return fileEntry{catalogPath: track.FilePath, existing: &track}
	}
	catalogPath := resolver.ToCatalogPath(path)
	if owner, ok := idx.byCatalog[catalogPath]; ok {
		if !textutil.SamePath(idx.local[owner.ID], path) {
			return fileEntry{catalogPath: catalogPath, shadowed: true}
		}
		return fileEntry{catalogPath: catalogPath, existing: &owner}
	}
	return fileEntry{catalogPath: catalogPath}
}
