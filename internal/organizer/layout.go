package organizer

import "tracksync/internal/textutil"

// layout is the collision table for one plan. Keys are case-insensitive,
// NFC-normalized paths.
type layout struct {
	root string
	// claimed maps a target to the track that will end up there.
	claimed map[string]string
	// occupied maps a current file location to the track still sitting there
	// once duplicate deletions have run.
	occupied map[string]string
}

func newLayout(root string, candidates []candidate) *layout {
	l := &layout{
		root:     root,
		claimed:  make(map[string]string),
		occupied: make(map[string]string, len(candidates)),
	}
	for _, c := range candidates {
		l.occupied[textutil.PathKey(c.localPath)] = c.track.ID
	}
	return l
}

// vacate frees the location of a track that the plan deletes.
func (l *layout) vacate(c candidate) {
	key := textutil.PathKey(c.localPath)
	if l.occupied[key] == c.track.ID {
		delete(l.occupied, key)
	}
}

// handOver gives dup's location to keeper when both rows name the same file.
func (l *layout) handOver(dup, keeper candidate) {
	key := textutil.PathKey(dup.localPath)
	if l.occupied[key] == dup.track.ID {
		l.occupied[key] = keeper.track.ID
	}
}

// reserveInPlace claims the current path of a track already at its target.
func (l *layout) reserveInPlace(c candidate) {
	target := targetPath(l.root, c)
	if textutil.SamePath(target, c.localPath) {
		l.claimed[textutil.PathKey(target)] = c.track.ID
	}
}

// assign returns a unique target for c, suffixing " (n)" until the path is
// neither claimed nor occupied by another file.
func (l *layout) assign(c candidate) string {
	base := targetPath(l.root, c)
	target := base
	for n := 1; !l.free(textutil.PathKey(target), c.track.ID); n++ {
		target = withSuffix(base, n)
	}
	l.claimed[textutil.PathKey(target)] = c.track.ID
	return target
}

func (l *layout) free(key, id string) bool {
	if owner, ok := l.claimed[key]; ok && owner != id {
		return false
	}
	if occupant, ok := l.occupied[key]; ok && occupant != id {
		return false
	}
	return true
}
