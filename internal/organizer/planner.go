package organizer

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hbollon/go-edlib"

	"tracksync/internal/catalog"
	"tracksync/internal/config"
	"tracksync/internal/logging"
	"tracksync/internal/services"
	"tracksync/internal/textutil"
)

// TrackSource supplies the tracks a plan is computed from.
type TrackSource interface {
	GetAllTracks(ctx context.Context) ([]catalog.Track, error)
}

// PathSource maps a catalog row to its absolute path on this device.
type PathSource interface {
	Resolve(ctx context.Context, track catalog.Track) (string, error)
}

// PlannerOptions selects the duplicate policy.
type PlannerOptions struct {
	// Policy is config.PolicyContent or config.PolicySemantic.
	Policy string
	// IncludeTrackNo adds the track number to the semantic key.
	IncludeTrackNo bool
	// Similarity below 1 merges semantic keys whose fields are at least this
	// Jaro-Winkler similar.
	Similarity float64
	Logger     *slog.Logger
}

// PlannerOptionsFromConfig derives planner options from configuration.
func PlannerOptionsFromConfig(cfg *config.Config, logger *slog.Logger) PlannerOptions {
	return PlannerOptions{
		Policy:         cfg.Organizer.DuplicatePolicy,
		IncludeTrackNo: cfg.Organizer.SemanticIncludeTrackNo,
		Similarity:     cfg.Organizer.SemanticSimilarity,
		Logger:         logger,
	}
}

// Planner computes organize plans. It never writes to the catalog or the
// filesystem.
type Planner struct {
	tracks TrackSource
	paths  PathSource
	opts   PlannerOptions
	logger *slog.Logger
	now    func() time.Time
}

// NewPlanner builds a planner reading from tracks and resolving local paths
// through paths.
func NewPlanner(tracks TrackSource, paths PathSource, opts PlannerOptions) *Planner {
	if opts.Policy == "" {
		opts.Policy = config.PolicyContent
	}
	if opts.Similarity <= 0 || opts.Similarity > 1 {
		opts.Similarity = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Planner{
		tracks: tracks,
		paths:  paths,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "organizer"),
		now:    time.Now,
	}
}

type candidate struct {
	track        catalog.Track
	localPath    string
	completeness int
	quality      float64
}

// GeneratePlan groups the catalog into duplicate classes, keeps the best
// member of each class, and lays keepers out under libraryRoot as
// Artist/Album/NN - Title.ext.
func (p *Planner) GeneratePlan(ctx context.Context, libraryRoot string) (*Plan, error) {
	root := filepath.Clean(strings.TrimSpace(libraryRoot))
	if strings.TrimSpace(libraryRoot) == "" {
		return nil, services.Wrap(services.ErrValidation, "organizer", "generate plan", "library root is required", nil)
	}
	tracks, err := p.tracks.GetAllTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	candidates := make([]candidate, 0, len(tracks))
	for _, track := range tracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		local, err := p.paths.Resolve(ctx, track)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", track.FilePath, err)
		}
		candidates = append(candidates, candidate{
			track:        track,
			localPath:    local,
			completeness: completeness(track),
			quality:      qualityScore(track),
		})
	}

	var groups [][]candidate
	switch p.opts.Policy {
	case config.PolicySemantic:
		groups = p.groupSemantic(candidates)
	default:
		groups = groupByContent(candidates)
	}

	layout := newLayout(root, candidates)
	var deletes, moves, keeps []Action
	keepers := make([]candidate, 0, len(groups))
	for _, group := range groups {
		slices.SortStableFunc(group, rankCompare)
		keeper := group[0]
		keepers = append(keepers, keeper)
		for _, dup := range group[1:] {
			if sameFile(dup.localPath, keeper.localPath) {
				// Deleting dup would delete the keeper.
				layout.handOver(dup, keeper)
				logging.WarnWithContext(p.logger, "duplicate row resolves to the kept file", "plan_alias_skipped",
					logging.TrackID(dup.track.ID),
					logging.Path(dup.localPath),
					logging.String("keeper_id", keeper.track.ID),
					logging.String(logging.FieldErrorHint, "remove the extra row with an incremental scan or by deleting its device path override"),
					logging.String(logging.FieldImpact, "the row is left out of the plan and its file is not deleted"),
				)
				continue
			}
			layout.vacate(dup)
			deletes = append(deletes, Action{
				Type:        ActionDelete,
				TrackID:     dup.track.ID,
				SourcePath:  dup.localPath,
				Reason:      duplicateReason(keeper),
				QualityInfo: qualityInfo(dup.track),
				SizeBytes:   dup.track.SizeBytes(),
			})
		}
	}

	// Keepers already in place claim their paths before any move target is
	// handed out.
	for _, keeper := range keepers {
		if identityUnknown(keeper.track) {
			continue
		}
		layout.reserveInPlace(keeper)
	}
	for _, keeper := range keepers {
		info := qualityInfo(keeper.track)
		if identityUnknown(keeper.track) {
			keeps = append(keeps, Action{
				Type: ActionKeep, TrackID: keeper.track.ID, SourcePath: keeper.localPath,
				Reason: ReasonInsufficient, QualityInfo: info,
			})
			continue
		}
		target := layout.assign(keeper)
		if textutil.SamePath(target, keeper.localPath) {
			keeps = append(keeps, Action{
				Type: ActionKeep, TrackID: keeper.track.ID, SourcePath: keeper.localPath,
				TargetPath: target, Reason: ReasonAlreadyPlaced, QualityInfo: info,
			})
			continue
		}
		moves = append(moves, Action{
			Type: ActionMove, TrackID: keeper.track.ID, SourcePath: keeper.localPath,
			TargetPath: target, Reason: ReasonStandardize, QualityInfo: info,
		})
	}

	plan := &Plan{
		LibraryRoot: root,
		Policy:      p.opts.Policy,
		GeneratedAt: p.now().UTC(),
		Actions:     slices.Concat(deletes, moves, keeps),
	}
	for _, action := range plan.Actions {
		switch action.Type {
		case ActionDelete:
			plan.Stats.ToDelete++
			plan.Stats.TotalSizeToRecover += action.SizeBytes
		case ActionMove:
			plan.Stats.ToMove++
		case ActionKeep:
			plan.Stats.ToKeep++
		}
	}
	p.logger.Info("organize plan generated",
		logging.String(logging.FieldEventType, "plan_generated"),
		logging.String("policy", plan.Policy),
		logging.Int("tracks", len(candidates)),
		logging.Int("groups", len(groups)),
		logging.Int("to_move", plan.Stats.ToMove),
		logging.Int("to_delete", plan.Stats.ToDelete),
		logging.Int("to_keep", plan.Stats.ToKeep),
		logging.Int64("bytes_to_recover", plan.Stats.TotalSizeToRecover),
	)
	return plan, nil
}

// groupByContent keys classes by file hash. A track without a hash is
// always its own class.
func groupByContent(candidates []candidate) [][]candidate {
	index := make(map[string]int)
	var groups [][]candidate
	for _, c := range candidates {
		if c.track.FileHash == "" {
			groups = append(groups, []candidate{c})
			continue
		}
		if i, ok := index[c.track.FileHash]; ok {
			groups[i] = append(groups[i], c)
			continue
		}
		index[c.track.FileHash] = len(groups)
		groups = append(groups, []candidate{c})
	}
	return groups
}

type semanticKey struct {
	artist  string
	title   string
	album   string
	trackNo int
}

func (k semanticKey) String() string {
	return k.artist + "|" + k.title + "|" + k.album + "|" + strconv.Itoa(k.trackNo)
}

// groupSemantic keys classes by folded artist, title and album. Tracks with
// an unknown artist or title are never merged.
func (p *Planner) groupSemantic(candidates []candidate) [][]candidate {
	var (
		groups [][]candidate
		keys   []semanticKey
		index  = make(map[string]int)
	)
	for _, c := range candidates {
		if identityUnknown(c.track) {
			groups = append(groups, []candidate{c})
			keys = append(keys, semanticKey{})
			continue
		}
		key := semanticKey{
			artist: textutil.FoldKey(c.track.Artist),
			title:  textutil.FoldKey(c.track.Title),
			album:  textutil.FoldKey(c.track.Album),
		}
		if p.opts.IncludeTrackNo && c.track.TrackNo != nil {
			key.trackNo = *c.track.TrackNo
		}
		if i, ok := index[key.String()]; ok {
			groups[i] = append(groups[i], c)
			continue
		}
		if p.opts.Similarity < 1 {
			if i := p.similarGroup(key, keys); i >= 0 {
				groups[i] = append(groups[i], c)
				index[key.String()] = i
				continue
			}
		}
		index[key.String()] = len(groups)
		groups = append(groups, []candidate{c})
		keys = append(keys, key)
	}
	return groups
}

func (p *Planner) similarGroup(key semanticKey, keys []semanticKey) int {
	threshold := float32(p.opts.Similarity)
	for i, other := range keys {
		if other.title == "" || other.trackNo != key.trackNo {
			continue
		}
		if similar(key.artist, other.artist, threshold) &&
			similar(key.title, other.title, threshold) &&
			similar(key.album, other.album, threshold) {
			return i
		}
	}
	return -1
}

func similar(a, b string, threshold float32) bool {
	if a == b {
		return true
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return false
	}
	return score >= threshold
}

// rankCompare orders candidates best first: completeness, then quality,
// then path so ties are deterministic.
func rankCompare(a, b candidate) int {
	if c := cmp.Compare(b.completeness, a.completeness); c != 0 {
		return c
	}
	if c := cmp.Compare(b.quality, a.quality); c != 0 {
		return c
	}
	return cmp.Compare(a.localPath, b.localPath)
}

// completeness counts populated fields of a fixed ten-field checklist.
func completeness(t catalog.Track) int {
	score := 0
	for _, text := range []string{t.Title, t.Artist, t.AlbumArtist, t.Album, t.Format} {
		if strings.TrimSpace(text) != "" {
			score++
		}
	}
	for _, n := range []*int{t.TrackNo, t.BPM, t.DurationSeconds, t.BitrateKbps} {
		if n != nil {
			score++
		}
	}
	if t.FileSizeBytes != nil {
		score++
	}
	return score
}

const completenessFields = 10

const (
	losslessScore = 1000
	lossyScore    = 500
)

// qualityScore ranks lossless containers above lossy ones, then by bitrate.
func qualityScore(t catalog.Track) float64 {
	var score float64
	switch strings.ToLower(t.Format) {
	case "flac", "wav", "alac":
		score = losslessScore
	case "mp3", "m4a", "aac":
		score = lossyScore
	}
	if t.BitrateKbps != nil {
		score += float64(*t.BitrateKbps) / 10
	}
	return score
}

func qualityInfo(t catalog.Track) string {
	format := strings.ToUpper(strings.TrimSpace(t.Format))
	if format == "" {
		format = "UNKNOWN"
	}
	if t.BitrateKbps == nil {
		return format
	}
	return fmt.Sprintf("%s %dkbps", format, *t.BitrateKbps)
}

func duplicateReason(keeper candidate) string {
	return fmt.Sprintf("%s%s (completeness %d/%d)",
		reasonDuplicatePrefix, qualityInfo(keeper.track), keeper.completeness, completenessFields)
}

func identityUnknown(t catalog.Track) bool {
	return textutil.IsUnknown(t.DisplayArtist()) || textutil.IsUnknown(t.Title)
}

// targetPath builds root/Artist/Album/[NN - ]Title.ext for a track.
func targetPath(root string, c candidate) string {
	artist := textutil.SanitizePathComponent(c.track.DisplayArtist())
	album := textutil.SanitizePathComponent(c.track.Album)
	name := textutil.SanitizePathComponent(c.track.Title)
	if c.track.TrackNo != nil && *c.track.TrackNo > 0 {
		name = fmt.Sprintf("%02d - %s", *c.track.TrackNo, name)
	}
	return filepath.Join(root, artist, album, name+filepath.Ext(c.localPath))
}

func withSuffix(path string, n int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(path, ext), n, ext)
}
