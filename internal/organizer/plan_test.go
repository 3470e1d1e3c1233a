package organizer_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"tracksync/internal/organizer"
	"tracksync/internal/services"
)

func TestSaveAndLoadPlan(t *testing.T) {
	dir := t.TempDir()
	plan := &organizer.Plan{
		LibraryRoot: "/music",
		Policy:      "content",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Actions: []organizer.Action{
			{Type: organizer.ActionDelete, TrackID: "t2", SourcePath: "/music/b.mp3", Reason: "dup", SizeBytes: 42},
			{Type: organizer.ActionMove, TrackID: "t1", SourcePath: "/music/a.flac", TargetPath: "/music/A/B/a.flac", Reason: organizer.ReasonStandardize, QualityInfo: "FLAC 900kbps"},
			{Type: organizer.ActionKeep, TrackID: "t3", SourcePath: "/music/u.mp3", Reason: organizer.ReasonInsufficient},
		},
		Stats: organizer.Stats{ToMove: 1, ToDelete: 1, ToKeep: 1, TotalSizeToRecover: 42},
	}
	path := filepath.Join(dir, "plans", "plan.json")
	if err := organizer.SavePlan(path, plan); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	loaded, err := organizer.LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if !reflect.DeepEqual(loaded, plan) {
		t.Fatalf("loaded plan differs:\n got %+v\nwant %+v", loaded, plan)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected only the plan file, got %v (%v)", entries, err)
	}
}

func TestLoadPlanRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"libraryRoot":`,
		"missing root":   `{"actions":[]}`,
		"unknown type":   `{"libraryRoot":"/m","actions":[{"type":"RENAME","sourcePath":"/m/a"}]}`,
		"missing source": `{"libraryRoot":"/m","actions":[{"type":"DELETE"}]}`,
		"move no target": `{"libraryRoot":"/m","actions":[{"type":"MOVE","sourcePath":"/m/a"}]}`,
		"shared target":  `{"libraryRoot":"/m","actions":[{"type":"MOVE","sourcePath":"/m/a","targetPath":"/m/x"},{"type":"MOVE","sourcePath":"/m/b","targetPath":"/m/x"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "plan.json")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := organizer.LoadPlan(path); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
