package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"tracksync/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("TRACKSYNC_SYNC_DIR", "")
	t.Setenv("TRACKSYNC_LIBRARY_ROOT", "")
	t.Setenv("TRACKSYNC_DEVICE_NAME", "")
	t.Chdir(t.TempDir())
	return tempHome
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := isolateEnv(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "tracksync", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, "Dropbox", "tracksync"); cfg.Catalog.SyncDir != want {
		t.Fatalf("unexpected sync dir: got %q want %q", cfg.Catalog.SyncDir, want)
	}
	if want := filepath.Join(tempHome, "Dropbox", "tracksync", "music-library.db"); cfg.CatalogPath() != want {
		t.Fatalf("unexpected catalog path: got %q want %q", cfg.CatalogPath(), want)
	}
	if cfg.Library.Root != filepath.Join(tempHome, "Music") {
		t.Fatalf("unexpected library root: %q", cfg.Library.Root)
	}
	if cfg.LockTimeout() != 5*time.Second {
		t.Fatalf("unexpected lock timeout: %v", cfg.LockTimeout())
	}
	if !cfg.Catalog.ReloadOnExternalChange {
		t.Fatal("expected reload on external change by default")
	}
	if cfg.Organizer.DuplicatePolicy != config.PolicyContent {
		t.Fatalf("expected content policy by default, got %q", cfg.Organizer.DuplicatePolicy)
	}
	if cfg.Scanner.MaxOpenFiles != 4 {
		t.Fatalf("unexpected max open files: %d", cfg.Scanner.MaxOpenFiles)
	}
	if cfg.Device.Name == "" {
		t.Fatal("expected device name to default to hostname")
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")

	payload := map[string]any{
		"catalog": map[string]any{
			"sync_dir":             "~/cloud/music",
			"lock_timeout_seconds": 12,
		},
		"library": map[string]any{
			"root":           "~/media/music",
			"relative_paths": true,
		},
		"device": map[string]any{
			"name": "  studio-mac  ",
		},
		"organizer": map[string]any{
			"duplicate_policy":    "SEMANTIC",
			"semantic_similarity": 0.92,
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Catalog.SyncDir != filepath.Join(tempHome, "cloud", "music") {
		t.Fatalf("unexpected sync dir: %q", cfg.Catalog.SyncDir)
	}
	if cfg.LockTimeout() != 12*time.Second {
		t.Fatalf("unexpected lock timeout: %v", cfg.LockTimeout())
	}
	if !cfg.Library.RelativePaths {
		t.Fatal("expected relative paths enabled")
	}
	if cfg.Device.Name != "studio-mac" {
		t.Fatalf("unexpected device name: %q", cfg.Device.Name)
	}
	if cfg.Organizer.DuplicatePolicy != config.PolicySemantic {
		t.Fatalf("expected lower-cased policy, got %q", cfg.Organizer.DuplicatePolicy)
	}
	if cfg.Organizer.SemanticSimilarity != 0.92 {
		t.Fatalf("unexpected similarity: %v", cfg.Organizer.SemanticSimilarity)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadEnvironmentFallbacks(t *testing.T) {
	isolateEnv(t)
	syncDir := t.TempDir()
	root := t.TempDir()
	t.Setenv("TRACKSYNC_SYNC_DIR", syncDir)
	t.Setenv("TRACKSYNC_LIBRARY_ROOT", root)
	t.Setenv("TRACKSYNC_DEVICE_NAME", "laptop")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Catalog.SyncDir != syncDir {
		t.Fatalf("expected sync dir from env, got %q", cfg.Catalog.SyncDir)
	}
	if cfg.Library.Root != root {
		t.Fatalf("expected library root from env, got %q", cfg.Library.Root)
	}
	if cfg.Device.Name != "laptop" {
		t.Fatalf("expected device name from env, got %q", cfg.Device.Name)
	}
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	isolateEnv(t)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	envFile := "TRACKSYNC_DEVICE_NAME=from-dotenv\n"
	if err := os.WriteFile(filepath.Join(wd, ".env"), []byte(envFile), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("TRACKSYNC_DEVICE_NAME", "from-env")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Device.Name != "from-env" {
		t.Fatalf("expected real environment to win, got %q", cfg.Device.Name)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "policy", body: "[organizer]\nduplicate_policy = \"fuzzy\"\n", wantErr: "organizer.duplicate_policy"},
		{name: "similarity", body: "[organizer]\nsemantic_similarity = 1.5\n", wantErr: "organizer.semantic_similarity"},
		{name: "file name", body: "[catalog]\nfile_name = \"sub/library.db\"\n", wantErr: "catalog.file_name"},
		{name: "log format", body: "[logging]\nformat = \"xml\"\n", wantErr: "logging.format"},
		{name: "log level", body: "[logging]\nlevel = \"trace\"\n", wantErr: "logging.level"},
		{name: "open files", body: "[scanner]\nmax_open_files = 500\n", wantErr: "scanner.max_open_files"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[catalog\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadProjectFallback(t *testing.T) {
	isolateEnv(t)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	projectPath := filepath.Join(wd, "tracksync.toml")
	if err := os.WriteFile(projectPath, []byte("[device]\nname = \"project\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != projectPath {
		t.Fatalf("expected project config %q, got %q exists=%v", projectPath, resolved, exists)
	}
	if cfg.Device.Name != "project" {
		t.Fatalf("unexpected device name: %q", cfg.Device.Name)
	}
}

func TestCreateSampleLoadsCleanly(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Catalog.FileName != "music-library.db" {
		t.Fatalf("unexpected catalog file name: %q", cfg.Catalog.FileName)
	}
}

func TestEnsureDirectoriesCreatesLogAndSyncDirs(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Catalog.SyncDir = filepath.Join(base, "sync")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Catalog.SyncDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestExpandPathHandlesTilde(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	got, err := config.ExpandPath("~/Music/../Music/Library")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if want := filepath.Join(tempHome, "Music", "Library"); got != want {
		t.Fatalf("ExpandPath = %q, want %q", got, want)
	}
	if got, _ := config.ExpandPath(""); got != "" {
		t.Fatalf("expected empty path to stay empty, got %q", got)
	}
}
