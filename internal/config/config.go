package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Duplicate grouping policies understood by the organizer.
const (
	PolicyContent  = "content"
	PolicySemantic = "semantic"
)

// Paths contains local directories owned by this device.
type Paths struct {
	LogDir string `toml:"log_dir"`
}

// Catalog describes where the shared catalog file lives and how it is opened.
type Catalog struct {
	// SyncDir is the cloud-synchronized folder holding the catalog file.
	SyncDir                string `toml:"sync_dir"`
	FileName               string `toml:"file_name"`
	LockTimeoutSeconds     int    `toml:"lock_timeout_seconds"`
	ReloadOnExternalChange bool   `toml:"reload_on_external_change"`
}

// Library contains the local music root for this device.
type Library struct {
	Root string `toml:"root"`
	// RelativePaths stores track paths relative to Root so catalogs remain
	// portable between devices with different mount points.
	RelativePaths bool `toml:"relative_paths"`
}

// Device identifies this machine within a shared catalog.
type Device struct {
	Name string `toml:"name"`
}

// Scanner contains filesystem scan tuning.
type Scanner struct {
	// MaxOpenFiles bounds how many files are read and hashed concurrently.
	MaxOpenFiles int `toml:"max_open_files"`
}

// Organizer contains duplicate detection and reorganization policy.
type Organizer struct {
	DuplicatePolicy        string  `toml:"duplicate_policy"`
	SemanticIncludeTrackNo bool    `toml:"semantic_include_track_no"`
	SemanticSimilarity     float64 `toml:"semantic_similarity"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for tracksync.
//
// Configuration sections by subsystem:
//   - Paths: local log directory
//   - Catalog: shared catalog location and lock behaviour
//   - Library: local music root and path storage mode
//   - Device: human-readable device name
//   - Scanner: scan concurrency
//   - Organizer: duplicate policy
//   - Logging: log format, level, and rotation
type Config struct {
	Paths     Paths     `toml:"paths"`
	Catalog   Catalog   `toml:"catalog"`
	Library   Library   `toml:"library"`
	Device    Device    `toml:"device"`
	Scanner   Scanner   `toml:"scanner"`
	Organizer Organizer `toml:"organizer"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tracksync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	// A missing .env is the common case; real environment variables always win.
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tracksync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories tracksync writes to.
// The sync dir is created on a best-effort basis; an unmounted cloud folder is
// reported later when the catalog is opened.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	if strings.TrimSpace(c.Catalog.SyncDir) != "" {
		_ = os.MkdirAll(c.Catalog.SyncDir, 0o755)
	}
	return nil
}

// CatalogPath returns the absolute path of the shared catalog file.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Catalog.SyncDir, c.Catalog.FileName)
}

// LockTimeout returns the catalog lock wait as a duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Catalog.LockTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
