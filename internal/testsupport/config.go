package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tracksync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The library root and sync dir exist on return.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Catalog.SyncDir = filepath.Join(base, "sync")
	cfgVal.Library.Root = filepath.Join(base, "music")
	cfgVal.Device.Name = "test-device"
	cfgVal.Catalog.LockTimeoutSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, dir := range []string{builder.cfg.Library.Root, builder.cfg.Catalog.SyncDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return builder.cfg
}

// WithDuplicatePolicy sets the organizer duplicate policy.
func WithDuplicatePolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Organizer.DuplicatePolicy = policy
	}
}

// WithRelativePaths stores catalog paths relative to the library root.
func WithRelativePaths() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Library.RelativePaths = true
	}
}

// WithDeviceName overrides the device name.
func WithDeviceName(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Device.Name = name
	}
}

// WithSyncDir points the catalog at an existing sync dir, e.g. to simulate a
// second device sharing the same catalog file.
func WithSyncDir(dir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.SyncDir = dir
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
