package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	if err := c.normalizeLibrary(); err != nil {
		return err
	}
	c.normalizeDevice()
	c.normalizeScanner()
	c.normalizeOrganizer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	if value, ok := os.LookupEnv("TRACKSYNC_SYNC_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Catalog.SyncDir = value
	}
	var err error
	if c.Catalog.SyncDir, err = expandPath(strings.TrimSpace(c.Catalog.SyncDir)); err != nil {
		return fmt.Errorf("catalog.sync_dir: %w", err)
	}
	c.Catalog.FileName = strings.TrimSpace(c.Catalog.FileName)
	if c.Catalog.FileName == "" {
		c.Catalog.FileName = defaultCatalogFileName
	}
	if c.Catalog.LockTimeoutSeconds <= 0 {
		c.Catalog.LockTimeoutSeconds = defaultLockTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeLibrary() error {
	if value, ok := os.LookupEnv("TRACKSYNC_LIBRARY_ROOT"); ok && strings.TrimSpace(value) != "" {
		c.Library.Root = value
	}
	var err error
	if c.Library.Root, err = expandPath(strings.TrimSpace(c.Library.Root)); err != nil {
		return fmt.Errorf("library.root: %w", err)
	}
	return nil
}

func (c *Config) normalizeDevice() {
	if value, ok := os.LookupEnv("TRACKSYNC_DEVICE_NAME"); ok && strings.TrimSpace(value) != "" {
		c.Device.Name = value
	}
	c.Device.Name = strings.TrimSpace(c.Device.Name)
	if c.Device.Name == "" {
		c.Device.Name = defaultDeviceName()
	}
}

func (c *Config) normalizeScanner() {
	if c.Scanner.MaxOpenFiles <= 0 {
		c.Scanner.MaxOpenFiles = defaultMaxOpenFiles
	}
}

func (c *Config) normalizeOrganizer() {
	c.Organizer.DuplicatePolicy = strings.ToLower(strings.TrimSpace(c.Organizer.DuplicatePolicy))
	if c.Organizer.DuplicatePolicy == "" {
		c.Organizer.DuplicatePolicy = defaultDuplicatePolicy
	}
	if c.Organizer.SemanticSimilarity == 0 {
		c.Organizer.SemanticSimilarity = defaultSemanticSimilarity
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}
