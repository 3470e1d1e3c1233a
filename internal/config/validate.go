package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateOrganizer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if strings.TrimSpace(c.Catalog.SyncDir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/tracksync/config.toml"
		}
		return fmt.Errorf("catalog.sync_dir is required. Set TRACKSYNC_SYNC_DIR or edit %s (create with 'tracksync config init')", defaultPath)
	}
	if strings.ContainsAny(c.Catalog.FileName, `/\`) {
		return errors.New("catalog.file_name must be a bare file name")
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if strings.TrimSpace(c.Library.Root) == "" {
		return errors.New("library.root must be set")
	}
	return nil
}

func (c *Config) validateScanner() error {
	if c.Scanner.MaxOpenFiles > 64 {
		return errors.New("scanner.max_open_files must be 64 or less")
	}
	return nil
}

func (c *Config) validateOrganizer() error {
	switch c.Organizer.DuplicatePolicy {
	case PolicyContent, PolicySemantic:
	default:
		return fmt.Errorf("organizer.duplicate_policy: unsupported value %q (use %q or %q)", c.Organizer.DuplicatePolicy, PolicyContent, PolicySemantic)
	}
	if c.Organizer.SemanticSimilarity <= 0 || c.Organizer.SemanticSimilarity > 1 {
		return errors.New("organizer.semantic_similarity must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
