// Package config loads, normalizes, and validates tracksync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TRACKSYNC_SYNC_DIR (optionally sourced from a .env file). The Config type
// centralizes every knob the CLI needs, so the catalog location inside the
// cloud-sync folder, the local music root, and organizer policy are discovered
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
