package config

import "os"

const (
	defaultLogDir             = "~/.local/share/tracksync/logs"
	defaultSyncDir            = "~/Dropbox/tracksync"
	defaultCatalogFileName    = "music-library.db"
	defaultLockTimeoutSeconds = 5
	defaultLibraryRoot        = "~/Music"
	defaultMaxOpenFiles       = 4
	defaultDuplicatePolicy    = PolicyContent
	defaultSemanticSimilarity = 1.0
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogMaxSizeMB       = 20
	defaultLogMaxBackups      = 5
	defaultLogMaxAgeDays      = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Catalog: Catalog{
			SyncDir:                defaultSyncDir,
			FileName:               defaultCatalogFileName,
			LockTimeoutSeconds:     defaultLockTimeoutSeconds,
			ReloadOnExternalChange: true,
		},
		Library: Library{
			Root: defaultLibraryRoot,
		},
		Device: Device{
			Name: defaultDeviceName(),
		},
		Scanner: Scanner{
			MaxOpenFiles: defaultMaxOpenFiles,
		},
		Organizer: Organizer{
			DuplicatePolicy:    defaultDuplicatePolicy,
			SemanticSimilarity: defaultSemanticSimilarity,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}

func defaultDeviceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown-device"
	}
	return host
}
