// Package am loads kbmem configuration from defaults, TOML files and
// KBMEM_ environment variables.
package am

// Config represents the kbmem configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	Store    StoreConfig    `mapstructure:"store" toml:"store"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
}

// DatabaseConfig selects the backing store
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" toml:"driver"` // sqlite or postgres
	Path   string `mapstructure:"path" toml:"path"`     // sqlite file, or ":memory:"
	DSN    string `mapstructure:"dsn" toml:"dsn"`       // postgres connection string
}

// StoreConfig configures how the path store is synced with its table
type StoreConfig struct {
	Table             string `mapstructure:"table" toml:"table"`
	BatchSize         int    `mapstructure:"batch_size" toml:"batch_size"`
	ClearBeforeExport bool   `mapstructure:"clear_before_export" toml:"clear_before_export"`
}

// LogConfig configures logging output
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json"`
}

// Configuration defaults
const (
	DefaultDriver    = "sqlite"
	DefaultDBPath    = "kbmem.db"
	DefaultTable     = "knowledge_base"
	DefaultBatchSize = 500
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
