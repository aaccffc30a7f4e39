package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DefaultDriver)
	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.dsn", "")

	v.SetDefault("store.table", DefaultTable)
	v.SetDefault("store.batch_size", DefaultBatchSize)
	v.SetDefault("store.clear_before_export", false)

	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds settings that are usually supplied
// through the environment
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.dsn", "KBMEM_DATABASE_DSN")
	v.BindEnv("database.path", "KBMEM_DATABASE_PATH")
}

// Default returns a Config holding the built-in defaults
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: DefaultDriver, Path: DefaultDBPath},
		Store:    StoreConfig{Table: DefaultTable, BatchSize: DefaultBatchSize},
	}
}

// Target returns the path or DSN the configured driver connects to
func (c *Config) Target() string {
	if c.Database.Driver == "postgres" {
		return c.Database.DSN
	}
	if c.Database.Path == "" {
		return DefaultDBPath
	}
	return c.Database.Path
}

// String returns a string representation of the config with the DSN elided
func (c *Config) String() string {
	dsn := ""
	if c.Database.DSN != "" {
		dsn = "<set>"
	}
	return fmt.Sprintf("Config{Database: {Driver: %s, Path: %s, DSN: %s}, Store: {Table: %s, BatchSize: %d}}",
		c.Database.Driver, c.Database.Path, dsn, c.Store.Table, c.Store.BatchSize)
}
