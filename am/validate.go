package am

import (
	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/ltree"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path cannot be empty for the sqlite driver")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.WithHint(
				errors.New("database.dsn cannot be empty for the postgres driver"),
				"set KBMEM_DATABASE_DSN or database.dsn in am.toml")
		}
	default:
		return errors.Newf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	// Table names are spliced into SQL, so they must be plain identifiers
	if !ltree.ValidLabel(c.Store.Table) {
		return errors.Newf("store.table must be a plain identifier, got %q", c.Store.Table)
	}

	if c.Store.BatchSize <= 0 {
		return errors.Newf("store.batch_size must be > 0, got %d", c.Store.BatchSize)
	}

	return nil
}
