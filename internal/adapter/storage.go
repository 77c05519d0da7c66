package adapter

import (
	"fmt"
	"path/filepath"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/store"
	"github.com/mmcdole/crate/internal/store/sqlite"
)

// OpenStore opens the configured local store. Each remote base URL gets its
// own directory beneath the storage dir.
func OpenStore(cfg *Config) (domain.LocalStore, error) {
	switch cfg.Storage.Driver {
	case StorageDriverBolt, "":
		var opts []store.Option
		if cfg.Storage.DeferredFlush {
			opts = append(opts, store.WithDeferredFlush())
		}
		return store.Open(cfg.Storage.Dir, cfg.Remote.BaseURL, opts...)

	case StorageDriverSQLite:
		dir := store.Dir(cfg.Storage.Dir, cfg.Remote.BaseURL)
		return sqlite.Open(filepath.Join(dir, sqlite.DBFile))

	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}
