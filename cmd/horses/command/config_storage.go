package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-horses/internal/database"
)

type StorageConfig struct {
	Path             string `json:"path"`
	OnlineMode       *bool  `json:"online_mode"`
	MigrateOnStart   bool   `json:"migrate_on_start"`
	Preload          bool   `json:"preload"`
	AutosaveInterval string `json:"autosave_interval"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()

	if c.Path == "" {
		el.Add(fmt.Errorf("storage: path is required"))
	}

	if c.AutosaveInterval != "" {
		_, err := time.ParseDuration(c.AutosaveInterval)
		if err != nil {
			el.Add(fmt.Errorf("storage: parsing autosave_interval: %w", err))
		}
	}

	// Name keyed documents would be loaded twice once players show up with
	// their canonical ids.
	if c.Preload && c.online() && !c.MigrateOnStart {
		el.Add(fmt.Errorf("storage: preload in online mode requires migrate_on_start"))
	}

	return el.Err()
}

func (c *StorageConfig) online() bool {
	return c.OnlineMode == nil || *c.OnlineMode
}

func (c *StorageConfig) autosaveInterval() time.Duration {
	return parseDuration(c.AutosaveInterval)
}

func (c *StorageConfig) BuildDatabase() *database.YamlDatabase {
	return database.NewYamlDatabase(c.Path, database.WithOnlineMode(c.online()))
}

// BuildRegistry wraps db in a registry. Migration needs the identity service,
// so it waits for ready.
func (c *StorageConfig) BuildRegistry(db *database.YamlDatabase, resolver database.IdentityResolver, ready <-chan struct{}) *database.Registry {
	opts := []database.RegistryOpt{
		database.WithPreload(c.Preload),
		database.WithStartAfter(ready),
	}
	if c.MigrateOnStart && c.online() {
		opts = append(opts, database.WithMigration(db, resolver))
	}
	return database.NewRegistry(db, opts...)
}
