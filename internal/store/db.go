package store

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (creating if needed) the agent state database and migrates the
// schema. The database holds everything that must survive a restart: alerts,
// whitelist entries, quarantine records and settings.
func Open(path string, gl logger.Interface) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if gl != nil {
		cfg.Logger = gl
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := db.AutoMigrate(&Alert{}, &QuarantineRecord{}, &WhitelistEntry{}, &Setting{}); err != nil {
		return nil, fmt.Errorf("migrate state database: %w", err)
	}
	return db, nil
}
