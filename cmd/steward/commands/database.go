package commands

import (
	"database/sql"

	"github.com/stratadata/steward/config"
	"github.com/stratadata/steward/db"
	"github.com/stratadata/steward/errors"
	"github.com/stratadata/steward/logger"
)

// openGoverned loads configuration and opens the migrated database. Every
// command goes through here so config problems surface before any work.
func openGoverned() (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "load configuration")
	}
	conn, err := db.OpenWithMigrations(cfg.Database.Path, logger.Logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open database")
	}
	return cfg, conn, nil
}
