/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_sequencer/internal/models"
)

// Migrate applies the schema using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Catalog{},
		&models.CatalogArtist{},
		&models.CatalogAlbum{},
		&models.CatalogGenre{},
		&models.CatalogItem{},
		&models.SequenceRun{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	return applyPostgresRecencyCheck(database)
}

// applyPostgresRecencyCheck adds a CHECK constraint so rows written outside
// the store cannot carry a recency rank the catalog would reject.
func applyPostgresRecencyCheck(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_constraint WHERE conname = 'chk_catalog_items_recency'
  ) THEN
    ALTER TABLE catalog_items
      ADD CONSTRAINT chk_catalog_items_recency CHECK (recency IN (-1, 1));
  END IF;
END
$$;`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres recency check: %w", err)
	}
	return nil
}
