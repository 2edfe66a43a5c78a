// Package migrations creates the tracker schema. Migrations are idempotent
// and run at startup.
package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"tracker/internal/adapters/out/postgres/accountrepo"
	"tracker/internal/adapters/out/postgres/pgerrs"
	"tracker/internal/adapters/out/postgres/positionrepo"
)

var postgisStatements = []string{
	`ALTER TABLE agent_positions ADD COLUMN IF NOT EXISTS geog geography(Point, 4326)`,
	`CREATE INDEX IF NOT EXISTS agent_positions_geog_idx ON agent_positions USING GIST (geog)`,
	`CREATE INDEX IF NOT EXISTS agent_positions_role_idx ON agent_positions (role)`,
}

// Up creates the PostGIS extension, the accounts and positions tables and
// the spatial index.
func Up(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis`).Error; err != nil {
		return fmt.Errorf("create postgis extension: %w", pgerrs.Classify(err))
	}

	if err := db.AutoMigrate(&accountrepo.AccountDTO{}, &positionrepo.PositionDTO{}); err != nil {
		return fmt.Errorf("auto migrate: %w", pgerrs.Classify(err))
	}

	for _, stmt := range postgisStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migrate %q: %w", stmt, pgerrs.Classify(err))
		}
	}
	return nil
}
