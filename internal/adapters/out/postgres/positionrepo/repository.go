package positionrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tracker/internal/adapters/out/postgres/pgerrs"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/core/domain/services"
	"tracker/internal/pkg/errs"
)

// searchSlack widens the ST_DWithin radius slightly so that rows on the
// circle's edge reach the haversine filter, which has the final say.
const (
	searchSlackRatio  = 1e-6
	searchSlackMeters = 1.0
)

const upsertSQL = `
INSERT INTO agent_positions (agent_id, role, longitude, latitude, geog, updated_at)
VALUES (@agent_id, @role, @longitude, @latitude,
        ST_SetSRID(ST_MakePoint(@longitude, @latitude), 4326)::geography, @updated_at)
ON CONFLICT (agent_id) DO UPDATE SET
    role       = EXCLUDED.role,
    longitude  = EXCLUDED.longitude,
    latitude   = EXCLUDED.latitude,
    geog       = EXCLUDED.geog,
    updated_at = EXCLUDED.updated_at`

const nearbySQL = `
SELECT agent_id, role, longitude, latitude, updated_at
FROM agent_positions
WHERE role = @role
  AND NOT (longitude = 0 AND latitude = 0)
  AND ST_DWithin(geog, ST_SetSRID(ST_MakePoint(@longitude, @latitude), 4326)::geography, @radius, false)
ORDER BY ST_Distance(geog, ST_SetSRID(ST_MakePoint(@longitude, @latitude), 4326)::geography, false), agent_id`

// GormPositionRepository implements ports.PositionRepository on PostGIS.
//
// Upserts for one agent apply in the order they reach the store. updated_at
// is recorded as given and never used to discard a write.
type GormPositionRepository struct {
	db      *gorm.DB
	matcher services.ProximityMatcher
}

// NewGormPositionRepository creates a repository over db, which may be a
// transaction.
func NewGormPositionRepository(db *gorm.DB) *GormPositionRepository {
	return &GormPositionRepository{
		db:      db,
		matcher: services.NewProximityMatcher(),
	}
}

// Upsert stores position, replacing whatever the agent had stored before.
func (r *GormPositionRepository) Upsert(ctx context.Context, position *agent.Position) error {
	if err := position.Validate(); err != nil {
		return err
	}

	dto := fromDomain(position)
	err := r.db.WithContext(ctx).Exec(upsertSQL, map[string]any{
		"agent_id":   dto.AgentID,
		"role":       dto.Role,
		"longitude":  dto.Longitude,
		"latitude":   dto.Latitude,
		"updated_at": dto.UpdatedAt,
	}).Error
	return pgerrs.Classify(err)
}

// Get returns the stored position of agentID.
func (r *GormPositionRepository) Get(ctx context.Context, agentID kernel.AgentID) (*agent.Position, error) {
	if agentID == "" {
		return nil, kernel.ErrAgentIDIsRequired
	}

	var dto PositionDTO
	if err := r.db.WithContext(ctx).First(&dto, "agent_id = ?", agentID.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("agentId", agentID.String())
		}
		return nil, pgerrs.Classify(err)
	}

	return toDomain(dto)
}

// FindNearby returns the positions of role within radiusMeters of center,
// closest first. Positions without a fix are never returned.
func (r *GormPositionRepository) FindNearby(
	ctx context.Context,
	center kernel.Location,
	radiusMeters float64,
	role agent.Role,
) ([]*agent.Position, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if err := kernel.ValidateRadius(radiusMeters); err != nil {
		return nil, err
	}
	if !role.IsCourier() {
		return []*agent.Position{}, nil
	}

	var dtos []PositionDTO
	err := r.db.WithContext(ctx).Raw(nearbySQL, map[string]any{
		"role":      role.String(),
		"longitude": center.Longitude(),
		"latitude":  center.Latitude(),
		"radius":    radiusMeters*(1+searchSlackRatio) + searchSlackMeters,
	}).Scan(&dtos).Error
	if err != nil {
		return nil, pgerrs.Classify(err)
	}

	candidates := make([]*agent.Position, 0, len(dtos))
	for _, dto := range dtos {
		position, convErr := toDomain(dto)
		if convErr != nil {
			return nil, convErr
		}
		candidates = append(candidates, position)
	}

	matches, err := r.matcher.Match(center, radiusMeters, candidates)
	if err != nil {
		return nil, err
	}
	return services.Positions(matches), nil
}
