// Package positionrepo persists courier positions in PostGIS.
// Coordinates are stored twice: as plain longitude/latitude columns for
// reconstruction, and as a geography point for indexed radius search.
package positionrepo

import (
	"time"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
)

// TableName is the positions table.
const TableName = "agent_positions"

// PositionDTO is the row shape of agent_positions. The geog column is
// maintained with SQL expressions and is not mapped.
type PositionDTO struct {
	AgentID   string    `gorm:"column:agent_id;type:varchar(128);primaryKey"`
	Role      string    `gorm:"column:role;type:varchar(32);not null"`
	Longitude float64   `gorm:"column:longitude;type:double precision;not null"`
	Latitude  float64   `gorm:"column:latitude;type:double precision;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;autoUpdateTime:false"`
}

// TableName overrides GORM's default "position_dtos".
func (PositionDTO) TableName() string {
	return TableName
}

func fromDomain(position *agent.Position) PositionDTO {
	return PositionDTO{
		AgentID:   position.AgentID().String(),
		Role:      position.Role().String(),
		Longitude: position.Location().Longitude(),
		Latitude:  position.Location().Latitude(),
		UpdatedAt: position.UpdatedAt(),
	}
}

func toDomain(dto PositionDTO) (*agent.Position, error) {
	id, err := kernel.NewAgentID(dto.AgentID)
	if err != nil {
		return nil, err
	}

	role, err := agent.ParseRole(dto.Role)
	if err != nil {
		return nil, err
	}

	location, err := kernel.NewLocation(dto.Longitude, dto.Latitude)
	if err != nil {
		return nil, err
	}

	return agent.NewPosition(id, role, location, dto.UpdatedAt)
}
