package agent

import (
	"errors"
	"fmt"
	"time"

	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/errs"
	"tracker/internal/pkg/guard"
)

var (
	// ErrRoleNotTracked is returned when building a Position for a role whose
	// location is never stored.
	ErrRoleNotTracked = errs.NewValueIsInvalidError("role is not tracked")
	// ErrPositionIsNotConstructed is returned when using a zero-value Position.
	ErrPositionIsNotConstructed = errors.New("Position must be created via NewPosition constructor")
	// ErrUpdatedAtIsRequired is returned for a zero timestamp.
	ErrUpdatedAtIsRequired = errs.NewValueIsRequiredError("updatedAt")
)

// Position is the last known location of a courier. It is replaced as a
// whole on every accepted report, so there is at most one Position per agent.
//
// Example:
//
//	loc, _ := kernel.NewLocation(10.0, 50.0)
//	pos, err := agent.NewPosition("c1", agent.RoleCourier, loc, time.Now())
//	if errors.Is(err, agent.ErrRoleNotTracked) {
//	    // customers are never stored
//	}
type Position struct {
	agentID   kernel.AgentID
	role      Role
	location  kernel.Location
	updatedAt time.Time
	guard     guard.ConstructorGuard
}

// NewPosition validates and builds a Position. Only couriers are tracked.
func NewPosition(agentID kernel.AgentID, role Role, location kernel.Location, updatedAt time.Time) (*Position, error) {
	position := &Position{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		position.setAgentID(agentID),
		position.setRole(role),
		position.setLocation(location),
		position.setUpdatedAt(updatedAt),
	); err != nil {
		return nil, err
	}

	return position, nil
}

// Validate reports whether the Position came from NewPosition.
func (p *Position) Validate() error {
	if p == nil {
		return ErrPositionIsNotConstructed
	}
	return p.guard.Validate(ErrPositionIsNotConstructed)
}

// AgentID returns the courier identifier.
func (p *Position) AgentID() kernel.AgentID {
	return p.agentID
}

// Role returns the role the position was stored under. It is always RoleCourier.
func (p *Position) Role() Role {
	return p.role
}

// Location returns the reported coordinate.
func (p *Position) Location() kernel.Location {
	return p.location
}

// UpdatedAt returns the time the report was accepted, in UTC.
func (p *Position) UpdatedAt() time.Time {
	return p.updatedAt
}

// HasFix is false while the courier is still at the (0,0) default.
func (p *Position) HasFix() bool {
	return p.location.HasFix()
}

func (p *Position) String() string {
	return fmt.Sprintf("Position(%s %s at %s)", p.agentID, p.location, p.updatedAt.Format(time.RFC3339))
}

func (p *Position) setAgentID(id kernel.AgentID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	p.agentID = id
	return nil
}

func (p *Position) setRole(role Role) error {
	if err := role.Validate(); err != nil {
		return err
	}
	if !role.IsCourier() {
		return ErrRoleNotTracked
	}
	p.role = role
	return nil
}

func (p *Position) setLocation(location kernel.Location) error {
	if err := location.Validate(); err != nil {
		return err
	}
	p.location = location
	return nil
}

func (p *Position) setUpdatedAt(updatedAt time.Time) error {
	if updatedAt.IsZero() {
		return ErrUpdatedAtIsRequired
	}
	p.updatedAt = updatedAt.UTC()
	return nil
}
