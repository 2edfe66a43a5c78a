package commands

import (
	"errors"

	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/guard"
)

var ErrIngestCoordinateCommandIsNotConstructed = errors.New(
	"IngestCoordinateCommand must be created via NewIngestCoordinateCommand constructor",
)

// IngestCoordinateCommand is one coordinate report received over a live
// connection. originChannel is the handle of that connection; the fan-out
// skips it so the reporter does not get its own update back.
//
// Example:
//
//	loc, err := kernel.NewLocation(10.0, 50.0)
//	if err != nil {
//	    return err // kernel.ErrInvalidCoordinate
//	}
//	cmd, err := commands.NewIngestCoordinateCommand("c1", loc, channel.ID())
type IngestCoordinateCommand struct { //nolint:recvcheck //using for validation
	agentID       kernel.AgentID
	location      kernel.Location
	originChannel kernel.UUID

	guard guard.ConstructorGuard
}

// NewIngestCoordinateCommand validates and builds the command. A zero
// originChannel means the report has no live connection to exclude.
func NewIngestCoordinateCommand(
	agentID kernel.AgentID,
	location kernel.Location,
	originChannel kernel.UUID,
) (IngestCoordinateCommand, error) {
	command := IngestCoordinateCommand{
		originChannel: originChannel,
		guard:         guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		command.setAgentID(agentID),
		command.setLocation(location),
	); err != nil {
		return IngestCoordinateCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c IngestCoordinateCommand) Validate() error {
	return c.guard.Validate(ErrIngestCoordinateCommandIsNotConstructed)
}

// AgentID returns the reporting agent.
func (c IngestCoordinateCommand) AgentID() kernel.AgentID {
	return c.agentID
}

// Location returns the reported coordinate.
func (c IngestCoordinateCommand) Location() kernel.Location {
	return c.location
}

// OriginChannel returns the handle of the reporting connection.
func (c IngestCoordinateCommand) OriginChannel() kernel.UUID {
	return c.originChannel
}

func (c *IngestCoordinateCommand) setAgentID(id kernel.AgentID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.agentID = id
	return nil
}

func (c *IngestCoordinateCommand) setLocation(location kernel.Location) error {
	if err := location.Validate(); err != nil {
		return err
	}

	c.location = location
	return nil
}
