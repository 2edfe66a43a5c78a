package commands

import (
	"errors"
	"strings"

	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/errs"
	"tracker/internal/pkg/guard"
)

var (
	ErrUpdateLocationCommandIsNotConstructed = errors.New(
		"UpdateLocationCommand must be created via NewUpdateLocationCommand constructor",
	)
	// ErrLocationOrAddressIsRequired is returned when neither a coordinate nor an address is given.
	ErrLocationOrAddressIsRequired = errs.NewValueIsRequiredError("coordinate or address")
	// ErrLocationAndAddressAreExclusive is returned when both are given.
	ErrLocationAndAddressAreExclusive = errs.NewValueIsInvalidErrorWithCause(
		"coordinate and address",
		errors.New("provide exactly one of them"),
	)
)

// MaxAddressLength bounds the free-form address passed to the geocoder.
const MaxAddressLength = 512

// UpdateLocationCommand sets a courier location through the REST API, either
// as an explicit coordinate or as a postal address to geocode.
//
// Example:
//
//	cmd, err := commands.NewUpdateLocationCommand("c1", nil, "Unter den Linden 1, Berlin")
//	pos, err := handler.Handle(ctx, cmd)
type UpdateLocationCommand struct { //nolint:recvcheck //using for validation
	agentID  kernel.AgentID
	location *kernel.Location
	address  string

	guard guard.ConstructorGuard
}

// NewUpdateLocationCommand validates and builds the command. Exactly one of
// location and address must be set.
func NewUpdateLocationCommand(
	agentID kernel.AgentID,
	location *kernel.Location,
	address string,
) (UpdateLocationCommand, error) {
	command := UpdateLocationCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		command.setAgentID(agentID),
		command.setTarget(location, address),
	); err != nil {
		return UpdateLocationCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c UpdateLocationCommand) Validate() error {
	return c.guard.Validate(ErrUpdateLocationCommandIsNotConstructed)
}

// AgentID returns the courier whose location changes.
func (c UpdateLocationCommand) AgentID() kernel.AgentID {
	return c.agentID
}

// Location returns the explicit coordinate, if one was given.
func (c UpdateLocationCommand) Location() (kernel.Location, bool) {
	if c.location == nil {
		return kernel.Location{}, false
	}
	return *c.location, true
}

// Address returns the address to geocode; empty when a coordinate was given.
func (c UpdateLocationCommand) Address() string {
	return c.address
}

func (c *UpdateLocationCommand) setAgentID(id kernel.AgentID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.agentID = id
	return nil
}

func (c *UpdateLocationCommand) setTarget(location *kernel.Location, address string) error {
	address = strings.TrimSpace(address)

	switch {
	case location == nil && address == "":
		return ErrLocationOrAddressIsRequired
	case location != nil && address != "":
		return ErrLocationAndAddressAreExclusive
	case location != nil:
		if err := location.Validate(); err != nil {
			return err
		}
		loc := *location
		c.location = &loc
	default:
		if n := len([]rune(address)); n > MaxAddressLength {
			return errs.NewValueIsOutOfRangeError("address length", n, 1, MaxAddressLength)
		}
		c.address = address
	}

	return nil
}
