package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/core/ports"
	"tracker/internal/pkg/errs"
)

// ErrIngestIgnored is returned when a report is dropped on purpose: the
// agent is unknown to the account directory or is not a courier. Callers of
// the live channel treat it as a silent no-op.
var ErrIngestIgnored = errors.New("coordinate report ignored")

// IngestCoordinateCommandHandler stores live coordinate reports and hands
// the stored position to the fan-out.
//
// Flow:
//  1. look the agent up in the account directory
//  2. drop the report unless the agent is a courier
//  3. upsert the position and commit
//  4. publish PositionUpdated; failures are logged and never returned
//
// Example:
//
//	handler := commands.NewIngestCoordinateCommandHandler(uowFactory, broker, instanceID, logger)
//	pos, err := handler.Handle(ctx, cmd)
//	if errors.Is(err, commands.ErrIngestIgnored) {
//	    return nil
//	}
type IngestCoordinateCommandHandler struct {
	uowFactory TrackingUoWFactory
	publisher  ports.PositionPublisher
	instance   kernel.UUID
	logger     *slog.Logger
}

// NewIngestCoordinateCommandHandler creates the handler. instance identifies
// this process in published events.
func NewIngestCoordinateCommandHandler(
	uowFactory TrackingUoWFactory,
	publisher ports.PositionPublisher,
	instance kernel.UUID,
	logger *slog.Logger,
) IngestCoordinateCommandHandler {
	return IngestCoordinateCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		instance:   instance,
		logger:     logger.With("component", "ingest_coordinate_handler"),
	}
}

// Handle processes one report and returns the stored position.
func (h *IngestCoordinateCommandHandler) Handle(ctx context.Context, cmd IngestCoordinateCommand) (*agent.Position, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	account, err := uow.AccountDirectory().Get(ctx, cmd.AgentID())
	if err != nil {
		if errors.Is(err, errs.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: agent %s is unknown", ErrIngestIgnored, cmd.AgentID())
		}
		return nil, err
	}

	if !account.Role().IsCourier() {
		return nil, fmt.Errorf("%w: agent %s has role %s", ErrIngestIgnored, cmd.AgentID(), account.Role())
	}

	position, err := agent.NewPosition(account.ID(), account.Role(), cmd.Location(), time.Now())
	if err != nil {
		return nil, err
	}

	if err = uow.PositionRepository().Upsert(ctx, position); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	publish(ctx, h.logger, h.publisher, agent.NewPositionUpdated(position, cmd.OriginChannel(), h.instance))

	return position, nil
}

// publish hands the event to the fan-out. Failures are logged only; the
// stored position stays.
func publish(ctx context.Context, logger *slog.Logger, publisher ports.PositionPublisher, event agent.PositionUpdated) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish position update",
			"agent_id", event.AgentID.String(),
			"error", err)
	}
}
