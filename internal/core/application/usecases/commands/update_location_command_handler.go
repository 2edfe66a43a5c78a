package commands

import (
	"context"
	"log/slog"
	"time"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/core/ports"
	"tracker/internal/pkg/errs"
)

// UpdateLocationCommandHandler applies a REST location update. Unlike the
// live path it surfaces every failure: an unknown agent is NotFound and a
// non-courier is Forbidden.
//
// Example:
//
//	handler := commands.NewUpdateLocationCommandHandler(uowFactory, geocoder, broker, instanceID, logger)
//	pos, err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, errs.ErrObjectNotFound): // 404
//	case errors.Is(err, errs.ErrForbidden):      // 403
//	}
type UpdateLocationCommandHandler struct {
	uowFactory TrackingUoWFactory
	geocoder   ports.Geocoder
	publisher  ports.PositionPublisher
	instance   kernel.UUID
	logger     *slog.Logger
}

// NewUpdateLocationCommandHandler creates the handler. geocoder may be nil,
// in which case address updates fail with errs.ErrUnavailable.
func NewUpdateLocationCommandHandler(
	uowFactory TrackingUoWFactory,
	geocoder ports.Geocoder,
	publisher ports.PositionPublisher,
	instance kernel.UUID,
	logger *slog.Logger,
) UpdateLocationCommandHandler {
	return UpdateLocationCommandHandler{
		uowFactory: uowFactory,
		geocoder:   geocoder,
		publisher:  publisher,
		instance:   instance,
		logger:     logger.With("component", "update_location_handler"),
	}
}

// Handle resolves the target location, stores it and publishes the update.
// The account check and geocoding run before the transaction opens, so a slow
// geocoder never holds a database connection.
func (h *UpdateLocationCommandHandler) Handle(ctx context.Context, cmd UpdateLocationCommand) (*agent.Position, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()

	account, err := uow.AccountDirectory().Get(ctx, cmd.AgentID())
	if err != nil {
		return nil, err
	}

	if !account.Role().IsCourier() {
		return nil, errs.NewForbiddenError(cmd.AgentID().String(), "only couriers have a tracked location")
	}

	location, err := h.resolve(ctx, cmd)
	if err != nil {
		return nil, err
	}

	position, err := agent.NewPosition(account.ID(), account.Role(), location, time.Now())
	if err != nil {
		return nil, err
	}

	if err = uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.PositionRepository().Upsert(ctx, position); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	publish(ctx, h.logger, h.publisher, agent.NewPositionUpdated(position, kernel.UUID{}, h.instance))

	return position, nil
}

func (h *UpdateLocationCommandHandler) resolve(ctx context.Context, cmd UpdateLocationCommand) (kernel.Location, error) {
	if location, ok := cmd.Location(); ok {
		return location, nil
	}

	if h.geocoder == nil {
		return kernel.Location{}, errs.NewUnavailableError("geocoder")
	}

	return h.geocoder.Geocode(ctx, cmd.Address())
}
