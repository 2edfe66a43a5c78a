package queries

import (
	"context"
	"errors"
	"log/slog"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/core/ports"
	"tracker/internal/pkg/errs"
)

// FindNearbyCouriersQueryHandler answers proximity queries from the position
// store and decorates each courier with its display name.
//
// Example:
//
//	handler := queries.NewFindNearbyCouriersQueryHandler(positions, accounts, logger)
//	couriers, err := handler.Handle(ctx, query)
//	for _, c := range couriers {
//	    fmt.Printf("%s (%s) %.0fm away\n", c.Name, c.AgentID, c.DistanceMeters)
//	}
type FindNearbyCouriersQueryHandler struct {
	positions ports.PositionRepository
	accounts  ports.AccountDirectory
	logger    *slog.Logger
}

// NewFindNearbyCouriersQueryHandler creates the handler.
func NewFindNearbyCouriersQueryHandler(
	positions ports.PositionRepository,
	accounts ports.AccountDirectory,
	logger *slog.Logger,
) FindNearbyCouriersQueryHandler {
	return FindNearbyCouriersQueryHandler{
		positions: positions,
		accounts:  accounts,
		logger:    logger.With("component", "find_nearby_couriers_handler"),
	}
}

// Handle returns the couriers ordered by distance, closest first. An empty
// result is an empty, non-nil slice.
func (h FindNearbyCouriersQueryHandler) Handle(
	ctx context.Context,
	query FindNearbyCouriersQuery,
) ([]CourierSnapshot, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	positions, err := h.positions.FindNearby(ctx, query.Center(), query.RadiusMeters(), agent.RoleCourier)
	if err != nil {
		return nil, err
	}

	couriers := make([]CourierSnapshot, 0, len(positions))
	for _, position := range positions {
		distance, distErr := query.Center().DistanceTo(position.Location())
		if distErr != nil {
			return nil, distErr
		}

		couriers = append(couriers, CourierSnapshot{
			AgentID:        position.AgentID(),
			Name:           h.displayName(ctx, position.AgentID()),
			Location:       position.Location(),
			DistanceMeters: distance,
			UpdatedAt:      position.UpdatedAt(),
		})
	}

	return couriers, nil
}

// displayName never fails the query: a courier without a readable account is
// still a courier on the map.
func (h FindNearbyCouriersQueryHandler) displayName(ctx context.Context, id kernel.AgentID) string {
	if h.accounts == nil {
		return ""
	}

	account, err := h.accounts.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, errs.ErrObjectNotFound) {
			h.logger.WarnContext(ctx, "failed to read account name", "agent_id", id.String(), "error", err)
		}
		return ""
	}

	return account.Name()
}
