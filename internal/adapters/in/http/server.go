package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"tracker/internal/core/application/usecases/commands"
	"tracker/internal/core/application/usecases/queries"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/generated/servers"
	"tracker/internal/pkg/errs"
)

// StatusLocationUpdated is the status returned after a stored update.
const StatusLocationUpdated = "Location updated"

// LocationUpdater stores REST location updates.
type LocationUpdater interface {
	Handle(ctx context.Context, cmd commands.UpdateLocationCommand) (*agent.Position, error)
}

// NearbyFinder answers proximity queries.
type NearbyFinder interface {
	Handle(ctx context.Context, query queries.FindNearbyCouriersQuery) ([]queries.CourierSnapshot, error)
}

var _ servers.ServerInterface = (*Server)(nil)

// Server implements the ServerInterface for handling HTTP requests.
// It coordinates between HTTP handlers and application use cases.
type Server struct {
	updateLocationHandler LocationUpdater
	findNearbyHandler     NearbyFinder
	auth                  *Authenticator
	logger                *slog.Logger
}

// NewServer creates a new HTTP server with the required command and query handlers.
func NewServer(
	updateLocationHandler LocationUpdater,
	findNearbyHandler NearbyFinder,
	auth *Authenticator,
	logger *slog.Logger,
) *Server {
	return &Server{
		updateLocationHandler: updateLocationHandler,
		findNearbyHandler:     findNearbyHandler,
		auth:                  auth,
		logger:                logger.With("component", "http_server"),
	}
}

// UpdateCourierLocation handles PUT /api/v1/couriers/location. Couriers may
// only move themselves; admins may move any courier.
func (s *Server) UpdateCourierLocation(ctx echo.Context) error {
	principal, err := s.auth.Authorize(ctx.Request(), agent.RoleCourier, agent.RoleAdmin)
	if err != nil {
		return err
	}

	var body servers.UpdateLocationRequest
	if err = ctx.Bind(&body); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("request body", err)
	}

	agentID, err := kernel.NewAgentID(body.AgentId)
	if err != nil {
		return err
	}
	if principal.Role == agent.RoleCourier && principal.AgentID != agentID {
		return errs.NewForbiddenError(principal.AgentID.String(), "couriers may only update their own location")
	}

	var location *kernel.Location
	if body.Coordinate != nil {
		loc, locErr := kernel.NewLocation(body.Coordinate.Longitude, body.Coordinate.Latitude)
		if locErr != nil {
			return locErr
		}
		location = &loc
	}
	var address string
	if body.Address != nil {
		address = *body.Address
	}

	cmd, err := commands.NewUpdateLocationCommand(agentID, location, address)
	if err != nil {
		return err
	}

	position, err := s.updateLocationHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		s.logFailure(ctx, "failed to update location", err, "agent_id", agentID.String())
		return err
	}

	return ctx.JSON(http.StatusOK, servers.LocationUpdated{
		Status:     StatusLocationUpdated,
		AgentId:    position.AgentID().String(),
		Coordinate: toCoordinate(position.Location()),
	})
}

// FindNearbyCouriers handles GET /api/v1/couriers/nearby.
func (s *Server) FindNearbyCouriers(ctx echo.Context, params servers.FindNearbyCouriersParams) error {
	if _, err := s.auth.Authorize(ctx.Request(),
		agent.RoleCustomer, agent.RoleHealthOrganization, agent.RoleAdmin); err != nil {
		return err
	}

	center, err := kernel.NewLocation(params.Longitude, params.Latitude)
	if err != nil {
		return err
	}
	query, err := queries.NewFindNearbyCouriersQuery(center, params.Radius)
	if err != nil {
		return err
	}

	couriers, err := s.findNearbyHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		s.logFailure(ctx, "failed to find nearby couriers", err)
		return err
	}

	response := make([]servers.NearbyCourier, len(couriers))
	for i, courier := range couriers {
		response[i] = servers.NearbyCourier{
			AgentId:    courier.AgentID.String(),
			Name:       courier.Name,
			Coordinate: toCoordinate(courier.Location),
			Distance:   courier.DistanceMeters,
			UpdatedAt:  courier.UpdatedAt,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, servers.Health{Status: "Healthy"})
}

func (s *Server) logFailure(ctx echo.Context, msg string, err error, attrs ...any) {
	if statusOf(err) < http.StatusInternalServerError {
		return
	}
	s.logger.ErrorContext(ctx.Request().Context(), msg, append(attrs, "error", err)...)
}

func toCoordinate(loc kernel.Location) servers.Coordinate {
	return servers.Coordinate{
		Latitude:  loc.Latitude(),
		Longitude: loc.Longitude(),
	}
}
