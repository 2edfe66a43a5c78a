// Package servers holds the HTTP contract of the tracker: the request and
// response types, the echo server interface with its parameter-binding
// wrapper, and the embedded OpenAPI document. It follows the layout of
// oapi-codegen's echo output; openapi.yaml is the source of truth.
package servers

import (
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

const (
	BearerAuthScopes = "bearerAuth.Scopes"
)

// Defines values for ErrorReason.
const (
	ErrorReasonForbidden         ErrorReason = "forbidden"
	ErrorReasonInternal          ErrorReason = "internal"
	ErrorReasonInvalidCoordinate ErrorReason = "invalid_coordinate"
	ErrorReasonInvalidRequest    ErrorReason = "invalid_request"
	ErrorReasonNotFound          ErrorReason = "not_found"
	ErrorReasonUnauthorized      ErrorReason = "unauthorized"
	ErrorReasonUnavailable       ErrorReason = "unavailable"
)

// Coordinate defines model for Coordinate.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Error defines model for Error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`

	// Reason Machine-readable failure class
	Reason ErrorReason `json:"reason"`
}

// ErrorReason Machine-readable failure class
type ErrorReason string

// Health defines model for Health.
type Health struct {
	Status string `json:"status"`
}

// LocationUpdated defines model for LocationUpdated.
type LocationUpdated struct {
	AgentId    string     `json:"agentId"`
	Coordinate Coordinate `json:"coordinate"`
	Status     string     `json:"status"`
}

// NearbyCourier defines model for NearbyCourier.
type NearbyCourier struct {
	AgentId    string     `json:"agentId"`
	Coordinate Coordinate `json:"coordinate"`

	// Distance Distance from the query point in meters
	Distance  float64   `json:"distance"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpdateLocationRequest defines model for UpdateLocationRequest.
type UpdateLocationRequest struct {
	Address    *string     `json:"address,omitempty"`
	AgentId    string      `json:"agentId"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
}

// FindNearbyCouriersParams defines parameters for FindNearbyCouriers.
type FindNearbyCouriersParams struct {
	Longitude float64 `form:"longitude" json:"longitude"`
	Latitude  float64 `form:"latitude" json:"latitude"`

	// Radius Search radius in meters
	Radius float64 `form:"radius" json:"radius"`
}

// UpdateCourierLocationJSONRequestBody defines body for UpdateCourierLocation for application/json ContentType.
type UpdateCourierLocationJSONRequestBody = UpdateLocationRequest

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Set a courier location from a coordinate or a postal address
	// (PUT /api/v1/couriers/location)
	UpdateCourierLocation(ctx echo.Context) error
	// Couriers within a radius, closest first
	// (GET /api/v1/couriers/nearby)
	FindNearbyCouriers(ctx echo.Context, params FindNearbyCouriersParams) error
	// Liveness probe
	// (GET /health)
	GetHealth(ctx echo.Context) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// UpdateCourierLocation converts echo context to params.
func (w *ServerInterfaceWrapper) UpdateCourierLocation(ctx echo.Context) error {
	ctx.Set(BearerAuthScopes, []string{})

	return w.Handler.UpdateCourierLocation(ctx)
}

// FindNearbyCouriers converts echo context to params.
func (w *ServerInterfaceWrapper) FindNearbyCouriers(ctx echo.Context) error {
	var err error

	ctx.Set(BearerAuthScopes, []string{})

	var params FindNearbyCouriersParams

	err = runtime.BindQueryParameter("form", true, true, "longitude", ctx.QueryParams(), &params.Longitude)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter longitude: %s", err))
	}

	err = runtime.BindQueryParameter("form", true, true, "latitude", ctx.QueryParams(), &params.Latitude)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter latitude: %s", err))
	}

	err = runtime.BindQueryParameter("form", true, true, "radius", ctx.QueryParams(), &params.Radius)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter radius: %s", err))
	}

	return w.Handler.FindNearbyCouriers(ctx, params)
}

// GetHealth converts echo context to params.
func (w *ServerInterfaceWrapper) GetHealth(ctx echo.Context) error {
	return w.Handler.GetHealth(ctx)
}

// EchoRouter is the subset of echo.Echo and echo.Group used for registration.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds each server route to the EchoRouter.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	RegisterHandlersWithBaseURL(router, si, "")
}

// RegisterHandlersWithBaseURL registers the handlers under baseURL.
func RegisterHandlersWithBaseURL(router EchoRouter, si ServerInterface, baseURL string) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}

	router.PUT(baseURL+"/api/v1/couriers/location", wrapper.UpdateCourierLocation)
	router.GET(baseURL+"/api/v1/couriers/nearby", wrapper.FindNearbyCouriers)
	router.GET(baseURL+"/health", wrapper.GetHealth)
}

//go:embed openapi.yaml
var swaggerSpec []byte

// RawSpec returns the OpenAPI document as written.
func RawSpec() []byte {
	return swaggerSpec
}

// GetSwagger returns the parsed and validated OpenAPI document. Every call
// returns a fresh copy that the caller may mutate.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(swaggerSpec)
	if err != nil {
		return nil, fmt.Errorf("error loading OpenAPI document: %w", err)
	}
	if err = swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("error validating OpenAPI document: %w", err)
	}
	return swagger, nil
}
