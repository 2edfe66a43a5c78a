package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"tracker/internal/generated/servers"

	// Registers the OpenAPI document served by /swagger/*.
	_ "tracker/internal/generated/docs"
)

// RouterOptions carries the handlers mounted next to the REST API.
type RouterOptions struct {
	// Live serves GET /ws; nil leaves the route out.
	Live http.Handler
	// Metrics serves GET /metrics; nil leaves the route out.
	Metrics http.Handler
	// Middleware runs before request validation, e.g. request metrics.
	Middleware []echo.MiddlewareFunc
}

// NewRouter builds the echo instance serving the REST API, the live channel,
// metrics and the Swagger UI.
func NewRouter(server *Server, opts RouterOptions) (*echo.Echo, error) {
	swagger, err := servers.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("load OpenAPI document: %w", err)
	}
	validator, err := RequestValidator(swagger)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.Recover())
	e.Use(opts.Middleware...)
	e.Use(validator)

	servers.RegisterHandlers(e, server)
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}
	if opts.Live != nil {
		e.GET("/ws", echo.WrapHandler(opts.Live))
	}

	return e, nil
}
