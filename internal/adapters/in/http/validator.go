package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/labstack/echo/v4"

	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/errs"
)

var coordinateFields = map[string]bool{"coordinate": true, "longitude": true, "latitude": true}

// ValidationError is a request rejected by the OpenAPI document. It matches
// errs.ErrValueIsInvalid, and kernel.ErrInvalidCoordinate as well when a
// coordinate is out of range.
type ValidationError struct {
	Message    string
	Coordinate bool
	Cause      error
}

func newValidationError(cause error) *ValidationError {
	message, _, _ := strings.Cut(cause.Error(), "\n")
	return &ValidationError{
		Message:    strings.TrimSpace(message),
		Coordinate: coordinateOutOfRange(cause),
		Cause:      cause,
	}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() []error {
	if e.Coordinate {
		return []error{errs.ErrValueIsInvalid, kernel.ErrInvalidCoordinate}
	}
	return []error{errs.ErrValueIsInvalid}
}

// coordinateOutOfRange reports a minimum/maximum violation on a longitude or
// latitude. Missing and non-numeric values stay plain invalid requests.
func coordinateOutOfRange(err error) bool {
	var schemaErr *openapi3.SchemaError
	if !errors.As(err, &schemaErr) {
		return false
	}
	if schemaErr.SchemaField != "minimum" && schemaErr.SchemaField != "maximum" {
		return false
	}

	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Parameter != nil {
		return coordinateFields[reqErr.Parameter.Name]
	}
	for _, field := range schemaErr.JSONPointer() {
		if coordinateFields[field] {
			return true
		}
	}
	return false
}

// RequestValidator checks requests against the OpenAPI document before they
// reach a handler. Paths outside the document (/ws, /metrics, /swagger) pass
// through untouched. Security requirements are left to the handlers.
func RequestValidator(swagger *openapi3.T) (echo.MiddlewareFunc, error) {
	// Servers would pin matching to the documented hosts.
	swagger.Servers = nil

	router, err := legacy.NewRouter(swagger)
	if err != nil {
		return nil, fmt.Errorf("build OpenAPI router: %w", err)
	}

	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			route, pathParams, findErr := router.FindRoute(req)
			if findErr != nil {
				return next(c)
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    req,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if validateErr := openapi3filter.ValidateRequest(req.Context(), input); validateErr != nil {
				return newValidationError(validateErr)
			}
			return next(c)
		}
	}, nil
}
