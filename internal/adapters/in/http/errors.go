package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/generated/servers"
	"tracker/internal/pkg/errs"
)

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// reasonOf names the failure class for clients. Out-of-range coordinates are
// told apart from other bad input.
func reasonOf(err error, status int) servers.ErrorReason {
	switch {
	case errors.Is(err, kernel.ErrInvalidCoordinate):
		return servers.ErrorReasonInvalidCoordinate
	case status == http.StatusUnauthorized:
		return servers.ErrorReasonUnauthorized
	case status == http.StatusForbidden:
		return servers.ErrorReasonForbidden
	case status == http.StatusNotFound:
		return servers.ErrorReasonNotFound
	case status == http.StatusServiceUnavailable:
		return servers.ErrorReasonUnavailable
	case status >= http.StatusInternalServerError:
		return servers.ErrorReasonInternal
	default:
		return servers.ErrorReasonInvalidRequest
	}
}

// ErrorHandler renders every error as servers.Error. Internal failures are
// logged by the caller and reported without details.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := statusOf(err)
	message := err.Error()
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
	}
	if status == http.StatusInternalServerError {
		message = http.StatusText(status)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, servers.Error{Code: status, Reason: reasonOf(err, status), Message: message})
	}
	if writeErr != nil {
		c.Logger().Error(writeErr)
	}
}
