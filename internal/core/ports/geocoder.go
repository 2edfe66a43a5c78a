package ports

import (
	"context"

	"tracker/internal/core/domain/model/kernel"
)

// Geocoder turns a free-form postal address into a coordinate.
type Geocoder interface {
	// Geocode returns the best match for address. It returns an
	// errs.ErrValueIsInvalid error when nothing matches and an
	// errs.ErrUnavailable error when the provider cannot be reached.
	Geocode(ctx context.Context, address string) (kernel.Location, error)
}
