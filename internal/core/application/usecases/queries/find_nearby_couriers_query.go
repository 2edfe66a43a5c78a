// Package queries contains read operations on tracker state.
// Queries return read models shaped for their callers.
package queries

import (
	"errors"
	"time"

	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/guard"
)

var ErrFindNearbyCouriersQueryIsNotConstructed = errors.New(
	"FindNearbyCouriersQuery must be created via NewFindNearbyCouriersQuery constructor",
)

// FindNearbyCouriersQuery asks for every courier within radiusMeters of center.
//
// Example:
//
//	center, _ := kernel.NewLocation(10.0, 50.0)
//	query, err := queries.NewFindNearbyCouriersQuery(center, 1000)
//	if err != nil {
//	    return err // bad radius or center
//	}
//	couriers, err := handler.Handle(ctx, query)
type FindNearbyCouriersQuery struct { //nolint:recvcheck //using for validation
	center       kernel.Location
	radiusMeters float64

	guard guard.ConstructorGuard
}

// NewFindNearbyCouriersQuery validates center and radius. The radius is in
// meters, must be finite and may be zero.
func NewFindNearbyCouriersQuery(center kernel.Location, radiusMeters float64) (FindNearbyCouriersQuery, error) {
	if err := errors.Join(center.Validate(), kernel.ValidateRadius(radiusMeters)); err != nil {
		return FindNearbyCouriersQuery{}, err
	}

	return FindNearbyCouriersQuery{
		center:       center,
		radiusMeters: radiusMeters,
		guard:        guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q FindNearbyCouriersQuery) Validate() error {
	return q.guard.Validate(ErrFindNearbyCouriersQueryIsNotConstructed)
}

// Center returns the query point.
func (q FindNearbyCouriersQuery) Center() kernel.Location {
	return q.center
}

// RadiusMeters returns the search radius.
func (q FindNearbyCouriersQuery) RadiusMeters() float64 {
	return q.radiusMeters
}

// CourierSnapshot is one courier in the answer to FindNearbyCouriersQuery.
// Name is empty when the account directory has no display name.
type CourierSnapshot struct {
	AgentID        kernel.AgentID
	Name           string
	Location       kernel.Location
	DistanceMeters float64
	UpdatedAt      time.Time
}
