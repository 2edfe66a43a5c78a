package kernel

import (
	"errors"
	"fmt"
	"math"

	"tracker/internal/pkg/errs"
	"tracker/internal/pkg/guard"
)

const (
	// MinLongitude is the smallest valid longitude in degrees.
	MinLongitude = -180.0
	// MaxLongitude is the largest valid longitude in degrees.
	MaxLongitude = 180.0
	// MinLatitude is the smallest valid latitude in degrees.
	MinLatitude = -90.0
	// MaxLatitude is the largest valid latitude in degrees.
	MaxLatitude = 90.0

	// EarthRadiusMeters is the mean radius of the WGS84 ellipsoid, used by the
	// spherical (haversine) distance model.
	EarthRadiusMeters = 6371008.8
)

var (
	// ErrInvalidCoordinate marks every coordinate range failure. Errors returned
	// by NewLocation match both ErrInvalidCoordinate and errs.ErrValueIsOutOfRange.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrLocationIsNotConstructed is returned when using a zero-value Location.
	ErrLocationIsNotConstructed = errs.NewValueIsRequiredError(
		"location must be created via NewLocation constructor")

	// ErrRadiusIsInvalid is returned for negative, NaN or infinite radii.
	ErrRadiusIsInvalid = errs.NewValueIsInvalidError("radius")
)

// Location is an immutable geodetic point, longitude first as in GeoJSON.
// The point (0,0) is a valid value but means "no fix yet"; see HasFix.
//
// Example:
//
//	loc, err := kernel.NewLocation(10.0, 50.0)
//	if errors.Is(err, kernel.ErrInvalidCoordinate) {
//	    // reject the report
//	}
//	fmt.Println(loc) // Location(10.000000,50.000000)
type Location struct { //nolint:recvcheck //using for validation
	longitude float64
	latitude  float64
	guard     guard.ConstructorGuard
}

// NewLocation validates and builds a Location. Longitude must lie in
// [-180,180] and latitude in [-90,90]; NaN is rejected. Both axes are checked
// and reported together.
func NewLocation(longitude, latitude float64) (Location, error) {
	loc := Location{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(loc.setLongitude(longitude), loc.setLatitude(latitude)); err != nil {
		return Location{}, fmt.Errorf("%w: %w", ErrInvalidCoordinate, err)
	}

	return loc, nil
}

// MustNewLocation is NewLocation for constants and tests; it panics on invalid input.
func MustNewLocation(longitude, latitude float64) Location {
	loc, err := NewLocation(longitude, latitude)
	if err != nil {
		panic(err)
	}
	return loc
}

// Validate reports whether the Location came from NewLocation.
func (l Location) Validate() error {
	return l.guard.Validate(ErrLocationIsNotConstructed)
}

// Longitude returns the longitude in degrees.
func (l Location) Longitude() float64 {
	return l.longitude
}

// Latitude returns the latitude in degrees.
func (l Location) Latitude() float64 {
	return l.latitude
}

// HasFix is false for the (0,0) default that marks an agent without a fix.
func (l Location) HasFix() bool {
	return l.longitude != 0 || l.latitude != 0
}

func (l Location) String() string {
	return fmt.Sprintf("Location(%f,%f)", l.longitude, l.latitude)
}

// IsEqual compares two constructed locations.
func (l Location) IsEqual(other Location) (bool, error) {
	if err := errors.Join(l.Validate(), other.Validate()); err != nil {
		return false, err
	}

	return l.longitude == other.longitude && l.latitude == other.latitude, nil
}

// DistanceTo returns the great-circle distance in meters using the haversine
// formula on a sphere of EarthRadiusMeters.
func (l Location) DistanceTo(other Location) (float64, error) {
	if err := errors.Join(l.Validate(), other.Validate()); err != nil {
		return 0, err
	}

	lat1 := toRadians(l.latitude)
	lat2 := toRadians(other.latitude)
	dLat := lat2 - lat1
	dLon := toRadians(math.Remainder(other.longitude-l.longitude, 360))

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h)), nil
}

// BoundingBox is a longitude/latitude rectangle in degrees. MinLongitude is
// never greater than MaxLongitude; boxes crossing the antimeridian are split.
type BoundingBox struct {
	MinLongitude float64
	MinLatitude  float64
	MaxLongitude float64
	MaxLatitude  float64
}

// Contains reports whether lon/lat lies inside the box, borders included.
func (b BoundingBox) Contains(longitude, latitude float64) bool {
	return longitude >= b.MinLongitude && longitude <= b.MaxLongitude &&
		latitude >= b.MinLatitude && latitude <= b.MaxLatitude
}

// BoundingBoxes returns one or two boxes that together contain every point
// within radiusMeters of l. Circles covering a pole widen to the full
// longitude range; circles crossing the antimeridian yield two boxes. A box
// that only touches -180 or 180 gets a zero-width twin on the other edge,
// since both name the same meridian.
func (l Location) BoundingBoxes(radiusMeters float64) ([]BoundingBox, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateRadius(radiusMeters); err != nil {
		return nil, err
	}

	angular := radiusMeters / EarthRadiusMeters
	lat := toRadians(l.latitude)

	minLat := l.latitude - toDegrees(angular)
	maxLat := l.latitude + toDegrees(angular)
	if minLat <= MinLatitude || maxLat >= MaxLatitude || angular >= math.Pi {
		return []BoundingBox{{
			MinLongitude: MinLongitude,
			MinLatitude:  math.Max(MinLatitude, minLat),
			MaxLongitude: MaxLongitude,
			MaxLatitude:  math.Min(MaxLatitude, maxLat),
		}}, nil
	}

	deltaLon := toDegrees(math.Asin(math.Min(1, math.Sin(angular)/math.Cos(lat))))
	minLon := l.longitude - deltaLon
	maxLon := l.longitude + deltaLon

	switch {
	case minLon < MinLongitude:
		return []BoundingBox{
			{MinLongitude: minLon + 360, MinLatitude: minLat, MaxLongitude: MaxLongitude, MaxLatitude: maxLat},
			{MinLongitude: MinLongitude, MinLatitude: minLat, MaxLongitude: maxLon, MaxLatitude: maxLat},
		}, nil
	case maxLon > MaxLongitude:
		return []BoundingBox{
			{MinLongitude: minLon, MinLatitude: minLat, MaxLongitude: MaxLongitude, MaxLatitude: maxLat},
			{MinLongitude: MinLongitude, MinLatitude: minLat, MaxLongitude: maxLon - 360, MaxLatitude: maxLat},
		}, nil
	default:
		boxes := []BoundingBox{
			{MinLongitude: minLon, MinLatitude: minLat, MaxLongitude: maxLon, MaxLatitude: maxLat},
		}
		if minLon == MinLongitude {
			boxes = append(boxes, BoundingBox{
				MinLongitude: MaxLongitude, MinLatitude: minLat, MaxLongitude: MaxLongitude, MaxLatitude: maxLat,
			})
		}
		if maxLon == MaxLongitude {
			boxes = append(boxes, BoundingBox{
				MinLongitude: MinLongitude, MinLatitude: minLat, MaxLongitude: MinLongitude, MaxLatitude: maxLat,
			})
		}
		return boxes, nil
	}
}

// ValidateRadius accepts finite, non-negative radii in meters.
func ValidateRadius(radiusMeters float64) error {
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) || radiusMeters < 0 {
		return ErrRadiusIsInvalid
	}
	return nil
}

// setLongitude and setLatitude use pointer receivers so the constructor can
// validate each axis in place.
func (l *Location) setLongitude(longitude float64) error {
	if math.IsNaN(longitude) || longitude < MinLongitude || longitude > MaxLongitude {
		return errs.NewValueIsOutOfRangeError("longitude", longitude, MinLongitude, MaxLongitude)
	}

	l.longitude = longitude
	return nil
}

func (l *Location) setLatitude(latitude float64) error {
	if math.IsNaN(latitude) || latitude < MinLatitude || latitude > MaxLatitude {
		return errs.NewValueIsOutOfRangeError("latitude", latitude, MinLatitude, MaxLatitude)
	}

	l.latitude = latitude
	return nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
