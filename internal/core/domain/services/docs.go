// Package services provides domain services that apply business rules across
// many aggregates at once.
//
// The package includes:
//   - ProximityMatcher: exact geodesic filtering and ordering of courier positions
package services
