package services

import (
	"cmp"
	"slices"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
)

// Match is a position together with its distance from the query center.
type Match struct {
	Position       *agent.Position
	DistanceMeters float64
}

// ProximityMatcher is a domain service that applies the proximity rules to a
// set of candidate positions. Storage backends use it after a coarse spatial
// prefilter (bounding boxes, an R-tree) to get the exact answer.
//
// Rules:
//   - distance is the great-circle (haversine) distance, never planar
//   - a position is a match when its distance is <= radius, boundary included
//   - positions without a fix (0,0) never match
//   - only courier positions match
//   - results are ordered by distance, then by agent id for stable output
//
// Example:
//
//	matcher := services.NewProximityMatcher()
//	matches, err := matcher.Match(center, 500, candidates)
//	if err != nil {
//	    return err
//	}
//	for _, m := range matches {
//	    fmt.Println(m.Position.AgentID(), m.DistanceMeters)
//	}
type ProximityMatcher struct{}

// NewProximityMatcher creates a ProximityMatcher.
func NewProximityMatcher() ProximityMatcher {
	return ProximityMatcher{}
}

// Match filters candidates to those within radiusMeters of center.
// Invalid candidates are skipped; an invalid center or radius is an error.
func (ProximityMatcher) Match(center kernel.Location, radiusMeters float64, candidates []*agent.Position) ([]Match, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if err := kernel.ValidateRadius(radiusMeters); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Validate() != nil || !candidate.Role().IsCourier() || !candidate.HasFix() {
			continue
		}

		distance, err := center.DistanceTo(candidate.Location())
		if err != nil {
			return nil, err
		}
		if distance <= radiusMeters {
			matches = append(matches, Match{Position: candidate, DistanceMeters: distance})
		}
	}

	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(a.DistanceMeters, b.DistanceMeters); c != 0 {
			return c
		}
		return cmp.Compare(a.Position.AgentID(), b.Position.AgentID())
	})

	return matches, nil
}

// Positions strips distances from matches, keeping the order.
func Positions(matches []Match) []*agent.Position {
	out := make([]*agent.Position, len(matches))
	for i, m := range matches {
		out[i] = m.Position
	}
	return out
}
