// Package memory holds process-local implementations of the storage ports.
// They back the "memory" storage backend and the tests of the live path.
package memory

import (
	"context"
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/core/domain/services"
	"tracker/internal/pkg/errs"
)

const (
	treeDimensions  = 2
	treeMinChildren = 25
	treeMaxChildren = 50

	// pointTolerance gives indexed points a non-degenerate rectangle.
	pointTolerance = 1e-9
)

// indexedPosition is an R-tree entry. Entries are immutable; an upsert
// replaces the entry instead of moving it.
type indexedPosition struct {
	position *agent.Position
	bounds   rtreego.Rect
}

func (p *indexedPosition) Bounds() rtreego.Rect {
	return p.bounds
}

// PositionRepository is an R-tree indexed position store. Radius queries
// prefilter with the bounding boxes of the search circle, then apply the
// exact haversine rule through services.ProximityMatcher.
//
// Only positions with a fix are indexed; (0,0) entries are kept for Get.
type PositionRepository struct {
	mu      sync.RWMutex
	tree    *rtreego.Rtree
	byAgent map[kernel.AgentID]*indexedPosition
	matcher services.ProximityMatcher
}

// NewPositionRepository creates an empty store.
func NewPositionRepository() *PositionRepository {
	return &PositionRepository{
		tree:    rtreego.NewTree(treeDimensions, treeMinChildren, treeMaxChildren),
		byAgent: make(map[kernel.AgentID]*indexedPosition),
		matcher: services.NewProximityMatcher(),
	}
}

// Upsert replaces the position of the agent.
func (r *PositionRepository) Upsert(ctx context.Context, position *agent.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := position.Validate(); err != nil {
		return err
	}

	entry := &indexedPosition{
		position: position,
		bounds:   rtreego.Point{position.Location().Longitude(), position.Location().Latitude()}.ToRect(pointTolerance),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byAgent[position.AgentID()]; ok && old.position.HasFix() {
		r.tree.Delete(old)
	}
	if position.HasFix() {
		r.tree.Insert(entry)
	}
	r.byAgent[position.AgentID()] = entry
	return nil
}

// Get returns the stored position of agentID.
func (r *PositionRepository) Get(ctx context.Context, agentID kernel.AgentID) (*agent.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byAgent[agentID]
	if !ok {
		return nil, errs.NewObjectNotFoundError("agentId", agentID.String())
	}
	return entry.position, nil
}

// FindNearby returns the positions of role within radiusMeters of center.
func (r *PositionRepository) FindNearby(
	ctx context.Context,
	center kernel.Location,
	radiusMeters float64,
	role agent.Role,
) ([]*agent.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxes, err := center.BoundingBoxes(radiusMeters)
	if err != nil {
		return nil, err
	}
	if !role.IsCourier() {
		return []*agent.Position{}, nil
	}

	candidates := r.search(boxes)

	matches, err := r.matcher.Match(center, radiusMeters, candidates)
	if err != nil {
		return nil, err
	}
	return services.Positions(matches), nil
}

// Len returns the number of stored positions.
func (r *PositionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byAgent)
}

func (r *PositionRepository) search(boxes []kernel.BoundingBox) []*agent.Position {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[kernel.AgentID]struct{})
	var out []*agent.Position
	for _, box := range boxes {
		for _, hit := range r.tree.SearchIntersect(toRect(box)) {
			entry, ok := hit.(*indexedPosition)
			if !ok {
				continue
			}
			if _, dup := seen[entry.position.AgentID()]; dup {
				continue
			}
			seen[entry.position.AgentID()] = struct{}{}
			out = append(out, entry.position)
		}
	}
	return out
}

// toRect converts a box to an R-tree rectangle, padding degenerate sides.
func toRect(box kernel.BoundingBox) rtreego.Rect {
	width := math.Max(box.MaxLongitude-box.MinLongitude, pointTolerance)
	height := math.Max(box.MaxLatitude-box.MinLatitude, pointTolerance)

	rect, err := rtreego.NewRect(
		rtreego.Point{box.MinLongitude - pointTolerance, box.MinLatitude - pointTolerance},
		[]float64{width + 2*pointTolerance, height + 2*pointTolerance},
	)
	if err != nil {
		// Unreachable: both lengths are positive.
		panic(err)
	}
	return rect
}
