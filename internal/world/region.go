package world

import "sync"

// MapRegion is an axis-aligned block of ScreenDistance×ScreenDistance
// tiles holding the characters currently positioned inside it, the unit
// of spatial partitioning used to bound visibility and AI iteration
// (spec.md §3 "MapRegion"). Grounded on the teacher's Region
// (internal/world/region.go in the example pack), adapted from a single
// flat global grid with a snapshot cache to a per-Map grid without the
// cache — this core's region churn is per-connection, not per-tick, so
// the teacher's read-heavy optimisation doesn't pay for itself here.
type MapRegion struct {
	startPoint Point

	mu         sync.RWMutex
	characters map[uint32]*Character
}

func newMapRegion(start Point) *MapRegion {
	return &MapRegion{startPoint: start, characters: make(map[uint32]*Character)}
}

// StartPoint returns the region's top-left tile coordinate, which is
// also its equality key (spec.md §3: "Equality is by start_point").
func (r *MapRegion) StartPoint() Point { return r.startPoint }

// Equal reports whether two regions are the same cell.
func (r *MapRegion) Equal(other *MapRegion) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.startPoint == other.startPoint
}

func (r *MapRegion) insertCharacter(c *Character) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.characters[c.ID()] = c
}

func (r *MapRegion) removeCharacter(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.characters, id)
}

// Characters returns a snapshot slice of the region's current occupants.
func (r *MapRegion) Characters() []*Character {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Character, 0, len(r.characters))
	for _, c := range r.characters {
		out = append(out, c)
	}
	return out
}

// Count reports how many characters currently occupy the region.
func (r *MapRegion) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.characters)
}
