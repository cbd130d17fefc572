// Package world implements the map/region/character/screen spatial core
// (spec.md §3, §4.7, §4.8): a per-map tile grid, region partitioning for
// bounded-cost iteration, and symmetric visibility ("screen") tracking.
// Grounded on the teacher's internal/world package (a single global
// region grid behind a sync.Once singleton), restructured per-Map —
// spec.md's Map is keyed by map_id and loads/unloads its own region grid
// independently, which a single fixed global grid cannot express; see
// DESIGN.md for the deviation.
package world

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// Portal links a tile on this map to a tile on another map (spec.md §3
// "Portal").
type Portal struct {
	FromX, FromY uint16
	ToMapID      uint32
	ToX, ToY     uint16
}

// Map is a named tile grid with a floor, a region partition, portals,
// and the characters currently on it (spec.md §3 "Map"). One Map value
// exists per map_id for the process lifetime; its Floor and region grid
// are loaded and unloaded as characters arrive and leave.
type Map struct {
	id          uint32
	revivePoint Point
	portals     []Portal

	floor *Floor

	mu             sync.RWMutex
	characters     map[uint32]*Character
	regions        []*MapRegion
	regionsWidth   int
	regionsHeight  int
}

// NewMap constructs an unloaded Map. floorPath and source together
// describe how its tile grid will be fetched on first load.
func NewMap(id uint32, revivePoint Point, portals []Portal, floorPath string, source FloorSource) *Map {
	return &Map{
		id:          id,
		revivePoint: revivePoint,
		portals:     portals,
		floor:       newFloor(floorPath, source),
		characters:  make(map[uint32]*Character),
	}
}

func (m *Map) ID() uint32            { return m.id }
func (m *Map) RevivePoint() Point    { return m.revivePoint }
func (m *Map) Portals() []Portal     { return m.portals }
func (m *Map) Loaded() bool          { return m.floor.Loaded() }

// PortalAt returns the portal whose FromX/FromY matches p, if any.
func (m *Map) PortalAt(p Point) (Portal, bool) {
	for _, portal := range m.portals {
		if portal.FromX == p.X && portal.FromY == p.Y {
			return portal, true
		}
	}
	return Portal{}, false
}

// PortalNear returns the portal whose FromX/FromY is within one tile of
// p, if any (SPEC_FULL.md "Portal traversal": a walk destination that
// lands on or adjacent to a portal triggers a cross-map move).
func (m *Map) PortalNear(p Point) (Portal, bool) {
	for _, portal := range m.portals {
		if chebyshev(p, Point{X: portal.FromX, Y: portal.FromY}) <= 1 {
			return portal, true
		}
	}
	return Portal{}, false
}

// Tile reports the floor tile at (x, y).
func (m *Map) Tile(x, y uint16) (Tile, bool) {
	return m.floor.Tile(x, y)
}

// Load fetches the floor and (re)builds the region grid sized to it
// (spec.md §4.7: regions_x = ceil(W/S), regions_y = ceil(H/S)).
func (m *Map) Load(ctx context.Context) error {
	if err := m.floor.Load(ctx); err != nil {
		return err
	}
	width, height := m.floor.Bounds()
	regionsX := int(math.Ceil(float64(width) / float64(ScreenDistance)))
	regionsY := int(math.Ceil(float64(height) / float64(ScreenDistance)))
	if regionsX < 1 {
		regionsX = 1
	}
	if regionsY < 1 {
		regionsY = 1
	}

	regions := make([]*MapRegion, regionsX*regionsY)
	for rx := 0; rx < regionsX; rx++ {
		for ry := 0; ry < regionsY; ry++ {
			regions[rx*regionsY+ry] = newMapRegion(Point{
				X: uint16(rx * ScreenDistance),
				Y: uint16(ry * ScreenDistance),
			})
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.regions = regions
	m.regionsWidth = regionsX
	m.regionsHeight = regionsY
	return nil
}

// Unload clears the region grid and floor, called once the map holds no
// more characters (spec.md §4.7 invariant).
func (m *Map) Unload() {
	m.floor.Unload()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regions = nil
	m.regionsWidth = 0
	m.regionsHeight = 0
}

func (m *Map) regionIndex(x, y uint16) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.regionsHeight == 0 {
		return 0, false
	}
	rx := int(x) / ScreenDistance
	ry := int(y) / ScreenDistance
	idx := rx*m.regionsHeight + ry
	if idx < 0 || idx >= len(m.regions) {
		return 0, false
	}
	return idx, true
}

// Region returns the region containing tile (x, y).
func (m *Map) Region(x, y uint16) *MapRegion {
	idx, ok := m.regionIndex(x, y)
	if !ok {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regions[idx]
}

// SurroundingRegions returns up to 9 regions (self plus 8 neighbours)
// around the region containing (x, y), skipping any with a coordinate
// outside the region grid (spec.md §4.7).
func (m *Map) SurroundingRegions(x, y uint16) []*MapRegion {
	m.mu.RLock()
	regionsWidth := m.regionsWidth
	regionsHeight := m.regionsHeight
	regions := m.regions
	m.mu.RUnlock()
	if regionsHeight == 0 {
		return nil
	}

	rx := int32(x) / ScreenDistance
	ry := int32(y) / ScreenDistance

	out := make([]*MapRegion, 0, 9)
	for i := range WalkXCoords {
		vx := rx + WalkXCoords[i]
		vy := ry + WalkYCoords[i]
		if vx < 0 || vy < 0 || int(vx) >= regionsWidth || int(vy) >= regionsHeight {
			continue
		}
		idx := int(vx)*regionsHeight + int(vy)
		if idx < 0 || idx >= len(regions) {
			continue
		}
		out = append(out, regions[idx])
	}
	return out
}

// InsertCharacter adds ch to this map (spec.md §4.7 "Character insertion
// algorithm"). If oldMap is non-nil and differs from this map, ch is
// first removed from it (cascading to its old region and screen
// observers). If this map isn't loaded yet, it is loaded before
// insertion.
func (m *Map) InsertCharacter(ctx context.Context, oldMap *Map, ch *Character, remove RemoveFunc) error {
	if oldMap != nil && oldMap.ID() != m.ID() {
		if _, err := oldMap.RemoveCharacter(ctx, ch.ID(), remove); err != nil {
			return fmt.Errorf("world: removing character %d from old map %d: %w", ch.ID(), oldMap.ID(), err)
		}
	}

	if !m.Loaded() {
		if err := m.Load(ctx); err != nil {
			return fmt.Errorf("world: loading map %d: %w", m.ID(), err)
		}
	}

	m.mu.Lock()
	m.characters[ch.ID()] = ch
	m.mu.Unlock()
	ch.setMapID(m.ID())

	if region := m.Region(ch.Position().X, ch.Position().Y); region != nil {
		region.insertCharacter(ch)
	}
	return nil
}

// RemoveCharacter removes the character with id from the map, its
// current region, and notifies its screen's observers that it has left.
// If the map is now empty, it unloads (spec.md §4.7 "Character
// removal"). Returns the removed character, or (nil, nil) if it wasn't
// present.
func (m *Map) RemoveCharacter(ctx context.Context, id uint32, remove RemoveFunc) (*Character, error) {
	m.mu.Lock()
	ch, ok := m.characters[id]
	if ok {
		delete(m.characters, id)
	}
	empty := len(m.characters) == 0
	m.mu.Unlock()

	if !ok {
		return nil, nil
	}

	if region := m.Region(ch.Position().X, ch.Position().Y); region != nil {
		region.removeCharacter(id)
	}

	if err := RemoveFromObservers(ctx, ch, remove); err != nil {
		return ch, err
	}

	if empty {
		m.Unload()
	}
	return ch, nil
}

// UpdateRegionFor reconciles ch's region membership after it has moved:
// compute region(current) and region(previous); handle the four cases
// (same / enter-only / exit-only / swap) with at most one insert and one
// remove (spec.md §4.7 "Region transition on move").
func (m *Map) UpdateRegionFor(ch *Character) {
	pos := ch.Position()
	prev := ch.PrevPosition()
	region := m.Region(pos.X, pos.Y)
	oldRegion := m.Region(prev.X, prev.Y)

	switch {
	case region != nil && oldRegion != nil && !region.Equal(oldRegion):
		region.insertCharacter(ch)
		oldRegion.removeCharacter(ch.ID())
	case region != nil && oldRegion != nil:
		// same region, nothing to do
	case region != nil && oldRegion == nil:
		region.insertCharacter(ch)
	case region == nil && oldRegion != nil:
		oldRegion.removeCharacter(ch.ID())
	}
}

// SampleElevation walks every integer interpolation step between start
// and end (count = Chebyshev distance) and rejects the move if any
// intermediate tile is missing or its elevation differs from elevation
// by more than ElevationTolerance (spec.md §4.7 "Elevation sampling").
// Distance 0 always accepts.
func (m *Map) SampleElevation(start, end Point, elevation int16) bool {
	distance := chebyshev(start, end)
	if distance == 0 {
		return true
	}

	dx := int(end.X) - int(start.X)
	dy := int(end.Y) - int(start.Y)

	for i := 0; i < distance; i++ {
		x := int(start.X) + (i*dx)/distance
		y := int(start.Y) + (i*dy)/distance
		tile, ok := m.Tile(uint16(x), uint16(y))
		if !ok {
			return false
		}
		delta := int(tile.Elevation) - int(elevation)
		if delta < 0 {
			delta = -delta
		}
		if delta > ElevationTolerance {
			return false
		}
	}
	return true
}

// Characters returns a snapshot of every character currently on the map.
func (m *Map) Characters() []*Character {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Character, 0, len(m.characters))
	for _, c := range m.characters {
		out = append(out, c)
	}
	return out
}

// CharacterCount reports how many characters are currently on the map.
func (m *Map) CharacterCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.characters)
}
