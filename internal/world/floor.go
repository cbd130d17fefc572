package world

import (
	"context"
	"fmt"
	"sync"
)

// Tile is one cell of a map's floor (spec.md §3 "Floor").
type Tile struct {
	Access    bool
	Elevation int16
}

// FloorSource loads the tile grid backing a map's floor from wherever it
// is actually stored (flat file, embedded asset, etc). It is an opaque
// external collaborator, exactly like the persistent store interfaces in
// internal/store — spec.md §1 excludes the concrete map-data format from
// this core, so the core only depends on this narrow contract. The
// returned grid is indexed tiles[x][y]: one slice per column, each
// holding that column's tiles from y = 0 upward.
type FloorSource interface {
	Load(ctx context.Context, path string) (tiles [][]Tile, err error)
}

// Floor is a map's lazily-loaded 2D tile grid (spec.md §3). It is loaded
// on first character insertion and unloaded when the last character
// leaves (spec.md §4.7 invariant).
type Floor struct {
	mu     sync.RWMutex
	path   string
	source FloorSource
	tiles  [][]Tile
	width  int
	height int
	loaded bool
}

func newFloor(path string, source FloorSource) *Floor {
	return &Floor{path: path, source: source}
}

// Loaded reports whether the floor currently holds tile data.
func (f *Floor) Loaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loaded
}

// Load fetches tiles from the source, replacing any previous grid.
func (f *Floor) Load(ctx context.Context) error {
	tiles, err := f.source.Load(ctx, f.path)
	if err != nil {
		return fmt.Errorf("world: loading floor %q: %w", f.path, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.tiles = tiles
	f.width = len(tiles)
	if f.width > 0 {
		f.height = len(tiles[0])
	}
	f.loaded = true
	return nil
}

// Unload drops the tile grid, freeing it until the next Load.
func (f *Floor) Unload() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tiles = nil
	f.width = 0
	f.height = 0
	f.loaded = false
}

// Bounds returns the tile grid's (width, height) in tiles.
func (f *Floor) Bounds() (width, height int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.width, f.height
}

// Tile returns the tile at (x, y), or false if the floor isn't loaded or
// the coordinate is out of bounds.
func (f *Floor) Tile(x, y uint16) (Tile, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.loaded || int(y) >= f.height || int(x) >= f.width {
		return Tile{}, false
	}
	return f.tiles[x][y], true
}
