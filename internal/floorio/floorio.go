// Package floorio implements the one concrete world.FloorSource this
// repo ships: a flat little-endian binary tile file. Grounded on the
// teacher's internal/game/geo package's type-tagged, little-endian
// binary region parsing (FlatBlock/ComplexBlock in block.go), simplified
// to spec.md §3's per-tile (access, elevation) model rather than the
// teacher's packed 8x8-cell NSWE blocks — this CORE has no line-of-sight
// or pathfinding requirement to justify that density.
package floorio

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/tqserver/core/internal/world"
)

// fileMagic tags a floor file so a truncated or unrelated file is
// rejected before it can corrupt the region grid dimensions.
const fileMagic = "TQFLOOR1"

// FileSource loads floor tiles from disk, one file per map (spec.md §3
// "Floor ... lazily-loaded"). Safe for concurrent use: Load only reads.
type FileSource struct {
	root string
}

// New returns a FileSource that resolves paths relative to root (an
// empty root treats paths as already-absolute).
func New(root string) *FileSource {
	return &FileSource{root: root}
}

// Load reads path's floor file: an 8-byte magic, uint32 width, uint32
// height (all LE), followed by width*height (access uint8, elevation
// int16 LE) records in row-major (x, then y) order.
func (s *FileSource) Load(ctx context.Context, path string) ([][]world.Tile, error) {
	full := path
	if s.root != "" {
		full = s.root + string(os.PathSeparator) + path
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("floorio: reading %s: %w", full, err)
	}
	if len(data) < len(fileMagic)+8 || string(data[:len(fileMagic)]) != fileMagic {
		return nil, fmt.Errorf("floorio: %s is not a valid floor file", full)
	}
	off := len(fileMagic)
	width := binary.LittleEndian.Uint32(data[off:])
	height := binary.LittleEndian.Uint32(data[off+4:])
	off += 8

	need := int(width) * int(height) * 3
	if len(data)-off < need {
		return nil, fmt.Errorf("floorio: %s truncated: want %d tile bytes, have %d", full, need, len(data)-off)
	}

	tiles := make([][]world.Tile, width)
	for x := uint32(0); x < width; x++ {
		tiles[x] = make([]world.Tile, height)
		for y := uint32(0); y < height; y++ {
			tiles[x][y] = world.Tile{
				Access:    data[off] != 0,
				Elevation: int16(binary.LittleEndian.Uint16(data[off+1:])),
			}
			off += 3
		}
	}
	return tiles, nil
}
