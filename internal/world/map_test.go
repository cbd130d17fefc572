package world

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// flatFloorSource returns a width×height grid of tiles all sharing one
// elevation, for tests that don't care about terrain shape.
type flatFloorSource struct {
	width, height int
	elevation     int16
}

func (f flatFloorSource) Load(ctx context.Context, path string) ([][]Tile, error) {
	tiles := make([][]Tile, f.width)
	for x := range tiles {
		col := make([]Tile, f.height)
		for y := range col {
			col[y] = Tile{Access: true, Elevation: f.elevation}
		}
		tiles[x] = col
	}
	return tiles, nil
}

func newTestMap(id uint32, width, height int) *Map {
	return NewMap(id, Point{}, nil, "test.map", flatFloorSource{width: width, height: height})
}

func noopSpawn(viewer, target *Character) (uint16, []byte)  { return 1, nil }
func noopRemove(viewer, target *Character) (uint16, []byte) { return 2, nil }

func TestMapLoadBuildsRegionGrid(t *testing.T) {
	m := newTestMap(1, ScreenDistance*3, ScreenDistance*2)
	require.False(t, m.Loaded())
	require.NoError(t, m.Load(context.Background()))
	require.True(t, m.Loaded())

	region := m.Region(0, 0)
	require.NotNil(t, region)
	require.Equal(t, Point{X: 0, Y: 0}, region.StartPoint())

	far := m.Region(ScreenDistance*2, ScreenDistance)
	require.NotNil(t, far)
	require.False(t, far.Equal(region))
}

func TestRegionExclusivity(t *testing.T) {
	// Region exclusivity (spec.md §8): a character in a map belongs to
	// exactly one region's characters map at a time.
	m := newTestMap(1, ScreenDistance*4, ScreenDistance*4)
	require.NoError(t, m.Load(context.Background()))

	ch := NewCharacter(1, 10, 1, "Trinity", m.ID(), 5, 5)
	require.NoError(t, m.InsertCharacter(context.Background(), nil, ch, noopRemove))

	count := 0
	for _, region := range m.regions {
		for _, c := range region.Characters() {
			if c.ID() == ch.ID() {
				count++
			}
		}
	}
	require.Equal(t, 1, count)
}

func TestInsertCharacterCascadesAcrossMaps(t *testing.T) {
	oldMap := newTestMap(1, ScreenDistance*2, ScreenDistance*2)
	newMapInstance := newTestMap(2, ScreenDistance*2, ScreenDistance*2)
	ctx := context.Background()

	ch := NewCharacter(1, 10, 1, "Trinity", oldMap.ID(), 5, 5)
	require.NoError(t, oldMap.InsertCharacter(ctx, nil, ch, noopRemove))
	require.Equal(t, 1, oldMap.CharacterCount())

	require.NoError(t, newMapInstance.InsertCharacter(ctx, oldMap, ch, noopRemove))
	require.Equal(t, 0, oldMap.CharacterCount())
	require.Equal(t, 1, newMapInstance.CharacterCount())
	require.Equal(t, newMapInstance.ID(), ch.MapID())
}

func TestMapAutoUnloadOnLastCharacterLeaving(t *testing.T) {
	m := newTestMap(1, ScreenDistance*2, ScreenDistance*2)
	ctx := context.Background()

	a := NewCharacter(1, 10, 1, "A", m.ID(), 5, 5)
	b := NewCharacter(2, 11, 1, "B", m.ID(), 6, 6)
	require.NoError(t, m.InsertCharacter(ctx, nil, a, noopRemove))
	require.NoError(t, m.InsertCharacter(ctx, nil, b, noopRemove))
	require.True(t, m.Loaded())

	_, err := m.RemoveCharacter(ctx, a.ID(), noopRemove)
	require.NoError(t, err)
	require.True(t, m.Loaded())

	_, err = m.RemoveCharacter(ctx, b.ID(), noopRemove)
	require.NoError(t, err)
	require.False(t, m.Loaded())
}

func TestDisconnectCleanupRemovesFromMapAndRegion(t *testing.T) {
	m := newTestMap(1, ScreenDistance*2, ScreenDistance*2)
	ctx := context.Background()

	ch := NewCharacter(1, 10, 1, "Trinity", m.ID(), 5, 5)
	require.NoError(t, m.InsertCharacter(ctx, nil, ch, noopRemove))
	region := m.Region(5, 5)
	require.Equal(t, 1, region.Count())

	removed, err := m.RemoveCharacter(ctx, ch.ID(), noopRemove)
	require.NoError(t, err)
	require.Equal(t, ch.ID(), removed.ID())
	require.Equal(t, 0, m.CharacterCount())
	require.Equal(t, 0, region.Count())
}

func TestSampleElevationAcceptsWithinTolerance(t *testing.T) {
	m := newTestMap(1, 200, 200)
	tiles := [][]Tile{}
	for x := 0; x < 200; x++ {
		col := make([]Tile, 200)
		for y := 0; y < 200; y++ {
			elev := int16(0)
			if x == 102 {
				elev = 1
			}
			col[y] = Tile{Access: true, Elevation: elev}
		}
		tiles = append(tiles, col)
	}
	m.floor.tiles = tiles
	m.floor.width = 200
	m.floor.height = 200
	m.floor.loaded = true

	// spec.md §8 scenario 4: (100,100)->(105,100), elevations {0,0,1,0,0}, tolerance 1.
	require.True(t, m.SampleElevation(Point{X: 100, Y: 100}, Point{X: 105, Y: 100}, 0))
}

func TestSampleElevationRejectsWallJump(t *testing.T) {
	m := newTestMap(1, 200, 200)
	tiles := [][]Tile{}
	for x := 0; x < 200; x++ {
		col := make([]Tile, 200)
		for y := 0; y < 200; y++ {
			elev := int16(0)
			if x == 102 {
				elev = 3
			}
			col[y] = Tile{Access: true, Elevation: elev}
		}
		tiles = append(tiles, col)
	}
	m.floor.tiles = tiles
	m.floor.width = 200
	m.floor.height = 200
	m.floor.loaded = true

	require.False(t, m.SampleElevation(Point{X: 100, Y: 100}, Point{X: 105, Y: 100}, 0))
}

func TestSampleElevationZeroDistanceAlwaysAccepts(t *testing.T) {
	m := newTestMap(1, 10, 10)
	require.True(t, m.SampleElevation(Point{X: 5, Y: 5}, Point{X: 5, Y: 5}, 99))
}

func TestScreenRefreshOnMove(t *testing.T) {
	// spec.md §8 scenario 5. B starts one tile beyond ScreenDistance of A,
	// since a character exactly ScreenDistance away is within view.
	m := newTestMap(1, ScreenDistance*4, ScreenDistance*4)
	ctx := context.Background()

	a := NewCharacter(1, 10, 1, "A", m.ID(), 50, 50)
	b := NewCharacter(2, 11, 1, "B", m.ID(), 50, 50+ScreenDistance+1)
	require.NoError(t, m.InsertCharacter(ctx, nil, a, noopRemove))
	require.NoError(t, m.InsertCharacter(ctx, nil, b, noopRemove))

	require.False(t, a.Screen().Contains(b.ID()))
	require.False(t, b.Screen().Contains(a.ID()))

	a.SetPosition(Point{X: 50, Y: 51})
	m.UpdateRegionFor(a)
	require.NoError(t, Refresh(ctx, m, a, noopSpawn, noopRemove))

	require.True(t, a.Screen().Contains(b.ID()))
	require.True(t, b.Screen().Contains(a.ID()))

	a.SetPosition(Point{X: 50, Y: 50})
	m.UpdateRegionFor(a)
	require.NoError(t, Refresh(ctx, m, a, noopSpawn, noopRemove))

	require.False(t, a.Screen().Contains(b.ID()))
	require.False(t, b.Screen().Contains(a.ID()))
}

func TestVisibilitySymmetry(t *testing.T) {
	m := newTestMap(1, ScreenDistance*3, ScreenDistance*3)
	ctx := context.Background()

	a := NewCharacter(1, 10, 1, "A", m.ID(), 50, 50)
	b := NewCharacter(2, 11, 1, "B", m.ID(), 52, 52)
	require.NoError(t, m.InsertCharacter(ctx, nil, a, noopRemove))
	require.NoError(t, m.InsertCharacter(ctx, nil, b, noopRemove))

	require.NoError(t, LoadSurroundings(ctx, m, a, noopSpawn))
	require.Equal(t, b.Screen().Contains(a.ID()), a.Screen().Contains(b.ID()))
	require.True(t, a.Screen().Contains(b.ID()))
}
