package world

// ScreenDistance is the visibility radius and region edge length, in
// tiles (spec.md §3 "MapRegion"/"Screen", Glossary). TQ Digital's own
// client uses 18; nothing in this repo depends on a different value so
// it is kept as the one constant every region/visibility computation is
// derived from.
const ScreenDistance = 18

// ElevationTolerance bounds the elevation delta SampleElevation allows
// between each sampled tile and the mover's baseline elevation before
// rejecting a move as a wall jump (spec.md §4.7).
const ElevationTolerance = 1

// WalkXCoords and WalkYCoords are the fixed 9-cell stencil (self plus 8
// neighbours) used by both the surrounding-regions query and the
// teacher's own 3×3 region window (internal/world/world.go in the
// example pack).
var (
	WalkXCoords = [9]int32{-1, 0, 1, -1, 0, 1, -1, 0, 1}
	WalkYCoords = [9]int32{-1, -1, -1, 0, 0, 0, 1, 1, 1}
)

// Point is a tile coordinate on a map's floor.
type Point struct {
	X, Y uint16
}

// chebyshev returns the Chebyshev (king-move) distance between two
// points, the metric visibility and elevation sampling are both defined
// over (spec.md §4.7, §4.8).
func chebyshev(a, b Point) int {
	dx := abs(int(a.X) - int(b.X))
	dy := abs(int(a.Y) - int(b.Y))
	if dx > dy {
		return dx
	}
	return dy
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
