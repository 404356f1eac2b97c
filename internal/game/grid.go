package game

import "math"

// Grid is the fixed-size terrain map of one session. Each cell carries a
// terrain modifier that feeds into combat hit chance. Cells are stored
// row-major: index(x,y) = y*width + x.
type Grid struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Cells  []int `json:"map"`
}

// NewGrid creates a flat grid with every terrain modifier at zero.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Cells:  make([]int, width*height),
	}
}

// NewTerrainGrid creates a grid with terrain modifiers drawn uniformly from
// [0, maxModifier]. maxModifier <= 0 yields a flat grid.
func NewTerrainGrid(width, height, maxModifier int, rng RandSource) *Grid {
	g := NewGrid(width, height)
	if maxModifier <= 0 {
		return g
	}
	for i := range g.Cells {
		g.Cells[i] = rng.Intn(maxModifier + 1)
	}
	return g
}

// Index maps a coordinate to its cell offset. Only defined for in-bounds
// coordinates.
func (g *Grid) Index(x, y int) int {
	return y*g.Width + x
}

// InBounds reports whether (x, y) is a valid grid coordinate.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// InInterior reports whether (x, y) lies strictly inside the playable
// interior, excluding the outermost ring of cells.
func (g *Grid) InInterior(x, y int) bool {
	return x >= 1 && x <= g.Width-2 && y >= 1 && y <= g.Height-2
}

// ValueAt returns the terrain modifier at (x, y).
func (g *Grid) ValueAt(x, y int) int {
	return g.Cells[g.Index(x, y)]
}

// Distance returns the euclidean distance between two cells. Distinct cells
// are always at least 1 apart.
func Distance(x1, y1, x2, y2 int) float64 {
	dx := float64(x2 - x1)
	dy := float64(y2 - y1)
	return math.Sqrt(dx*dx + dy*dy)
}
