package world

// Cell is an integer grid coordinate. Cell (cx, cz) covers world space
// [cx*cellSize, (cx+1)*cellSize) on x and the same on z.
type Cell struct {
	X int `json:"cx" yaml:"cx"`
	Z int `json:"cz" yaml:"cz"`
}

// Bounds is an inclusive rectangle of cells.
type Bounds struct {
	MinCX int `json:"minCx" yaml:"min_cx"`
	MinCZ int `json:"minCz" yaml:"min_cz"`
	MaxCX int `json:"maxCx" yaml:"max_cx"`
	MaxCZ int `json:"maxCz" yaml:"max_cz"`
}

// Rect is an axis-aligned world-space rectangle on the x/z plane.
type Rect struct {
	MinX, MinZ float64
	MaxX, MaxZ float64
}

// NewBounds returns normalized bounds for the given corners.
func NewBounds(minCX, minCZ, maxCX, maxCZ int) Bounds {
	return Bounds{MinCX: minCX, MinCZ: minCZ, MaxCX: maxCX, MaxCZ: maxCZ}.Normalize()
}

// Normalize swaps inverted min/max pairs.
func (b Bounds) Normalize() Bounds {
	if b.MaxCX < b.MinCX {
		b.MinCX, b.MaxCX = b.MaxCX, b.MinCX
	}
	if b.MaxCZ < b.MinCZ {
		b.MinCZ, b.MaxCZ = b.MaxCZ, b.MinCZ
	}
	return b
}

// Contains reports whether c lies inside b.
func (b Bounds) Contains(c Cell) bool {
	return c.X >= b.MinCX && c.X <= b.MaxCX && c.Z >= b.MinCZ && c.Z <= b.MaxCZ
}

// Width returns the number of cell columns.
func (b Bounds) Width() int {
	return max(0, b.MaxCX-b.MinCX+1)
}

// Depth returns the number of cell rows.
func (b Bounds) Depth() int {
	return max(0, b.MaxCZ-b.MinCZ+1)
}

// CellCount returns Width*Depth.
func (b Bounds) CellCount() int {
	return b.Width() * b.Depth()
}

// Cells enumerates every cell in b, z-major (rows of x).
func (b Bounds) Cells() []Cell {
	cells := make([]Cell, 0, b.CellCount())
	for cz := b.MinCZ; cz <= b.MaxCZ; cz++ {
		for cx := b.MinCX; cx <= b.MaxCX; cx++ {
			cells = append(cells, Cell{X: cx, Z: cz})
		}
	}
	return cells
}

// WorldRect returns the world-space rectangle covered by all cells of b.
func (b Bounds) WorldRect(cellSize float64) Rect {
	return Rect{
		MinX: float64(b.MinCX) * cellSize,
		MinZ: float64(b.MinCZ) * cellSize,
		MaxX: float64(b.MaxCX+1) * cellSize,
		MaxZ: float64(b.MaxCZ+1) * cellSize,
	}
}

// CellBounds returns the world-space rectangle of a single cell.
func CellBounds(c Cell, cellSize float64) Rect {
	return Rect{
		MinX: float64(c.X) * cellSize,
		MinZ: float64(c.Z) * cellSize,
		MaxX: float64(c.X+1) * cellSize,
		MaxZ: float64(c.Z+1) * cellSize,
	}
}

// CellCenter returns the world-space center of a cell.
func CellCenter(c Cell, cellSize float64) (x, z float64) {
	return (float64(c.X) + 0.5) * cellSize, (float64(c.Z) + 0.5) * cellSize
}
