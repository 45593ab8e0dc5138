package model

// Position представляет координаты в мире (y: высота, x/z: плоскость карты).
// Value type, передаётся по значению (immutable).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewPosition создаёт Position с указанными координатами.
func NewPosition(x, y, z float64) Position {
	return Position{X: x, Y: y, Z: z}
}
