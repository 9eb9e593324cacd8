package mapdata

import "fmt"

// Coordinate is a point on the integer map grid.
// X grows eastwards, Y grows southwards and Z grows upwards.
type Coordinate struct {
	X int32
	Y int32
	Z int32
}

// Add returns c + o.
func (c Coordinate) Add(o Coordinate) Coordinate {
	return Coordinate{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

// Sub returns c - o.
func (c Coordinate) Sub(o Coordinate) Coordinate {
	return Coordinate{X: c.X - o.X, Y: c.Y - o.Y, Z: c.Z - o.Z}
}

// Scale returns c multiplied component-wise by k.
func (c Coordinate) Scale(k int32) Coordinate {
	return Coordinate{X: c.X * k, Y: c.Y * k, Z: c.Z * k}
}

// IsNull reports whether c is the origin.
func (c Coordinate) IsNull() bool {
	return c == Coordinate{}
}

// Distance returns the Manhattan distance between c and o.
func (c Coordinate) Distance(o Coordinate) int {
	return abs(int(c.X)-int(o.X)) + abs(int(c.Y)-int(o.Y)) + abs(int(c.Z)-int(o.Z))
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
