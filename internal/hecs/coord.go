// Package hecs implements the Hexagon Efficient Coordinate System.
//
// A cell is addressed by (A, R, C): A selects one of two interleaved
// rectangular arrays, R is the half-row inside that array and C the column.
package hecs

import (
	"fmt"
	"math"
)

// Coord is a HECS address.
type Coord struct {
	A int `json:"a"`
	R int `json:"r"`
	C int `json:"c"`
}

// Origin is the zero coordinate, also used as "no displacement".
var Origin = Coord{}

// Direction identifies one of the six edges of a cell.
type Direction int

const (
	UpRight Direction = iota
	Right
	DownRight
	DownLeft
	Left
	UpLeft
)

// NumDirections is the number of neighbors of every cell.
const NumDirections = 6

var directionNames = [NumDirections]string{
	"up_right", "right", "down_right", "down_left", "left", "up_left",
}

// Opposite returns the direction pointing back across the same edge.
func (d Direction) Opposite() Direction { return (d + 3) % NumDirections }

func (d Direction) String() string {
	if d < 0 || d >= NumDirections {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// FromOffset converts a flat (row, col) address into HECS.
func FromOffset(row, col int) Coord {
	return Coord{A: row % 2, R: row / 2, C: col}
}

// Offset returns the flat (row, col) address of c.
func (c Coord) Offset() (row, col int) {
	return c.R*2 + c.A, c.C
}

// Add returns c+d in HECS space. The axis bits add modulo 2 and carry into
// both R and C.
func (c Coord) Add(d Coord) Coord {
	carry := c.A & d.A
	return Coord{
		A: c.A ^ d.A,
		R: c.R + d.R + carry,
		C: c.C + d.C + carry,
	}
}

// Neighbor returns the adjacent coordinate in direction d.
func (c Coord) Neighbor(d Direction) Coord {
	a, r, col := c.A, c.R, c.C
	switch d {
	case UpRight:
		return Coord{1 - a, r - (1 - a), col + a}
	case Right:
		return Coord{a, r, col + 1}
	case DownRight:
		return Coord{1 - a, r + a, col + a}
	case DownLeft:
		return Coord{1 - a, r + a, col - (1 - a)}
	case Left:
		return Coord{a, r, col - 1}
	case UpLeft:
		return Coord{1 - a, r - (1 - a), col - (1 - a)}
	}
	panic(fmt.Sprintf("hecs: invalid direction %d", int(d)))
}

// Neighbors returns the six adjacent coordinates, indexed by Direction.
// Results may lie outside any particular grid.
func (c Coord) Neighbors() [NumDirections]Coord {
	var out [NumDirections]Coord
	for d := Direction(0); d < NumDirections; d++ {
		out[d] = c.Neighbor(d)
	}
	return out
}

// DirectionTo reports which edge of c faces other.
func (c Coord) DirectionTo(other Coord) (Direction, bool) {
	for d := Direction(0); d < NumDirections; d++ {
		if c.Neighbor(d) == other {
			return d, true
		}
	}
	return 0, false
}

// IsAdjacent reports whether other shares an edge with c.
func (c Coord) IsAdjacent(other Coord) bool {
	_, ok := c.DirectionTo(other)
	return ok
}

// Center converts c to planar coordinates. scale is the distance between
// the centers of two adjacent cells.
func (c Coord) Center(scale float64) (x, y float64) {
	a := float64(c.A)
	x = scale * (a/2 + float64(c.C))
	y = scale * math.Sqrt(3) * (a/2 + float64(c.R))
	return
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.A, c.R, c.C)
}
