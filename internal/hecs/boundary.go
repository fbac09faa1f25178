package hecs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotNeighbor is returned when an edge is addressed between two cells
// that do not share one.
var ErrNotNeighbor = errors.New("cells are not adjacent")

// EdgeState is the traversability of one edge.
type EdgeState int

const (
	Open EdgeState = iota
	Blocked
)

func (s EdgeState) String() string {
	if s == Blocked {
		return "blocked"
	}
	return "open"
}

// Boundary holds the edge states of a single cell, one bit per Direction.
// A set bit means the edge is blocked. The zero value is fully open.
type Boundary uint8

const allEdges Boundary = 1<<NumDirections - 1

// BoundaryFrom builds a boundary with the given directions blocked.
func BoundaryFrom(blocked ...Direction) Boundary {
	var b Boundary
	for _, d := range blocked {
		b.Set(d, Blocked)
	}
	return b
}

// Mask returns the raw bitmask.
func (b Boundary) Mask() uint8 { return uint8(b & allEdges) }

// Edge returns the state of the edge in direction d.
func (b Boundary) Edge(d Direction) EdgeState {
	if b&(1<<d) != 0 {
		return Blocked
	}
	return Open
}

// Blocked is shorthand for Edge(d) == Blocked.
func (b Boundary) Blocked(d Direction) bool { return b.Edge(d) == Blocked }

// Set overwrites the state of the edge in direction d.
func (b *Boundary) Set(d Direction, state EdgeState) {
	if state == Blocked {
		*b |= 1 << d
	} else {
		*b &^= 1 << d
	}
}

// SetEdgeWith sets the edge of self that faces other.
func (b *Boundary) SetEdgeWith(self, other Coord, state EdgeState) error {
	d, ok := self.DirectionTo(other)
	if !ok {
		return fmt.Errorf("set edge %s -> %s: %w", self, other, ErrNotNeighbor)
	}
	b.Set(d, state)
	return nil
}

// MergeWith folds incoming into b. An edge blocked in either operand stays
// blocked; merging never opens an edge.
func (b *Boundary) MergeWith(incoming Boundary) {
	*b = (*b | incoming) & allEdges
}

func (b Boundary) String() string {
	if b.Mask() == 0 {
		return "open"
	}
	var parts []string
	for d := Direction(0); d < NumDirections; d++ {
		if b.Blocked(d) {
			parts = append(parts, d.String())
		}
	}
	return "blocked[" + strings.Join(parts, ",") + "]"
}
