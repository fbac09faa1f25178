package action

import (
	"math"

	"github.com/gravitas-games/hexgrid/internal/hecs"
	"github.com/gravitas-games/hexgrid/internal/network"
)

// Discrete is the settled state of an animated object between actions.
type Discrete struct {
	Cell           hecs.Coord
	HeadingDegrees float64
	Opacity        float64
	BorderRadius   float64
}

// Position returns the center of the cell in cell units.
func (d Discrete) Position() (x, y float64) {
	return d.Cell.Center(1)
}

// Continuous is a display-only snapshot taken part way through an action.
// Positions are in cell units; renderers scale them.
type Continuous struct {
	X              float64               `json:"x"`
	Y              float64               `json:"y"`
	HeadingDegrees float64               `json:"heading_degrees"`
	Opacity        float64               `json:"opacity"`
	BorderRadius   float64               `json:"border_radius"`
	Animation      network.AnimationType `json:"animation"`
}

// Rest returns the continuous form of a settled state.
func Rest(d Discrete) Continuous {
	x, y := d.Position()
	return Continuous{
		X:              x,
		Y:              y,
		HeadingDegrees: d.HeadingDegrees,
		Opacity:        d.Opacity,
		BorderRadius:   d.BorderRadius,
		Animation:      network.AnimationIdle,
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func normalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	return h
}
