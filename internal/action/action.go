// Package action describes timed visual transitions of map objects and
// computes their interpolated state.
package action

import (
	"errors"
	"fmt"
	"time"

	"github.com/gravitas-games/hexgrid/internal/hecs"
	"github.com/gravitas-games/hexgrid/internal/network"
)

// DefaultExpiration bounds how long an issued action may wait to be played.
const DefaultExpiration = 10 * time.Second

// ErrUnsupportedAction is returned when a descriptor names an action type
// that has no evaluation rule.
var ErrUnsupportedAction = errors.New("unsupported action type")

// clock is replaced in tests.
var clock = time.Now

// Kind selects the evaluation rule of an Action.
type Kind int

const (
	KindInit Kind = iota
	KindInstant
	KindRotate
	KindTranslate
	KindFade
)

func (k Kind) String() string {
	return k.actionType().String()
}

func (k Kind) actionType() network.ActionType {
	switch k {
	case KindInstant:
		return network.ActionInstant
	case KindRotate:
		return network.ActionRotate
	case KindTranslate:
		return network.ActionTranslate
	case KindFade:
		return network.ActionFade
	default:
		return network.ActionInit
	}
}

// Info is the payload shared by every action kind.
type Info struct {
	Animation       network.AnimationType
	Displacement    hecs.Coord
	RotationDegrees int
	BorderRadius    float64 // Added to the border radius
	Opacity         float64 // Target opacity, used by fades
	DurationS       float64
	Expiration      time.Time
}

// Action is an immutable transition. The zero value is an Init action that
// leaves state unchanged.
type Action struct {
	Kind Kind
	Info Info
}

// Duration returns the playback length.
func (a Action) Duration() time.Duration {
	return time.Duration(a.Info.DurationS * float64(time.Second))
}

// Expired reports whether now is at or after the expiration time.
func (a Action) Expired(now time.Time) bool {
	return !a.Info.Expiration.IsZero() && !now.Before(a.Info.Expiration)
}

// Transfer applies the complete effect of the action to s.
func (a Action) Transfer(s Discrete) Discrete {
	switch a.Kind {
	case KindFade:
		s.Opacity = a.Info.Opacity
	case KindRotate:
		s.HeadingDegrees = normalizeHeading(s.HeadingDegrees + float64(a.Info.RotationDegrees))
	case KindTranslate:
		s.Cell = s.Cell.Add(a.Info.Displacement)
	case KindInstant:
		s.Cell = s.Cell.Add(a.Info.Displacement)
		s.HeadingDegrees = normalizeHeading(s.HeadingDegrees + float64(a.Info.RotationDegrees))
	case KindInit:
		return s
	}
	s.BorderRadius += a.Info.BorderRadius
	return s
}

// Interpolate returns the state at progress through the action. progress is
// clamped to [0, 1]; the action never overshoots its end state.
func (a Action) Interpolate(initial Discrete, progress float64) Continuous {
	if progress > 1 {
		progress = 1
	}
	if !(progress >= 0) { // also catches NaN
		progress = 0
	}

	end := a.Transfer(initial)
	if a.Kind == KindInstant && progress > 0 {
		progress = 1
	}

	x0, y0 := initial.Position()
	x1, y1 := end.Position()
	out := Continuous{
		X:              lerp(x0, x1, progress),
		Y:              lerp(y0, y1, progress),
		HeadingDegrees: initial.HeadingDegrees,
		Opacity:        lerp(initial.Opacity, end.Opacity, progress),
		BorderRadius:   lerp(initial.BorderRadius, end.BorderRadius, progress),
		Animation:      a.Info.Animation,
	}

	switch a.Kind {
	case KindRotate, KindInstant:
		if progress == 0 {
			break
		}
		// Lerp the unwrapped delta so a 300 -> 60 turn goes forward.
		delta := float64(a.Info.RotationDegrees)
		out.HeadingDegrees = normalizeHeading(initial.HeadingDegrees + delta*progress)
	}
	return out
}

// Packet encodes the action for transmission, tagged with id.
func (a Action) Packet(id int) network.Action {
	return network.Action{
		ID:              id,
		ActionType:      a.Kind.actionType(),
		AnimationType:   a.Info.Animation,
		Displacement:    a.Info.Displacement,
		RotationDegrees: a.Info.RotationDegrees,
		DurationS:       a.Info.DurationS,
		Opacity:         a.Info.Opacity,
		Expiration:      a.Info.Expiration.Format(time.RFC3339Nano),
	}
}

// FromPacket decodes a descriptor produced by Packet.
func FromPacket(p network.Action) (Action, error) {
	var kind Kind
	switch p.ActionType {
	case network.ActionInit:
		kind = KindInit
	case network.ActionInstant:
		kind = KindInstant
	case network.ActionRotate:
		kind = KindRotate
	case network.ActionTranslate:
		kind = KindTranslate
	case network.ActionFade:
		kind = KindFade
	default:
		return Action{}, fmt.Errorf("%w: %s", ErrUnsupportedAction, p.ActionType)
	}

	exp, err := time.Parse(time.RFC3339Nano, p.Expiration)
	if err != nil {
		return Action{}, fmt.Errorf("invalid expiration %q: %w", p.Expiration, err)
	}

	return Action{
		Kind: kind,
		Info: Info{
			Animation:       p.AnimationType,
			Displacement:    p.Displacement,
			RotationDegrees: p.RotationDegrees,
			Opacity:         p.Opacity,
			DurationS:       p.DurationS,
			Expiration:      exp,
		},
	}, nil
}

func newAction(kind Kind, info Info) Action {
	info.Expiration = clock().Add(DefaultExpiration)
	return Action{Kind: kind, Info: info}
}

// FadeIn raises opacity to 1 over durationS seconds.
func FadeIn(durationS float64) Action {
	return newAction(KindFade, Info{Animation: network.AnimationNone, Opacity: 1, DurationS: durationS})
}

// FadeOut lowers opacity to 0 over durationS seconds.
func FadeOut(durationS float64) Action {
	return newAction(KindFade, Info{Animation: network.AnimationNone, Opacity: 0, DurationS: durationS})
}

// Rotate turns by degrees over durationS seconds.
func Rotate(degrees int, durationS float64) Action {
	return newAction(KindRotate, Info{Animation: network.AnimationRotate, RotationDegrees: degrees, DurationS: durationS})
}

// Translate moves by the HECS displacement over durationS seconds.
func Translate(displacement hecs.Coord, durationS float64) Action {
	return newAction(KindTranslate, Info{Animation: network.AnimationWalking, Displacement: displacement, DurationS: durationS})
}

// Step moves one cell in direction d from a cell on the given axis.
func Step(axis int, d hecs.Direction, durationS float64) Action {
	from := hecs.Coord{A: axis}
	to := from.Neighbor(d)
	delta := hecs.Coord{A: to.A ^ from.A, R: to.R, C: to.C}
	if from.A == 1 && to.A == 0 {
		// Undo the carry Add applies when both axis bits are set.
		delta.R--
		delta.C--
	}
	return Translate(delta, durationS)
}

// Instant jumps by displacement and rotation without animating.
func Instant(displacement hecs.Coord, degrees int) Action {
	return newAction(KindInstant, Info{Animation: network.AnimationInstant, Displacement: displacement, RotationDegrees: degrees})
}
