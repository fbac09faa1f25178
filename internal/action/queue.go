package action

import (
	"log"
	"time"
)

// Phase is the lifecycle stage of the action at the head of a Queue.
type Phase int

const (
	Idle    Phase = iota // nothing has been queued
	Pending              // actions queued, none started
	Active               // head action is playing
	Expired              // last action finished or was dropped; cleared by Add
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Expired:
		return "expired"
	default:
		return "idle"
	}
}

// Queue plays actions for one object in order. It owns the object's
// settled state and commits each action's Transfer when it finishes.
// A Queue is not safe for concurrent use.
type Queue struct {
	state   Discrete
	pending []Action

	current *Action
	started time.Time
	phase   Phase
}

// NewQueue creates a queue resting at initial.
func NewQueue(initial Discrete) *Queue {
	return &Queue{state: initial}
}

// Add appends an action.
func (q *Queue) Add(a Action) {
	q.pending = append(q.pending, a)
	if q.current == nil {
		q.phase = Pending
	}
}

// Len returns the number of actions not yet finished.
func (q *Queue) Len() int {
	n := len(q.pending)
	if q.current != nil {
		n++
	}
	return n
}

// State returns the settled state after every finished action.
func (q *Queue) State() Discrete { return q.state }

// Phase returns the lifecycle stage of the head action.
func (q *Queue) Phase() Phase { return q.phase }

// Update advances playback to now and returns the state to display.
//
// Actions that expire before they start are dropped without effect. An
// action whose expiration passes during playback, or whose progress reaches
// 1, is committed to the settled state.
func (q *Queue) Update(now time.Time) Continuous {
	for {
		if q.current == nil {
			if len(q.pending) == 0 {
				return Rest(q.state)
			}
			next := q.pending[0]
			q.pending = q.pending[1:]
			if next.Expired(now) {
				log.Printf("Dropping %s action that expired at %s", next.Kind, next.Info.Expiration.Format(time.RFC3339))
				q.phase = Expired
				continue
			}
			q.current = &next
			q.started = now
			q.phase = Active
		}

		progress := 1.0
		if d := q.current.Duration(); d > 0 {
			progress = float64(now.Sub(q.started)) / float64(d)
		}
		if progress >= 1 || q.current.Expired(now) {
			q.state = q.current.Transfer(q.state)
			q.current = nil
			q.phase = Expired
			continue
		}
		return q.current.Interpolate(q.state, progress)
	}
}
