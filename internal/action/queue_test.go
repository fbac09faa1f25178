package action

import (
	"testing"
	"time"

	"github.com/gravitas-games/hexgrid/internal/hecs"
)

func TestQueuePlaysInOrder(t *testing.T) {
	fixClock(t)
	q := NewQueue(Discrete{Cell: hecs.Origin, Opacity: 1})
	q.Add(FadeOut(2))
	q.Add(FadeIn(1))
	if q.Phase() != Pending || q.Len() != 2 {
		t.Fatalf("expected 2 pending actions, got %s/%d", q.Phase(), q.Len())
	}

	start := testNow
	if got := q.Update(start); got.Opacity != 1 || q.Phase() != Active {
		t.Fatalf("expected fade-out to start at opacity 1, got %+v (%s)", got, q.Phase())
	}
	if got := q.Update(start.Add(time.Second)); !near(got.Opacity, 0.5) {
		t.Fatalf("expected opacity 0.5 halfway, got %f", got.Opacity)
	}

	// Fade-out finishes, fade-in starts at this instant.
	got := q.Update(start.Add(2 * time.Second))
	if got.Opacity != 0 || q.State().Opacity != 0 || q.Len() != 1 {
		t.Fatalf("expected fade-out committed, got %+v state=%+v len=%d", got, q.State(), q.Len())
	}
	if got := q.Update(start.Add(2500 * time.Millisecond)); !near(got.Opacity, 0.5) {
		t.Fatalf("expected fade-in halfway, got %f", got.Opacity)
	}
	got = q.Update(start.Add(4 * time.Second))
	if got.Opacity != 1 || q.Phase() != Expired || q.Len() != 0 {
		t.Fatalf("expected finished at opacity 1, got %+v (%s)", got, q.Phase())
	}
	q.Update(start.Add(5 * time.Second))
	if q.Phase() != Expired {
		t.Fatalf("expected expired phase to persist until the next Add, got %s", q.Phase())
	}
	q.Add(FadeOut(1))
	if q.Phase() != Pending {
		t.Fatalf("expected pending after Add, got %s", q.Phase())
	}
}

func TestQueueDropsExpiredActions(t *testing.T) {
	fixClock(t)
	q := NewQueue(Discrete{Opacity: 1})
	q.Add(FadeOut(1))

	got := q.Update(testNow.Add(DefaultExpiration))
	if got.Opacity != 1 || q.State().Opacity != 1 || q.Len() != 0 || q.Phase() != Expired {
		t.Fatalf("expected expired action dropped without effect, got %+v (%s)", got, q.Phase())
	}
}

func TestQueueCommitsWhenExpiringMidPlayback(t *testing.T) {
	fixClock(t)
	q := NewQueue(Discrete{Opacity: 1})
	q.Add(FadeOut(30))

	q.Update(testNow.Add(5 * time.Second))
	got := q.Update(testNow.Add(DefaultExpiration))
	if got.Opacity != 0 || q.Len() != 0 {
		t.Fatalf("expected action committed on expiration, got %+v", got)
	}
}

func TestQueueZeroDurationCompletesImmediately(t *testing.T) {
	fixClock(t)
	q := NewQueue(Discrete{Cell: hecs.Origin})
	q.Add(Instant(hecs.Coord{C: 2}, 0))
	q.Update(testNow)
	if q.State().Cell != (hecs.Coord{C: 2}) {
		t.Fatalf("expected instant move committed, got %s", q.State().Cell)
	}
}
