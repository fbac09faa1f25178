package server

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gravitas-games/hexgrid/internal/action"
	"github.com/gravitas-games/hexgrid/internal/grid"
	"github.com/gravitas-games/hexgrid/internal/hecs"
	"github.com/gravitas-games/hexgrid/internal/journal"
	"github.com/gravitas-games/hexgrid/internal/mapsync"
	"github.com/gravitas-games/hexgrid/internal/network"
	"github.com/gravitas-games/hexgrid/pkg/models"
)

// Session ties a synchronized grid to the animations playing on it and to
// the observers watching it. It replaces any process-wide state: every
// component that needs the grid or the observers receives the session.
type Session struct {
	ID        string
	CreatedAt time.Time

	engine       *mapsync.Engine
	store        *grid.Store
	journal      *journal.Writer
	fadeDuration float64

	// Animation state, shared by the sync and tick goroutines
	animMu       sync.Mutex
	queues       map[hecs.Coord]*action.Queue
	frame        map[hecs.Coord]action.Continuous
	nextActionID int

	// Map metadata published to observers
	mapMu     sync.RWMutex
	iteration int
	rows      int
	cols      int

	// Observer management
	observers   map[string]*models.Observer
	connections map[string]*Connection
	mu          sync.RWMutex
}

// SessionOptions configures a Session
type SessionOptions struct {
	FadeDurationS float64
	Journal       *journal.Writer // optional
}

// NewSession creates a session around an engine whose store has already
// been initialized by Engine.Start
func NewSession(id string, engine *mapsync.Engine, store *grid.Store, opts SessionOptions) *Session {
	rows, cols := store.Dimensions()
	log.Printf("Creating session: %s (%dx%d map)", id, rows, cols)

	return &Session{
		ID:           id,
		CreatedAt:    time.Now(),
		engine:       engine,
		store:        store,
		journal:      opts.Journal,
		fadeDuration: opts.FadeDurationS,
		queues:       make(map[hecs.Coord]*action.Queue),
		frame:        make(map[hecs.Coord]action.Continuous),
		rows:         rows,
		cols:         cols,
		observers:    make(map[string]*models.Observer),
		connections:  make(map[string]*Connection),
	}
}

// Run polls the map source and advances animations until ctx is done
func (s *Session) Run(ctx context.Context, pollInterval time.Duration, tickRate int) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.engine.Run(ctx, pollInterval, s.OnMapChange)
	}()

	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// OnMapChange publishes a freshly applied map iteration and fades in every
// tile that it touched
func (s *Session) OnMapChange(res mapsync.Result) {
	s.mapMu.Lock()
	s.iteration = res.Iteration
	s.mapMu.Unlock()

	s.Broadcast(&network.ServerMessage{
		Type:    network.MsgTypeMapUpdate,
		Payload: network.MapUpdatePayload{Iteration: res.Iteration, Tiles: res.Updated},
	})
	if s.journal != nil {
		if err := s.journal.RecordIteration(res.Iteration); err != nil {
			log.Printf("Failed to journal map iteration: %v", err)
		}
	}

	packets := make([]network.Action, 0, len(res.Updated))
	for _, t := range res.Updated {
		packets = append(packets, s.issue(t.Cell, action.FadeIn(s.fadeDuration)))
	}
	s.broadcastActions(packets)
}

// IssueAction queues a on the tile at cell and sends it to observers.
// It returns the id the action was transmitted with.
func (s *Session) IssueAction(cell hecs.Coord, a action.Action) int {
	p := s.issue(cell, a)
	s.broadcastActions([]network.Action{p})
	return p.ID
}

func (s *Session) issue(cell hecs.Coord, a action.Action) network.Action {
	s.animMu.Lock()
	q, ok := s.queues[cell]
	if !ok {
		// New tiles start invisible so the first fade-in is visible.
		q = action.NewQueue(action.Discrete{Cell: cell, Opacity: 0})
		s.queues[cell] = q
	}
	q.Add(a)
	s.nextActionID++
	p := a.Packet(s.nextActionID)
	s.animMu.Unlock()

	if s.journal != nil {
		if err := s.journal.RecordAction(cell, p); err != nil {
			log.Printf("Failed to journal action %d: %v", p.ID, err)
		}
	}
	return p
}

func (s *Session) broadcastActions(packets []network.Action) {
	if len(packets) == 0 {
		return
	}
	s.Broadcast(&network.ServerMessage{
		Type:    network.MsgTypeActions,
		Payload: network.ActionsPayload{Actions: packets},
	})
}

// Tick advances every animation queue to now and stores the resulting frame
func (s *Session) Tick(now time.Time) {
	s.animMu.Lock()
	defer s.animMu.Unlock()

	for cell, q := range s.queues {
		s.frame[cell] = q.Update(now)
	}
}

// TileFrame is the display state of one tile
type TileFrame struct {
	Cell  hecs.Coord        `json:"cell"`
	State action.Continuous `json:"state"`
}

// Frame returns the display state computed by the last Tick, ordered by
// coordinate
func (s *Session) Frame() []TileFrame {
	s.animMu.Lock()
	out := make([]TileFrame, 0, len(s.frame))
	for cell, st := range s.frame {
		out = append(out, TileFrame{Cell: cell, State: st})
	}
	s.animMu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Cell, out[j].Cell
		if a.A != b.A {
			return a.A < b.A
		}
		if a.R != b.R {
			return a.R < b.R
		}
		return a.C < b.C
	})
	return out
}

// AddObserver registers an observer connection and greets it
func (s *Session) AddObserver(observer *models.Observer, conn *Connection) {
	s.mu.Lock()
	s.observers[observer.ID] = observer
	s.connections[observer.ID] = conn
	s.mu.Unlock()

	s.mapMu.RLock()
	welcome := network.WelcomePayload{
		ObserverID: observer.ID,
		Iteration:  s.iteration,
		Rows:       s.rows,
		Cols:       s.cols,
	}
	s.mapMu.RUnlock()

	conn.SendMessage(&network.ServerMessage{Type: network.MsgTypeWelcome, Payload: welcome})
	log.Printf("Observer %s (%s) joined session %s", observer.Username, observer.ID, s.ID)
}

// RemoveObserver removes an observer from the session
func (s *Session) RemoveObserver(observerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if observer, exists := s.observers[observerID]; exists {
		log.Printf("Observer %s (%s) left session %s", observer.Username, observerID, s.ID)
		delete(s.observers, observerID)
		delete(s.connections, observerID)
	}
}

// ObserverCount returns the number of connected observers
func (s *Session) ObserverCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// Broadcast sends a message to all connected observers
func (s *Session) Broadcast(msg *network.ServerMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conn := range s.connections {
		conn.SendMessage(msg)
	}
}
