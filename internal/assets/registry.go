// Package assets provides asset sources for the grid store.
package assets

import (
	"fmt"
	"sync"

	"github.com/gravitas-games/hexgrid/internal/grid"
)

// Model is the handle type produced by Registry.
type Model struct {
	ID     int
	Prefab string
	Pose   grid.Pose
}

// Registry resolves asset ids to named prefabs and tracks the models it
// has instantiated. It stands in for an engine-side asset loader.
type Registry struct {
	mu     sync.Mutex
	names  map[int]string
	live   map[int]Model
	nextID int
}

// NewRegistry creates a registry from an id -> prefab name table.
func NewRegistry(names map[int]string) *Registry {
	r := &Registry{names: make(map[int]string, len(names)), live: make(map[int]Model)}
	for id, name := range names {
		r.names[id] = name
	}
	return r
}

// Load returns the prefab name registered for assetID.
func (r *Registry) Load(assetID int) (grid.Prefab, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.names[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown asset id %d", grid.ErrAssetLoadFailure, assetID)
	}
	return name, nil
}

// Instantiate records a new model for prefab at pose.
func (r *Registry) Instantiate(prefab grid.Prefab, pose grid.Pose) (grid.Handle, error) {
	name, ok := prefab.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected prefab type %T", grid.ErrAssetLoadFailure, prefab)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	m := Model{ID: r.nextID, Prefab: name, Pose: pose}
	r.live[m.ID] = m
	return m, nil
}

// Release forgets a model returned by Instantiate.
func (r *Registry) Release(h grid.Handle) {
	m, ok := h.(Model)
	if !ok {
		return
	}
	r.mu.Lock()
	delete(r.live, m.ID)
	r.mu.Unlock()
}

// Live returns the number of models not yet released.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
