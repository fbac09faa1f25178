// Package mapsync keeps a grid.Store in step with an external map source.
package mapsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gravitas-games/hexgrid/internal/grid"
)

// ErrFetchFailure is returned when the map source produced no usable data.
// The grid is left untouched and the next poll retries.
var ErrFetchFailure = errors.New("map fetch failure")

// MapSource provides map snapshots.
type MapSource interface {
	// GetMapDimensions returns the size of the hex grid.
	GetMapDimensions(ctx context.Context) (rows, cols int, err error)

	// GetTileList returns every tile of the map. An empty non-nil slice is
	// a valid empty map; a nil slice means the list is unavailable.
	GetTileList(ctx context.Context) ([]grid.TileInfo, error)

	// GetMapIteration returns a counter that increases whenever the map
	// changes. It is read separately from GetTileList, so a poll may see a
	// list that is one change newer or older than the counter. Re-applying
	// tiles is idempotent, so the worst case is one redundant pass.
	GetMapIteration(ctx context.Context) (int, error)
}

// AtomicMapSource is implemented by sources that can return the counter and
// the tile list from the same snapshot.
type AtomicMapSource interface {
	MapSource
	GetSnapshot(ctx context.Context) (iteration int, tiles []grid.TileInfo, err error)
}

// TileFailure records a tile whose visual could not be materialized, or
// that was skipped because its content was invalid.
type TileFailure struct {
	Tile grid.TileInfo
	Err  error
}

// Result describes one Poll call.
type Result struct {
	Changed       bool
	Iteration     int
	Applied       int
	Updated       []grid.TileInfo // tiles whose geometry was applied
	AssetFailures []TileFailure
	Rejected      []TileFailure // skipped, e.g. for an invalid rotation
}

// Engine polls a MapSource and applies new tile lists to a Store. Poll and
// Start must be called from a single goroutine.
type Engine struct {
	source MapSource
	store  *grid.Store

	lastIteration int
}

// New creates an engine. The store is initialized by Start.
func New(source MapSource, store *grid.Store) *Engine {
	return &Engine{source: source, store: store}
}

// Start reads the map dimensions and initializes the store.
func (e *Engine) Start(ctx context.Context) error {
	if e.source == nil {
		return fmt.Errorf("%w: nil map source", ErrFetchFailure)
	}
	rows, cols, err := e.source.GetMapDimensions(ctx)
	if err != nil {
		return fmt.Errorf("%w: get map dimensions: %v", ErrFetchFailure, err)
	}
	if err := e.store.Initialize(rows, cols); err != nil {
		return fmt.Errorf("failed to initialize grid: %w", err)
	}
	return nil
}

// LastObservedVersion returns the iteration of the last fully applied list.
func (e *Engine) LastObservedVersion() int { return e.lastIteration }

// Poll checks the source for a new map iteration and applies it.
//
// Asset failures and invalid rotations are reported per tile in the result
// and do not stop the batch. Errors wrapping ErrFetchFailure are transient. Errors wrapping
// grid.ErrOutOfBounds or grid.ErrNotInitialized indicate a contract
// violation and abort the batch without advancing the iteration marker.
func (e *Engine) Poll(ctx context.Context) (Result, error) {
	if e.source == nil {
		log.Println("Null map source")
		return Result{}, fmt.Errorf("%w: nil map source", ErrFetchFailure)
	}

	iteration, tiles, err := e.fetch(ctx)
	if err != nil {
		log.Printf("Map fetch failed, retrying next poll: %v", err)
		return Result{Iteration: e.lastIteration}, err
	}
	if tiles == nil {
		return Result{Iteration: e.lastIteration}, nil
	}

	res := Result{Changed: true, Iteration: iteration, Updated: make([]grid.TileInfo, 0, len(tiles))}
	for _, t := range tiles {
		err := e.store.ApplyTileUpdate(t)
		switch {
		case err == nil:
		case errors.Is(err, grid.ErrInvalidRotation):
			log.Printf("Tile %s skipped: %v", t.Cell, err)
			res.Rejected = append(res.Rejected, TileFailure{Tile: t, Err: err})
			continue
		case errors.Is(err, grid.ErrAssetLoadFailure):
			log.Printf("Tile %s applied without visual: %v", t.Cell, err)
			res.AssetFailures = append(res.AssetFailures, TileFailure{Tile: t, Err: err})
		default:
			return Result{Iteration: e.lastIteration}, fmt.Errorf("failed to apply tile %s: %w", t.Cell, err)
		}
		res.Applied++
		res.Updated = append(res.Updated, t)
	}

	e.lastIteration = iteration
	log.Printf("Map iteration %d applied (%d tiles, %d asset failures, %d rejected)", iteration, res.Applied, len(res.AssetFailures), len(res.Rejected))
	return res, nil
}

// fetch returns a nil tile list when the map is unchanged.
func (e *Engine) fetch(ctx context.Context) (int, []grid.TileInfo, error) {
	if atomic, ok := e.source.(AtomicMapSource); ok {
		iteration, tiles, err := atomic.GetSnapshot(ctx)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: get snapshot: %v", ErrFetchFailure, err)
		}
		if iteration == e.lastIteration {
			return iteration, nil, nil
		}
		if tiles == nil {
			return 0, nil, fmt.Errorf("%w: null tile list received", ErrFetchFailure)
		}
		return iteration, tiles, nil
	}

	iteration, err := e.source.GetMapIteration(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: get map iteration: %v", ErrFetchFailure, err)
	}
	if iteration == e.lastIteration {
		return iteration, nil, nil
	}

	tiles, err := e.source.GetTileList(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: get tile list: %v", ErrFetchFailure, err)
	}
	if tiles == nil {
		return 0, nil, fmt.Errorf("%w: null tile list received", ErrFetchFailure)
	}
	return iteration, tiles, nil
}

// Run polls every interval until ctx is done. onChange, when non-nil, is
// called after each poll that applied a new iteration.
func (e *Engine) Run(ctx context.Context, interval time.Duration, onChange func(Result)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := e.Poll(ctx)
			if err != nil {
				if !errors.Is(err, ErrFetchFailure) {
					log.Printf("Map sync error: %v", err)
				}
				continue
			}
			if res.Changed && onChange != nil {
				onChange(res)
			}
		}
	}
}
