package grid

import (
	"errors"
	"fmt"
	"log"

	"github.com/gravitas-games/hexgrid/internal/hecs"
)

var (
	ErrNotInitialized     = errors.New("grid not initialized")
	ErrOutOfBounds        = errors.New("coordinate out of bounds")
	ErrInvalidDimensions  = errors.New("invalid map dimensions")
	ErrInvalidRotation    = errors.New("rotation must be a multiple of 60 degrees")
	ErrAlreadyInitialized = errors.New("grid already initialized")
)

// TileInfo is a single entry of a map source's tile list.
type TileInfo struct {
	AssetID         int           `json:"asset_id"`
	Cell            hecs.Coord    `json:"cell"`
	RotationDegrees int           `json:"rotation_degrees"` // Multiple of 60
	Boundary        hecs.Boundary `json:"boundary"`
}

// Tile is a placed map object.
type Tile struct {
	AssetID         int
	Cell            hecs.Coord
	RotationDegrees int
	Model           Handle
}

// Store holds the tiles of a HECS grid and the edge map describing which
// cell edges can be crossed. It is not safe for concurrent mutation.
type Store struct {
	assets AssetSource
	scale  float64

	rows, cols int
	halfRows   int
	ready      bool

	tiles [2][][]*Tile
	edges [2][][]hecs.Boundary
}

// NewStore creates an uninitialized store. assets may be nil, in which case
// no visuals are requested. scale is the center-to-center cell distance
// used for model poses.
func NewStore(assets AssetSource, scale float64) *Store {
	if scale <= 0 {
		scale = 1
	}
	return &Store{assets: assets, scale: scale}
}

// Initialize allocates storage for a rows x cols map. Every edge starts
// open and no tiles are placed.
func (s *Store) Initialize(rows, cols int) error {
	if s.ready {
		return ErrAlreadyInitialized
	}
	if rows < 2 || cols < 1 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, cols)
	}

	s.rows, s.cols = rows, cols
	s.halfRows = rows / 2
	for a := 0; a < 2; a++ {
		s.tiles[a] = make([][]*Tile, s.halfRows)
		s.edges[a] = make([][]hecs.Boundary, s.halfRows)
		for r := 0; r < s.halfRows; r++ {
			s.tiles[a][r] = make([]*Tile, cols)
			s.edges[a][r] = make([]hecs.Boundary, cols)
		}
	}
	s.ready = true

	log.Printf("Grid initialized with %d rows and %d cols (%d cells)", rows, cols, 2*s.halfRows*cols)
	return nil
}

// Initialized reports whether Initialize has run.
func (s *Store) Initialized() bool { return s.ready }

// Dimensions returns the declared map size.
func (s *Store) Dimensions() (rows, cols int) { return s.rows, s.cols }

// Scale returns the center-to-center cell distance.
func (s *Store) Scale() float64 { return s.scale }

// InBounds reports whether c addresses an allocated cell.
func (s *Store) InBounds(c hecs.Coord) bool {
	return s.ready &&
		(c.A == 0 || c.A == 1) &&
		c.R >= 0 && c.R < s.halfRows &&
		c.C >= 0 && c.C < s.cols
}

func (s *Store) check(c hecs.Coord) error {
	if !s.ready {
		return ErrNotInitialized
	}
	if !s.InBounds(c) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	return nil
}

// ApplyTileUpdate places or replaces the tile at info.Cell and records its
// boundary. The edge map is symmetric once this returns: every edge shared
// with an in-bounds neighbor is blocked on both sides if either side has
// it blocked.
//
// An error wrapping ErrAssetLoadFailure means the geometry was applied but
// the visual could not be materialized.
func (s *Store) ApplyTileUpdate(info TileInfo) error {
	if err := s.check(info.Cell); err != nil {
		return err
	}
	if info.RotationDegrees%60 != 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRotation, info.RotationDegrees)
	}
	rotation := ((info.RotationDegrees % 360) + 360) % 360

	c := info.Cell
	tile := s.tiles[c.A][c.R][c.C]
	if tile == nil {
		tile = &Tile{}
		s.tiles[c.A][c.R][c.C] = tile
	}
	tile.AssetID = info.AssetID
	tile.Cell = c
	tile.RotationDegrees = rotation

	s.updateCellEdges(c, info.Boundary)

	return s.materialize(tile)
}

// updateCellEdges merges b into the cell at c and mirrors every edge onto
// the neighbor across it.
func (s *Store) updateCellEdges(c hecs.Coord, b hecs.Boundary) {
	own := &s.edges[c.A][c.R][c.C]
	own.MergeWith(b)

	for d, n := range c.Neighbors() {
		if !s.InBounds(n) {
			continue
		}
		dir := hecs.Direction(d)
		back := dir.Opposite()
		theirs := &s.edges[n.A][n.R][n.C]

		state := hecs.Open
		if own.Blocked(dir) || theirs.Blocked(back) {
			state = hecs.Blocked
		}
		own.Set(dir, state)
		theirs.Set(back, state)
	}
}

func (s *Store) materialize(tile *Tile) error {
	if s.assets == nil {
		return nil
	}

	prefab, err := s.assets.Load(tile.AssetID)
	if err != nil {
		s.dropModel(tile)
		return fmt.Errorf("%w: load asset %d at %s: %v", ErrAssetLoadFailure, tile.AssetID, tile.Cell, err)
	}

	x, y := tile.Cell.Center(s.scale)
	model, err := s.assets.Instantiate(prefab, Pose{X: x, Y: y, HeadingDegrees: float64(tile.RotationDegrees)})
	if err != nil {
		s.dropModel(tile)
		return fmt.Errorf("%w: instantiate asset %d at %s: %v", ErrAssetLoadFailure, tile.AssetID, tile.Cell, err)
	}

	if tile.Model != nil {
		s.assets.Release(tile.Model)
	}
	tile.Model = model
	return nil
}

// dropModel releases a visual that no longer matches the tile's asset.
func (s *Store) dropModel(tile *Tile) {
	if tile.Model != nil {
		s.assets.Release(tile.Model)
		tile.Model = nil
	}
}

// Tile returns the tile placed at c, if any. The returned value is a copy.
func (s *Store) Tile(c hecs.Coord) (Tile, bool, error) {
	if err := s.check(c); err != nil {
		return Tile{}, false, err
	}
	t := s.tiles[c.A][c.R][c.C]
	if t == nil {
		return Tile{}, false, nil
	}
	return *t, true, nil
}

// Boundary returns the recorded edge states of the cell at c.
func (s *Store) Boundary(c hecs.Coord) (hecs.Boundary, error) {
	if err := s.check(c); err != nil {
		return 0, err
	}
	return s.edges[c.A][c.R][c.C], nil
}

// Traversable reports whether the shared edge between two adjacent cells is
// open.
func (s *Store) Traversable(from, to hecs.Coord) (bool, error) {
	if err := s.check(from); err != nil {
		return false, err
	}
	if err := s.check(to); err != nil {
		return false, err
	}
	d, ok := from.DirectionTo(to)
	if !ok {
		return false, fmt.Errorf("traverse %s -> %s: %w", from, to, hecs.ErrNotNeighbor)
	}
	return !s.edges[from.A][from.R][from.C].Blocked(d), nil
}

// Tiles returns copies of all placed tiles ordered by axis, row and column.
func (s *Store) Tiles() []Tile {
	if !s.ready {
		return nil
	}
	var out []Tile
	for a := 0; a < 2; a++ {
		for r := 0; r < s.halfRows; r++ {
			for c := 0; c < s.cols; c++ {
				if t := s.tiles[a][r][c]; t != nil {
					out = append(out, *t)
				}
			}
		}
	}
	return out
}
