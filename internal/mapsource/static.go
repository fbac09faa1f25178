// Package mapsource contains MapSource implementations backed by memory,
// YAML files, SQLite and Redis.
package mapsource

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/hexgrid/internal/grid"
	"github.com/gravitas-games/hexgrid/internal/hecs"
)

// Static is an in-memory map source. Every SetTiles call bumps the
// iteration.
type Static struct {
	mu        sync.RWMutex
	rows      int
	cols      int
	iteration int
	tiles     []grid.TileInfo
}

// NewStatic creates an empty rows x cols map at iteration 0.
func NewStatic(rows, cols int) *Static {
	return &Static{rows: rows, cols: cols}
}

// SetTiles replaces the tile list.
func (s *Static) SetTiles(tiles []grid.TileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tiles = append(make([]grid.TileInfo, 0, len(tiles)), tiles...)
	s.iteration++
}

func (s *Static) GetMapDimensions(ctx context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows, s.cols, nil
}

func (s *Static) GetTileList(ctx context.Context) ([]grid.TileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]grid.TileInfo, 0, len(s.tiles)), s.tiles...), nil
}

func (s *Static) GetMapIteration(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iteration, nil
}

func (s *Static) GetSnapshot(ctx context.Context) (int, []grid.TileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iteration, append(make([]grid.TileInfo, 0, len(s.tiles)), s.tiles...), nil
}

// MapFile is the YAML layout of a static map.
type MapFile struct {
	Rows  int        `yaml:"rows"`
	Cols  int        `yaml:"cols"`
	Tiles []FileTile `yaml:"tiles"`
}

// FileTile addresses a tile by flat row/column, as map editors do.
type FileTile struct {
	AssetID  int      `yaml:"asset_id"`
	Row      int      `yaml:"row"`
	Col      int      `yaml:"col"`
	Rotation int      `yaml:"rotation"`
	Blocked  []string `yaml:"blocked"` // Direction names, e.g. "right", "up_left"
}

// LoadStaticFile reads a YAML map file into a Static source.
func LoadStaticFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}
	return ParseStatic(data)
}

// ParseStatic decodes a YAML map document.
func ParseStatic(data []byte) (*Static, error) {
	var mf MapFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse map file: %w", err)
	}

	tiles := make([]grid.TileInfo, 0, len(mf.Tiles))
	for i, ft := range mf.Tiles {
		var b hecs.Boundary
		for _, name := range ft.Blocked {
			d, err := parseDirection(name)
			if err != nil {
				return nil, fmt.Errorf("tile %d: %w", i, err)
			}
			b.Set(d, hecs.Blocked)
		}
		tiles = append(tiles, grid.TileInfo{
			AssetID:         ft.AssetID,
			Cell:            hecs.FromOffset(ft.Row, ft.Col),
			RotationDegrees: ft.Rotation,
			Boundary:        b,
		})
	}

	s := NewStatic(mf.Rows, mf.Cols)
	s.SetTiles(tiles)
	return s, nil
}

func parseDirection(name string) (hecs.Direction, error) {
	for d := hecs.Direction(0); d < hecs.NumDirections; d++ {
		if d.String() == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", name)
}
