package mapsource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-redis/redis/v8"

	"github.com/gravitas-games/hexgrid/internal/grid"
	"github.com/gravitas-games/hexgrid/internal/hecs"
	"github.com/gravitas-games/hexgrid/internal/mapsync"
)

var (
	_ mapsync.AtomicMapSource = (*Static)(nil)
	_ mapsync.AtomicMapSource = (*SQLite)(nil)
	_ mapsync.AtomicMapSource = (*Redis)(nil)
)

const sampleMap = `
rows: 4
cols: 4
tiles:
  - asset_id: 2
    row: 0
    col: 0
    blocked: [right]
  - asset_id: 5
    row: 3
    col: 2
    rotation: 120
    blocked: [up_left, left]
`

func TestParseStatic(t *testing.T) {
	s, err := ParseStatic([]byte(sampleMap))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	rows, cols, _ := s.GetMapDimensions(ctx)
	if rows != 4 || cols != 4 {
		t.Fatalf("expected 4x4, got %dx%d", rows, cols)
	}
	iteration, _ := s.GetMapIteration(ctx)
	if iteration != 1 {
		t.Fatalf("expected iteration 1, got %d", iteration)
	}
	tiles, _ := s.GetTileList(ctx)
	if len(tiles) != 2 {
		t.Fatalf("expected 2 tiles, got %d", len(tiles))
	}
	if tiles[1].Cell != (hecs.Coord{A: 1, R: 1, C: 2}) {
		t.Fatalf("expected (1,1,2), got %s", tiles[1].Cell)
	}
	if tiles[1].Boundary != hecs.BoundaryFrom(hecs.UpLeft, hecs.Left) {
		t.Fatalf("unexpected boundary %s", tiles[1].Boundary)
	}
}

func TestParseStaticRejectsUnknownDirection(t *testing.T) {
	_, err := ParseStatic([]byte("rows: 2\ncols: 2\ntiles:\n  - row: 0\n    col: 0\n    blocked: [north]\n"))
	if err == nil {
		t.Fatalf("expected error for unknown direction, got nil")
	}
}

func TestStaticSetTilesBumpsIteration(t *testing.T) {
	s := NewStatic(4, 4)
	ctx := context.Background()
	if n, _ := s.GetMapIteration(ctx); n != 0 {
		t.Fatalf("expected iteration 0, got %d", n)
	}
	s.SetTiles(nil)
	n, tiles, _ := s.GetSnapshot(ctx)
	if n != 1 || tiles == nil || len(tiles) != 0 {
		t.Fatalf("expected empty non-nil list at iteration 1, got %d %v", n, tiles)
	}
}

func TestSQLiteSource(t *testing.T) {
	ctx := context.Background()
	src, err := OpenSQLite(filepath.Join(t.TempDir(), "map.sqlite"))
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	defer src.Close()

	if _, _, err := src.GetMapDimensions(ctx); !errors.Is(err, ErrNoMap) {
		t.Fatalf("expected ErrNoMap, got %v", err)
	}
	if _, err := src.Publish(ctx, nil); !errors.Is(err, ErrNoMap) {
		t.Fatalf("expected ErrNoMap on publish without dimensions, got %v", err)
	}
	if err := src.SetDimensions(ctx, 4, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tiles := []grid.TileInfo{
		{AssetID: 1, Cell: hecs.Coord{A: 0, R: 0, C: 0}, Boundary: hecs.BoundaryFrom(hecs.Right)},
		{AssetID: 4, Cell: hecs.Coord{A: 1, R: 1, C: 3}, RotationDegrees: 60},
	}
	iteration, err := src.Publish(ctx, tiles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iteration != 1 {
		t.Fatalf("expected iteration 1, got %d", iteration)
	}

	got, gotTiles, err := src.GetSnapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 || len(gotTiles) != 2 || gotTiles[0] != tiles[0] || gotTiles[1] != tiles[1] {
		t.Fatalf("unexpected snapshot %d %+v", got, gotTiles)
	}

	store := grid.NewStore(nil, 1)
	engine := mapsync.New(src, store)
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Failed to start engine: %v", err)
	}
	if _, err := engine.Poll(ctx); err != nil {
		t.Fatalf("unexpected poll error: %v", err)
	}
	b, _ := store.Boundary(hecs.Coord{A: 0, R: 0, C: 1})
	if !b.Blocked(hecs.Left) {
		t.Fatalf("expected mirrored edge from sqlite map, got %s", b)
	}
}

func TestDecodeTilesNull(t *testing.T) {
	tiles, err := decodeTiles([]byte("null"))
	if err != nil || tiles != nil {
		t.Fatalf("expected absent list, got %v %v", tiles, err)
	}
	tiles, err = decodeTiles([]byte("[]"))
	if err != nil || tiles == nil {
		t.Fatalf("expected empty list, got %v %v", tiles, err)
	}
}

func TestRedisSource(t *testing.T) {
	addr := os.Getenv("HEXGRID_TEST_REDIS")
	if addr == "" {
		t.Skip("HEXGRID_TEST_REDIS not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	prefix := "hexgrid_test_" + t.Name()
	defer client.Del(ctx, prefix+":dims", prefix+":iteration", prefix+":tiles")

	src := NewRedis(client, prefix)
	if err := src.SetDimensions(ctx, 4, 6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tiles, err := src.GetTileList(ctx); err != nil || tiles != nil {
		t.Fatalf("expected absent tile list before publish, got %v %v", tiles, err)
	}

	tiles := []grid.TileInfo{{AssetID: 3, Cell: hecs.Coord{A: 1, R: 0, C: 5}, Boundary: hecs.BoundaryFrom(hecs.Left)}}
	iteration, err := src.Publish(ctx, tiles)
	if err != nil || iteration != 1 {
		t.Fatalf("expected iteration 1, got %d %v", iteration, err)
	}
	rows, cols, err := src.GetMapDimensions(ctx)
	if err != nil || rows != 4 || cols != 6 {
		t.Fatalf("expected 4x6, got %dx%d %v", rows, cols, err)
	}
	got, gotTiles, err := src.GetSnapshot(ctx)
	if err != nil || got != 1 || len(gotTiles) != 1 || gotTiles[0] != tiles[0] {
		t.Fatalf("unexpected snapshot %d %+v %v", got, gotTiles, err)
	}
}

func TestDemoMapLoads(t *testing.T) {
	s, err := LoadStaticFile("../../maps/demo.yaml")
	if err != nil {
		t.Fatalf("Failed to load demo map: %v", err)
	}
	tiles, err := s.GetTileList(context.Background())
	if err != nil {
		t.Fatalf("GetTileList failed: %v", err)
	}
	if len(tiles) != 9 {
		t.Errorf("Expected 9 tiles, got %d", len(tiles))
	}
}
