package grid

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gravitas-games/hexgrid/internal/hecs"
)

type fakeAssets struct {
	next     int
	live     map[int]bool
	poses    []Pose
	failLoad map[int]bool
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{live: map[int]bool{}, failLoad: map[int]bool{}}
}

func (f *fakeAssets) Load(assetID int) (Prefab, error) {
	if f.failLoad[assetID] {
		return nil, fmt.Errorf("no asset %d", assetID)
	}
	return assetID, nil
}

func (f *fakeAssets) Instantiate(prefab Prefab, pose Pose) (Handle, error) {
	f.next++
	f.live[f.next] = true
	f.poses = append(f.poses, pose)
	return f.next, nil
}

func (f *fakeAssets) Release(h Handle) {
	delete(f.live, h.(int))
}

func newTestStore(t *testing.T, rows, cols int) (*Store, *fakeAssets) {
	t.Helper()
	assets := newFakeAssets()
	s := NewStore(assets, 1)
	if err := s.Initialize(rows, cols); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	return s, assets
}

func assertSymmetric(t *testing.T, s *Store) {
	t.Helper()
	rows, cols := s.Dimensions()
	for a := 0; a < 2; a++ {
		for r := 0; r < rows/2; r++ {
			for c := 0; c < cols; c++ {
				x := hecs.Coord{A: a, R: r, C: c}
				bx, _ := s.Boundary(x)
				for d, n := range x.Neighbors() {
					if !s.InBounds(n) {
						continue
					}
					bn, _ := s.Boundary(n)
					dir := hecs.Direction(d)
					if bx.Edge(dir) != bn.Edge(dir.Opposite()) {
						t.Fatalf("asymmetric edge %s -[%s]-> %s: %s vs %s", x, dir, n, bx.Edge(dir), bn.Edge(dir.Opposite()))
					}
				}
			}
		}
	}
}

func TestApplyBeforeInitialize(t *testing.T) {
	s := NewStore(nil, 1)
	err := s.ApplyTileUpdate(TileInfo{Cell: hecs.Origin})
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestInitializeRejectsBadDimensions(t *testing.T) {
	s := NewStore(nil, 1)
	if err := s.Initialize(1, 4); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("expected ErrInvalidDimensions, got %v", err)
	}
	if err := s.Initialize(4, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Initialize(4, 4); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestInitializeStartsOpenAndEmpty(t *testing.T) {
	s, _ := newTestStore(t, 4, 4)
	if n := len(s.Tiles()); n != 0 {
		t.Fatalf("expected no tiles, got %d", n)
	}
	for a := 0; a < 2; a++ {
		for r := 0; r < 2; r++ {
			for c := 0; c < 4; c++ {
				b, err := s.Boundary(hecs.Coord{A: a, R: r, C: c})
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if b.Mask() != 0 {
					t.Fatalf("expected open boundary, got %s", b)
				}
			}
		}
	}
}

func TestOutOfBounds(t *testing.T) {
	s, _ := newTestStore(t, 4, 4)
	for _, c := range []hecs.Coord{{A: 2}, {R: 2}, {C: 4}, {R: -1}, {C: -1}} {
		if err := s.ApplyTileUpdate(TileInfo{Cell: c}); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("expected ErrOutOfBounds for %s, got %v", c, err)
		}
	}
}

func TestEastEdgeMirrored(t *testing.T) {
	s, _ := newTestStore(t, 4, 4)
	origin := hecs.Coord{A: 0, R: 0, C: 0}

	err := s.ApplyTileUpdate(TileInfo{AssetID: 7, Cell: origin, Boundary: hecs.BoundaryFrom(hecs.Right)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	east := origin.Neighbor(hecs.Right)
	b, _ := s.Boundary(east)
	if !b.Blocked(hecs.Left) {
		t.Fatalf("expected west edge of %s blocked, got %s", east, b)
	}
	ok, err := s.Traversable(east, origin)
	if err != nil || ok {
		t.Fatalf("expected %s -> %s blocked, got ok=%v err=%v", east, origin, ok, err)
	}
	assertSymmetric(t, s)
}

func TestNeighborBlockIsMirroredOntoUpdatedCell(t *testing.T) {
	s, _ := newTestStore(t, 4, 4)
	a := hecs.Coord{A: 0, R: 1, C: 1}
	b := a.Neighbor(hecs.DownRight)
	if !s.InBounds(b) {
		t.Fatalf("test setup: %s out of bounds", b)
	}

	// b blocks the edge toward a, then a is updated with an open boundary.
	if err := s.ApplyTileUpdate(TileInfo{Cell: b, Boundary: hecs.BoundaryFrom(hecs.UpLeft)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.ApplyTileUpdate(TileInfo{Cell: a}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ba, _ := s.Boundary(a)
	if !ba.Blocked(hecs.DownRight) {
		t.Fatalf("expected %s down_right blocked, got %s", a, ba)
	}
	assertSymmetric(t, s)
}

func TestSymmetryAfterEveryUpdate(t *testing.T) {
	s, _ := newTestStore(t, 6, 5)
	updates := 0
	for a := 0; a < 2; a++ {
		for r := 2; r >= 0; r-- {
			for c := 0; c < 5; c++ {
				// Blocks a varying direction per cell, in non-grid order.
				d := hecs.Direction((a + r*3 + c) % hecs.NumDirections)
				info := TileInfo{AssetID: updates, Cell: hecs.Coord{A: a, R: r, C: c}, Boundary: hecs.BoundaryFrom(d)}
				if err := s.ApplyTileUpdate(info); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				updates++
				assertSymmetric(t, s)
			}
		}
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	s, assets := newTestStore(t, 4, 4)
	info := TileInfo{AssetID: 3, Cell: hecs.Coord{A: 1, R: 0, C: 2}, RotationDegrees: 120, Boundary: hecs.BoundaryFrom(hecs.Left, hecs.UpRight)}

	if err := s.ApplyTileUpdate(info); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snapshot := edgeSnapshot(s)
	first, _, _ := s.Tile(info.Cell)

	if err := s.ApplyTileUpdate(info); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := edgeSnapshot(s); got != snapshot {
		t.Fatalf("expected identical edge map after re-apply")
	}
	second, _, _ := s.Tile(info.Cell)
	if second.AssetID != first.AssetID || second.RotationDegrees != first.RotationDegrees || second.Cell != first.Cell {
		t.Fatalf("expected identical tile, got %+v vs %+v", second, first)
	}
	if len(assets.live) != 1 {
		t.Fatalf("expected previous model released, got %d live models", len(assets.live))
	}
}

func edgeSnapshot(s *Store) string {
	rows, cols := s.Dimensions()
	out := ""
	for a := 0; a < 2; a++ {
		for r := 0; r < rows/2; r++ {
			for c := 0; c < cols; c++ {
				b, _ := s.Boundary(hecs.Coord{A: a, R: r, C: c})
				out += fmt.Sprintf("%02x", b.Mask())
			}
		}
	}
	return out
}

func TestRotation(t *testing.T) {
	s, assets := newTestStore(t, 4, 4)
	if err := s.ApplyTileUpdate(TileInfo{Cell: hecs.Origin, RotationDegrees: 45}); !errors.Is(err, ErrInvalidRotation) {
		t.Fatalf("expected ErrInvalidRotation, got %v", err)
	}
	if err := s.ApplyTileUpdate(TileInfo{Cell: hecs.Origin, RotationDegrees: -60}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tile, ok, _ := s.Tile(hecs.Origin)
	if !ok || tile.RotationDegrees != 300 {
		t.Fatalf("expected rotation 300, got %+v", tile)
	}
	if pose := assets.poses[len(assets.poses)-1]; pose.HeadingDegrees != 300 {
		t.Fatalf("expected pose heading 300, got %f", pose.HeadingDegrees)
	}
}

func TestAssetFailureStillAppliesGeometry(t *testing.T) {
	s, assets := newTestStore(t, 4, 4)
	assets.failLoad[9] = true

	err := s.ApplyTileUpdate(TileInfo{AssetID: 9, Cell: hecs.Origin, Boundary: hecs.BoundaryFrom(hecs.Right)})
	if !errors.Is(err, ErrAssetLoadFailure) {
		t.Fatalf("expected ErrAssetLoadFailure, got %v", err)
	}
	tile, ok, _ := s.Tile(hecs.Origin)
	if !ok || tile.AssetID != 9 || tile.Model != nil {
		t.Fatalf("expected tile placed without model, got %+v", tile)
	}
	b, _ := s.Boundary(hecs.Origin.Neighbor(hecs.Right))
	if !b.Blocked(hecs.Left) {
		t.Fatalf("expected mirrored edge despite asset failure, got %s", b)
	}
}

func TestFailedReplacementReleasesOldModel(t *testing.T) {
	s, assets := newTestStore(t, 4, 4)
	if err := s.ApplyTileUpdate(TileInfo{AssetID: 1, Cell: hecs.Origin}); err != nil {
		t.Fatalf("initial placement failed: %v", err)
	}
	assets.failLoad[2] = true

	err := s.ApplyTileUpdate(TileInfo{AssetID: 2, Cell: hecs.Origin})
	if !errors.Is(err, ErrAssetLoadFailure) {
		t.Fatalf("expected ErrAssetLoadFailure, got %v", err)
	}
	tile, ok, _ := s.Tile(hecs.Origin)
	if !ok || tile.AssetID != 2 || tile.Model != nil {
		t.Fatalf("expected asset 2 without model, got %+v", tile)
	}
	if len(assets.live) != 0 {
		t.Fatalf("expected old model released, live handles %v", assets.live)
	}
}
