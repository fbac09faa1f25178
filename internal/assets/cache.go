package assets

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/gravitas-games/hexgrid/internal/grid"
)

// Cached memoizes Load results of another AssetSource. Instantiate and
// Release pass through.
type Cached struct {
	inner   grid.AssetSource
	prefabs *ristretto.Cache[int, grid.Prefab]
}

// NewCached wraps inner with a prefab cache holding up to maxPrefabs
// entries.
func NewCached(inner grid.AssetSource, maxPrefabs int64) (*Cached, error) {
	if maxPrefabs <= 0 {
		maxPrefabs = 1024
	}
	cache, err := ristretto.NewCache[int, grid.Prefab](&ristretto.Config[int, grid.Prefab]{
		NumCounters:        maxPrefabs * 10,
		MaxCost:            maxPrefabs, // one unit per prefab
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, prefabs: cache}, nil
}

func (c *Cached) Load(assetID int) (grid.Prefab, error) {
	if p, ok := c.prefabs.Get(assetID); ok {
		return p, nil
	}
	p, err := c.inner.Load(assetID)
	if err != nil {
		return nil, err
	}
	c.prefabs.Set(assetID, p, 1)
	c.prefabs.Wait()
	return p, nil
}

func (c *Cached) Instantiate(prefab grid.Prefab, pose grid.Pose) (grid.Handle, error) {
	return c.inner.Instantiate(prefab, pose)
}

func (c *Cached) Release(h grid.Handle) { c.inner.Release(h) }

// Close stops the cache's background goroutines.
func (c *Cached) Close() { c.prefabs.Close() }
