package mapsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/gravitas-games/hexgrid/internal/grid"
)

// Redis is a map source stored under three keys:
//
//	<prefix>:dims       hash {rows, cols}
//	<prefix>:iteration  integer counter
//	<prefix>:tiles      JSON array of grid.TileInfo
//
// A missing tiles key is reported as an absent tile list.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "hexmap"
	}
	return &Redis{client: client, prefix: prefix}
}

func (s *Redis) key(name string) string { return s.prefix + ":" + name }

// SetDimensions declares the map size.
func (s *Redis) SetDimensions(ctx context.Context, rows, cols int) error {
	return s.client.HSet(ctx, s.key("dims"), "rows", rows, "cols", cols).Err()
}

// Publish stores a new tile list and increments the iteration atomically.
func (s *Redis) Publish(ctx context.Context, tiles []grid.TileInfo) (int, error) {
	if tiles == nil {
		tiles = []grid.TileInfo{}
	}
	data, err := json.Marshal(tiles)
	if err != nil {
		return 0, fmt.Errorf("failed to encode tiles: %w", err)
	}

	var incr *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key("tiles"), data, 0)
		incr = pipe.Incr(ctx, s.key("iteration"))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

func (s *Redis) GetMapDimensions(ctx context.Context) (int, int, error) {
	vals, err := s.client.HGetAll(ctx, s.key("dims")).Result()
	if err != nil {
		return 0, 0, err
	}
	if len(vals) == 0 {
		return 0, 0, ErrNoMap
	}
	rows, err := strconv.Atoi(vals["rows"])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid rows: %w", err)
	}
	cols, err := strconv.Atoi(vals["cols"])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cols: %w", err)
	}
	return rows, cols, nil
}

func (s *Redis) GetMapIteration(ctx context.Context) (int, error) {
	n, err := s.client.Get(ctx, s.key("iteration")).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (s *Redis) GetTileList(ctx context.Context) ([]grid.TileInfo, error) {
	data, err := s.client.Get(ctx, s.key("tiles")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeTiles(data)
}

// GetSnapshot reads the iteration and tile list in one MULTI/EXEC block.
func (s *Redis) GetSnapshot(ctx context.Context) (int, []grid.TileInfo, error) {
	var iterCmd, tilesCmd *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		iterCmd = pipe.Get(ctx, s.key("iteration"))
		tilesCmd = pipe.Get(ctx, s.key("tiles"))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, nil, err
	}

	iteration, err := iterCmd.Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, nil, err
	}
	data, err := tilesCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return iteration, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	tiles, err := decodeTiles(data)
	if err != nil {
		return 0, nil, err
	}
	return iteration, tiles, nil
}

func decodeTiles(data []byte) ([]grid.TileInfo, error) {
	tiles := []grid.TileInfo{}
	if err := json.Unmarshal(data, &tiles); err != nil {
		return nil, fmt.Errorf("failed to decode tiles: %w", err)
	}
	if tiles == nil {
		return nil, nil
	}
	return tiles, nil
}
