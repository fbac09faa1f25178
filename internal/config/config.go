package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Map source kinds
const (
	SourceStatic = "static"
	SourceSQLite = "sqlite"
	SourceRedis  = "redis"
)

// Config holds all engine configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	MapSource MapSourceConfig `yaml:"map_source"`
	Sync      SyncConfig      `yaml:"sync"`
	Grid      GridConfig      `yaml:"grid"`
	Actions   ActionsConfig   `yaml:"actions"`
	Assets    AssetsConfig    `yaml:"assets"`
	Journal   JournalConfig   `yaml:"journal"`
}

// ServerConfig holds observer server settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TickRate int    `yaml:"tick_rate"` // Hz
}

// JWTConfig holds observer authentication settings.
// Authentication is disabled when PublicKeyURL is empty.
type JWTConfig struct {
	Issuer              string `yaml:"issuer"`
	PublicKeyURL        string `yaml:"public_key_url"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	MapPrefix       string `yaml:"map_prefix"`
	BlacklistPrefix string `yaml:"blacklist_prefix"`
}

// MapSourceConfig selects where map snapshots come from
type MapSourceConfig struct {
	Kind       string `yaml:"kind"`        // static, sqlite or redis
	File       string `yaml:"file"`        // YAML map for the static source
	SQLitePath string `yaml:"sqlite_path"` // Database for the sqlite source
}

// SyncConfig holds map polling settings
type SyncConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

// PollInterval returns the poll period as a duration
func (s SyncConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// GridConfig holds world-space layout settings
type GridConfig struct {
	CellScale float64 `yaml:"cell_scale"` // Center-to-center distance
}

// ActionsConfig holds animation defaults
type ActionsConfig struct {
	FadeDurationS float64 `yaml:"fade_duration_s"`
}

// AssetsConfig maps asset ids to prefab names
type AssetsConfig struct {
	CacheSize int64          `yaml:"cache_size"`
	Prefabs   map[int]string `yaml:"prefabs"`
}

// JournalConfig holds action journal settings. Empty Dir disables it.
type JournalConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and fills defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if not provided
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.TickRate == 0 {
		cfg.Server.TickRate = 30
	}
	if cfg.JWT.PublicKeyRefreshHrs == 0 {
		cfg.JWT.PublicKeyRefreshHrs = 24
	}
	if cfg.Redis.MapPrefix == "" {
		cfg.Redis.MapPrefix = "hexmap"
	}
	if cfg.MapSource.Kind == "" {
		cfg.MapSource.Kind = SourceStatic
	}
	if cfg.Sync.PollIntervalMs == 0 {
		cfg.Sync.PollIntervalMs = 500
	}
	if cfg.Grid.CellScale == 0 {
		cfg.Grid.CellScale = 1
	}
	if cfg.Actions.FadeDurationS == 0 {
		cfg.Actions.FadeDurationS = 0.5
	}
	if cfg.Assets.CacheSize == 0 {
		cfg.Assets.CacheSize = 1024
	}

	if cfg.Server.TickRate < 0 || cfg.Server.TickRate > 1000 {
		return nil, fmt.Errorf("server.tick_rate must be between 1 and 1000, got %d", cfg.Server.TickRate)
	}
	if cfg.Sync.PollIntervalMs < 0 {
		return nil, fmt.Errorf("sync.poll_interval_ms must be positive, got %d", cfg.Sync.PollIntervalMs)
	}

	switch cfg.MapSource.Kind {
	case SourceStatic:
		if cfg.MapSource.File == "" {
			return nil, fmt.Errorf("map_source.file is required for the static source")
		}
	case SourceSQLite:
		if cfg.MapSource.SQLitePath == "" {
			return nil, fmt.Errorf("map_source.sqlite_path is required for the sqlite source")
		}
	case SourceRedis:
		if cfg.Redis.Address == "" {
			return nil, fmt.Errorf("redis.address is required for the redis source")
		}
	default:
		return nil, fmt.Errorf("unknown map source kind %q", cfg.MapSource.Kind)
	}

	return &cfg, nil
}
