package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gravitas-games/hexgrid/internal/assets"
	"github.com/gravitas-games/hexgrid/internal/config"
	"github.com/gravitas-games/hexgrid/internal/grid"
	"github.com/gravitas-games/hexgrid/internal/journal"
	"github.com/gravitas-games/hexgrid/internal/mapsource"
	"github.com/gravitas-games/hexgrid/internal/mapsync"
	"github.com/gravitas-games/hexgrid/internal/server"
)

func main() {
	log.Println("Starting hex grid server...")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/engine.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Configuration loaded from %s", configPath)
	log.Printf("Server will run on %s:%d", cfg.Server.Host, cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Printf("Connected to Redis at %s", cfg.Redis.Address)
	}

	source, closeSource, err := openMapSource(cfg, redisClient)
	if err != nil {
		log.Fatalf("Failed to open map source: %v", err)
	}
	defer closeSource()

	// Asset pipeline
	registry := assets.NewRegistry(cfg.Assets.Prefabs)
	cached, err := assets.NewCached(registry, cfg.Assets.CacheSize)
	if err != nil {
		log.Fatalf("Failed to create prefab cache: %v", err)
	}
	defer cached.Close()

	store := grid.NewStore(cached, cfg.Grid.CellScale)
	engine := mapsync.New(source, store)
	if err := engine.Start(ctx); err != nil {
		log.Fatalf("Failed to initialize grid: %v", err)
	}

	opts := server.SessionOptions{FadeDurationS: cfg.Actions.FadeDurationS}
	if cfg.Journal.Dir != "" {
		w := journal.NewWriter(cfg.Journal.Dir, "actions")
		defer func() {
			if err := w.Close(); err != nil {
				log.Printf("Failed to close journal: %v", err)
			}
		}()
		opts.Journal = w
		log.Printf("Journaling actions to %s", cfg.Journal.Dir)
	}

	session := server.NewSession("main", engine, store, opts)

	srv, err := server.New(cfg, session, redisClient)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		session.Run(ctx, cfg.Sync.PollInterval(), cfg.Server.TickRate)
	}()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server listening on %s", addr)
		if err := srv.Start(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Printf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
	}

	// Graceful shutdown
	cancel()
	<-sessionDone
	if err := srv.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// openMapSource builds the configured map source. The returned close
// function is always safe to call.
func openMapSource(cfg *config.Config, redisClient *redis.Client) (mapsync.MapSource, func(), error) {
	noop := func() {}

	switch cfg.MapSource.Kind {
	case config.SourceStatic:
		src, err := mapsource.LoadStaticFile(cfg.MapSource.File)
		if err != nil {
			return nil, noop, err
		}
		log.Printf("Serving static map from %s", cfg.MapSource.File)
		return src, noop, nil

	case config.SourceSQLite:
		src, err := mapsource.OpenSQLite(cfg.MapSource.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		log.Printf("Serving map from SQLite database %s", cfg.MapSource.SQLitePath)
		return src, func() {
			if err := src.Close(); err != nil {
				log.Printf("Failed to close map database: %v", err)
			}
		}, nil

	case config.SourceRedis:
		if redisClient == nil {
			return nil, noop, fmt.Errorf("redis map source requires a redis address")
		}
		log.Printf("Serving map from Redis prefix %s", cfg.Redis.MapPrefix)
		return mapsource.NewRedis(redisClient, cfg.Redis.MapPrefix), noop, nil
	}

	return nil, noop, fmt.Errorf("unknown map source kind %q", cfg.MapSource.Kind)
}
