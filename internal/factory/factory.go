// Package factory wires application components together.
package factory

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/numduel/internal/dependencies/clock"
	"github.com/mcoot/numduel/internal/dependencies/random"
	"github.com/mcoot/numduel/internal/services/game"
	"github.com/mcoot/numduel/internal/services/registry"
	"github.com/mcoot/numduel/internal/storage"
	"github.com/mcoot/numduel/internal/storage/memory"
	redisstorage "github.com/mcoot/numduel/internal/storage/redis"
	"github.com/mcoot/numduel/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry *registry.Controller
	Game     *game.Controller
	Sweeper  *registry.Sweeper

	// Transport
	Hub        *ws.Hub
	Dispatcher *ws.Dispatcher
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SweepInterval is how often stale rooms are swept (optional)
	SweepInterval time.Duration
	// MaxRoomAge is the age past which the sweeper evicts a room (optional)
	MaxRoomAge time.Duration
	// FinishGrace is how long finished rooms linger before deletion (optional)
	FinishGrace time.Duration
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	clk := clock.New()
	rnd := random.New()

	return newWithDependencies(store, clk, rnd, cfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *App {
	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = registry.DefaultSweepInterval
	}
	maxRoomAge := cfg.MaxRoomAge
	if maxRoomAge <= 0 {
		maxRoomAge = registry.DefaultMaxRoomAge
	}

	registryController := registry.NewController(store, clk, rnd, logger)
	gameController := game.NewController(store, registryController, clk, rnd, cfg.FinishGrace, logger)
	sweeper := registry.NewSweeper(registryController, sweepInterval, maxRoomAge, logger)

	hub := ws.NewHub(logger)
	dispatcher := ws.NewDispatcher(registryController, gameController, hub, logger)
	hub.SetHandler(dispatcher)

	return &App{
		Storage:    store,
		Clock:      clk,
		Random:     rnd,
		Registry:   registryController,
		Game:       gameController,
		Sweeper:    sweeper,
		Hub:        hub,
		Dispatcher: dispatcher,
	}
}
