package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/studyroom/internal/dependencies/clock"
	"github.com/mcoot/studyroom/internal/dependencies/random"
	"github.com/mcoot/studyroom/internal/gateway"
	"github.com/mcoot/studyroom/internal/services/identity"
	"github.com/mcoot/studyroom/internal/services/room"
	"github.com/mcoot/studyroom/internal/services/timer"
	"github.com/mcoot/studyroom/internal/storage"
	"github.com/mcoot/studyroom/internal/storage/memory"
	redisstorage "github.com/mcoot/studyroom/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

const resetTimeout = 5 * time.Second

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry *identity.Registry
	Rooms    *room.Controller
	Timers   *timer.Controller
	Gateway  *gateway.Gateway

	closer io.Closer
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
	// TickAuthority selects client- or server-driven timers
	TickAuthority timer.Authority
	// Gateway holds event loop settings; zero values use defaults
	Gateway gateway.Config
}

// New creates a new application with all dependencies wired.
// Stored state does not survive a restart: the backend is reset here.
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var (
		store  storage.Storage
		closer io.Closer
	)
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
		closer = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	ctx, cancel := context.WithTimeout(context.Background(), resetTimeout)
	defer cancel()
	if err := store.Reset(ctx); err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("reset storage: %w", err)
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	app := newWithDependencies(store, clk, rnd, cfg.TickAuthority, cfg.Gateway, logger)
	app.closer = closer
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	authority timer.Authority,
	gatewayCfg gateway.Config,
	logger *slog.Logger,
) *App {
	if gatewayCfg.TickInterval <= 0 {
		gatewayCfg.TickInterval = timer.DefaultTickInterval
	}

	// Create services
	registry := identity.NewRegistry(store, clk, rnd)
	rooms := room.NewController(store, clk, rnd, logger)
	timers := timer.NewController(store, registry, clk, authority, logger)
	gw := gateway.New(registry, rooms, timers, clk, rnd, logger, gatewayCfg)

	return &App{
		Storage:  store,
		Clock:    clk,
		Random:   rnd,
		Registry: registry,
		Rooms:    rooms,
		Timers:   timers,
		Gateway:  gw,
	}
}

// Close releases external connections held by the storage backend
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
