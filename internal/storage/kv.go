// Package storage provides the durable key-value store behind the controller.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/dxshell-go/internal/storage/memory"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
)

// Common errors
var (
	ErrClosed        = errors.New("kv store closed")
	ErrUnknownEngine = errors.New("unknown storage engine")
)

// Store is a durable string key-value store.
//
// Get reports absence with ok=false and a nil error; errors are reserved
// for real storage failures.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Engine names accepted by KVConfig.Engine.
const (
	EngineBadger = "badger"
	EngineSQLite = "sqlite"
	EngineMemory = "memory"
)

// KVConfig configures a store.
type KVConfig struct {
	// Engine specifies the engine type ("badger", "sqlite", "memory").
	// Default: "badger"
	Engine string

	// Dir is the storage directory (unused by the memory engine).
	Dir string

	// EncryptionKey seals stored values when non-empty.
	EncryptionKey string

	// Badger-specific configuration
	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value-log GC runs.
	// Default: 30m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// SyncWrites fsyncs after each write so a returned Set is durable.
	// Default: true
	SyncWrites bool
}

// DefaultKVConfig returns the default store configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Engine: EngineBadger,
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
// The values stored are tiny, so the memory budget is kept small.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:  "30m",
		GCThreshold: 0.5,
		SyncWrites:  true,
	}
}

// Open opens the engine named by cfg.Engine and wraps it in a SealedStore
// when an encryption key is configured.
func Open(cfg KVConfig, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.Default()
	}

	var (
		store Store
		err   error
	)
	switch strings.ToLower(cfg.Engine) {
	case "", EngineBadger:
		store, err = NewBadgerStore(cfg, log)
	case EngineSQLite:
		store, err = NewSQLiteStore(context.Background(), cfg.Dir)
	case EngineMemory:
		store = memory.New()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}
	if err != nil {
		return nil, err
	}

	if cfg.EncryptionKey == "" {
		return store, nil
	}

	sealed, err := NewSealedStore(store, []byte(cfg.EncryptionKey))
	if err != nil {
		store.Close()
		return nil, err
	}
	return sealed, nil
}
