package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Factory builds an unconnected adapter. A nil logger means discard.
type Factory func(logger *slog.Logger) Adapter

// factories holds every adapter type linked into the binary, keyed by the
// lower-case target type used in leapframe.yaml.
var factories = struct {
	sync.RWMutex
	byType map[string]Factory
}{byType: map[string]Factory{}}

// Register makes an adapter type available to NewAdapter and Open. Adapter
// packages call it from init; registering a type twice keeps the last factory.
func Register(typ string, factory Factory) {
	factories.Lock()
	defer factories.Unlock()
	factories.byType[strings.ToLower(typ)] = factory
}

// Get returns the factory registered for typ.
func Get(typ string) (Factory, bool) {
	factories.RLock()
	defer factories.RUnlock()
	factory, ok := factories.byType[strings.ToLower(typ)]
	return factory, ok
}

// IsRegistered reports whether typ has a factory.
func IsRegistered(typ string) bool {
	_, ok := Get(typ)
	return ok
}

// ListAdapters returns the registered adapter types in sorted order.
func ListAdapters() []string {
	factories.RLock()
	defer factories.RUnlock()
	types := make([]string, 0, len(factories.byType))
	for typ := range factories.byType {
		types = append(types, typ)
	}
	slices.Sort(types)
	return types
}

// NewAdapter builds the adapter for cfg.Type without connecting it.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, errors.New("adapter type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// Open builds the adapter for cfg.Type and connects it. The caller closes
// the returned adapter.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Adapter, error) {
	adp, err := NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := adp.Connect(ctx, cfg); err != nil {
		_ = adp.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
	}
	return adp, nil
}

// UnknownAdapterError reports a target type with no registered adapter.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	available := "none"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("unknown adapter type %q (available: %s); set a supported target type in leapframe.yaml",
		e.Type, available)
}
