package game

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/decker502/sparkfx/pkg/config"
	"github.com/decker502/sparkfx/pkg/descriptor"
	"github.com/decker502/sparkfx/pkg/embedded"
	"github.com/decker502/sparkfx/pkg/library"
)

// ErrUnknownEffect is returned when no source knows an effect name.
var ErrUnknownEffect = errors.New("unknown effect")

var descriptorExts = []string{".yaml", ".yml", ".json", ".toml", ".lua"}

// ResourceManager is responsible for finding and caching effect descriptors.
//
// A name is looked up in this order, the first hit wins:
//   - descriptor files named <name>.<yaml|yml|json|toml|lua> in the asset directories
//   - the effect library, when one is configured
//   - the embedded presets, when enabled
//
// Parsed descriptors are cached by normalised name and shared read-only by
// every instance created from them. ResourceManager is safe for concurrent use.
//
// Usage:
//
//	rm := NewResourceManager(cfg.Assets, store, logger)
//	desc, err := rm.LoadDescriptor(ctx, "fountain")
type ResourceManager struct {
	presets bool
	dirs    []string
	store   library.Store // may be nil

	mu    sync.Mutex
	cache map[string]*descriptor.Descriptor // library.Key(name) -> descriptor

	log *zap.Logger
}

// NewResourceManager creates a manager with an empty cache. store may be nil.
func NewResourceManager(cfg config.AssetsConfig, store library.Store, logger *zap.Logger) *ResourceManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceManager{
		presets: cfg.Presets,
		dirs:    slices.Clone(cfg.Dirs),
		store:   store,
		cache:   make(map[string]*descriptor.Descriptor),
		log:     logger.Named("resources"),
	}
}

// LoadDescriptor returns the descriptor called name, loading and caching it
// on first use.
func (rm *ResourceManager) LoadDescriptor(ctx context.Context, name string) (*descriptor.Descriptor, error) {
	key, err := library.Key(name)
	if err != nil {
		return nil, err
	}

	rm.mu.Lock()
	d, ok := rm.cache[key]
	rm.mu.Unlock()
	if ok {
		return d, nil
	}

	d, source, err := rm.find(ctx, name)
	if err != nil {
		return nil, err
	}

	rm.mu.Lock()
	// 并发加载同一个名称时保留先写入的结果
	if cached, ok := rm.cache[key]; ok {
		d = cached
	} else {
		rm.cache[key] = d
	}
	rm.mu.Unlock()

	rm.log.Debug("descriptor loaded", zap.String("effect", name), zap.String("source", source))
	return d, nil
}

func (rm *ResourceManager) find(ctx context.Context, name string) (*descriptor.Descriptor, string, error) {
	if !strings.ContainsAny(name, `/\`) {
		for _, dir := range rm.dirs {
			for _, ext := range descriptorExts {
				p := filepath.Join(dir, name+ext)
				if _, err := os.Stat(p); err != nil {
					continue
				}
				d, err := descriptor.LoadFile(p)
				return d, p, err
			}
		}
	}

	if rm.store != nil {
		e, err := rm.store.Load(ctx, name)
		switch {
		case err == nil:
			d, err := e.Decode()
			return d, "library", err
		case errors.Is(err, library.ErrNotFound):
		default:
			return nil, "", fmt.Errorf("load %q from library: %w", name, err)
		}
	}

	if rm.presets {
		d, err := embedded.LoadPreset(name)
		if err == nil {
			return d, "preset", nil
		}
		if !errors.Is(err, embedded.ErrNoPreset) {
			return nil, "", err
		}
	}

	return nil, "", fmt.Errorf("%w: %q", ErrUnknownEffect, name)
}

// LoadFile parses a descriptor file and caches it under its effect name,
// replacing any cached descriptor of the same name.
func (rm *ResourceManager) LoadFile(path string) (*descriptor.Descriptor, error) {
	d, err := descriptor.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := rm.Add(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Add caches a descriptor built elsewhere. It is validated first.
func (rm *ResourceManager) Add(d *descriptor.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	key, err := library.Key(d.Name)
	if err != nil {
		return err
	}
	rm.mu.Lock()
	rm.cache[key] = d
	rm.mu.Unlock()
	return nil
}

// GetDescriptor returns a cached descriptor or nil.
func (rm *ResourceManager) GetDescriptor(name string) *descriptor.Descriptor {
	key, err := library.Key(name)
	if err != nil {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.cache[key]
}

// Invalidate drops a cached descriptor so the next load reads its source again.
// Running instances keep the descriptor they were created with.
func (rm *ResourceManager) Invalidate(name string) {
	key, err := library.Key(name)
	if err != nil {
		return
	}
	rm.mu.Lock()
	delete(rm.cache, key)
	rm.mu.Unlock()
}

// Names lists every effect name the manager can load, sorted and without
// duplicates (compared by normalised name).
func (rm *ResourceManager) Names(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		key, err := library.Key(name)
		if err != nil || seen[key] {
			return
		}
		seen[key] = true
		names = append(names, name)
	}

	for _, dir := range rm.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, err := descriptor.FormatOf(e.Name()); err != nil {
				continue
			}
			add(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		}
	}

	if rm.store != nil {
		entries, err := rm.store.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			add(e.Name)
		}
	}

	if rm.presets {
		for _, name := range embedded.PresetNames() {
			add(name)
		}
	}

	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return names, nil
}
