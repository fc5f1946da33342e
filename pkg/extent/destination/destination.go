// Package destination models the set of configured persistence
// destinations: named local directories, each with a concurrency budget,
// that the writer pool spreads appends across (spec §4.A).
package destination

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/azstorecore/core/pkg/extent"
)

// Config describes one configured persistence destination.
type Config struct {
	ID             string
	RootPath       string
	MaxConcurrency int
	DirMode        os.FileMode
}

// Destination is a resolved, on-disk-validated persistence root plus its
// concurrency budget.
type Destination struct {
	ID             string
	RootPath       string
	MaxConcurrency int
}

// Set is a pure, mostly-immutable lookup table of configured
// destinations. Destinations are named, not positional, so records that
// name a destination stay valid across config reordering; round-robin
// follows insertion (config) order. Additions are permitted at runtime
// (Add); removal of a destination with live
// extents is never exposed because the core has no such operation.
type Set struct {
	mu     sync.RWMutex
	byID   map[string]*Destination
	order  []string // insertion order, used for round-robin
	cursor int
}

// NewSet builds a destination set from configuration, creating each root
// directory if requested, then validating it on disk in
// create-then-stat-then-require-dir order.
func NewSet(configs []Config, createDirs bool) (*Set, error) {
	s := &Set{byID: make(map[string]*Destination, len(configs))}

	for _, cfg := range configs {
		if cfg.ID == "" {
			return nil, fmt.Errorf("destination: empty id for root %q", cfg.RootPath)
		}
		if cfg.RootPath == "" {
			return nil, fmt.Errorf("destination %q: empty root path", cfg.ID)
		}
		if cfg.MaxConcurrency <= 0 {
			cfg.MaxConcurrency = 1
		}
		dirMode := cfg.DirMode
		if dirMode == 0 {
			dirMode = 0755
		}

		if createDirs {
			if err := os.MkdirAll(cfg.RootPath, dirMode); err != nil {
				return nil, fmt.Errorf("destination %q: %w", cfg.ID, err)
			}
		}
		info, err := os.Stat(cfg.RootPath)
		if err != nil {
			return nil, fmt.Errorf("destination %q: %w", cfg.ID, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("destination %q: root path %q is not a directory", cfg.ID, cfg.RootPath)
		}

		if err := s.add(cfg.ID, cfg.RootPath, cfg.MaxConcurrency); err != nil {
			return nil, err
		}
	}

	if len(s.order) == 0 {
		return nil, fmt.Errorf("destination: at least one destination must be configured")
	}

	return s, nil
}

func (s *Set) add(id, rootPath string, maxConcurrency int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; exists {
		return fmt.Errorf("destination: duplicate id %q", id)
	}
	s.byID[id] = &Destination{ID: id, RootPath: rootPath, MaxConcurrency: maxConcurrency}
	s.order = append(s.order, id)
	return nil
}

// Add registers a new destination at runtime. Adding destinations after
// startup is permitted; removing one is not exposed by this type.
func (s *Set) Add(cfg Config) error {
	dirMode := cfg.DirMode
	if dirMode == 0 {
		dirMode = 0755
	}
	if err := os.MkdirAll(cfg.RootPath, dirMode); err != nil {
		return fmt.Errorf("destination %q: %w", cfg.ID, err)
	}
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return s.add(cfg.ID, cfg.RootPath, maxConcurrency)
}

// Get returns the destination for id, or UnknownDestination.
func (s *Set) Get(id string) (*Destination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.byID[id]
	if !ok {
		return nil, extent.NewUnknownDestinationError(id)
	}
	return d, nil
}

// Resolve computes the absolute path for a (destinationId, relativePath)
// pair, failing with UnknownDestination if the id is not configured.
func (s *Set) Resolve(destinationID, relativePath string) (string, error) {
	d, err := s.Get(destinationID)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.RootPath, relativePath), nil
}

// Next returns the next destination in round-robin order. Used by the
// writer pool when no destination hint is supplied.
func (s *Set) Next() *Destination {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.order[s.cursor%len(s.order)]
	s.cursor++
	return s.byID[id]
}

// IDs returns the configured destination ids in stable order.
func (s *Set) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}
