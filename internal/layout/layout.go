// Package layout places snapshot nodes in the plane.
//
// Algorithms are registered by name in a Registry that the application
// builds once at startup and hands to its rendering engines.
package layout

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tjfontaine/dagview/internal/core/domain"
)

// Point is a node position. Y grows downwards.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Positions maps node ids to their placement.
type Positions map[string]Point

// Bounds returns the bounding box of all positions.
func (p Positions) Bounds() (lo, hi Point) {
	first := true
	for _, pt := range p {
		if first {
			lo, hi = pt, pt
			first = false
			continue
		}
		if pt.X < lo.X {
			lo.X = pt.X
		}
		if pt.Y < lo.Y {
			lo.Y = pt.Y
		}
		if pt.X > hi.X {
			hi.X = pt.X
		}
		if pt.Y > hi.Y {
			hi.Y = pt.Y
		}
	}
	return lo, hi
}

// Algorithm computes positions for every node of a snapshot.
type Algorithm interface {
	Place(snap domain.Snapshot) Positions
}

// AlgorithmFunc adapts a function to Algorithm.
type AlgorithmFunc func(snap domain.Snapshot) Positions

// Place calls f.
func (f AlgorithmFunc) Place(snap domain.Snapshot) Positions {
	return f(snap)
}

// Registry holds named layout algorithms.
type Registry struct {
	mu    sync.RWMutex
	algos map[string]Algorithm
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{algos: make(map[string]Algorithm)}
}

// Register adds an algorithm under name.
func (r *Registry) Register(name string, a Algorithm) error {
	if name == "" {
		return fmt.Errorf("layout name cannot be empty")
	}
	if a == nil {
		return fmt.Errorf("layout %q: algorithm cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.algos[name]; exists {
		return fmt.Errorf("layout %q already registered", name)
	}
	r.algos[name] = a
	return nil
}

// Lookup returns the algorithm registered under name. Unknown names yield
// an error wrapping domain.ErrUnknownLayout.
func (r *Registry) Lookup(name string) (Algorithm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.algos[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownLayout, name)
	}
	return a, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.algos))
	for name := range r.algos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
