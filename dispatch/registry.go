// Package dispatch keeps the named implementations of the reduction kernel
// and picks one for the CPU the process runs on.
//
// Every entry honours the same contract as sumarray.Sum, including the
// fixed accumulator grouping, so switching entries never changes results.
package dispatch

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/cwbudde/algo-vecmath/cpu"
)

// ErrUnknownKernel is returned by Get for a name nobody registered.
var ErrUnknownKernel = errors.New("unknown kernel")

// SumFn reduces x to its sum.
type SumFn func(x []float64) float64

// Entry is one registered kernel implementation.
type Entry struct {
	Name      string
	SIMDLevel cpu.SIMDLevel
	Priority  int
	Sum       SumFn
}

// Registry stores available implementations.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	sorted  bool
}

// Global is the default kernel registry.
var Global = &Registry{}

// Register adds an implementation entry. Registering a name twice replaces
// the earlier entry.
func (r *Registry) Register(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].Name == entry.Name {
			r.entries[i] = entry
			r.sorted = false
			return
		}
	}
	r.entries = append(r.entries, entry)
	r.sorted = false
}

// Lookup returns the highest-priority implementation supported by features,
// or nil if none is.
func (r *Registry) Lookup(features cpu.Features) *Entry {
	r.sortOnce()

	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.entries {
		entry := r.entries[i]
		if entry.Sum != nil && cpu.Supports(features, entry.SIMDLevel) {
			return &entry
		}
	}
	return nil
}

// Get returns the entry registered under name.
func (r *Registry) Get(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.entries {
		if r.entries[i].Name == name {
			entry := r.entries[i]
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKernel, name)
}

// Entries returns a copy of all entries, highest priority first.
func (r *Registry) Entries() []Entry {
	r.sortOnce()

	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.entries)
}

// Names returns the registered names, highest priority first.
func (r *Registry) Names() []string {
	entries := r.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Reset clears all entries. Intended for tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = nil
	r.sorted = false
}

func (r *Registry) sortOnce() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sorted {
		return
	}
	slices.SortStableFunc(r.entries, func(a, b Entry) int {
		return b.Priority - a.Priority
	})
	r.sorted = true
}
