// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import "sync"

// Registry holds the descriptor set for one editor session. It survives
// GPU context loss: after a loss the runtimes clear their caches and
// re-warm directly from the registry.
//
// The registry is read-mostly. Register and ReplaceAll take the write
// lock; render-path lookups take the read lock. No GLSL/WGSL validation
// happens here; source errors surface at compile time in the runtime.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*Descriptor
	version uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// Register inserts or replaces a descriptor by name and bumps the
// registry version. The descriptor is copied; the stored copy's Version
// is set to the new registry version. Callers needing additive semantics
// must check Get first.
func (r *Registry) Register(d Descriptor) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.version++
	d.Version = r.version
	r.byName[d.Name] = &d
	return r.version
}

// Get returns the descriptor registered under name, or nil.
func (r *Registry) Get(name string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// All returns a snapshot of every registered descriptor. The slice is
// freshly allocated; the descriptors themselves are shared and immutable.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	return out
}

// Version returns the current monotonic registry version. The worker
// includes this in every IPC message so the other side can detect a
// stale descriptor set and request a resync.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// ReplaceAll atomically swaps the whole descriptor set, used when syncing
// registry state into a worker. The incoming descriptors keep the
// versions they were assigned on the originating side; the registry
// version is set to at least syncVersion so subsequent local
// registrations keep the counter monotonic.
func (r *Registry) ReplaceAll(descriptors []Descriptor, syncVersion uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName := make(map[string]*Descriptor, len(descriptors))
	for i := range descriptors {
		d := descriptors[i]
		byName[d.Name] = &d
	}
	r.byName = byName
	if syncVersion > r.version {
		r.version = syncVersion
	}
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
