// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend registers the available device implementations and
// picks the best one at runtime. Backends register themselves from
// init() functions; importing a backend package makes it available:
//
//	import _ "github.com/gogpu/imagecomp/backend/software"
//
// The wgpu backend needs a host device provider, so it registers only
// after wgpu.RegisterProvider is called.
package backend

import (
	"errors"
	"sync"

	"github.com/gogpu/imagecomp/device"
)

// Backend names.
const (
	NameWGPU     = "wgpu"
	NameSoftware = "software"
)

// ErrNotAvailable is returned when no requested backend is registered.
var ErrNotAvailable = errors.New("backend: not available")

// Factory creates a new device instance.
type Factory func() (device.Device, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)

	// Priority order for backend selection (first available wins).
	priority = []string{NameWGPU, NameSoftware}
)

// Register registers a device factory under name, replacing any
// previous registration. Typically called from init() in backend
// packages.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Unregister removes a backend from the registry. Useful for tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// IsRegistered reports whether a backend with the given name exists.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open creates a device from the named backend.
func Open(name string) (device.Device, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, ErrNotAvailable
	}
	return f()
}

// Default creates a device from the best available backend, preferring
// GPU over software. A backend whose factory fails is skipped.
func Default() (device.Device, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var lastErr error
	for _, name := range priority {
		f, ok := factories[name]
		if !ok {
			continue
		}
		dev, err := f()
		if err != nil {
			lastErr = err
			continue
		}
		return dev, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNotAvailable
}
