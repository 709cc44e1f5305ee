// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package worker defines the versioned IPC payloads exchanged with the
// offscreen render context. Only the message shapes live here; the
// transport that moves them belongs to the host.
//
// Every request carries the sender's registry version. A receiver whose
// local registry version differs must not render from stale descriptors;
// it answers with a ResyncRequest and the other side replies with a full
// RegistrySync.
package worker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gogpu/imagecomp/layer"
	"github.com/gogpu/imagecomp/renderer"
	"github.com/gogpu/imagecomp/shader"
)

// ProtocolVersion guards the envelope format itself, not the registry.
const ProtocolVersion = 1

// ErrResyncRequired signals that the sender's registry version differs
// from the local one and a RegistrySync must happen before rendering.
var ErrResyncRequired = errors.New("worker: registry resync required")

// MessageType discriminates envelope payloads.
type MessageType string

// Message types.
const (
	TypeRender       MessageType = "render"
	TypeRegistrySync MessageType = "registrySync"
	TypeResync       MessageType = "resyncRequest"
	TypeResult       MessageType = "result"
)

// Envelope wraps one message for transport.
type Envelope struct {
	Protocol int             `json:"protocol"`
	Type     MessageType     `json:"type"`
	Payload  json.RawMessage `json:"payload"`
}

// Encode wraps payload in an envelope and marshals it.
func Encode(t MessageType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("worker: encode %s: %w", t, err)
	}
	return json.Marshal(Envelope{Protocol: ProtocolVersion, Type: t, Payload: raw})
}

// Decode unwraps an envelope and returns its type and raw payload.
func Decode(data []byte) (MessageType, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("worker: decode: %w", err)
	}
	if env.Protocol != ProtocolVersion {
		return "", nil, fmt.Errorf("worker: protocol %d, want %d", env.Protocol, ProtocolVersion)
	}
	return env.Type, env.Payload, nil
}

// RenderRequest asks the offscreen context to composite one frame.
type RenderRequest struct {
	// Seq orders requests; a newer Seq supersedes an unstarted older one.
	Seq uint64 `json:"seq"`

	// RegistryVersion is the sender's registry version at send time.
	RegistryVersion uint64 `json:"registryVersion"`

	// Layers is the resolved stack, bottom first.
	Layers []*layer.Layer `json:"layers"`

	// Placements keys resolved layer bounds by layer ID.
	Placements map[string]renderer.Placement `json:"placements,omitempty"`

	// Tool and SelectedID carry the live interactive parameters.
	Tool       *renderer.ToolParams `json:"tool,omitempty"`
	SelectedID string               `json:"selectedId,omitempty"`

	// CanvasWidth and CanvasHeight are the frame size in pixels.
	CanvasWidth  int `json:"canvasWidth"`
	CanvasHeight int `json:"canvasHeight"`

	// Frame builtin uniform inputs.
	Time       float32 `json:"time"`
	FrameIndex float32 `json:"frameIndex"`
	Seed       float32 `json:"seed"`
	ColorSpace int     `json:"colorSpace"`
}

// CheckVersion compares the request's registry version against the
// local one and returns ErrResyncRequired on mismatch.
func (m *RenderRequest) CheckVersion(local uint64) error {
	if m.RegistryVersion != local {
		return fmt.Errorf("%w: have %d, request %d",
			ErrResyncRequired, local, m.RegistryVersion)
	}
	return nil
}

// EffectRequest asks for a single effect invocation outside the layer
// compositor, e.g. a filter preview.
type EffectRequest struct {
	Seq             uint64 `json:"seq"`
	RegistryVersion uint64 `json:"registryVersion"`

	// EffectID names the registered shader plugin.
	EffectID   string `json:"effectId"`
	VariantKey string `json:"variantKey,omitempty"`

	// Parameters are the effect's UI parameter values.
	Parameters map[string]float64 `json:"parameters,omitempty"`

	// Channels maps channel names to texture IDs on the receiving side.
	Channels map[string]string `json:"channels,omitempty"`

	Width  int `json:"width"`
	Height int `json:"height"`
}

// RegistrySync carries the complete descriptor set to the other
// context. Applying it pairs with Registry.ReplaceAll.
type RegistrySync struct {
	Version     uint64              `json:"version"`
	Descriptors []shader.Descriptor `json:"descriptors"`
}

// SnapshotRegistry builds a RegistrySync from the current registry
// contents.
func SnapshotRegistry(r *shader.Registry) RegistrySync {
	all := r.All()
	descs := make([]shader.Descriptor, 0, len(all))
	for _, d := range all {
		descs = append(descs, *d)
	}
	return RegistrySync{Version: r.Version(), Descriptors: descs}
}

// Apply swaps the receiving registry's descriptor set for the synced
// one.
func (s *RegistrySync) Apply(r *shader.Registry) {
	r.ReplaceAll(s.Descriptors, s.Version)
}

// ResyncRequest reports a registry version mismatch back to the sender.
type ResyncRequest struct {
	Seq         uint64 `json:"seq"`
	HaveVersion uint64 `json:"haveVersion"`
	WantVersion uint64 `json:"wantVersion"`
}

// RenderResult reports the outcome of one RenderRequest.
type RenderResult struct {
	Seq   uint64 `json:"seq"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
