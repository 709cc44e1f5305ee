// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package imagecomp is the GPU render core of an interactive raster
// image editor: a shader-plugin registry, per-mode program runtimes, a
// pooled FBO manager with feedback-loop bookkeeping, a pass-graph
// pipeline and a ping-pong layer compositor with 27 blend modes.
//
// The entry point is Engine, constructed per editor session:
//
//	eng := imagecomp.NewEngine(imagecomp.Options{})
//	eng.InitializeMode(shader.ModeHybrid, dev)
//
//	tex, err := eng.RenderLayers(&renderer.Frame{
//		Layers:   stack,
//		Textures: uploaded,
//		Width:    1920,
//		Height:   1080,
//	})
//
// Two device backends ship with the module: backend/wgpu renders on the
// GPU through the wgpu hal, and backend/software is a deterministic CPU
// fallback that also serves as the test substrate. Both runtimes
// (hybrid main-thread, offscreen worker) execute the same pipeline and
// produce identical output.
//
// Logging is silent unless the host installs a logger with SetLogger.
package imagecomp
