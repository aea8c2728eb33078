// Package rhi is the render hardware interface façade: a handle-based,
// bindless wrapper over an explicit command-list GPU API. Callers create
// buffers, textures and pipeline state objects through a Device, record
// work into command lists during a frame, and let the frame scheduler
// handle fencing, transient allocator resets and fence-gated destruction.
package rhi

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ashfall-engine/rhi/format"
)

// Config carries every recognized RHI init option. The zero value is not
// usable; start from DefaultConfig and override.
type Config struct {
	// FrameLatency is how many frames the CPU may queue ahead of the
	// GPU. 1..3; larger values trade input latency and peak transient
	// memory for fewer stalls.
	FrameLatency uint32

	// UploadRingCapacity is the byte capacity of the async upload ring.
	// Must be a power of two.
	UploadRingCapacity uint32

	// UploadMaxSubmissions bounds concurrently outstanding ring uploads.
	// Must be a power of two.
	UploadMaxSubmissions int

	// DescriptorHeapPersistentCapacity sizes the shader-visible bindless
	// table for CBV/SRV/UAV descriptors.
	DescriptorHeapPersistentCapacity uint32

	// RTVDescriptorCapacity and DSVDescriptorCapacity size the CPU-side
	// render-target and depth-stencil view arenas.
	RTVDescriptorCapacity uint32
	DSVDescriptorCapacity uint32

	// TransientArenaCapacity is the per-frame byte budget for transient
	// sub-allocations (per-draw constants, dynamic vertex data). Each
	// frame in flight owns its own arena of this size.
	TransientArenaCapacity uint32

	// ShadowMapResolution is the edge length of the default shadow map
	// created at device init.
	ShadowMapResolution uint32

	// MultisampleCount is 1, 2, 4 or 8.
	MultisampleCount uint32

	// BufferCapacity, TextureCapacity and PSOCapacity fix the handle
	// pool sizes. Exhausting one is a capacity-planning failure.
	BufferCapacity  int
	TextureCapacity int
	PSOCapacity     int

	// Backbuffer geometry for the swapchain textures the device creates,
	// one per frame in flight.
	BackbufferWidth  uint32
	BackbufferHeight uint32
	BackbufferFormat format.Format

	// Logger receives structured diagnostics. zerolog.Nop() silences it.
	Logger zerolog.Logger
}

// DefaultConfig returns the documented defaults: two frames of latency, a
// 64 MiB upload ring with 32 submission slots, a million-entry bindless
// table and 256-entry view arenas.
func DefaultConfig() Config {
	return Config{
		FrameLatency:                     2,
		UploadRingCapacity:               64 << 20,
		UploadMaxSubmissions:             32,
		DescriptorHeapPersistentCapacity: 1_000_000,
		RTVDescriptorCapacity:            256,
		DSVDescriptorCapacity:            256,
		TransientArenaCapacity:           16 << 20,
		ShadowMapResolution:              4096,
		MultisampleCount:                 1,
		BufferCapacity:                   1 << 16,
		TextureCapacity:                  1 << 14,
		PSOCapacity:                      1 << 10,
		BackbufferWidth:                  1280,
		BackbufferHeight:                 720,
		BackbufferFormat:                 format.RGBA8UnormSrgb,
		Logger:                           zerolog.Nop(),
	}
}

func isPow2(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

func (c Config) validate() error {
	if c.FrameLatency < 1 || c.FrameLatency > 3 {
		return fmt.Errorf("rhi: frame latency %d out of range 1..3", c.FrameLatency)
	}
	if !isPow2(uint64(c.UploadRingCapacity)) {
		return fmt.Errorf("rhi: upload ring capacity %d is not a power of two", c.UploadRingCapacity)
	}
	if !isPow2(uint64(c.UploadMaxSubmissions)) {
		return fmt.Errorf("rhi: upload max submissions %d is not a power of two", c.UploadMaxSubmissions)
	}
	switch c.MultisampleCount {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("rhi: multisample count %d not in {1,2,4,8}", c.MultisampleCount)
	}
	if c.BackbufferWidth == 0 || c.BackbufferHeight == 0 {
		return fmt.Errorf("rhi: zero backbuffer extent %dx%d", c.BackbufferWidth, c.BackbufferHeight)
	}
	if c.BufferCapacity <= 0 || c.TextureCapacity <= 0 || c.PSOCapacity <= 0 {
		return fmt.Errorf("rhi: resource pool capacities must be positive")
	}
	return nil
}
