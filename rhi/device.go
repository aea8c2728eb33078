package rhi

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ashfall-engine/rhi/bufferarena"
	"github.com/ashfall-engine/rhi/command"
	"github.com/ashfall-engine/rhi/deferredrelease"
	"github.com/ashfall-engine/rhi/descriptorarena"
	"github.com/ashfall-engine/rhi/descriptorheap"
	"github.com/ashfall-engine/rhi/format"
	"github.com/ashfall-engine/rhi/frame"
	"github.com/ashfall-engine/rhi/handle"
	"github.com/ashfall-engine/rhi/internal/backend"
	"github.com/ashfall-engine/rhi/registry"
	"github.com/ashfall-engine/rhi/uploadring"
)

// debugChecks is flipped on by debug.go under the rhidebug build tag, the
// same two-tier policy the resource registry uses: invalid handles are
// fatal with a named calling context in debug builds and silent no-ops in
// release builds.
var debugChecks = false

// bindlessEntry is what a bindless descriptor index resolves to. Exactly
// one field is set.
type bindlessEntry struct {
	buf *bufferInstance
	tex *textureResource
}

// frameContext is the per-frame-in-flight state: the frame's command
// list, its transient allocator and the upload-heap buffer backing it.
type frameContext struct {
	list        *command.List
	arena       *bufferarena.Arena
	arenaBuffer handle.BufferHandle
	arenaMem    []byte
}

// Device owns every RHI subsystem: the resource registries, the bindless
// descriptor heap, the upload ring, the deferred release queue and the
// frame scheduler. Create one per application; it is safe for concurrent
// resource creation and lookup, while RunFrame must stay on a single
// render goroutine.
type Device struct {
	cfg    Config
	logger zerolog.Logger

	heap     *descriptorheap.Heap
	rtvArena *descriptorarena.Arena
	dsvArena *descriptorarena.Arena

	buffers  *registry.Registry[*bufferResource, handle.BufferMarker]
	textures *registry.Registry[*textureResource, handle.TextureMarker]
	psos     *registry.Registry[*psoResource, handle.PSOMarker]

	releases *deferredrelease.Queue[func()]

	copyFence  *backend.Fence
	frameFence *backend.Fence
	ring       *uploadring.Ring
	ringMem    []byte

	backend *backend.Software
	sched   *frame.Scheduler

	frames      []*frameContext
	backbuffers []handle.TextureHandle

	tableMu sync.RWMutex
	table   map[uint32]bindlessEntry

	errorTexture handle.TextureHandle
	errorPSO     handle.PSOHandle
	shadowMap    handle.TextureHandle
}

// New creates a Device from cfg. The returned device runs on the portable
// software backend; every subsystem behaves as it would over a native
// queue, minus the hardware.
func New(cfg Config) (*Device, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	d := &Device{
		cfg:    cfg,
		logger: cfg.Logger,
		heap: descriptorheap.New(descriptorheap.Config{
			PersistentCapacity: cfg.DescriptorHeapPersistentCapacity,
		}),
		rtvArena: descriptorarena.New(cfg.RTVDescriptorCapacity),
		dsvArena: descriptorarena.New(cfg.DSVDescriptorCapacity),
		buffers:  registry.New[*bufferResource, handle.BufferMarker](cfg.BufferCapacity, "buffer", cfg.Logger),
		textures: registry.New[*textureResource, handle.TextureMarker](cfg.TextureCapacity, "texture", cfg.Logger),
		psos:     registry.New[*psoResource, handle.PSOMarker](cfg.PSOCapacity, "pso", cfg.Logger),
		releases: deferredrelease.New[func()](),
		table:    make(map[uint32]bindlessEntry),
	}

	d.copyFence = backend.NewFence()
	d.frameFence = backend.NewFence()
	d.ring = uploadring.New(uploadring.Config{
		Capacity:       cfg.UploadRingCapacity,
		MaxSubmissions: cfg.UploadMaxSubmissions,
	}, d.copyFence)
	d.ringMem = make([]byte, cfg.UploadRingCapacity)

	d.backend = backend.NewSoftware(d)
	d.sched = frame.New(frame.Config{Latency: uint64(cfg.FrameLatency)}, d.frameFence, d.backend, cfg.Logger)
	d.sched.OnFlush(d.flushFrame)
	d.sched.OnReset(d.resetFrame)

	for i := uint32(0); i < cfg.FrameLatency; i++ {
		fc := &frameContext{
			list:  command.New(),
			arena: bufferarena.New(cfg.TransientArenaCapacity),
		}
		arenaBuffer, err := d.CreateBuffer(BufferDesc{
			Size:      cfg.TransientArenaCapacity,
			Usage:     BufferUsageUpload,
			DebugName: fmt.Sprintf("transient_arena_%d", i),
		})
		if err != nil {
			return nil, err
		}
		fc.arenaBuffer = arenaBuffer
		res, _ := d.buffers.Get(arenaBuffer, "frame arena init")
		fc.arenaMem = res.instances[0].data
		d.frames = append(d.frames, fc)

		bb, err := d.CreateTexture(TextureDesc{
			Dimension:    Texture2D,
			Width:        cfg.BackbufferWidth,
			Height:       cfg.BackbufferHeight,
			Depth:        1,
			MipCount:     1,
			SampleCount:  1,
			Format:       cfg.BackbufferFormat,
			RenderTarget: true,
			DebugName:    fmt.Sprintf("backbuffer_%d", i),
		})
		if err != nil {
			return nil, err
		}
		d.backbuffers = append(d.backbuffers, bb)
	}

	if err := d.createSentinels(); err != nil {
		return nil, err
	}

	shadow, err := d.CreateTexture(TextureDesc{
		Dimension:    Texture2D,
		Width:        cfg.ShadowMapResolution,
		Height:       cfg.ShadowMapResolution,
		Depth:        1,
		MipCount:     1,
		SampleCount:  1,
		Format:       format.Depth32Float,
		DepthStencil: true,
		DebugName:    "sun_shadow_map",
	})
	if err != nil {
		return nil, err
	}
	d.shadowMap = shadow

	d.logger.Info().
		Uint32("frame_latency", cfg.FrameLatency).
		Uint32("upload_ring_capacity", cfg.UploadRingCapacity).
		Uint32("bindless_capacity", cfg.DescriptorHeapPersistentCapacity).
		Msg("rhi device initialized")

	return d, nil
}

// createSentinels builds the resources substituted for content that
// failed to load: a magenta/black checkerboard texture and a pipeline
// that draws nothing.
func (d *Device) createSentinels() error {
	const n = 4
	pixels := make([]byte, n*n*4)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := (y*n + x) * 4
			if (x+y)%2 == 0 {
				pixels[i+0] = 0xFF
				pixels[i+2] = 0xFF
			}
			pixels[i+3] = 0xFF
		}
	}
	tex, err := d.CreateTexture(TextureDesc{
		Dimension:   Texture2D,
		Width:       n,
		Height:      n,
		Depth:       1,
		MipCount:    1,
		SampleCount: 1,
		Format:      format.RGBA8Unorm,
		InitialData: [][]byte{pixels},
		RowStride:   n * 4,
		DebugName:   "error_texture",
	})
	if err != nil {
		return err
	}
	d.errorTexture = tex

	pso, err := d.psos.Create(&psoResource{}, "error_pso")
	if err != nil {
		return err
	}
	d.errorPSO = pso
	return nil
}

// ErrorTexture returns the magenta/black sentinel substituted for
// textures that failed to load.
func (d *Device) ErrorTexture() handle.TextureHandle { return d.errorTexture }

// ErrorPSO returns the no-op sentinel substituted for pipelines whose
// shaders failed to compile.
func (d *Device) ErrorPSO() handle.PSOHandle { return d.errorPSO }

// ShadowMap returns the depth texture created at init for the sun shadow
// pass.
func (d *Device) ShadowMap() handle.TextureHandle { return d.shadowMap }

// Logger returns the device's structured logger.
func (d *Device) Logger() zerolog.Logger { return d.logger }

func (d *Device) frameIndex() uint64 {
	return d.sched.FrameIndex()
}

// instanceFor picks the physical instance behind a buffer for the current
// frame. Non-dynamic buffers always resolve to their single instance; the
// frame latency N never leaks out of this function.
func (d *Device) instanceFor(res *bufferResource) *bufferInstance {
	n := len(res.instances)
	if n == 1 {
		return res.instances[0]
	}
	return res.instances[int(d.frameIndex()%uint64(n))]
}

// CreateBuffer creates a buffer per desc, allocating bindless descriptor
// indices for any requested views and staging initial data through the
// upload ring.
func (d *Device) CreateBuffer(desc BufferDesc) (handle.BufferHandle, error) {
	if desc.Size == 0 {
		return handle.Nil[handle.BufferMarker](), fmt.Errorf("rhi: zero-size buffer %q", desc.DebugName)
	}

	instanceCount := 1
	if desc.Dynamic {
		instanceCount = int(d.cfg.FrameLatency)
	}

	res := &bufferResource{desc: desc}
	for i := 0; i < instanceCount; i++ {
		inst := &bufferInstance{data: make([]byte, desc.Size)}
		if desc.SRV != nil {
			idx, err := d.heap.AllocatePersistent()
			if err != nil {
				d.fatal("CreateBuffer", err)
				return handle.Nil[handle.BufferMarker](), err
			}
			inst.srvIndex = idx
			d.bindBuffer(idx, inst)
		}
		if desc.UAV != nil {
			idx, err := d.heap.AllocatePersistent()
			if err != nil {
				d.fatal("CreateBuffer", err)
				return handle.Nil[handle.BufferMarker](), err
			}
			inst.uavIndex = idx
			d.bindBuffer(idx, inst)
		}
		res.instances = append(res.instances, inst)
	}

	if len(desc.InitialData) > 0 {
		for _, inst := range res.instances {
			if err := d.uploadToInstance(context.Background(), inst, 0, desc.InitialData); err != nil {
				return handle.Nil[handle.BufferMarker](), err
			}
		}
	}

	return d.buffers.Create(res, desc.DebugName)
}

// DestroyBuffer releases h. The handle dies immediately; the physical
// storage and descriptor indices stay alive until the GPU has finished
// the frame that last saw them.
func (d *Device) DestroyBuffer(h handle.BufferHandle) {
	res, ok := d.buffers.Get(h, "DestroyBuffer")
	if !ok {
		return
	}
	d.buffers.Destroy(h)

	for _, inst := range res.instances {
		if res.desc.SRV != nil {
			d.heap.FreePersistent(inst.srvIndex)
		}
		if res.desc.UAV != nil {
			d.heap.FreePersistent(inst.uavIndex)
		}
	}

	d.releases.Push(func() {
		for _, inst := range res.instances {
			d.unbind(inst.srvIndex)
			d.unbind(inst.uavIndex)
		}
	}, d.frameIndex())
}

// CreateTexture creates a texture per desc. 2D color textures get CPU
// pixel storage the portable backends render into and sample from.
func (d *Device) CreateTexture(desc TextureDesc) (handle.TextureHandle, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return handle.Nil[handle.TextureMarker](), fmt.Errorf("rhi: zero-extent texture %q", desc.DebugName)
	}

	res := &textureResource{desc: desc}

	if desc.Format.IsDepthStencil() {
		res.depth = make([]float32, int(desc.Width)*int(desc.Height))
		for i := range res.depth {
			res.depth[i] = 1
		}
	} else {
		res.image = backend.NewImage(int(desc.Width), int(desc.Height))
		if len(desc.InitialData) > 0 {
			if err := d.uploadTexturePixels(context.Background(), res, desc.InitialData[0], desc.RowStride); err != nil {
				return handle.Nil[handle.TextureMarker](), err
			}
		}

		idx, err := d.heap.AllocatePersistent()
		if err != nil {
			d.fatal("CreateTexture", err)
			return handle.Nil[handle.TextureMarker](), err
		}
		res.srvIndex = idx
		d.bindTexture(idx, res)

		if desc.UAV {
			mips := desc.MipCount
			if mips == 0 {
				mips = 1
			}
			for m := uint32(0); m < mips; m++ {
				uidx, err := d.heap.AllocatePersistent()
				if err != nil {
					d.fatal("CreateTexture", err)
					return handle.Nil[handle.TextureMarker](), err
				}
				res.uavIndices = append(res.uavIndices, uidx)
				d.bindTexture(uidx, res)
			}
		}
	}

	if desc.RenderTarget {
		idx, err := d.rtvArena.Allocate()
		if err != nil {
			d.fatal("CreateTexture", err)
			return handle.Nil[handle.TextureMarker](), err
		}
		res.rtvIndex = idx
	}
	if desc.DepthStencil {
		idx, err := d.dsvArena.Allocate()
		if err != nil {
			d.fatal("CreateTexture", err)
			return handle.Nil[handle.TextureMarker](), err
		}
		res.dsvIndex = idx
	}

	return d.textures.Create(res, desc.DebugName)
}

// DestroyTexture releases h with the same fence-gated lifetime as
// DestroyBuffer.
func (d *Device) DestroyTexture(h handle.TextureHandle) {
	res, ok := d.textures.Get(h, "DestroyTexture")
	if !ok {
		return
	}
	d.textures.Destroy(h)

	if res.image != nil {
		d.heap.FreePersistent(res.srvIndex)
		for _, idx := range res.uavIndices {
			d.heap.FreePersistent(idx)
		}
	}

	d.releases.Push(func() {
		d.unbind(res.srvIndex)
		for _, idx := range res.uavIndices {
			d.unbind(idx)
		}
	}, d.frameIndex())
}

// CreateGraphicsPSO compiles a graphics pipeline. Missing shader bytecode
// is a transient content failure, not an error: the caller gets the no-op
// sentinel pipeline and the failure is logged.
func (d *Device) CreateGraphicsPSO(desc GraphicsPSODesc) (handle.PSOHandle, error) {
	if len(desc.VS) == 0 || len(desc.PS) == 0 {
		d.logger.Warn().
			Str("name", desc.DebugName).
			Msg("graphics pso missing shader bytecode, substituting sentinel")
		return d.errorPSO, nil
	}
	cp := desc
	return d.psos.Create(&psoResource{graphics: &cp}, desc.DebugName)
}

// CreateComputePSO compiles a compute pipeline, with the same sentinel
// substitution as CreateGraphicsPSO.
func (d *Device) CreateComputePSO(desc ComputePSODesc) (handle.PSOHandle, error) {
	if len(desc.CS) == 0 {
		d.logger.Warn().
			Str("name", desc.DebugName).
			Msg("compute pso missing shader bytecode, substituting sentinel")
		return d.errorPSO, nil
	}
	cp := desc
	return d.psos.Create(&psoResource{compute: &cp}, desc.DebugName)
}

// DestroyPSO releases h. The sentinel pipeline is never destroyed.
func (d *Device) DestroyPSO(h handle.PSOHandle) {
	if h == d.errorPSO {
		return
	}
	if _, ok := d.psos.Get(h, "DestroyPSO"); !ok {
		return
	}
	d.psos.Destroy(h)
	d.releases.Push(func() {}, d.frameIndex())
}

// GetBufferSRV returns the bindless table index shaders use to read h
// this frame. Returns 0, the null descriptor, for a stale handle or a
// buffer created without an SRV.
func (d *Device) GetBufferSRV(h handle.BufferHandle) uint32 {
	res, ok := d.buffers.Get(h, "GetBufferSRV")
	if !ok || res.desc.SRV == nil {
		return 0
	}
	return d.instanceFor(res).srvIndex
}

// GetBufferUAV returns the bindless unordered-access index for h this
// frame, or 0.
func (d *Device) GetBufferUAV(h handle.BufferHandle) uint32 {
	res, ok := d.buffers.Get(h, "GetBufferUAV")
	if !ok || res.desc.UAV == nil {
		return 0
	}
	return d.instanceFor(res).uavIndex
}

// GetTextureSRV returns the bindless table index for sampling h, or 0.
func (d *Device) GetTextureSRV(h handle.TextureHandle) uint32 {
	res, ok := d.textures.Get(h, "GetTextureSRV")
	if !ok || res.image == nil {
		return 0
	}
	return res.srvIndex
}

// ValidateBufferSRV checks that h is live and carries an SRV. In debug
// builds a violation is fatal, naming callerContext; in release builds it
// reports false silently.
func (d *Device) ValidateBufferSRV(h handle.BufferHandle, callerContext string) bool {
	res, ok := d.buffers.Get(h, callerContext)
	if ok && res.desc.SRV != nil {
		return true
	}
	if debugChecks {
		d.logger.Fatal().
			Str("context", callerContext).
			Str("handle", h.String()).
			Msg("buffer has no shader resource view")
	}
	return false
}

// ValidateTextureSRV is the texture analog of ValidateBufferSRV.
func (d *Device) ValidateTextureSRV(h handle.TextureHandle, callerContext string) bool {
	res, ok := d.textures.Get(h, callerContext)
	if ok && res.image != nil {
		return true
	}
	if debugChecks {
		d.logger.Fatal().
			Str("context", callerContext).
			Str("handle", h.String()).
			Msg("texture has no shader resource view")
	}
	return false
}

// ReadBuffer copies size bytes at offset out of h's instance for the
// current frame — the readback path.
func (d *Device) ReadBuffer(h handle.BufferHandle, offset, size uint32) ([]byte, bool) {
	res, ok := d.buffers.Get(h, "ReadBuffer")
	if !ok {
		return nil, false
	}
	inst := d.instanceFor(res)
	if int(offset)+int(size) > len(inst.data) {
		return nil, false
	}
	out := make([]byte, size)
	copy(out, inst.data[offset:])
	return out, true
}

// UploadBufferAsync stages data into h at offset through the upload ring
// on the copy queue, blocking (via ctx) when the ring is saturated. The
// target instance is the current frame's.
func (d *Device) UploadBufferAsync(ctx context.Context, h handle.BufferHandle, offset uint32, data []byte) error {
	res, ok := d.buffers.Get(h, "UploadBufferAsync")
	if !ok {
		return fmt.Errorf("rhi: upload to dead buffer %v", h)
	}
	return d.uploadToInstance(ctx, d.instanceFor(res), offset, data)
}

// uploadToInstance reserves ring space, stages data through it and
// retires the submission on the copy fence. The portable backend's copy
// queue completes synchronously; a native backend would execute the
// recorded copy list before signaling.
func (d *Device) uploadToInstance(ctx context.Context, inst *bufferInstance, offset uint32, data []byte) error {
	sub, err := d.ring.Begin(ctx, uint32(len(data)), 256)
	if err != nil {
		return err
	}
	copy(d.ringMem[sub.Offset:sub.Offset+sub.Size], data)

	if int(offset)+len(data) <= len(inst.data) {
		copy(inst.data[offset:], d.ringMem[sub.Offset:sub.Offset+sub.Size])
	}

	value := d.ring.End(sub)
	d.copyFence.Signal(value)
	return nil
}

// FlushUploads blocks until every ring submission has retired. Teardown
// only.
func (d *Device) FlushUploads(ctx context.Context) error {
	return d.ring.Flush(ctx)
}

// TexturePixels exposes a texture's CPU pixel storage for readback and
// image dumps. Returns nil for depth textures and stale handles.
func (d *Device) TexturePixels(h handle.TextureHandle) (*backend.Image, bool) {
	res, ok := d.textures.Get(h, "TexturePixels")
	if !ok || res.image == nil {
		return nil, false
	}
	return res.image, true
}

// DescriptorHeap exposes the bindless heap for tests and diagnostics.
func (d *Device) DescriptorHeap() *descriptorheap.Heap { return d.heap }

// PendingReleases returns how many resources await fence-gated
// destruction.
func (d *Device) PendingReleases() int { return d.releases.Len() }

func (d *Device) bindBuffer(index uint32, inst *bufferInstance) {
	d.tableMu.Lock()
	d.table[index] = bindlessEntry{buf: inst}
	d.tableMu.Unlock()
}

func (d *Device) bindTexture(index uint32, tex *textureResource) {
	d.tableMu.Lock()
	d.table[index] = bindlessEntry{tex: tex}
	d.tableMu.Unlock()
}

func (d *Device) unbind(index uint32) {
	if index == 0 {
		return
	}
	d.tableMu.Lock()
	delete(d.table, index)
	d.tableMu.Unlock()
}

// ResolveBufferSRV implements backend.Resolver.
func (d *Device) ResolveBufferSRV(index uint32) ([]byte, bool) {
	if index == 0 {
		return nil, false
	}
	d.tableMu.RLock()
	entry, ok := d.table[index]
	d.tableMu.RUnlock()
	if !ok || entry.buf == nil {
		return nil, false
	}
	return entry.buf.data, true
}

// ResolveTextureSRV implements backend.Resolver.
func (d *Device) ResolveTextureSRV(index uint32) (*backend.Image, bool) {
	if index == 0 {
		return nil, false
	}
	d.tableMu.RLock()
	entry, ok := d.table[index]
	d.tableMu.RUnlock()
	if !ok || entry.tex == nil || entry.tex.image == nil {
		return nil, false
	}
	return entry.tex.image, true
}

// RenderTarget implements backend.Resolver.
func (d *Device) RenderTarget(h handle.TextureHandle) (*backend.Image, bool) {
	res, ok := d.textures.Get(h, "RenderTarget")
	if !ok || res.image == nil {
		return nil, false
	}
	return res.image, true
}

// DepthTarget implements backend.Resolver.
func (d *Device) DepthTarget(h handle.TextureHandle) ([]float32, int, bool) {
	res, ok := d.textures.Get(h, "DepthTarget")
	if !ok || res.depth == nil {
		return nil, 0, false
	}
	return res.depth, int(res.desc.Width), true
}

// BufferBytes implements backend.Resolver.
func (d *Device) BufferBytes(h handle.BufferHandle) ([]byte, bool) {
	res, ok := d.buffers.Get(h, "BufferBytes")
	if !ok {
		return nil, false
	}
	return d.instanceFor(res).data, true
}

// CopyToBuffer implements backend.Resolver.
func (d *Device) CopyToBuffer(h handle.BufferHandle, offset uint32, data []byte) bool {
	res, ok := d.buffers.Get(h, "CopyToBuffer")
	if !ok {
		return false
	}
	inst := d.instanceFor(res)
	if int(offset)+len(data) > len(inst.data) {
		return false
	}
	copy(inst.data[offset:], data)
	return true
}

// flushFrame runs at the top of each frame, after the latency wait (which
// covers frame frameIndex - 1 - latency): deferred releases and pending
// descriptor frees tagged at or before frame (frameIndex - latency) are
// drained, and the heap's free tag advances to the new frame.
func (d *Device) flushFrame(frameIndex uint64) {
	d.heap.AdvanceFrame(frameIndex)

	latency := uint64(d.cfg.FrameLatency)
	if frameIndex <= latency {
		return
	}
	completed := frameIndex - latency

	d.releases.Flush(completed, func(release func()) { release() })
	d.heap.FlushPendingFrees(completed)
}

// resetFrame reclaims the new frame's allocators now that its previous
// occupant has retired.
func (d *Device) resetFrame(frameIndex uint64) {
	fc := d.frames[int(frameIndex%uint64(len(d.frames)))]
	if fc.list.State() == command.StateInFlight {
		fc.list.Reset()
	}
	fc.arena.Reset()
}

// fatal reports an unrecoverable failure — exhausted pools and device
// loss. zerolog's Fatal level exits the process after writing the event.
func (d *Device) fatal(callerContext string, err error) {
	d.logger.Fatal().Str("context", callerContext).Err(err).Msg("unrecoverable rhi failure")
}
