package backend

import (
	"encoding/binary"
	"math"

	mgl "github.com/go-gl/mathgl/mgl32"

	"github.com/ashfall-engine/rhi/command"
	"github.com/ashfall-engine/rhi/handle"
)

// Image is an RGBA8 pixel surface the software backend renders into and
// samples from. One byte per channel, row-major, no padding.
type Image struct {
	Width  int
	Height int
	Pixels []byte
}

// NewImage creates a zeroed Image.
func NewImage(width, height int) *Image {
	return &Image{Width: width, Height: height, Pixels: make([]byte, width*height*4)}
}

// At returns the RGBA bytes at (x, y), or zeros out of bounds.
func (img *Image) At(x, y int) [4]byte {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return [4]byte{}
	}
	i := (y*img.Width + x) * 4
	return [4]byte{img.Pixels[i], img.Pixels[i+1], img.Pixels[i+2], img.Pixels[i+3]}
}

func (img *Image) set(x, y int, c [4]byte) {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return
	}
	i := (y*img.Width + x) * 4
	img.Pixels[i] = c[0]
	img.Pixels[i+1] = c[1]
	img.Pixels[i+2] = c[2]
	img.Pixels[i+3] = c[3]
}

// Fill sets every pixel to c.
func (img *Image) Fill(c [4]byte) {
	for i := 0; i < len(img.Pixels); i += 4 {
		img.Pixels[i] = c[0]
		img.Pixels[i+1] = c[1]
		img.Pixels[i+2] = c[2]
		img.Pixels[i+3] = c[3]
	}
}

// Resolver is how the software backend reaches the device's resources: it
// turns bindless descriptor indices and handles back into CPU-side
// storage. The device implements it; keeping it as an interface here
// avoids an import cycle between the backend and the façade.
type Resolver interface {
	// ResolveBufferSRV returns the bytes behind a bindless buffer SRV
	// index, for the frame currently executing.
	ResolveBufferSRV(index uint32) ([]byte, bool)
	// ResolveTextureSRV returns the image behind a bindless texture SRV
	// index.
	ResolveTextureSRV(index uint32) (*Image, bool)
	// RenderTarget returns the image a render-target texture draws into.
	RenderTarget(h handle.TextureHandle) (*Image, bool)
	// DepthTarget returns a depth texture's storage and row width.
	DepthTarget(h handle.TextureHandle) ([]float32, int, bool)
	// BufferBytes returns a buffer's bytes by handle, for the frame
	// currently executing. Used for index fetch, where the command
	// stream carries the handle rather than a bindless index.
	BufferBytes(h handle.BufferHandle) ([]byte, bool)
	// CopyToBuffer writes data into the buffer at offset, for the frame
	// currently executing.
	CopyToBuffer(h handle.BufferHandle, offset uint32, data []byte) bool
}

// Software executes recorded command lists on the CPU. It implements the
// fixed mesh pipeline the engine's standard shaders use: the pass
// parameter block carries bindless SRV indices for position/color/uv
// streams, and the draw parameter block carries a position offset, a
// multiply color and an albedo texture index. That is enough to run the
// renderer's real submission path, end to end, with no GPU.
type Software struct {
	res Resolver

	pass     command.GraphicsPassDesc
	inPass   bool
	targets  []*Image
	depth    []float32
	depthW   int
	params   [3][]byte
	psoValid bool
}

// NewSoftware creates a Software backend resolving resources through res.
func NewSoftware(res Resolver) *Software {
	return &Software{res: res}
}

// Submit executes every op recorded into list, in order.
func (b *Software) Submit(list *command.List) error {
	for _, op := range list.Ops() {
		switch op.Kind {
		case command.OpBeginGraphicsPass:
			b.beginPass(op.Pass)
		case command.OpEndGraphicsPass:
			b.inPass = false
			b.targets = b.targets[:0]
		case command.OpSetPSO:
			b.psoValid = !op.PSO.IsNil()
		case command.OpSetParameters:
			b.params[op.Slot] = op.Params
		case command.OpDraw:
			b.draw(op.VertexCount, op.VertexOffset)
		case command.OpDrawIndexed:
			b.drawIndexed(op)
		case command.OpUploadBuffer:
			b.res.CopyToBuffer(op.UploadBuffer, op.UploadOffset, op.UploadData)
		}
	}
	return nil
}

// Present is a no-op; callers read the backbuffer image directly.
func (b *Software) Present() error {
	return nil
}

func (b *Software) beginPass(desc command.GraphicsPassDesc) {
	b.pass = desc
	b.inPass = true
	b.targets = b.targets[:0]
	b.depth = nil
	b.depthW = 0
	b.params = [3][]byte{}
	b.psoValid = false

	for i := 0; i < desc.ColorCount; i++ {
		att := desc.ColorAttachments[i]
		img, ok := b.res.RenderTarget(att.Target)
		if !ok {
			b.targets = append(b.targets, nil)
			continue
		}
		if att.LoadOp == command.LoadOpClear {
			img.Fill(packColor(att.ClearColor))
		}
		b.targets = append(b.targets, img)
	}

	if desc.DepthStencil != nil {
		depth, width, ok := b.res.DepthTarget(desc.DepthStencil.Target)
		if ok {
			b.depth = depth
			b.depthW = width
			if desc.DepthStencil.DepthLoadOp == command.LoadOpClear {
				for i := range depth {
					depth[i] = desc.DepthStencil.ClearDepth
				}
			}
		}
	}
}

func packColor(c mgl.Vec4) [4]byte {
	return [4]byte{
		floatToByte(c.X()),
		floatToByte(c.Y()),
		floatToByte(c.Z()),
		floatToByte(c.W()),
	}
}

func floatToByte(f float32) byte {
	v := f * 255
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v + 0.5)
}

// drawParams is the decoded draw-slot parameter block of the standard mesh
// pipeline: a position offset, a multiply color and an albedo SRV index.
type drawParams struct {
	offset mgl.Vec4
	color  mgl.Vec4
	albedo uint32
}

func decodeDrawParams(data []byte) drawParams {
	p := drawParams{color: mgl.Vec4{1, 1, 1, 1}}
	if len(data) >= 16 {
		p.offset = decodeVec4(data[0:])
	}
	if len(data) >= 32 {
		p.color = decodeVec4(data[16:])
	}
	if len(data) >= 36 {
		p.albedo = binary.LittleEndian.Uint32(data[32:])
	}
	return p
}

func decodeVec4(data []byte) mgl.Vec4 {
	return mgl.Vec4{
		math.Float32frombits(binary.LittleEndian.Uint32(data[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(data[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(data[8:])),
		math.Float32frombits(binary.LittleEndian.Uint32(data[12:])),
	}
}

// passStreams resolves the pass-slot parameter block's three vertex
// stream SRVs: positions (3 floats), colors (4 floats), uvs (2 floats).
type passStreams struct {
	positions []byte
	colors    []byte
	uvs       []byte
}

func (b *Software) decodePassStreams() (passStreams, bool) {
	data := b.params[command.SlotPass]
	if len(data) < 12 {
		return passStreams{}, false
	}
	var s passStreams
	var ok bool
	s.positions, ok = b.res.ResolveBufferSRV(binary.LittleEndian.Uint32(data[0:]))
	if !ok {
		return passStreams{}, false
	}
	s.colors, _ = b.res.ResolveBufferSRV(binary.LittleEndian.Uint32(data[4:]))
	s.uvs, _ = b.res.ResolveBufferSRV(binary.LittleEndian.Uint32(data[8:]))
	return s, true
}

func (s *passStreams) position(i uint32) mgl.Vec3 {
	off := int(i) * 12
	if off+12 > len(s.positions) {
		return mgl.Vec3{}
	}
	return mgl.Vec3{
		math.Float32frombits(binary.LittleEndian.Uint32(s.positions[off:])),
		math.Float32frombits(binary.LittleEndian.Uint32(s.positions[off+4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(s.positions[off+8:])),
	}
}

func (s *passStreams) color(i uint32) mgl.Vec4 {
	off := int(i) * 16
	if off+16 > len(s.colors) {
		return mgl.Vec4{1, 1, 1, 1}
	}
	return decodeVec4(s.colors[off:])
}

func (s *passStreams) uv(i uint32) mgl.Vec2 {
	off := int(i) * 8
	if off+8 > len(s.uvs) {
		return mgl.Vec2{}
	}
	return mgl.Vec2{
		math.Float32frombits(binary.LittleEndian.Uint32(s.uvs[off:])),
		math.Float32frombits(binary.LittleEndian.Uint32(s.uvs[off+4:])),
	}
}

func (b *Software) draw(vertexCount uint32, vertexOffset int32) {
	if !b.inPass || !b.psoValid || len(b.targets) == 0 || b.targets[0] == nil {
		return
	}
	streams, ok := b.decodePassStreams()
	if !ok {
		return
	}
	dp := decodeDrawParams(b.params[command.SlotDraw])
	base := uint32(vertexOffset)

	for tri := uint32(0); tri+3 <= vertexCount; tri += 3 {
		b.rasterize(b.targets[0], &streams, dp, base+tri, base+tri+1, base+tri+2)
	}
}

func (b *Software) drawIndexed(op command.Op) {
	if !b.inPass || !b.psoValid || len(b.targets) == 0 || b.targets[0] == nil {
		return
	}
	indexData, ok := b.res.BufferBytes(op.IndexBuffer)
	if !ok {
		return
	}
	// Indexed geometry resolves through the same streams; index fetch is
	// 32-bit.
	streams, ok := b.decodePassStreams()
	if !ok {
		return
	}
	dp := decodeDrawParams(b.params[command.SlotDraw])

	fetch := func(i uint32) uint32 {
		off := int(op.IndexOffset+i) * 4
		if off+4 > len(indexData) {
			return 0
		}
		return uint32(int32(binary.LittleEndian.Uint32(indexData[off:])) + op.VertexOffset)
	}
	for tri := uint32(0); tri+3 <= op.IndexCount; tri += 3 {
		b.rasterize(b.targets[0], &streams, dp, fetch(tri), fetch(tri+1), fetch(tri+2))
	}
}

// rasterize fills one triangle. Positions are NDC (x right, y up, both in
// [-1, 1]); output color = vertex gradient * draw color * albedo sample.
func (b *Software) rasterize(target *Image, s *passStreams, dp drawParams, i0, i1, i2 uint32) {
	w, h := float32(target.Width), float32(target.Height)

	toScreen := func(p mgl.Vec3) mgl.Vec2 {
		return mgl.Vec2{
			(p.X() + dp.offset.X() + 1) * 0.5 * w,
			(1 - (p.Y() + dp.offset.Y())) * 0.5 * h,
		}
	}

	v0, v1, v2 := s.position(i0), s.position(i1), s.position(i2)
	p0, p1, p2 := toScreen(v0), toScreen(v1), toScreen(v2)
	z0, z1, z2 := v0.Z()+dp.offset.Z(), v1.Z()+dp.offset.Z(), v2.Z()+dp.offset.Z()

	area := edge(p0, p1, p2)
	if area == 0 {
		return
	}
	if area < 0 {
		p1, p2 = p2, p1
		i1, i2 = i2, i1
		z1, z2 = z2, z1
		area = -area
	}

	minX := int(min3(p0.X(), p1.X(), p2.X()))
	maxX := int(max3(p0.X(), p1.X(), p2.X())) + 1
	minY := int(min3(p0.Y(), p1.Y(), p2.Y()))
	maxY := int(max3(p0.Y(), p1.Y(), p2.Y())) + 1
	minX = maxInt(minX, 0)
	minY = maxInt(minY, 0)
	maxX = minInt(maxX, target.Width)
	maxY = minInt(maxY, target.Height)

	c0, c1, c2 := s.color(i0), s.color(i1), s.color(i2)
	uv0, uv1, uv2 := s.uv(i0), s.uv(i1), s.uv(i2)

	albedo, hasAlbedo := b.res.ResolveTextureSRV(dp.albedo)

	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			p := mgl.Vec2{float32(x) + 0.5, float32(y) + 0.5}
			w0 := edge(p1, p2, p)
			w1 := edge(p2, p0, p)
			w2 := edge(p0, p1, p)
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			w0 /= area
			w1 /= area
			w2 /= area

			if b.depth != nil {
				z := z0 + w1*(z1-z0) + w2*(z2-z0)
				di := y*b.depthW + x
				if di < 0 || di >= len(b.depth) || z > b.depth[di] {
					continue
				}
				b.depth[di] = z
			}

			col := c0.Mul(w0).Add(c1.Mul(w1)).Add(c2.Mul(w2))
			col = mgl.Vec4{
				col.X() * dp.color.X(),
				col.Y() * dp.color.Y(),
				col.Z() * dp.color.Z(),
				col.W() * dp.color.W(),
			}

			if hasAlbedo {
				uv := uv0.Mul(w0).Add(uv1.Mul(w1)).Add(uv2.Mul(w2))
				texel := sampleNearest(albedo, uv)
				col = mgl.Vec4{
					col.X() * texel.X(),
					col.Y() * texel.Y(),
					col.Z() * texel.Z(),
					col.W() * texel.W(),
				}
			}

			target.set(x, y, packColor(col))
		}
	}
}

func sampleNearest(img *Image, uv mgl.Vec2) mgl.Vec4 {
	x := int(uv.X() * float32(img.Width))
	y := int(uv.Y() * float32(img.Height))
	x = minInt(maxInt(x, 0), img.Width-1)
	y = minInt(maxInt(y, 0), img.Height-1)
	c := img.At(x, y)
	return mgl.Vec4{
		float32(c[0]) / 255,
		float32(c[1]) / 255,
		float32(c[2]) / 255,
		float32(c[3]) / 255,
	}
}

func edge(a, b, p mgl.Vec2) float32 {
	return (b.X()-a.X())*(p.Y()-a.Y()) - (b.Y()-a.Y())*(p.X()-a.X())
}

func min3(a, b, c float32) float32 { return float32(math.Min(float64(a), math.Min(float64(b), float64(c)))) }
func max3(a, b, c float32) float32 { return float32(math.Max(float64(a), math.Max(float64(b), float64(c)))) }

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
