package ui

import (
	"bytes"
	"math/rand"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ashfall-engine/rhi/command"
	"github.com/ashfall-engine/rhi/handle"
	"github.com/ashfall-engine/rhi/internal/backend"
)

type fakeSource struct {
	bufSRV map[handle.BufferHandle]uint32
	texSRV map[handle.TextureHandle]uint32
}

func (s *fakeSource) GetBufferSRV(h handle.BufferHandle) uint32 {
	return s.bufSRV[h]
}

func (s *fakeSource) GetTextureSRV(h handle.TextureHandle) uint32 {
	return s.texSRV[h]
}

func testHandles(t *testing.T) (handle.PSOHandle, handle.BufferHandle, handle.BufferHandle) {
	t.Helper()
	psoPool := handle.New[struct{}, handle.PSOMarker](4)
	bufPool := handle.New[struct{}, handle.BufferMarker](4)
	pso, err := psoPool.Alloc(struct{}{})
	if err != nil {
		t.Fatalf("pso alloc: %v", err)
	}
	cmdBuf, err := bufPool.Alloc(struct{}{})
	if err != nil {
		t.Fatalf("cmd buffer alloc: %v", err)
	}
	clipBuf, err := bufPool.Alloc(struct{}{})
	if err != nil {
		t.Fatalf("clip buffer alloc: %v", err)
	}
	return pso, cmdBuf, clipBuf
}

func TestRenderIsOneUploadOneDraw(t *testing.T) {
	pso, cmdBuf, clipBuf := testHandles(t)
	source := &fakeSource{
		bufSRV: map[handle.BufferHandle]uint32{cmdBuf: 7, clipBuf: 8},
		texSRV: map[handle.TextureHandle]uint32{},
	}
	r := NewRenderer(pso, cmdBuf, clipBuf, source)

	cl := NewCommandList(64)
	for i := 0; i < 10; i++ {
		cl.PushBox(uint8(i%3), 0, BoxCommand{Rect: MakeRect(0, 0, 10, 10)})
	}

	list := command.New()
	list.Begin()
	list.BeginSimpleGraphicsPass(handle.Nil[handle.TextureMarker](), [4]float32{0, 0, 0, 1}, 64, 64)
	r.Render(list, cl)
	list.EndGraphicsPass()
	list.Close()

	if cl.State() != StateDrawn {
		t.Fatalf("state = %v, want drawn", cl.State())
	}

	uploads, draws := 0, 0
	for _, op := range list.Ops() {
		switch op.Kind {
		case command.OpUploadBuffer:
			uploads++
			if op.UploadBuffer == cmdBuf && len(op.UploadData) != 10*GPUCommandSize {
				t.Fatalf("command upload size %d, want %d", len(op.UploadData), 10*GPUCommandSize)
			}
		case command.OpDraw:
			draws++
			if op.VertexCount != 30 {
				t.Fatalf("draw vertex count %d, want 30 (three per command)", op.VertexCount)
			}
		}
	}
	if uploads != 1 {
		t.Fatalf("recorded %d uploads, want 1 (no clip rects pushed)", uploads)
	}
	if draws != 1 {
		t.Fatalf("recorded %d draws, want 1", draws)
	}
}

func buildRandomList(seed int64, n int) *CommandList {
	rng := rand.New(rand.NewSource(seed))
	cl := NewCommandList(n)
	for i := 0; i < n; i++ {
		x := float32(rng.Intn(120))
		y := float32(rng.Intn(120))
		c := colorful.Color{R: rng.Float64(), G: rng.Float64(), B: rng.Float64()}
		colors := Colors{TopLeft: c, TopRight: c, BottomLeft: c, BottomRight: c}
		switch rng.Intn(2) {
		case 0:
			cl.PushBox(uint8(rng.Intn(256)), uint8(rng.Intn(256)), BoxCommand{
				Rect:   MakeRect(x, y, x+8, y+8),
				Colors: colors,
			})
		default:
			cl.PushCircle(uint8(rng.Intn(256)), uint8(rng.Intn(256)), CircleCommand{
				Rect:   MakeRect(x, y, x+8, y+8),
				Colors: colors,
			})
		}
	}
	return cl
}

func TestSortAndRenderDeterministic(t *testing.T) {
	const n = 10000
	source := &fakeSource{bufSRV: map[handle.BufferHandle]uint32{}, texSRV: map[handle.TextureHandle]uint32{}}
	lookup := func(handle.TextureHandle) (*backend.Image, bool) { return nil, false }

	render := func() ([]uint32, []byte, []byte) {
		cl := buildRandomList(42, n)
		cl.Sort()
		keys := cl.SortedKeys()
		payload := cl.EncodeSorted(source)
		img := backend.NewImage(128, 128)
		Rasterize(cl, img, lookup)
		return keys, payload, img.Pixels
	}

	keysA, payloadA, pixelsA := render()
	keysB, payloadB, pixelsB := render()

	for i := range keysA {
		if keysA[i] != keysB[i] {
			t.Fatalf("sorted keys differ at %d: %08x vs %08x", i, keysA[i], keysB[i])
		}
	}
	if !bytes.Equal(payloadA, payloadB) {
		t.Fatalf("encoded command payloads differ across identical runs")
	}
	if !bytes.Equal(pixelsA, pixelsB) {
		t.Fatalf("rendered pixels differ across identical runs")
	}
}

func TestRasterizeBoxAndClip(t *testing.T) {
	cl := NewCommandList(8)
	clip := cl.PushClipRect(MakeRect(0, 0, 16, 32), [4]float32{})

	red := colorful.Color{R: 1}
	cl.PushBox(0, 0, BoxCommand{
		ClipRect: clip,
		Rect:     MakeRect(0, 0, 32, 32),
		Colors:   Colors{TopLeft: red, TopRight: red, BottomLeft: red, BottomRight: red},
	})
	cl.Sort()

	img := backend.NewImage(32, 32)
	Rasterize(cl, img, func(handle.TextureHandle) (*backend.Image, bool) { return nil, false })

	if got := img.At(8, 16); got[0] != 255 {
		t.Fatalf("pixel inside clip = %v, want red", got)
	}
	if got := img.At(24, 16); got[0] != 0 {
		t.Fatalf("pixel outside clip = %v, want untouched", got)
	}
}

func TestRasterizeCircleStaysInsideRect(t *testing.T) {
	cl := NewCommandList(4)
	green := colorful.Color{G: 1}
	cl.PushCircle(0, 0, CircleCommand{
		Rect:   MakeRect(8, 8, 24, 24),
		Colors: Colors{TopLeft: green, TopRight: green, BottomLeft: green, BottomRight: green},
	})
	cl.Sort()

	img := backend.NewImage(32, 32)
	Rasterize(cl, img, func(handle.TextureHandle) (*backend.Image, bool) { return nil, false })

	if got := img.At(16, 16); got[1] != 255 {
		t.Fatalf("circle center = %v, want green", got)
	}
	if got := img.At(9, 9); got[1] != 0 {
		t.Fatalf("rect corner = %v, want outside the circle", got)
	}
}
