// Command rhi-ui-demo stresses the UI pipeline: it pushes thousands of
// randomly layered primitives, runs them through the sort-key single-draw
// path twice, verifies the two runs are byte-identical, and writes the
// reference-rasterized result to a PNG.
package main

import (
	"bytes"
	"context"
	"flag"
	"image"
	"image/png"
	"math/rand"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog"

	"github.com/ashfall-engine/rhi/handle"
	"github.com/ashfall-engine/rhi/internal/backend"
	"github.com/ashfall-engine/rhi/rhi"
	"github.com/ashfall-engine/rhi/ui"
)

func buildCommands(seed int64, n int, extent float32, cl *ui.CommandList) {
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		x := rng.Float32() * extent
		y := rng.Float32() * extent
		s := 8 + rng.Float32()*40
		layer := uint8(rng.Intn(256))
		sub := uint8(rng.Intn(256))

		c1 := colorful.Hsv(rng.Float64()*360, 0.7, 0.95)
		c2 := colorful.Hsv(rng.Float64()*360, 0.7, 0.6)
		colors := ui.Colors{TopLeft: c1, TopRight: c2, BottomLeft: c2, BottomRight: c1}

		if rng.Intn(3) == 0 {
			cl.PushCircle(layer, sub, ui.CircleCommand{
				Rect:   ui.MakeRect(x, y, x+s, y+s),
				Colors: colors,
			})
		} else {
			cl.PushBox(layer, sub, ui.BoxCommand{
				Rect:        ui.MakeRect(x, y, x+s, y+s),
				Roundedness: [4]float32{s / 4, s / 4, s / 4, s / 4},
				Colors:      colors,
			})
		}
	}
}

func main() {
	out := flag.String("o", "ui.png", "output image path")
	count := flag.Int("n", 10000, "number of UI commands")
	size := flag.Uint("size", 512, "backbuffer edge length")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg := rhi.DefaultConfig()
	cfg.UploadRingCapacity = 1 << 24
	cfg.DescriptorHeapPersistentCapacity = 1 << 12
	cfg.TransientArenaCapacity = 1 << 20
	cfg.ShadowMapResolution = 256
	cfg.BackbufferWidth = uint32(*size)
	cfg.BackbufferHeight = uint32(*size)
	cfg.Logger = logger

	dev, err := rhi.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("device init failed")
	}

	commandBuffer, err := dev.CreateBuffer(rhi.BufferDesc{
		Size:      uint32(*count) * ui.GPUCommandSize,
		Usage:     rhi.BufferUsageStructured,
		SRV:       &rhi.BufferSRVDesc{ElementCount: uint32(*count), ElementStride: ui.GPUCommandSize},
		Dynamic:   true,
		DebugName: "ui_commands",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("ui command buffer")
	}
	clipBuffer, err := dev.CreateBuffer(rhi.BufferDesc{
		Size:      256 * ui.GPUClipRectSize,
		Usage:     rhi.BufferUsageStructured,
		SRV:       &rhi.BufferSRVDesc{ElementCount: 256, ElementStride: ui.GPUClipRectSize},
		Dynamic:   true,
		DebugName: "ui_clip_rects",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("ui clip buffer")
	}
	uiPSO, err := dev.CreateGraphicsPSO(rhi.GraphicsPSODesc{
		VS:        []byte{0x01},
		PS:        []byte{0x02},
		RTVCount:  1,
		DebugName: "ui_pso",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("ui pso")
	}

	renderer := ui.NewRenderer(uiPSO, commandBuffer, clipBuffer, dev)
	lookup := func(h handle.TextureHandle) (*backend.Image, bool) { return dev.TexturePixels(h) }

	// Render the same scene twice; the sort and the rasterized output
	// must be byte-identical across runs.
	var keys [2][]uint32
	var pixels [2][]byte

	for run := 0; run < 2; run++ {
		cl := ui.NewCommandList(*count)
		buildCommands(*seed, *count, float32(*size), cl)

		var target *backend.Image
		err := dev.RunFrame(context.Background(), func(f *rhi.Frame) {
			list := f.List()
			list.BeginSimpleGraphicsPass(f.Backbuffer(), [4]float32{0.1, 0.1, 0.12, 1}, cfg.BackbufferWidth, cfg.BackbufferHeight)
			renderer.Render(list, cl)
			list.EndGraphicsPass()

			target, _ = dev.TexturePixels(f.Backbuffer())
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("ui frame failed")
		}

		// The software backend executes the clear; the reference
		// rasterizer evaluates the command buffer the way the UI pixel
		// shader would.
		ui.Rasterize(cl, target, lookup)

		keys[run] = cl.SortedKeys()
		pixels[run] = append([]byte(nil), target.Pixels...)
	}

	for i := range keys[0] {
		if keys[0][i] != keys[1][i] {
			logger.Fatal().Int("index", i).Msg("sorted keys differ across runs")
		}
	}
	if !bytes.Equal(pixels[0], pixels[1]) {
		logger.Fatal().Msg("rendered output differs across runs")
	}
	logger.Info().Int("commands", *count).Msg("two runs byte-identical")

	nrgba := &image.NRGBA{
		Pix:    pixels[0],
		Stride: int(*size) * 4,
		Rect:   image.Rect(0, 0, int(*size), int(*size)),
	}
	file, err := os.Create(*out)
	if err != nil {
		logger.Fatal().Err(err).Msg("create output")
	}
	defer file.Close()
	if err := png.Encode(file, nrgba); err != nil {
		logger.Fatal().Err(err).Msg("encode png")
	}
	logger.Info().Str("path", *out).Msg("ui demo rendered")
}
