// Command rhi-triangle renders the canonical first-light scene — one
// textured, vertex-colored triangle — through the full RHI stack on the
// software backend and writes the backbuffer to a PNG.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/rs/zerolog"

	"github.com/ashfall-engine/rhi/command"
	"github.com/ashfall-engine/rhi/format"
	"github.com/ashfall-engine/rhi/handle"
	"github.com/ashfall-engine/rhi/rhi"
)

func floatBytes(vals ...float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func checkerboard(n int) []byte {
	pixels := make([]byte, n*n*4)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := (y*n + x) * 4
			v := byte(255)
			if (x/4+y/4)%2 == 0 {
				v = 160
			}
			pixels[i+0] = v
			pixels[i+1] = v
			pixels[i+2] = v
			pixels[i+3] = 255
		}
	}
	return pixels
}

func main() {
	out := flag.String("o", "triangle.png", "output image path")
	size := flag.Uint("size", 512, "backbuffer edge length")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg := rhi.DefaultConfig()
	cfg.UploadRingCapacity = 1 << 20
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

	positions, err := dev.CreateBuffer(rhi.BufferDesc{
		Size:        36,
		Usage:       rhi.BufferUsageStructured,
		SRV:         &rhi.BufferSRVDesc{ElementCount: 3, ElementStride: 12},
		InitialData: floatBytes(-0.6, -0.5, 0, 0.6, -0.5, 0, 0, 0.6, 0),
		DebugName:   "triangle_positions",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("positions buffer")
	}
	colors, err := dev.CreateBuffer(rhi.BufferDesc{
		Size:        48,
		Usage:       rhi.BufferUsageStructured,
		SRV:         &rhi.BufferSRVDesc{ElementCount: 3, ElementStride: 16},
		InitialData: floatBytes(1, 0, 0, 1, 0, 1, 0, 1, 0, 0, 1, 1),
		DebugName:   "triangle_colors",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("colors buffer")
	}
	uvs, err := dev.CreateBuffer(rhi.BufferDesc{
		Size:        24,
		Usage:       rhi.BufferUsageStructured,
		SRV:         &rhi.BufferSRVDesc{ElementCount: 3, ElementStride: 8},
		InitialData: floatBytes(0, 1, 1, 1, 0.5, 0),
		DebugName:   "triangle_uvs",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("uvs buffer")
	}

	const texSize = 32
	albedo, err := dev.CreateTexture(rhi.TextureDesc{
		Dimension:   rhi.Texture2D,
		Width:       texSize,
		Height:      texSize,
		Depth:       1,
		MipCount:    1,
		SampleCount: 1,
		Format:      format.RGBA8Unorm,
		InitialData: [][]byte{checkerboard(texSize)},
		RowStride:   texSize * 4,
		DebugName:   "triangle_albedo",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("albedo texture")
	}

	pso, err := dev.CreateGraphicsPSO(rhi.GraphicsPSODesc{
		VS:          []byte{0x01},
		PS:          []byte{0x02},
		RTVFormats:  [8]format.Format{cfg.BackbufferFormat},
		RTVCount:    1,
		SampleCount: 1,
		DebugName:   "triangle_pso",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("pso")
	}

	var backbuffer handle.TextureHandle
	err = dev.RunFrame(context.Background(), func(f *rhi.Frame) {
		backbuffer = f.Backbuffer()
		list := f.List()

		list.BeginSimpleGraphicsPass(backbuffer, [4]float32{0.15, 0.25, 0.15, 1}, cfg.BackbufferWidth, cfg.BackbufferHeight)
		list.SetPSO(pso)

		pass := make([]byte, 12)
		binary.LittleEndian.PutUint32(pass[0:], dev.GetBufferSRV(positions))
		binary.LittleEndian.PutUint32(pass[4:], dev.GetBufferSRV(colors))
		binary.LittleEndian.PutUint32(pass[8:], dev.GetBufferSRV(uvs))
		list.SetParameters(command.SlotPass, pass)

		draw := make([]byte, 36)
		copy(draw[16:32], floatBytes(1, 1, 1, 1))
		binary.LittleEndian.PutUint32(draw[32:], dev.GetTextureSRV(albedo))
		list.SetParameters(command.SlotDraw, draw)

		list.Draw(3, 0)
		list.EndGraphicsPass()
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("frame failed")
	}

	img, ok := dev.TexturePixels(backbuffer)
	if !ok {
		logger.Fatal().Msg("backbuffer has no pixels")
	}

	nrgba := &image.NRGBA{
		Pix:    img.Pixels,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
	file, err := os.Create(*out)
	if err != nil {
		logger.Fatal().Err(err).Msg("create output")
	}
	defer file.Close()
	if err := png.Encode(file, nrgba); err != nil {
		logger.Fatal().Err(err).Msg("encode png")
	}

	logger.Info().Str("path", *out).Msg("triangle rendered")
}
