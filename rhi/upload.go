package rhi

import (
	"context"
	"fmt"

	"github.com/ashfall-engine/rhi/handle"
	"github.com/ashfall-engine/rhi/internal/backend"
)

// UploadTextureAsync stages a full top-mip subresource into h through the
// upload ring on the copy queue. data is rowStride bytes per row
// (rowStride 0 means tightly packed). Blocks when the ring is saturated.
func (d *Device) UploadTextureAsync(ctx context.Context, h handle.TextureHandle, data []byte, rowStride uint32) error {
	res, ok := d.textures.Get(h, "UploadTextureAsync")
	if !ok {
		return fmt.Errorf("rhi: upload to dead texture %v", h)
	}
	if res.image == nil {
		return fmt.Errorf("rhi: texture %q has no uploadable pixel storage", res.desc.DebugName)
	}
	return d.uploadTexturePixels(ctx, res, data, rowStride)
}

// uploadTexturePixels reserves ring space for the subresource, stages the
// caller's rows through it and commits the copy on the copy fence. Large
// subresources are staged in row-aligned chunks so a texture bigger than
// the ring still uploads, chunk by chunk, each chunk fence-retired like
// any other submission.
func (d *Device) uploadTexturePixels(ctx context.Context, res *textureResource, data []byte, rowStride uint32) error {
	img := res.image
	rowBytes := uint32(img.Width * 4)
	if rowStride == 0 {
		rowStride = rowBytes
	}

	rowsPerChunk := d.cfg.UploadRingCapacity / rowBytes
	if rowsPerChunk == 0 {
		return fmt.Errorf("rhi: texture row of %d bytes exceeds upload ring capacity", rowBytes)
	}

	for row := uint32(0); row < uint32(img.Height); row += rowsPerChunk {
		rows := rowsPerChunk
		if row+rows > uint32(img.Height) {
			rows = uint32(img.Height) - row
		}

		sub, err := d.ring.Begin(ctx, rows*rowBytes, 256)
		if err != nil {
			return err
		}

		staged := d.ringMem[sub.Offset : sub.Offset+sub.Size]
		for r := uint32(0); r < rows; r++ {
			src := int((row + r) * rowStride)
			if src+int(rowBytes) > len(data) {
				break
			}
			copy(staged[r*rowBytes:(r+1)*rowBytes], data[src:src+int(rowBytes)])
		}

		copyStagedRows(img, staged, int(row), int(rows))

		value := d.ring.End(sub)
		d.copyFence.Signal(value)
	}
	return nil
}

// copyStagedRows is the copy-queue side of a texture upload: tightly
// packed staged rows land in the destination image starting at firstRow.
func copyStagedRows(img *backend.Image, staged []byte, firstRow, rows int) {
	rowBytes := img.Width * 4
	for r := 0; r < rows; r++ {
		dst := (firstRow + r) * rowBytes
		src := r * rowBytes
		if src+rowBytes > len(staged) || dst+rowBytes > len(img.Pixels) {
			return
		}
		copy(img.Pixels[dst:dst+rowBytes], staged[src:src+rowBytes])
	}
}
