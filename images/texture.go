package images

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	vk "github.com/goki/vulkan"
)

// Uploader bundles what one-shot transfer work needs: the device, its memory
// properties, a queue to submit on and a pool to allocate from.
type Uploader struct {
	Dev      vk.Device
	MemProps *vk.PhysicalDeviceMemoryProperties
	Queue    vk.Queue
	CmdPool  vk.CommandPool
}

// Run records fn into a one-shot command buffer, submits it and waits for the
// queue to drain before freeing the buffer.
func (u *Uploader) Run(fn func(cmd vk.CommandBuffer)) error {
	cmds := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(u.Dev, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        u.CmdPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmds); res != vk.Success {
		return fmt.Errorf("vkAllocateCommandBuffers failed: %d", res)
	}
	cmd := cmds[0]
	defer vk.FreeCommandBuffers(u.Dev, u.CmdPool, 1, cmds)

	vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	fn(cmd)
	vk.EndCommandBuffer(cmd)

	if res := vk.QueueSubmit(u.Queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    cmds,
	}}, vk.NullFence); res != vk.Success {
		return fmt.Errorf("vkQueueSubmit failed: %d", res)
	}
	vk.QueueWaitIdle(u.Queue)
	return nil
}

// mipLevelsFor is the full mip chain length for a w×h image.
func mipLevelsFor(w, h uint32) uint32 {
	levels := uint32(1)
	for w > 1 || h > 1 {
		w >>= 1
		h >>= 1
		levels++
	}
	return levels
}

// decodeRGBA reads an image file and returns tightly packed RGBA texels.
func decodeRGBA(path string, flipY bool) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)

	if flipY {
		h := rgba.Rect.Dy()
		stride := rgba.Stride
		tmp := make([]byte, stride)
		for y := 0; y < h/2; y++ {
			top := rgba.Pix[y*stride : (y+1)*stride]
			bot := rgba.Pix[(h-1-y)*stride : (h-y)*stride]
			copy(tmp, top)
			copy(top, bot)
			copy(bot, tmp)
		}
	}
	return rgba, nil
}

// LoadTexture loads a 2D texture from a png or jpeg file, uploads it through
// a staging buffer and builds the full mip chain on the GPU. The image ends
// in the ShaderResource state.
func LoadTexture(u *Uploader, path string, flipY bool) (*Image, error) {
	rgba, err := decodeRGBA(path, flipY)
	if err != nil {
		return nil, err
	}
	w := uint32(rgba.Rect.Dx())
	h := uint32(rgba.Rect.Dy())
	mips := mipLevelsFor(w, h)

	im, err := NewImage(u.Dev, u.MemProps, ImageOptions{
		Width:     w,
		Height:    h,
		MipLevels: mips,
		Format:    vk.FormatR8g8b8a8Unorm,
		Usage: vk.ImageUsageFlags(vk.ImageUsageSampledBit |
			vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit),
	})
	if err != nil {
		return nil, err
	}

	if err := uploadAndMip(u, im, [][]byte{rgba.Pix}); err != nil {
		im.Destroy(u.Dev)
		return nil, err
	}
	return im, nil
}

// LoadCubemap loads six face images (all the same size) into a cubemap.
func LoadCubemap(u *Uploader, facePaths [6]string, flipY bool) (*Image, error) {
	var pixels [][]byte
	var w, h uint32
	for i, p := range facePaths {
		rgba, err := decodeRGBA(p, flipY)
		if err != nil {
			return nil, err
		}
		fw := uint32(rgba.Rect.Dx())
		fh := uint32(rgba.Rect.Dy())
		if i == 0 {
			w, h = fw, fh
		} else if fw != w || fh != h {
			return nil, fmt.Errorf("cubemap face %s is %dx%d, want %dx%d", p, fw, fh, w, h)
		}
		pixels = append(pixels, rgba.Pix)
	}
	mips := mipLevelsFor(w, h)

	im, err := NewImage(u.Dev, u.MemProps, ImageOptions{
		Width:     w,
		Height:    h,
		Layers:    6,
		MipLevels: mips,
		Format:    vk.FormatR8g8b8a8Unorm,
		Usage: vk.ImageUsageFlags(vk.ImageUsageSampledBit |
			vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit),
		Cube: true,
	})
	if err != nil {
		return nil, err
	}

	if err := uploadAndMip(u, im, pixels); err != nil {
		im.Destroy(u.Dev)
		return nil, err
	}
	return im, nil
}

// uploadAndMip stages the level-0 texels for each layer, copies them into the
// image and blits the remaining mip levels, leaving the whole chain in the
// ShaderResource state.
func uploadAndMip(u *Uploader, im *Image, layerPixels [][]byte) error {
	layerSize := len(layerPixels[0])
	staging, err := NewBuffer(u.Dev, u.MemProps, vk.DeviceSize(layerSize*len(layerPixels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), true)
	if err != nil {
		return err
	}
	defer staging.Destroy(u.Dev)

	all := make([]byte, 0, layerSize*len(layerPixels))
	for _, p := range layerPixels {
		all = append(all, p...)
	}
	staging.Upload(all)

	return u.Run(func(cmd vk.CommandBuffer) {
		im.Transition(cmd, StateTransferDst)

		regions := make([]vk.BufferImageCopy, len(layerPixels))
		for i := range layerPixels {
			regions[i] = vk.BufferImageCopy{
				BufferOffset: vk.DeviceSize(i * layerSize),
				ImageSubresource: vk.ImageSubresourceLayers{
					AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
					BaseArrayLayer: uint32(i),
					LayerCount:     1,
				},
				ImageExtent: vk.Extent3D{Width: im.Width, Height: im.Height, Depth: 1},
			}
		}
		vk.CmdCopyBufferToImage(cmd, staging.Buffer, im.Image, vk.ImageLayoutTransferDstOptimal,
			uint32(len(regions)), regions)

		generateMips(cmd, im)
		im.State = StateShaderResource
	})
}

// generateMips downsamples each level from the previous by blit. On entry
// every level is TransferDst with level 0 filled; on exit the whole image is
// ShaderResource.
func generateMips(cmd vk.CommandBuffer, im *Image) {
	mipW := int32(im.Width)
	mipH := int32(im.Height)

	for level := uint32(1); level < im.MipLevels; level++ {
		nextW := mipW / 2
		if nextW < 1 {
			nextW = 1
		}
		nextH := mipH / 2
		if nextH < 1 {
			nextH = 1
		}

		Transition(cmd, im.Image, StateTransferDst, StateTransferSrc, im.Layers, level-1, 1)

		vk.CmdBlitImage(cmd, im.Image, vk.ImageLayoutTransferSrcOptimal,
			im.Image, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{{
				SrcSubresource: vk.ImageSubresourceLayers{
					AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
					MipLevel:   level - 1,
					LayerCount: im.Layers,
				},
				SrcOffsets: [2]vk.Offset3D{{}, {X: mipW, Y: mipH, Z: 1}},
				DstSubresource: vk.ImageSubresourceLayers{
					AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
					MipLevel:   level,
					LayerCount: im.Layers,
				},
				DstOffsets: [2]vk.Offset3D{{}, {X: nextW, Y: nextH, Z: 1}},
			}}, vk.FilterLinear)

		Transition(cmd, im.Image, StateTransferSrc, StateShaderResource, im.Layers, level-1, 1)
		mipW, mipH = nextW, nextH
	}

	Transition(cmd, im.Image, StateTransferDst, StateShaderResource, im.Layers, im.MipLevels-1, 1)
}
