package images

import (
	"encoding/binary"
	"fmt"
	"os"

	vk "github.com/goki/vulkan"
)

// VolumeHeader is the header of the binary volume format: a "BIN\x00" magic
// followed by four little-endian uint32 fields, then raw texels.
type VolumeHeader struct {
	Width    uint32
	Height   uint32
	Depth    uint32
	Channels uint32
}

const volumeHeaderSize = 20

var volumeFormats = [4]vk.Format{
	vk.FormatR8Unorm,
	vk.FormatR8g8Unorm,
	vk.FormatR8g8b8Unorm,
	vk.FormatR8g8b8a8Unorm,
}

// ParseVolume validates a volume blob and splits it into header and texels.
func ParseVolume(data []byte) (VolumeHeader, []byte, error) {
	var h VolumeHeader
	if len(data) < volumeHeaderSize {
		return h, nil, fmt.Errorf("volume data truncated: %d bytes", len(data))
	}
	if data[0] != 'B' || data[1] != 'I' || data[2] != 'N' || data[3] != 0 {
		return h, nil, fmt.Errorf("bad volume magic")
	}
	h.Width = binary.LittleEndian.Uint32(data[4:])
	h.Height = binary.LittleEndian.Uint32(data[8:])
	h.Depth = binary.LittleEndian.Uint32(data[12:])
	h.Channels = binary.LittleEndian.Uint32(data[16:])

	if h.Width == 0 || h.Height == 0 || h.Depth == 0 || h.Channels == 0 || h.Channels > 4 {
		return h, nil, fmt.Errorf("bad volume dimensions %dx%dx%d channels %d",
			h.Width, h.Height, h.Depth, h.Channels)
	}
	want := volumeHeaderSize + int(h.Width)*int(h.Height)*int(h.Depth)*int(h.Channels)
	if len(data) != want {
		return h, nil, fmt.Errorf("volume size mismatch: have %d bytes, want %d", len(data), want)
	}
	return h, data[volumeHeaderSize:], nil
}

// Format returns the image format matching the channel count.
func (h VolumeHeader) Format() vk.Format {
	return volumeFormats[h.Channels-1]
}

// LoadVolume reads a binary volume file into a 3D sampled image, ending in
// the ShaderResource state.
func LoadVolume(u *Uploader, path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	header, texels, err := ParseVolume(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	im, err := NewImage(u.Dev, u.MemProps, ImageOptions{
		Width:  header.Width,
		Height: header.Height,
		Depth:  header.Depth,
		Format: header.Format(),
		Usage:  vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit),
	})
	if err != nil {
		return nil, err
	}

	staging, err := NewBuffer(u.Dev, u.MemProps, vk.DeviceSize(len(texels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), true)
	if err != nil {
		im.Destroy(u.Dev)
		return nil, err
	}
	defer staging.Destroy(u.Dev)
	staging.Upload(texels)

	err = u.Run(func(cmd vk.CommandBuffer) {
		im.Transition(cmd, StateTransferDst)
		vk.CmdCopyBufferToImage(cmd, staging.Buffer, im.Image, vk.ImageLayoutTransferDstOptimal, 1,
			[]vk.BufferImageCopy{{
				BufferRowLength:   header.Width,
				BufferImageHeight: header.Height,
				ImageSubresource: vk.ImageSubresourceLayers{
					AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
					LayerCount: 1,
				},
				ImageExtent: vk.Extent3D{Width: header.Width, Height: header.Height, Depth: header.Depth},
			}})
		im.Transition(cmd, StateShaderResource)
	})
	if err != nil {
		im.Destroy(u.Dev)
		return nil, err
	}
	return im, nil
}
