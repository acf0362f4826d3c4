package images

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// Image is a committed image: the image handle, its dedicated device memory
// and a view covering the whole resource. State is the tracker's record of
// the image's current abstract state; callers update it as they transition.
type Image struct {
	Image     vk.Image
	Memory    vk.DeviceMemory
	View      vk.ImageView
	Format    vk.Format
	Width     uint32
	Height    uint32
	Depth     uint32
	Layers    uint32
	MipLevels uint32
	State     ImageState
}

// FindMemoryType scans the device's memory types for one that satisfies both
// the resource requirement bits and the requested property flags.
func FindMemoryType(memProps *vk.PhysicalDeviceMemoryProperties, typeBits uint32, props vk.MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) != 0 {
			memProps.MemoryTypes[i].Deref()
			if memProps.MemoryTypes[i].PropertyFlags&props == props {
				return i, true
			}
		}
	}
	return 0, false
}

// ImageOptions selects the shape of a committed image.
type ImageOptions struct {
	Width     uint32
	Height    uint32
	Depth     uint32 // 0 or 1 means 2D
	Layers    uint32 // 6 with CubeCompatible set makes a cubemap
	MipLevels uint32
	Format    vk.Format
	Usage     vk.ImageUsageFlags
	Cube      bool
}

// NewImage allocates an image with dedicated device-local memory and a view.
// The image starts in the Undefined state.
func NewImage(dev vk.Device, memProps *vk.PhysicalDeviceMemoryProperties, opts ImageOptions) (*Image, error) {
	depth := opts.Depth
	if depth == 0 {
		depth = 1
	}
	layers := opts.Layers
	if layers == 0 {
		layers = 1
	}
	mips := opts.MipLevels
	if mips == 0 {
		mips = 1
	}

	imageType := vk.ImageType2d
	viewType := vk.ImageViewType2d
	if depth > 1 {
		imageType = vk.ImageType3d
		viewType = vk.ImageViewType3d
	}
	var flags vk.ImageCreateFlags
	if opts.Cube {
		flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
		viewType = vk.ImageViewTypeCube
	}

	var image vk.Image
	if res := vk.CreateImage(dev, &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     flags,
		ImageType: imageType,
		Format:    opts.Format,
		Extent: vk.Extent3D{
			Width:  opts.Width,
			Height: opts.Height,
			Depth:  depth,
		},
		MipLevels:     mips,
		ArrayLayers:   layers,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         opts.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &image); res != vk.Success {
		return nil, fmt.Errorf("vkCreateImage failed: %d", res)
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(dev, image, &memReqs)
	memReqs.Deref()

	memType, ok := FindMemoryType(memProps, memReqs.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if !ok {
		vk.DestroyImage(dev, image, nil)
		return nil, fmt.Errorf("no device-local memory type for image")
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &memory); res != vk.Success {
		vk.DestroyImage(dev, image, nil)
		return nil, fmt.Errorf("vkAllocateMemory failed for image: %d", res)
	}
	vk.BindImageMemory(dev, image, memory, 0)

	var view vk.ImageView
	if res := vk.CreateImageView(dev, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: viewType,
		Format:   opts.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: mips,
			LayerCount: layers,
		},
	}, nil, &view); res != vk.Success {
		vk.FreeMemory(dev, memory, nil)
		vk.DestroyImage(dev, image, nil)
		return nil, fmt.Errorf("vkCreateImageView failed: %d", res)
	}

	return &Image{
		Image:     image,
		Memory:    memory,
		View:      view,
		Format:    opts.Format,
		Width:     opts.Width,
		Height:    opts.Height,
		Depth:     depth,
		Layers:    layers,
		MipLevels: mips,
		State:     StateUndefined,
	}, nil
}

// Transition moves the image to the given state and records the new state.
func (im *Image) Transition(cmd vk.CommandBuffer, after ImageState) {
	Transition(cmd, im.Image, im.State, after, im.Layers, 0, im.MipLevels)
	im.State = after
}

// Destroy releases the view, memory and image. Safe to call on a zero Image.
func (im *Image) Destroy(dev vk.Device) {
	if im == nil {
		return
	}
	if im.View != vk.NullImageView {
		vk.DestroyImageView(dev, im.View, nil)
		im.View = vk.NullImageView
	}
	if im.Image != vk.NullImage {
		vk.DestroyImage(dev, im.Image, nil)
		im.Image = vk.NullImage
	}
	if im.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(dev, im.Memory, nil)
		im.Memory = vk.NullDeviceMemory
	}
}
