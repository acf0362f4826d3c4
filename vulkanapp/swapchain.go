package vulkanapp

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// createSwapchain builds the swapchain for the current framebuffer size,
// preferring B8G8R8A8 unorm and FIFO (vsync) or immediate presentation.
func (a *App) createSwapchain() error {
	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(a.gpu, a.surface, &caps); res != vk.Success {
		return fmt.Errorf("vkGetPhysicalDeviceSurfaceCapabilities failed: %d", res)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(a.gpu, a.surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(a.gpu, a.surface, &formatCount, formats)

	format := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	found := false
	for i := range formats {
		formats[i].Deref()
		if formats[i].Format == vk.FormatB8g8r8a8Unorm {
			format = formats[i]
			found = true
			break
		}
	}
	if !found && formatCount > 0 {
		format = formats[0]
	}
	a.scFormat = format.Format

	fbWidth, fbHeight := a.window.GetFramebufferSize()
	extent := caps.CurrentExtent
	if extent.Width == 0xFFFFFFFF {
		extent = vk.Extent2D{Width: uint32(fbWidth), Height: uint32(fbHeight)}
	}
	if extent.Width < caps.MinImageExtent.Width {
		extent.Width = caps.MinImageExtent.Width
	}
	if extent.Height < caps.MinImageExtent.Height {
		extent.Height = caps.MinImageExtent.Height
	}

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	presentMode := vk.PresentModeFifo
	if !a.params.EnableVsync {
		var modeCount uint32
		vk.GetPhysicalDeviceSurfacePresentModes(a.gpu, a.surface, &modeCount, nil)
		modes := make([]vk.PresentMode, modeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(a.gpu, a.surface, &modeCount, modes)
		for _, mode := range modes {
			if mode == vk.PresentModeImmediate {
				presentMode = mode
				break
			}
		}
	}

	oldSwapchain := a.swapchain

	var swapchain vk.Swapchain
	if res := vk.CreateSwapchain(a.device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          a.surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage: vk.ImageUsageFlags(
			vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}, nil, &swapchain); res != vk.Success {
		return fmt.Errorf("vkCreateSwapchain failed: %d", res)
	}

	if oldSwapchain != vk.NullSwapchain {
		vk.DestroySwapchain(a.device, oldSwapchain, nil)
	}
	a.swapchain = swapchain
	a.width = extent.Width
	a.height = extent.Height

	var scCount uint32
	vk.GetSwapchainImages(a.device, a.swapchain, &scCount, nil)
	a.scImages = make([]vk.Image, scCount)
	vk.GetSwapchainImages(a.device, a.swapchain, &scCount, a.scImages)

	a.scViews = make([]vk.ImageView, scCount)
	for i, image := range a.scImages {
		var view vk.ImageView
		if res := vk.CreateImageView(a.device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   a.scFormat,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &view); res != vk.Success {
			return fmt.Errorf("vkCreateImageView failed for swapchain image: %d", res)
		}
		a.scViews[i] = view
	}
	return nil
}

// recreateSwapchain waits for the device and rebuilds the swapchain in
// place, reusing the old one as the replacement source.
func (a *App) recreateSwapchain() error {
	vk.DeviceWaitIdle(a.device)
	a.destroySwapchainViews()
	return a.createSwapchain()
}

func (a *App) destroySwapchainViews() {
	for _, view := range a.scViews {
		vk.DestroyImageView(a.device, view, nil)
	}
	a.scViews = nil
	a.scImages = nil
}

func (a *App) destroySwapchain() {
	a.destroySwapchainViews()
	if a.swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(a.device, a.swapchain, nil)
		a.swapchain = vk.NullSwapchain
	}
}
