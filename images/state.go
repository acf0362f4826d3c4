package images

import (
	vk "github.com/goki/vulkan"
)

// ImageState is the abstract state of an image as the renderer tracks it.
// The renderer promises an image is in exactly one of these states between
// commands; Transition converts between them by emitting a pipeline barrier.
type ImageState int

const (
	StateUndefined ImageState = iota
	StatePresent
	StateShaderResource
	StateRenderTarget
	StateTransferSrc
	StateTransferDst

	stateCount
)

// stateMapping is the synchronization scope for one abstract state.
type stateMapping struct {
	stageMask  vk.PipelineStageFlags
	accessMask vk.AccessFlags
	layout     vk.ImageLayout
}

// One entry per ImageState, in declaration order.
var imageStates = [stateCount]stateMapping{
	{vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0, vk.ImageLayoutUndefined},
	{vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferReadBit), vk.ImageLayoutPresentSrc},
	{vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), vk.AccessFlags(vk.AccessShaderReadBit), vk.ImageLayoutShaderReadOnlyOptimal},
	{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), vk.AccessFlags(vk.AccessColorAttachmentWriteBit), vk.ImageLayoutColorAttachmentOptimal},
	{vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferReadBit), vk.ImageLayoutTransferSrcOptimal},
	{vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferWriteBit), vk.ImageLayoutTransferDstOptimal},
}

// StateSync returns the fixed (stage mask, access mask, layout) triple for a
// state. It is a pure lookup; calling it has no side effects.
func StateSync(state ImageState) (vk.PipelineStageFlags, vk.AccessFlags, vk.ImageLayout) {
	m := imageStates[state]
	return m.stageMask, m.accessMask, m.layout
}

// Transition records an image memory barrier moving an image from the
// `before` state to the `after` state. It trusts the caller's claim about
// `before`: it computes synchronization scopes, it does not validate actual
// GPU state.
func Transition(cmd vk.CommandBuffer, image vk.Image, before, after ImageState, layerCount, baseMipLevel, mipLevels uint32) {
	mb := imageStates[before]
	ma := imageStates[after]

	vk.CmdPipelineBarrier(cmd, mb.stageMask, ma.stageMask, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       mb.accessMask,
		DstAccessMask:       ma.accessMask,
		OldLayout:           mb.layout,
		NewLayout:           ma.layout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   baseMipLevel,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     layerCount,
		},
	}})
}

// Clear zero-fills an image and leaves it in the ShaderResource state.
// Used to initialize placeholder images and render targets on first use so
// that shader reads never observe undefined memory.
func Clear(cmd vk.CommandBuffer, image vk.Image, layerCount uint32, before ImageState) {
	Transition(cmd, image, before, StateTransferDst, layerCount, 0, 1)

	var clearColor vk.ClearColorValue // zero value clears to black
	vk.CmdClearColorImage(cmd, image, vk.ImageLayoutTransferDstOptimal, &clearColor, 1, []vk.ImageSubresourceRange{{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: layerCount,
	}})

	Transition(cmd, image, StateTransferDst, StateShaderResource, layerCount, 0, 1)
}
