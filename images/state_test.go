package images

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestStateSyncTable(t *testing.T) {
	tests := []struct {
		state  ImageState
		stage  vk.PipelineStageFlagBits
		access vk.AccessFlags
		layout vk.ImageLayout
	}{
		{StateUndefined, vk.PipelineStageTopOfPipeBit, 0, vk.ImageLayoutUndefined},
		{StatePresent, vk.PipelineStageTransferBit, vk.AccessFlags(vk.AccessTransferReadBit), vk.ImageLayoutPresentSrc},
		{StateShaderResource, vk.PipelineStageFragmentShaderBit, vk.AccessFlags(vk.AccessShaderReadBit), vk.ImageLayoutShaderReadOnlyOptimal},
		{StateRenderTarget, vk.PipelineStageColorAttachmentOutputBit, vk.AccessFlags(vk.AccessColorAttachmentWriteBit), vk.ImageLayoutColorAttachmentOptimal},
		{StateTransferSrc, vk.PipelineStageTransferBit, vk.AccessFlags(vk.AccessTransferReadBit), vk.ImageLayoutTransferSrcOptimal},
		{StateTransferDst, vk.PipelineStageTransferBit, vk.AccessFlags(vk.AccessTransferWriteBit), vk.ImageLayoutTransferDstOptimal},
	}
	for _, tc := range tests {
		stage, access, layout := StateSync(tc.state)
		assert.Equal(t, vk.PipelineStageFlags(tc.stage), stage)
		assert.Equal(t, tc.access, access)
		assert.Equal(t, tc.layout, layout)
	}
}

func TestStateSyncIsStable(t *testing.T) {
	// Same input, same output, regardless of call order or repetition.
	for i := 0; i < 3; i++ {
		s1, a1, l1 := StateSync(StateRenderTarget)
		s2, a2, l2 := StateSync(StateRenderTarget)
		assert.Equal(t, s1, s2)
		assert.Equal(t, a1, a2)
		assert.Equal(t, l1, l2)
	}
}

func TestMipLevelsFor(t *testing.T) {
	assert.Equal(t, uint32(1), mipLevelsFor(1, 1))
	assert.Equal(t, uint32(9), mipLevelsFor(256, 256))
	assert.Equal(t, uint32(10), mipLevelsFor(512, 256))
	assert.Equal(t, uint32(2), mipLevelsFor(2, 1))
}
