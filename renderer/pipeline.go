package renderer

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// sliceUint32 reinterprets SPIR-V bytes as the word slice Vulkan expects.
func sliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// createShaderModule wraps a SPIR-V blob in a shader module.
func createShaderModule(dev vk.Device, spirv []byte) (vk.ShaderModule, error) {
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(dev, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(spirv)),
		PCode:    sliceUint32(spirv),
	}, nil, &module); res != vk.Success {
		return vk.NullShaderModule, fmt.Errorf("vkCreateShaderModule failed: %d", res)
	}
	return module, nil
}

// createQuadPipeline builds the one pipeline shape every pass and the blit
// use: a 4-vertex triangle strip with no vertex input, a fixed viewport
// flipped to put the origin at the bottom left, no depth, no blending.
func createQuadPipeline(
	dev vk.Device,
	layout vk.PipelineLayout,
	vertexShader, fragmentShader vk.ShaderModule,
	renderPass vk.RenderPass,
	width, height uint32,
) (vk.Pipeline, error) {
	shaderStages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertexShader,
			PName:  "main\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fragmentShader,
			PName:  "main\x00",
		},
	}

	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(dev, vk.PipelineCache(vk.NullHandle), 1,
		[]vk.GraphicsPipelineCreateInfo{{
			SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
			StageCount: uint32(len(shaderStages)),
			PStages:    shaderStages,
			PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
				SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
			},
			PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
				SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
				Topology: vk.PrimitiveTopologyTriangleStrip,
			},
			PViewportState: &vk.PipelineViewportStateCreateInfo{
				SType:         vk.StructureTypePipelineViewportStateCreateInfo,
				ViewportCount: 1,
				PViewports: []vk.Viewport{{
					Y:        float32(height),
					Width:    float32(width),
					Height:   -float32(height),
					MaxDepth: 1,
				}},
				ScissorCount: 1,
				PScissors: []vk.Rect2D{{
					Extent: vk.Extent2D{Width: width, Height: height},
				}},
			},
			PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
				SType:     vk.StructureTypePipelineRasterizationStateCreateInfo,
				CullMode:  vk.CullModeFlags(vk.CullModeNone),
				LineWidth: 1,
			},
			PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
				SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
				RasterizationSamples: vk.SampleCount1Bit,
			},
			PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
				SType: vk.StructureTypePipelineDepthStencilStateCreateInfo,
			},
			PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
				SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
				AttachmentCount: 1,
				PAttachments: []vk.PipelineColorBlendAttachmentState{{
					ColorWriteMask: vk.ColorComponentFlags(
						vk.ColorComponentRBit | vk.ColorComponentGBit |
							vk.ColorComponentBBit | vk.ColorComponentABit),
				}},
			},
			Layout:     layout,
			RenderPass: renderPass,
		}}, nil, pipelines)
	if res != vk.Success {
		return vk.NullPipeline, fmt.Errorf("vkCreateGraphicsPipelines failed: %d", res)
	}
	return pipelines[0], nil
}

// createColorRenderPass makes a single-subpass render pass over one color
// attachment that stays in the color-attachment layout; the state tracker
// owns all layout changes around it.
func createColorRenderPass(dev vk.Device, format vk.Format) (vk.RenderPass, error) {
	var renderPass vk.RenderPass
	if res := vk.CreateRenderPass(dev, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments: []vk.AttachmentDescription{{
			Format:         format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		}},
		SubpassCount: 1,
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: 1,
			PColorAttachments: []vk.AttachmentReference{{
				Attachment: 0,
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			}},
		}},
	}, nil, &renderPass); res != vk.Success {
		return vk.NullRenderPass, fmt.Errorf("vkCreateRenderPass failed: %d", res)
	}
	return renderPass, nil
}
