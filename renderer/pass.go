package renderer

import (
	"fmt"
	"log"

	vk "github.com/goki/vulkan"

	"github.com/richinsley/goshaderproj/compiler"
	"github.com/richinsley/goshaderproj/images"
	"github.com/richinsley/goshaderproj/project"
)

// commonResources is everything a pass needs to resolve its bindings: the
// shared render-target slots, the placeholder views bound to unresolvable
// channels and the constant buffer.
type commonResources struct {
	width          uint32
	height         uint32
	dev            vk.Device
	constantBuffer vk.Buffer
	defaultSampler vk.Sampler
	dummyTexture   vk.ImageView
	dummyCubemap   vk.ImageView
	dummyVolume    vk.ImageView
	slots          *[RenderImageCount]*images.Image
}

// Pass is the runtime state of one render pass: its compiled shader, its
// per-channel samplers and static inputs, and a descriptor set, framebuffer
// and render-target slot for each parity.
type Pass struct {
	decl        project.PassDecl
	programName string
	programDir  string
	inputDecls  string
	outputID    string

	spirv      []byte
	fragShader vk.ShaderModule
	pipeline   vk.Pipeline

	samplers     [project.MaxPassInputs]vk.Sampler
	staticInputs [project.MaxPassInputs]*images.Image

	descriptorSets      [HistoryLength]vk.DescriptorSet
	framebuffers        [HistoryLength]vk.Framebuffer
	renderTargetViews   [HistoryLength]vk.ImageView
	renderTargetIndices [HistoryLength]int

	push PushConstants
}

func newPass(programName, programDir string, decl project.PassDecl) *Pass {
	return &Pass{
		decl:        decl,
		programName: programName,
		programDir:  programDir,
		inputDecls:  compiler.InputDeclarations(decl.Inputs),
		outputID:    decl.OutputID(),
	}
}

// OutputID is the buffer id this pass renders.
func (p *Pass) OutputID() string { return p.outputID }

// RenderTargetIndex is the slot the pass writes at the given parity.
func (p *Pass) RenderTargetIndex(parity int) int { return p.renderTargetIndices[parity] }

// Compile builds the pass shader from preamble + input declarations +
// common source + pass source.
func (p *Pass) Compile(commonSource string) error {
	spirv, err := compiler.CompileFile(p.decl.ShaderPath(p.programDir),
		compiler.Preamble, p.inputDecls, commonSource)
	if err != nil {
		return err
	}
	p.spirv = spirv
	return nil
}

func (p *Pass) createFragmentShader(dev vk.Device) error {
	p.destroyFragmentShader(dev)
	module, err := createShaderModule(dev, p.spirv)
	if err != nil {
		return fmt.Errorf("pass '%s' of program '%s': %w", p.decl.Code, p.programName, err)
	}
	p.fragShader = module
	return nil
}

func (p *Pass) destroyFragmentShader(dev vk.Device) {
	if p.fragShader != vk.NullShaderModule {
		vk.DestroyShaderModule(dev, p.fragShader, nil)
		p.fragShader = vk.NullShaderModule
	}
}

// loadInputs creates the per-channel samplers and loads static assets
// through the cache. Failures bind the placeholder and are not fatal.
func (p *Pass) loadInputs(u *images.Uploader, cache *images.Cache, projectPath string) {
	for _, in := range p.decl.Inputs {
		if in.Channel < 0 || in.Channel >= project.MaxPassInputs {
			log.Printf("WARNING: program '%s' uses channel %d, outside the supported range",
				p.programName, in.Channel)
			continue
		}

		samplerInfo := vk.SamplerCreateInfo{
			SType:  vk.StructureTypeSamplerCreateInfo,
			MaxLod: 1000, // no clamp, sample the whole mip chain
		}
		switch in.Sampler.Filter {
		case "linear":
			samplerInfo.MinFilter = vk.FilterLinear
			samplerInfo.MagFilter = vk.FilterLinear
			samplerInfo.MipmapMode = vk.SamplerMipmapModeNearest
		case "mipmap":
			samplerInfo.MinFilter = vk.FilterLinear
			samplerInfo.MagFilter = vk.FilterLinear
			samplerInfo.MipmapMode = vk.SamplerMipmapModeLinear
		case "nearest":
			samplerInfo.MinFilter = vk.FilterNearest
			samplerInfo.MagFilter = vk.FilterNearest
			samplerInfo.MipmapMode = vk.SamplerMipmapModeNearest
		default:
			log.Printf("WARNING: unknown filter mode '%s'", in.Sampler.Filter)
		}
		addressMode := vk.SamplerAddressModeRepeat
		if in.Sampler.Wrap == "clamp" {
			addressMode = vk.SamplerAddressModeClampToEdge
		}
		samplerInfo.AddressModeU = addressMode
		samplerInfo.AddressModeV = addressMode
		samplerInfo.AddressModeW = addressMode

		var sampler vk.Sampler
		if res := vk.CreateSampler(u.Dev, &samplerInfo, nil, &sampler); res == vk.Success {
			p.samplers[in.Channel] = sampler
		}

		if len(in.Filepath) <= 1 {
			continue
		}

		flipY := in.Sampler.VFlip == "true"
		var im *images.Image
		var err error
		switch in.Type {
		case "texture", "volume":
			im, err = cache.Load(u, in.AssetPath(projectPath), flipY)
		case "cubemap":
			im, err = cache.LoadCubemap(u, in.AssetPath(projectPath), flipY)
		default:
			continue
		}
		if err != nil {
			log.Printf("WARNING: program '%s' failed to load '%s': %v",
				p.programName, in.Filepath, err)
			continue
		}
		p.staticInputs[in.Channel] = im
	}
}

func (p *Pass) allocateDescriptorSets(dev vk.Device, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) error {
	for parity := 0; parity < HistoryLength; parity++ {
		sets := make([]vk.DescriptorSet, 1)
		if res := vk.AllocateDescriptorSets(dev, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout},
		}, &sets[0]); res != vk.Success {
			return fmt.Errorf("vkAllocateDescriptorSets failed: %d", res)
		}
		p.descriptorSets[parity] = sets[0]
	}
	return nil
}

// createBindingSets resolves every channel for both parities and writes the
// descriptor sets. passIndex is this pass's position in the program, which
// is also its output slot pair.
func (p *Pass) createBindingSets(common *commonResources, passes []*Pass, passIndex int) {
	outputIDs := make([]string, len(passes))
	for i, pass := range passes {
		outputIDs[i] = pass.outputID
	}

	for parity := 0; parity < HistoryLength; parity++ {
		var imageInfos [project.MaxPassInputs]vk.DescriptorImageInfo
		for channel := 0; channel < project.MaxPassInputs; channel++ {
			sampler := p.samplers[channel]
			if sampler == vk.NullSampler {
				sampler = common.defaultSampler
			}
			imageInfos[channel] = vk.DescriptorImageInfo{
				Sampler:     sampler,
				ImageView:   common.dummyTexture,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}
		}

		for _, in := range p.decl.Inputs {
			if in.Channel < 0 || in.Channel >= project.MaxPassInputs {
				continue
			}

			var view vk.ImageView
			var inputSize [3]int

			switch {
			case p.staticInputs[in.Channel] != nil:
				im := p.staticInputs[in.Channel]
				view = im.View
				inputSize = [3]int{int(im.Width), int(im.Height), int(im.Depth)}
			case in.Type == "cubemap":
				view = common.dummyCubemap
			case in.Type == "volume":
				view = common.dummyVolume
			case in.Type == "buffer":
				slot, source, ok := ResolveBuffer(outputIDs, passIndex, in.ID, parity)
				if ok {
					view = common.slots[slot].View
					inputSize = [3]int{int(common.width), int(common.height), 1}
					if source > passIndex && parity == 0 {
						log.Printf("WARNING: program '%s' pass %d reads buffer '%s' rendered later in the frame; it will see the previous frame's output",
							p.programName, passIndex, in.ID)
					}
				} else {
					log.Printf("ERROR: program '%s' cannot find input buffer with id = %s",
						p.programName, in.ID)
				}
			}

			if view != vk.NullImageView {
				imageInfos[in.Channel].ImageView = view
			}

			p.push.ChannelResolution[in.Channel][0] = float32(inputSize[0])
			p.push.ChannelResolution[in.Channel][1] = float32(inputSize[1])
			p.push.ChannelResolution[in.Channel][2] = float32(inputSize[2])
		}

		writes := make([]vk.WriteDescriptorSet, 0, project.MaxPassInputs+1)
		for channel := 0; channel < project.MaxPassInputs; channel++ {
			writes = append(writes, vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          p.descriptorSets[parity],
				DstBinding:      uint32(channel),
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
				PImageInfo:      []vk.DescriptorImageInfo{imageInfos[channel]},
			})
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          p.descriptorSets[parity],
			DstBinding:      uint32(project.MaxPassInputs),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: common.constantBuffer,
				Range:  vk.DeviceSize(UniformsSize),
			}},
		})
		vk.UpdateDescriptorSets(common.dev, uint32(len(writes)), writes, 0, nil)

		p.renderTargetIndices[parity] = Slot(passIndex, parity)
		p.renderTargetViews[parity] = common.slots[p.renderTargetIndices[parity]].View
	}
}

// createPipelineAndFramebuffers builds the pass pipeline and one framebuffer
// per parity over the slots chosen by createBindingSets.
func (p *Pass) createPipelineAndFramebuffers(
	dev vk.Device,
	vertexShader vk.ShaderModule,
	layout vk.PipelineLayout,
	renderPass vk.RenderPass,
	width, height uint32,
) error {
	p.destroyPipelineAndFramebuffers(dev)

	for parity := 0; parity < HistoryLength; parity++ {
		var framebuffer vk.Framebuffer
		if res := vk.CreateFramebuffer(dev, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{p.renderTargetViews[parity]},
			Width:           width,
			Height:          height,
			Layers:          1,
		}, nil, &framebuffer); res != vk.Success {
			return fmt.Errorf("vkCreateFramebuffer failed: %d", res)
		}
		p.framebuffers[parity] = framebuffer
	}

	pipeline, err := createQuadPipeline(dev, layout, vertexShader, p.fragShader, renderPass, width, height)
	if err != nil {
		return err
	}
	p.pipeline = pipeline
	return nil
}

func (p *Pass) destroyPipelineAndFramebuffers(dev vk.Device) {
	for parity := range p.framebuffers {
		if p.framebuffers[parity] != vk.NullFramebuffer {
			vk.DestroyFramebuffer(dev, p.framebuffers[parity], nil)
			p.framebuffers[parity] = vk.NullFramebuffer
		}
	}
	if p.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(dev, p.pipeline, nil)
		p.pipeline = vk.NullPipeline
	}
}

// cleanup releases everything the pass owns. Static inputs belong to the
// asset cache and are not destroyed here.
func (p *Pass) cleanup(dev vk.Device) {
	p.destroyPipelineAndFramebuffers(dev)
	p.destroyFragmentShader(dev)

	for i, sampler := range p.samplers {
		if sampler != vk.NullSampler {
			vk.DestroySampler(dev, sampler, nil)
			p.samplers[i] = vk.NullSampler
		}
	}
}
