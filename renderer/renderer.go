package renderer

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/richinsley/goshaderproj/compiler"
	"github.com/richinsley/goshaderproj/images"
	"github.com/richinsley/goshaderproj/project"
	"github.com/richinsley/goshaderproj/vulkanapp"
)

// targetFormat is the format of the shared render targets. Wider than the
// swap chain so feedback loops keep precision across frames.
const targetFormat = vk.FormatR16g16b16a16Sfloat

type point2D struct {
	x, y float64
}

// Renderer owns the shared GPU resources and executes the scripted programs
// frame by frame. It implements vulkanapp.Handler.
type Renderer struct {
	app         *vulkanapp.App
	programs    []*Program
	projectPath string
	cache       *images.Cache

	script          []project.ScriptEntry
	scriptIndex     int
	activeProgram   int
	currentDuration float64
	currentTime     float64
	currentDelta    float64

	frameIndex           int32
	paused               bool
	resetRequired        bool
	staticResourcesInitd bool
	bufferLayoutInitd    bool
	swapchainLayoutInitd []bool
	reloadRequested      atomic.Bool

	mouseDown      bool
	mousePos       point2D
	mouseLast      point2D
	mouseDragStart point2D

	dummyTexture *images.Image
	dummyCubemap *images.Image
	dummyVolume  *images.Image
	constants    *images.Buffer
	slots        [RenderImageCount]*images.Image

	defaultSampler vk.Sampler
	descriptorPool vk.DescriptorPool

	passSetLayout      vk.DescriptorSetLayout
	passPipelineLayout vk.PipelineLayout
	passRenderPass     vk.RenderPass

	blitSetLayout      vk.DescriptorSetLayout
	blitPipelineLayout vk.PipelineLayout
	blitRenderPass     vk.RenderPass
	blitPipeline       vk.Pipeline
	blitSets           [RenderImageCount]vk.DescriptorSet

	swapchainFramebuffers []vk.Framebuffer

	quadSpirv      []byte
	blitSpirv      []byte
	vertexShader   vk.ShaderModule
	blitFragShader vk.ShaderModule
}

// New wraps the loaded programs for execution on the given app.
func New(app *vulkanapp.App, programs []*Program, projectPath string) *Renderer {
	return &Renderer{
		app:           app,
		programs:      programs,
		projectPath:   projectPath,
		cache:         images.NewCache(),
		resetRequired: true,
	}
}

// CompileShaders compiles every program, marking each runnable or not.
// Returns true when at least one program is runnable.
func (r *Renderer) CompileShaders() bool {
	anyRunnable := false
	for _, prog := range r.programs {
		if prog.Compile() {
			anyRunnable = true
		} else {
			log.Printf("WARNING: program '%s' is disabled until its shaders compile.", prog.Name)
		}
	}
	return anyRunnable
}

// SetScript resolves script entries against the loaded programs. Entries
// naming unloaded programs are dropped with a warning. Entries whose program
// failed to compile stay in the script so a reload can revive them, but
// rotation passes over them; activation fails when nothing is playable.
func (r *Renderer) SetScript(script []project.ScriptEntry, baseInterval float64) error {
	for _, entry := range script {
		entry.Duration *= baseInterval
		entry.ProgramIndex = -1

		for i, prog := range r.programs {
			if prog.Name == entry.ProgramName {
				entry.ProgramIndex = i
				break
			}
		}
		if entry.ProgramIndex < 0 {
			log.Printf("WARNING: program '%s' used in the script was not loaded.", entry.ProgramName)
			continue
		}
		if !r.programs[entry.ProgramIndex].Runnable {
			log.Printf("WARNING: program '%s' used in the script failed to compile; skipped until a reload fixes it.", entry.ProgramName)
		}

		r.script = append(r.script, entry)
	}

	start := r.firstRunnableEntry()
	if start < 0 {
		return fmt.Errorf("no playable programs in the script")
	}

	r.scriptIndex = start
	r.activeProgram = r.script[start].ProgramIndex
	r.currentDuration = r.script[start].Duration
	return nil
}

func (r *Renderer) firstRunnableEntry() int {
	for i, entry := range r.script {
		if r.programs[entry.ProgramIndex].Runnable {
			return i
		}
	}
	return -1
}

// Init creates the shared GPU objects: placeholder images, the constant
// buffer, layouts, render passes, descriptor sets and static inputs.
func (r *Renderer) Init() error {
	dev := r.app.Device()
	memProps := r.app.MemProps()

	var err error
	r.dummyTexture, err = images.NewImage(dev, memProps, images.ImageOptions{
		Width: 1, Height: 1,
		Format: vk.FormatR8g8b8a8Unorm,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
	})
	if err != nil {
		return err
	}
	r.dummyCubemap, err = images.NewImage(dev, memProps, images.ImageOptions{
		Width: 1, Height: 1, Layers: 6, Cube: true,
		Format: vk.FormatR8g8b8a8Unorm,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
	})
	if err != nil {
		return err
	}
	r.dummyVolume, err = images.NewImage(dev, memProps, images.ImageOptions{
		Width: 1, Height: 1, Depth: 2,
		Format: vk.FormatR8g8b8a8Unorm,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
	})
	if err != nil {
		return err
	}

	r.constants, err = images.NewBuffer(dev, memProps, vk.DeviceSize(UniformsSize),
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit|vk.BufferUsageUniformBufferBit), false)
	if err != nil {
		return err
	}

	if res := vk.CreateSampler(dev, &vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MinFilter:    vk.FilterLinear,
		MagFilter:    vk.FilterLinear,
		MipmapMode:   vk.SamplerMipmapModeLinear,
		AddressModeU: vk.SamplerAddressModeClampToEdge,
		AddressModeV: vk.SamplerAddressModeClampToEdge,
		AddressModeW: vk.SamplerAddressModeClampToEdge,
	}, nil, &r.defaultSampler); res != vk.Success {
		return fmt.Errorf("vkCreateSampler failed: %d", res)
	}

	if err := r.createShaderObjects(); err != nil {
		return err
	}
	if err := r.createLayouts(); err != nil {
		return err
	}
	if err := r.createDescriptorSets(); err != nil {
		return err
	}

	uploader := r.app.Uploader()
	for _, prog := range r.programs {
		prog.loadInputs(uploader, r.cache, r.projectPath)
	}
	return nil
}

// createShaderObjects (re)builds the vertex and blit shader modules plus
// every runnable program's fragment shaders.
func (r *Renderer) createShaderObjects() error {
	dev := r.app.Device()
	r.destroyShaderObjects()

	var err error
	if r.quadSpirv == nil {
		r.quadSpirv, err = compiler.CompileSource("quad.vert", quadVertexSource)
		if err != nil {
			return err
		}
	}
	if r.blitSpirv == nil {
		r.blitSpirv, err = compiler.CompileSource("blit.frag", blitFragmentSource)
		if err != nil {
			return err
		}
	}

	if r.vertexShader, err = createShaderModule(dev, r.quadSpirv); err != nil {
		return err
	}
	if r.blitFragShader, err = createShaderModule(dev, r.blitSpirv); err != nil {
		return err
	}

	for _, prog := range r.programs {
		if !prog.Runnable {
			continue
		}
		if err := prog.createFragmentShaders(dev); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) destroyShaderObjects() {
	dev := r.app.Device()
	if r.vertexShader != vk.NullShaderModule {
		vk.DestroyShaderModule(dev, r.vertexShader, nil)
		r.vertexShader = vk.NullShaderModule
	}
	if r.blitFragShader != vk.NullShaderModule {
		vk.DestroyShaderModule(dev, r.blitFragShader, nil)
		r.blitFragShader = vk.NullShaderModule
	}
}

func (r *Renderer) createLayouts() error {
	dev := r.app.Device()

	pushRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		Size:       PushConstantsSize,
	}

	// Blit: one sampled image.
	if res := vk.CreateDescriptorSetLayout(dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		}},
	}, nil, &r.blitSetLayout); res != vk.Success {
		return fmt.Errorf("vkCreateDescriptorSetLayout failed: %d", res)
	}

	if res := vk.CreatePipelineLayout(dev, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{r.blitSetLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushRange},
	}, nil, &r.blitPipelineLayout); res != vk.Success {
		return fmt.Errorf("vkCreatePipelineLayout failed: %d", res)
	}

	// Pass: four channels plus the shared uniform block.
	passBindings := make([]vk.DescriptorSetLayoutBinding, 0, project.MaxPassInputs+1)
	for channel := 0; channel < project.MaxPassInputs; channel++ {
		passBindings = append(passBindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(channel),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		})
	}
	passBindings = append(passBindings, vk.DescriptorSetLayoutBinding{
		Binding:         uint32(project.MaxPassInputs),
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	})

	if res := vk.CreateDescriptorSetLayout(dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(passBindings)),
		PBindings:    passBindings,
	}, nil, &r.passSetLayout); res != vk.Success {
		return fmt.Errorf("vkCreateDescriptorSetLayout failed: %d", res)
	}

	if res := vk.CreatePipelineLayout(dev, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{r.passSetLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushRange},
	}, nil, &r.passPipelineLayout); res != vk.Success {
		return fmt.Errorf("vkCreatePipelineLayout failed: %d", res)
	}

	var err error
	if r.passRenderPass, err = createColorRenderPass(dev, targetFormat); err != nil {
		return err
	}
	blitFormat := r.app.SwapChainFormat()
	if blitFormat == vk.Format(0) {
		blitFormat = vk.FormatB8g8r8a8Unorm
	}
	if r.blitRenderPass, err = createColorRenderPass(dev, blitFormat); err != nil {
		return err
	}
	return nil
}

func (r *Renderer) createDescriptorSets() error {
	dev := r.app.Device()

	numProgramSets := uint32(len(r.programs)) * RenderImageCount
	numBlitSets := uint32(RenderImageCount)

	if res := vk.CreateDescriptorPool(dev, &vk.DescriptorPoolCreateInfo{
		SType:   vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets: numProgramSets + numBlitSets,
		PPoolSizes: []vk.DescriptorPoolSize{
			{
				Type:            vk.DescriptorTypeCombinedImageSampler,
				DescriptorCount: numProgramSets*project.MaxPassInputs + numBlitSets,
			},
			{
				Type:            vk.DescriptorTypeUniformBuffer,
				DescriptorCount: numProgramSets,
			},
		},
		PoolSizeCount: 2,
	}, nil, &r.descriptorPool); res != vk.Success {
		return fmt.Errorf("vkCreateDescriptorPool failed: %d", res)
	}

	for i := 0; i < RenderImageCount; i++ {
		if res := vk.AllocateDescriptorSets(dev, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     r.descriptorPool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{r.blitSetLayout},
		}, &r.blitSets[i]); res != vk.Success {
			return fmt.Errorf("vkAllocateDescriptorSets failed: %d", res)
		}
	}

	for _, prog := range r.programs {
		for _, pass := range prog.Passes {
			if err := pass.allocateDescriptorSets(dev, r.descriptorPool, r.passSetLayout); err != nil {
				return err
			}
		}
	}
	return nil
}

// createBuffersAndBindings allocates the shared render targets for the
// current size and re-resolves every program's bindings against them.
func (r *Renderer) createBuffersAndBindings(width, height uint32) error {
	dev := r.app.Device()
	memProps := r.app.MemProps()

	for i := range r.slots {
		im, err := images.NewImage(dev, memProps, images.ImageOptions{
			Width: width, Height: height,
			Format: targetFormat,
			Usage: vk.ImageUsageFlags(vk.ImageUsageTransferDstBit |
				vk.ImageUsageTransferSrcBit |
				vk.ImageUsageSampledBit | vk.ImageUsageColorAttachmentBit),
		})
		if err != nil {
			return err
		}
		r.slots[i] = im

		vk.UpdateDescriptorSets(dev, 1, []vk.WriteDescriptorSet{{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          r.blitSets[i],
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				Sampler:     r.defaultSampler,
				ImageView:   im.View,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		}}, 0, nil)
	}

	r.bufferLayoutInitd = false
	r.swapchainLayoutInitd = make([]bool, r.app.SwapChainImageCount())

	common := &commonResources{
		width:          width,
		height:         height,
		dev:            dev,
		constantBuffer: r.constants.Buffer,
		defaultSampler: r.defaultSampler,
		dummyTexture:   r.dummyTexture.View,
		dummyCubemap:   r.dummyCubemap.View,
		dummyVolume:    r.dummyVolume.View,
		slots:          &r.slots,
	}

	for _, prog := range r.programs {
		if !prog.Runnable {
			continue
		}
		for i, pass := range prog.Passes {
			pass.createBindingSets(common, prog.Passes, i)
			if err := pass.createPipelineAndFramebuffers(dev, r.vertexShader,
				r.passPipelineLayout, r.passRenderPass, width, height); err != nil {
				return err
			}
		}
	}

	if r.blitPipeline != vk.NullPipeline {
		vk.DestroyPipeline(dev, r.blitPipeline, nil)
		r.blitPipeline = vk.NullPipeline
	}
	var err error
	r.blitPipeline, err = createQuadPipeline(dev, r.blitPipelineLayout,
		r.vertexShader, r.blitFragShader, r.blitRenderPass, width, height)
	if err != nil {
		return err
	}

	for i := 0; i < r.app.SwapChainImageCount(); i++ {
		var framebuffer vk.Framebuffer
		if res := vk.CreateFramebuffer(dev, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      r.blitRenderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{r.app.SwapChainImageView(i)},
			Width:           width,
			Height:          height,
			Layers:          1,
		}, nil, &framebuffer); res != vk.Success {
			return fmt.Errorf("vkCreateFramebuffer failed: %d", res)
		}
		r.swapchainFramebuffers = append(r.swapchainFramebuffers, framebuffer)
	}
	return nil
}

// BackBufferResizing drops everything sized to the back buffer; the next
// Render rebuilds it lazily.
func (r *Renderer) BackBufferResizing() {
	dev := r.app.Device()

	for i, im := range r.slots {
		im.Destroy(dev)
		r.slots[i] = nil
	}
	for _, framebuffer := range r.swapchainFramebuffers {
		vk.DestroyFramebuffer(dev, framebuffer, nil)
	}
	r.swapchainFramebuffers = nil
}

// Animate advances playback time and rotates to the next scheduled program
// when the current one's window ends.
func (r *Renderer) Animate(elapsed float64) {
	if r.paused {
		return
	}

	r.currentTime += elapsed
	r.currentDelta = elapsed

	if r.currentDuration > 0 && r.currentTime > r.currentDuration {
		r.NextProgram()
	}
}

// NextProgram advances the script, wrapping at the end. Playback state
// resets; the shared render targets keep their contents.
func (r *Renderer) NextProgram() {
	r.stepProgram(1)
}

// PreviousProgram steps the script backwards, wrapping at the start.
func (r *Renderer) PreviousProgram() {
	r.stepProgram(-1)
}

// stepProgram walks the script in dir until it reaches a runnable entry.
// Non-runnable programs are never activated. With nothing runnable the
// current entry stays active and Render skips its passes.
func (r *Renderer) stepProgram(dir int) {
	if len(r.script) == 0 {
		return
	}
	for i := 0; i < len(r.script); i++ {
		r.scriptIndex = (r.scriptIndex + dir + len(r.script)) % len(r.script)
		if r.programs[r.script[r.scriptIndex].ProgramIndex].Runnable {
			r.activateScriptEntry()
			return
		}
	}
}

// activateScriptEntry makes the current entry's program active. Callers
// guarantee the entry is runnable.
func (r *Renderer) activateScriptEntry() {
	r.activeProgram = r.script[r.scriptIndex].ProgramIndex
	r.currentDuration = r.script[r.scriptIndex].Duration
	r.resetRequired = true
}

// RequestReload asks the render thread to recompile shaders before its next
// frame. Safe to call from the watcher goroutine.
func (r *Renderer) RequestReload() {
	r.reloadRequested.Store(true)
}

// reloadShaders recompiles everything and rebuilds the shader objects.
// Programs that fail to compile become non-runnable; ones that recover
// become runnable again.
func (r *Renderer) reloadShaders() {
	r.app.WaitIdle()

	wasRunnable := make([]bool, len(r.programs))
	for i, prog := range r.programs {
		wasRunnable[i] = prog.Runnable
	}

	if !r.CompileShaders() {
		log.Printf("WARNING: no program compiled, keeping the previous shaders.")
		for i, prog := range r.programs {
			prog.Runnable = wasRunnable[i]
		}
		return
	}
	if err := r.createShaderObjects(); err != nil {
		log.Printf("ERROR: rebuilding shader objects: %v", err)
		return
	}
	r.BackBufferResizing()
	r.resetRequired = true

	if !r.programs[r.activeProgram].Runnable {
		r.NextProgram()
	}
}

// KeyboardUpdate: Q quits, R reloads, arrows step the script, space pauses.
func (r *Renderer) KeyboardUpdate(key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeyQ:
		r.app.Window().SetShouldClose(true)
	case glfw.KeyR:
		r.reloadShaders()
	case glfw.KeyLeft:
		r.PreviousProgram()
	case glfw.KeyRight:
		r.NextProgram()
	case glfw.KeySpace:
		r.paused = !r.paused
	}
}

// MousePosUpdate tracks the cursor; while dragging it also moves the
// position the shaders see.
func (r *Renderer) MousePosUpdate(x, y float64) {
	r.mousePos = point2D{x, y}
	if r.mouseDown {
		r.mouseLast = r.mousePos
	}
}

func (r *Renderer) MouseButtonUpdate(button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}
	if action == glfw.Press {
		r.mouseDown = true
		r.mouseLast = r.mousePos
		r.mouseDragStart = r.mousePos
	} else if action == glfw.Release {
		r.mouseDown = false
	}
}

// Render records one frame: lazy target/binding rebuild, one-time clears,
// the uniform update, every pass of the active program and the final
// crossfaded blit into the swap chain image.
func (r *Renderer) Render() {
	cmd := r.app.CurrentCmdBuf()
	width, height := r.app.WindowDimensions()

	if r.paused {
		time.Sleep(100 * time.Millisecond)
	}

	if r.reloadRequested.Swap(false) {
		r.reloadShaders()
	}

	if r.slots[0] == nil {
		if err := r.createBuffersAndBindings(width, height); err != nil {
			log.Fatalf("ERROR: creating render targets: %v", err)
		}
	}

	if !r.staticResourcesInitd {
		images.Clear(cmd, r.dummyTexture.Image, 1, images.StateUndefined)
		images.Clear(cmd, r.dummyCubemap.Image, 6, images.StateUndefined)
		images.Clear(cmd, r.dummyVolume.Image, 1, images.StateUndefined)
		r.dummyTexture.State = images.StateShaderResource
		r.dummyCubemap.State = images.StateShaderResource
		r.dummyVolume.State = images.StateShaderResource
		r.staticResourcesInitd = true
	}

	if r.resetRequired {
		r.frameIndex = 0
		r.currentTime = 0
		r.resetRequired = false
		log.Printf("Playing %s for %.1f seconds", r.programs[r.activeProgram].Name, r.currentDuration)
	}

	if !r.bufferLayoutInitd {
		for _, slot := range r.slots {
			images.Clear(cmd, slot.Image, 1, slot.State)
			slot.State = images.StateShaderResource
		}
		r.bufferLayoutInitd = true
	}

	r.updateUniforms(cmd, width, height)

	program := r.programs[r.activeProgram]
	parity := int(r.frameIndex) % HistoryLength

	// A non-runnable program has no pipelines; present the last contents
	// until a reload or rotation brings a runnable one back.
	if program.Runnable {
		for _, pass := range program.Passes {
			r.renderPass(cmd, pass, parity, width, height)
		}
	}

	r.blitToSwapchain(cmd, program, parity, width, height)

	r.frameIndex++
}

// updateUniforms writes the shared parameter block once per frame.
func (r *Renderer) updateUniforms(cmd vk.CommandBuffer, width, height uint32) {
	now := time.Now()
	secondsToday := float64(now.Hour()*3600+now.Minute()*60+now.Second()) +
		float64(now.Nanosecond())/1e9

	frameRate := float32(0)
	if r.currentDelta > 0 {
		frameRate = float32(1 / r.currentDelta)
	}

	clickSign := float32(-1)
	if r.mouseDown {
		clickSign = 1
	}
	downSign := float32(-1)
	if r.mouseDown && r.mouseDragStart == r.mousePos {
		downSign = 1
	}

	uniforms := Uniforms{
		Resolution: [3]float32{float32(width), float32(height), 1},
		Time:       float32(r.currentTime),
		Mouse: [4]float32{
			float32(r.mouseLast.x),
			float32(float64(height) - 1 - r.mouseLast.y),
			float32(r.mouseDragStart.x) * clickSign,
			float32(float64(height)-1-r.mouseDragStart.y) * downSign,
		},
		Date: [4]float32{
			float32(now.Year()),
			float32(now.Month() - 1),
			float32(now.Day()),
			float32(secondsToday),
		},
		TimeDelta:  float32(r.currentDelta),
		FrameRate:  frameRate,
		SampleRate: 44100,
		Frame:      r.frameIndex,
	}

	vk.CmdUpdateBuffer(cmd, r.constants.Buffer, 0, vk.DeviceSize(UniformsSize),
		(*uint32)(unsafe.Pointer(&uniforms)))
}

// renderPass runs one pass: write-transition its target, draw the quad with
// the parity's bindings, then return the target to the readable state.
func (r *Renderer) renderPass(cmd vk.CommandBuffer, pass *Pass, parity int, width, height uint32) {
	target := r.slots[pass.RenderTargetIndex(parity)]

	target.Transition(cmd, images.StateRenderTarget)

	vk.CmdBeginRenderPass(cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.passRenderPass,
		Framebuffer: pass.framebuffers[parity],
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: width, Height: height},
		},
	}, vk.SubpassContentsInline)

	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pass.pipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, r.passPipelineLayout,
		0, 1, []vk.DescriptorSet{pass.descriptorSets[parity]}, 0, nil)
	vk.CmdPushConstants(cmd, r.passPipelineLayout,
		vk.ShaderStageFlags(vk.ShaderStageFragmentBit), 0, PushConstantsSize,
		unsafe.Pointer(&pass.push))
	vk.CmdDraw(cmd, 4, 1, 0, 0)

	vk.CmdEndRenderPass(cmd)

	target.Transition(cmd, images.StateShaderResource)
}

// blitToSwapchain composites the image pass's current output into the swap
// chain image, scaled by the crossfade factor.
func (r *Renderer) blitToSwapchain(cmd vk.CommandBuffer, program *Program, parity int, width, height uint32) {
	factor := CrossfadeFactor(r.currentTime, r.currentDuration)

	finalSlot := Slot(program.ImagePassIndex, parity)
	scIndex := r.app.CurrentSwapChainIndex()
	scImage := r.app.SwapChainImage(scIndex)

	before := images.StateUndefined
	if r.swapchainLayoutInitd[scIndex] {
		before = images.StatePresent
	}
	images.Transition(cmd, scImage, before, images.StateRenderTarget, 1, 0, 1)
	r.swapchainLayoutInitd[scIndex] = true

	vk.CmdBeginRenderPass(cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.blitRenderPass,
		Framebuffer: r.swapchainFramebuffers[scIndex],
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: width, Height: height},
		},
	}, vk.SubpassContentsInline)

	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, r.blitPipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, r.blitPipelineLayout,
		0, 1, []vk.DescriptorSet{r.blitSets[finalSlot]}, 0, nil)
	vk.CmdPushConstants(cmd, r.blitPipelineLayout,
		vk.ShaderStageFlags(vk.ShaderStageFragmentBit), 0, 4, unsafe.Pointer(&factor))
	vk.CmdDraw(cmd, 4, 1, 0, 0)

	vk.CmdEndRenderPass(cmd)

	images.Transition(cmd, scImage, images.StateRenderTarget, images.StatePresent, 1, 0, 1)
}

// RenderOffscreen records one frame without touching the swap chain. The
// recorder uses it and reads the image pass's output back itself.
func (r *Renderer) RenderOffscreen(cmd vk.CommandBuffer, width, height uint32) (*images.Image, error) {
	if r.slots[0] == nil {
		if err := r.createOffscreenBuffers(width, height); err != nil {
			return nil, err
		}
	}

	if !r.staticResourcesInitd {
		images.Clear(cmd, r.dummyTexture.Image, 1, images.StateUndefined)
		images.Clear(cmd, r.dummyCubemap.Image, 6, images.StateUndefined)
		images.Clear(cmd, r.dummyVolume.Image, 1, images.StateUndefined)
		r.dummyTexture.State = images.StateShaderResource
		r.dummyCubemap.State = images.StateShaderResource
		r.dummyVolume.State = images.StateShaderResource
		r.staticResourcesInitd = true
	}

	if r.resetRequired {
		r.frameIndex = 0
		r.currentTime = 0
		r.resetRequired = false
		log.Printf("Playing %s for %.1f seconds", r.programs[r.activeProgram].Name, r.currentDuration)
	}

	if !r.bufferLayoutInitd {
		for _, slot := range r.slots {
			images.Clear(cmd, slot.Image, 1, slot.State)
			slot.State = images.StateShaderResource
		}
		r.bufferLayoutInitd = true
	}

	r.updateUniforms(cmd, width, height)

	program := r.programs[r.activeProgram]
	parity := int(r.frameIndex) % HistoryLength

	if program.Runnable {
		for _, pass := range program.Passes {
			r.renderPass(cmd, pass, parity, width, height)
		}
	}
	r.frameIndex++

	return r.slots[Slot(program.ImagePassIndex, parity)], nil
}

// createOffscreenBuffers is createBuffersAndBindings without the swap chain
// framebuffers or blit pipeline, for headless recording.
func (r *Renderer) createOffscreenBuffers(width, height uint32) error {
	dev := r.app.Device()
	memProps := r.app.MemProps()

	for i := range r.slots {
		im, err := images.NewImage(dev, memProps, images.ImageOptions{
			Width: width, Height: height,
			Format: targetFormat,
			Usage: vk.ImageUsageFlags(vk.ImageUsageTransferDstBit |
				vk.ImageUsageTransferSrcBit |
				vk.ImageUsageSampledBit | vk.ImageUsageColorAttachmentBit),
		})
		if err != nil {
			return err
		}
		r.slots[i] = im
	}

	r.bufferLayoutInitd = false

	common := &commonResources{
		width:          width,
		height:         height,
		dev:            dev,
		constantBuffer: r.constants.Buffer,
		defaultSampler: r.defaultSampler,
		dummyTexture:   r.dummyTexture.View,
		dummyCubemap:   r.dummyCubemap.View,
		dummyVolume:    r.dummyVolume.View,
		slots:          &r.slots,
	}

	for _, prog := range r.programs {
		if !prog.Runnable {
			continue
		}
		for i, pass := range prog.Passes {
			pass.createBindingSets(common, prog.Passes, i)
			if err := pass.createPipelineAndFramebuffers(dev, r.vertexShader,
				r.passPipelineLayout, r.passRenderPass, width, height); err != nil {
				return err
			}
		}
	}
	return nil
}

// Advance moves playback time without real-time pacing, for recording at a
// fixed step.
func (r *Renderer) Advance(step float64) {
	r.currentTime += step
	r.currentDelta = step
	if r.currentDuration > 0 && r.currentTime > r.currentDuration {
		r.NextProgram()
	}
}

// Shutdown releases everything the renderer owns, the asset cache included.
func (r *Renderer) Shutdown() {
	dev := r.app.Device()

	for _, prog := range r.programs {
		prog.cleanup(dev)
	}
	r.destroyShaderObjects()
	r.BackBufferResizing()

	r.dummyTexture.Destroy(dev)
	r.dummyCubemap.Destroy(dev)
	r.dummyVolume.Destroy(dev)
	r.constants.Destroy(dev)
	r.cache.Destroy(dev)

	if r.defaultSampler != vk.NullSampler {
		vk.DestroySampler(dev, r.defaultSampler, nil)
		r.defaultSampler = vk.NullSampler
	}
	if r.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(dev, r.descriptorPool, nil)
		r.descriptorPool = vk.NullDescriptorPool
	}
	if r.blitPipeline != vk.NullPipeline {
		vk.DestroyPipeline(dev, r.blitPipeline, nil)
		r.blitPipeline = vk.NullPipeline
	}
	if r.blitPipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(dev, r.blitPipelineLayout, nil)
		r.blitPipelineLayout = vk.NullPipelineLayout
	}
	if r.blitSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(dev, r.blitSetLayout, nil)
		r.blitSetLayout = vk.NullDescriptorSetLayout
	}
	if r.passPipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(dev, r.passPipelineLayout, nil)
		r.passPipelineLayout = vk.NullPipelineLayout
	}
	if r.passSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(dev, r.passSetLayout, nil)
		r.passSetLayout = vk.NullDescriptorSetLayout
	}
	if r.passRenderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(dev, r.passRenderPass, nil)
		r.passRenderPass = vk.NullRenderPass
	}
	if r.blitRenderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(dev, r.blitRenderPass, nil)
		r.blitRenderPass = vk.NullRenderPass
	}
}
