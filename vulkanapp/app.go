// Package vulkanapp owns the window, the Vulkan device and the frame loop.
// Application behavior plugs in through the Handler interface; the package
// drives it with acquire/submit/present pacing and swapchain recovery.
package vulkanapp

import (
	"fmt"
	"log"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/richinsley/goshaderproj/images"
)

// Parameters configures window and device creation.
type Parameters struct {
	WindowWidth        int
	WindowHeight       int
	RefreshRate        int
	Fullscreen         bool
	MonitorIndex       int
	EnableDebugRuntime bool
	EnableVsync        bool
	MaxFramesInFlight  int
	// Headless skips surface and swapchain creation; the window stays
	// hidden and the caller drives its own frame loop.
	Headless bool
}

// Handler receives the per-frame and input callbacks. Render records into
// the current command buffer; the app owns begin/end/submit/present.
type Handler interface {
	Animate(elapsedSeconds float64)
	Render()
	BackBufferResizing()
	KeyboardUpdate(key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey)
	MousePosUpdate(x, y float64)
	MouseButtonUpdate(button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey)
}

// App is the device manager: GLFW window, instance, device, swapchain and
// the per-frame command buffers and fences.
type App struct {
	params  Parameters
	handler Handler

	window   *glfw.Window
	instance vk.Instance
	surface  vk.Surface

	gpu            vk.PhysicalDevice
	memProps       vk.PhysicalDeviceMemoryProperties
	device         vk.Device
	graphicsFamily uint32
	graphicsQueue  vk.Queue
	presentQueue   vk.Queue

	swapchain vk.Swapchain
	scFormat  vk.Format
	scImages  []vk.Image
	scViews   []vk.ImageView
	scIndex   uint32

	width  uint32
	height uint32

	cmdPool          vk.CommandPool
	cmdBufs          []vk.CommandBuffer
	fences           []vk.Fence
	fencesSignaled   []bool
	loopingFrame     int
	presentSemaphore vk.Semaphore

	windowVisible bool
}

func safeString(s string) string { return s + "\x00" }

func safeStrings(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = safeString(s)
	}
	return out
}

// New initializes GLFW and Vulkan, creates the window and device and, unless
// headless, the surface and swapchain. Must run on the main thread.
func New(params Parameters, title string) (*App, error) {
	if params.MaxFramesInFlight <= 0 {
		params.MaxFramesInFlight = 2
	}

	a := &App{params: params}

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vulkan init: %w", err)
	}

	if err := a.createWindow(title); err != nil {
		return nil, err
	}
	if err := a.createInstance(title); err != nil {
		return nil, err
	}
	if !params.Headless {
		surfPtr, err := a.window.CreateWindowSurface(a.instance, nil)
		if err != nil {
			return nil, fmt.Errorf("creating window surface: %w", err)
		}
		a.surface = vk.SurfaceFromPointer(surfPtr)
	}
	if err := a.createDevice(); err != nil {
		return nil, err
	}
	if err := a.createFrameResources(); err != nil {
		return nil, err
	}
	if params.Headless {
		a.width = uint32(params.WindowWidth)
		a.height = uint32(params.WindowHeight)
	} else {
		if err := a.createSwapchain(); err != nil {
			return nil, err
		}
		a.installCallbacks()
		a.window.Show()
	}

	return a, nil
}

func (a *App) createWindow(title string) error {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.False) // shown after setup, never when headless

	var monitor *glfw.Monitor
	if a.params.Fullscreen && !a.params.Headless {
		monitors := glfw.GetMonitors()
		if a.params.MonitorIndex < len(monitors) {
			monitor = monitors[a.params.MonitorIndex]
		} else {
			monitor = glfw.GetPrimaryMonitor()
		}
		if a.params.RefreshRate > 0 {
			glfw.WindowHint(glfw.RefreshRate, a.params.RefreshRate)
		}
	}

	window, err := glfw.CreateWindow(a.params.WindowWidth, a.params.WindowHeight, title, monitor, nil)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	a.window = window
	return nil
}

func (a *App) createInstance(title string) error {
	extensions := safeStrings(a.window.GetRequiredInstanceExtensions())

	var layers []string
	if a.params.EnableDebugRuntime {
		layers = []string{safeString("VK_LAYER_KHRONOS_validation")}
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:            vk.StructureTypeApplicationInfo,
			PApplicationName: safeString(title),
			ApiVersion:       vk.MakeVersion(1, 2, 0),
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &instance); res != vk.Success {
		return fmt.Errorf("vkCreateInstance failed: %d", res)
	}
	a.instance = instance
	vk.InitInstance(instance)
	return nil
}

// createDevice picks a physical device (preferring a discrete GPU whose
// graphics queue can present to the surface) and creates the logical device.
func (a *App) createDevice() error {
	var count uint32
	vk.EnumeratePhysicalDevices(a.instance, &count, nil)
	if count == 0 {
		return fmt.Errorf("no Vulkan-capable GPUs found")
	}
	gpus := make([]vk.PhysicalDevice, count)
	vk.EnumeratePhysicalDevices(a.instance, &count, gpus)

	best := -1
	bestFamily := uint32(0)
	for i, gpu := range gpus {
		family, ok := a.findQueueFamily(gpu)
		if !ok {
			continue
		}

		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &props)
		props.Deref()

		if best < 0 || props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			best = i
			bestFamily = family
			if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
				break
			}
		}
	}
	if best < 0 {
		return fmt.Errorf("no GPU with a usable graphics queue found")
	}

	a.gpu = gpus[best]
	a.graphicsFamily = bestFamily
	vk.GetPhysicalDeviceMemoryProperties(a.gpu, &a.memProps)
	a.memProps.Deref()

	var extensions []string
	if !a.params.Headless {
		extensions = []string{safeString("VK_KHR_swapchain")}
	}

	var device vk.Device
	if res := vk.CreateDevice(a.gpu, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: a.graphicsFamily,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}, nil, &device); res != vk.Success {
		return fmt.Errorf("vkCreateDevice failed: %d", res)
	}
	a.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(a.device, a.graphicsFamily, 0, &queue)
	a.graphicsQueue = queue
	a.presentQueue = queue
	return nil
}

// findQueueFamily looks for a graphics queue that can also present to the
// app's surface (any graphics queue when headless).
func (a *App) findQueueFamily(gpu vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, families)

	for i := uint32(0); i < count; i++ {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		if a.params.Headless {
			return i, true
		}
		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gpu, i, a.surface, &supportsPresent)
		if supportsPresent.B() {
			return i, true
		}
	}
	return 0, false
}

func (a *App) createFrameResources() error {
	frameCount := a.params.MaxFramesInFlight + 1

	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(a.device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &semaphore); res != vk.Success {
		return fmt.Errorf("vkCreateSemaphore failed: %d", res)
	}
	a.presentSemaphore = semaphore

	for frame := 0; frame < frameCount; frame++ {
		var fence vk.Fence
		if res := vk.CreateFence(a.device, &vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
		}, nil, &fence); res != vk.Success {
			return fmt.Errorf("vkCreateFence failed: %d", res)
		}
		a.fences = append(a.fences, fence)
		a.fencesSignaled = append(a.fencesSignaled, false)
	}

	var pool vk.CommandPool
	if res := vk.CreateCommandPool(a.device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: a.graphicsFamily,
		Flags: vk.CommandPoolCreateFlags(
			vk.CommandPoolCreateResetCommandBufferBit | vk.CommandPoolCreateTransientBit),
	}, nil, &pool); res != vk.Success {
		return fmt.Errorf("vkCreateCommandPool failed: %d", res)
	}
	a.cmdPool = pool

	a.cmdBufs = make([]vk.CommandBuffer, frameCount)
	if res := vk.AllocateCommandBuffers(a.device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        a.cmdPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(frameCount),
	}, a.cmdBufs); res != vk.Success {
		return fmt.Errorf("vkAllocateCommandBuffers failed: %d", res)
	}
	return nil
}

// SetHandler installs the application callbacks. Must be set before Run.
func (a *App) SetHandler(h Handler) { a.handler = h }

// Accessors used by the renderer and recorder.

func (a *App) Window() *glfw.Window           { return a.window }
func (a *App) Device() vk.Device              { return a.device }
func (a *App) PhysicalDevice() vk.PhysicalDevice { return a.gpu }
func (a *App) GraphicsQueue() vk.Queue        { return a.graphicsQueue }
func (a *App) CommandPool() vk.CommandPool    { return a.cmdPool }

// MemProps is the cached memory properties of the selected GPU.
func (a *App) MemProps() *vk.PhysicalDeviceMemoryProperties { return &a.memProps }

// CurrentCmdBuf is the command buffer for the frame being recorded.
func (a *App) CurrentCmdBuf() vk.CommandBuffer { return a.cmdBufs[a.loopingFrame] }

// WindowDimensions is the current back buffer size in pixels.
func (a *App) WindowDimensions() (uint32, uint32) { return a.width, a.height }

func (a *App) SwapChainFormat() vk.Format          { return a.scFormat }
func (a *App) SwapChainImageCount() int            { return len(a.scImages) }
func (a *App) SwapChainImage(i int) vk.Image       { return a.scImages[i] }
func (a *App) SwapChainImageView(i int) vk.ImageView { return a.scViews[i] }
func (a *App) CurrentSwapChainIndex() int          { return int(a.scIndex) }

// Uploader bundles the pieces one-shot transfer work needs.
func (a *App) Uploader() *images.Uploader {
	return &images.Uploader{
		Dev:      a.device,
		MemProps: &a.memProps,
		Queue:    a.graphicsQueue,
		CmdPool:  a.cmdPool,
	}
}

// WaitIdle blocks until the device drains.
func (a *App) WaitIdle() {
	vk.DeviceWaitIdle(a.device)
}

// Shutdown destroys everything the app owns. The handler must have cleaned
// up its own objects first.
func (a *App) Shutdown() {
	a.destroySwapchain()

	if a.presentSemaphore != vk.NullSemaphore {
		vk.DestroySemaphore(a.device, a.presentSemaphore, nil)
		a.presentSemaphore = vk.NullSemaphore
	}
	for _, fence := range a.fences {
		vk.DestroyFence(a.device, fence, nil)
	}
	a.fences = nil
	if a.cmdPool != vk.NullCommandPool {
		vk.DestroyCommandPool(a.device, a.cmdPool, nil)
		a.cmdPool = vk.NullCommandPool
	}
	if a.device != nil {
		vk.DestroyDevice(a.device, nil)
		a.device = nil
	}
	if a.surface != vk.NullSurface {
		vk.DestroySurface(a.instance, a.surface, nil)
		a.surface = vk.NullSurface
	}
	if a.instance != nil {
		vk.DestroyInstance(a.instance, nil)
		a.instance = nil
	}
	if a.window != nil {
		a.window.Destroy()
		a.window = nil
	}
	glfw.Terminate()
}

func (a *App) installCallbacks() {
	a.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if a.handler != nil {
			a.handler.KeyboardUpdate(key, scancode, action, mods)
		}
	})
	a.window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		if a.handler != nil {
			a.handler.MousePosUpdate(x, y)
		}
	})
	a.window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if a.handler != nil {
			a.handler.MouseButtonUpdate(button, action, mods)
		}
	})
}

// logResult reports a non-success result without aborting.
func logResult(what string, res vk.Result) {
	if res != vk.Success {
		log.Printf("%s failed: %d", what, res)
	}
}
