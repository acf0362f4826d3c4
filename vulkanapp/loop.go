package vulkanapp

import (
	"log"
	"math"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
)

// Run drives the message loop until the window closes: poll events, track
// resizes, animate, then acquire/record/submit/present one frame. Must run
// on the thread that created the window.
func (a *App) Run() {
	previous := glfw.GetTime()

	for !a.window.ShouldClose() {
		glfw.PollEvents()

		a.updateWindowSize()

		now := glfw.GetTime()
		elapsed := now - previous

		if a.windowVisible {
			a.handler.Animate(elapsed)
			a.beginFrame()
			a.handler.Render()
			a.present()
		}

		previous = now
	}

	vk.DeviceWaitIdle(a.device)
}

// updateWindowSize tracks minimization and resizes. A size change tears
// down size-dependent state through the handler and rebuilds the swapchain
// before the next frame renders.
func (a *App) updateWindowSize() {
	width, height := a.window.GetFramebufferSize()

	if width == 0 || height == 0 {
		a.windowVisible = false
		return
	}
	a.windowVisible = true

	if uint32(width) != a.width || uint32(height) != a.height {
		a.handler.BackBufferResizing()
		if err := a.recreateSwapchain(); err != nil {
			log.Fatalf("ERROR: recreating swap chain: %v", err)
		}
	}
}

// beginFrame acquires the next swapchain image, recovering from an
// out-of-date surface by recreating it and retrying, then starts recording.
func (a *App) beginFrame() {
	for {
		res := vk.AcquireNextImage(a.device, a.swapchain, math.MaxUint64,
			a.presentSemaphore, vk.NullFence, &a.scIndex)

		if res == vk.ErrorOutOfDate {
			log.Printf("Swap chain lost, re-creating.")
			a.handler.BackBufferResizing()
			if err := a.recreateSwapchain(); err != nil {
				log.Fatalf("ERROR: recreating swap chain: %v", err)
			}
			continue
		}
		if res == vk.ErrorDeviceLost {
			log.Fatalf("ERROR: device lost")
		}
		if res != vk.Success && res != vk.Suboptimal {
			log.Fatalf("vkAcquireNextImageKHR failed: %d", res)
		}
		break
	}

	cmd := a.CurrentCmdBuf()
	vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
}

// present submits the recorded frame and presents it, then waits on the
// oldest in-flight frame so no more than MaxFramesInFlight are queued.
func (a *App) present() {
	cmd := a.CurrentCmdBuf()
	vk.EndCommandBuffer(cmd)

	res := vk.QueueSubmit(a.graphicsQueue, 1, []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{a.presentSemaphore},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{a.presentSemaphore},
	}}, a.fences[a.loopingFrame])
	if res == vk.ErrorDeviceLost {
		log.Fatalf("ERROR: device lost on submit")
	}
	logResult("vkQueueSubmit", res)

	a.fencesSignaled[a.loopingFrame] = true

	res = vk.QueuePresent(a.presentQueue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{a.presentSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{a.swapchain},
		PImageIndices:      []uint32{a.scIndex},
	})
	if res != vk.Success && res != vk.ErrorOutOfDate && res != vk.Suboptimal {
		logResult("vkQueuePresentKHR", res)
	}

	a.loopingFrame = (a.loopingFrame + 1) % len(a.fences)

	if a.fencesSignaled[a.loopingFrame] {
		vk.WaitForFences(a.device, 1, []vk.Fence{a.fences[a.loopingFrame]}, vk.True, math.MaxUint64)
		vk.ResetFences(a.device, 1, []vk.Fence{a.fences[a.loopingFrame]})
		a.fencesSignaled[a.loopingFrame] = false
	}
}
