package images

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// BufferState is the tracked state of a buffer, mirroring ImageState for the
// transfer-only transitions buffers participate in.
type BufferState int

const (
	BufferUndefined BufferState = iota
	BufferTransferSrc
	BufferTransferDst

	bufferStateCount
)

type bufferStateMapping struct {
	stageMask  vk.PipelineStageFlags
	accessMask vk.AccessFlags
}

var bufferStates = [bufferStateCount]bufferStateMapping{
	{vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0},
	{vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferReadBit)},
	{vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferWriteBit)},
}

// BufferTransition records a buffer memory barrier between two buffer states.
func BufferTransition(cmd vk.CommandBuffer, buffer vk.Buffer, before, after BufferState, size vk.DeviceSize) {
	mb := bufferStates[before]
	ma := bufferStates[after]

	vk.CmdPipelineBarrier(cmd, mb.stageMask, ma.stageMask, 0, 0, nil, 1, []vk.BufferMemoryBarrier{{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       mb.accessMask,
		DstAccessMask:       ma.accessMask,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buffer,
		Size:                size,
	}}, 0, nil)
}

// Buffer is a committed buffer with dedicated memory. Ptr is non-nil only
// for host-visible buffers, which stay persistently mapped.
type Buffer struct {
	Buffer vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Ptr    unsafe.Pointer
	State  BufferState
}

// NewBuffer allocates a committed buffer. hostVisible selects host-coherent
// memory and maps it for the buffer's lifetime; otherwise device-local.
func NewBuffer(dev vk.Device, memProps *vk.PhysicalDeviceMemoryProperties, size vk.DeviceSize, usage vk.BufferUsageFlags, hostVisible bool) (*Buffer, error) {
	var buffer vk.Buffer
	if res := vk.CreateBuffer(dev, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buffer); res != vk.Success {
		return nil, fmt.Errorf("vkCreateBuffer failed: %d", res)
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, buffer, &memReqs)
	memReqs.Deref()

	props := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if hostVisible {
		props = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	memType, ok := FindMemoryType(memProps, memReqs.MemoryTypeBits, props)
	if !ok {
		vk.DestroyBuffer(dev, buffer, nil)
		return nil, fmt.Errorf("no suitable memory type for buffer")
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &memory); res != vk.Success {
		vk.DestroyBuffer(dev, buffer, nil)
		return nil, fmt.Errorf("vkAllocateMemory failed for buffer: %d", res)
	}
	vk.BindBufferMemory(dev, buffer, memory, 0)

	b := &Buffer{Buffer: buffer, Memory: memory, Size: size}
	if hostVisible {
		if res := vk.MapMemory(dev, memory, 0, size, 0, &b.Ptr); res != vk.Success {
			b.Destroy(dev)
			return nil, fmt.Errorf("vkMapMemory failed: %d", res)
		}
	}
	return b, nil
}

// Upload copies data into a mapped host-visible buffer.
func (b *Buffer) Upload(data []byte) {
	vk.Memcopy(b.Ptr, data)
}

// Read copies the mapped contents out into dst.
func (b *Buffer) Read(dst []byte) {
	src := unsafe.Slice((*byte)(b.Ptr), len(dst))
	copy(dst, src)
}

// Transition moves the buffer to the given state and records it.
func (b *Buffer) Transition(cmd vk.CommandBuffer, after BufferState) {
	BufferTransition(cmd, b.Buffer, b.State, after, b.Size)
	b.State = after
}

// Destroy unmaps (if mapped) and releases the buffer and its memory.
func (b *Buffer) Destroy(dev vk.Device) {
	if b == nil {
		return
	}
	if b.Ptr != nil {
		vk.UnmapMemory(dev, b.Memory)
		b.Ptr = nil
	}
	if b.Buffer != vk.NullBuffer {
		vk.DestroyBuffer(dev, b.Buffer, nil)
		b.Buffer = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(dev, b.Memory, nil)
		b.Memory = vk.NullDeviceMemory
	}
}
