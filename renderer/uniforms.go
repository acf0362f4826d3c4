package renderer

import (
	"unsafe"
)

// Uniforms is the shared parameter block every pass reads at binding 4. The
// field order and padding match the std140 block in the shader preamble; it
// is written into the constant buffer as raw bytes once per frame.
type Uniforms struct {
	Resolution [3]float32
	Time       float32
	Mouse      [4]float32
	Date       [4]float32
	TimeDelta  float32
	FrameRate  float32
	SampleRate float32
	Frame      int32
}

// PushConstants carries the per-pass channel metadata. The blit pipeline
// reuses the same push range but only writes the leading float.
type PushConstants struct {
	ChannelResolution [4][4]float32
	ChannelTime       [4]float32
}

const (
	UniformsSize      = uint32(unsafe.Sizeof(Uniforms{}))
	PushConstantsSize = uint32(unsafe.Sizeof(PushConstants{}))
)
