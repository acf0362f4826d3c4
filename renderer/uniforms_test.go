package renderer

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

// The GPU-side blocks are std140; the Go structs have to match byte for byte.
func TestUniformsLayout(t *testing.T) {
	assert.Equal(t, uint32(64), UniformsSize)
	assert.Equal(t, uintptr(0), unsafe.Offsetof(Uniforms{}.Resolution))
	assert.Equal(t, uintptr(12), unsafe.Offsetof(Uniforms{}.Time))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(Uniforms{}.Mouse))
	assert.Equal(t, uintptr(32), unsafe.Offsetof(Uniforms{}.Date))
	assert.Equal(t, uintptr(48), unsafe.Offsetof(Uniforms{}.TimeDelta))
	assert.Equal(t, uintptr(60), unsafe.Offsetof(Uniforms{}.Frame))
}

func TestPushConstantsLayout(t *testing.T) {
	assert.Equal(t, uint32(80), PushConstantsSize)
	assert.Equal(t, uintptr(64), unsafe.Offsetof(PushConstants{}.ChannelTime))
}
