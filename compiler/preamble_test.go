package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/richinsley/goshaderproj/project"
)

func TestInputDeclarations(t *testing.T) {
	decls := InputDeclarations([]project.Input{
		{Channel: 0, Type: "texture"},
		{Channel: 1, Type: "cubemap"},
		{Channel: 3, Type: "volume"},
		{Channel: 2, Type: "buffer"},
	})

	assert.Contains(t, decls, "uniform layout(set = 0, binding = 0) sampler2D iChannel0;")
	assert.Contains(t, decls, "uniform layout(set = 0, binding = 1) samplerCube iChannel1;")
	assert.Contains(t, decls, "uniform layout(set = 0, binding = 3) sampler3D iChannel3;")
	assert.Contains(t, decls, "uniform layout(set = 0, binding = 2) sampler2D iChannel2;")
	assert.Equal(t, 4, strings.Count(decls, "\n"))
}

func TestInputDeclarationsEmpty(t *testing.T) {
	assert.Empty(t, InputDeclarations(nil))
}

func TestPreambleDeclaresSharedBlock(t *testing.T) {
	assert.Contains(t, Preamble, "layout(set = 0, binding = 4) uniform UniformBufferObject")
	assert.Contains(t, Preamble, "vec4  iChannelResolution[4];")
	assert.Contains(t, Preamble, "void mainImage( out vec4 fragColor, in vec2 fragCoord );")
}

func TestStageFor(t *testing.T) {
	assert.Equal(t, "frag", StageFor("bufferA.frag"))
	assert.Equal(t, "vert", StageFor("quad.vert"))
	assert.Equal(t, "comp", StageFor("sim.comp"))
	assert.Equal(t, "frag", StageFor("whatever.glsl"))
}
