package compiler

import (
	"fmt"
	"strings"

	"github.com/richinsley/goshaderproj/project"
)

// Preamble is prepended to every pass shader. It declares the shared
// parameter block, the per-pass push constants and the mainImage trampoline
// that adapts Shadertoy-style sources to a plain fragment shader.
const Preamble = `#version 450
#extension GL_ARB_separate_shader_objects : enable
layout(location = 0) in vec2 i_uv;
layout(location = 0) out vec4 o_color;
in vec4 gl_FragCoord;
layout(set = 0, binding = 4) uniform UniformBufferObject {
  vec3  iResolution;
  float iTime;
  vec4  iMouse;
  vec4  iDate;
  float iTimeDelta;
  float iFrameRate;
  float iSampleRate;
  int   iFrame;
};
layout(push_constant) uniform PushConstants {
  vec4  iChannelResolution[4];
  float iChannelTime[4];
};
void mainImage( out vec4 fragColor, in vec2 fragCoord );
void main() {
  vec2 fragCoord = vec2(gl_FragCoord.x, gl_FragCoord.y);
  mainImage(o_color, fragCoord);
}
`

// InputDeclarations generates the per-channel sampler declarations for a
// pass. The sampler type follows the input kind; the binding is the channel.
func InputDeclarations(inputs []project.Input) string {
	var sb strings.Builder
	for _, in := range inputs {
		samplerType := "sampler2D"
		switch in.Type {
		case "cubemap":
			samplerType = "samplerCube"
		case "volume":
			samplerType = "sampler3D"
		}
		fmt.Fprintf(&sb, "uniform layout(set = 0, binding = %d) %s iChannel%d;\n",
			in.Channel, samplerType, in.Channel)
	}
	return sb.String()
}
