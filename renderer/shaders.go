package renderer

// quadVertexSource draws a fullscreen triangle strip from gl_VertexIndex,
// with no vertex buffer.
const quadVertexSource = `#version 450
layout(location = 0) out vec2 o_uv;
void main() {
    vec2 uv = vec2(float(gl_VertexIndex & 1), float((gl_VertexIndex >> 1) & 1));
    o_uv = uv;
    gl_Position = vec4(uv * 2.0 - 1.0, 0.0, 1.0);
}
`

// blitFragmentSource copies the image pass's output to the swap chain,
// scaled by the crossfade factor.
const blitFragmentSource = `#version 450
layout(location = 0) in vec2 i_uv;
layout(location = 0) out vec4 o_color;
layout(set = 0, binding = 0) uniform sampler2D t_source;
layout(push_constant) uniform BlitConstants {
    float factor;
};
void main() {
    vec4 color = texture(t_source, i_uv);
    o_color = vec4(color.rgb * factor, color.a);
}
`
