package render

// VertexShaderSource is the vertex stage of the single program every draw uses.
const VertexShaderSource = `#version 300 es
in vec3 a_position;
in vec4 a_color;
in vec2 a_uv;

uniform mat4 u_projection;
uniform mat4 u_model;

out vec4 v_color;
out vec2 v_uv;

void main() {
    v_color = a_color;
    v_uv = a_uv;
    gl_Position = u_projection * u_model * vec4(a_position, 1.0);
}
`

// FragmentShaderSource is the fragment stage. With an alpha-only glyph atlas
// bound (u_text) the vertex colour keeps its RGB and the atlas supplies alpha.
const FragmentShaderSource = `#version 300 es
precision mediump float;

in vec4 v_color;
in vec2 v_uv;

uniform sampler2D u_texture;
uniform bool u_use_texture;
uniform bool u_text;

out vec4 frag_color;

void main() {
    if (!u_use_texture) {
        frag_color = v_color;
        return;
    }
    vec4 texel = texture(u_texture, v_uv);
    if (u_text) {
        frag_color = vec4(v_color.rgb, v_color.a * texel.a);
    } else {
        frag_color = v_color * texel;
    }
}
`
