package passes

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

const vignetteFragmentShader = `
@group(0) @binding(0)
var input_texture: texture_2d<f32>;

@group(0) @binding(1)
var input_sampler: sampler;

struct VignetteUniforms {
    strength: f32,
    radius: f32,
    color_tint: vec3<f32>,
    padding: f32,
};

@group(0) @binding(2)
var<uniform> uniforms: VignetteUniforms;

@fragment
fn fragment_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let color = textureSample(input_texture, input_sampler, in.uv).rgb;

    let center = vec2<f32>(0.5, 0.5);
    let distance = length(in.uv - center);

    let vignette = 1.0 - smoothstep(uniforms.radius, 1.0, distance * uniforms.strength);

    let tinted_color = mix(uniforms.color_tint, color, vignette);

    return vec4<f32>(tinted_color, 1.0);
}
`

// VignettePass darkens the frame toward its edges with a configurable
// strength, falloff radius, and tint color, toggling between an effect and
// blit pipeline the same way BrightnessContrastPass does.
type VignettePass struct {
	effect     *fullscreenPipeline
	blit       *fullscreenPipeline
	uniformBuf *wgpu.Buffer

	cachedWithUniforms    *wgpu.BindGroup
	cachedWithoutUniforms *wgpu.BindGroup
}

// vignetteUniformSize matches the WGSL struct's std140-style layout:
// strength(4) + radius(4) + padding-to-16 + color_tint vec3(12) + padding(4).
const vignetteUniformSize = 32

// NewVignettePass compiles both pipelines and allocates the uniform
// buffer backing the effect pipeline's third binding.
func NewVignettePass(device *wgpu.Device, colorFormat wgpu.TextureFormat) (*VignettePass, error) {
	effect, err := buildFullscreenPipeline(device, "Vignette", vignetteFragmentShader, colorFormat,
		wgpu.BindGroupLayoutEntry{
			Binding:    2,
			Visibility: wgpu.ShaderStageFragment,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		},
	)
	if err != nil {
		return nil, err
	}
	blit, err := buildFullscreenPipeline(device, "Vignette Blit", blitFragmentShader, colorFormat)
	if err != nil {
		return nil, err
	}
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Vignette Uniform Buffer",
		Size:  vignetteUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &VignettePass{effect: effect, blit: blit, uniformBuf: buf}, nil
}

func (p *VignettePass) Slots() []string { return []string{"input", "output"} }

func (p *VignettePass) IsEnabled(cfg DemoConfig) bool { return true }

func (p *VignettePass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg DemoConfig) {
	v := cfg.Vignette
	var buf [vignetteUniformSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.Strength))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Radius))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(v.ColorTint[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(v.ColorTint[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(v.ColorTint[2]))
	queue.WriteBuffer(p.uniformBuf, 0, buf[:])
}

func (p *VignettePass) InvalidateBindGroups() {
	p.cachedWithUniforms = nil
	p.cachedWithoutUniforms = nil
}

func (p *VignettePass) Execute(ctx *rendergraph.PassExecutionContext[DemoConfig], cfg DemoConfig) error {
	pipeline := p.blit.pipeline
	bgLayout := p.blit.bindLayout
	sampler := p.blit.sampler
	cached := &p.cachedWithoutUniforms
	withUniforms := cfg.Vignette.Enabled
	if withUniforms {
		pipeline = p.effect.pipeline
		bgLayout = p.effect.bindLayout
		sampler = p.effect.sampler
		cached = &p.cachedWithUniforms
	}

	if *cached == nil {
		inputView, err := ctx.TextureView("input")
		if err != nil {
			return err
		}
		entries := []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: inputView},
			{Binding: 1, Sampler: sampler},
		}
		if withUniforms {
			entries = append(entries, wgpu.BindGroupEntry{Binding: 2, Buffer: p.uniformBuf, Size: wgpu.WholeSize})
		}
		bg, err := ctx.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   "Vignette Bind Group",
			Layout:  bgLayout,
			Entries: entries,
		})
		if err != nil {
			return err
		}
		*cached = bg
	}

	view, loadOp, clear, storeOp, err := ctx.ColorAttachment("output")
	if err != nil {
		return err
	}
	return beginFullscreenPass(ctx.Encoder(), "Vignette Render Pass", view, loadOp, clear, storeOp, pipeline, *cached)
}
