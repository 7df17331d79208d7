package passes

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

const sharpenFragmentShader = `
@group(0) @binding(0)
var input_texture: texture_2d<f32>;

@group(0) @binding(1)
var input_sampler: sampler;

struct SharpenUniforms {
    strength: f32,
    padding1: f32,
    padding2: f32,
    padding3: f32,
};

@group(0) @binding(2)
var<uniform> uniforms: SharpenUniforms;

@fragment
fn fragment_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let tex_size = textureDimensions(input_texture);
    let texel_size = vec2<f32>(1.0 / f32(tex_size.x), 1.0 / f32(tex_size.y));

    let center = textureSample(input_texture, input_sampler, in.uv).rgb;

    var laplacian = center * 8.0;
    laplacian -= textureSample(input_texture, input_sampler, in.uv + vec2<f32>(-texel_size.x, 0.0)).rgb;
    laplacian -= textureSample(input_texture, input_sampler, in.uv + vec2<f32>(texel_size.x, 0.0)).rgb;
    laplacian -= textureSample(input_texture, input_sampler, in.uv + vec2<f32>(0.0, -texel_size.y)).rgb;
    laplacian -= textureSample(input_texture, input_sampler, in.uv + vec2<f32>(0.0, texel_size.y)).rgb;
    laplacian -= textureSample(input_texture, input_sampler, in.uv + vec2<f32>(-texel_size.x, -texel_size.y)).rgb;
    laplacian -= textureSample(input_texture, input_sampler, in.uv + vec2<f32>(texel_size.x, -texel_size.y)).rgb;
    laplacian -= textureSample(input_texture, input_sampler, in.uv + vec2<f32>(-texel_size.x, texel_size.y)).rgb;
    laplacian -= textureSample(input_texture, input_sampler, in.uv + vec2<f32>(texel_size.x, texel_size.y)).rgb;

    let sharpened = center + laplacian * uniforms.strength;

    return vec4<f32>(clamp(sharpened, vec3<f32>(0.0), vec3<f32>(1.0)), 1.0);
}
`

// SharpenPass applies an 8-neighbor Laplacian unsharp mask scaled by a
// configurable strength, toggling between effect and blit pipelines like
// BrightnessContrastPass.
type SharpenPass struct {
	effect     *fullscreenPipeline
	blit       *fullscreenPipeline
	uniformBuf *wgpu.Buffer

	cachedWithUniforms    *wgpu.BindGroup
	cachedWithoutUniforms *wgpu.BindGroup
}

// NewSharpenPass compiles both pipelines and allocates the uniform buffer.
func NewSharpenPass(device *wgpu.Device, colorFormat wgpu.TextureFormat) (*SharpenPass, error) {
	effect, err := buildFullscreenPipeline(device, "Sharpen", sharpenFragmentShader, colorFormat,
		wgpu.BindGroupLayoutEntry{
			Binding:    2,
			Visibility: wgpu.ShaderStageFragment,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		},
	)
	if err != nil {
		return nil, err
	}
	blit, err := buildFullscreenPipeline(device, "Sharpen Blit", blitFragmentShader, colorFormat)
	if err != nil {
		return nil, err
	}
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Sharpen Uniform Buffer",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &SharpenPass{effect: effect, blit: blit, uniformBuf: buf}, nil
}

func (p *SharpenPass) Slots() []string { return []string{"input", "output"} }

func (p *SharpenPass) IsEnabled(cfg DemoConfig) bool { return true }

func (p *SharpenPass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg DemoConfig) {
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(cfg.Sharpen.Strength))
	queue.WriteBuffer(p.uniformBuf, 0, buf[:])
}

func (p *SharpenPass) InvalidateBindGroups() {
	p.cachedWithUniforms = nil
	p.cachedWithoutUniforms = nil
}

func (p *SharpenPass) Execute(ctx *rendergraph.PassExecutionContext[DemoConfig], cfg DemoConfig) error {
	pipeline := p.blit.pipeline
	bgLayout := p.blit.bindLayout
	sampler := p.blit.sampler
	cached := &p.cachedWithoutUniforms
	withUniforms := cfg.Sharpen.Enabled
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
			Label:   "Sharpen Bind Group",
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
	return beginFullscreenPass(ctx.Encoder(), "Sharpen Render Pass", view, loadOp, clear, storeOp, pipeline, *cached)
}
