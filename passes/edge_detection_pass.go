package passes

import (
	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

const edgeDetectionFragmentShader = `
@group(0) @binding(0)
var input_texture: texture_2d<f32>;

@group(0) @binding(1)
var input_sampler: sampler;

fn luminance(color: vec3<f32>) -> f32 {
    return dot(color, vec3<f32>(0.299, 0.587, 0.114));
}

@fragment
fn fragment_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let texture_size = textureDimensions(input_texture);
    let texel_size = vec2<f32>(1.0 / f32(texture_size.x), 1.0 / f32(texture_size.y));

    let tl = luminance(textureSample(input_texture, input_sampler, in.uv + vec2<f32>(-texel_size.x, -texel_size.y)).rgb);
    let tm = luminance(textureSample(input_texture, input_sampler, in.uv + vec2<f32>(0.0, -texel_size.y)).rgb);
    let tr = luminance(textureSample(input_texture, input_sampler, in.uv + vec2<f32>(texel_size.x, -texel_size.y)).rgb);

    let ml = luminance(textureSample(input_texture, input_sampler, in.uv + vec2<f32>(-texel_size.x, 0.0)).rgb);
    let mr = luminance(textureSample(input_texture, input_sampler, in.uv + vec2<f32>(texel_size.x, 0.0)).rgb);

    let bl = luminance(textureSample(input_texture, input_sampler, in.uv + vec2<f32>(-texel_size.x, texel_size.y)).rgb);
    let bm = luminance(textureSample(input_texture, input_sampler, in.uv + vec2<f32>(0.0, texel_size.y)).rgb);
    let br = luminance(textureSample(input_texture, input_sampler, in.uv + vec2<f32>(texel_size.x, texel_size.y)).rgb);

    let gx = -tl - 2.0 * ml - bl + tr + 2.0 * mr + br;
    let gy = -tl - 2.0 * tm - tr + bl + 2.0 * bm + br;

    let edge_strength = sqrt(gx * gx + gy * gy);

    let original = textureSample(input_texture, input_sampler, in.uv).rgb;
    let edge_color = vec3<f32>(edge_strength);

    let result = mix(original, edge_color, 0.7);

    return vec4<f32>(result, 1.0);
}
`

// EdgeDetectionPass applies a Sobel edge filter blended 70% over the
// original. Unlike BrightnessContrastPass, its effect and blit pipelines
// share an identical bind group layout (texture + sampler only), so a
// single cached bind group serves both.
type EdgeDetectionPass struct {
	effect *fullscreenPipeline
	blit   *fullscreenPipeline

	cachedBindGroup *wgpu.BindGroup
}

// NewEdgeDetectionPass compiles both pipelines against one shared bind
// group layout, since neither variant needs more than the input texture
// and sampler.
func NewEdgeDetectionPass(device *wgpu.Device, colorFormat wgpu.TextureFormat) (*EdgeDetectionPass, error) {
	bindLayout, err := buildFullscreenBindLayout(device, "Edge Detection")
	if err != nil {
		return nil, err
	}
	effect, err := buildFullscreenPipelineFromLayout(device, "Edge Detection", edgeDetectionFragmentShader, colorFormat, bindLayout)
	if err != nil {
		return nil, err
	}
	blit, err := buildFullscreenPipelineFromLayout(device, "Edge Detection Blit", blitFragmentShader, colorFormat, bindLayout)
	if err != nil {
		return nil, err
	}
	return &EdgeDetectionPass{effect: effect, blit: blit}, nil
}

func (p *EdgeDetectionPass) Slots() []string { return []string{"input", "output"} }

func (p *EdgeDetectionPass) IsEnabled(cfg DemoConfig) bool { return true }

func (p *EdgeDetectionPass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg DemoConfig) {}

func (p *EdgeDetectionPass) InvalidateBindGroups() { p.cachedBindGroup = nil }

func (p *EdgeDetectionPass) Execute(ctx *rendergraph.PassExecutionContext[DemoConfig], cfg DemoConfig) error {
	pipeline := p.blit.pipeline
	if cfg.EdgeDetection.Enabled {
		pipeline = p.effect.pipeline
	}

	if p.cachedBindGroup == nil {
		inputView, err := ctx.TextureView("input")
		if err != nil {
			return err
		}
		bg, err := ctx.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Edge Detection Bind Group",
			Layout: p.blit.bindLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: inputView},
				{Binding: 1, Sampler: p.blit.sampler},
			},
		})
		if err != nil {
			return err
		}
		p.cachedBindGroup = bg
	}

	view, loadOp, clear, storeOp, err := ctx.ColorAttachment("output")
	if err != nil {
		return err
	}
	return beginFullscreenPass(ctx.Encoder(), "Edge Detection Render Pass", view, loadOp, clear, storeOp, pipeline, p.cachedBindGroup)
}
