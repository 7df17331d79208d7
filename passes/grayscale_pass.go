package passes

import (
	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

const grayscaleFragmentShader = `
@group(0) @binding(0)
var input_texture: texture_2d<f32>;

@group(0) @binding(1)
var input_sampler: sampler;

@fragment
fn fragment_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let color = textureSample(input_texture, input_sampler, in.uv).rgb;
    let luminance = dot(color, vec3<f32>(0.299, 0.587, 0.114));
    return vec4<f32>(vec3<f32>(luminance), 1.0);
}
`

// GrayscalePass converts its input to luminance when enabled, or passes it
// through unmodified otherwise. It stays enabled unconditionally so the
// output slot is always written, and toggles between an effect pipeline
// and a blit pipeline in Execute instead of relying on dead-pass culling.
type GrayscalePass struct {
	effect *fullscreenPipeline
	blit   *fullscreenPipeline

	cachedWithEffect    *wgpu.BindGroup
	cachedWithoutEffect *wgpu.BindGroup
}

// NewGrayscalePass compiles both the grayscale and pass-through pipelines
// against colorFormat.
func NewGrayscalePass(device *wgpu.Device, colorFormat wgpu.TextureFormat) (*GrayscalePass, error) {
	bindLayout, err := buildFullscreenBindLayout(device, "Grayscale")
	if err != nil {
		return nil, err
	}
	effect, err := buildFullscreenPipelineFromLayout(device, "Grayscale", grayscaleFragmentShader, colorFormat, bindLayout)
	if err != nil {
		return nil, err
	}
	blit, err := buildFullscreenPipelineFromLayout(device, "Grayscale Blit", blitFragmentShader, colorFormat, bindLayout)
	if err != nil {
		return nil, err
	}
	return &GrayscalePass{effect: effect, blit: blit}, nil
}

func (p *GrayscalePass) Slots() []string { return []string{"input", "output"} }

func (p *GrayscalePass) IsEnabled(cfg DemoConfig) bool { return true }

func (p *GrayscalePass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg DemoConfig) {}

func (p *GrayscalePass) InvalidateBindGroups() {
	p.cachedWithEffect = nil
	p.cachedWithoutEffect = nil
}

func (p *GrayscalePass) Execute(ctx *rendergraph.PassExecutionContext[DemoConfig], cfg DemoConfig) error {
	pipeline := p.blit.pipeline
	bgLayout := p.blit.bindLayout
	sampler := p.blit.sampler
	cached := &p.cachedWithoutEffect
	if cfg.Grayscale.Enabled {
		pipeline = p.effect.pipeline
		bgLayout = p.effect.bindLayout
		sampler = p.effect.sampler
		cached = &p.cachedWithEffect
	}

	if *cached == nil {
		inputView, err := ctx.TextureView("input")
		if err != nil {
			return err
		}
		bg, err := ctx.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Grayscale Bind Group",
			Layout: bgLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: inputView},
				{Binding: 1, Sampler: sampler},
			},
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
	return beginFullscreenPass(ctx.Encoder(), "Grayscale Render Pass", view, loadOp, clear, storeOp, pipeline, *cached)
}
