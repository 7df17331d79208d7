package passes

import (
	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

const colorInvertFragmentShader = `
@group(0) @binding(0)
var input_texture: texture_2d<f32>;

@group(0) @binding(1)
var input_sampler: sampler;

@fragment
fn fragment_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let color = textureSample(input_texture, input_sampler, in.uv).rgb;
    return vec4<f32>(1.0 - color, 1.0);
}
`

// ColorInvertPass inverts its input's color channels when enabled, or
// passes it through unmodified otherwise, using the same blit-or-effect
// pipeline toggle as GrayscalePass.
type ColorInvertPass struct {
	effect *fullscreenPipeline
	blit   *fullscreenPipeline

	cachedWithEffect    *wgpu.BindGroup
	cachedWithoutEffect *wgpu.BindGroup
}

// NewColorInvertPass compiles both the invert and pass-through pipelines
// against colorFormat.
func NewColorInvertPass(device *wgpu.Device, colorFormat wgpu.TextureFormat) (*ColorInvertPass, error) {
	bindLayout, err := buildFullscreenBindLayout(device, "Color Invert")
	if err != nil {
		return nil, err
	}
	effect, err := buildFullscreenPipelineFromLayout(device, "Color Invert", colorInvertFragmentShader, colorFormat, bindLayout)
	if err != nil {
		return nil, err
	}
	blit, err := buildFullscreenPipelineFromLayout(device, "Color Invert Blit", blitFragmentShader, colorFormat, bindLayout)
	if err != nil {
		return nil, err
	}
	return &ColorInvertPass{effect: effect, blit: blit}, nil
}

func (p *ColorInvertPass) Slots() []string { return []string{"input", "output"} }

func (p *ColorInvertPass) IsEnabled(cfg DemoConfig) bool { return true }

func (p *ColorInvertPass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg DemoConfig) {}

func (p *ColorInvertPass) InvalidateBindGroups() {
	p.cachedWithEffect = nil
	p.cachedWithoutEffect = nil
}

func (p *ColorInvertPass) Execute(ctx *rendergraph.PassExecutionContext[DemoConfig], cfg DemoConfig) error {
	pipeline := p.blit.pipeline
	bgLayout := p.blit.bindLayout
	sampler := p.blit.sampler
	cached := &p.cachedWithoutEffect
	if cfg.ColorInvert.Enabled {
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
			Label:  "Color Invert Bind Group",
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
	return beginFullscreenPass(ctx.Encoder(), "Color Invert Render Pass", view, loadOp, clear, storeOp, pipeline, *cached)
}
