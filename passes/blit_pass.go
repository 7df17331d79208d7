package passes

import (
	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

const blitFragmentShader = `
@group(0) @binding(0)
var input_texture: texture_2d<f32>;

@group(0) @binding(1)
var input_sampler: sampler;

@fragment
fn fragment_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(input_texture, input_sampler, in.uv);
}
`

// BlitPass samples its input texture and writes it unmodified to its
// output, used to present a post-process chain's final result to the
// swapchain surface.
type BlitPass struct {
	name string
	fp   *fullscreenPipeline

	cachedBindGroup *wgpu.BindGroup
}

// NewBlitPass constructs a pass named name, compiling its pipeline
// against colorFormat (normally the surface format).
func NewBlitPass(device *wgpu.Device, name string, colorFormat wgpu.TextureFormat) (*BlitPass, error) {
	fp, err := buildFullscreenPipeline(device, "Blit", blitFragmentShader, colorFormat)
	if err != nil {
		return nil, err
	}
	return &BlitPass{name: name, fp: fp}, nil
}

func (p *BlitPass) Slots() []string { return []string{"input", "output"} }

func (p *BlitPass) IsEnabled(cfg DemoConfig) bool { return true }

func (p *BlitPass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg DemoConfig) {}

func (p *BlitPass) InvalidateBindGroups() { p.cachedBindGroup = nil }

func (p *BlitPass) Execute(ctx *rendergraph.PassExecutionContext[DemoConfig], cfg DemoConfig) error {
	if p.cachedBindGroup == nil {
		inputView, err := ctx.TextureView("input")
		if err != nil {
			return err
		}
		bg, err := ctx.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Blit Bind Group",
			Layout: p.fp.bindLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: inputView},
				{Binding: 1, Sampler: p.fp.sampler},
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
	return beginFullscreenPass(ctx.Encoder(), "Blit Render Pass", view, loadOp, clear, storeOp, p.fp.pipeline, p.cachedBindGroup)
}
