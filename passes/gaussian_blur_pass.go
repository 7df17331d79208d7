package passes

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

const gaussianBlurFragmentShader = `
@group(0) @binding(0)
var input_texture: texture_2d<f32>;

@group(0) @binding(1)
var input_sampler: sampler;

struct Uniforms {
    direction: vec2<f32>,
};

@group(0) @binding(2)
var<uniform> uniforms: Uniforms;

@fragment
fn fragment_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let texture_size = textureDimensions(input_texture);
    let texel_size = 1.0 / vec2<f32>(f32(texture_size.x), f32(texture_size.y));

    let weights = array<f32, 5>(0.227027, 0.1945946, 0.1216216, 0.054054, 0.016216);

    var result = textureSample(input_texture, input_sampler, in.uv).rgb * weights[0];

    for (var i: i32 = 1; i < 5; i++) {
        let offset = uniforms.direction * texel_size * f32(i);
        result += textureSample(input_texture, input_sampler, in.uv + offset).rgb * weights[i];
        result += textureSample(input_texture, input_sampler, in.uv - offset).rgb * weights[i];
    }

    return vec4<f32>(result, 1.0);
}
`

// gaussianBlurDirectionPass is the shared implementation backing both
// GaussianBlurHorizontalPass and GaussianBlurVerticalPass, which differ
// only in the direction vector Prepare uploads and their pass label.
type gaussianBlurDirectionPass struct {
	label      string
	direction  [2]float32
	effect     *fullscreenPipeline
	blit       *fullscreenPipeline
	uniformBuf *wgpu.Buffer

	cachedWithBlur    *wgpu.BindGroup
	cachedWithoutBlur *wgpu.BindGroup
}

func newGaussianBlurDirectionPass(device *wgpu.Device, colorFormat wgpu.TextureFormat, label string, direction [2]float32) (*gaussianBlurDirectionPass, error) {
	effect, err := buildFullscreenPipeline(device, label, gaussianBlurFragmentShader, colorFormat,
		wgpu.BindGroupLayoutEntry{
			Binding:    2,
			Visibility: wgpu.ShaderStageFragment,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		},
	)
	if err != nil {
		return nil, err
	}
	blit, err := buildFullscreenPipeline(device, label+" Blit", blitFragmentShader, colorFormat)
	if err != nil {
		return nil, err
	}
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Uniform Buffer",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &gaussianBlurDirectionPass{label: label, direction: direction, effect: effect, blit: blit, uniformBuf: buf}, nil
}

func (p *gaussianBlurDirectionPass) Slots() []string { return []string{"input", "output"} }

func (p *gaussianBlurDirectionPass) IsEnabled(cfg DemoConfig) bool { return true }

func (p *gaussianBlurDirectionPass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg DemoConfig) {
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.direction[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.direction[1]))
	queue.WriteBuffer(p.uniformBuf, 0, buf[:])
}

func (p *gaussianBlurDirectionPass) InvalidateBindGroups() {
	p.cachedWithBlur = nil
	p.cachedWithoutBlur = nil
}

func (p *gaussianBlurDirectionPass) Execute(ctx *rendergraph.PassExecutionContext[DemoConfig], cfg DemoConfig) error {
	pipeline := p.blit.pipeline
	bgLayout := p.blit.bindLayout
	sampler := p.blit.sampler
	cached := &p.cachedWithoutBlur
	withBlur := cfg.GaussianBlur.Enabled
	if withBlur {
		pipeline = p.effect.pipeline
		bgLayout = p.effect.bindLayout
		sampler = p.effect.sampler
		cached = &p.cachedWithBlur
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
		if withBlur {
			entries = append(entries, wgpu.BindGroupEntry{Binding: 2, Buffer: p.uniformBuf, Size: wgpu.WholeSize})
		}
		bg, err := ctx.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   p.label + " Bind Group",
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
	return beginFullscreenPass(ctx.Encoder(), p.label+" Render Pass", view, loadOp, clear, storeOp, pipeline, *cached)
}

// GaussianBlurHorizontalPass blurs along the x axis; it is the first
// half of the two-pass separable Gaussian blur and its output is meant
// to feed GaussianBlurVerticalPass's input.
type GaussianBlurHorizontalPass struct{ *gaussianBlurDirectionPass }

// NewGaussianBlurHorizontalPass constructs the horizontal blur pass.
func NewGaussianBlurHorizontalPass(device *wgpu.Device, colorFormat wgpu.TextureFormat) (*GaussianBlurHorizontalPass, error) {
	inner, err := newGaussianBlurDirectionPass(device, colorFormat, "Gaussian Blur Horizontal", [2]float32{1, 0})
	if err != nil {
		return nil, err
	}
	return &GaussianBlurHorizontalPass{inner}, nil
}

// GaussianBlurVerticalPass blurs along the y axis, completing the
// separable two-pass Gaussian blur started by GaussianBlurHorizontalPass.
type GaussianBlurVerticalPass struct{ *gaussianBlurDirectionPass }

// NewGaussianBlurVerticalPass constructs the vertical blur pass.
func NewGaussianBlurVerticalPass(device *wgpu.Device, colorFormat wgpu.TextureFormat) (*GaussianBlurVerticalPass, error) {
	inner, err := newGaussianBlurDirectionPass(device, colorFormat, "Gaussian Blur Vertical", [2]float32{0, 1})
	if err != nil {
		return nil, err
	}
	return &GaussianBlurVerticalPass{inner}, nil
}
