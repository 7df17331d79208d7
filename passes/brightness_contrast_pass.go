package passes

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

const brightnessContrastFragmentShader = `
@group(0) @binding(0)
var input_texture: texture_2d<f32>;

@group(0) @binding(1)
var input_sampler: sampler;

struct Uniforms {
    brightness: f32,
    contrast: f32,
};

@group(0) @binding(2)
var<uniform> uniforms: Uniforms;

@fragment
fn fragment_main(in: VertexOutput) -> @location(0) vec4<f32> {
    var color = textureSample(input_texture, input_sampler, in.uv).rgb;
    color = color + uniforms.brightness;
    color = (color - 0.5) * uniforms.contrast + 0.5;
    return vec4<f32>(color, 1.0);
}
`

// BrightnessContrastPass adjusts brightness and contrast, uploading both
// parameters to a small uniform buffer each frame Prepare runs. Like
// GrayscalePass it stays enabled unconditionally and toggles between an
// effect pipeline and a blit pipeline in Execute.
type BrightnessContrastPass struct {
	effect       *fullscreenPipeline
	blit         *fullscreenPipeline
	uniformBuf   *wgpu.Buffer

	cachedWithUniforms    *wgpu.BindGroup
	cachedWithoutUniforms *wgpu.BindGroup
}

// NewBrightnessContrastPass compiles both pipelines and allocates the
// uniform buffer backing the effect pipeline's third binding.
func NewBrightnessContrastPass(device *wgpu.Device, colorFormat wgpu.TextureFormat) (*BrightnessContrastPass, error) {
	effect, err := buildFullscreenPipeline(device, "Brightness/Contrast", brightnessContrastFragmentShader, colorFormat,
		wgpu.BindGroupLayoutEntry{
			Binding:    2,
			Visibility: wgpu.ShaderStageFragment,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		},
	)
	if err != nil {
		return nil, err
	}
	blit, err := buildFullscreenPipeline(device, "Brightness/Contrast Blit", blitFragmentShader, colorFormat)
	if err != nil {
		return nil, err
	}
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Brightness/Contrast Uniform Buffer",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &BrightnessContrastPass{effect: effect, blit: blit, uniformBuf: buf}, nil
}

func (p *BrightnessContrastPass) Slots() []string { return []string{"input", "output"} }

func (p *BrightnessContrastPass) IsEnabled(cfg DemoConfig) bool { return true }

func (p *BrightnessContrastPass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg DemoConfig) {
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(cfg.BrightnessContrast.Brightness))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(cfg.BrightnessContrast.Contrast))
	queue.WriteBuffer(p.uniformBuf, 0, buf[:])
}

func (p *BrightnessContrastPass) InvalidateBindGroups() {
	p.cachedWithUniforms = nil
	p.cachedWithoutUniforms = nil
}

func (p *BrightnessContrastPass) Execute(ctx *rendergraph.PassExecutionContext[DemoConfig], cfg DemoConfig) error {
	pipeline := p.blit.pipeline
	bgLayout := p.blit.bindLayout
	sampler := p.blit.sampler
	cached := &p.cachedWithoutUniforms
	withUniforms := cfg.BrightnessContrast.Enabled
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
			Label:   "Brightness/Contrast Bind Group",
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
	return beginFullscreenPass(ctx.Encoder(), "Brightness/Contrast Render Pass", view, loadOp, clear, storeOp, pipeline, *cached)
}
