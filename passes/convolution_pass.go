package passes

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

const convolutionFragmentShader = `
@group(0) @binding(0)
var input_texture: texture_2d<f32>;

@group(0) @binding(1)
var input_sampler: sampler;

struct ConvolutionKernel {
    row0: vec4<f32>,
    row1: vec4<f32>,
    row2: vec4<f32>,
};

@group(0) @binding(2)
var<uniform> kernel: ConvolutionKernel;

@fragment
fn fragment_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let texture_size = textureDimensions(input_texture);
    let texel_size = 1.0 / vec2<f32>(f32(texture_size.x), f32(texture_size.y));

    var result = vec3<f32>(0.0);

    for (var y: i32 = -1; y <= 1; y++) {
        for (var x: i32 = -1; x <= 1; x++) {
            let offset = vec2<f32>(f32(x), f32(y)) * texel_size;
            let sample_uv = in.uv + offset;
            let sample_color = textureSample(input_texture, input_sampler, sample_uv).rgb;

            var kernel_value = 0.0;
            if y == -1 {
                kernel_value = kernel.row0[x + 1];
            } else if y == 0 {
                kernel_value = kernel.row1[x + 1];
            } else {
                kernel_value = kernel.row2[x + 1];
            }

            result += sample_color * kernel_value;
        }
    }

    return vec4<f32>(result, 1.0);
}
`

// ConvolutionPass applies a caller-supplied 3x3 kernel as a 9-tap
// weighted sum. Each kernel row is uploaded as a vec4 (with a padding
// component) to satisfy WGSL's 16-byte array-stride alignment.
type ConvolutionPass struct {
	effect     *fullscreenPipeline
	blit       *fullscreenPipeline
	uniformBuf *wgpu.Buffer

	cachedWithUniforms    *wgpu.BindGroup
	cachedWithoutUniforms *wgpu.BindGroup
}

// convolutionUniformSize is three vec4<f32> rows, 16 bytes each.
const convolutionUniformSize = 48

// NewConvolutionPass compiles both pipelines and allocates the kernel
// uniform buffer.
func NewConvolutionPass(device *wgpu.Device, colorFormat wgpu.TextureFormat) (*ConvolutionPass, error) {
	effect, err := buildFullscreenPipeline(device, "Convolution", convolutionFragmentShader, colorFormat,
		wgpu.BindGroupLayoutEntry{
			Binding:    2,
			Visibility: wgpu.ShaderStageFragment,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		},
	)
	if err != nil {
		return nil, err
	}
	blit, err := buildFullscreenPipeline(device, "Convolution Blit", blitFragmentShader, colorFormat)
	if err != nil {
		return nil, err
	}
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Convolution Kernel Buffer",
		Size:  convolutionUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &ConvolutionPass{effect: effect, blit: blit, uniformBuf: buf}, nil
}

func (p *ConvolutionPass) Slots() []string { return []string{"input", "output"} }

func (p *ConvolutionPass) IsEnabled(cfg DemoConfig) bool { return true }

func (p *ConvolutionPass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg DemoConfig) {
	k := cfg.Convolution.Kernel
	var buf [convolutionUniformSize]byte
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			offset := row*16 + col*4
			binary.LittleEndian.PutUint32(buf[offset:offset+4], math.Float32bits(k[row*3+col]))
		}
	}
	queue.WriteBuffer(p.uniformBuf, 0, buf[:])
}

func (p *ConvolutionPass) InvalidateBindGroups() {
	p.cachedWithUniforms = nil
	p.cachedWithoutUniforms = nil
}

func (p *ConvolutionPass) Execute(ctx *rendergraph.PassExecutionContext[DemoConfig], cfg DemoConfig) error {
	pipeline := p.blit.pipeline
	bgLayout := p.blit.bindLayout
	sampler := p.blit.sampler
	cached := &p.cachedWithoutUniforms
	withUniforms := cfg.Convolution.Enabled
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
			Label:   "Convolution Bind Group",
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
	return beginFullscreenPass(ctx.Encoder(), "Convolution Render Pass", view, loadOp, clear, storeOp, pipeline, *cached)
}
