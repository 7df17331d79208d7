package passes

import (
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

const computeGrayscaleShader = `
@group(0) @binding(0)
var input_texture: texture_2d<f32>;

@group(0) @binding(1)
var output_texture: texture_storage_2d<rgba8unorm, write>;

struct Uniforms {
    enabled: u32,
    padding1: u32,
    padding2: u32,
    padding3: u32,
};

@group(0) @binding(2)
var<uniform> uniforms: Uniforms;

@compute @workgroup_size(8, 8)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let texture_size = textureDimensions(input_texture);

    if (global_id.x >= texture_size.x || global_id.y >= texture_size.y) {
        return;
    }

    let coords = vec2<i32>(i32(global_id.x), i32(global_id.y));
    let color = textureLoad(input_texture, coords, 0);

    var output_color = color;

    if (uniforms.enabled != 0u) {
        let luminance = dot(color.rgb, vec3<f32>(0.299, 0.587, 0.114));
        output_color = vec4<f32>(luminance, luminance, luminance, color.a);
    }

    textureStore(output_texture, vec2<i32>(i32(global_id.x), i32(global_id.y)), output_color);
}
`

// ComputeGrayscalePass is the compute-shader counterpart to GrayscalePass:
// it dispatches an 8x8 workgroup grid over the input texture's dimensions,
// writing either a converted or a pass-through result into a storage
// texture output rather than recording a render pass.
type ComputeGrayscalePass struct {
	pipeline   *wgpu.ComputePipeline
	bindLayout *wgpu.BindGroupLayout
	uniformBuf *wgpu.Buffer

	cachedBindGroup *wgpu.BindGroup
}

// NewComputeGrayscalePass compiles the compute pipeline and allocates its
// enabled-flag uniform buffer.
func NewComputeGrayscalePass(device *wgpu.Device) (*ComputeGrayscalePass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Compute Grayscale Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: computeGrayscaleShader,
		},
	})
	if err != nil {
		return nil, err
	}

	bindLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Compute Grayscale Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        wgpu.TextureFormatRGBA8Unorm,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Compute Grayscale Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bindLayout},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "Compute Grayscale Pipeline",
		Layout:  pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: "main"},
	})
	if err != nil {
		return nil, err
	}

	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Compute Grayscale Uniform Buffer",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	return &ComputeGrayscalePass{pipeline: pipeline, bindLayout: bindLayout, uniformBuf: buf}, nil
}

func (p *ComputeGrayscalePass) Slots() []string { return []string{"input", "output"} }

func (p *ComputeGrayscalePass) IsEnabled(cfg DemoConfig) bool { return true }

func (p *ComputeGrayscalePass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg DemoConfig) {
	var enabled uint32
	if cfg.ComputeGrayscale.Enabled {
		enabled = 1
	}
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:4], enabled)
	queue.WriteBuffer(p.uniformBuf, 0, buf[:])
}

func (p *ComputeGrayscalePass) InvalidateBindGroups() { p.cachedBindGroup = nil }

func (p *ComputeGrayscalePass) Execute(ctx *rendergraph.PassExecutionContext[DemoConfig], cfg DemoConfig) error {
	if p.cachedBindGroup == nil {
		inputView, err := ctx.TextureView("input")
		if err != nil {
			return err
		}
		outputView, err := ctx.TextureView("output")
		if err != nil {
			return err
		}
		bg, err := ctx.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Compute Grayscale Bind Group",
			Layout: p.bindLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: inputView},
				{Binding: 1, TextureView: outputView},
				{Binding: 2, Buffer: p.uniformBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return err
		}
		p.cachedBindGroup = bg
	}

	width, height, err := ctx.TextureSize("input")
	if err != nil {
		return err
	}

	pass := ctx.Encoder().BeginComputePass(&wgpu.ComputePassDescriptor{Label: "Compute Grayscale Pass"})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.cachedBindGroup, nil)
	pass.DispatchWorkgroups(ceilDiv(width, 8), ceilDiv(height, 8), 1)
	pass.End()
	return nil
}

func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}
