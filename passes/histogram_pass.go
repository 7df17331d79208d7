package passes

import (
	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

const histogramComputeShader = `
@group(0) @binding(0)
var input_texture: texture_2d<f32>;

@group(0) @binding(1)
var<storage, read_write> histogram: array<atomic<u32>, 256>;

@compute @workgroup_size(16, 16)
fn compute_main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let texture_size = textureDimensions(input_texture);

    if (global_id.x >= texture_size.x || global_id.y >= texture_size.y) {
        return;
    }

    let color = textureLoad(input_texture, vec2<i32>(i32(global_id.x), i32(global_id.y)), 0).rgb;

    let luminance = dot(color, vec3<f32>(0.299, 0.587, 0.114));
    let bin = u32(clamp(luminance * 255.0, 0.0, 255.0));

    atomicAdd(&histogram[bin], 1u);
}
`

const histogramBinCount = 256

// HistogramComputePass accumulates a 256-bin luminance histogram of its
// input texture into a storage buffer, then copies the result into a
// map-readable staging buffer for the caller to read back once the
// submitted command buffer has completed. It declares no output slot: it
// is an analysis pass with a side effect on buffers outside the graph's
// resource registry; because it declares no writes, dead-pass elimination
// treats it as a side effect and never culls it, although nothing
// downstream depends on it.
type HistogramComputePass struct {
	pipeline   *wgpu.ComputePipeline
	bindLayout *wgpu.BindGroupLayout

	histogramBuffer *wgpu.Buffer
	readbackBuffer  *wgpu.Buffer
	cachedBindGroup *wgpu.BindGroup
}

// NewHistogramComputePass compiles the histogram compute pipeline. The
// storage and readback buffers are owned by the caller, which also
// performs the post-submit map-read; each buffer must hold at least
// histogramBinCount * 4 bytes.
func NewHistogramComputePass(device *wgpu.Device, histogramBuffer, readbackBuffer *wgpu.Buffer) (*HistogramComputePass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Histogram Compute Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: histogramComputeShader,
		},
	})
	if err != nil {
		return nil, err
	}

	bindLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Histogram Compute Bind Group Layout",
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
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Histogram Compute Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bindLayout},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "Histogram Compute Pipeline",
		Layout:  pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: "compute_main"},
	})
	if err != nil {
		return nil, err
	}

	return &HistogramComputePass{
		pipeline:        pipeline,
		bindLayout:      bindLayout,
		histogramBuffer: histogramBuffer,
		readbackBuffer:  readbackBuffer,
	}, nil
}

// ReadbackBuffer exposes the map-readable buffer so the caller can map and
// read it once the frame's submission has completed.
func (p *HistogramComputePass) ReadbackBuffer() *wgpu.Buffer { return p.readbackBuffer }

func (p *HistogramComputePass) Slots() []string { return []string{"input"} }

func (p *HistogramComputePass) IsEnabled(cfg DemoConfig) bool { return cfg.Histogram.Enabled }

func (p *HistogramComputePass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg DemoConfig) {}

func (p *HistogramComputePass) InvalidateBindGroups() { p.cachedBindGroup = nil }

func (p *HistogramComputePass) Execute(ctx *rendergraph.PassExecutionContext[DemoConfig], cfg DemoConfig) error {
	if p.cachedBindGroup == nil {
		inputView, err := ctx.TextureView("input")
		if err != nil {
			return err
		}
		bg, err := ctx.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Histogram Compute Bind Group",
			Layout: p.bindLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: inputView},
				{Binding: 1, Buffer: p.histogramBuffer, Size: wgpu.WholeSize},
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

	ctx.Encoder().ClearBuffer(p.histogramBuffer, 0, histogramBinCount*4)

	pass := ctx.Encoder().BeginComputePass(&wgpu.ComputePassDescriptor{Label: "Histogram Compute Pass"})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.cachedBindGroup, nil)
	pass.DispatchWorkgroups(ceilDiv(width, 16), ceilDiv(height, 16), 1)
	pass.End()

	ctx.Encoder().CopyBufferToBuffer(p.histogramBuffer, 0, p.readbackBuffer, 0, histogramBinCount*4)
	return nil
}
