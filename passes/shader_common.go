// Package passes implements the concrete render-graph passes for the demo
// post-processing pipeline: a scene pass, a library of single-input
// fullscreen filters, a two-pass separable blur, a compute-shader filter,
// and a histogram readback pass.
package passes

import "github.com/cogentcore/webgpu/wgpu"

// fullscreenVertexShader draws a single oversized triangle covering the
// viewport from three vertices with no vertex buffer, the standard trick
// every fullscreen filter in this package shares.
const fullscreenVertexShader = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vertex_main(@builtin(vertex_index) vertex_index: u32) -> VertexOutput {
    var out: VertexOutput;
    let x = f32((vertex_index & 1u) << 1u);
    let y = f32((vertex_index & 2u));
    out.position = vec4<f32>(x * 2.0 - 1.0, y * 2.0 - 1.0, 0.0, 1.0);
    out.uv = vec2<f32>(x, 1.0 - y);
    return out;
}
`

// fullscreenPipeline bundles the handful of GPU objects every single-input
// fullscreen filter needs: a pipeline sampling one texture through one
// sampler, plus whatever extra uniform/storage bindings the fragment
// shader declares.
type fullscreenPipeline struct {
	pipeline    *wgpu.RenderPipeline
	bindLayout  *wgpu.BindGroupLayout
	sampler     *wgpu.Sampler
}

// buildFullscreenBindLayout declares the fixed texture+sampler pair at
// bindings 0 and 1 that every fullscreen filter reads its input through,
// plus whatever extraEntries a particular filter's uniform data needs.
func buildFullscreenBindLayout(device *wgpu.Device, label string, extraEntries ...wgpu.BindGroupLayoutEntry) (*wgpu.BindGroupLayout, error) {
	entries := append([]wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageFragment,
			Sampler: wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			},
		},
	}, extraEntries...)

	return device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label + " Bind Group Layout",
		Entries: entries,
	})
}

// buildFullscreenPipeline compiles the shared fullscreen vertex shader
// plus fragmentSrc into a render
// pipeline over extraEntries appended after the fixed texture+sampler
// pair at bindings 0 and 1, targeting colorFormat.
func buildFullscreenPipeline(device *wgpu.Device, label string, fragmentSrc string, colorFormat wgpu.TextureFormat, extraEntries ...wgpu.BindGroupLayoutEntry) (*fullscreenPipeline, error) {
	bindLayout, err := buildFullscreenBindLayout(device, label, extraEntries...)
	if err != nil {
		return nil, err
	}
	return buildFullscreenPipelineFromLayout(device, label, fragmentSrc, colorFormat, bindLayout)
}

// buildFullscreenPipelineFromLayout compiles a pipeline against a
// caller-supplied bind group layout, letting two pipelines that share an
// identical binding shape (e.g. a filter's effect and blit variants)
// share one layout so a single bind group is valid against both.
func buildFullscreenPipelineFromLayout(device *wgpu.Device, label string, fragmentSrc string, colorFormat wgpu.TextureFormat, bindLayout *wgpu.BindGroupLayout) (*fullscreenPipeline, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label + " Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: fullscreenVertexShader + "\n" + fragmentSrc,
		},
	})
	if err != nil {
		return nil, err
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + " Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bindLayout},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label + " Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vertex_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fragment_main",
			Targets: []wgpu.ColorTargetState{
				{Format: colorFormat, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:        label + " Sampler",
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
	})
	if err != nil {
		return nil, err
	}

	return &fullscreenPipeline{pipeline: pipeline, bindLayout: bindLayout, sampler: sampler}, nil
}

// beginFullscreenPass opens a single-color-attachment render pass over
// view/loadOp/storeOp and issues the three-vertex fullscreen draw with
// bg bound at group 0.
func beginFullscreenPass(encoder *wgpu.CommandEncoder, label string, view *wgpu.TextureView, loadOp wgpu.LoadOp, clearColor *wgpu.Color, storeOp wgpu.StoreOp, pipeline *wgpu.RenderPipeline, bg *wgpu.BindGroup) error {
	var clear wgpu.Color
	if clearColor != nil {
		clear = *clearColor
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     loadOp,
				StoreOp:    storeOp,
				ClearValue: clear,
			},
		},
	})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	return nil
}
