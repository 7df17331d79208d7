package main

import (
	"github.com/Carmen-Shannon/oxy-go/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// sceneVertex mirrors the position+uv layout the scene pipeline declares
// below: a clip-space position and a texture coordinate, nothing else. The
// original triangle mesh this is grounded on also carried a texture atlas
// index, dropped here since the demo has exactly one triangle and one
// texture.
type sceneVertex struct {
	position [4]float32
	uv       [2]float32
}

// triangleResources bundles every GPU object the hard-coded scene triangle
// needs: geometry, a uniform MVP bind group, and a small procedural
// checkerboard texture bind group standing in for a real material.
type triangleResources struct {
	pipeline         *wgpu.RenderPipeline
	vertexBuffer     *wgpu.Buffer
	indexBuffer      *wgpu.Buffer
	indexCount       uint32
	uniformBuffer    *wgpu.Buffer
	uniformBindGroup *wgpu.BindGroup
	textureBindGroup *wgpu.BindGroup
}

const sceneVertexShader = `
struct Uniforms {
    mvp: mat4x4<f32>,
};
@group(0) @binding(0) var<uniform> uniforms: Uniforms;

struct VertexInput {
    @location(0) position: vec4<f32>,
    @location(1) uv: vec2<f32>,
};

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vertex_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.position = uniforms.mvp * in.position;
    out.uv = in.uv;
    return out;
}
`

const sceneFragmentShader = `
@group(1) @binding(0) var scene_texture: texture_2d<f32>;
@group(1) @binding(1) var scene_sampler: sampler;

@fragment
fn fragment_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let tex_color = textureSample(scene_texture, scene_sampler, in.uv);
    return vec4<f32>(in.uv, 0.5, 1.0) * tex_color;
}
`

// newTriangleResources builds the pipeline, geometry, and bind groups for
// the single hard-coded triangle that seeds the post-process chain. The
// triangle is specified directly in clip space, so the uniform's MVP is the
// identity matrix; it exists so the pipeline exercises the same
// uniform-buffer-at-group-0 shape a real scene would use.
func newTriangleResources(device *wgpu.Device, queue *wgpu.Queue, colorFormat wgpu.TextureFormat) (*triangleResources, error) {
	vertices := []sceneVertex{
		{position: [4]float32{0.0, 0.75, 0.0, 1.0}, uv: [2]float32{0.5, 0.0}},
		{position: [4]float32{-0.75, -0.75, 0.0, 1.0}, uv: [2]float32{0.0, 1.0}},
		{position: [4]float32{0.75, -0.75, 0.0, 1.0}, uv: [2]float32{1.0, 1.0}},
	}
	indices := []uint32{0, 1, 2}

	vertexBuffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Scene Vertex Buffer",
		Size:  uint64(len(vertices)) * uint64(sceneVertexSize),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	indexBuffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Scene Index Buffer",
		Size:  uint64(len(indices)) * 4,
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	queue.WriteBuffer(vertexBuffer, 0, common.SliceToBytes(vertices))
	queue.WriteBuffer(indexBuffer, 0, common.SliceToBytes(indices))

	var mvp [16]float32
	common.Identity(mvp[:])
	uniformBuffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Scene Uniform Buffer",
		Size:  uint64(len(mvp)) * 4,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	queue.WriteBuffer(uniformBuffer, 0, common.SliceToBytes(mvp[:]))

	uniformLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Scene Uniform Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	uniformBindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Scene Uniform Bind Group",
		Layout: uniformLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniformBuffer, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, err
	}

	textureLayout, texture, sampler, err := buildSceneTexture(device, queue)
	if err != nil {
		return nil, err
	}
	textureView, err := texture.CreateView(nil)
	if err != nil {
		return nil, err
	}
	textureBindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Scene Texture Bind Group",
		Layout: textureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: textureView},
			{Binding: 1, Sampler: sampler},
		},
	})
	if err != nil {
		return nil, err
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Scene Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{uniformLayout, textureLayout},
	})
	if err != nil {
		return nil, err
	}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Scene Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: sceneVertexShader + "\n" + sceneFragmentShader,
		},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Scene Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vertex_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(sceneVertexSize),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x2, Offset: 16, ShaderLocation: 1},
					},
				},
			},
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
			FrontFace: wgpu.FrontFaceCW,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	return &triangleResources{
		pipeline:         pipeline,
		vertexBuffer:     vertexBuffer,
		indexBuffer:      indexBuffer,
		indexCount:       uint32(len(indices)),
		uniformBuffer:    uniformBuffer,
		uniformBindGroup: uniformBindGroup,
		textureBindGroup: textureBindGroup,
	}, nil
}

const sceneVertexSize = 4*4 + 2*4 // position (vec4) + uv (vec2), in bytes

// buildSceneTexture creates a small procedural checkerboard texture that
// stands in for a loaded material, so the texture bind group exercises a
// real sampled-texture path rather than a stub.
func buildSceneTexture(device *wgpu.Device, queue *wgpu.Queue) (*wgpu.BindGroupLayout, *wgpu.Texture, *wgpu.Sampler, error) {
	const size = 4
	pixels := make([]byte, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := (y*size + x) * 4
			if (x+y)%2 == 0 {
				pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = 255, 255, 255, 255
			} else {
				pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = 80, 80, 80, 255
			}
		}
	}

	texture, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Scene Texture",
		Size: wgpu.Extent3D{
			Width:              size,
			Height:             size,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture: texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  size * 4,
			RowsPerImage: size,
		},
		&wgpu.Extent3D{Width: size, Height: size, DepthOrArrayLayers: 1},
	)

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:        "Scene Sampler",
		AddressModeU: wgpu.AddressModeRepeat,
		AddressModeV: wgpu.AddressModeRepeat,
		MagFilter:    wgpu.FilterModeNearest,
		MinFilter:    wgpu.FilterModeNearest,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Scene Texture Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
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
		},
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return layout, texture, sampler, nil
}
