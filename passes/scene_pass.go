package passes

import (
	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

// ScenePass draws the demo's indexed geometry into the color and depth
// attachments that seed the post-process chain. It declares no reads: it
// is the graph's source node, kept alive by external-resource seeding
// rather than by a downstream read dependency.
type ScenePass struct {
	Pipeline         *wgpu.RenderPipeline
	VertexBuffer     *wgpu.Buffer
	IndexBuffer      *wgpu.Buffer
	IndexCount       uint32
	UniformBindGroup *wgpu.BindGroup
	TextureBindGroup *wgpu.BindGroup
}

// NewScenePass assembles a ScenePass from its already-built GPU resources;
// the pipeline, buffers, and bind groups are constructed by the caller
// (cmd/demo), since they depend on the caller's geometry and texture.
func NewScenePass(pipeline *wgpu.RenderPipeline, vertexBuffer, indexBuffer *wgpu.Buffer, indexCount uint32, uniformBindGroup, textureBindGroup *wgpu.BindGroup) *ScenePass {
	return &ScenePass{
		Pipeline:         pipeline,
		VertexBuffer:     vertexBuffer,
		IndexBuffer:      indexBuffer,
		IndexCount:       indexCount,
		UniformBindGroup: uniformBindGroup,
		TextureBindGroup: textureBindGroup,
	}
}

func (p *ScenePass) Slots() []string { return []string{"color_output", "depth_output"} }

func (p *ScenePass) IsEnabled(cfg DemoConfig) bool { return true }

func (p *ScenePass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg DemoConfig) {}

func (p *ScenePass) InvalidateBindGroups() {}

func (p *ScenePass) Execute(ctx *rendergraph.PassExecutionContext[DemoConfig], cfg DemoConfig) error {
	colorView, colorLoadOp, colorClear, colorStoreOp, err := ctx.ColorAttachment("color_output")
	if err != nil {
		return err
	}
	depthView, depthLoadOp, depthClear, depthStoreOp, err := ctx.DepthAttachment("depth_output")
	if err != nil {
		return err
	}
	var depthClearValue float32
	if depthClear != nil {
		depthClearValue = *depthClear
	}
	var colorClearValue wgpu.Color
	if colorClear != nil {
		colorClearValue = *colorClear
	}

	pass := ctx.Encoder().BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Scene Render Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       colorView,
				LoadOp:     colorLoadOp,
				StoreOp:    colorStoreOp,
				ClearValue: colorClearValue,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     depthLoadOp,
			DepthStoreOp:    depthStoreOp,
			DepthClearValue: depthClearValue,
		},
	})

	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.UniformBindGroup, nil)
	pass.SetBindGroup(1, p.TextureBindGroup, nil)
	pass.SetVertexBuffer(0, p.VertexBuffer, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(p.IndexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(p.IndexCount, 1, 0, 0, 0)
	pass.End()
	return nil
}
