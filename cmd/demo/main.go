// Command demo drives the post-processing render graph over a single
// hard-coded triangle: a scene pass renders the triangle into an
// offscreen color+depth target, a chain of toggleable filter passes reads
// and writes transient color textures, and a final blit copies the result
// onto the swapchain surface.
package main

import (
	"log"

	"github.com/Carmen-Shannon/oxy-go/engine"
	"github.com/Carmen-Shannon/oxy-go/engine/renderer"
	"github.com/Carmen-Shannon/oxy-go/engine/window"
	"github.com/Carmen-Shannon/oxy-go/passes"
	"github.com/Carmen-Shannon/oxy-go/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

func main() {
	w := window.NewWindow(
		window.WithTitle("oxy-go render graph demo"),
		window.WithWidth(1280),
		window.WithHeight(720),
	)

	r := renderer.NewRenderer(renderer.BackendTypeWGPU, w, renderer.WithPresentMode(renderer.PresentModeVSync))

	d := newDemo(r, w.Width(), w.Height())

	w.SetResizeCallback(func(width, height int) {
		if width == 0 || height == 0 {
			return
		}
		r.Resize(width, height)
		d.resize(r.Device(), uint32(width), uint32(height))
	})

	eng := engine.NewEngine(
		engine.WithWindow(w),
		engine.WithTickRate(60),
	)
	eng.SetRenderCallback(func(deltaTime float32) {
		d.renderFrame(r)
	})

	eng.EnableProfiler()
	eng.Run()
}

// demo owns the render graph, the hard-coded triangle's GPU resources, and
// the configuration toggled between frames.
type demo struct {
	graph  *rendergraph.Graph[passes.DemoConfig]
	config passes.DemoConfig

	surfaceID ResourceHandle
	depthID   ResourceHandle

	// transientChain holds every resizable transient color texture in the
	// post-process chain, in no particular order; resize walks this slice
	// rather than looking resources up by name.
	transientChain []ResourceHandle

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	triangle *triangleResources

	frameCount uint64
}

// ResourceHandle is a local alias kept for readability at call sites below;
// it is exactly a rendergraph.ResourceId.
type ResourceHandle = rendergraph.ResourceId

func newDemo(r renderer.Renderer, width, height int) *demo {
	device := r.Device()
	queue := r.Queue()
	surfaceFormat := r.SurfaceFormat()

	tri, err := newTriangleResources(device, queue, surfaceFormat)
	if err != nil {
		log.Fatalf("failed to build triangle resources: %v", err)
	}

	graph := rendergraph.NewGraph[passes.DemoConfig]()

	surfaceID := graph.RegisterExternalColorTexture("surface", surfaceFormat, true)
	depthID := graph.RegisterExternalDepthTexture("depth", wgpu.TextureFormatDepth24Plus, false)

	w, h := uint32(width), uint32(height)
	sceneColorID := graph.AddColorTexture("scene_color", surfaceFormat, w, h).
		WithClearColor(wgpu.Color{R: 0.05, G: 0.05, B: 0.08, A: 1.0}).
		Transient()
	edgesID := graph.AddColorTexture("edges", surfaceFormat, w, h).Transient()
	brightnessContrastID := graph.AddColorTexture("brightness_contrast", surfaceFormat, w, h).Transient()
	blurHorizontalID := graph.AddColorTexture("blur_horizontal", surfaceFormat, w, h).Transient()
	blurVerticalID := graph.AddColorTexture("blur_vertical", surfaceFormat, w, h).Transient()
	sharpenID := graph.AddColorTexture("sharpen", surfaceFormat, w, h).Transient()
	convolutionID := graph.AddColorTexture("convolution", surfaceFormat, w, h).Transient()
	vignetteID := graph.AddColorTexture("vignette", surfaceFormat, w, h).Transient()
	grayscaleID := graph.AddColorTexture("grayscale", surfaceFormat, w, h).Transient()
	colorInvertID := graph.AddColorTexture("color_invert", surfaceFormat, w, h).Transient()

	scenePass := passes.NewScenePass(tri.pipeline, tri.vertexBuffer, tri.indexBuffer, tri.indexCount, tri.uniformBindGroup, tri.textureBindGroup)
	mustBuild(graph.Pass("scene", scenePass).
		Write("color_output", sceneColorID).
		Write("depth_output", depthID).
		Build())

	edgeDetection, err := passes.NewEdgeDetectionPass(device, surfaceFormat)
	if err != nil {
		log.Fatalf("failed to build edge detection pass: %v", err)
	}
	mustBuild(graph.Pass("edge_detection", edgeDetection).
		Read("input", sceneColorID).
		Write("output", edgesID).
		Build())

	brightnessContrast, err := passes.NewBrightnessContrastPass(device, surfaceFormat)
	if err != nil {
		log.Fatalf("failed to build brightness/contrast pass: %v", err)
	}
	mustBuild(graph.Pass("brightness_contrast", brightnessContrast).
		Read("input", edgesID).
		Write("output", brightnessContrastID).
		Build())

	blurHorizontal, err := passes.NewGaussianBlurHorizontalPass(device, surfaceFormat)
	if err != nil {
		log.Fatalf("failed to build gaussian blur horizontal pass: %v", err)
	}
	mustBuild(graph.Pass("gaussian_blur_horizontal", blurHorizontal).
		Read("input", brightnessContrastID).
		Write("output", blurHorizontalID).
		Build())

	blurVertical, err := passes.NewGaussianBlurVerticalPass(device, surfaceFormat)
	if err != nil {
		log.Fatalf("failed to build gaussian blur vertical pass: %v", err)
	}
	mustBuild(graph.Pass("gaussian_blur_vertical", blurVertical).
		Read("input", blurHorizontalID).
		Write("output", blurVerticalID).
		Build())

	sharpen, err := passes.NewSharpenPass(device, surfaceFormat)
	if err != nil {
		log.Fatalf("failed to build sharpen pass: %v", err)
	}
	mustBuild(graph.Pass("sharpen", sharpen).
		Read("input", blurVerticalID).
		Write("output", sharpenID).
		Build())

	convolution, err := passes.NewConvolutionPass(device, surfaceFormat)
	if err != nil {
		log.Fatalf("failed to build convolution pass: %v", err)
	}
	mustBuild(graph.Pass("convolution", convolution).
		Read("input", sharpenID).
		Write("output", convolutionID).
		Build())

	vignette, err := passes.NewVignettePass(device, surfaceFormat)
	if err != nil {
		log.Fatalf("failed to build vignette pass: %v", err)
	}
	mustBuild(graph.Pass("vignette", vignette).
		Read("input", convolutionID).
		Write("output", vignetteID).
		Build())

	grayscale, err := passes.NewGrayscalePass(device, surfaceFormat)
	if err != nil {
		log.Fatalf("failed to build grayscale pass: %v", err)
	}
	mustBuild(graph.Pass("grayscale", grayscale).
		Read("input", vignetteID).
		Write("output", grayscaleID).
		Build())

	colorInvert, err := passes.NewColorInvertPass(device, surfaceFormat)
	if err != nil {
		log.Fatalf("failed to build color invert pass: %v", err)
	}
	mustBuild(graph.Pass("color_invert", colorInvert).
		Read("input", grayscaleID).
		Write("output", colorInvertID).
		Build())

	blit, err := passes.NewBlitPass(device, "blit_to_surface", surfaceFormat)
	if err != nil {
		log.Fatalf("failed to build blit pass: %v", err)
	}
	mustBuild(graph.Pass("blit_to_surface", blit).
		Read("input", colorInvertID).
		Write("output", surfaceID).
		Build())

	graph.EnableProfiling(true)

	d := &demo{
		graph:     graph,
		surfaceID: surfaceID,
		depthID:   depthID,
		transientChain: []ResourceHandle{
			sceneColorID, edgesID, brightnessContrastID, blurHorizontalID, blurVerticalID,
			sharpenID, convolutionID, vignetteID, grayscaleID, colorInvertID,
		},
		triangle: tri,
		config: passes.DemoConfig{
			BrightnessContrast: passes.DefaultBrightnessContrastConfig(),
			Vignette:           passes.DefaultVignetteConfig(),
			Sharpen:            passes.DefaultSharpenConfig(),
		},
	}
	d.createDepthTexture(device, w, h)
	return d
}

func mustBuild(err error) {
	if err != nil {
		log.Fatalf("failed to register pass: %v", err)
	}
}

// createDepthTexture allocates the depth buffer that backs the "depth"
// external resource. Unlike the transient color chain, depth is owned by
// the demo (not the graph) since its identity, not just its size, changes
// on resize. Any previously allocated depth view/texture is released
// first, since nothing else holds a reference to it once replaced.
func (d *demo) createDepthTexture(device *wgpu.Device, width, height uint32) {
	if d.depthView != nil {
		d.depthView.Release()
	}
	if d.depthTexture != nil {
		d.depthTexture.Release()
	}

	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Demo Depth Texture",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		log.Fatalf("failed to create depth texture: %v", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		log.Fatalf("failed to create depth texture view: %v", err)
	}
	d.depthTexture = tex
	d.depthView = view
}

// resize recreates the depth texture and resizes every transient color
// texture in the post-process chain to match the new swapchain size.
func (d *demo) resize(device *wgpu.Device, width, height uint32) {
	d.createDepthTexture(device, width, height)

	for _, id := range d.transientChain {
		if err := d.graph.ResizeTransientResource(id, width, height); err != nil {
			log.Printf("failed to resize transient resource %d: %v", id, err)
		}
	}
}

// renderFrame acquires the swapchain view, binds it and the depth view as
// the graph's external resources, executes the graph, and presents.
func (d *demo) renderFrame(r renderer.Renderer) {
	surfaceView, err := r.AcquireFrame()
	if err != nil {
		log.Printf("failed to acquire frame: %v", err)
		return
	}
	defer r.Present()

	d.graph.SetExternalTexture(d.surfaceID, surfaceView)
	d.graph.SetExternalTexture(d.depthID, d.depthView)

	buffers, err := d.graph.Execute(r.Device(), r.Queue(), d.config)
	if err != nil {
		log.Printf("render graph execution failed: %v", err)
		return
	}
	r.Queue().Submit(buffers...)

	d.frameCount++
	if d.frameCount%300 == 0 {
		for _, stat := range d.graph.Statistics() {
			log.Printf("[pass] %s culled=%v duration=%dns", stat.Name, stat.Culled, stat.Duration)
		}
	}
}
