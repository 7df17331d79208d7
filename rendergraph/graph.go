package rendergraph

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// passId is the dense internal index of a registered pass, distinct from
// any name the caller gave it.
type passId int

type slotDirection int

const (
	slotRead slotDirection = iota
	slotWrite
	slotReadWrite
)

type slotRef struct {
	name      string
	direction slotDirection
	resource  ResourceId
}

type passEntry[C any] struct {
	id       passId
	name     string
	node     PassNode[C]
	slots    []slotRef
	byName   map[string]ResourceId
	isCulled bool
}

// Graph is a declarative description of a frame: a set of passes connected
// through named resource slots. C is the per-frame configuration value
// threaded into every pass's Execute call.
type Graph[C any] struct {
	mu sync.Mutex

	registry *Registry
	passes   []*passEntry[C]
	byName   map[string]passId

	subGraphs map[string]*subGraph[C]

	aliasingEnabled  bool
	profilingEnabled bool
	stats            []PassStatistics

	compiled        bool
	compiledOrder   []passId
	dependencyDirty bool

	plan        *aliasingPlan
	versionSeen resourceVersionTracker
}

// subGraph is a named, independently schedulable sub-DAG that a parent pass
// can splice into its own command recording via RunSubGraph.
type subGraph[C any] struct {
	name       string
	passes     []*passEntry[C]
	byName     map[string]passId
	inputSlots map[string]SubGraphInputSlot
	registry   *Registry
}

// NewGraph creates an empty graph with aliasing enabled and profiling
// disabled, matching the Rust source's default construction.
func NewGraph[C any]() *Graph[C] {
	return &Graph[C]{
		registry:        newRegistry(),
		byName:          make(map[string]passId),
		subGraphs:       make(map[string]*subGraph[C]),
		aliasingEnabled: true,
		dependencyDirty: true,
	}
}

// EnableAliasing toggles whether the lifetime allocator may share a single
// physical resource across disjoint-lifetime transients. Disabling it is a
// debugging aid: every transient gets its own dedicated allocation.
func (g *Graph[C]) EnableAliasing(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.aliasingEnabled = enabled
	g.dependencyDirty = true
}

// EnableProfiling turns on per-pass wall-clock timing collection, readable
// afterwards via Statistics.
func (g *Graph[C]) EnableProfiling(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.profilingEnabled = enabled
}

// Statistics returns the most recent frame's per-pass timings. Empty if
// profiling was never enabled or no frame has executed yet.
func (g *Graph[C]) Statistics() []PassStatistics {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]PassStatistics, len(g.stats))
	copy(out, g.stats)
	return out
}

// PassStatistics records one pass's measured execution cost for the most
// recently executed frame.
type PassStatistics struct {
	Name     string
	Culled   bool
	Duration int64 // nanoseconds
}

// --- resource registration -------------------------------------------------

// RegisterExternalColorTexture declares a color texture whose physical
// handle is supplied per frame via SetExternalTexture (e.g. a swapchain
// view). forceStore keeps the final store op as Store even if no later
// pass reads it within the frame (the surface case).
func (g *Graph[C]) RegisterExternalColorTexture(name string, format wgpu.TextureFormat, forceStore bool) ResourceId {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.registry.registerExternal(name, resourceType{
		kind:       kindColorTexture,
		texture:    TextureDescriptor{Format: format},
		forceStore: forceStore,
	})
}

// RegisterExternalDepthTexture is the depth analogue of
// RegisterExternalColorTexture.
func (g *Graph[C]) RegisterExternalDepthTexture(name string, format wgpu.TextureFormat, forceStore bool) ResourceId {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.registry.registerExternal(name, resourceType{
		kind:       kindDepthTexture,
		texture:    TextureDescriptor{Format: format},
		forceStore: forceStore,
	})
}

// RegisterExternalBuffer declares a buffer whose handle is supplied per
// frame via SetExternalBuffer.
func (g *Graph[C]) RegisterExternalBuffer(name string) ResourceId {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.registry.registerExternal(name, resourceType{kind: kindBuffer})
}

// SetExternalTexture binds the physical view for an external texture
// resource for the upcoming frame.
func (g *Graph[C]) SetExternalTexture(id ResourceId, view *wgpu.TextureView) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registry.SetExternalTexture(id, view)
}

// SetExternalBuffer binds the physical buffer for an external buffer
// resource for the upcoming frame.
func (g *Graph[C]) SetExternalBuffer(id ResourceId, buf *wgpu.Buffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registry.SetExternalBuffer(id, buf)
}

// Registry exposes the underlying resource registry for pass execution
// contexts and the executor.
func (g *Graph[C]) Registry() *Registry {
	return g.registry
}

// --- transient texture/buffer builders --------------------------------------

// ColorTextureBuilder fluently describes a transient color texture before
// registering it with Transient().
type ColorTextureBuilder[C any] struct {
	g    *Graph[C]
	name string
	desc TextureDescriptor
	clear *wgpu.Color
}

// AddColorTexture begins a fluent transient color texture declaration.
func (g *Graph[C]) AddColorTexture(name string, format wgpu.TextureFormat, width, height uint32) *ColorTextureBuilder[C] {
	return &ColorTextureBuilder[C]{
		g:    g,
		name: name,
		desc: TextureDescriptor{
			Format:             format,
			Width:              width,
			Height:             height,
			Usage:              wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment,
			SampleCount:        1,
			MipLevelCount:      1,
			Dimension:          wgpu.TextureDimension2D,
			DepthOrArrayLayers: 1,
		},
	}
}

// WithUsage ORs additional usage flags into the descriptor.
func (b *ColorTextureBuilder[C]) WithUsage(usage wgpu.TextureUsage) *ColorTextureBuilder[C] {
	b.desc.Usage |= usage
	return b
}

// WithSampleCount sets the MSAA sample count (default 1).
func (b *ColorTextureBuilder[C]) WithSampleCount(count uint32) *ColorTextureBuilder[C] {
	b.desc.SampleCount = count
	return b
}

// WithClearColor marks the texture to be cleared (LoadOpClear) every time
// it is requested as a color attachment.
func (b *ColorTextureBuilder[C]) WithClearColor(c wgpu.Color) *ColorTextureBuilder[C] {
	b.clear = &c
	return b
}

// Transient finalizes the builder and registers the transient resource.
func (b *ColorTextureBuilder[C]) Transient() ResourceId {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	id := b.g.registry.registerTransient(b.name, resourceType{
		kind:       kindColorTexture,
		texture:    b.desc,
		clearColor: b.clear,
	})
	b.g.dependencyDirty = true
	return id
}

// DepthTextureBuilder is the depth-texture analogue of ColorTextureBuilder.
type DepthTextureBuilder[C any] struct {
	g     *Graph[C]
	name  string
	desc  TextureDescriptor
	clear *float32
}

// AddDepthTexture begins a fluent transient depth texture declaration.
func (g *Graph[C]) AddDepthTexture(name string, format wgpu.TextureFormat, width, height uint32) *DepthTextureBuilder[C] {
	return &DepthTextureBuilder[C]{
		g:    g,
		name: name,
		desc: TextureDescriptor{
			Format:             format,
			Width:              width,
			Height:             height,
			Usage:              wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment,
			SampleCount:        1,
			MipLevelCount:      1,
			Dimension:          wgpu.TextureDimension2D,
			DepthOrArrayLayers: 1,
		},
	}
}

func (b *DepthTextureBuilder[C]) WithUsage(usage wgpu.TextureUsage) *DepthTextureBuilder[C] {
	b.desc.Usage |= usage
	return b
}

func (b *DepthTextureBuilder[C]) WithSampleCount(count uint32) *DepthTextureBuilder[C] {
	b.desc.SampleCount = count
	return b
}

func (b *DepthTextureBuilder[C]) WithClearDepth(depth float32) *DepthTextureBuilder[C] {
	b.clear = &depth
	return b
}

func (b *DepthTextureBuilder[C]) Transient() ResourceId {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	id := b.g.registry.registerTransient(b.name, resourceType{
		kind:       kindDepthTexture,
		texture:    b.desc,
		clearDepth: b.clear,
	})
	b.g.dependencyDirty = true
	return id
}

// BufferBuilder fluently describes a transient buffer.
type BufferBuilder[C any] struct {
	g    *Graph[C]
	name string
	desc BufferDescriptor
}

// AddBuffer begins a fluent transient buffer declaration.
func (g *Graph[C]) AddBuffer(name string, size uint64, usage wgpu.BufferUsage) *BufferBuilder[C] {
	return &BufferBuilder[C]{
		g:    g,
		name: name,
		desc: BufferDescriptor{Size: size, Usage: usage},
	}
}

func (b *BufferBuilder[C]) Transient() ResourceId {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	id := b.g.registry.registerTransient(b.name, resourceType{
		kind:   kindBuffer,
		buffer: b.desc,
	})
	b.g.dependencyDirty = true
	return id
}

// --- resource templates / pools ---------------------------------------------

// ResourceTemplate is a reusable texture descriptor shared by many
// same-shaped transient resources, reducing repetition in ping-pong chains.
type ResourceTemplate struct {
	kind   resourceKind
	desc   TextureDescriptor
	buffer BufferDescriptor
}

// ColorTextureTemplate builds a reusable color-texture template.
func ColorTextureTemplate(format wgpu.TextureFormat, width, height uint32, usage wgpu.TextureUsage) ResourceTemplate {
	return ResourceTemplate{
		kind: kindColorTexture,
		desc: TextureDescriptor{
			Format:             format,
			Width:              width,
			Height:             height,
			Usage:              usage | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment,
			SampleCount:        1,
			MipLevelCount:      1,
			Dimension:          wgpu.TextureDimension2D,
			DepthOrArrayLayers: 1,
		},
	}
}

// ResourcePool binds a ResourceTemplate to a graph so multiple resources
// can be stamped out from the same descriptor.
type ResourcePool[C any] struct {
	g        *Graph[C]
	template ResourceTemplate
}

// ResourcePool begins a template-backed batch of resource registrations.
func (g *Graph[C]) ResourcePool(template ResourceTemplate) *ResourcePool[C] {
	return &ResourcePool[C]{g: g, template: template}
}

// Transient registers one transient resource from the pool's template.
func (p *ResourcePool[C]) Transient(name string) ResourceId {
	p.g.mu.Lock()
	defer p.g.mu.Unlock()
	id := p.g.registry.registerTransient(name, resourceType{
		kind:   p.template.kind,
		texture: p.template.desc,
		buffer:  p.template.buffer,
	})
	p.g.dependencyDirty = true
	return id
}

// TransientMany registers several transient resources sharing the pool's
// template, returning one ResourceId per name in order.
func (p *ResourcePool[C]) TransientMany(names ...string) []ResourceId {
	ids := make([]ResourceId, len(names))
	for i, n := range names {
		ids[i] = p.Transient(n)
	}
	return ids
}

// External registers an external resource using the pool's template shape
// (the caller still supplies the physical handle via SetExternalTexture).
func (p *ResourcePool[C]) External(name string) ResourceId {
	p.g.mu.Lock()
	defer p.g.mu.Unlock()
	id := p.g.registry.registerExternal(name, resourceType{
		kind:    p.template.kind,
		texture: p.template.desc,
		buffer:  p.template.buffer,
	})
	return id
}

// --- pass registration -------------------------------------------------------

// passTarget abstracts over a Graph and a subGraph so PassBuilder.Build
// can register into either with the same code path.
type passTarget[C any] interface {
	addPass(entry *passEntry[C])
	markDirty()
}

func (g *Graph[C]) addPass(entry *passEntry[C]) {
	entry.id = passId(len(g.passes))
	g.passes = append(g.passes, entry)
	g.byName[entry.name] = entry.id
}

func (g *Graph[C]) markDirty() {
	g.dependencyDirty = true
}

func (sg *subGraph[C]) addPass(entry *passEntry[C]) {
	entry.id = passId(len(sg.passes))
	sg.passes = append(sg.passes, entry)
	sg.byName[entry.name] = entry.id
}

func (sg *subGraph[C]) markDirty() {}

// PassBuilder fluently accumulates a pass's slot mappings before Build()
// performs the actual registration. Go has no destructors, so unlike the
// Rust source's Drop-based auto-registration, Build() must be called
// explicitly.
type PassBuilder[C any] struct {
	target passTarget[C]
	mu     *sync.Mutex
	name   string
	node   PassNode[C]
	slots  []slotRef
	byName map[string]ResourceId
}

// Pass begins registering a pass under name, backed by node.
func (g *Graph[C]) Pass(name string, node PassNode[C]) *PassBuilder[C] {
	return &PassBuilder[C]{
		target: g,
		mu:     &g.mu,
		name:   name,
		node:   node,
		byName: make(map[string]ResourceId),
	}
}

// Read declares that the pass reads resource id through the slot name.
func (b *PassBuilder[C]) Read(slot string, id ResourceId) *PassBuilder[C] {
	b.slots = append(b.slots, slotRef{name: slot, direction: slotRead, resource: id})
	b.byName[slot] = id
	return b
}

// Write declares that the pass writes resource id through the slot name.
func (b *PassBuilder[C]) Write(slot string, id ResourceId) *PassBuilder[C] {
	b.slots = append(b.slots, slotRef{name: slot, direction: slotWrite, resource: id})
	b.byName[slot] = id
	return b
}

// ReadWrite declares that the pass both reads and writes resource id
// through the slot name, modeled as a single edge direction so it never
// creates a self-dependency cycle.
func (b *PassBuilder[C]) ReadWrite(slot string, id ResourceId) *PassBuilder[C] {
	b.slots = append(b.slots, slotRef{name: slot, direction: slotReadWrite, resource: id})
	b.byName[slot] = id
	return b
}

// Build finalizes the pass and registers it on its target (a Graph or a
// sub-graph), returning an error if any slot the node declares was never
// mapped.
func (b *PassBuilder[C]) Build() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, required := range b.node.Slots() {
		if _, ok := b.byName[required]; !ok {
			return &SlotNotMappedError{Pass: b.name, Slot: required}
		}
	}

	entry := &passEntry[C]{
		name:   b.name,
		node:   b.node,
		slots:  b.slots,
		byName: b.byName,
	}
	b.target.addPass(entry)
	b.target.markDirty()
	return nil
}

// AddSubGraph registers a named sub-graph built from its own PassBuilder
// calls against the returned handle. inputSlots declares the named slot
// values a RunSubGraph command must supply.
func (g *Graph[C]) AddSubGraph(name string, inputSlots map[string]SubGraphInputSlot) *SubGraphHandle[C] {
	g.mu.Lock()
	defer g.mu.Unlock()
	sg := &subGraph[C]{
		name:       name,
		byName:     make(map[string]passId),
		inputSlots: inputSlots,
		registry:   newRegistry(),
	}
	g.subGraphs[name] = sg
	return &SubGraphHandle[C]{sg: sg}
}

// SubGraphHandle lets the caller add passes to a previously declared
// sub-graph using the same builder surface as the parent graph.
type SubGraphHandle[C any] struct {
	sg *subGraph[C]
	mu sync.Mutex
}

// Pass begins registering a pass within this sub-graph.
func (h *SubGraphHandle[C]) Pass(name string, node PassNode[C]) *PassBuilder[C] {
	return &PassBuilder[C]{
		target: h.sg,
		mu:     &h.mu,
		name:   name,
		node:   node,
		byName: make(map[string]ResourceId),
	}
}

// RegisterExternalColorTexture declares an external color texture input on
// the sub-graph itself (distinct from the parent graph's registry), bound
// by the parent's RunSubGraph call via the matching named input slot.
func (h *SubGraphHandle[C]) RegisterExternalColorTexture(name string, format wgpu.TextureFormat) ResourceId {
	return h.sg.registry.registerExternal(name, resourceType{kind: kindColorTexture, texture: TextureDescriptor{Format: format}})
}

// RegisterExternalDepthTexture is the depth analogue of
// RegisterExternalColorTexture.
func (h *SubGraphHandle[C]) RegisterExternalDepthTexture(name string, format wgpu.TextureFormat) ResourceId {
	return h.sg.registry.registerExternal(name, resourceType{kind: kindDepthTexture, texture: TextureDescriptor{Format: format}})
}

// RegisterExternalBuffer declares an external buffer input on the
// sub-graph itself.
func (h *SubGraphHandle[C]) RegisterExternalBuffer(name string) ResourceId {
	return h.sg.registry.registerExternal(name, resourceType{kind: kindBuffer})
}

// UpdateTransientDescriptor resizes a transient texture and marks the
// dependency graph dirty so the next Execute recomputes aliasing.
func (g *Graph[C]) UpdateTransientDescriptor(id ResourceId, width, height uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.registry.UpdateTransientDescriptor(id, width, height); err != nil {
		return err
	}
	delete(g.registry.handles, id)
	g.dependencyDirty = true
	return nil
}
