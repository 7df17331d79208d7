package rendergraph

import "github.com/cogentcore/webgpu/wgpu"

// PassNode is the contract every concrete pass implements. Slots returns
// the set of named resource slots the pass expects to have been mapped
// via PassBuilder.Read/Write/ReadWrite at registration time; Execute
// performs the actual GPU work against the resources resolved for this
// frame.
//
// A pass with no declared writes at all is never culled regardless of
// whether any later pass reads from it — it is assumed to have an
// external side effect (e.g. a buffer readback sink), matching
// spec.md §9's resolution of the "no writes" open question.
type PassNode[C any] interface {
	Slots() []string

	// IsEnabled reports whether this pass should run this frame. A
	// disabled pass is skipped at execute time but still participates
	// in dependency analysis at compile time.
	IsEnabled(cfg C) bool

	// Prepare uploads per-frame uniforms or readies CPU-side state. It
	// runs once per live (non-culled, enabled) pass per frame, before
	// any pass's Execute.
	Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg C)

	Execute(ctx *PassExecutionContext[C], cfg C) error

	// InvalidateBindGroups drops any cached descriptor sets. The engine
	// calls this exactly once per pass whenever a version-diff shows a
	// resource the pass reads or writes was rebound since the last
	// execute, before that pass's next execute runs.
	InvalidateBindGroups()
}

// PassExecutionContext is handed to a pass's Execute method. It resolves
// the pass's declared slot names to live resource handles for the current
// frame and exposes the command encoder the pass should record into.
type PassExecutionContext[C any] struct {
	passName string
	byName   map[string]ResourceId
	registry *Registry
	encoder  *wgpu.CommandEncoder
	device   *wgpu.Device
	graph    *Graph[C]
}

// Encoder returns the command encoder this pass should record work into.
func (c *PassExecutionContext[C]) Encoder() *wgpu.CommandEncoder {
	return c.encoder
}

// Device returns the GPU device, used by passes that lazily build a
// pipeline or bind group on first execution.
func (c *PassExecutionContext[C]) Device() *wgpu.Device {
	return c.device
}

func (c *PassExecutionContext[C]) resolve(slot string) (ResourceId, error) {
	id, ok := c.byName[slot]
	if !ok {
		return 0, &SlotNotFoundError{Pass: c.passName, Slot: slot}
	}
	return id, nil
}

// ColorAttachment resolves slot to a color texture's view/load-op/
// clear-color/store-op for building a RenderPassColorAttachment.
func (c *PassExecutionContext[C]) ColorAttachment(slot string) (*wgpu.TextureView, wgpu.LoadOp, *wgpu.Color, wgpu.StoreOp, error) {
	id, err := c.resolve(slot)
	if err != nil {
		return nil, 0, nil, 0, err
	}
	return c.registry.GetColorAttachment(id)
}

// DepthAttachment resolves slot to a depth texture's view/load-op/
// clear-depth/store-op for building a RenderPassDepthStencilAttachment.
func (c *PassExecutionContext[C]) DepthAttachment(slot string) (*wgpu.TextureView, wgpu.LoadOp, *float32, wgpu.StoreOp, error) {
	id, err := c.resolve(slot)
	if err != nil {
		return nil, 0, nil, 0, err
	}
	return c.registry.GetDepthAttachment(id)
}

// TextureView resolves slot to a bound texture view, for sampling a slot
// declared as a read (e.g. a post-process pass's input).
func (c *PassExecutionContext[C]) TextureView(slot string) (*wgpu.TextureView, error) {
	id, err := c.resolve(slot)
	if err != nil {
		return nil, err
	}
	return c.registry.GetTextureView(id)
}

// Buffer resolves slot to a bound buffer.
func (c *PassExecutionContext[C]) Buffer(slot string) (*wgpu.Buffer, error) {
	id, err := c.resolve(slot)
	if err != nil {
		return nil, err
	}
	return c.registry.GetBuffer(id)
}

// TextureSize resolves slot to a transient texture's width/height.
func (c *PassExecutionContext[C]) TextureSize(slot string) (uint32, uint32, error) {
	id, err := c.resolve(slot)
	if err != nil {
		return 0, 0, err
	}
	return c.registry.GetTextureSize(id)
}

// ResourceVersion returns the current version counter for the resource
// bound to slot, letting a pass build its own finer-grained caching on top
// of the engine's bind-group invalidation.
func (c *PassExecutionContext[C]) ResourceVersion(slot string) (uint64, error) {
	id, err := c.resolve(slot)
	if err != nil {
		return 0, err
	}
	return c.registry.GetVersion(id), nil
}

// RunSubGraph splices a named sub-graph's passes into the current frame,
// supplying inputs as a set of slot-name to SlotValue bindings. The
// sub-graph's passes are recorded at once into the calling pass's own
// command encoder; no separate command buffer is started for them.
func (c *PassExecutionContext[C]) RunSubGraph(name string, inputs map[string]SlotValue) error {
	sg, ok := c.graph.subGraphs[name]
	if !ok {
		return &SubGraphNotFoundError{SubGraph: name}
	}
	for slotName, decl := range sg.inputSlots {
		v, ok := inputs[slotName]
		if !ok {
			return &SubGraphInputTypeMismatchError{Input: slotName, Expected: decl.String(), Received: "missing"}
		}
		if v.kind() != decl {
			return &SubGraphInputTypeMismatchError{Input: slotName, Expected: decl.String(), Received: v.kind().String()}
		}
	}
	return c.graph.executeSubGraphInline(sg, inputs, c.encoder, c.device)
}

// SubGraphInputSlot declares the expected SlotValue kind for a named
// sub-graph input.
type SubGraphInputSlot int

const (
	SubGraphInputTexture SubGraphInputSlot = iota
	SubGraphInputBuffer
)

func (s SubGraphInputSlot) String() string {
	switch s {
	case SubGraphInputTexture:
		return "texture"
	case SubGraphInputBuffer:
		return "buffer"
	default:
		return "unknown"
	}
}

// SlotValue is a tagged union carrying either a ResourceId bound to a
// texture or a buffer, used to supply RunSubGraph inputs.
type SlotValue struct {
	textureID *ResourceId
	bufferID  *ResourceId
}

// TextureSlotValue wraps a texture resource id as a SlotValue.
func TextureSlotValue(id ResourceId) SlotValue {
	return SlotValue{textureID: &id}
}

// BufferSlotValue wraps a buffer resource id as a SlotValue.
func BufferSlotValue(id ResourceId) SlotValue {
	return SlotValue{bufferID: &id}
}

func (v SlotValue) kind() SubGraphInputSlot {
	if v.bufferID != nil {
		return SubGraphInputBuffer
	}
	return SubGraphInputTexture
}

// ResourceId returns the wrapped id regardless of kind.
func (v SlotValue) ResourceId() ResourceId {
	if v.bufferID != nil {
		return *v.bufferID
	}
	return *v.textureID
}
