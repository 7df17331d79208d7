// Package rendergraph implements a declarative render graph: a frame is
// described as a DAG of GPU passes connected by named resource slots, and
// the engine handles execution ordering, transient resource lifetime and
// aliasing, dead-pass elimination, store-op inference, and bind-group
// invalidation on the caller's behalf.
package rendergraph

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ResourceId is an opaque, dense identifier assigned at registration.
// Identity is value-equal and ids are never recycled within a graph.
type ResourceId uint32

// TextureDescriptor is the CPU-side description of a texture resource,
// independent of whether it is external or transient.
type TextureDescriptor struct {
	Format          wgpu.TextureFormat
	Width           uint32
	Height          uint32
	Usage           wgpu.TextureUsage
	SampleCount     uint32
	MipLevelCount   uint32
	Dimension       wgpu.TextureDimension
	DepthOrArrayLayers uint32
}

func (d TextureDescriptor) toWGPU(label string) *wgpu.TextureDescriptor {
	return &wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              d.Width,
			Height:             d.Height,
			DepthOrArrayLayers: d.DepthOrArrayLayers,
		},
		MipLevelCount: d.MipLevelCount,
		SampleCount:   d.SampleCount,
		Dimension:     d.Dimension,
		Format:        d.Format,
		Usage:         d.Usage,
	}
}

// BufferDescriptor is the CPU-side description of a buffer resource.
type BufferDescriptor struct {
	Size              uint64
	Usage             wgpu.BufferUsage
	MappedAtCreation  bool
}

func (d BufferDescriptor) toWGPU(label string) *wgpu.BufferDescriptor {
	return &wgpu.BufferDescriptor{
		Label:            label,
		Size:             d.Size,
		Usage:            d.Usage,
		MappedAtCreation: d.MappedAtCreation,
	}
}

// resourceKind distinguishes the three resource shapes without resorting to
// type assertions at every call site.
type resourceKind int

const (
	kindColorTexture resourceKind = iota
	kindDepthTexture
	kindBuffer
)

// resourceType is the variant payload for a ResourceDescriptor. Exactly one
// of the kind-specific fields is meaningful, selected by Kind.
type resourceType struct {
	kind resourceKind

	// texture descriptor, used by both external and transient textures.
	// For external resources, only a subset (nothing — external handles
	// are supplied by the caller) is meaningful; Descriptor is still
	// carried so UpdateTransientDescriptor has a uniform shape to reject.
	texture TextureDescriptor
	buffer  BufferDescriptor

	clearColor *wgpu.Color
	clearDepth *float32

	// forceStore applies to external color/depth attachments only.
	forceStore bool
}

// ResourceDescriptor is the immutable-after-registration record for a
// virtual resource known to the graph.
type ResourceDescriptor struct {
	Name       string
	IsExternal bool
	rtype      resourceType
}

// ResourceHandle is the physical, per-frame binding of a ResourceId.
type ResourceHandle struct {
	// texture handles
	view    *wgpu.TextureView
	texture *wgpu.Texture // nil for external textures
	storeOp wgpu.StoreOp
	isTexture bool

	// buffer handles
	buffer   *wgpu.Buffer
	isBuffer bool
}

func (h *ResourceHandle) View() *wgpu.TextureView {
	return h.view
}

func (h *ResourceHandle) StoreOp() wgpu.StoreOp {
	return h.storeOp
}

// Registry owns every ResourceDescriptor and ResourceHandle known to a
// Graph, plus the monotonic version counters that drive bind-group
// invalidation. A Registry never recycles ResourceIds.
type Registry struct {
	descriptors map[ResourceId]*ResourceDescriptor
	handles     map[ResourceId]*ResourceHandle
	versions    map[ResourceId]uint64
	nextID      uint32
}

func newRegistry() *Registry {
	return &Registry{
		descriptors: make(map[ResourceId]*ResourceDescriptor),
		handles:     make(map[ResourceId]*ResourceHandle),
		versions:    make(map[ResourceId]uint64),
	}
}

func (r *Registry) allocID() ResourceId {
	id := ResourceId(r.nextID)
	r.nextID++
	return id
}

func (r *Registry) registerExternal(name string, rtype resourceType) ResourceId {
	id := r.allocID()
	r.descriptors[id] = &ResourceDescriptor{Name: name, IsExternal: true, rtype: rtype}
	return id
}

func (r *Registry) registerTransient(name string, rtype resourceType) ResourceId {
	id := r.allocID()
	r.descriptors[id] = &ResourceDescriptor{Name: name, IsExternal: false, rtype: rtype}
	return id
}

// GetVersion returns the current version counter for id, or 0 if id has
// never been bound or allocated.
func (r *Registry) GetVersion(id ResourceId) uint64 {
	return r.versions[id]
}

func (r *Registry) bumpVersion(id ResourceId) {
	r.versions[id]++
}

// SetExternalTexture binds view as the physical handle for an external
// texture resource and bumps its version, triggering bind-group
// invalidation for every pass that references it on the next execute.
func (r *Registry) SetExternalTexture(id ResourceId, view *wgpu.TextureView) {
	r.handles[id] = &ResourceHandle{view: view, storeOp: wgpu.StoreOpStore, isTexture: true}
	r.bumpVersion(id)
}

// SetExternalBuffer binds buf as the physical handle for an external buffer
// resource and bumps its version.
func (r *Registry) SetExternalBuffer(id ResourceId, buf *wgpu.Buffer) {
	r.handles[id] = &ResourceHandle{buffer: buf, isBuffer: true}
	r.bumpVersion(id)
}

// GetHandle returns the current physical handle for id, or nil if unbound.
func (r *Registry) GetHandle(id ResourceId) *ResourceHandle {
	return r.handles[id]
}

// GetDescriptor returns the registered descriptor for id, or nil.
func (r *Registry) GetDescriptor(id ResourceId) *ResourceDescriptor {
	return r.descriptors[id]
}

func (r *Registry) resourceName(id ResourceId) string {
	if d := r.descriptors[id]; d != nil {
		return d.Name
	}
	return fmt.Sprintf("resource_%d", id)
}

// GetColorAttachment returns the view, load-op (derived from ClearColor:
// Clear if set, else Load), and scheduler-assigned store-op for a color
// texture resource.
func (r *Registry) GetColorAttachment(id ResourceId) (*wgpu.TextureView, wgpu.LoadOp, *wgpu.Color, wgpu.StoreOp, error) {
	handle := r.GetHandle(id)
	if handle == nil {
		return nil, 0, nil, 0, &ResourceNotBoundError{Resource: r.resourceName(id), ID: id}
	}
	desc := r.GetDescriptor(id)
	if desc == nil {
		return nil, 0, nil, 0, &DescriptorNotFoundError{Resource: r.resourceName(id), ID: id}
	}
	if desc.rtype.kind != kindColorTexture {
		return nil, 0, nil, 0, &TypeMismatchError{
			Operation:  "GetColorAttachment",
			ActualType: kindName(desc.rtype.kind),
			Resource:   desc.Name,
		}
	}
	loadOp := wgpu.LoadOpLoad
	if desc.rtype.clearColor != nil {
		loadOp = wgpu.LoadOpClear
	}
	return handle.view, loadOp, desc.rtype.clearColor, handle.storeOp, nil
}

// GetDepthAttachment is the depth-texture analogue of GetColorAttachment.
func (r *Registry) GetDepthAttachment(id ResourceId) (*wgpu.TextureView, wgpu.LoadOp, *float32, wgpu.StoreOp, error) {
	handle := r.GetHandle(id)
	if handle == nil {
		return nil, 0, nil, 0, &ResourceNotBoundError{Resource: r.resourceName(id), ID: id}
	}
	desc := r.GetDescriptor(id)
	if desc == nil {
		return nil, 0, nil, 0, &DescriptorNotFoundError{Resource: r.resourceName(id), ID: id}
	}
	if desc.rtype.kind != kindDepthTexture {
		return nil, 0, nil, 0, &TypeMismatchError{
			Operation:  "GetDepthAttachment",
			ActualType: kindName(desc.rtype.kind),
			Resource:   desc.Name,
		}
	}
	loadOp := wgpu.LoadOpLoad
	if desc.rtype.clearDepth != nil {
		loadOp = wgpu.LoadOpClear
	}
	return handle.view, loadOp, desc.rtype.clearDepth, handle.storeOp, nil
}

// GetTextureView returns the bound view for any texture resource,
// regardless of color/depth kind.
func (r *Registry) GetTextureView(id ResourceId) (*wgpu.TextureView, error) {
	handle := r.GetHandle(id)
	if handle == nil || !handle.isTexture {
		return nil, &ResourceNotBoundError{Resource: r.resourceName(id), ID: id}
	}
	return handle.view, nil
}

// GetBuffer returns the bound buffer for any buffer resource.
func (r *Registry) GetBuffer(id ResourceId) (*wgpu.Buffer, error) {
	handle := r.GetHandle(id)
	if handle == nil {
		return nil, &ResourceNotBoundError{Resource: r.resourceName(id), ID: id}
	}
	if !handle.isBuffer {
		return nil, &TypeMismatchError{Operation: "GetBuffer", ActualType: "texture", Resource: r.resourceName(id)}
	}
	return handle.buffer, nil
}

// UpdateTransientDescriptor resizes a transient texture's width/height.
// It only updates the descriptor: callers must invalidate the aliasing
// plan and clear transient handles themselves (Graph.ResizeTransientResource
// does this), matching spec.md §4.1's "does not itself allocate" note.
func (r *Registry) UpdateTransientDescriptor(id ResourceId, width, height uint32) error {
	desc := r.GetDescriptor(id)
	if desc == nil {
		return &ResourceNotFoundError{Resource: r.resourceName(id), ID: id}
	}
	if desc.IsExternal {
		return &CannotResizeExternalError{Resource: desc.Name}
	}
	switch desc.rtype.kind {
	case kindColorTexture, kindDepthTexture:
		desc.rtype.texture.Width = width
		desc.rtype.texture.Height = height
		return nil
	case kindBuffer:
		return &CannotResizeBufferError{Resource: desc.Name}
	default:
		return &CannotResizeNonTransientError{Resource: desc.Name}
	}
}

// GetTextureSize returns the width/height of a transient texture's
// descriptor. External textures have no engine-tracked size (their
// dimensions live on the caller-supplied view) and fail with a
// TypeMismatchError, as do buffers.
func (r *Registry) GetTextureSize(id ResourceId) (uint32, uint32, error) {
	desc := r.GetDescriptor(id)
	if desc == nil {
		return 0, 0, &ResourceNotFoundError{Resource: r.resourceName(id), ID: id}
	}
	if desc.IsExternal {
		return 0, 0, &TypeMismatchError{Operation: "GetTextureSize", ActualType: "external_texture", Resource: desc.Name}
	}
	switch desc.rtype.kind {
	case kindColorTexture, kindDepthTexture:
		return desc.rtype.texture.Width, desc.rtype.texture.Height, nil
	default:
		return 0, 0, &TypeMismatchError{Operation: "GetTextureSize", ActualType: "buffer", Resource: desc.Name}
	}
}

func kindName(k resourceKind) string {
	switch k {
	case kindColorTexture:
		return "color"
	case kindDepthTexture:
		return "depth"
	case kindBuffer:
		return "buffer"
	default:
		return "unknown"
	}
}
