package rendergraph

import (
	"container/heap"

	"github.com/cogentcore/webgpu/wgpu"
)

// resourceLifetime is the [firstUse, lastUse] interval (expressed as
// indices into execution order) a transient resource is alive for.
type resourceLifetime struct {
	id       ResourceId
	firstUse int
	lastUse  int
}

// computeResourceLifetimes scans execution order once, recording each
// transient resource's first and last pass index. Passes marked culled are
// skipped, so a resource touched only by culled passes gets no lifetime.
// External resources are excluded: their lifetime spans the whole frame by
// definition and they are never pooled.
func computeResourceLifetimes[C any](passes []*passEntry[C], registry *Registry, order []passId) []resourceLifetime {
	byID := make(map[passId]*passEntry[C], len(passes))
	for _, p := range passes {
		byID[p.id] = p
	}

	lifetimes := make(map[ResourceId]*resourceLifetime)
	touch := func(id ResourceId, idx int) {
		lt, ok := lifetimes[id]
		if !ok {
			lt = &resourceLifetime{id: id, firstUse: idx, lastUse: idx}
			lifetimes[id] = lt
		}
		lt.lastUse = idx
	}

	for idx, pid := range order {
		p := byID[pid]
		if p.isCulled {
			continue
		}
		for _, s := range p.slots {
			switch s.direction {
			case slotWrite:
				touch(s.resource, idx)
			case slotRead, slotReadWrite:
				touch(s.resource, idx)
			}
		}
	}

	out := make([]resourceLifetime, 0, len(lifetimes))
	for id, lt := range lifetimes {
		desc := registry.GetDescriptor(id)
		if desc == nil || desc.IsExternal {
			continue
		}
		out = append(out, *lt)
	}
	return out
}

// poolDescriptorKind mirrors PoolDescriptorInfo: a pool slot holds either a
// texture or buffer shape, never both.
type poolDescriptorKind int

const (
	poolTexture poolDescriptorKind = iota
	poolBuffer
)

type poolDescriptorInfo struct {
	kind    poolDescriptorKind
	texture TextureDescriptor
	buffer  BufferDescriptor
}

// PoolSlot is one physical allocation shared, over disjoint lifetimes, by
// one or more transient resources whose descriptors are alias-compatible.
type PoolSlot struct {
	Resource   any // *wgpu.Texture or *wgpu.Buffer once materialized; nil until allocated
	descInfo   *poolDescriptorInfo
	lifetimeEnd int
}

// poolHeapEntry is a BinaryHeap element ordered as a min-heap over
// lifetimeEnd (the pool slot that frees up soonest sorts first).
type poolHeapEntry struct {
	poolIndex   int
	lifetimeEnd int
	descInfo    poolDescriptorInfo
}

type poolHeap []*poolHeapEntry

func (h poolHeap) Len() int            { return len(h) }
func (h poolHeap) Less(i, j int) bool  { return h[i].lifetimeEnd < h[j].lifetimeEnd }
func (h poolHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *poolHeap) Push(x any)         { *h = append(*h, x.(*poolHeapEntry)) }
func (h *poolHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// aliasingPlan is the frame's assignment of transient ResourceIds to pool
// slots, plus the pool slots themselves.
type aliasingPlan struct {
	aliases map[ResourceId]int
	pools   []*PoolSlot
}

// canAliasTextures reports whether two texture descriptors have the same
// physical shape. Usage is deliberately excluded: a usage mismatch is not
// a disqualifier, it's the signal that the pool slot needs widening.
func canAliasTextures(a, b TextureDescriptor) bool {
	return a.Format == b.Format &&
		a.Width == b.Width &&
		a.Height == b.Height &&
		a.SampleCount == b.SampleCount &&
		a.MipLevelCount == b.MipLevelCount
}

// canAliasBuffers reports whether two buffer descriptors have the same
// usage. Size is deliberately excluded: a smaller pool slot isn't a
// disqualifier, it's the signal that the slot needs growing.
func canAliasBuffers(a, b BufferDescriptor) bool {
	return a.Usage == b.Usage
}

// computeResourceAliasing runs greedy interval scheduling over transient
// resource lifetimes: sorted by first use, each resource either reuses a
// pool slot that has gone idle (lifetimeEnd < this resource's firstUse)
// and is shape-compatible, widening that slot's usage/size if needed, or
// is assigned a brand-new pool slot. When the graph's aliasing toggle is
// off every resource gets its own dedicated slot (no reuse at all).
func computeResourceAliasing[C any](registry *Registry, aliasingEnabled bool, lifetimes []resourceLifetime) *aliasingPlan {
	sorted := make([]resourceLifetime, len(lifetimes))
	copy(sorted, lifetimes)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].firstUse > sorted[j].firstUse; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	plan := &aliasingPlan{aliases: make(map[ResourceId]int)}
	available := &poolHeap{}
	heap.Init(available)

	for _, lt := range sorted {
		desc := registry.GetDescriptor(lt.id)
		if desc == nil {
			continue
		}

		var reused []*poolHeapEntry
		assignedSlot := -1

		if aliasingEnabled {
			for available.Len() > 0 && (*available)[0].lifetimeEnd < lt.firstUse {
				reused = append(reused, heap.Pop(available).(*poolHeapEntry))
			}

			for _, candidate := range reused {
				if assignedSlot != -1 {
					continue
				}
				canReuse, needsNew := aliasCompatible(candidate.descInfo, desc.rtype)
				if !canReuse {
					continue
				}
				slot := plan.pools[candidate.poolIndex]
				slot.lifetimeEnd = lt.lastUse
				if needsNew {
					releasePoolResource(slot.Resource)
					slot.Resource = nil
					slot.descInfo = widenDescriptor(candidate.descInfo, desc.rtype)
				}
				candidate.lifetimeEnd = lt.lastUse
				candidate.descInfo = *slot.descInfo
				assignedSlot = candidate.poolIndex
			}
		}

		for _, candidate := range reused {
			heap.Push(available, candidate)
		}

		if assignedSlot == -1 {
			info := descInfoFromResourceType(desc.rtype)
			if info == nil {
				continue
			}
			slotIndex := len(plan.pools)
			plan.pools = append(plan.pools, &PoolSlot{
				descInfo:    info,
				lifetimeEnd: lt.lastUse,
			})
			heap.Push(available, &poolHeapEntry{
				poolIndex:   slotIndex,
				lifetimeEnd: lt.lastUse,
				descInfo:    *info,
			})
			assignedSlot = slotIndex
		}

		plan.aliases[lt.id] = assignedSlot
	}

	return plan
}

// aliasCompatible reports whether a pool slot's current descriptor can
// host a new resource's descriptor, and whether hosting it requires
// widening the slot's usage/size (which invalidates any already
// materialized physical resource for that slot).
func aliasCompatible(pool poolDescriptorInfo, rt resourceType) (canReuse, needsNew bool) {
	switch rt.kind {
	case kindColorTexture, kindDepthTexture:
		if pool.kind != poolTexture {
			return false, false
		}
		if !canAliasTextures(pool.texture, rt.texture) {
			return false, false
		}
		needsNew = (pool.texture.Usage & rt.texture.Usage) != rt.texture.Usage
		return true, needsNew
	case kindBuffer:
		if pool.kind != poolBuffer {
			return false, false
		}
		if !canAliasBuffers(pool.buffer, rt.buffer) {
			return false, false
		}
		needsNew = rt.buffer.Size > pool.buffer.Size
		return true, needsNew
	default:
		return false, false
	}
}

func widenDescriptor(pool poolDescriptorInfo, rt resourceType) *poolDescriptorInfo {
	switch rt.kind {
	case kindColorTexture, kindDepthTexture:
		pool.texture.Usage |= rt.texture.Usage
	case kindBuffer:
		if rt.buffer.Size > pool.buffer.Size {
			pool.buffer = rt.buffer
		}
	}
	return &pool
}

// releasePoolResource releases a pool slot's already-materialized physical
// resource before the slot is widened or dropped, matching the teacher's
// explicit Release-everywhere idiom for short-lived wgpu objects (there is
// no GC finalizer for GPU objects the way there is for the Rust original's
// Arc<Texture>).
func releasePoolResource(res any) {
	switch r := res.(type) {
	case *wgpu.Texture:
		if r != nil {
			r.Release()
		}
	case *wgpu.Buffer:
		if r != nil {
			r.Release()
		}
	}
}

func descInfoFromResourceType(rt resourceType) *poolDescriptorInfo {
	switch rt.kind {
	case kindColorTexture, kindDepthTexture:
		return &poolDescriptorInfo{kind: poolTexture, texture: rt.texture}
	case kindBuffer:
		return &poolDescriptorInfo{kind: poolBuffer, buffer: rt.buffer}
	default:
		return nil
	}
}
