package rendergraph

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// allocateTransientResourcesWithAliasing materializes a physical texture
// or buffer for each pool slot that doesn't already have one, then binds
// every transient resource's handle to its pool slot's physical resource
// and bumps its version. Pool slots whose plan carried over a still-valid
// physical resource (lifetime reused without shape widening) are left
// untouched, so unrelated transients silently share the same GPU
// allocation across the frame.
func (g *Graph[C]) allocateTransientResourcesWithAliasing(device *wgpu.Device) error {
	plan := g.plan
	if plan == nil {
		return nil
	}

	for i, slot := range plan.pools {
		if slot.Resource != nil {
			continue
		}
		if slot.descInfo == nil {
			continue
		}
		switch slot.descInfo.kind {
		case poolTexture:
			tex, err := device.CreateTexture(slot.descInfo.texture.toWGPU(poolLabel(i)))
			if err != nil {
				return err
			}
			slot.Resource = tex
		case poolBuffer:
			buf, err := device.CreateBuffer(slot.descInfo.buffer.toWGPU(poolLabel(i)))
			if err != nil {
				return err
			}
			slot.Resource = buf
		}
	}

	var allocated []ResourceId
	for id, desc := range g.registry.descriptors {
		if desc.IsExternal {
			continue
		}
		if _, bound := g.registry.handles[id]; bound {
			continue
		}
		poolIndex, ok := plan.aliases[id]
		if !ok || poolIndex >= len(plan.pools) {
			continue
		}
		slot := plan.pools[poolIndex]
		switch res := slot.Resource.(type) {
		case *wgpu.Texture:
			view, err := res.CreateView(nil)
			if err != nil {
				return err
			}
			g.registry.handles[id] = &ResourceHandle{
				view:      view,
				texture:   res,
				storeOp:   wgpu.StoreOpStore,
				isTexture: true,
			}
			allocated = append(allocated, id)
		case *wgpu.Buffer:
			g.registry.handles[id] = &ResourceHandle{buffer: res, isBuffer: true}
			allocated = append(allocated, id)
		}
	}

	for _, id := range allocated {
		g.registry.bumpVersion(id)
	}
	return nil
}

func poolLabel(index int) string {
	return "rendergraph_pool_" + itoa(index)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// resourceVersionTracker remembers the last-seen version of every resource
// so invalidateBindGroupsForChangedResources only fires once per change.
type resourceVersionTracker map[ResourceId]uint64

// invalidateBindGroupsForChangedResources diffs every resource's current
// version against the last-seen version, and for every pass that touches
// a changed resource calls InvalidateBindGroups so its cached bind group
// is rebuilt before the next Execute records it. Consuming a version diff
// clears it: a resource whose version is unchanged since the last call
// does not retrigger invalidation.
func (g *Graph[C]) invalidateBindGroupsForChangedResources(seen resourceVersionTracker) {
	dirty := make(map[ResourceId]bool)
	for id := range g.registry.descriptors {
		current := g.registry.GetVersion(id)
		stored := seen[id]
		if current != stored {
			dirty[id] = true
			seen[id] = current
		}
	}
	if len(dirty) == 0 {
		return
	}

	invalidate := make(map[passId]bool)
	for _, p := range g.passes {
		for _, s := range p.slots {
			if dirty[s.resource] {
				invalidate[p.id] = true
				break
			}
		}
	}
	for _, p := range g.passes {
		if invalidate[p.id] {
			p.node.InvalidateBindGroups()
		}
	}
}

// Execute runs a full frame: recompiles the schedule if the topology
// changed, (re)computes the aliasing plan if missing, materializes
// transient resources, applies the scheduler's store-ops to every bound
// handle, invalidates stale bind groups, then records every non-culled,
// enabled pass in execution order into a single command encoder and
// returns its one command buffer. A pass that calls RunSubGraph has the
// sub-graph's passes recorded into that same encoder; no separate command
// buffer is produced for them. Submits nothing — the caller owns
// queue.Submit so multiple graphs can be batched into one submission.
func (g *Graph[C]) Execute(device *wgpu.Device, queue *wgpu.Queue, cfg C) ([]*wgpu.CommandBuffer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.recompileIfNeeded(); err != nil {
		return nil, err
	}

	if g.plan == nil {
		lifetimes := computeResourceLifetimes(g.passes, g.registry, g.compiledOrder)
		g.plan = computeResourceAliasing(g.registry, g.aliasingEnabled, lifetimes)
	}

	if err := g.allocateTransientResourcesWithAliasing(device); err != nil {
		return nil, err
	}

	for id, op := range computeStoreOps(g.passes, g.registry, g.compiledOrder) {
		if h := g.registry.handles[id]; h != nil {
			h.storeOp = op
		}
	}

	if g.versionSeen == nil {
		g.versionSeen = make(resourceVersionTracker)
	}
	g.invalidateBindGroupsForChangedResources(g.versionSeen)

	byID := make(map[passId]*passEntry[C], len(g.passes))
	for _, p := range g.passes {
		byID[p.id] = p
	}
	for _, pid := range g.compiledOrder {
		p := byID[pid]
		if p.isCulled || !p.node.IsEnabled(cfg) {
			continue
		}
		p.node.Prepare(device, queue, cfg)
	}

	return g.executeSerial(device, queue, cfg)
}

func (g *Graph[C]) executeSerial(device *wgpu.Device, queue *wgpu.Queue, cfg C) ([]*wgpu.CommandBuffer, error) {
	byID := make(map[passId]*passEntry[C], len(g.passes))
	for _, p := range g.passes {
		byID[p.id] = p
	}

	var stats []PassStatistics
	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}

	var buffers []*wgpu.CommandBuffer
	for _, pid := range g.compiledOrder {
		p := byID[pid]

		if g.profilingEnabled {
			stats = append(stats, PassStatistics{Name: p.name, Culled: p.isCulled})
		}
		if p.isCulled || !p.node.IsEnabled(cfg) {
			continue
		}

		ctx := &PassExecutionContext[C]{
			passName: p.name,
			byName:   p.byName,
			registry: g.registry,
			encoder:  encoder,
			device:   device,
			graph:    g,
		}

		start := profilerNow(g.profilingEnabled)
		if err := p.node.Execute(ctx, cfg); err != nil {
			return nil, err
		}
		if g.profilingEnabled && len(stats) > 0 {
			stats[len(stats)-1].Duration = profilerElapsed(start, g.profilingEnabled)
		}
	}

	cb, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	buffers = append(buffers, cb)

	if g.profilingEnabled {
		g.stats = stats
	}
	return buffers, nil
}

// executeSubGraphInline records a sub-graph's passes against the same
// command encoder as the calling pass. Unlike the standalone-frame path
// this never starts a fresh encoder: a pass invoking RunSubGraph is
// splicing work into its own command buffer, not submitting a second one.
func (g *Graph[C]) executeSubGraphInline(sg *subGraph[C], inputs map[string]SlotValue, encoder *wgpu.CommandEncoder, device *wgpu.Device) error {
	for slotName, value := range inputs {
		decl, ok := sg.inputSlots[slotName]
		if !ok {
			continue
		}
		for _, desc := range sg.resourceDescriptorsNamed(slotName) {
			switch decl {
			case SubGraphInputTexture:
				view, err := g.registry.GetTextureView(value.ResourceId())
				if err != nil {
					return err
				}
				sg.registry.SetExternalTexture(desc, view)
			case SubGraphInputBuffer:
				buf, err := g.registry.GetBuffer(value.ResourceId())
				if err != nil {
					return err
				}
				sg.registry.SetExternalBuffer(desc, buf)
			}
		}
	}

	edges := buildDependencyEdges(sg.passes)
	order, err := toposort(sg.passes, edges)
	if err != nil {
		return err
	}
	culled := computeDeadPasses(sg.passes, sg.registry, order)

	byID := make(map[passId]*passEntry[C], len(sg.passes))
	for _, p := range sg.passes {
		byID[p.id] = p
	}

	for _, pid := range order {
		if culled[pid] {
			continue
		}
		p := byID[pid]
		ctx := &PassExecutionContext[C]{
			passName: p.name,
			byName:   p.byName,
			registry: sg.registry,
			encoder:  encoder,
			device:   device,
			graph:    g,
		}
		var zero C
		if err := p.node.Execute(ctx, zero); err != nil {
			return err
		}
	}
	return nil
}

func (sg *subGraph[C]) resourceDescriptorsNamed(name string) []ResourceId {
	var out []ResourceId
	for id, desc := range sg.registry.descriptors {
		if desc.Name == name && desc.IsExternal {
			out = append(out, id)
		}
	}
	return out
}

// ResizeTransientResource updates a transient texture's dimensions,
// invalidates the current aliasing plan, and drops every transient
// resource handle so the next Execute reallocates from scratch. External
// handles are left untouched. Every physical object this orphans, each
// dropped handle's view and each outgoing pool slot's texture/buffer, is
// released explicitly, matching the teacher's wgpu-resource idiom (there
// is no finalizer backing these GPU objects the way Rust's Arc is).
func (g *Graph[C]) ResizeTransientResource(id ResourceId, width, height uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.registry.UpdateTransientDescriptor(id, width, height); err != nil {
		return err
	}

	for rid, desc := range g.registry.descriptors {
		if desc.IsExternal {
			continue
		}
		if h, ok := g.registry.handles[rid]; ok {
			if h.isTexture && h.view != nil {
				h.view.Release()
			}
			delete(g.registry.handles, rid)
		}
	}
	if g.plan != nil {
		for _, slot := range g.plan.pools {
			releasePoolResource(slot.Resource)
		}
	}
	g.plan = nil
	g.dependencyDirty = true
	return nil
}
