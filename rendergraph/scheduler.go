package rendergraph

import (
	"container/list"

	"github.com/cogentcore/webgpu/wgpu"
)

// buildDependencyEdges tracks, per resource, the last pass that wrote it
// and adds a producer→consumer edge into every later pass that reads or
// read-writes that same resource. A plain read with no writer registered
// before it takes its edge from the first writer registered after it, so
// a consumer may be registered before its producer, and two passes that
// each read the other's output form a cycle. A read-write slot is modeled
// as a single direction (an edge into the read-write pass from the prior
// writer, then the read-write pass becomes the new writer) so it never
// creates a self-dependency cycle.
func buildDependencyEdges[C any](passes []*passEntry[C]) map[passId][]passId {
	edges := make(map[passId][]passId)
	hasEdge := make(map[[2]passId]bool)
	lastWriter := make(map[ResourceId]passId)

	writers := make(map[ResourceId][]passId)
	for _, p := range passes {
		for _, s := range p.slots {
			if s.direction == slotWrite || s.direction == slotReadWrite {
				writers[s.resource] = append(writers[s.resource], p.id)
			}
		}
	}

	addEdge := func(from, to passId) {
		if from == to {
			return
		}
		key := [2]passId{from, to}
		if hasEdge[key] {
			return
		}
		hasEdge[key] = true
		edges[from] = append(edges[from], to)
	}

	for _, p := range passes {
		for _, s := range p.slots {
			if s.direction == slotRead || s.direction == slotReadWrite {
				if writer, ok := lastWriter[s.resource]; ok {
					addEdge(writer, p.id)
				} else if s.direction == slotRead && len(writers[s.resource]) > 0 {
					addEdge(writers[s.resource][0], p.id)
				}
			}
		}
		for _, s := range p.slots {
			if s.direction == slotWrite || s.direction == slotReadWrite {
				lastWriter[s.resource] = p.id
			}
		}
	}
	return edges
}

// toposort performs Kahn's algorithm over the pass set using a FIFO queue
// (container/list), returning execution order or a CyclicDependencyError.
func toposort[C any](passes []*passEntry[C], edges map[passId][]passId) ([]passId, error) {
	inDegree := make(map[passId]int, len(passes))
	for _, p := range passes {
		inDegree[p.id] = 0
	}
	for _, targets := range edges {
		for _, to := range targets {
			inDegree[to]++
		}
	}

	queue := list.New()
	for _, p := range passes {
		if inDegree[p.id] == 0 {
			queue.PushBack(p.id)
		}
	}

	order := make([]passId, 0, len(passes))
	for queue.Len() > 0 {
		front := queue.Front()
		queue.Remove(front)
		id := front.Value.(passId)
		order = append(order, id)

		for _, to := range edges[id] {
			inDegree[to]--
			if inDegree[to] == 0 {
				queue.PushBack(to)
			}
		}
	}

	if len(order) != len(passes) {
		return nil, &CyclicDependencyError{}
	}
	return order, nil
}

// computeStoreOps decides, per resource, whether its final write within
// the frame should be followed by Store or Discard. External resources
// default to Store unless force_store is false and nothing reads them
// after their last write; transient resources default to Discard unless
// something reads them later in execution order.
func computeStoreOps[C any](passes []*passEntry[C], registry *Registry, order []passId) map[ResourceId]wgpu.StoreOp {
	byID := make(map[passId]*passEntry[C], len(passes))
	for _, p := range passes {
		byID[p.id] = p
	}

	lastRead := make(map[ResourceId]int)
	for idx := len(order) - 1; idx >= 0; idx-- {
		p := byID[order[idx]]
		for _, s := range p.slots {
			if s.direction == slotRead || s.direction == slotReadWrite {
				if _, ok := lastRead[s.resource]; !ok {
					lastRead[s.resource] = idx
				}
			}
		}
	}

	storeOps := make(map[ResourceId]wgpu.StoreOp)
	for idx, pid := range order {
		p := byID[pid]
		for _, s := range p.slots {
			if s.direction != slotWrite && s.direction != slotReadWrite {
				continue
			}
			desc := registry.GetDescriptor(s.resource)
			if desc == nil {
				continue
			}
			if desc.IsExternal {
				if desc.rtype.forceStore {
					storeOps[s.resource] = wgpu.StoreOpStore
					continue
				}
				if last, ok := lastRead[s.resource]; ok && last > idx {
					storeOps[s.resource] = wgpu.StoreOpStore
				} else {
					storeOps[s.resource] = wgpu.StoreOpDiscard
				}
				continue
			}
			if last, ok := lastRead[s.resource]; ok && last > idx {
				storeOps[s.resource] = wgpu.StoreOpStore
			} else {
				storeOps[s.resource] = wgpu.StoreOpDiscard
			}
		}
	}

	for id, desc := range registry.descriptors {
		if _, ok := storeOps[id]; ok {
			continue
		}
		if desc.IsExternal {
			if desc.rtype.forceStore {
				storeOps[id] = wgpu.StoreOpStore
			} else {
				storeOps[id] = wgpu.StoreOpDiscard
			}
		} else {
			storeOps[id] = wgpu.StoreOpDiscard
		}
	}
	return storeOps
}

// computeDeadPasses walks execution order backwards, seeding the required
// set with every external resource (its final state is observable outside
// the graph) and with any pass that declares no writes at all (assumed to
// have an external side effect, e.g. a buffer readback). A pass is kept if
// it writes a currently-required resource or has such a side effect; its
// own reads then become required for whatever produces them.
func computeDeadPasses[C any](passes []*passEntry[C], registry *Registry, order []passId) map[passId]bool {
	byID := make(map[passId]*passEntry[C], len(passes))
	for _, p := range passes {
		byID[p.id] = p
	}

	required := make(map[ResourceId]bool)
	for id, desc := range registry.descriptors {
		if desc.IsExternal {
			required[id] = true
		}
	}

	requiredPasses := make(map[passId]bool)
	for i := len(order) - 1; i >= 0; i-- {
		p := byID[order[i]]

		hasWrites := false
		writesRequired := false
		for _, s := range p.slots {
			if s.direction == slotWrite || s.direction == slotReadWrite {
				hasWrites = true
				if required[s.resource] {
					writesRequired = true
				}
			}
		}
		hasSideEffects := !hasWrites

		if writesRequired || hasSideEffects {
			requiredPasses[p.id] = true
			for _, s := range p.slots {
				if s.direction == slotRead || s.direction == slotReadWrite {
					required[s.resource] = true
				}
			}
		}
	}

	culled := make(map[passId]bool)
	for _, p := range passes {
		if !requiredPasses[p.id] {
			culled[p.id] = true
		}
	}
	return culled
}

// compile performs the full build-dependency-edges → toposort →
// store-ops → dead-pass → lifetimes/aliasing sequence and caches the
// result on g. Culling runs before lifetimes so culled passes neither
// extend a lifetime nor cause a pool slot to be created.
func (g *Graph[C]) compile() error {
	edges := buildDependencyEdges(g.passes)

	order, err := toposort(g.passes, edges)
	if err != nil {
		return err
	}

	storeOps := computeStoreOps(g.passes, g.registry, order)
	for id, op := range storeOps {
		if h := g.registry.handles[id]; h != nil {
			h.storeOp = op
		}
	}

	culled := computeDeadPasses(g.passes, g.registry, order)
	for _, p := range g.passes {
		p.isCulled = culled[p.id]
	}

	lifetimes := computeResourceLifetimes(g.passes, g.registry, order)
	plan := computeResourceAliasing(g.registry, g.aliasingEnabled, lifetimes)
	g.plan = plan

	g.compiledOrder = order
	g.compiled = true
	g.dependencyDirty = false
	return nil
}

// recompileIfNeeded reruns compile() only when the graph topology changed
// since the last call, matching RenderGraph::recompile_if_needed.
func (g *Graph[C]) recompileIfNeeded() error {
	if !g.compiled || g.dependencyDirty {
		return g.compile()
	}
	return nil
}
