package rendergraph

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

// TestScenarioLinearPostChain: surface (external, force_store), transient a,
// b. Scene writes a; Tonemap reads a writes b; Blit reads b writes surface.
// a and b's lifetimes overlap at the Tonemap boundary, so they must land in
// distinct pool slots, and every live resource must Store.
func TestScenarioLinearPostChain(t *testing.T) {
	g := NewGraph[testConfig]()
	surface := g.RegisterExternalColorTexture("surface", wgpu.TextureFormatRGBA8Unorm, true)
	a := g.AddColorTexture("a", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	b := g.AddColorTexture("b", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	if err := g.Pass("Scene", newFakePass("out")).Write("out", a).Build(); err != nil {
		t.Fatalf("Build Scene: %v", err)
	}
	if err := g.Pass("Tonemap", newFakePass("in", "out")).Read("in", a).Write("out", b).Build(); err != nil {
		t.Fatalf("Build Tonemap: %v", err)
	}
	if err := g.Pass("Blit", newFakePass("in", "out")).Read("in", b).Write("out", surface).Build(); err != nil {
		t.Fatalf("Build Blit: %v", err)
	}

	if err := g.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	byID := make(map[passId]*passEntry[testConfig], len(g.passes))
	for _, p := range g.passes {
		byID[p.id] = p
	}

	wantOrder := []string{"Scene", "Tonemap", "Blit"}
	if len(g.compiledOrder) != len(wantOrder) {
		t.Fatalf("expected %d passes in order, got %d", len(wantOrder), len(g.compiledOrder))
	}
	for i, name := range wantOrder {
		if got := byID[g.compiledOrder[i]].name; got != name {
			t.Errorf("order[%d] = %s, want %s", i, got, name)
		}
	}

	if g.plan.aliases[a] == g.plan.aliases[b] {
		t.Error("a and b's lifetimes overlap at the Tonemap boundary and must not share a pool slot")
	}

	storeOps := computeStoreOps(g.passes, g.registry, g.compiledOrder)
	for _, id := range []ResourceId{a, b, surface} {
		if storeOps[id] != wgpu.StoreOpStore {
			t.Errorf("expected Store for resource %d, got %v", id, storeOps[id])
		}
	}
}

// TestScenarioDisjointLifetimesAlias: same chain with a Copy stage inserted
// (a -> a2 -> b). a and b's lifetimes are fully disjoint and must share a
// pool slot; a2's lifetime overlaps both and must get its own slot.
func TestScenarioDisjointLifetimesAlias(t *testing.T) {
	g := NewGraph[testConfig]()
	surface := g.RegisterExternalColorTexture("surface", wgpu.TextureFormatRGBA8Unorm, true)
	a := g.AddColorTexture("a", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	a2 := g.AddColorTexture("a2", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	b := g.AddColorTexture("b", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	if err := g.Pass("Scene", newFakePass("out")).Write("out", a).Build(); err != nil {
		t.Fatalf("Build Scene: %v", err)
	}
	if err := g.Pass("Copy", newFakePass("in", "out")).Read("in", a).Write("out", a2).Build(); err != nil {
		t.Fatalf("Build Copy: %v", err)
	}
	if err := g.Pass("Tonemap", newFakePass("in", "out")).Read("in", a2).Write("out", b).Build(); err != nil {
		t.Fatalf("Build Tonemap: %v", err)
	}
	if err := g.Pass("Blit", newFakePass("in", "out")).Read("in", b).Write("out", surface).Build(); err != nil {
		t.Fatalf("Build Blit: %v", err)
	}

	if err := g.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	slotA, slotA2, slotB := g.plan.aliases[a], g.plan.aliases[a2], g.plan.aliases[b]
	if slotA != slotB {
		t.Errorf("a and b have disjoint lifetimes and identical descriptors, expected to share a slot; got %d and %d", slotA, slotB)
	}
	if slotA2 == slotA || slotA2 == slotB {
		t.Errorf("a2 overlaps both a and b's lifetimes and must not share either slot")
	}

	distinct := map[int]bool{slotA: true, slotA2: true, slotB: true}
	if len(distinct) != 2 {
		t.Errorf("expected exactly 2 pool slots total, got %d", len(distinct))
	}
}

// TestScenarioDeadPassCulling: an unused pass writing a transient nothing
// reads must be culled, with no pool slot created for its output.
func TestScenarioDeadPassCulling(t *testing.T) {
	g := NewGraph[testConfig]()
	surface := g.RegisterExternalColorTexture("surface", wgpu.TextureFormatRGBA8Unorm, true)
	a := g.AddColorTexture("a", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	z := g.AddColorTexture("z", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	if err := g.Pass("Scene", newFakePass("out")).Write("out", a).Build(); err != nil {
		t.Fatalf("Build Scene: %v", err)
	}
	if err := g.Pass("Blit", newFakePass("in", "out")).Read("in", a).Write("out", surface).Build(); err != nil {
		t.Fatalf("Build Blit: %v", err)
	}
	if err := g.Pass("Dangle", newFakePass("out")).Write("out", z).Build(); err != nil {
		t.Fatalf("Build Dangle: %v", err)
	}

	if err := g.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	var dangle *passEntry[testConfig]
	for _, p := range g.passes {
		if p.name == "Dangle" {
			dangle = p
		}
	}
	if dangle == nil || !dangle.isCulled {
		t.Error("Dangle's output is never read and must be culled")
	}
	if _, ok := g.plan.aliases[z]; ok {
		t.Error("no pool slot should be created for a culled pass's output")
	}
}

// TestScenarioUsageWidening: two non-overlapping transients with identical
// size/format but different usage masks must share a slot whose usage is
// the union, materialized fresh.
func TestScenarioUsageWidening(t *testing.T) {
	registry := newRegistry()
	usageA := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	usageB := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc
	a := registry.registerTransient("a", resourceType{
		kind:    kindColorTexture,
		texture: TextureDescriptor{Format: wgpu.TextureFormatRGBA8Unorm, Width: 64, Height: 64, Usage: usageA, SampleCount: 1, MipLevelCount: 1},
	})
	b := registry.registerTransient("b", resourceType{
		kind:    kindColorTexture,
		texture: TextureDescriptor{Format: wgpu.TextureFormatRGBA8Unorm, Width: 64, Height: 64, Usage: usageB, SampleCount: 1, MipLevelCount: 1},
	})

	lifetimes := []resourceLifetime{
		{id: a, firstUse: 0, lastUse: 0},
		{id: b, firstUse: 1, lastUse: 1},
	}
	plan := computeResourceAliasing[testConfig](registry, true, lifetimes)

	slotA, slotB := plan.aliases[a], plan.aliases[b]
	if slotA != slotB {
		t.Fatalf("expected a and b to share a pool slot, got %d and %d", slotA, slotB)
	}
	slot := plan.pools[slotA]
	want := usageA | usageB
	if slot.descInfo.texture.Usage != want {
		t.Errorf("expected widened usage %v, got %v", want, slot.descInfo.texture.Usage)
	}
	if slot.Resource != nil {
		t.Error("a slot widened by reuse must have its physical resource cleared for recreation")
	}
}

// TestScenarioExternalRebindTriggersInvalidation: binding surface to two
// different views across two executes must invalidate Blit exactly once.
func TestScenarioExternalRebindTriggersInvalidation(t *testing.T) {
	g := NewGraph[testConfig]()
	surface := g.RegisterExternalColorTexture("surface", wgpu.TextureFormatRGBA8Unorm, true)
	pass := newTrackingPass("out")
	if err := g.Pass("Blit", pass).Write("out", surface).Build(); err != nil {
		t.Fatalf("Build Blit: %v", err)
	}

	seen := make(resourceVersionTracker)

	// Bind V1, "execute" (consume the diff).
	g.registry.SetExternalTexture(surface, nil)
	g.invalidateBindGroupsForChangedResources(seen)
	if pass.invalidations != 1 {
		t.Fatalf("expected 1 invalidation after binding V1, got %d", pass.invalidations)
	}

	// Bind V2, "execute" again: exactly one more invalidation.
	g.registry.SetExternalTexture(surface, nil)
	g.invalidateBindGroupsForChangedResources(seen)
	if pass.invalidations != 2 {
		t.Fatalf("expected exactly one additional invalidation after rebinding to V2, got %d total", pass.invalidations)
	}
}

// TestScenarioCycleRejection: A writes X reads Y; B writes Y reads X must
// fail compilation with CyclicDependency and expose no execution order.
func TestScenarioCycleRejection(t *testing.T) {
	g := NewGraph[testConfig]()
	x := g.AddColorTexture("x", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	y := g.AddColorTexture("y", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	if err := g.Pass("A", newFakePass("in", "out")).Read("in", y).Write("out", x).Build(); err != nil {
		t.Fatalf("Build A: %v", err)
	}
	if err := g.Pass("B", newFakePass("in", "out")).Read("in", x).Write("out", y).Build(); err != nil {
		t.Fatalf("Build B: %v", err)
	}

	err := g.compile()
	if _, ok := err.(*CyclicDependencyError); !ok {
		t.Fatalf("expected *CyclicDependencyError, got %v (%T)", err, err)
	}
	if g.compiled {
		t.Error("a cyclic graph must not be marked compiled")
	}
}
