package rendergraph

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

// trackingPass counts InvalidateBindGroups calls so tests can assert the
// version-diff invalidation fires exactly once per actual change.
type trackingPass struct {
	fakePass
	invalidations int
}

func (p *trackingPass) InvalidateBindGroups() { p.invalidations++ }

func newTrackingPass(slots ...string) *trackingPass {
	return &trackingPass{fakePass: fakePass{slots: slots}}
}

func TestInvalidateBindGroupsFiresOncePerVersionChange(t *testing.T) {
	g := NewGraph[testConfig]()
	surface := g.RegisterExternalColorTexture("surface", wgpu.TextureFormatRGBA8Unorm, true)

	pass := newTrackingPass("out")
	if err := g.Pass("blit", pass).Write("out", surface).Build(); err != nil {
		t.Fatalf("Build blit: %v", err)
	}

	seen := make(resourceVersionTracker)

	// First bind: version goes from 0 (unseen) to 1 — counts as a change.
	g.registry.SetExternalTexture(surface, nil)
	g.invalidateBindGroupsForChangedResources(seen)
	if pass.invalidations != 1 {
		t.Fatalf("expected 1 invalidation after first bind, got %d", pass.invalidations)
	}

	// Calling again with no intervening version bump must not re-invalidate.
	g.invalidateBindGroupsForChangedResources(seen)
	if pass.invalidations != 1 {
		t.Fatalf("expected invalidation count to stay at 1 with no version change, got %d", pass.invalidations)
	}

	// Rebinding bumps the version again and must trigger exactly one more
	// invalidation.
	g.registry.SetExternalTexture(surface, nil)
	g.invalidateBindGroupsForChangedResources(seen)
	if pass.invalidations != 2 {
		t.Fatalf("expected 2 invalidations after rebind, got %d", pass.invalidations)
	}
}

func TestInvalidateBindGroupsOnlyAffectsPassesTouchingChangedResource(t *testing.T) {
	g := NewGraph[testConfig]()
	a := g.RegisterExternalColorTexture("a", wgpu.TextureFormatRGBA8Unorm, true)
	b := g.RegisterExternalColorTexture("b", wgpu.TextureFormatRGBA8Unorm, true)

	passA := newTrackingPass("out")
	passB := newTrackingPass("out")
	if err := g.Pass("writes_a", passA).Write("out", a).Build(); err != nil {
		t.Fatalf("Build writes_a: %v", err)
	}
	if err := g.Pass("writes_b", passB).Write("out", b).Build(); err != nil {
		t.Fatalf("Build writes_b: %v", err)
	}

	seen := make(resourceVersionTracker)
	g.registry.SetExternalTexture(a, nil)
	g.invalidateBindGroupsForChangedResources(seen)

	if passA.invalidations != 1 {
		t.Errorf("writes_a touches the changed resource and should be invalidated once, got %d", passA.invalidations)
	}
	if passB.invalidations != 0 {
		t.Errorf("writes_b does not touch the changed resource and should not be invalidated, got %d", passB.invalidations)
	}
}

func TestResizeTransientResourceClearsHandlesAndPlan(t *testing.T) {
	g := NewGraph[testConfig]()
	surface := g.RegisterExternalColorTexture("surface", wgpu.TextureFormatRGBA8Unorm, true)
	color := g.AddColorTexture("color", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	if err := g.Pass("blit", newFakePass("in", "out")).Read("in", color).Write("out", surface).Build(); err != nil {
		t.Fatalf("Build blit: %v", err)
	}
	if err := g.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	g.registry.SetExternalTexture(surface, nil)
	g.registry.handles[color] = &ResourceHandle{isTexture: true}
	g.plan = &aliasingPlan{aliases: map[ResourceId]int{color: 0}}

	if err := g.ResizeTransientResource(color, 128, 128); err != nil {
		t.Fatalf("ResizeTransientResource: %v", err)
	}

	if g.plan != nil {
		t.Error("resizing a transient resource must invalidate the aliasing plan")
	}
	if !g.dependencyDirty {
		t.Error("resizing a transient resource must mark the graph dirty")
	}
	if _, ok := g.registry.handles[color]; ok {
		t.Error("the transient resource's stale handle must be dropped")
	}
	if _, ok := g.registry.handles[surface]; !ok {
		t.Error("external handles must be left untouched by a transient resize")
	}

	width, height, err := g.registry.GetTextureSize(color)
	if err != nil {
		t.Fatalf("GetTextureSize: %v", err)
	}
	if width != 128 || height != 128 {
		t.Errorf("expected resized dimensions 128x128, got %dx%d", width, height)
	}
}

func TestResizeTransientResourceRejectsExternal(t *testing.T) {
	g := NewGraph[testConfig]()
	surface := g.RegisterExternalColorTexture("surface", wgpu.TextureFormatRGBA8Unorm, true)

	err := g.ResizeTransientResource(surface, 128, 128)
	if err == nil {
		t.Fatal("expected an error resizing an external resource")
	}
	if _, ok := err.(*CannotResizeExternalError); !ok {
		t.Fatalf("expected *CannotResizeExternalError, got %T", err)
	}
}

func TestPassBuilderRejectsUnmappedSlot(t *testing.T) {
	g := NewGraph[testConfig]()
	color := g.AddColorTexture("color", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	err := g.Pass("incomplete", newFakePass("in", "out")).Write("out", color).Build()
	if err == nil {
		t.Fatal("expected an error when a declared slot is never mapped")
	}
	if _, ok := err.(*SlotNotMappedError); !ok {
		t.Fatalf("expected *SlotNotMappedError, got %T", err)
	}
}
