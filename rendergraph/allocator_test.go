package rendergraph

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestAliasingSharesDisjointLifetimeResources(t *testing.T) {
	g := NewGraph[testConfig]()
	surface := g.RegisterExternalColorTexture("surface", wgpu.TextureFormatRGBA8Unorm, true)

	// a and b are the same shape and never alive at the same time: a is
	// produced and fully consumed (lifetime [0,1]) before b is produced
	// (lifetime [2,3]); mid carries the data between them.
	a := g.AddColorTexture("a", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	mid := g.AddColorTexture("mid", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	b := g.AddColorTexture("b", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	if err := g.Pass("produce_a", newFakePass("out")).Write("out", a).Build(); err != nil {
		t.Fatalf("Build produce_a: %v", err)
	}
	if err := g.Pass("consume_a", newFakePass("in", "out")).
		Read("in", a).
		Write("out", mid).
		Build(); err != nil {
		t.Fatalf("Build consume_a: %v", err)
	}
	if err := g.Pass("produce_b", newFakePass("in", "out")).
		Read("in", mid).
		Write("out", b).
		Build(); err != nil {
		t.Fatalf("Build produce_b: %v", err)
	}
	if err := g.Pass("consume_b", newFakePass("in", "out")).
		Read("in", b).
		Write("out", surface).
		Build(); err != nil {
		t.Fatalf("Build consume_b: %v", err)
	}

	if err := g.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	if g.plan == nil {
		t.Fatal("expected an aliasing plan after compile")
	}
	slotA, okA := g.plan.aliases[a]
	slotB, okB := g.plan.aliases[b]
	if !okA || !okB {
		t.Fatalf("expected both a and b to have pool slot assignments")
	}
	if slotA != slotB {
		t.Errorf("a and b have disjoint lifetimes and alias-compatible shapes, expected them to share a pool slot; got %d and %d", slotA, slotB)
	}
}

func TestAliasingDisabledGivesEachResourceItsOwnSlot(t *testing.T) {
	g := NewGraph[testConfig]()
	g.EnableAliasing(false)
	surface := g.RegisterExternalColorTexture("surface", wgpu.TextureFormatRGBA8Unorm, true)

	a := g.AddColorTexture("a", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	b := g.AddColorTexture("b", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	if err := g.Pass("produce_a", newFakePass("out")).Write("out", a).Build(); err != nil {
		t.Fatalf("Build produce_a: %v", err)
	}
	if err := g.Pass("consume_a_produce_b", newFakePass("in", "out")).
		Read("in", a).
		Write("out", b).
		Build(); err != nil {
		t.Fatalf("Build consume_a_produce_b: %v", err)
	}
	if err := g.Pass("consume_b", newFakePass("in", "out")).
		Read("in", b).
		Write("out", surface).
		Build(); err != nil {
		t.Fatalf("Build consume_b: %v", err)
	}

	if err := g.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	slotA := g.plan.aliases[a]
	slotB := g.plan.aliases[b]
	if slotA == slotB {
		t.Error("aliasing disabled: a and b must not share a pool slot")
	}
}

func TestAliasingWidensUsageOnReuse(t *testing.T) {
	registry := newRegistry()
	baseUsage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment
	a := registry.registerTransient("a", resourceType{
		kind:    kindColorTexture,
		texture: TextureDescriptor{Format: wgpu.TextureFormatRGBA8Unorm, Width: 64, Height: 64, Usage: baseUsage, SampleCount: 1, MipLevelCount: 1},
	})
	b := registry.registerTransient("b", resourceType{
		kind: kindColorTexture,
		texture: TextureDescriptor{
			Format: wgpu.TextureFormatRGBA8Unorm, Width: 64, Height: 64,
			Usage:       baseUsage | wgpu.TextureUsageCopySrc,
			SampleCount: 1, MipLevelCount: 1,
		},
	})

	lifetimes := []resourceLifetime{
		{id: a, firstUse: 0, lastUse: 0},
		{id: b, firstUse: 1, lastUse: 1},
	}

	plan := computeResourceAliasing[testConfig](registry, true, lifetimes)

	slotA := plan.aliases[a]
	slotB := plan.aliases[b]
	if slotA != slotB {
		t.Fatalf("expected a and b to share a slot, got %d and %d", slotA, slotB)
	}
	slot := plan.pools[slotA]
	if slot.descInfo.texture.Usage&wgpu.TextureUsageCopySrc == 0 {
		t.Error("pool slot usage should have widened to include CopySrc for b")
	}
	if slot.Resource != nil {
		t.Error("widening a slot's usage must drop any already-materialized physical resource")
	}
}

func TestExternalResourcesAreExcludedFromLifetimes(t *testing.T) {
	g := NewGraph[testConfig]()
	surface := g.RegisterExternalColorTexture("surface", wgpu.TextureFormatRGBA8Unorm, true)
	color := g.AddColorTexture("color", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	if err := g.Pass("producer", newFakePass("out")).Write("out", color).Build(); err != nil {
		t.Fatalf("Build producer: %v", err)
	}
	if err := g.Pass("blit", newFakePass("in", "out")).Read("in", color).Write("out", surface).Build(); err != nil {
		t.Fatalf("Build blit: %v", err)
	}

	edges := buildDependencyEdges(g.passes)
	order, err := toposort(g.passes, edges)
	if err != nil {
		t.Fatalf("toposort: %v", err)
	}

	lifetimes := computeResourceLifetimes(g.passes, g.registry, order)
	for _, lt := range lifetimes {
		if lt.id == surface {
			t.Fatal("external resources must never appear in the pooled lifetime set")
		}
	}
	if len(lifetimes) != 1 || lifetimes[0].id != color {
		t.Fatalf("expected exactly one pooled lifetime for the transient resource, got %v", lifetimes)
	}
}
