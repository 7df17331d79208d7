package rendergraph

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

type testConfig struct{}

// fakePass is a minimal PassNode used to exercise scheduling logic without
// touching the GPU: its Execute is never called by these tests, only
// Slots/IsEnabled participate in compile().
type fakePass struct {
	slots []string
}

func (p *fakePass) Slots() []string                                       { return p.slots }
func (p *fakePass) IsEnabled(cfg testConfig) bool                         { return true }
func (p *fakePass) Prepare(device *wgpu.Device, queue *wgpu.Queue, cfg testConfig) {}
func (p *fakePass) Execute(ctx *PassExecutionContext[testConfig], cfg testConfig) error {
	return nil
}
func (p *fakePass) InvalidateBindGroups() {}

func newFakePass(slots ...string) *fakePass { return &fakePass{slots: slots} }

func TestToposortOrdersPassesByDependency(t *testing.T) {
	g := NewGraph[testConfig]()

	src := g.RegisterExternalColorTexture("src", wgpu.TextureFormatRGBA8Unorm, true)
	mid := g.AddColorTexture("mid", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	dst := g.RegisterExternalColorTexture("dst", wgpu.TextureFormatRGBA8Unorm, true)

	// Register the consumer before the producer to verify toposort, not
	// registration order, decides execution order.
	if err := g.Pass("consumer", newFakePass("in", "out")).
		Read("in", mid).
		Write("out", dst).
		Build(); err != nil {
		t.Fatalf("Build consumer: %v", err)
	}
	if err := g.Pass("producer", newFakePass("in", "out")).
		Read("in", src).
		Write("out", mid).
		Build(); err != nil {
		t.Fatalf("Build producer: %v", err)
	}

	if err := g.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	if len(g.compiledOrder) != 2 {
		t.Fatalf("expected 2 passes in order, got %d", len(g.compiledOrder))
	}
	producerID := g.byName["producer"]
	consumerID := g.byName["consumer"]

	producerIdx, consumerIdx := -1, -1
	for i, id := range g.compiledOrder {
		if id == producerID {
			producerIdx = i
		}
		if id == consumerID {
			consumerIdx = i
		}
	}
	if producerIdx == -1 || consumerIdx == -1 {
		t.Fatalf("both passes must appear in compiled order")
	}
	if producerIdx > consumerIdx {
		t.Errorf("producer (idx %d) must execute before consumer (idx %d)", producerIdx, consumerIdx)
	}
}

func TestToposortDetectsCycles(t *testing.T) {
	g := NewGraph[testConfig]()
	a := g.AddColorTexture("a", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	b := g.AddColorTexture("b", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	if err := g.Pass("pass1", newFakePass("in", "out")).Read("in", a).Write("out", b).Build(); err != nil {
		t.Fatalf("Build pass1: %v", err)
	}
	if err := g.Pass("pass2", newFakePass("in", "out")).Read("in", b).Write("out", a).Build(); err != nil {
		t.Fatalf("Build pass2: %v", err)
	}

	err := g.compile()
	if err == nil {
		t.Fatal("expected a cyclic dependency error")
	}
	if _, ok := err.(*CyclicDependencyError); !ok {
		t.Fatalf("expected *CyclicDependencyError, got %T", err)
	}
}

func TestDeadPassCullingDropsUnreadTransientWriters(t *testing.T) {
	g := NewGraph[testConfig]()
	surface := g.RegisterExternalColorTexture("surface", wgpu.TextureFormatRGBA8Unorm, true)
	used := g.AddColorTexture("used", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	unused := g.AddColorTexture("unused", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	if err := g.Pass("live_producer", newFakePass("out")).Write("out", used).Build(); err != nil {
		t.Fatalf("Build live_producer: %v", err)
	}
	if err := g.Pass("dead_producer", newFakePass("out")).Write("out", unused).Build(); err != nil {
		t.Fatalf("Build dead_producer: %v", err)
	}
	if err := g.Pass("blit", newFakePass("in", "out")).Read("in", used).Write("out", surface).Build(); err != nil {
		t.Fatalf("Build blit: %v", err)
	}

	if err := g.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	byName := make(map[string]*passEntry[testConfig], len(g.passes))
	for _, p := range g.passes {
		byName[p.name] = p
	}

	if byName["live_producer"].isCulled {
		t.Error("live_producer feeds the surface transitively and must not be culled")
	}
	if byName["blit"].isCulled {
		t.Error("blit writes an external resource and must not be culled")
	}
	if !byName["dead_producer"].isCulled {
		t.Error("dead_producer's output is never read and must be culled")
	}
}

func TestNoWritesPassIsNeverCulled(t *testing.T) {
	g := NewGraph[testConfig]()
	color := g.AddColorTexture("color", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	if err := g.Pass("producer", newFakePass("out")).Write("out", color).Build(); err != nil {
		t.Fatalf("Build producer: %v", err)
	}
	// readback declares only a read, no writes at all — assumed to have an
	// external side effect (e.g. mapping a buffer for CPU readback).
	if err := g.Pass("readback", newFakePass("in")).Read("in", color).Build(); err != nil {
		t.Fatalf("Build readback: %v", err)
	}

	if err := g.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	byName := make(map[string]*passEntry[testConfig], len(g.passes))
	for _, p := range g.passes {
		byName[p.name] = p
	}
	if byName["readback"].isCulled {
		t.Error("a pass with no declared writes must never be culled")
	}
	if byName["producer"].isCulled {
		t.Error("producer feeds the required readback pass and must not be culled")
	}
}

func TestStoreOpInference(t *testing.T) {
	g := NewGraph[testConfig]()
	surface := g.RegisterExternalColorTexture("surface", wgpu.TextureFormatRGBA8Unorm, true)
	readLater := g.AddColorTexture("read_later", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	neverRead := g.AddColorTexture("never_read", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()

	if err := g.Pass("writes_both", newFakePass("a", "b")).
		Write("a", readLater).
		Write("b", neverRead).
		Build(); err != nil {
		t.Fatalf("Build writes_both: %v", err)
	}
	if err := g.Pass("reads_a", newFakePass("in", "out")).
		Read("in", readLater).
		Write("out", surface).
		Build(); err != nil {
		t.Fatalf("Build reads_a: %v", err)
	}

	if err := g.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	order := g.compiledOrder
	storeOps := computeStoreOps(g.passes, g.registry, order)

	if storeOps[readLater] != wgpu.StoreOpStore {
		t.Errorf("read_later is read by a later pass and must be Store, got %v", storeOps[readLater])
	}
	if storeOps[neverRead] != wgpu.StoreOpDiscard {
		t.Errorf("never_read has no later reader and must be Discard, got %v", storeOps[neverRead])
	}
	if storeOps[surface] != wgpu.StoreOpStore {
		t.Errorf("surface is external with forceStore and must be Store, got %v", storeOps[surface])
	}
}

func TestRecompileIfNeededSkipsWhenTopologyUnchanged(t *testing.T) {
	g := NewGraph[testConfig]()
	color := g.AddColorTexture("color", wgpu.TextureFormatRGBA8Unorm, 64, 64).Transient()
	if err := g.Pass("producer", newFakePass("out")).Write("out", color).Build(); err != nil {
		t.Fatalf("Build producer: %v", err)
	}

	if err := g.recompileIfNeeded(); err != nil {
		t.Fatalf("first recompile: %v", err)
	}
	if err := g.recompileIfNeeded(); err != nil {
		t.Fatalf("second recompile: %v", err)
	}
	if !g.compiled || g.dependencyDirty {
		t.Errorf("graph should remain compiled and clean across a no-op recompile")
	}

	// Adding a pass marks the topology dirty, forcing the next call to
	// actually recompile rather than skip.
	extra := g.AddColorTexture("extra", wgpu.TextureFormatRGBA8Unorm, 32, 32).Transient()
	if err := g.Pass("extra_producer", newFakePass("out")).Write("out", extra).Build(); err != nil {
		t.Fatalf("Build extra_producer: %v", err)
	}
	if !g.dependencyDirty {
		t.Fatal("adding a pass must mark the graph dirty")
	}
	if err := g.recompileIfNeeded(); err != nil {
		t.Fatalf("recompile after topology change: %v", err)
	}
	if len(g.compiledOrder) != 2 {
		t.Errorf("expected 2 passes after adding one, got %d", len(g.compiledOrder))
	}
}
