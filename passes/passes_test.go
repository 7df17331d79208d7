package passes

import "testing"

// These are smoke tests over the parts of the pass roster that don't touch
// a GPU device: the Slots() contract every pass declares, the IsEnabled
// wiring that decides whether a pass runs versus just switching between
// its effect and pass-through pipelines, the Default*Config constructors,
// and small pure helpers.

func TestPassSlotsContract(t *testing.T) {
	cases := []struct {
		name  string
		slots []string
	}{
		{"BlitPass", (&BlitPass{}).Slots()},
		{"BrightnessContrastPass", (&BrightnessContrastPass{}).Slots()},
		{"ColorInvertPass", (&ColorInvertPass{}).Slots()},
		{"ComputeGrayscalePass", (&ComputeGrayscalePass{}).Slots()},
		{"ConvolutionPass", (&ConvolutionPass{}).Slots()},
		{"EdgeDetectionPass", (&EdgeDetectionPass{}).Slots()},
		{"gaussianBlurDirectionPass", (&gaussianBlurDirectionPass{}).Slots()},
		{"GrayscalePass", (&GrayscalePass{}).Slots()},
		{"SharpenPass", (&SharpenPass{}).Slots()},
		{"VignettePass", (&VignettePass{}).Slots()},
	}
	for _, c := range cases {
		want := []string{"input", "output"}
		if len(c.slots) != len(want) || c.slots[0] != want[0] || c.slots[1] != want[1] {
			t.Errorf("%s.Slots() = %v, want %v (single-input single-output fullscreen filter)", c.name, c.slots, want)
		}
	}

	if got := (&ScenePass{}).Slots(); len(got) != 2 || got[0] != "color_output" || got[1] != "depth_output" {
		t.Errorf("ScenePass.Slots() = %v, want [color_output depth_output]", got)
	}

	if got := (&HistogramComputePass{}).Slots(); len(got) != 1 || got[0] != "input" {
		t.Errorf("HistogramComputePass.Slots() = %v, want [input] (analysis pass has no output slot)", got)
	}
}

func TestHistogramIsEnabledReflectsConfig(t *testing.T) {
	p := &HistogramComputePass{}
	if p.IsEnabled(DemoConfig{Histogram: HistogramConfig{Enabled: false}}) {
		t.Error("HistogramComputePass should report disabled when cfg.Histogram.Enabled is false")
	}
	if !p.IsEnabled(DemoConfig{Histogram: HistogramConfig{Enabled: true}}) {
		t.Error("HistogramComputePass should report enabled when cfg.Histogram.Enabled is true")
	}
}

// Every fullscreen filter pass always executes regardless of its own
// Enabled flag — that flag only decides whether Execute draws with the
// effect pipeline and its uniforms or with the plain pass-through blit
// pipeline. Only
// HistogramComputePass (an analysis-only pass with no output to fall back
// to) actually skips execution via IsEnabled.
func TestFullscreenFiltersAlwaysExecuteRegardlessOfEnabledFlag(t *testing.T) {
	disabledCfg := DemoConfig{
		BrightnessContrast: BrightnessContrastConfig{Enabled: false},
		Vignette:           VignetteConfig{Enabled: false},
		Sharpen:            SharpenConfig{Enabled: false},
	}
	if !(&BrightnessContrastPass{}).IsEnabled(disabledCfg) {
		t.Error("BrightnessContrastPass must always execute; its Enabled flag only selects the effect or pass-through pipeline")
	}
	if !(&VignettePass{}).IsEnabled(disabledCfg) {
		t.Error("VignettePass must always execute; its Enabled flag only selects the effect or pass-through pipeline")
	}
	if !(&SharpenPass{}).IsEnabled(disabledCfg) {
		t.Error("SharpenPass must always execute; its Enabled flag only selects the effect or pass-through pipeline")
	}
}

func TestDefaultBrightnessContrastConfigIsIdentity(t *testing.T) {
	cfg := DefaultBrightnessContrastConfig()
	if cfg.Enabled {
		t.Error("default brightness/contrast must start disabled")
	}
	if cfg.Brightness != 0.0 || cfg.Contrast != 1.0 {
		t.Errorf("default brightness/contrast must be the identity transform (0, 1), got (%v, %v)", cfg.Brightness, cfg.Contrast)
	}
}

func TestDefaultVignetteConfig(t *testing.T) {
	cfg := DefaultVignetteConfig()
	if cfg.Enabled {
		t.Error("default vignette must start disabled")
	}
	if cfg.Strength != 1.5 || cfg.Radius != 0.3 {
		t.Errorf("unexpected default vignette parameters: %+v", cfg)
	}
	if cfg.ColorTint != [3]float32{0, 0, 0} {
		t.Errorf("default vignette tint should be black, got %v", cfg.ColorTint)
	}
}

func TestDefaultSharpenConfig(t *testing.T) {
	cfg := DefaultSharpenConfig()
	if cfg.Enabled {
		t.Error("default sharpen must start disabled")
	}
	if cfg.Strength != 0.5 {
		t.Errorf("unexpected default sharpen strength: %v", cfg.Strength)
	}
}

func TestCeilDiv(t *testing.T) {
	cases := []struct{ a, b, want uint32 }{
		{8, 8, 1},
		{9, 8, 2},
		{1, 8, 1},
		{0, 8, 0},
		{16, 8, 2},
		{17, 8, 3},
	}
	for _, c := range cases {
		if got := ceilDiv(c.a, c.b); got != c.want {
			t.Errorf("ceilDiv(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
