package ptex_test

import (
	"bytes"
	"image/color"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/ptex"
	"github.com/soypat/ptex/ptexaux"
)

func TestFlashBoundaryDarkness(t *testing.T) {
	got := ptex.NewFlash().At(0, ptex.Width).NRGBA8()
	if got != (color.NRGBA{}) {
		t.Errorf("flash x=0: want fully transparent black, got %v", got)
	}
}

func TestFlashMidpoint(t *testing.T) {
	want := color.NRGBA{R: 255, G: 204, B: 0, A: 255}
	got := ptex.NewFlash().At(128, ptex.Width).NRGBA8()
	if got != want {
		t.Errorf("flash x=128: want %v, got %v", want, got)
	}
}

func TestFlashFadeInMonotonic(t *testing.T) {
	flash := ptex.NewFlash()
	prev := flash.At(0, ptex.Width).NRGBA8()
	for x := 1; x < ptex.Width/10; x++ {
		c := flash.At(x, ptex.Width).NRGBA8()
		if c.R < prev.R || c.G < prev.G || c.B < prev.B || c.A < prev.A {
			t.Fatalf("flash decreasing at x=%d: %v -> %v", x, prev, c)
		}
		prev = c
	}
}

func TestFlashFadeOut(t *testing.T) {
	flash := ptex.NewFlash()
	last := flash.At(ptex.Width-1, ptex.Width)
	// Only the fade-out gate is active: 1/256*5.
	const gate = float32(5) / ptex.Width
	want := ptex.RGBA(1, 0.8, 0, 1).Scale(gate)
	if !colorsClose(last, want, 1e-6) {
		t.Errorf("flash last pixel: want %v, got %v", want.Array(), last.Array())
	}
	c8 := last.NRGBA8()
	if c8 != (color.NRGBA{R: 4, G: 3, B: 0, A: 4}) {
		t.Errorf("flash last pixel 8 bit: got %v", c8)
	}
}

func TestReactionSegments(t *testing.T) {
	reaction := ptex.NewReaction()
	for _, test := range []struct {
		x    int
		want color.NRGBA
	}{
		{x: 51, want: color.NRGBA{R: 255, G: 153, B: 25, A: 0}},  // Last start pixel, 51 < 0.2*256.
		{x: 52, want: color.NRGBA{R: 251, G: 151, B: 25, A: 0}},  // First blended pixel.
		{x: 77, want: color.NRGBA{R: 139, G: 88, B: 25, A: 25}},  // Halfway through the blend.
		{x: 103, want: color.NRGBA{R: 25, G: 25, B: 25, A: 51}}, // Ember tail.
		{x: 230, want: color.NRGBA{R: 12, G: 12, B: 12, A: 25}}, // Ember tail fading out.
	} {
		got := reaction.At(test.x, ptex.Width).NRGBA8()
		if got != test.want {
			t.Errorf("reaction x=%d: want %v, got %v", test.x, test.want, got)
		}
	}
}

func TestReactionBlendStartsAtStartColor(t *testing.T) {
	reaction := ptex.NewReaction()
	// The blend segment at t=0 equals the start color, so the pixel right at
	// the split point is continuous with the start segment.
	atZero := ptex.RGBA(1.0-0.9*0, 0.6-0.5*0, 0.1, 0.2*0)
	got := reaction.At(51, ptex.Width)
	if !colorsClose(got, atZero, 0) {
		t.Errorf("want %v, got %v", atZero.Array(), got.Array())
	}
	// Split exactly on a pixel: the blend formula applies at x = Ignite*w.
	const w = 8
	reaction.Ignite = 0.5
	reaction.Settle = 0.75
	reaction.Start = ptex.RGBA(1, 1, 1, 1)
	reaction.Ember = ptex.RGBA(0, 0, 0, 0)
	reaction.Envelope = ptex.Envelope{In: 1e6, Out: 1e6} // Gates saturated everywhere except x=0.
	if got := reaction.At(4, w); !colorsClose(got, ptex.RGBA(1, 1, 1, 1), 0) {
		t.Errorf("x=Ignite*w: want blend at t=0, got %v", got.Array())
	}
	if got := reaction.At(5, w); !colorsClose(got, ptex.RGBA(0.5, 0.5, 0.5, 0.5), 0) {
		t.Errorf("x=5: want blend at t=1/2, got %v", got.Array())
	}
	if got := reaction.At(6, w); !colorsClose(got, ptex.RGBA(0, 0, 0, 0), 0) {
		t.Errorf("x=Settle*w: want ember, got %v", got.Array())
	}
}

func TestReactionAlphaNotFadedIn(t *testing.T) {
	const x = 10
	fadeIn := ptex.DefaultEnvelope.FadeIn(x, ptex.Width)
	if fadeIn >= 1 {
		t.Fatal("test pixel must be inside fade-in region")
	}
	reaction := ptex.NewReaction()
	got := reaction.At(x, ptex.Width)
	if got.A != 0 {
		t.Errorf("default start alpha must stay transparent, got %v", got.A)
	}
	if want := fadeIn; got.RGB.X != want {
		t.Errorf("red must be faded in: want %v, got %v", want, got.RGB.X)
	}
	// With an opaque start alpha is governed only by the fade-out gate, which is 1 here.
	reaction.Start.A = 1
	got = reaction.At(x, ptex.Width)
	if got.A != 1 {
		t.Errorf("alpha must not be faded in: want 1, got %v", got.A)
	}
	flashAlpha := ptex.NewFlash().At(x, ptex.Width).A
	if flashAlpha != fadeIn {
		t.Errorf("flash alpha must be faded in: want %v, got %v", fadeIn, flashAlpha)
	}
}

func TestRampsClamped(t *testing.T) {
	hot := ptex.NewReaction()
	hot.Start = ptex.RGBA(4, -1, 2, 3)
	hot.Ember = ptex.RGBA(-2, 5, 1, -1)
	ramps := []ptex.Ramp{ptex.NewFlash(), ptex.NewReaction(), hot, &ptex.Flash{Base: ptex.RGBA(3, 3, 3, 3), Envelope: ptex.DefaultEnvelope}}
	for _, r := range ramps {
		for x := 0; x < ptex.Width; x++ {
			for i, v := range r.At(x, ptex.Width).Array() {
				if v < 0 || v > 1 || math32.IsNaN(v) {
					t.Fatalf("%s x=%d channel %d out of range: %v", r.AppendShaderName(nil), x, i, v)
				}
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	cfg := ptexaux.RenderConfig{Silent: true}
	for _, r := range []ptex.Ramp{ptex.NewFlash(), ptex.NewReaction()} {
		first, err := ptexaux.RenderImage(r, cfg)
		if err != nil {
			t.Fatal(err)
		}
		second, err := ptexaux.RenderImage(r, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first.Pix, second.Pix) {
			t.Errorf("%s: rendered buffers differ between runs", r.AppendShaderName(nil))
		}
	}
}

// Reference buffers hold the 256 pixels of each ramp as produced by the game's texture scripts.
func TestRampsGolden(t *testing.T) {
	for _, test := range []struct {
		golden string
		ramp   ptex.Ramp
	}{
		{golden: "testdata/flash.rgba", ramp: ptex.NewFlash()},
		{golden: "testdata/reaction.rgba", ramp: ptex.NewReaction()},
	} {
		want, err := os.ReadFile(test.golden)
		if err != nil {
			t.Fatal(err)
		} else if len(want) != 4*ptex.Width {
			t.Fatalf("%s: want %d bytes, got %d", test.golden, 4*ptex.Width, len(want))
		}
		img, err := ptexaux.RenderImage(test.ramp, ptexaux.RenderConfig{Silent: true})
		if err != nil {
			t.Fatal(err)
		}
		for x := 0; x < ptex.Width; x++ {
			got := img.Pix[4*x : 4*x+4]
			if !bytes.Equal(got, want[4*x:4*x+4]) {
				t.Errorf("%s x=%d: want %v, got %v", test.golden, x, want[4*x:4*x+4], got)
			}
			c := test.ramp.At(x, ptex.Width).NRGBA8()
			if c.R != want[4*x] || c.G != want[4*x+1] || c.B != want[4*x+2] || c.A != want[4*x+3] {
				t.Errorf("%s x=%d: At gives %v", test.golden, x, c)
			}
		}
	}
}

func TestEnvelope(t *testing.T) {
	env := ptex.DefaultEnvelope
	for _, test := range []struct {
		x       int
		in, out float32
	}{
		{x: 0, in: 0, out: 1},
		{x: 13, in: 130. / 256, out: 1},
		{x: 26, in: 1, out: 1},
		{x: 128, in: 1, out: 1},
		{x: 230, in: 1, out: 26. * 5 / 256},
		{x: 255, in: 1, out: 5. / 256},
	} {
		in := env.FadeIn(test.x, ptex.Width)
		out := env.FadeOut(test.x, ptex.Width)
		if math.Abs(float64(in-test.in)) > 1e-6 {
			t.Errorf("x=%d fade-in: want %v, got %v", test.x, test.in, in)
		}
		if math.Abs(float64(out-test.out)) > 1e-6 {
			t.Errorf("x=%d fade-out: want %v, got %v", test.x, test.out, out)
		}
	}
}

func TestValidate(t *testing.T) {
	nan := math32.NaN()
	badReactions := []func(r *ptex.Reaction){
		func(r *ptex.Reaction) { r.Ignite, r.Settle = 0.4, 0.2 },
		func(r *ptex.Reaction) { r.Ignite, r.Settle = 0.4, 0.4 },
		func(r *ptex.Reaction) { r.Ignite = -0.1 },
		func(r *ptex.Reaction) { r.Settle = 1.5 },
		func(r *ptex.Reaction) { r.Settle = nan },
		func(r *ptex.Reaction) { r.Ember.A = nan },
		func(r *ptex.Reaction) { r.Envelope.In = 0 },
		func(r *ptex.Reaction) { r.Envelope.Out = -1 },
	}
	for i, modify := range badReactions {
		r := ptex.NewReaction()
		modify(r)
		if err := r.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
	if err := ptex.NewReaction().Validate(); err != nil {
		t.Error(err)
	}
	if err := ptex.NewFlash().Validate(); err != nil {
		t.Error(err)
	}
	flash := ptex.NewFlash()
	flash.Base.RGB.X = math32.Inf(1)
	if err := flash.Validate(); err == nil {
		t.Error("expected error for infinite flash base")
	}
	if err := ptex.ValidateWidth(0); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestParticleLayers(t *testing.T) {
	layers := ptex.ParticleLayers()
	if len(layers) != 10 {
		t.Fatalf("want 10 layers, got %d", len(layers))
	}
	for i, layer := range layers {
		name := string(layer.AppendShaderName(nil))
		want := "reaction"
		if i == len(layers)-1 {
			want = "flash"
		}
		if name != want {
			t.Errorf("layer %d: want %s, got %s", i, want, name)
		}
	}
}

func TestShaderBody(t *testing.T) {
	body := string(ptex.NewFlash().AppendShaderBody(nil))
	for _, want := range []string{
		"vec4 base=vec4(1.,0.800000012,0.,1.);",
		"float fadeIn=10.;",
		"float fadeOut=5.;",
		"return clamp(c,0.,1.);",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("flash body missing %q:\n%s", want, body)
		}
	}
	body = string(ptex.NewReaction().AppendShaderBody(nil))
	for _, want := range []string{
		"float ignite=0.200000003;",
		"float settle=0.400000006;",
		"c=mix(start,ember,t);",
		"c.rgb*=min(fx/fw*fadeIn,1.);",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("reaction body missing %q:\n%s", want, body)
		}
	}
}

func colorsClose(a, b ptex.Color, tol float32) bool {
	aa, ba := a.Array(), b.Array()
	for i := range aa {
		if math32.Abs(aa[i]-ba[i]) > tol {
			return false
		}
	}
	return true
}
