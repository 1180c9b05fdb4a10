package ptex

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/ptex/glbuild"
)

// Flash is a warm yellow-white flash ramp: a constant color gated by the envelope
// on all four channels.
type Flash struct {
	Base     Color
	Envelope Envelope
}

// NewFlash returns the game's flash ramp.
func NewFlash() *Flash {
	return &Flash{
		Base:     RGBA(1.0, 0.8, 0.0, 1.0),
		Envelope: DefaultEnvelope,
	}
}

// At implements [Ramp].
func (f *Flash) At(x, w int) Color {
	c := f.Base
	c = c.Scale(f.Envelope.FadeIn(x, w))
	c = c.Scale(f.Envelope.FadeOut(x, w))
	return c.Clamp()
}

// Validate checks the flash parameters are usable.
func (f *Flash) Validate() error {
	if err := f.Base.validate(); err != nil {
		return fmt.Errorf("flash base: %w", err)
	}
	return f.Envelope.Validate()
}

func (f *Flash) AppendShaderName(b []byte) []byte {
	return append(b, "flash"...)
}

func (f *Flash) AppendShaderBody(b []byte) []byte {
	b = appendColorDecl(b, "base", f.Base)
	b = f.Envelope.appendShaderDecls(b)
	b = append(b, `vec4 c=base*min(fx/fw*fadeIn,1.);
c*=min((fw-fx)/fw*fadeOut,1.);
return clamp(c,0.,1.);`...)
	return b
}

// Reaction is the chemical reaction glow ramp. It is split in three segments along x:
//   - x < Ignite*w: the Start color.
//   - Ignite*w <= x < Settle*w: linear blend from Start to Ember.
//   - x >= Settle*w: the Ember color.
//
// The fade-in gate only dims the color channels while the fade-out gate dims all four channels.
type Reaction struct {
	Start Color
	Ember Color
	// Ignite and Settle are the segment split points as fractions of the ramp width.
	Ignite, Settle float32
	Envelope       Envelope
}

// NewReaction returns the game's reaction ramp. The start color is fully transparent,
// so opacity only builds up while blending toward the dark ember tail.
func NewReaction() *Reaction {
	return &Reaction{
		Start:    RGBA(1.0, 0.6, 0.1, 0),
		Ember:    RGBA(0.1, 0.1, 0.1, 0.2),
		Ignite:   0.2,
		Settle:   0.4,
		Envelope: DefaultEnvelope,
	}
}

// At implements [Ramp].
func (r *Reaction) At(x, w int) Color {
	fx := float32(x)
	fw := float32(w)
	ignite := r.Ignite * fw
	settle := r.Settle * fw
	var c Color
	switch {
	case fx < ignite:
		c = r.Start
	case fx < settle:
		t := (fx - ignite) / ((r.Settle - r.Ignite) * fw)
		c.RGB.X = mixf(r.Start.RGB.X, r.Ember.RGB.X, t)
		c.RGB.Y = mixf(r.Start.RGB.Y, r.Ember.RGB.Y, t)
		c.RGB.Z = mixf(r.Start.RGB.Z, r.Ember.RGB.Z, t)
		c.A = mixf(r.Start.A, r.Ember.A, t)
	default:
		c = r.Ember
	}
	c = c.ScaleRGB(r.Envelope.FadeIn(x, w))
	c = c.Scale(r.Envelope.FadeOut(x, w))
	return c.Clamp()
}

// Validate checks the split points satisfy 0 <= Ignite < Settle <= 1 and the colors and envelope are usable.
func (r *Reaction) Validate() error {
	if math32.IsNaN(r.Ignite) || math32.IsNaN(r.Settle) || r.Ignite < 0 || r.Settle > 1 || r.Ignite >= r.Settle {
		return fmt.Errorf("reaction split points must satisfy 0 <= Ignite < Settle <= 1, got Ignite=%v Settle=%v", r.Ignite, r.Settle)
	}
	if err := r.Start.validate(); err != nil {
		return fmt.Errorf("reaction start: %w", err)
	} else if err = r.Ember.validate(); err != nil {
		return fmt.Errorf("reaction ember: %w", err)
	}
	return r.Envelope.Validate()
}

func (r *Reaction) AppendShaderName(b []byte) []byte {
	return append(b, "reaction"...)
}

func (r *Reaction) AppendShaderBody(b []byte) []byte {
	b = appendColorDecl(b, "start", r.Start)
	b = appendColorDecl(b, "ember", r.Ember)
	b = r.Envelope.appendShaderDecls(b)
	b = glbuild.AppendFloatDecl(b, "ignite", r.Ignite)
	b = glbuild.AppendFloatDecl(b, "settle", r.Settle)
	b = append(b, `vec4 c;
if (fx < ignite*fw) {
	c=start;
} else if (fx < settle*fw) {
	float t=(fx-ignite*fw)/((settle-ignite)*fw);
	c=mix(start,ember,t);
} else {
	c=ember;
}
c.rgb*=min(fx/fw*fadeIn,1.);
c*=min((fw-fx)/fw*fadeOut,1.);
return clamp(c,0.,1.);`...)
	return b
}

// ParticleLayers returns the ramps of the game's particle array texture in layer order:
// nine reaction layers followed by the flash layer. A particle's type byte indexes this slice.
func ParticleLayers() []Ramp {
	const reactionLayers = 9
	layers := make([]Ramp, 0, reactionLayers+1)
	reaction := NewReaction()
	for i := 0; i < reactionLayers; i++ {
		layers = append(layers, reaction)
	}
	return append(layers, NewFlash())
}
