package ptex

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/ptex/glbuild"
)

// Width is the pixel width of the particle ramp textures loaded by the game.
// Ramp textures are a single row high.
const Width = 256

// Ramp is a 1D texture generator. Implementations are pure: the same arguments
// always produce the same color.
type Ramp interface {
	glbuild.Ramp
	// At returns the normalized color of pixel x in a ramp w pixels wide.
	// Returned components are clamped to [0,1].
	At(x, w int) Color
}

// Color is a normalized RGBA color with components in [0,1]. Its memory layout
// is four consecutive float32 (R,G,B,A), same as a GLSL std430 vec4.
type Color struct {
	RGB ms3.Vec
	A   float32
}

// RGBA returns a Color with the given normalized components.
func RGBA(r, g, b, a float32) Color {
	return Color{RGB: ms3.Vec{X: r, Y: g, Z: b}, A: a}
}

// Scale multiplies all four components by s.
func (c Color) Scale(s float32) Color {
	return Color{RGB: ms3.Scale(s, c.RGB), A: c.A * s}
}

// ScaleRGB multiplies the color components by s leaving alpha untouched.
func (c Color) ScaleRGB(s float32) Color {
	return Color{RGB: ms3.Scale(s, c.RGB), A: c.A}
}

// Clamp clamps all components to [0,1].
func (c Color) Clamp() Color {
	return Color{
		RGB: ms3.Vec{
			X: ms1.Clamp(c.RGB.X, 0, 1),
			Y: ms1.Clamp(c.RGB.Y, 0, 1),
			Z: ms1.Clamp(c.RGB.Z, 0, 1),
		},
		A: ms1.Clamp(c.A, 0, 1),
	}
}

// NRGBA8 clamps c and converts it to non-premultiplied 8 bit channels. Values are scaled by 255
// and truncated toward zero, so 0.8 maps to 204 and values just under 1 never round up to 255.
// Color channels are kept as-is when alpha is zero.
func (c Color) NRGBA8() color.NRGBA {
	c = c.Clamp()
	return color.NRGBA{
		R: uint8(c.RGB.X * 255),
		G: uint8(c.RGB.Y * 255),
		B: uint8(c.RGB.Z * 255),
		A: uint8(c.A * 255),
	}
}

// Array returns the components in R,G,B,A order.
func (c Color) Array() [4]float32 {
	return [4]float32{c.RGB.X, c.RGB.Y, c.RGB.Z, c.A}
}

func (c Color) validate() error {
	for _, v := range c.Array() {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return fmt.Errorf("non-finite color component in %v", c.Array())
		}
	}
	return nil
}

func appendColorDecl(b []byte, varname string, c Color) []byte {
	return glbuild.AppendVec4Decl(b, varname, c.RGB.X, c.RGB.Y, c.RGB.Z, c.A)
}

// Envelope tapers a ramp at both ends with two multiplicative gates.
// The gates are independent: a pixel's brightness is the product of both.
type Envelope struct {
	// In is the fade-in rate. The fade-in gate reaches 1 at x = w/In.
	In float32
	// Out is the fade-out rate. The fade-out gate starts dropping below 1 at x = w - w/Out.
	Out float32
}

// DefaultEnvelope is the envelope used by the game's particle ramps.
var DefaultEnvelope = Envelope{In: 10, Out: 5}

// FadeIn returns min(x/w*In, 1). It is zero at x=0.
func (e Envelope) FadeIn(x, w int) float32 {
	return math32.Min(float32(x)/float32(w)*e.In, 1)
}

// FadeOut returns min((w-x)/w*Out, 1).
func (e Envelope) FadeOut(x, w int) float32 {
	return math32.Min(float32(w-x)/float32(w)*e.Out, 1)
}

// Validate checks the envelope rates are positive and finite.
func (e Envelope) Validate() error {
	if !(e.In > 0) || math32.IsInf(e.In, 1) {
		return fmt.Errorf("invalid fade-in rate %v", e.In)
	} else if !(e.Out > 0) || math32.IsInf(e.Out, 1) {
		return fmt.Errorf("invalid fade-out rate %v", e.Out)
	}
	return nil
}

func (e Envelope) appendShaderDecls(b []byte) []byte {
	b = glbuild.AppendFloatDecl(b, "fadeIn", e.In)
	b = glbuild.AppendFloatDecl(b, "fadeOut", e.Out)
	b = append(b, "float fx=float(x);\nfloat fw=float(w);\n"...)
	return b
}

var errBadWidth = errors.New("ramp width must be positive")

// ValidateWidth checks w is a usable ramp width.
func ValidateWidth(w int) error {
	if w <= 0 {
		return errBadWidth
	}
	return nil
}

// mixf rounds each product so no platform fuses the sum into an FMA.
func mixf(x, y, a float32) float32 {
	return float32(x*(1-a)) + float32(y*a)
}
