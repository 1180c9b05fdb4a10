package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const VersionStr = "#version 430\n"

// Ramp stores information for automatically generating 1D texture ramp
// shader pipelines and evaluating them correctly on a GPU.
//
// The generated GLSL function has the signature
//
//	vec4 <name>(int x, int w)
//
// and returns the normalized RGBA color of pixel x in a ramp w pixels wide.
type Ramp interface {
	// AppendShaderName appends the name of the GL shader function
	// to the buffer and returns the result. It should be unique to that ramp.
	AppendShaderName(b []byte) []byte
	// AppendShaderBody appends the body of the shader function to the
	// buffer and returns the result. The body has access to integer arguments x and w.
	AppendShaderBody(b []byte) []byte
}

// Programmer implements shader generation logic for Ramp type.
type Programmer struct {
	scratch       []byte
	computeHeader []byte
	// Invocations size in X (local group size) to give each compute work group.
	invocX int
}

var defaultComputeHeader = []byte("#shader compute\n" + VersionStr)

// NewDefaultProgrammer returns a Programmer with reasonable default parameters for use with glgl package on the local machine.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratch:       make([]byte, 1024),
		computeHeader: defaultComputeHeader,
		invocX:        32,
	}
}

// SetComputeInvocations sets the work group local-sizes. x*y*z must be less than maximum number of invocations.
func (p *Programmer) SetComputeInvocations(x, y, z int) {
	if y != 1 || z != 1 {
		panic("unsupported")
	} else if x < 1 {
		panic("zero or negative X invocation size")
	}
	p.invocX = x
}

// ComputeInvocations returns the worker group invocation size in x y and z.
func (p *Programmer) ComputeInvocations() (int, int, int) {
	return p.invocX, 1, 1
}

// WriteRampDecl writes the ramp shader function declaration and returns the function name.
func (p *Programmer) WriteRampDecl(w io.Writer, r Ramp) (name string, n int, err error) {
	if r == nil {
		return "", 0, errors.New("nil Ramp")
	}
	p.scratch, name, err = AppendRampSource(p.scratch[:0], r)
	if err != nil {
		return "", 0, err
	}
	n, err = w.Write(p.scratch)
	return name, n, err
}

// WriteComputeRamp creates the bare bones compute program for evaluating a ramp
// and writes it to the writer. The program writes one vec4 per invocation to the
// std430 buffer at binding 0; the ramp width is the length of that buffer.
func (p *Programmer) WriteComputeRamp(w io.Writer, r Ramp) (int, error) {
	n, err := w.Write(p.computeHeader)
	if err != nil {
		return n, err
	}
	name, ngot, err := p.WriteRampDecl(w, r)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = fmt.Fprintf(w, `

layout(local_size_x = %d, local_size_y = 1, local_size_z = 1) in;

// Output: normalized RGBA color of each pixel of the ramp.
layout(std430, binding = 0) buffer ColorsBuffer {
    vec4 vbo_colors[];
};

void main() {
	int idx = int( gl_GlobalInvocationID.x );
	int w = vbo_colors.length();
	if (idx >= w) {
		return;
	}
	vbo_colors[idx] = %s(idx, w);
}
`, p.invocX, name)
	n += ngot
	return n, err
}

// WriteFragmentRamp writes a fragment shader that displays the ramp over a full screen quad
// whose vertex shader outputs vTexCoord in [0,1]. The upper half of the quad shows the ramp
// composited over a checkerboard using its alpha, the lower half shows the raw color channels.
// The program expects uniforms uWidth (ramp width in pixels) and uChecker (checker cell size in screen pixels).
func (p *Programmer) WriteFragmentRamp(w io.Writer, r Ramp) (int, error) {
	n, err := w.Write([]byte("#version 460\n"))
	if err != nil {
		return n, err
	}
	name, ngot, err := p.WriteRampDecl(w, r)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = fmt.Fprintf(w, `
in vec2 vTexCoord;
out vec4 fragColor;

uniform int uWidth;
uniform float uChecker;

void main() {
	int x = clamp(int(vTexCoord.x * float(uWidth)), 0, uWidth-1);
	vec4 c = %s(x, uWidth);
	if (vTexCoord.y < 0.5) {
		fragColor = vec4(c.rgb, 1.0);
		return;
	}
	vec2 cell = floor(gl_FragCoord.xy / uChecker);
	float bg = mod(cell.x + cell.y, 2.0) < 1.0 ? 0.35 : 0.65;
	fragColor = vec4(mix(vec3(bg), c.rgb, c.a), 1.0);
}
`, name)
	n += ngot
	return n, err
}

// AppendRampSource appends the full GLSL function declaration of the ramp to dst.
func AppendRampSource(dst []byte, r Ramp) (result []byte, name string, err error) {
	start := len(dst)
	dst = append(dst, "vec4 "...)
	nameStart := len(dst)
	dst = r.AppendShaderName(dst)
	name = string(dst[nameStart:])
	if err = validateName(name); err != nil {
		return dst[:start], "", err
	}
	dst = append(dst, "(int x, int w) {\n"...)
	bodyStart := len(dst)
	dst = r.AppendShaderBody(dst)
	if len(bytes.TrimSpace(dst[bodyStart:])) == 0 {
		return dst[:start], "", fmt.Errorf("ramp %q: empty shader body", name)
	}
	dst = append(dst, "\n}\n"...)
	return dst, name, nil
}

func validateName(name string) error {
	if len(name) == 0 {
		return errors.New("empty shader name")
	} else if len(name) >= 3 && name[:3] == "gl_" {
		return fmt.Errorf("shader name %q uses reserved gl_ prefix", name)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		ok := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9')
		if !ok {
			return fmt.Errorf("invalid character %q in shader name %q", c, name)
		}
	}
	return nil
}

func AppendFloatDecl(b []byte, floatVarname string, v float32) []byte {
	b = append(b, "float "...)
	b = append(b, floatVarname...)
	b = append(b, '=')
	b = AppendFloat(b, '-', '.', v)
	b = append(b, ';', '\n')
	return b
}

// AppendVec4Decl appends a vec4 declaration with the given components, i.e: "vec4 name=vec4(1.,0.8,0.,1.);"
func AppendVec4Decl(b []byte, vec4Varname string, x, y, z, w float32) []byte {
	b = append(b, "vec4 "...)
	b = append(b, vec4Varname...)
	b = append(b, "=vec4("...)
	b = AppendFloats(b, ',', '-', '.', x, y, z, w)
	b = append(b, ')', ';', '\n')
	return b
}

const decimalDigits = 9

// AppendFloat appends v formatted as a GLSL float literal. Trailing zeroes are trimmed
// though the decimal separator is always kept so the literal is never parsed as an int.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}
