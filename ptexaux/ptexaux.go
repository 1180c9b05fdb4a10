package ptexaux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/soypat/ptex"
	"github.com/soypat/ptex/glbuild"
	"github.com/soypat/ptex/gleval"
	"github.com/soypat/ptex/glrender"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type RenderConfig struct {
	// Width of the ramp in pixels. If zero [ptex.Width] is used.
	Width  int
	UseGPU bool
	Silent bool
}

func (cfg RenderConfig) width() int {
	if cfg.Width == 0 {
		return ptex.Width
	}
	return cfg.Width
}

func (cfg RenderConfig) log(args ...any) {
	if !cfg.Silent {
		fmt.Println(args...)
	}
}

// Format is an image file format ramps can be written as.
type Format int

const (
	FormatPNG Format = iota
	FormatBMP
	FormatTIFF
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "PNG"
	case FormatBMP:
		return "BMP"
	case FormatTIFF:
		return "TIFF"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatFromFilename picks the image format from the filename's extension.
func FormatFromFilename(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png":
		return FormatPNG, nil
	case ".bmp":
		return FormatBMP, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	}
	return 0, fmt.Errorf("unsupported image file extension %q", ext)
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
	return fmt.Errorf("unsupported format %s", format)
}

// MakeGPURamp generates the compute program for r and compiles it. A GL context
// must be current, see [gleval.Init1x1GLFW].
func MakeGPURamp(r ptex.Ramp) (*gleval.RampCompute, error) {
	if v, ok := r.(interface{ Validate() error }); ok {
		err := v.Validate()
		if err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	programmer := glbuild.NewDefaultProgrammer()
	n, err := programmer.WriteComputeRamp(&buf, r)
	if err != nil {
		return nil, err
	} else if n != buf.Len() {
		return nil, fmt.Errorf("wrote %d bytes but WriteComputeRamp counted %d", buf.Len(), n)
	}
	invocX, _, _ := programmer.ComputeInvocations()
	return gleval.NewComputeGPURamp(&buf, invocX)
}

// RenderImage evaluates r and returns the resulting Width×1 pixel buffer.
func RenderImage(r ptex.Ramp, cfg RenderConfig) (*image.NRGBA, error) {
	return renderLayers([]ptex.Ramp{r}, cfg)
}

// RenderFile renders the ramp and saves the result to filename. The image format is chosen
// from the filename extension, see [FormatFromFilename]. The ramp is fully evaluated before the
// file is created; if encoding fails the partially written file is removed.
func RenderFile(filename string, r ptex.Ramp, cfg RenderConfig) error {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return err
	}
	img, err := RenderImage(r, cfg)
	if err != nil {
		return err
	}
	return writeImageFile(filename, img, format, cfg)
}

// RenderLayersFile renders each ramp as a row of a single image, as stacked
// in a layered array texture, and saves it to filename.
func RenderLayersFile(filename string, ramps []ptex.Ramp, cfg RenderConfig) error {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return err
	}
	img, err := renderLayers(ramps, cfg)
	if err != nil {
		return err
	}
	return writeImageFile(filename, img, format, cfg)
}

func renderLayers(ramps []ptex.Ramp, cfg RenderConfig) (_ *image.NRGBA, err error) {
	w := cfg.width()
	if err = ptex.ValidateWidth(w); err != nil {
		return nil, err
	} else if len(ramps) == 0 {
		return nil, errors.New("no ramps to render")
	}
	if cfg.UseGPU {
		cfg.log("using GPU")
		terminate, err := gleval.Init1x1GLFW()
		if err != nil {
			return nil, err
		}
		defer terminate()
	} else {
		cfg.log("using CPU")
	}
	watch := stopwatch()
	// Stacked layers often repeat a ramp. Evaluate each distinct ramp once.
	// Ramps of non-comparable dynamic type cannot be map keys and get their own evaluator.
	cache := make(map[ptex.Ramp]*gleval.CachedRamp)
	distinct := 0
	evaluators := make([]gleval.Evaluator, len(ramps))
	for i, r := range ramps {
		if r == nil {
			return nil, fmt.Errorf("nil ramp at layer %d", i)
		}
		hashable := reflect.ValueOf(r).Comparable()
		if hashable {
			if c, ok := cache[r]; ok {
				evaluators[i] = c
				continue
			}
		}
		var ev gleval.Evaluator
		if cfg.UseGPU {
			gpu, err := MakeGPURamp(r)
			if err != nil {
				return nil, fmt.Errorf("instantiating GPU ramp: %w", err)
			}
			defer gpu.Delete()
			ev = gpu
		} else {
			ev, err = gleval.NewCPURamp(r)
			if err != nil {
				return nil, err
			}
		}
		c := new(gleval.CachedRamp)
		if err = c.Reset(ev); err != nil {
			return nil, err
		}
		if hashable {
			cache[r] = c
		}
		distinct++
		evaluators[i] = c
	}
	renderer, err := glrender.NewImageRenderer(w)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, len(ramps)))
	err = renderer.RenderLayers(evaluators, img)
	if err != nil {
		return nil, err
	}
	cfg.log("evaluated", distinct, "distinct ramps for", len(ramps), "layers in", watch())
	return img, nil
}

func writeImageFile(filename string, img image.Image, format Format, cfg RenderConfig) (err error) {
	watch := stopwatch()
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, fp.Close())
		if err != nil {
			os.Remove(filename)
		}
	}()
	err = Encode(fp, img, format)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	err = fp.Sync()
	if err != nil {
		return err
	}
	cfg.log("wrote", fp.Name(), "in", watch())
	return nil
}

type UIConfig struct {
	// Window dimensions. Default 768x192.
	Width, Height int
	// RampWidth is the initial pixel width the ramp is evaluated at. Default [ptex.Width].
	RampWidth int
	// Checker is the checkerboard cell size in screen pixels. Default 16.
	Checker int
	// Context cancels the UI loop when done. May be nil.
	Context context.Context
}

// UI opens a window drawing the ramp procedurally on the GPU. The upper half shows the ramp
// composited over a checkerboard, the lower half its raw color channels. Up and down arrow keys
// double or halve the ramp width. UI must be called from the main thread and requires cgo.
func UI(r ptex.Ramp, cfg UIConfig) error {
	if r == nil {
		return errors.New("nil ramp")
	}
	if v, ok := r.(interface{ Validate() error }); ok {
		err := v.Validate()
		if err != nil {
			return err
		}
	}
	if cfg.Width == 0 {
		cfg.Width = 768
	}
	if cfg.Height == 0 {
		cfg.Height = 192
	}
	if cfg.RampWidth == 0 {
		cfg.RampWidth = ptex.Width
	}
	if cfg.Checker == 0 {
		cfg.Checker = 16
	}
	if cfg.Width < 0 || cfg.Height < 0 || cfg.Checker < 0 {
		return errors.New("negative UI dimension")
	}
	err := ptex.ValidateWidth(cfg.RampWidth)
	if err != nil {
		return err
	}
	return ui(r, cfg)
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
