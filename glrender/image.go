package glrender

import (
	"errors"
	"fmt"
	"image"

	"github.com/soypat/ptex"
	"github.com/soypat/ptex/gleval"
)

// ImageRenderer converts 1D ramps to non-premultiplied RGBA images.
type ImageRenderer struct {
	colors []ptex.Color
}

// NewImageRenderer instances a new [ImageRenderer] able to render ramps up to evalBufferSize pixels wide.
func NewImageRenderer(evalBufferSize int) (*ImageRenderer, error) {
	if evalBufferSize <= 0 {
		return nil, errors.New("too small evaluation buffer size")
	}
	ir := &ImageRenderer{
		colors: make([]ptex.Color, evalBufferSize),
	}
	return ir, nil
}

// NewPixelBuffer allocates a w×1 non-premultiplied RGBA image. Pixels are stored row-major,
// 4 bytes per pixel in R,G,B,A order with x=0 first. Color bytes of transparent
// pixels are preserved by encoders, unlike with [image.RGBA].
func NewPixelBuffer(w int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, w, 1))
}

// Render evaluates the ramp once per image row at the image's width and writes the
// 8 bit colors to img. Conversion clamps and truncates, see [ptex.Color.NRGBA8].
func (ir *ImageRenderer) Render(ev gleval.Evaluator, img *image.NRGBA) error {
	imgBB := img.Bounds()
	dxi := imgBB.Dx()
	if dxi <= 0 || imgBB.Dy() <= 0 {
		return errors.New("empty image")
	} else if len(ir.colors) < dxi {
		return fmt.Errorf("require evaluation buffer (%d) to be at least of length of image width (%d)", len(ir.colors), dxi)
	}
	colors := ir.colors[:dxi]
	err := ev.Evaluate(colors)
	if err != nil {
		return err
	}
	for row := imgBB.Min.Y; row < imgBB.Max.Y; row++ {
		ir.writeRow(img, row, colors)
	}
	return nil
}

// RenderLayers renders one ramp per image row, row i being evaluated by evaluators[i].
// The image must be exactly len(evaluators) rows high.
func (ir *ImageRenderer) RenderLayers(evaluators []gleval.Evaluator, img *image.NRGBA) error {
	imgBB := img.Bounds()
	dxi := imgBB.Dx()
	if len(evaluators) == 0 {
		return errors.New("no layers to render")
	} else if imgBB.Dy() != len(evaluators) {
		return fmt.Errorf("image height (%d) does not match number of layers (%d)", imgBB.Dy(), len(evaluators))
	} else if len(ir.colors) < dxi {
		return fmt.Errorf("require evaluation buffer (%d) to be at least of length of image width (%d)", len(ir.colors), dxi)
	}
	colors := ir.colors[:dxi]
	for i, ev := range evaluators {
		err := ev.Evaluate(colors)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		ir.writeRow(img, imgBB.Min.Y+i, colors)
	}
	return nil
}

func (ir *ImageRenderer) writeRow(img *image.NRGBA, row int, colors []ptex.Color) {
	imgBB := img.Bounds()
	off := img.PixOffset(imgBB.Min.X, row)
	pix := img.Pix[off : off+4*len(colors)]
	for i, c := range colors {
		c8 := c.NRGBA8()
		pix[4*i] = c8.R
		pix[4*i+1] = c8.G
		pix[4*i+2] = c8.B
		pix[4*i+3] = c8.A
	}
}
