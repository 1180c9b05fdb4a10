package ptexaux

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/ptex"
	"github.com/soypat/ptex/gleval"
	"github.com/soypat/ptex/glrender"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// PreviewConfig configures the debugging sheet generated by [Preview]. Zero values choose defaults.
type PreviewConfig struct {
	// Width of each ramp in pixels. Default is [ptex.Width].
	Width int
	// Scale is the horizontal magnification of each ramp pixel. Default 3.
	Scale int
	// StripHeight is the height of the magnified ramp strip. Default 32.
	StripHeight int
	// PlotHeight is the height of the channel curve plot under each strip. Default 96.
	PlotHeight int
	// Checker is the checkerboard cell size drawn behind strips to show transparency. Default 8.
	Checker int
	// FontSize in points of the ramp labels. Default 14.
	FontSize float64
	// Silent disables progress output of [PreviewFile].
	Silent bool
}

func (cfg *PreviewConfig) setDefaults() {
	if cfg.Width == 0 {
		cfg.Width = ptex.Width
	}
	if cfg.Scale == 0 {
		cfg.Scale = 3
	}
	if cfg.StripHeight == 0 {
		cfg.StripHeight = 32
	}
	if cfg.PlotHeight == 0 {
		cfg.PlotHeight = 96
	}
	if cfg.Checker == 0 {
		cfg.Checker = 8
	}
	if cfg.FontSize == 0 {
		cfg.FontSize = 14
	}
}

const previewMargin = 8

var (
	previewBackground = color.RGBA{R: 24, G: 24, B: 28, A: 255}
	plotBackground    = color.RGBA{R: 40, G: 40, B: 46, A: 255}
	checkerLight      = color.RGBA{R: 166, G: 166, B: 166, A: 255}
	checkerDark       = color.RGBA{R: 89, G: 89, B: 89, A: 255}
	labelColor        = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	channelColors     = [4]color.RGBA{
		{R: 255, G: 64, B: 64, A: 255},
		{R: 64, G: 220, B: 64, A: 255},
		{R: 80, G: 120, B: 255, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}
)

// Preview renders a debugging sheet for the ramps. Each ramp gets a text label, a horizontally
// magnified strip composited over a checkerboard and a plot of its four channel curves
// (red, green, blue and white for alpha). names labels each ramp and must match ramps in length.
func Preview(ramps []ptex.Ramp, names []string, cfg PreviewConfig) (*image.RGBA, error) {
	cfg.setDefaults()
	if len(ramps) == 0 {
		return nil, errors.New("no ramps to preview")
	} else if len(names) != len(ramps) {
		return nil, fmt.Errorf("got %d names for %d ramps", len(names), len(ramps))
	} else if cfg.Scale < 0 || cfg.StripHeight < 0 || cfg.PlotHeight < 0 || cfg.Checker < 0 || cfg.FontSize < 0 {
		return nil, errors.New("negative preview dimension")
	}
	err := ptex.ValidateWidth(cfg.Width)
	if err != nil {
		return nil, err
	}
	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	labelHeight := int(cfg.FontSize*1.5) + 1
	blockHeight := labelHeight + cfg.StripHeight + cfg.PlotHeight + previewMargin
	sheetW := cfg.Width*cfg.Scale + 2*previewMargin
	sheetH := len(ramps)*blockHeight + previewMargin
	sheet := image.NewRGBA(image.Rect(0, 0, sheetW, sheetH))
	draw.Draw(sheet, sheet.Bounds(), image.NewUniform(previewBackground), image.Point{}, draw.Src)

	fc := freetype.NewContext()
	fc.SetDPI(72)
	fc.SetFont(ttf)
	fc.SetFontSize(cfg.FontSize)
	fc.SetClip(sheet.Bounds())
	fc.SetDst(sheet)
	fc.SetSrc(image.NewUniform(labelColor))
	fc.SetHinting(font.HintingFull)

	renderer, err := glrender.NewImageRenderer(cfg.Width)
	if err != nil {
		return nil, err
	}
	colors := make([]ptex.Color, cfg.Width)
	ramp := glrender.NewPixelBuffer(cfg.Width)
	y := previewMargin
	var cache gleval.CachedRamp
	for i, r := range ramps {
		ev, err := gleval.NewCPURamp(r)
		if err != nil {
			return nil, fmt.Errorf("ramp %q: %w", names[i], err)
		}
		// The strip render reuses the plotted colors.
		err = cache.Reset(ev)
		if err != nil {
			return nil, err
		}
		err = cache.Evaluate(colors)
		if err != nil {
			return nil, err
		}
		err = renderer.Render(&cache, ramp)
		if err != nil {
			return nil, err
		}
		// Baseline sits a third of the label height above the strip.
		baseline := fixed.Point26_6{
			X: fixed.I(previewMargin),
			Y: fixed.I(y) + fc.PointToFixed(cfg.FontSize),
		}
		_, err = fc.DrawString(names[i], baseline)
		if err != nil {
			return nil, fmt.Errorf("drawing label %q: %w", names[i], err)
		}
		y += labelHeight

		strip := image.Rect(previewMargin, y, previewMargin+cfg.Width*cfg.Scale, y+cfg.StripHeight)
		drawChecker(sheet, strip, cfg.Checker)
		draw.NearestNeighbor.Scale(sheet, strip, ramp, ramp.Bounds(), draw.Over, nil)
		y += cfg.StripHeight

		plot := image.Rect(previewMargin, y, previewMargin+cfg.Width*cfg.Scale, y+cfg.PlotHeight)
		draw.Draw(sheet, plot, image.NewUniform(plotBackground), image.Point{}, draw.Src)
		plotCurves(sheet, plot, colors)
		y += cfg.PlotHeight + previewMargin
	}
	return sheet, nil
}

func drawChecker(dst *image.RGBA, r image.Rectangle, cell int) {
	if cell <= 0 {
		draw.Draw(dst, r, image.NewUniform(checkerDark), image.Point{}, draw.Src)
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := checkerDark
			if ((x-r.Min.X)/cell+(y-r.Min.Y)/cell)%2 == 0 {
				c = checkerLight
			}
			dst.SetRGBA(x, y, c)
		}
	}
}

// plotCurves draws each channel of colors as a polyline inside the plot rectangle.
// Value 0 maps to the bottom edge and 1 to the top edge.
func plotCurves(dst *image.RGBA, plot image.Rectangle, colors []ptex.Color) {
	if len(colors) == 0 || plot.Empty() {
		return
	}
	box := ms2.Box{
		Min: ms2.Vec{X: float32(plot.Min.X), Y: float32(plot.Min.Y)},
		Max: ms2.Vec{X: float32(plot.Max.X - 1), Y: float32(plot.Max.Y - 1)},
	}
	sz := box.Size()
	dx := sz.X / float32(len(colors))
	toPlot := func(x int, v float32) ms2.Vec {
		return ms2.Vec{
			X: box.Min.X + (float32(x)+0.5)*dx,
			Y: box.Max.Y - ms1.Clamp(v, 0, 1)*sz.Y,
		}
	}
	for ch := 0; ch < 4; ch++ {
		c := channelColors[ch]
		prev := toPlot(0, colors[0].Array()[ch])
		for x := 1; x < len(colors); x++ {
			next := toPlot(x, colors[x].Array()[ch])
			drawLine(dst, prev, next, c)
			prev = next
		}
	}
}

func drawLine(dst *image.RGBA, a, b ms2.Vec, c color.RGBA) {
	steps := int(math32.Max(math32.Abs(b.X-a.X), math32.Abs(b.Y-a.Y))) + 1
	for i := 0; i <= steps; i++ {
		t := float32(i) / float32(steps)
		x := ms1.Interp(a.X, b.X, t)
		y := ms1.Interp(a.Y, b.Y, t)
		dst.SetRGBA(int(x+0.5), int(y+0.5), c)
	}
}

// PreviewFile renders the [Preview] sheet and saves it to filename. The image format is chosen
// from the filename extension, see [FormatFromFilename].
func PreviewFile(filename string, ramps []ptex.Ramp, names []string, cfg PreviewConfig) error {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return err
	}
	sheet, err := Preview(ramps, names, cfg)
	if err != nil {
		return err
	}
	return writeImageFile(filename, sheet, format, RenderConfig{Silent: cfg.Silent})
}
