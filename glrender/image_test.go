package glrender_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/soypat/ptex"
	"github.com/soypat/ptex/gleval"
	"github.com/soypat/ptex/glrender"
)

func TestRenderFlash(t *testing.T) {
	ir, err := glrender.NewImageRenderer(ptex.Width)
	if err != nil {
		t.Fatal(err)
	}
	ev := mustCPU(t, ptex.NewFlash())
	img := glrender.NewPixelBuffer(ptex.Width)
	if img.Bounds().Dx() != ptex.Width || img.Bounds().Dy() != 1 {
		t.Fatalf("bad pixel buffer bounds %v", img.Bounds())
	}
	err = ir.Render(ev, img)
	if err != nil {
		t.Fatal(err)
	}
	if len(img.Pix) != 4*ptex.Width {
		t.Fatalf("want %d bytes, got %d", 4*ptex.Width, len(img.Pix))
	}
	mid := img.Pix[4*128 : 4*128+4]
	if mid[0] != 255 || mid[1] != 204 || mid[2] != 0 || mid[3] != 255 {
		t.Errorf("pixel 128: want [255 204 0 255], got %v", mid)
	}
	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{}) {
		t.Errorf("pixel 0: want transparent black, got %v", got)
	}
}

func TestRenderTransparentKeepsColor(t *testing.T) {
	ir, err := glrender.NewImageRenderer(ptex.Width)
	if err != nil {
		t.Fatal(err)
	}
	img := glrender.NewPixelBuffer(ptex.Width)
	err = ir.Render(mustCPU(t, ptex.NewReaction()), img)
	if err != nil {
		t.Fatal(err)
	}
	want := color.NRGBA{R: 255, G: 153, B: 25, A: 0}
	if got := img.NRGBAAt(51, 0); got != want {
		t.Errorf("pixel 51: want %v, got %v", want, got)
	}
}

func TestRenderMultipleRows(t *testing.T) {
	const w, h = 64, 3
	ir, err := glrender.NewImageRenderer(w)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	reaction := ptex.NewReaction()
	err = ir.Render(mustCPU(t, reaction), img)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if got, want := img.NRGBAAt(x, y), reaction.At(x, w).NRGBA8(); got != want {
				t.Fatalf("(%d,%d): want %v, got %v", x, y, want, got)
			}
		}
	}
}

func TestRenderErrors(t *testing.T) {
	_, err := glrender.NewImageRenderer(0)
	if err == nil {
		t.Error("expected error for zero buffer size")
	}
	ir, err := glrender.NewImageRenderer(16)
	if err != nil {
		t.Fatal(err)
	}
	ev := mustCPU(t, ptex.NewFlash())
	err = ir.Render(ev, glrender.NewPixelBuffer(ptex.Width))
	if err == nil {
		t.Error("expected error for buffer smaller than image")
	}
	err = ir.Render(ev, image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	if err == nil {
		t.Error("expected error for empty image")
	}
	err = ir.RenderLayers(nil, glrender.NewPixelBuffer(8))
	if err == nil {
		t.Error("expected error for no layers")
	}
	err = ir.RenderLayers([]gleval.Evaluator{ev, ev}, glrender.NewPixelBuffer(8))
	if err == nil {
		t.Error("expected error for height mismatch")
	}
}

func TestRenderLayers(t *testing.T) {
	layers := ptex.ParticleLayers()
	evaluators := make([]gleval.Evaluator, len(layers))
	for i, layer := range layers {
		evaluators[i] = mustCPU(t, layer)
	}
	ir, err := glrender.NewImageRenderer(ptex.Width)
	if err != nil {
		t.Fatal(err)
	}
	sheet := image.NewNRGBA(image.Rect(0, 0, ptex.Width, len(layers)))
	err = ir.RenderLayers(evaluators, sheet)
	if err != nil {
		t.Fatal(err)
	}
	single := glrender.NewPixelBuffer(ptex.Width)
	for i, layer := range layers {
		err = ir.Render(mustCPU(t, layer), single)
		if err != nil {
			t.Fatal(err)
		}
		row := sheet.Pix[sheet.PixOffset(0, i):sheet.PixOffset(0, i+1)]
		if string(row) != string(single.Pix) {
			t.Errorf("layer %d differs from single render", i)
		}
	}
}

func mustCPU(t *testing.T, r ptex.Ramp) *gleval.CPURamp {
	t.Helper()
	ev, err := gleval.NewCPURamp(r)
	if err != nil {
		t.Fatal(err)
	}
	return ev
}
