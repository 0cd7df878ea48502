// Package heatmap renders saliency overlays showing which image regions
// drove a classification. It uses occlusion sensitivity: a neutral patch is
// slid over a grid of cells and the confidence drop for the predicted class
// is measured per cell. Generation is strictly best-effort; callers get an
// absent result instead of an error.
package heatmap

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/Tahleel1611/Leaf-doc/internal/inference"
	"golang.org/x/image/draw"
)

const (
	workingSize  = 224
	gridCells    = 7
	overlayAlpha = 0.4
)

var patchColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}

type Visualizer struct {
	classifier *inference.Classifier
}

func New(classifier *inference.Classifier) *Visualizer {
	return &Visualizer{classifier: classifier}
}

// Explain returns a heatmap overlay for the predicted class, rendered at
// the original image's size. The second return is false when the model is
// unloaded (no meaningful signal exists) or when generation fails for any
// reason; such failures are logged and swallowed.
func (v *Visualizer) Explain(img image.Image, classIdx int) (image.Image, bool) {
	if !v.classifier.IsLoaded() {
		return nil, false
	}

	base := image.NewRGBA(image.Rect(0, 0, workingSize, workingSize))
	draw.CatmullRom.Scale(base, base.Bounds(), img, img.Bounds(), draw.Src, nil)

	baseConf, err := v.classifier.ClassConfidence(base, classIdx)
	if err != nil {
		slog.Error("heatmap generation failed", "error", err)
		return nil, false
	}

	importance, err := v.occlusionMap(base, classIdx, baseConf)
	if err != nil {
		slog.Error("heatmap generation failed", "error", err)
		return nil, false
	}

	return renderOverlay(img, importance), true
}

// occlusionMap scores each grid cell by how much covering it reduces the
// class confidence. Scores are clamped at zero and normalized to [0, 1].
func (v *Visualizer) occlusionMap(base *image.RGBA, classIdx int, baseConf float64) ([][]float64, error) {
	cell := workingSize / gridCells

	importance := make([][]float64, gridCells)
	maxDrop := 0.0
	for gy := 0; gy < gridCells; gy++ {
		importance[gy] = make([]float64, gridCells)
		for gx := 0; gx < gridCells; gx++ {
			occluded := image.NewRGBA(base.Bounds())
			copy(occluded.Pix, base.Pix)

			region := image.Rect(gx*cell, gy*cell, (gx+1)*cell, (gy+1)*cell)
			draw.Draw(occluded, region, image.NewUniform(patchColor), image.Point{}, draw.Src)

			conf, err := v.classifier.ClassConfidence(occluded, classIdx)
			if err != nil {
				return nil, err
			}

			drop := baseConf - conf
			if drop < 0 {
				drop = 0
			}
			importance[gy][gx] = drop
			if drop > maxDrop {
				maxDrop = drop
			}
		}
	}

	if maxDrop > 0 {
		for gy := range importance {
			for gx := range importance[gy] {
				importance[gy][gx] /= maxDrop
			}
		}
	}
	return importance, nil
}

// renderOverlay blends a jet-colored, bilinearly upsampled importance map
// over the original image at its native size.
func renderOverlay(img image.Image, importance [][]float64) image.Image {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)

	w, h := bounds.Dx(), bounds.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := sampleBilinear(importance, float64(x)/float64(w), float64(y)/float64(h))
			hr, hg, hb := jet(t)

			i := out.PixOffset(x, y)
			out.Pix[i] = blend(out.Pix[i], hr)
			out.Pix[i+1] = blend(out.Pix[i+1], hg)
			out.Pix[i+2] = blend(out.Pix[i+2], hb)
		}
	}
	return out
}

func blend(orig, heat uint8) uint8 {
	return uint8(float64(orig)*(1-overlayAlpha) + float64(heat)*overlayAlpha)
}

// sampleBilinear interpolates the grid at normalized coordinates u,v in
// [0, 1), treating cell centers as sample points.
func sampleBilinear(grid [][]float64, u, v float64) float64 {
	n := len(grid)
	fx := u*float64(n) - 0.5
	fy := v*float64(n) - 0.5

	x0 := clampIdx(int(fx), n)
	y0 := clampIdx(int(fy), n)
	x1 := clampIdx(x0+1, n)
	y1 := clampIdx(y0+1, n)

	tx := fx - float64(x0)
	ty := fy - float64(y0)
	if tx < 0 {
		tx = 0
	}
	if ty < 0 {
		ty = 0
	}

	top := grid[y0][x0]*(1-tx) + grid[y0][x1]*tx
	bottom := grid[y1][x0]*(1-tx) + grid[y1][x1]*tx
	return top*(1-ty) + bottom*ty
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// jet maps t in [0, 1] to the classic blue-to-red colormap.
func jet(t float64) (r, g, b uint8) {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return uint8(255 * clamp01(1.5-abs(4*t-3))),
		uint8(255 * clamp01(1.5-abs(4*t-2))),
		uint8(255 * clamp01(1.5-abs(4*t-1)))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
