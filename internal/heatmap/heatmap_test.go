package heatmap

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/Tahleel1611/Leaf-doc/internal/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainRequiresLoadedModel(t *testing.T) {
	classifier := inference.NewClassifier(filepath.Join(t.TempDir(), "missing.onnx"), "")
	require.False(t, classifier.Load())

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	overlay, ok := New(classifier).Explain(img, 0)
	assert.False(t, ok)
	assert.Nil(t, overlay)
}

func TestJetColormapEndpoints(t *testing.T) {
	r, g, b := jet(0)
	assert.Greater(t, b, r, "low importance maps to blue")
	assert.Equal(t, uint8(0), g)

	r, g, b = jet(1)
	assert.Greater(t, r, b, "high importance maps to red")
	assert.Equal(t, uint8(0), g)

	_, g, _ = jet(0.5)
	assert.Equal(t, uint8(255), g, "midpoint is green")

	// Out-of-range inputs are clamped, not wrapped.
	rLow, gLow, bLow := jet(-3)
	rZero, gZero, bZero := jet(0)
	assert.Equal(t, []uint8{rZero, gZero, bZero}, []uint8{rLow, gLow, bLow})
}

func TestSampleBilinearUniformGrid(t *testing.T) {
	grid := [][]float64{
		{0.5, 0.5},
		{0.5, 0.5},
	}
	for _, uv := range [][2]float64{{0, 0}, {0.5, 0.5}, {0.99, 0.99}, {0.25, 0.75}} {
		assert.InDelta(t, 0.5, sampleBilinear(grid, uv[0], uv[1]), 1e-9)
	}
}

func TestSampleBilinearCellCenters(t *testing.T) {
	grid := [][]float64{
		{0, 1},
		{0, 1},
	}
	assert.InDelta(t, 0.0, sampleBilinear(grid, 0.25, 0.25), 1e-9)
	assert.InDelta(t, 1.0, sampleBilinear(grid, 0.75, 0.75), 1e-9)
	// Halfway between the two columns.
	assert.InDelta(t, 0.5, sampleBilinear(grid, 0.5, 0.5), 1e-9)
}

func TestClampIdx(t *testing.T) {
	assert.Equal(t, 0, clampIdx(-1, 7))
	assert.Equal(t, 0, clampIdx(0, 7))
	assert.Equal(t, 6, clampIdx(6, 7))
	assert.Equal(t, 6, clampIdx(7, 7))
}

func TestRenderOverlayPreservesSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 100; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 10, G: 200, B: 10, A: 255})
		}
	}

	importance := make([][]float64, gridCells)
	for i := range importance {
		importance[i] = make([]float64, gridCells)
	}
	importance[3][3] = 1.0

	out := renderOverlay(img, importance)
	assert.Equal(t, image.Rect(0, 0, 100, 60), out.Bounds())

	// The hot cell shifted its pixel toward red relative to an unweighted one.
	hot := out.(*image.RGBA).RGBAAt(50, 30)
	cold := out.(*image.RGBA).RGBAAt(2, 2)
	assert.Greater(t, hot.R, cold.R)
}
