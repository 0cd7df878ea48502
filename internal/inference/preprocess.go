package inference

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

const inputSize = 224

// ImageNet normalization constants, matching the model's training pipeline.
var (
	normalizeMean = [3]float32{0.485, 0.456, 0.406}
	normalizeStd  = [3]float32{0.229, 0.224, 0.225}
)

// imageToTensor rescales an image to the model input size and returns it as
// a normalized CHW float32 buffer for a (1, 3, 224, 224) tensor.
func imageToTensor(img image.Image) []float32 {
	resized := image.NewRGBA(image.Rect(0, 0, inputSize, inputSize))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	data := make([]float32, 3*inputSize*inputSize)
	plane := inputSize * inputSize
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			i := y*inputSize + x
			data[i] = (float32(r)/0xffff - normalizeMean[0]) / normalizeStd[0]
			data[plane+i] = (float32(g)/0xffff - normalizeMean[1]) / normalizeStd[1]
			data[2*plane+i] = (float32(b)/0xffff - normalizeMean[2]) / normalizeStd[2]
		}
	}
	return data
}

func softmax(logits []float32) []float64 {
	probs := make([]float64, len(logits))
	if len(logits) == 0 {
		return probs
	}

	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}

	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(float64(v - max))
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
