package roi

import (
	"fmt"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
)

// OtsuThreshold computes the Otsu binarization threshold of an 8-bit
// grayscale raster: the gray level that maximizes the between-class
// variance of its intensity histogram. Samples strictly above the returned
// value are foreground.
func OtsuThreshold(raster gocv.Mat) (uint8, error) {
	if raster.Empty() {
		return 0, fmt.Errorf("otsu: empty raster")
	}
	if raster.Channels() != 1 || raster.Type() != gocv.MatTypeCV8U {
		return 0, fmt.Errorf("otsu: want 8-bit single-channel raster")
	}

	hist := make([]float64, 256)
	for _, v := range raster.ToBytes() {
		hist[v]++
	}
	return otsuFromHistogram(hist), nil
}

// otsuFromHistogram runs the between-class variance scan over a 256-bin
// intensity histogram.
func otsuFromHistogram(hist []float64) uint8 {
	weight := make([]float64, len(hist))
	floats.CumSum(weight, hist)
	total := weight[len(weight)-1]
	if total == 0 {
		return 0
	}

	moment := make([]float64, len(hist))
	for i, h := range hist {
		moment[i] = float64(i) * h
	}
	floats.CumSum(moment, moment)
	sum := moment[len(moment)-1]

	var best float64
	threshold := uint8(0)
	for t := 0; t < len(hist)-1; t++ {
		wB := weight[t]
		wF := total - wB
		if wB == 0 || wF == 0 {
			continue
		}
		mB := moment[t] / wB
		mF := (sum - moment[t]) / wF
		v := wB * wF * (mB - mF) * (mB - mF)
		if v > best {
			best = v
			threshold = uint8(t)
		}
	}
	return threshold
}
