// Package roi locates rectangular regions of interest in a grayscale slide
// raster.
package roi

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"slidecrop/pkg/geometry"
)

// ThresholdMode selects how the blurred raster is binarized.
type ThresholdMode string

const (
	// ThresholdFixed marks every sample strictly greater than zero as
	// foreground. This is the rule existing pipelines were built against
	// and is the default.
	ThresholdFixed ThresholdMode = "fixed"
	// ThresholdOtsu computes a histogram-based Otsu threshold and marks
	// samples strictly above it as foreground.
	ThresholdOtsu ThresholdMode = "otsu"
)

// Options configures Segment.
type Options struct {
	// BlurRadius is the Gaussian smoothing radius in pixels, applied
	// before binarization to suppress high-frequency noise. 0 disables
	// smoothing.
	BlurRadius int
	// SizeThreshold is the minimum bounding-box area in pixels squared.
	// A box survives only if its area strictly exceeds this value.
	SizeThreshold int
	// Mode selects the binarization rule. Empty means ThresholdFixed.
	Mode ThresholdMode
}

// Segment finds the bounding boxes of foreground regions in an 8-bit
// grayscale raster: Gaussian blur, binarization, external contour
// extraction, then a strict area filter. Boxes are returned in contour
// discovery order — the order is deterministic for a given raster and
// downstream code derives output numbering from it, so it is never sorted.
// A raster with no foreground yields an empty slice and no error.
func Segment(raster gocv.Mat, opts Options) ([]geometry.RectInt, error) {
	if raster.Empty() {
		return nil, fmt.Errorf("segment: empty raster")
	}
	if raster.Channels() != 1 {
		return nil, fmt.Errorf("segment: want single-channel raster, got %d channels", raster.Channels())
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	if opts.BlurRadius > 0 {
		sigma := float64(opts.BlurRadius)
		gocv.GaussianBlur(raster, &blurred, image.Point{}, sigma, sigma, gocv.BorderDefault)
	} else {
		raster.CopyTo(&blurred)
	}

	thresh := float32(0)
	if opts.Mode == ThresholdOtsu {
		t, err := OtsuThreshold(blurred)
		if err != nil {
			return nil, err
		}
		thresh = float32(t)
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(blurred, &binary, thresh, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var boxes []geometry.RectInt
	for i := 0; i < contours.Size(); i++ {
		box := geometry.RectFromImage(gocv.BoundingRect(contours.At(i)))
		if box.Area() > opts.SizeThreshold {
			boxes = append(boxes, box)
		}
	}
	return boxes, nil
}
