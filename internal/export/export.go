// Package export writes cropped regions of a slide raster to TIFF files.
package export

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/tiff"

	"slidecrop/pkg/geometry"
)

// CropFilename returns the output path for the crop at 1-based ordinal i:
// <basePath>_roi_NN.tif. Ordinals are zero-padded to two digits so names
// stay unambiguous past nine ROIs.
func CropFilename(basePath string, i int) string {
	return fmt.Sprintf("%s_roi_%02d.tif", basePath, i)
}

// Progress is called after each written crop with the 1-based ordinal, the
// total number of boxes, the crop dimensions, and the destination path.
type Progress func(ordinal, total, width, height int, path string)

// ExportCrops crops the raster to each bounding box and writes one
// Deflate-compressed grayscale TIFF per box, named after the box's 1-based
// position in the list. Crops are exact: the written pixels equal the
// source pixels over [x,x+w) x [y,y+h), with no resampling. Existing files
// at the destination paths are overwritten. Returns the number of files
// written; on error the count covers the files written before the failure.
func ExportCrops(raster gocv.Mat, boxes []geometry.RectInt, basePath string, progress Progress) (int, error) {
	if raster.Empty() {
		return 0, fmt.Errorf("export: empty raster")
	}
	if raster.Channels() != 1 {
		return 0, fmt.Errorf("export: want single-channel raster, got %d channels", raster.Channels())
	}

	bounds := geometry.RectInt{Width: raster.Cols(), Height: raster.Rows()}
	written := 0
	for i, box := range boxes {
		if !bounds.ContainsRect(box) {
			return written, fmt.Errorf("export: box %d (%dx%d at %d,%d) outside %dx%d raster",
				i+1, box.Width, box.Height, box.X, box.Y, bounds.Width, bounds.Height)
		}

		region := raster.Region(box.ToImageRect())
		img := grayImage(region)
		region.Close()

		path := CropFilename(basePath, i+1)
		if err := writeTIFF(path, img); err != nil {
			return written, err
		}
		written++
		if progress != nil {
			progress(i+1, len(boxes), box.Width, box.Height, path)
		}
	}
	return written, nil
}

// grayImage copies a single-channel Mat into an image.Gray. The Mat may be
// a region view; per-pixel access follows the view's stride.
func grayImage(mat gocv.Mat) *image.Gray {
	w, h := mat.Cols(), mat.Rows()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: mat.GetUCharAt(y, x)})
		}
	}
	return img
}

func writeTIFF(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
