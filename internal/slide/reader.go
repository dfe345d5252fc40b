package slide

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// DecodeError describes a failure to decode one pyramid level of a slide
// image.
type DecodeError struct {
	Path  string
	Level int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s level %d: %v", e.Path, e.Level, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeGray decodes a single pyramid level of a slide image as an 8-bit
// single-channel grayscale raster at that level's native dimensions.
// NDPI files are TIFF containers that store pyramid level n as directory n,
// so the level maps directly to the page offset of the read; level 0 is the
// highest resolution. Only the requested level is materialized, and nothing
// stays open after the call returns. The caller owns the returned Mat and
// must Close it — a level-0 raster can run to hundreds of megabytes, so
// release it before decoding the next channel.
func DecodeGray(path string, level int) (gocv.Mat, error) {
	if level < 0 {
		return gocv.NewMat(), &DecodeError{
			Path: path, Level: level,
			Err: fmt.Errorf("negative pyramid level"),
		}
	}
	if _, err := os.Stat(path); err != nil {
		return gocv.NewMat(), &DecodeError{Path: path, Level: level, Err: err}
	}

	mats := gocv.IMReadMulti_WithParams(path, level, 1, gocv.IMReadGrayScale)
	if len(mats) == 0 {
		return gocv.NewMat(), &DecodeError{
			Path: path, Level: level,
			Err: fmt.Errorf("pyramid level out of range or image unreadable"),
		}
	}

	raster := mats[0]
	for _, extra := range mats[1:] {
		extra.Close()
	}
	if raster.Empty() {
		raster.Close()
		return gocv.NewMat(), &DecodeError{
			Path: path, Level: level,
			Err: fmt.Errorf("decoded raster is empty"),
		}
	}
	return raster, nil
}
