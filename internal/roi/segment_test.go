package roi

import (
	"reflect"
	"testing"

	"gocv.io/x/gocv"

	"slidecrop/pkg/geometry"
)

type blob struct {
	rect  geometry.RectInt
	value uint8
}

// makeRaster builds a grayscale raster with the given background value and
// filled rectangular blobs.
func makeRaster(t *testing.T, w, h int, background uint8, blobs []blob) gocv.Mat {
	t.Helper()
	data := make([]byte, w*h)
	for i := range data {
		data[i] = background
	}
	for _, b := range blobs {
		for y := b.rect.Y; y < b.rect.Y+b.rect.Height; y++ {
			for x := b.rect.X; x < b.rect.X+b.rect.Width; x++ {
				data[y*w+x] = b.value
			}
		}
	}
	m, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, data)
	if err != nil {
		t.Fatalf("build raster: %v", err)
	}
	return m
}

func TestSegmentDisjointBlobs(t *testing.T) {
	blobs := []blob{
		{geometry.NewRectInt(20, 30, 60, 40), 255},
		{geometry.NewRectInt(200, 150, 80, 50), 180},
	}
	raster := makeRaster(t, 400, 300, 0, blobs)
	defer raster.Close()

	boxes, err := Segment(raster, Options{SizeThreshold: 1000})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(boxes) != len(blobs) {
		t.Fatalf("got %d boxes, want %d: %v", len(boxes), len(blobs), boxes)
	}

	// Without smoothing each box must bound its blob exactly.
	for _, b := range blobs {
		found := false
		for _, box := range boxes {
			if box == b.rect {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no box matches blob %+v exactly, got %v", b.rect, boxes)
		}
	}
	for _, box := range boxes {
		if box.Area() <= 1000 {
			t.Errorf("box %+v has area %d, filter should require > 1000", box, box.Area())
		}
	}
}

func TestSegmentStrictAreaFilter(t *testing.T) {
	// 40x25 = exactly the threshold: excluded. 40x26 = 1040: kept.
	blobs := []blob{
		{geometry.NewRectInt(10, 10, 40, 25), 255},
		{geometry.NewRectInt(120, 10, 40, 26), 255},
	}
	raster := makeRaster(t, 300, 100, 0, blobs)
	defer raster.Close()

	boxes, err := Segment(raster, Options{SizeThreshold: 1000})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1: %v", len(boxes), boxes)
	}
	if boxes[0] != blobs[1].rect {
		t.Errorf("surviving box = %+v, want %+v", boxes[0], blobs[1].rect)
	}
}

func TestSegmentNoForeground(t *testing.T) {
	raster := makeRaster(t, 200, 200, 0, nil)
	defer raster.Close()

	boxes, err := Segment(raster, Options{BlurRadius: 5, SizeThreshold: 100})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(boxes) != 0 {
		t.Fatalf("got %d boxes from a blank raster, want 0", len(boxes))
	}
}

func TestSegmentBlurredBoxContainsBlob(t *testing.T) {
	inner := geometry.NewRectInt(120, 120, 60, 60)
	raster := makeRaster(t, 300, 300, 0, []blob{{inner, 255}})
	defer raster.Close()

	boxes, err := Segment(raster, Options{BlurRadius: 5, SizeThreshold: 100})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1: %v", len(boxes), boxes)
	}
	// Smoothing can only grow the foreground region, never shrink it.
	if !boxes[0].ContainsRect(inner) {
		t.Errorf("box %+v does not contain blob %+v", boxes[0], inner)
	}
}

func TestSegmentDeterministic(t *testing.T) {
	blobs := []blob{
		{geometry.NewRectInt(15, 20, 50, 40), 200},
		{geometry.NewRectInt(150, 60, 70, 30), 255},
		{geometry.NewRectInt(60, 180, 40, 60), 120},
	}
	raster := makeRaster(t, 300, 300, 0, blobs)
	defer raster.Close()

	opts := Options{BlurRadius: 3, SizeThreshold: 500}
	first, err := Segment(raster, opts)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	second, err := Segment(raster, opts)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("non-deterministic result:\nfirst:  %v\nsecond: %v", first, second)
	}
	if len(first) != len(blobs) {
		t.Fatalf("got %d boxes, want %d", len(first), len(blobs))
	}
}

func TestSegmentThresholdModes(t *testing.T) {
	// Dim nonzero background. The fixed rule treats the whole raster as
	// foreground; Otsu separates the bright blob from it.
	inner := geometry.NewRectInt(30, 40, 90, 70)
	raster := makeRaster(t, 300, 260, 10, []blob{{inner, 200}})
	defer raster.Close()

	fixed, err := Segment(raster, Options{SizeThreshold: 100, Mode: ThresholdFixed})
	if err != nil {
		t.Fatalf("Segment fixed: %v", err)
	}
	if len(fixed) != 1 {
		t.Fatalf("fixed mode: got %d boxes, want 1", len(fixed))
	}
	if fixed[0] != geometry.NewRectInt(0, 0, 300, 260) {
		t.Errorf("fixed mode box = %+v, want full raster", fixed[0])
	}

	otsu, err := Segment(raster, Options{SizeThreshold: 100, Mode: ThresholdOtsu})
	if err != nil {
		t.Fatalf("Segment otsu: %v", err)
	}
	if len(otsu) != 1 {
		t.Fatalf("otsu mode: got %d boxes, want 1: %v", len(otsu), otsu)
	}
	if otsu[0] != inner {
		t.Errorf("otsu mode box = %+v, want %+v", otsu[0], inner)
	}
}

func TestSegmentRejectsBadInput(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	if _, err := Segment(empty, Options{}); err == nil {
		t.Error("expected error for empty raster")
	}

	bgr := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer bgr.Close()
	if _, err := Segment(bgr, Options{}); err == nil {
		t.Error("expected error for multi-channel raster")
	}
}
