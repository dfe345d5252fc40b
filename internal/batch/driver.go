// Package batch drives ROI extraction across every slide set in a
// directory: segment the template channel once, then crop every channel of
// the set with the same box list.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"slidecrop/internal/config"
	"slidecrop/internal/export"
	"slidecrop/internal/roi"
	"slidecrop/internal/slide"
	"slidecrop/pkg/geometry"
)

// Driver runs the crop pipeline over all slide sets in the input directory.
type Driver struct {
	cfg *config.Config
	log *logrus.Logger
}

// New creates a Driver. The config must already be validated.
func New(cfg *config.Config, log *logrus.Logger) *Driver {
	return &Driver{cfg: cfg, log: log}
}

// Run processes every .ndpis index file in the input directory in lexical
// order. With ContinueOnError unset the first slide set that fails aborts
// the run; otherwise failed sets are logged and skipped. Processing is
// strictly sequential with at most one decoded raster alive at a time —
// a level-0 raster can be most of a gigabyte.
func (d *Driver) Run() error {
	entries, err := os.ReadDir(d.cfg.InputDir)
	if err != nil {
		return fmt.Errorf("read input directory: %w", err)
	}

	outputDir := filepath.Join(d.cfg.InputDir, d.cfg.OutputDirName)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	slides, crops := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), slide.IndexExt) {
			continue
		}
		indexPath := filepath.Join(d.cfg.InputDir, entry.Name())
		n, err := d.processSlideSet(indexPath, outputDir)
		if err != nil {
			if !d.cfg.ContinueOnError {
				return fmt.Errorf("slide set %s: %w", entry.Name(), err)
			}
			d.log.WithError(err).WithField("index", entry.Name()).Warn("skipping slide set")
			continue
		}
		slides++
		crops += n
	}

	d.log.WithFields(logrus.Fields{
		"slides": slides,
		"crops":  crops,
		"output": outputDir,
	}).Info("batch complete")
	return nil
}

// processSlideSet computes the ROI list from the template channel, then
// crops every channel of the set with it. Returns the number of crops
// written across all channels.
func (d *Driver) processSlideSet(indexPath, outputDir string) (int, error) {
	set, err := slide.ResolveChannels(indexPath)
	if err != nil {
		return 0, err
	}
	if len(set.Channels) == 0 {
		d.log.WithField("index", filepath.Base(indexPath)).Warn("index file declares no channels")
		return 0, nil
	}

	template, err := set.TemplateChannel(d.cfg.TemplateChannel)
	if err != nil {
		return 0, err
	}

	boxes, err := d.segmentTemplate(template)
	if err != nil {
		return 0, err
	}
	d.log.WithFields(logrus.Fields{
		"index":    filepath.Base(indexPath),
		"template": filepath.Base(template),
		"rois":     len(boxes),
	}).Info("template segmented")

	written := 0
	for _, channel := range set.Channels {
		n, err := d.exportChannel(channel, boxes, outputDir)
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// segmentTemplate decodes the template channel and runs the segmenter,
// releasing the raster before returning.
func (d *Driver) segmentTemplate(path string) ([]geometry.RectInt, error) {
	raster, err := slide.DecodeGray(path, d.cfg.Level)
	if err != nil {
		return nil, err
	}
	defer raster.Close()

	return roi.Segment(raster, roi.Options{
		BlurRadius:    d.cfg.BlurRadius,
		SizeThreshold: d.cfg.EffectiveSizeThreshold(),
		Mode:          d.cfg.ThresholdMode,
	})
}

// exportChannel decodes one channel and writes a crop per box, logging one
// progress record per crop.
func (d *Driver) exportChannel(channel string, boxes []geometry.RectInt, outputDir string) (int, error) {
	raster, err := slide.DecodeGray(channel, d.cfg.Level)
	if err != nil {
		return 0, err
	}
	defer raster.Close()

	base := strings.TrimSuffix(filepath.Base(channel), filepath.Ext(channel))
	basePath := filepath.Join(outputDir, base)
	return export.ExportCrops(raster, boxes, basePath,
		func(ordinal, total, width, height int, path string) {
			d.log.WithFields(logrus.Fields{
				"roi":    ordinal,
				"total":  total,
				"width":  width,
				"height": height,
				"file":   filepath.Base(path),
			}).Info("exported crop")
		})
}
