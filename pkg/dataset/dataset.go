package dataset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/vigilcam/vigil/pkg/nn"
)

// Package dataset builds the labeled (images, labels) pair that the trainer consumes.
// Labels are derived from filenames of the Stanford40 action dataset.

// Activity vocabularies. A filename is labeled by case-insensitive substring
// match, idle list first. This matching is deliberately kept order-dependent
// and substring-based: changing it would silently change which images enter
// the training set.
var IdleActivities = []string{
	"writing_on_a_book", "reading", "drinking", "sleeping",
	"talking_on_phone", "smoking", "brushing_teeth",
}

var ActiveActivities = []string{
	"fixing_a_car", "playing_guitar", "cleaning_floor",
	"cooking", "riding_bike", "running", "cutting_vegetables",
	"using_computer", "hammering", "pouring_liquid",
}

// LabelForFilename returns the label for an image filename, or ok=false if the
// filename matches neither vocabulary (such samples are excluded).
func LabelForFilename(filename string) (label nn.Class, ok bool) {
	lower := strings.ToLower(filename)
	for _, activity := range IdleActivities {
		if strings.Contains(lower, activity) {
			return nn.ClassIdle, true
		}
	}
	for _, activity := range ActiveActivities {
		if strings.Contains(lower, activity) {
			return nn.ClassActive, true
		}
	}
	return 0, false
}

// Dataset is two parallel sequences of equal length: packed RGB images and labels.
type Dataset struct {
	Width  int
	Height int
	Images [][]byte // Packed 24-bit RGB, Width*Height*3 bytes each
	Labels []uint8  // 0 = idle, 1 = active
}

func (d *Dataset) Count() int {
	return len(d.Images)
}

func isSupportedImage(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Build scans dir for labeled images and produces a dataset at the given square
// resolution. A missing directory, undecodable files, and unmatched filenames
// are all non-fatal: they are reported and skipped.
func Build(log logs.Log, dir string, size int, progress func(done, total int)) (*Dataset, error) {
	ds := &Dataset{
		Width:  size,
		Height: size,
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Errorf("Dataset directory %v not found: %v", dir, err)
		return ds, nil
	}
	files := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && isSupportedImage(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		log.Warnf("No image files found in %v", dir)
		return ds, nil
	}
	log.Infof("Found %v image files in %v", len(files), dir)

	for i, filename := range files {
		if progress != nil {
			progress(i, len(files))
		}
		label, ok := LabelForFilename(filename)
		if !ok {
			continue
		}
		img, err := cimg.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			log.Warnf("Failed to decode %v: %v", filename, err)
			continue
		}
		rgb, err := toRGB(img)
		if err != nil {
			log.Warnf("Skipping %v: %v", filename, err)
			continue
		}
		if rgb.Width != size || rgb.Height != size {
			rgb = cimg.ResizeNew(rgb, size, size, nil)
		}
		ds.Images = append(ds.Images, packPixels(rgb))
		ds.Labels = append(ds.Labels, uint8(label))
	}
	if progress != nil {
		progress(len(files), len(files))
	}
	log.Infof("Successfully processed %v of %v images", ds.Count(), len(files))
	return ds, nil
}
