package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
	"github.com/vigilcam/vigil/pkg/nn"
)

func TestLabelForFilename(t *testing.T) {
	check := func(filename string, expectLabel nn.Class, expectOK bool) {
		label, ok := LabelForFilename(filename)
		require.Equal(t, expectOK, ok, filename)
		if ok {
			require.Equal(t, expectLabel, label, filename)
		}
	}
	check("reading_001.jpg", nn.ClassIdle, true)
	check("Drinking_042.jpg", nn.ClassIdle, true)
	check("running_007.jpg", nn.ClassActive, true)
	check("FIXING_A_CAR_003.jpg", nn.ClassActive, true)
	check("applauding_001.jpg", 0, false)
	check("jumping_099.jpg", 0, false)
	// Idle vocabulary wins when a filename matches both lists
	check("reading_while_running_001.jpg", nn.ClassIdle, true)
}

func writeTestJpeg(t *testing.T, filename string, width, height int, shade byte) {
	img := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for i := range img.Pixels {
		img.Pixels[i] = shade
	}
	jpg, err := cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling420, 90, 0))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filename, jpg, 0644))
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writeTestJpeg(t, filepath.Join(dir, "reading_01.jpg"), 48, 36, 40)
	writeTestJpeg(t, filepath.Join(dir, "running_02.jpg"), 64, 64, 200)
	writeTestJpeg(t, filepath.Join(dir, "unknown_03.jpg"), 48, 48, 128)
	// Matches the vocabulary but isn't a valid image
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cooking_bad.jpg"), []byte("not a jpeg"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644))

	ds, err := Build(logs.NewTestingLog(t), dir, 32, nil)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Count())
	require.Equal(t, 32, ds.Width)
	require.Equal(t, 32, ds.Height)
	// os.ReadDir is sorted, so reading comes before running
	require.Equal(t, []uint8{0, 1}, ds.Labels)
	for _, img := range ds.Images {
		require.Len(t, img, 32*32*3)
	}
	// The resized idle image stays dark, the active image stays bright
	require.Less(t, ds.Images[0][0], uint8(100))
	require.Greater(t, ds.Images[1][0], uint8(150))
}

func TestBuildAlreadySized(t *testing.T) {
	dir := t.TempDir()
	writeTestJpeg(t, filepath.Join(dir, "sleeping_01.jpg"), 32, 32, 90)

	ds, err := Build(logs.NewTestingLog(t), dir, 32, nil)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Count())
	require.Len(t, ds.Images[0], 32*32*3)
	// No resize happened, so the flat shade survives JPEG roundtrip within noise
	require.InDelta(t, 90, ds.Images[0][0], 6)
}

func TestBuildMissingDir(t *testing.T) {
	ds, err := Build(logs.NewTestingLog(t), filepath.Join(t.TempDir(), "nope"), 32, nil)
	require.NoError(t, err)
	require.Equal(t, 0, ds.Count())
}

func TestArchiveRoundtrip(t *testing.T) {
	ds := &Dataset{
		Width:  4,
		Height: 4,
	}
	for i := 0; i < 6; i++ {
		img := make([]byte, 4*4*3)
		for j := range img {
			img[j] = byte(i*40 + j)
		}
		ds.Images = append(ds.Images, img)
		ds.Labels = append(ds.Labels, uint8(i%2))
	}

	filename := filepath.Join(t.TempDir(), "ds.zip")
	require.NoError(t, ds.Save(filename))

	loaded, err := LoadArchive(filename)
	require.NoError(t, err)
	require.Equal(t, ds.Width, loaded.Width)
	require.Equal(t, ds.Height, loaded.Height)
	require.Equal(t, ds.Labels, loaded.Labels)
	require.Equal(t, ds.Images, loaded.Images)
}

func TestLoadArchiveMissing(t *testing.T) {
	_, err := LoadArchive(filepath.Join(t.TempDir(), "missing.zip"))
	require.Error(t, err)
}
