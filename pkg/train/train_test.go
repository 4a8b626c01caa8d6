package train

import (
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
	"github.com/vigilcam/vigil/pkg/dataset"
	"github.com/vigilcam/vigil/pkg/nn"
)

func TestStratifiedKFold(t *testing.T) {
	labels := make([]uint8, 60)
	for i := 40; i < 60; i++ {
		labels[i] = 1
	}
	folds := StratifiedKFold(labels, 5, 42)
	require.Len(t, folds, 5)

	seen := map[int]bool{}
	for _, fold := range folds {
		require.Len(t, fold, 12)
		zeros, ones := 0, 0
		for _, i := range fold {
			require.False(t, seen[i], "index %v appears in two folds", i)
			seen[i] = true
			if labels[i] == 0 {
				zeros++
			} else {
				ones++
			}
		}
		// Each fold keeps the 2:1 class balance of the whole set
		require.Equal(t, 8, zeros)
		require.Equal(t, 4, ones)
	}
	require.Len(t, seen, 60)

	// Same seed, same split
	again := StratifiedKFold(labels, 5, 42)
	require.Equal(t, folds, again)
}

func TestTrainIndices(t *testing.T) {
	train := trainIndices(6, []int{1, 4})
	require.Equal(t, []int{0, 2, 3, 5}, train)
}

func TestFitLogisticSeparable(t *testing.T) {
	features := [][]float32{}
	labels := []uint8{}
	for i := 0; i < 10; i++ {
		features = append(features, []float32{-1, float32(i) * 0.01})
		labels = append(labels, 0)
		features = append(features, []float32{1, float32(i) * 0.01})
		labels = append(labels, 1)
	}
	clf := FitLogistic(features, labels, 500, 0.5)
	require.Equal(t, "logistic", clf.Architecture)
	require.Equal(t, 2, clf.FeatureSize())
	for i, f := range features {
		class, p, err := clf.Predict(f)
		require.NoError(t, err)
		require.Equal(t, nn.Class(labels[i]), class)
		if labels[i] == 1 {
			require.Greater(t, p, float32(0.5))
		} else {
			require.Less(t, p, float32(0.5))
		}
	}
}

func TestEvaluate(t *testing.T) {
	predicted := []uint8{0, 0, 1, 1, 1, 0}
	truth := []uint8{0, 0, 1, 1, 0, 1}
	accuracy, report := Evaluate(predicted, truth)
	require.InDelta(t, 4.0/6.0, accuracy, 1e-9)

	idle := report.Classes["idle"]
	require.Equal(t, 3, idle.Support)
	require.InDelta(t, 2.0/3.0, idle.Precision, 1e-9)
	require.InDelta(t, 2.0/3.0, idle.Recall, 1e-9)

	active := report.Classes["active"]
	require.Equal(t, 3, active.Support)
	require.InDelta(t, 2.0/3.0, active.Precision, 1e-9)
	require.InDelta(t, 2.0/3.0, active.Recall, 1e-9)

	require.Contains(t, report.String(), "precision")
}

// shadeExtractor embeds an image as (mean shade, 1 - mean shade).
// Dark and bright images become linearly separable, which is all the
// trainer tests need.
type shadeExtractor struct {
	config nn.ModelConfig
}

func newShadeExtractor(size int) *shadeExtractor {
	return &shadeExtractor{
		config: nn.ModelConfig{Architecture: "shade", Width: size, Height: size, FeatureSize: 2},
	}
}

func (e *shadeExtractor) Close() {}

func (e *shadeExtractor) Config() *nn.ModelConfig { return &e.config }

func (e *shadeExtractor) ExtractFeatures(nchan int, pixels []byte, width, height int) ([]float32, error) {
	sum := 0.0
	for _, p := range pixels {
		sum += float64(p)
	}
	mean := float32(sum / float64(len(pixels)) / 255)
	return []float32{mean, 1 - mean}, nil
}

func makeTestArchive(t *testing.T, size, count int) string {
	ds := &dataset.Dataset{
		Width:  size,
		Height: size,
	}
	for i := 0; i < count; i++ {
		img := make([]byte, size*size*3)
		shade := byte(10)
		label := uint8(0)
		if i%2 == 1 {
			shade = 240
			label = 1
		}
		for j := range img {
			img[j] = shade
		}
		ds.Images = append(ds.Images, img)
		ds.Labels = append(ds.Labels, label)
	}
	filename := filepath.Join(t.TempDir(), "ds.zip")
	require.NoError(t, ds.Save(filename))
	return filename
}

func TestTrainEndToEnd(t *testing.T) {
	archive := makeTestArchive(t, 8, 100)
	classifierFile := filepath.Join(t.TempDir(), "clf.json")
	meanFile := filepath.Join(t.TempDir(), "mean.json")

	opts := DefaultOptions()
	opts.Epochs = 300
	opts.ClassifierFile = classifierFile
	opts.FeatureMeanFile = meanFile

	clf, results, err := Train(logs.NewTestingLog(t), newShadeExtractor(8), archive, opts)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, r := range results {
		// Trivially separable data: every fold must be perfect
		require.Equal(t, 1.0, r.Accuracy)
	}

	// The persisted artifact matches the returned classifier
	loaded, err := nn.LoadClassifier(classifierFile)
	require.NoError(t, err)
	require.Equal(t, clf, loaded)
	require.Equal(t, 2, loaded.FeatureSize())
}

func TestTrainSizeMismatch(t *testing.T) {
	archive := makeTestArchive(t, 8, 10)
	_, _, err := Train(logs.NewTestingLog(t), newShadeExtractor(16), archive, DefaultOptions())
	require.Error(t, err)
}

func TestCrossValidateTooFewSamples(t *testing.T) {
	features := [][]float32{{1}, {2}, {3}}
	labels := []uint8{0, 1, 0}
	_, err := CrossValidate(logs.NewTestingLog(t), features, labels, DefaultOptions())
	require.Error(t, err)
}
