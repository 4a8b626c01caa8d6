package train

import (
	"fmt"

	"github.com/cyclopcam/logs"
	"github.com/vigilcam/vigil/pkg/dataset"
	"github.com/vigilcam/vigil/pkg/nn"
)

// Package train is the offline trainer: it turns a dataset archive into a
// fitted classifier artifact. Unlike the interactive paths, failures here
// are returned as errors and the caller is expected to abort.

type Options struct {
	Folds        int     // Number of cross-validation folds
	Seed         int64   // Shuffle seed, fixed for reproducible fold splits
	Epochs       int     // Gradient descent epochs for the logistic fit
	LearningRate float64 //

	ClassifierFile  string // Output path of the classifier artifact
	FeatureMeanFile string // Output path of the per-feature mean (optional)

	Progress func(done, total int) // Feature extraction progress (optional)
}

func DefaultOptions() *Options {
	return &Options{
		Folds:        5,
		Seed:         42,
		Epochs:       1000,
		LearningRate: 0.1,
	}
}

// FoldResult is the evaluation outcome of one cross-validation fold.
type FoldResult struct {
	Accuracy float64
	Report   *Report
}

// Train loads the dataset archive, extracts one embedding per image through
// the frozen extractor, evaluates a logistic classifier with stratified
// cross-validation, then refits on all data and persists the artifacts.
func Train(log logs.Log, extractor nn.FeatureExtractor, archiveFile string, opts *Options) (*nn.LinearClassifier, []FoldResult, error) {
	ds, err := dataset.LoadArchive(archiveFile)
	if err != nil {
		return nil, nil, fmt.Errorf("Failed to load dataset archive: %w", err)
	}
	if ds.Count() == 0 {
		return nil, nil, fmt.Errorf("Dataset archive %v is empty", archiveFile)
	}
	config := extractor.Config()
	if ds.Width != config.Width || ds.Height != config.Height {
		return nil, nil, fmt.Errorf("Dataset images are %vx%v, but extractor wants %vx%v", ds.Width, ds.Height, config.Width, config.Height)
	}

	log.Infof("Extracting features from %v images", ds.Count())
	features := make([][]float32, 0, ds.Count())
	for i, img := range ds.Images {
		if opts.Progress != nil {
			opts.Progress(i, ds.Count())
		}
		f, err := extractor.ExtractFeatures(3, img, ds.Width, ds.Height)
		if err != nil {
			return nil, nil, fmt.Errorf("Feature extraction failed on image %v: %w", i, err)
		}
		features = append(features, f)
	}
	if opts.Progress != nil {
		opts.Progress(ds.Count(), ds.Count())
	}

	results, err := CrossValidate(log, features, ds.Labels, opts)
	if err != nil {
		return nil, nil, err
	}
	mean := 0.0
	for _, r := range results {
		mean += r.Accuracy
	}
	log.Infof("Average accuracy across %v folds: %.4f", len(results), mean/float64(len(results)))

	log.Infof("Refitting on all %v samples", ds.Count())
	final := FitLogistic(features, ds.Labels, opts.Epochs, opts.LearningRate)

	if opts.ClassifierFile != "" {
		if err := final.Save(opts.ClassifierFile); err != nil {
			return nil, nil, fmt.Errorf("Failed to save classifier: %w", err)
		}
		log.Infof("Saved classifier to %v", opts.ClassifierFile)
	}
	if opts.FeatureMeanFile != "" {
		if err := nn.SaveFeatureMean(opts.FeatureMeanFile, featureMean(features)); err != nil {
			return nil, nil, fmt.Errorf("Failed to save feature mean: %w", err)
		}
	}
	return final, results, nil
}

// CrossValidate evaluates the classifier with stratified k-fold cross-validation.
func CrossValidate(log logs.Log, features [][]float32, labels []uint8, opts *Options) ([]FoldResult, error) {
	if len(features) < opts.Folds {
		return nil, fmt.Errorf("Need at least %v samples for %v-fold cross-validation, have %v", opts.Folds, opts.Folds, len(features))
	}
	folds := StratifiedKFold(labels, opts.Folds, opts.Seed)
	results := []FoldResult{}
	for iFold, testIdx := range folds {
		trainIdx := trainIndices(len(features), testIdx)
		trainX := make([][]float32, 0, len(trainIdx))
		trainY := make([]uint8, 0, len(trainIdx))
		for _, i := range trainIdx {
			trainX = append(trainX, features[i])
			trainY = append(trainY, labels[i])
		}
		clf := FitLogistic(trainX, trainY, opts.Epochs, opts.LearningRate)

		predicted := make([]uint8, 0, len(testIdx))
		truth := make([]uint8, 0, len(testIdx))
		for _, i := range testIdx {
			class, _, err := clf.Predict(features[i])
			if err != nil {
				return nil, err
			}
			predicted = append(predicted, uint8(class))
			truth = append(truth, labels[i])
		}
		accuracy, report := Evaluate(predicted, truth)
		log.Infof("Fold %v accuracy: %.4f", iFold+1, accuracy)
		log.Infof("\n%v", report)
		results = append(results, FoldResult{Accuracy: accuracy, Report: report})
	}
	return results, nil
}
