package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/schollz/progressbar/v3"
	"github.com/vigilcam/vigil/pkg/nn"
	"github.com/vigilcam/vigil/pkg/train"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("train", "Train the activity classifier from a dataset archive")
	archive := parser.String("i", "input", &argparse.Options{Help: "Dataset archive built by buildset", Required: true})
	extractorFile := parser.String("e", "extractor", &argparse.Options{Help: "Feature extractor ONNX file", Default: "models/mobilenetv2-embed.onnx"})
	classifierFile := parser.String("o", "output", &argparse.Options{Help: "Output classifier artifact", Default: "models/activity-clf.json"})
	meanFile := parser.String("", "mean", &argparse.Options{Help: "Output per-feature mean", Default: "models/feature-mean.json"})
	folds := parser.Int("k", "folds", &argparse.Options{Help: "Cross-validation folds", Default: 5})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, _ := logs.NewLog()

	// The trainer is a one-shot batch job: any failure from here on is fatal.
	extractor, err := nn.NewMobileNetExtractor(*extractorFile)
	check(err)
	defer extractor.Close()

	opts := train.DefaultOptions()
	opts.Folds = *folds
	opts.ClassifierFile = *classifierFile
	opts.FeatureMeanFile = *meanFile
	var bar *progressbar.ProgressBar
	opts.Progress = func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Extracting features"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
			)
		}
		bar.Set(done)
	}

	_, _, err = train.Train(logger, extractor, *archive, opts)
	check(err)
	logger.Infof("Final model saved")
}
