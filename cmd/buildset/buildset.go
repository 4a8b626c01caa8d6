package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/schollz/progressbar/v3"
	"github.com/vigilcam/vigil/pkg/dataset"
)

func main() {
	parser := argparse.NewParser("buildset", "Build a labeled activity dataset from a directory of images")
	dir := parser.String("d", "dir", &argparse.Options{Help: "Directory of labeled images (eg Stanford40 JPEGImages)", Required: true})
	output := parser.String("o", "output", &argparse.Options{Help: "Output dataset archive", Default: "dataset/idle-active.zip"})
	size := parser.Int("s", "size", &argparse.Options{Help: "Target square resolution", Default: 128})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	var bar *progressbar.ProgressBar
	ds, err := dataset.Build(logger, *dir, *size, func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Building dataset"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
			)
		}
		bar.Set(done)
	})
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if ds.Count() == 0 {
		logger.Warnf("No valid images found. Not writing %v", *output)
		return
	}
	if err := ds.Save(*output); err != nil {
		logger.Errorf("Failed to save dataset: %v", err)
		os.Exit(1)
	}
	logger.Infof("Saved dataset with %v images to %v", ds.Count(), *output)
}
