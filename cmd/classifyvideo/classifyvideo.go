package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/akamensky/argparse"
	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/vigilcam/vigil/pkg/nn"
	"github.com/vigilcam/vigil/pkg/videosource"
	"github.com/vigilcam/vigil/server/monitor"
)

// frameResultJSON is one line of output, for every sampled frame.
type frameResultJSON struct {
	Frame      int     `json:"frame"`
	Class      string  `json:"class"`
	Confidence float32 `json:"confidence"`
}

type summaryJSON struct {
	Frames  int `json:"frames"`
	Sampled int `json:"sampled"`
	Active  int `json:"active"`
	Idle    int `json:"idle"`
}

func main() {
	parser := argparse.NewParser("classifyvideo", "Classify worker activity in a video file, without the server")
	videoFile := parser.String("i", "input", &argparse.Options{Help: "Video file to classify", Required: true})
	extractorFile := parser.String("e", "extractor", &argparse.Options{Help: "Feature extractor ONNX file", Default: "models/mobilenetv2-embed.onnx"})
	classifierFile := parser.String("m", "classifier", &argparse.Options{Help: "Classifier artifact file", Default: "models/activity-clf.json"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, _ := logs.NewLog()

	models, err := nn.LoadModels(*extractorFile, *classifierFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	defer models.Close()

	src, err := videosource.OpenFile(*videoFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	defer src.Close()

	config := models.Extractor.Config()
	out := json.NewEncoder(os.Stdout)
	summary := summaryJSON{}

	for frameIdx := 0; ; frameIdx++ {
		frame, err := src.NextFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warnf("Failed to read frame %v: %v", frameIdx, err)
			continue
		}
		summary.Frames++
		if frameIdx%monitor.FileDecimation != 0 {
			continue
		}
		summary.Sampled++
		if frame.Width != config.Width || frame.Height != config.Height {
			frame = cimg.ResizeNew(frame, config.Width, config.Height, nil)
		}
		features, err := models.Extractor.ExtractFeatures(frame.NChan(), frame.Pixels, frame.Width, frame.Height)
		if err != nil {
			logger.Errorf("Feature extraction failed on frame %v: %v", frameIdx, err)
			os.Exit(1)
		}
		class, confidence, err := models.Classifier.Predict(features)
		if err != nil {
			logger.Errorf("Prediction failed on frame %v: %v", frameIdx, err)
			os.Exit(1)
		}
		if class == nn.ClassActive {
			summary.Active++
		} else {
			summary.Idle++
		}
		out.Encode(&frameResultJSON{
			Frame:      frameIdx,
			Class:      class.String(),
			Confidence: confidence,
		})
	}

	logger.Infof("Read %v frames, sampled %v, active %v, idle %v", summary.Frames, summary.Sampled, summary.Active, summary.Idle)
	out.Encode(&summary)
}
