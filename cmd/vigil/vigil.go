package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/vigilcam/vigil/pkg/nn"
	"github.com/vigilcam/vigil/server"
	"github.com/vigilcam/vigil/server/configdb"
)

func main() {
	// This is purely for documentation of the cmd-line args
	nominalDefaultDB := "$HOME/vigil/config.sqlite"

	parser := argparse.NewParser("vigil", "Worker activity monitor")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Configuration database file", Default: nominalDefaultDB})
	extractorFile := parser.String("e", "extractor", &argparse.Options{Help: "Feature extractor ONNX file", Default: "models/mobilenetv2-embed.onnx"})
	classifierFile := parser.String("m", "classifier", &argparse.Options{Help: "Classifier artifact file", Default: "models/activity-clf.json"})
	port := parser.String("p", "port", &argparse.Options{Help: "HTTP listen address", Default: ":8080"})
	camera := parser.Int("", "camera", &argparse.Options{Help: "Also start this camera device immediately", Default: -1})
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

	if *configFile == nominalDefaultDB {
		home, _ := os.UserHomeDir()
		if home == "" {
			home = "/var/lib"
		}
		*configFile = filepath.Join(home, "vigil", "config.sqlite")
	}

	configDB, err := configdb.NewConfigDB(logger, *configFile)
	if err != nil {
		logger.Errorf("Failed to open config database: %v", err)
		os.Exit(1)
	}

	// Missing model files degrade the server instead of stopping it:
	// video still renders, and every status reads "model unavailable".
	models, err := nn.LoadModels(*extractorFile, *classifierFile)
	if err != nil {
		logger.Warnf("Running without models: %v", err)
		models = nil
	}

	srv, err := server.NewServer(logger, configDB, models)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if *camera >= 0 {
		if _, err := srv.StartCamera(*camera); err != nil {
			logger.Errorf("Failed to start camera %v: %v", *camera, err)
		}
	}
	srv.ListenForKillSignals()

	if err := srv.ListenHTTP(*port); err != nil {
		logger.Errorf("ListenHTTP returned: %v", err)
	}
	// No-op if a kill signal already triggered the shutdown
	srv.Shutdown()
	if err := <-srv.ShutdownComplete; err != nil {
		logger.Errorf("Shutdown: %v", err)
	}
}
