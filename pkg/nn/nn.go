package nn

import "fmt"

// Package nn is the model boundary: a frozen image feature extractor,
// and a linear classifier over its embeddings.

// Class is the binary activity label that the classifier produces.
type Class int

const (
	ClassIdle   Class = 0
	ClassActive Class = 1
)

func (c Class) String() string {
	if c == ClassActive {
		return "active"
	}
	return "idle"
}

// ModelConfig describes the frozen feature extraction network.
type ModelConfig struct {
	Architecture string `json:"architecture"` // eg "mobilenetv2"
	Width        int    `json:"width"`        // NN input image width (eg 128)
	Height       int    `json:"height"`       // NN input image height (eg 128)
	FeatureSize  int    `json:"featureSize"`  // Length of the embedding vector (eg 1280)
}

// FeatureExtractor maps a fixed-size RGB image to a fixed-length embedding.
// The network is pretrained and frozen. We never retrain or inspect it, so
// implementations are free to do whatever input normalization their weights expect.
type FeatureExtractor interface {
	// Close releases the underlying network (it's a C++ object underneath)
	Close()

	// ExtractFeatures runs the network over a 24-bit RGB image.
	// nchan is expected to be 3, and width/height must match Config().
	ExtractFeatures(nchan int, pixels []byte, width, height int) ([]float32, error)

	// Config is constant for the lifetime of the extractor.
	Config() *ModelConfig
}

// Classifier turns an embedding into a binary activity prediction.
type Classifier interface {
	// Predict returns the class and the probability of ClassActive.
	Predict(features []float32) (Class, float32, error)

	FeatureSize() int
}

// Models bundles the two halves of the inference pipeline.
// A nil *Models is the explicit "model unavailable" state: consumers keep
// running, but report degraded status instead of predictions.
type Models struct {
	Extractor  FeatureExtractor
	Classifier Classifier
}

func (m *Models) Close() {
	if m != nil && m.Extractor != nil {
		m.Extractor.Close()
	}
}

// LoadModels loads the extractor network and the fitted classifier.
// Any failure here is returned to the caller, who is expected to degrade
// rather than abort (interactive consumers run without predictions).
func LoadModels(extractorFile, classifierFile string) (*Models, error) {
	extractor, err := NewMobileNetExtractor(extractorFile)
	if err != nil {
		return nil, fmt.Errorf("Failed to load feature extractor %v: %w", extractorFile, err)
	}
	classifier, err := LoadClassifier(classifierFile)
	if err != nil {
		extractor.Close()
		return nil, fmt.Errorf("Failed to load classifier %v: %w", classifierFile, err)
	}
	if classifier.FeatureSize() != extractor.Config().FeatureSize {
		extractor.Close()
		return nil, fmt.Errorf("Classifier was trained on %v-dim features, but extractor produces %v", classifier.FeatureSize(), extractor.Config().FeatureSize)
	}
	return &Models{
		Extractor:  extractor,
		Classifier: classifier,
	}, nil
}
