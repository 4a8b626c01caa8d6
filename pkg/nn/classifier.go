package nn

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chewxy/math32"
)

// LinearClassifier is a fitted logistic decision boundary over embeddings.
// It is created by the offline trainer, serialized as JSON, and loaded
// read-only by every inference consumer.
type LinearClassifier struct {
	Architecture string    `json:"architecture"` // "logistic"
	Classes      []string  `json:"classes"`      // ["idle", "active"]
	Weights      []float32 `json:"weights"`      // One weight per feature
	Bias         float32   `json:"bias"`
}

func (c *LinearClassifier) FeatureSize() int {
	return len(c.Weights)
}

// Predict returns the class and the probability of ClassActive.
func (c *LinearClassifier) Predict(features []float32) (Class, float32, error) {
	if len(features) != len(c.Weights) {
		return ClassIdle, 0, fmt.Errorf("Feature vector has %v elements, classifier expects %v", len(features), len(c.Weights))
	}
	z := c.Bias
	for i, w := range c.Weights {
		z += w * features[i]
	}
	p := 1 / (1 + math32.Exp(-z))
	if p >= 0.5 {
		return ClassActive, p, nil
	}
	return ClassIdle, p, nil
}

// Save writes the classifier artifact.
func (c *LinearClassifier) Save(filename string) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}

// LoadClassifier loads a classifier artifact from a JSON file.
func LoadClassifier(filename string) (*LinearClassifier, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	c := &LinearClassifier{}
	if err := json.Unmarshal(b, c); err != nil {
		return nil, err
	}
	if len(c.Weights) == 0 {
		return nil, fmt.Errorf("Classifier %v has no weights", filename)
	}
	return c, nil
}

// SaveFeatureMean writes the column-wise mean of the training feature matrix.
// Nothing downstream reads this yet; it's retained for a future normalization pass.
func SaveFeatureMean(filename string, mean []float32) error {
	b, err := json.Marshal(mean)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}
