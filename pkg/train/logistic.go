package train

import (
	"math"

	"github.com/vigilcam/vigil/pkg/nn"
	"gonum.org/v1/gonum/mat"
)

// FitLogistic fits a logistic regression decision boundary over the given
// feature vectors with full-batch gradient descent.
func FitLogistic(features [][]float32, labels []uint8, epochs int, learningRate float64) *nn.LinearClassifier {
	n := len(features)
	d := len(features[0])

	data := make([]float64, n*d)
	for i, f := range features {
		for j, v := range f {
			data[i*d+j] = float64(v)
		}
	}
	x := mat.NewDense(n, d, data)
	y := make([]float64, n)
	for i, label := range labels {
		y[i] = float64(label)
	}

	w := mat.NewVecDense(d, nil)
	b := 0.0
	z := mat.NewVecDense(n, nil)
	diff := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(d, nil)

	for epoch := 0; epoch < epochs; epoch++ {
		z.MulVec(x, w)
		diffSum := 0.0
		for i := 0; i < n; i++ {
			p := 1 / (1 + math.Exp(-(z.AtVec(i) + b)))
			diff.SetVec(i, p-y[i])
			diffSum += p - y[i]
		}
		grad.MulVec(x.T(), diff)
		w.AddScaledVec(w, -learningRate/float64(n), grad)
		b -= learningRate * diffSum / float64(n)
	}

	clf := &nn.LinearClassifier{
		Architecture: "logistic",
		Classes:      []string{"idle", "active"},
		Weights:      make([]float32, d),
		Bias:         float32(b),
	}
	for j := 0; j < d; j++ {
		clf.Weights[j] = float32(w.AtVec(j))
	}
	return clf
}

// featureMean returns the column-wise mean of the feature matrix.
func featureMean(features [][]float32) []float32 {
	if len(features) == 0 {
		return nil
	}
	d := len(features[0])
	sum := make([]float64, d)
	for _, f := range features {
		for j, v := range f {
			sum[j] += float64(v)
		}
	}
	mean := make([]float32, d)
	for j := range sum {
		mean[j] = float32(sum[j] / float64(len(features)))
	}
	return mean
}
