package nn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPredict(t *testing.T) {
	clf := &LinearClassifier{
		Architecture: "logistic",
		Classes:      []string{"idle", "active"},
		Weights:      []float32{1, -1},
		Bias:         0,
	}

	class, p, err := clf.Predict([]float32{2, 0})
	require.NoError(t, err)
	require.Equal(t, ClassActive, class)
	require.Greater(t, p, float32(0.5))

	class, p, err = clf.Predict([]float32{0, 2})
	require.NoError(t, err)
	require.Equal(t, ClassIdle, class)
	require.Less(t, p, float32(0.5))

	// The boundary itself counts as active
	class, _, err = clf.Predict([]float32{1, 1})
	require.NoError(t, err)
	require.Equal(t, ClassActive, class)

	_, _, err = clf.Predict([]float32{1, 2, 3})
	require.Error(t, err)
}

func TestClassifierSaveLoad(t *testing.T) {
	clf := &LinearClassifier{
		Architecture: "logistic",
		Classes:      []string{"idle", "active"},
		Weights:      []float32{0.5, -1.25, 3},
		Bias:         -0.75,
	}
	filename := filepath.Join(t.TempDir(), "clf.json")
	require.NoError(t, clf.Save(filename))

	loaded, err := LoadClassifier(filename)
	require.NoError(t, err)
	require.Equal(t, clf, loaded)
	require.Equal(t, 3, loaded.FeatureSize())

	_, err = LoadClassifier(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("{}"), 0644))
	_, err = LoadClassifier(empty)
	require.Error(t, err)
}

func TestClassString(t *testing.T) {
	require.Equal(t, "idle", ClassIdle.String())
	require.Equal(t, "active", ClassActive.String())
}
