package monitor

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
	"github.com/vigilcam/vigil/pkg/nn"
	"github.com/vigilcam/vigil/pkg/videosource"
)

// testSource emits a fixed number of synthetic frames.
// A live testSource keeps reporting ErrNoFrame once its frames run out,
// like a camera with nothing new to say. A file testSource hits EOF.
type testSource struct {
	name   string
	live   bool
	fps    float64
	frames int
	idx    int
	img    *cimg.Image
}

func newTestSource(name string, live bool, frames int) *testSource {
	return &testSource{
		name:   name,
		live:   live,
		fps:    500,
		frames: frames,
		img:    cimg.NewImage(64, 48, cimg.PixelFormatRGB),
	}
}

func (s *testSource) Name() string { return s.name }
func (s *testSource) Live() bool   { return s.live }
func (s *testSource) FPS() float64 { return s.fps }
func (s *testSource) Close()       {}

func (s *testSource) NextFrame() (*cimg.Image, error) {
	if s.idx >= s.frames {
		if s.live {
			return nil, videosource.ErrNoFrame
		}
		return nil, io.EOF
	}
	s.idx++
	return s.img, nil
}

type stubExtractor struct {
	config nn.ModelConfig
	fail   bool
}

func newStubExtractor() *stubExtractor {
	return &stubExtractor{
		config: nn.ModelConfig{Architecture: "stub", Width: 32, Height: 32, FeatureSize: 4},
	}
}

func (e *stubExtractor) Close() {}

func (e *stubExtractor) Config() *nn.ModelConfig { return &e.config }

func (e *stubExtractor) ExtractFeatures(nchan int, pixels []byte, width, height int) ([]float32, error) {
	if e.fail {
		return nil, errors.New("extractor exploded")
	}
	if nchan != 3 || width != e.config.Width || height != e.config.Height {
		return nil, fmt.Errorf("unexpected input %vx%vx%v", width, height, nchan)
	}
	return make([]float32, e.config.FeatureSize), nil
}

// alternatingClassifier predicts idle, active, idle, active, ...
type alternatingClassifier struct {
	n int
}

func (c *alternatingClassifier) FeatureSize() int { return 4 }

func (c *alternatingClassifier) Predict(features []float32) (nn.Class, float32, error) {
	c.n++
	if c.n%2 == 0 {
		return nn.ClassActive, 0.9, nil
	}
	return nn.ClassIdle, 0.1, nil
}

func stubModels(fail bool) *nn.Models {
	ex := newStubExtractor()
	ex.fail = fail
	return &nn.Models{
		Extractor:  ex,
		Classifier: &alternatingClassifier{},
	}
}

func waitProcessed(t *testing.T, m *Monitor, id int64) SourceState {
	var state SourceState
	require.Eventually(t, func() bool {
		s, ok := m.SourceState(id)
		if !ok {
			return false
		}
		state = s
		return s.ProcessedCount == s.SampledCount && m.IsQuiescent()
	}, 5*time.Second, 5*time.Millisecond)
	state, _ = m.SourceState(id)
	return state
}

func TestLiveTally(t *testing.T) {
	m := NewMonitor(logs.NewTestingLog(t), stubModels(false))
	id := m.AddSource(newTestSource("cam0", true, 12))

	require.Eventually(t, func() bool {
		s, _ := m.SourceState(id)
		return s.FrameCount == 12
	}, 5*time.Second, 5*time.Millisecond)
	m.StopSource(id)

	state := waitProcessed(t, m, id)
	// Live mode: every frame is sampled and classified
	require.Equal(t, int64(12), state.SampledCount)
	require.Equal(t, state.SampledCount, state.ActiveCount+state.IdleCount)
	require.Equal(t, int64(6), state.ActiveCount)
	require.Equal(t, int64(6), state.IdleCount)
	m.Close()
}

func TestFileDecimation(t *testing.T) {
	m := NewMonitor(logs.NewTestingLog(t), stubModels(false))
	done := make(chan SourceState, 1)
	m.OnSourceDone = func(s SourceState) {
		done <- s
	}
	id := m.AddSource(newTestSource("clip.mp4", false, 23))
	<-done

	state := waitProcessed(t, m, id)
	// 23 frames at decimation 5 -> frames 0,5,10,15,20 are classified
	require.Equal(t, int64(23), state.FrameCount)
	require.Equal(t, int64(5), state.SampledCount)
	require.Equal(t, state.SampledCount, state.ActiveCount+state.IdleCount)
	m.Close()
}

func TestModelUnavailable(t *testing.T) {
	m := NewMonitor(logs.NewTestingLog(t), nil)
	id := m.AddSource(newTestSource("cam0", true, 10))

	require.Eventually(t, func() bool {
		s, _ := m.SourceState(id)
		return s.FrameCount == 10
	}, 5*time.Second, 5*time.Millisecond)

	state := waitProcessed(t, m, id)
	require.Equal(t, int64(0), state.ActiveCount)
	require.Equal(t, int64(0), state.IdleCount)
	require.Equal(t, StatusModelUnavailable.String(), state.Status)

	m.StopSource(id)
	m.Close()
}

func TestPredictionFailure(t *testing.T) {
	m := NewMonitor(logs.NewTestingLog(t), stubModels(true))
	id := m.AddSource(newTestSource("cam0", true, 8))

	require.Eventually(t, func() bool {
		s, _ := m.SourceState(id)
		return s.FrameCount == 8
	}, 5*time.Second, 5*time.Millisecond)

	state := waitProcessed(t, m, id)
	// Every classification failed: tally untouched, error status, loop alive
	require.Equal(t, int64(8), state.SampledCount)
	require.Equal(t, int64(0), state.ActiveCount+state.IdleCount)
	require.Equal(t, StatusError.String(), state.Status)

	m.StopSource(id)
	m.Close()
}

func TestWatcherReceivesResults(t *testing.T) {
	m := NewMonitor(logs.NewTestingLog(t), stubModels(false))
	ch := m.AddWatcher()
	done := make(chan SourceState, 1)
	m.OnSourceDone = func(s SourceState) {
		done <- s
	}
	m.AddSource(newTestSource("clip.mp4", false, 10))
	<-done

	sawResult := false
	sawDone := false
	deadline := time.After(5 * time.Second)
	for !(sawDone && sawResult) {
		select {
		case state := <-ch:
			if state.Classified {
				sawResult = true
			}
			if state.Done {
				sawDone = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for watcher states")
		}
	}
	require.True(t, sawResult)
	m.RemoveWatcher(ch)
	m.Close()
}
