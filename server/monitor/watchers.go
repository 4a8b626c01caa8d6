package monitor

import (
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/vigilcam/vigil/pkg/gen"
	"github.com/vigilcam/vigil/pkg/nn"
)

// SYNC-WATCHER-CHANNEL-SIZE
const WatcherChannelSize = 100

// State is broadcast to watchers: once per rendered frame from the reader
// thread, and once per classification result from the worker.
type State struct {
	SourceID    int64       `json:"sourceID"`
	SourceName  string      `json:"sourceName"`
	FrameIndex  int64       `json:"frameIndex"`
	FramePTS    time.Time   `json:"framePTS"`
	Sampled     bool        `json:"sampled"`    // This frame was handed to the classifier
	Classified  bool        `json:"classified"` // This state carries a classification result
	Class       nn.Class    `json:"class"`
	Confidence  float32     `json:"confidence"`
	Status      string      `json:"status"`
	ActiveCount int64       `json:"activeCount"`
	IdleCount   int64       `json:"idleCount"`
	Done        bool        `json:"done"` // Final state of a source
	Frame       *cimg.Image `json:"-"`    // The rendered frame (render states only)
}

// AddWatcher registers to receive classification states for all sources.
func (m *Monitor) AddWatcher() chan *State {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	ch := make(chan *State, WatcherChannelSize)
	m.watchers = append(m.watchers, ch)
	return ch
}

// RemoveWatcher unregisters a watcher channel.
func (m *Monitor) RemoveWatcher(ch chan *State) {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	for i, w := range m.watchers {
		if w == ch {
			m.watchers = gen.DeleteFromSliceUnordered(m.watchers, i)
			return
		}
	}
	m.Log.Warnf("Monitor.RemoveWatcher failed to find channel")
}

func (m *Monitor) sendToWatchers(state *State) {
	m.watchersLock.RLock()
	defer m.watchersLock.RUnlock()
	for _, ch := range m.watchers {
		// SYNC-WATCHER-CHANNEL-SIZE
		// If a watcher stalls, we drop states rather than stalling the capture
		// or classify threads, so that the other watchers can continue to run.
		if len(ch) >= cap(ch)*9/10 {
			m.Log.Warnf("Monitor watcher is falling behind. I am going to drop frames.")
		} else {
			ch <- state
		}
	}
}
