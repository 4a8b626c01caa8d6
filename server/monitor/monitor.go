package monitor

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/vigilcam/vigil/pkg/nn"
	"github.com/vigilcam/vigil/pkg/perfstats"
	"github.com/vigilcam/vigil/pkg/videosource"
)

// monitor runs the activity classifier over our video sources

// FileDecimation bounds compute cost during file playback: every frame is
// still rendered, but only every 5th is classified.
const FileDecimation = 5

// LiveTickInterval is the capture cadence for live cameras. Every captured
// frame is classified.
const LiveTickInterval = 30 * time.Millisecond

const classifyQueueSize = 64

// Status is the human-visible state of a source's classification loop.
type Status int

const (
	StatusInitializing     Status = iota // No frame classified yet
	StatusModelUnavailable               // Models failed to load at startup; permanent for this process
	StatusActive                         // Last sampled frame was classified active
	StatusIdle                           // Last sampled frame was classified idle
	StatusError                          // Last sampled frame failed to classify
	StatusStopped                        // Source has ended
)

func (s Status) String() string {
	switch s {
	case StatusModelUnavailable:
		return "model unavailable"
	case StatusActive:
		return "active"
	case StatusIdle:
		return "idle"
	case StatusError:
		return "error"
	case StatusStopped:
		return "stopped"
	}
	return "initializing"
}

// Monitor owns the classification worker and all active video sources.
// The models are injected once at construction; a nil Models means we run
// permanently degraded (video still flows, tallies never move).
type Monitor struct {
	Log    logs.Log
	models *nn.Models

	// Called from the source's reader thread when a source finishes.
	// Set this before adding sources.
	OnSourceDone func(SourceState)

	queue         chan classifyQueueItem
	workerStopped chan bool
	workerBusy    atomic.Bool

	sourcesLock sync.Mutex
	sources     []*monitorSource
	nextID      int64

	watchersLock sync.RWMutex
	watchers     []chan *State

	lastErrAt      time.Time // Rate limits worker error logs. Only touched by the worker.
	lastDropWarnAt atomic.Int64

	avgTimeNSPerFramePrep     atomic.Int64
	avgTimeNSPerFrameClassify atomic.Int64
}

// State of one video source. Tally counters are only ever incremented by the
// single classify worker, and frame counters only by the source's reader
// thread, so plain atomics are all the coordination we need.
type monitorSource struct {
	id         int64
	src        videosource.FrameSource
	decimation int

	frameCount     atomic.Int64 // Frames read (reader thread)
	sampledCount   atomic.Int64 // Frames handed to the classifier (reader thread)
	processedCount atomic.Int64 // Frames the classifier has finished with (worker thread)
	activeCount    atomic.Int64 // Running tally (worker thread)
	idleCount      atomic.Int64 // Running tally (worker thread)
	status         atomic.Int32

	mustStop atomic.Bool
	stopped  chan bool
}

func (s *monitorSource) setStatus(v Status) {
	s.status.Store(int32(v))
}

func (s *monitorSource) getStatus() Status {
	return Status(s.status.Load())
}

type classifyQueueItem struct {
	source   *monitorSource
	frame    *cimg.Image
	frameIdx int64
	framePTS time.Time
}

// SourceState is a read-only snapshot of a source, for the HTTP API and tests.
type SourceState struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Live           bool   `json:"live"`
	Status         string `json:"status"`
	FrameCount     int64  `json:"frameCount"`
	SampledCount   int64  `json:"sampledCount"`
	ProcessedCount int64  `json:"processedCount"`
	ActiveCount    int64  `json:"activeCount"`
	IdleCount      int64  `json:"idleCount"`
}

// NewMonitor creates a monitor and starts its classify worker.
// models may be nil, in which case every source runs in the permanent
// "model unavailable" state.
func NewMonitor(logger logs.Log, models *nn.Models) *Monitor {
	m := &Monitor{
		Log:           logger,
		models:        models,
		queue:         make(chan classifyQueueItem, classifyQueueSize),
		workerStopped: make(chan bool),
	}
	if models == nil {
		m.Log.Warnf("Monitor starting without models. Video will render, but nothing will be classified")
	}
	go m.classifyWorker()
	return m
}

// Close stops all sources and shuts the worker down.
func (m *Monitor) Close() {
	m.Log.Infof("Monitor shutting down")
	m.sourcesLock.Lock()
	sources := append([]*monitorSource{}, m.sources...)
	m.sourcesLock.Unlock()
	for _, s := range sources {
		m.stopSource(s)
	}
	close(m.queue)
	<-m.workerStopped
	m.models.Close()
	m.Log.Infof("Monitor is closed")
}

// AddSource starts reading and classifying a video source, and returns its ID.
// The monitor takes ownership of src, and will Close it when the source stops.
func (m *Monitor) AddSource(src videosource.FrameSource) int64 {
	decimation := FileDecimation
	if src.Live() {
		decimation = 1
	}
	s := &monitorSource{
		src:        src,
		decimation: decimation,
		stopped:    make(chan bool),
	}
	if m.models == nil {
		s.setStatus(StatusModelUnavailable)
	}
	m.sourcesLock.Lock()
	m.nextID++
	s.id = m.nextID
	m.sources = append(m.sources, s)
	m.sourcesLock.Unlock()
	m.Log.Infof("Monitoring %v (decimation %v)", src.Name(), decimation)
	go m.readFrames(s)
	return s.id
}

// StopSource stops a source and waits for its reader to exit.
func (m *Monitor) StopSource(id int64) bool {
	m.sourcesLock.Lock()
	var found *monitorSource
	for _, s := range m.sources {
		if s.id == id {
			found = s
		}
	}
	m.sourcesLock.Unlock()
	if found == nil {
		return false
	}
	m.stopSource(found)
	return true
}

func (m *Monitor) stopSource(s *monitorSource) {
	s.mustStop.Store(true)
	<-s.stopped
}

// SourceState returns a snapshot of one source.
func (m *Monitor) SourceState(id int64) (SourceState, bool) {
	m.sourcesLock.Lock()
	defer m.sourcesLock.Unlock()
	for _, s := range m.sources {
		if s.id == id {
			return m.snapshot(s), true
		}
	}
	return SourceState{}, false
}

// SourceStates returns a snapshot of all sources.
func (m *Monitor) SourceStates() []SourceState {
	m.sourcesLock.Lock()
	defer m.sourcesLock.Unlock()
	states := make([]SourceState, 0, len(m.sources))
	for _, s := range m.sources {
		states = append(states, m.snapshot(s))
	}
	return states
}

func (m *Monitor) snapshot(s *monitorSource) SourceState {
	return SourceState{
		ID:             s.id,
		Name:           s.src.Name(),
		Live:           s.src.Live(),
		Status:         s.getStatus().String(),
		FrameCount:     s.frameCount.Load(),
		SampledCount:   s.sampledCount.Load(),
		ProcessedCount: s.processedCount.Load(),
		ActiveCount:    s.activeCount.Load(),
		IdleCount:      s.idleCount.Load(),
	}
}

// readFrames runs on its own thread, one per source. It drives the capture
// cadence, forwards every frame to watchers, and hands every Nth frame to the
// classify worker.
func (m *Monitor) readFrames(s *monitorSource) {
	interval := LiveTickInterval
	if !s.src.Live() && s.src.FPS() > 0 {
		interval = time.Duration(float64(time.Second) / s.src.FPS())
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastErrAt := time.Time{}
	frameIdx := int64(0)
	for !s.mustStop.Load() {
		<-ticker.C
		frame, err := s.src.NextFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Live device with no frame ready, or an undecodable file frame.
			// Either way we skip this tick and carry on.
			if time.Now().Sub(lastErrAt) > 15*time.Second {
				m.Log.Warnf("Source %v: no frame: %v", s.src.Name(), err)
				lastErrAt = time.Now()
			}
			continue
		}
		pts := time.Now()
		sampled := frameIdx%int64(s.decimation) == 0
		if sampled {
			if len(m.queue) >= cap(m.queue)*9/10 {
				// Classification has fallen behind the capture rate. There is no
				// backpressure: we drop the sample and the frame is render-only.
				sampled = false
				m.warnDrop(s)
			} else {
				s.sampledCount.Add(1)
				m.queue <- classifyQueueItem{
					source:   s,
					frame:    frame,
					frameIdx: frameIdx,
					framePTS: pts,
				}
			}
		}
		m.sendToWatchers(&State{
			SourceID:   s.id,
			SourceName: s.src.Name(),
			FrameIndex: frameIdx,
			FramePTS:   pts,
			Sampled:    sampled,
			Status:     s.getStatus().String(),
			Frame:      frame,
		})
		frameIdx++
		s.frameCount.Store(frameIdx)
	}
	s.src.Close()
	s.setStatus(StatusStopped)
	final := m.snapshot(s)
	m.sendToWatchers(&State{
		SourceID:    s.id,
		SourceName:  final.Name,
		FrameIndex:  final.FrameCount,
		Status:      final.Status,
		Done:        true,
		ActiveCount: final.ActiveCount,
		IdleCount:   final.IdleCount,
	})
	if m.OnSourceDone != nil {
		m.OnSourceDone(final)
	}
	close(s.stopped)
}

func (m *Monitor) warnDrop(s *monitorSource) {
	now := time.Now().UnixNano()
	if now-m.lastDropWarnAt.Load() > int64(5*time.Second) {
		m.lastDropWarnAt.Store(now)
		m.Log.Warnf("Classifier is falling behind on %v - dropping samples", s.src.Name())
	}
}

// classifyWorker is the single thread that runs the feature extractor and
// classifier. All tally mutation happens here.
func (m *Monitor) classifyWorker() {
	for item := range m.queue {
		m.workerBusy.Store(true)
		m.classifyFrame(item)
		item.source.processedCount.Add(1)
		m.workerBusy.Store(false)
	}
	close(m.workerStopped)
}

func (m *Monitor) classifyFrame(item classifyQueueItem) {
	s := item.source
	if m.models == nil {
		s.setStatus(StatusModelUnavailable)
		return
	}

	start := time.Now()
	rgb := item.frame
	config := m.models.Extractor.Config()
	if rgb.Width != config.Width || rgb.Height != config.Height {
		rgb = cimg.ResizeNew(rgb, config.Width, config.Height, nil)
	}
	perfstats.UpdateMovingAverage(&m.avgTimeNSPerFramePrep, time.Now().Sub(start).Nanoseconds())

	start = time.Now()
	class := nn.ClassIdle
	confidence := float32(0)
	features, err := m.models.Extractor.ExtractFeatures(rgb.NChan(), rgb.Pixels, rgb.Width, rgb.Height)
	if err == nil {
		class, confidence, err = m.models.Classifier.Predict(features)
	}
	if err != nil {
		// This frame only. Tally is left unchanged, and the loop carries on.
		if time.Now().Sub(m.lastErrAt) > 15*time.Second {
			m.Log.Errorf("Error classifying frame %v of %v: %v", item.frameIdx, s.src.Name(), err)
			m.lastErrAt = time.Now()
		}
		s.setStatus(StatusError)
		return
	}
	perfstats.UpdateMovingAverage(&m.avgTimeNSPerFrameClassify, time.Now().Sub(start).Nanoseconds())

	if class == nn.ClassActive {
		s.activeCount.Add(1)
		s.setStatus(StatusActive)
	} else {
		s.idleCount.Add(1)
		s.setStatus(StatusIdle)
	}
	m.sendToWatchers(&State{
		SourceID:    s.id,
		SourceName:  s.src.Name(),
		FrameIndex:  item.frameIdx,
		FramePTS:    item.framePTS,
		Sampled:     true,
		Classified:  true,
		Class:       class,
		Confidence:  confidence,
		Status:      s.getStatus().String(),
		ActiveCount: s.activeCount.Load(),
		IdleCount:   s.idleCount.Load(),
	})
}

// IsQuiescent is true when the classify queue is empty and the worker is idle.
// This is a sloppy synchronization mechanism created for unit tests to know
// when the worker has caught up. Don't use it for stricter things.
func (m *Monitor) IsQuiescent() bool {
	return len(m.queue) == 0 && !m.workerBusy.Load()
}
