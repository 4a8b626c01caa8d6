package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/vigilcam/vigil/pkg/nn"
	"github.com/vigilcam/vigil/pkg/videosource"
	"github.com/vigilcam/vigil/server/configdb"
	"github.com/vigilcam/vigil/server/monitor"
)

// Server ties together the config database, the monitor, and the HTTP API
// that stands in for the old desktop dashboard.
type Server struct {
	Log              logs.Log
	ShutdownComplete chan error

	configDB *configdb.ConfigDB
	monitor  *monitor.Monitor
	degraded bool // Models failed to load at startup

	httpServer *http.Server

	runStartsLock sync.Mutex
	runStarts     map[int64]time.Time

	shutdownStarted chan bool
	shutdownOnce    sync.Once
}

// NewServer creates the server and starts monitoring all enabled camera sources.
// models may be nil: the server still runs, video still flows, and the API
// reports the degraded state.
func NewServer(logger logs.Log, configDB *configdb.ConfigDB, models *nn.Models) (*Server, error) {
	s := &Server{
		Log:              logger,
		ShutdownComplete: make(chan error, 1),
		configDB:         configDB,
		degraded:         models == nil,
		runStarts:        map[int64]time.Time{},
		shutdownStarted:  make(chan bool),
	}
	s.monitor = monitor.NewMonitor(logger, models)
	s.monitor.OnSourceDone = s.onSourceDone

	enabled, err := configDB.EnabledSources()
	if err != nil {
		return nil, err
	}
	for _, src := range enabled {
		if src.Kind != configdb.SourceKindCamera {
			continue
		}
		if _, err := s.StartCamera(src.DeviceIndex); err != nil {
			// A missing camera must not stop the server from coming up
			logger.Errorf("Failed to start camera %v (%v): %v", src.DeviceIndex, src.Name, err)
		}
	}
	return s, nil
}

// StartCamera opens a camera device and adds it to the monitor.
func (s *Server) StartCamera(deviceIndex int) (int64, error) {
	src, err := videosource.OpenCamera(deviceIndex)
	if err != nil {
		return 0, err
	}
	return s.addSource(src), nil
}

// StartFilePlayback opens a video file and adds it to the monitor.
func (s *Server) StartFilePlayback(path string) (int64, error) {
	src, err := videosource.OpenFile(path)
	if err != nil {
		return 0, err
	}
	return s.addSource(src), nil
}

func (s *Server) addSource(src videosource.FrameSource) int64 {
	id := s.monitor.AddSource(src)
	s.runStartsLock.Lock()
	s.runStarts[id] = time.Now()
	s.runStartsLock.Unlock()
	return id
}

// onSourceDone persists the tally snapshot of a finished run.
func (s *Server) onSourceDone(state monitor.SourceState) {
	s.runStartsLock.Lock()
	startedAt := s.runStarts[state.ID]
	delete(s.runStarts, state.ID)
	s.runStartsLock.Unlock()

	summary := &configdb.RunSummary{
		SourceName:  state.Name,
		Live:        state.Live,
		StartedAt:   startedAt.UnixMilli(),
		FinishedAt:  time.Now().UnixMilli(),
		ActiveCount: state.ActiveCount,
		IdleCount:   state.IdleCount,
		Degraded:    s.degraded,
	}
	if err := s.configDB.RecordRunSummary(summary); err != nil {
		s.Log.Errorf("Failed to record run summary for %v: %v", state.Name, err)
	}
}

// ListenHTTP blocks until the server is shut down.
func (s *Server) ListenHTTP(port string) error {
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.setupRouter(),
	}
	s.Log.Infof("Listening on %v", port)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// ListenForKillSignals starts a goroutine that triggers a clean shutdown on
// SIGINT/SIGTERM.
func (s *Server) ListenForKillSignals() {
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case x := <-sig:
			s.Log.Infof("Received OS signal %v", x)
			s.Shutdown()
		case <-s.shutdownStarted:
		}
	}()
}

// Shutdown stops all sources (which flushes their run summaries), then the
// HTTP listener.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownStarted)
		s.monitor.Close()
		var err error
		if s.httpServer != nil {
			err = s.httpServer.Close()
			if err != nil {
				err = fmt.Errorf("HTTP server close: %w", err)
			}
		}
		s.ShutdownComplete <- err
	})
}
